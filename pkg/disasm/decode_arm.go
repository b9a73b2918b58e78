package disasm

import (
	"strings"

	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"
)

// arm64Decoder wraps golang.org/x/arch/arm64/arm64asm, the same
// decoder other_examples/maxgio92-prologo uses for AArch64 call-site
// detection: BL is a call, B is a tail jump (downgraded when it
// carries a Cond argument, i.e. a conditional intra-function branch
// rather than a tail call).
type arm64Decoder struct{}

func newARM64Decoder() *arm64Decoder { return &arm64Decoder{} }

func (d *arm64Decoder) Decode(code []byte, addr uint64) (Instruction, error) {
	const insnLen = 4
	if len(code) < insnLen {
		return Instruction{}, errShortBuffer
	}

	inst, err := arm64asm.Decode(code[:insnLen])
	if err != nil {
		return Instruction{}, err
	}

	full := inst.String()
	mnemonic, operand := splitMnemonic(full)

	out := Instruction{
		Address:     addr,
		Mnemonic:    mnemonic,
		OperandText: operand,
		Size:        insnLen,
	}

	switch inst.Op {
	case arm64asm.BL, arm64asm.BLR:
		out.Class = ClassCall
	case arm64asm.B, arm64asm.BR:
		if _, conditional := inst.Args[0].(arm64asm.Cond); !conditional {
			out.Class = ClassTailJump
		}
	case arm64asm.SUB, arm64asm.ADD:
		if usesStackPointerARM64(inst) {
			out.Class = ClassStackAlloc
		}
	}

	if out.Class == ClassCall || out.Class == ClassTailJump {
		if target, ok := extractTargetARM64(inst, addr); ok {
			out.Target = target
			out.HasTarget = true
		} else if target, ok := extractTargetFromText(operand); ok {
			out.Target = target
			out.HasTarget = true
		}
	}

	return out, nil
}

// extractTargetARM64 mirrors extractTargetARM64 in
// other_examples/maxgio92-prologo/callsite.go.
func extractTargetARM64(inst arm64asm.Inst, sourceAddr uint64) (uint64, bool) {
	if len(inst.Args) == 0 {
		return 0, false
	}
	pcrel, ok := inst.Args[0].(arm64asm.PCRel)
	if !ok {
		return 0, false
	}
	return sourceAddr + uint64(int64(pcrel)), true
}

func usesStackPointerARM64(inst arm64asm.Inst) bool {
	return strings.Contains(strings.ToLower(inst.String()), "sp")
}

// armDecoder wraps golang.org/x/arch/arm/armasm for 32-bit ARM.
// Call/tail-jump mnemonics follow spec.md §4.2: {bl, blx} / {b, bx}.
type armDecoder struct{}

func newARMDecoder() *armDecoder { return &armDecoder{} }

func (d *armDecoder) Decode(code []byte, addr uint64) (Instruction, error) {
	const insnLen = 4
	if len(code) < insnLen {
		return Instruction{}, errShortBuffer
	}

	inst, err := armasm.Decode(code[:insnLen], armasm.ModeARM)
	if err != nil {
		return Instruction{}, err
	}

	full := inst.String()
	mnemonic, operand := splitMnemonic(full)

	out := Instruction{
		Address:     addr,
		Mnemonic:    mnemonic,
		OperandText: operand,
		Size:        insnLen,
	}

	switch inst.Op {
	case armasm.BL, armasm.BLX:
		out.Class = ClassCall
	case armasm.B, armasm.BX:
		out.Class = ClassTailJump
	case armasm.SUB:
		if usesStackPointerARM(inst) {
			out.Class = ClassStackAlloc
		}
	}

	if out.Class == ClassCall || out.Class == ClassTailJump {
		if target, ok := extractTargetARM(inst, addr); ok {
			out.Target = target
			out.HasTarget = true
		} else if target, ok := extractTargetFromText(operand); ok {
			out.Target = target
			out.HasTarget = true
		}
	}

	return out, nil
}

func extractTargetARM(inst armasm.Inst, sourceAddr uint64) (uint64, bool) {
	if len(inst.Args) == 0 {
		return 0, false
	}
	if pcrel, ok := inst.Args[0].(armasm.PCRel); ok {
		// ARM's PC reads as current instruction + 8 due to the
		// classic three-stage pipeline convention baked into the
		// encoding; armasm's PCRel already encodes the offset from
		// that point.
		return sourceAddr + 8 + uint64(int32(pcrel)), true
	}
	return 0, false
}

func usesStackPointerARM(inst armasm.Inst) bool {
	return strings.Contains(strings.ToLower(inst.String()), "sp")
}

var errShortBuffer = shortBufferError{}

type shortBufferError struct{}

func (shortBufferError) Error() string { return "instruction buffer shorter than fixed instruction width" }
