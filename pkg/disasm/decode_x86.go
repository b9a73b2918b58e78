package disasm

import (
	"strings"

	"golang.org/x/arch/x86/x86asm"

	"github.com/Manu343726/elfscope/pkg/image"
)

// x86Decoder wraps golang.org/x/arch/x86/x86asm for both 32 and
// 64-bit mode, matching the call/tail-jump mnemonic table of
// spec.md §4.2 ({call, callq} / {jmp, jmpq}) and the target-extraction
// logic of other_examples/maxgio92-prologo's extractTargetAMD64.
type x86Decoder struct {
	mode int
}

func newX86Decoder(arch image.Architecture) *x86Decoder {
	if arch == image.ArchX86_64 {
		return &x86Decoder{mode: 64}
	}
	return &x86Decoder{mode: 32}
}

// ENDBR64/ENDBR32 (CET landing pads) are not recognized by x86asm;
// skip them transparently, as other_examples/maxgio92-resurgo does.
func isEndbr(code []byte) bool {
	return len(code) >= 4 &&
		code[0] == 0xf3 && code[1] == 0x0f && code[2] == 0x1e &&
		(code[3] == 0xfa || code[3] == 0xfb)
}

func (d *x86Decoder) Decode(code []byte, addr uint64) (Instruction, error) {
	if isEndbr(code) {
		return Instruction{Address: addr, Mnemonic: "endbr", Size: 4, Class: ClassOther}, nil
	}

	inst, err := x86asm.Decode(code, d.mode)
	if err != nil {
		return Instruction{}, err
	}

	full := inst.String()
	mnemonic, operand := splitMnemonic(full)

	out := Instruction{
		Address:     addr,
		Mnemonic:    mnemonic,
		OperandText: operand,
		Size:        inst.Len,
	}

	switch inst.Op {
	case x86asm.CALL:
		out.Class = ClassCall
	case x86asm.JMP:
		out.Class = ClassTailJump
	case x86asm.SUB, x86asm.LEA:
		if isStackAdjust(inst, d.mode) {
			out.Class = ClassStackAlloc
		}
	}

	if out.Class == ClassCall || out.Class == ClassTailJump {
		if target, ok := extractTargetAMD64(inst, addr); ok {
			out.Target = target
			out.HasTarget = true
		} else if target, ok := extractTargetFromText(operand); ok {
			out.Target = target
			out.HasTarget = true
		}
	}

	return out, nil
}

// extractTargetAMD64 mirrors extractTargetAMD64 in
// other_examples/maxgio92-prologo/callsite.go: Rel is PC-relative,
// RIP-relative Mem resolves through the next instruction's address,
// a Mem with neither base nor index is absolute, anything
// register-based is unresolvable here.
func extractTargetAMD64(inst x86asm.Inst, sourceAddr uint64) (uint64, bool) {
	if len(inst.Args) == 0 || inst.Args[0] == nil {
		return 0, false
	}

	switch arg := inst.Args[0].(type) {
	case x86asm.Rel:
		return sourceAddr + uint64(inst.Len) + uint64(int64(arg)), true
	case x86asm.Mem:
		if arg.Base == x86asm.RIP && arg.Index == 0 {
			return sourceAddr + uint64(inst.Len) + uint64(arg.Disp), true
		}
		if arg.Base == 0 && arg.Index == 0 {
			return uint64(arg.Disp), true
		}
		return 0, false
	default:
		return 0, false
	}
}

// isStackAdjust reports whether a SUB/LEA targets the stack pointer,
// the structured-decode counterpart to the regex patterns of
// spec.md §4.5's architecture stack-pattern table.
func isStackAdjust(inst x86asm.Inst, mode int) bool {
	sp := x86asm.RSP
	if mode == 32 {
		sp = x86asm.ESP
	}
	for _, arg := range inst.Args {
		if reg, ok := arg.(x86asm.Reg); ok && reg == sp {
			return true
		}
		if mem, ok := arg.(x86asm.Mem); ok && mem.Base == sp {
			return true
		}
	}
	return false
}

func splitMnemonic(full string) (mnemonic, operand string) {
	full = strings.TrimSpace(full)
	idx := strings.IndexByte(full, ' ')
	if idx < 0 {
		return strings.ToLower(full), ""
	}
	return strings.ToLower(full[:idx]), strings.TrimSpace(full[idx+1:])
}
