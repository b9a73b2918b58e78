package disasm

import (
	"encoding/binary"
	"strings"

	"golang.org/x/arch/ppc64/ppc64asm"

	"github.com/Manu343726/elfscope/pkg/image"
)

// ppcDecoder wraps golang.org/x/arch/ppc64/ppc64asm for both ppc and
// ppc64 (the decoder itself is instruction-set-identical across the
// two; ppc64-specific extensions are simply never emitted by 32-bit
// toolchains). Call/tail-jump mnemonics per spec.md §4.2: {bl, bla} /
// {b, ba}.
type ppcDecoder struct {
	order binary.ByteOrder
}

func newPPCDecoder(arch image.Architecture) *ppcDecoder {
	// PowerPC code is traditionally big-endian; ppc64le toolchains are
	// the exception. Without a data-encoding hint threaded through
	// this constructor, big-endian is the conservative default for
	// both ppc and ppc64 tags.
	return &ppcDecoder{order: binary.BigEndian}
}

func (d *ppcDecoder) Decode(code []byte, addr uint64) (Instruction, error) {
	const insnLen = 4
	if len(code) < insnLen {
		return Instruction{}, errShortBuffer
	}

	inst, err := ppc64asm.Decode(code[:insnLen], d.order)
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

	switch {
	case mnemonic == "bl" || mnemonic == "bla":
		out.Class = ClassCall
	case mnemonic == "b" || mnemonic == "ba":
		out.Class = ClassTailJump
	case strings.HasPrefix(mnemonic, "addi") && strings.Contains(operand, "r1"):
		out.Class = ClassStackAlloc
	}

	if out.Class == ClassCall || out.Class == ClassTailJump {
		if target, ok := extractTargetFromText(operand); ok {
			out.Target = target
			out.HasTarget = true
		}
	}

	return out, nil
}
