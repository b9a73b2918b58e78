package disasm

import "encoding/binary"

// riscvDecoder is a minimal internal decoder for RISC-V: no decoder
// for it exists in golang.org/x/arch or anywhere else in the
// retrieved corpus. It recognizes only the base-ISA JAL/JALR forms
// spec.md §4.2 needs for call/tail-jump classification.
type riscvDecoder struct{}

func newRISCVDecoder() *riscvDecoder { return &riscvDecoder{} }

func (d *riscvDecoder) Decode(code []byte, addr uint64) (Instruction, error) {
	const insnLen = 4
	if len(code) < insnLen {
		return Instruction{}, errShortBuffer
	}

	word := binary.LittleEndian.Uint32(code[:insnLen])
	opcode := word & 0x7f
	rd := (word >> 7) & 0x1f

	out := Instruction{Address: addr, Size: insnLen}

	switch opcode {
	case 0x6f: // JAL
		out.Mnemonic = "jal"
		out.Class = classifyRiscvLink(rd)
		out.Target = addr + uint64(int64(jalImm(word)))
		out.HasTarget = true
	case 0x67: // JALR
		out.Mnemonic = "jalr"
		out.Class = classifyRiscvLink(rd)
		// Target depends on a register value at runtime; unresolvable
		// statically, matching spec.md §4.2's "register-indirect
		// calls yield edges with no target."
	default:
		out.Mnemonic = "other"
	}

	return out, nil
}

// classifyRiscvLink distinguishes a call (writes a return address,
// rd != x0) from a plain unconditional jump (rd == x0, the canonical
// RISC-V encoding of an unconditional jump via JAL x0, the tail-jump
// idiom this package classifies as ClassTailJump).
func classifyRiscvLink(rd uint32) Class {
	if rd == 0 {
		return ClassTailJump
	}
	return ClassCall
}

// jalImm decodes the scattered 20-bit signed, 2-byte-aligned
// immediate of the J-type (JAL) encoding.
func jalImm(word uint32) int32 {
	imm20 := (word >> 31) & 0x1
	imm10_1 := (word >> 21) & 0x3ff
	imm11 := (word >> 20) & 0x1
	imm19_12 := (word >> 12) & 0xff

	raw := (imm20 << 20) | (imm19_12 << 12) | (imm11 << 11) | (imm10_1 << 1)

	// sign-extend from bit 20
	if imm20 == 1 {
		raw |= 0xffe00000
	}
	return int32(raw)
}
