package disasm

import "encoding/binary"

// mipsDecoder is a minimal internal decoder for MIPS: golang.org/x/arch
// ships no MIPS decoder, and none exists anywhere else in the
// retrieved corpus. This decoder classifies only what spec.md §4.2
// needs — {jal, jalr} as calls, {j, jr} as tail jumps — via direct
// bit-field extraction; it does not attempt a general-purpose
// disassembly of MIPS code.
type mipsDecoder struct{}

func newMIPSDecoder() *mipsDecoder { return &mipsDecoder{} }

func (d *mipsDecoder) Decode(code []byte, addr uint64) (Instruction, error) {
	const insnLen = 4
	if len(code) < insnLen {
		return Instruction{}, errShortBuffer
	}

	word := binary.BigEndian.Uint32(code[:insnLen])
	opcode := word >> 26
	funct := word & 0x3f

	out := Instruction{Address: addr, Size: insnLen}

	switch opcode {
	case 0x02: // J
		out.Mnemonic = "j"
		out.Class = ClassTailJump
		out.Target, out.HasTarget = mipsJumpTarget(addr, word)
	case 0x03: // JAL
		out.Mnemonic = "jal"
		out.Class = ClassCall
		out.Target, out.HasTarget = mipsJumpTarget(addr, word)
	case 0x00:
		switch funct {
		case 0x08: // JR
			out.Mnemonic = "jr"
			out.Class = ClassTailJump
		case 0x09: // JALR
			out.Mnemonic = "jalr"
			out.Class = ClassCall
		default:
			out.Mnemonic = "other"
		}
	default:
		out.Mnemonic = "other"
	}

	return out, nil
}

func mipsJumpTarget(addr uint64, word uint32) (uint64, bool) {
	index := word & 0x03ffffff
	// The MIPS J-format target replaces the low 28 bits of the
	// delay-slot instruction's address with index<<2.
	delaySlot := addr + 4
	return (delaySlot & 0xfffffffff0000000) | (uint64(index) << 2), true
}
