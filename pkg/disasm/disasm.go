// Package disasm streams instructions out of a byte range at a given
// base address, classifying each as a call, a tail jump, a
// stack-allocation decrement, or plain code, and extracting call/jump
// targets where the encoding allows it.
//
// Real structured decoders from golang.org/x/arch back every
// architecture the ecosystem actually covers (x86/x86_64 via x86asm,
// arm via armasm, aarch64 via arm64asm, ppc/ppc64 via ppc64asm) — the
// same libraries other_examples/maxgio92-prologo and
// other_examples/maxgio92-resurgo use to classify AMD64/ARM64 call
// sites. MIPS and RISC-V have no decoder anywhere in the retrieved
// corpus, so they get a small internal decoder recognizing only the
// call/tail-jump forms this package needs.
package disasm

import (
	"github.com/Manu343726/elfscope/pkg/elferr"
	"github.com/Manu343726/elfscope/pkg/image"
)

// Class categorizes a decoded instruction.
type Class int

const (
	ClassOther Class = iota
	ClassCall
	ClassTailJump
	ClassStackAlloc
)

// Instruction is one decoded instruction.
type Instruction struct {
	Address     uint64
	Mnemonic    string
	OperandText string
	Size        int
	Class       Class
	Target      uint64
	HasTarget   bool
}

// decoder is the architecture-specific unit every Disassembler wraps.
// Decode consumes a prefix of code and returns one instruction plus
// its byte length; it must report an error rather than panic on
// malformed input so the caller can isolate the failure per function.
type decoder interface {
	Decode(code []byte, addr uint64) (Instruction, error)
}

// Disassembler decodes a single architecture's instruction stream.
type Disassembler struct {
	arch image.Architecture
	dec  decoder
}

// New constructs a Disassembler for arch. Unsupported architectures
// fail here with KindUnsupportedArchitecture, per spec.
func New(arch image.Architecture) (*Disassembler, error) {
	dec, err := newDecoder(arch)
	if err != nil {
		return nil, err
	}
	return &Disassembler{arch: arch, dec: dec}, nil
}

func newDecoder(arch image.Architecture) (decoder, error) {
	switch arch {
	case image.ArchX86, image.ArchX86_64:
		return newX86Decoder(arch), nil
	case image.ArchARM:
		return newARMDecoder(), nil
	case image.ArchAArch64:
		return newARM64Decoder(), nil
	case image.ArchPPC, image.ArchPPC64:
		return newPPCDecoder(arch), nil
	case image.ArchMIPS:
		return newMIPSDecoder(), nil
	case image.ArchRISCV:
		return newRISCVDecoder(), nil
	default:
		return nil, elferr.Make(elferr.KindUnsupportedArchitecture, nil, "architecture %q has no disassembler", arch)
	}
}

// Architecture returns the tag this Disassembler was built for.
func (d *Disassembler) Architecture() image.Architecture { return d.arch }

// Stream decodes code starting at baseAddr, instruction by
// instruction, until code is exhausted or a decode error is hit. On
// error it returns the instructions decoded so far and the error —
// per spec.md §4.2, a decode failure halts the stream for this
// function but does not poison anything else; callers log it and move
// on.
func (d *Disassembler) Stream(code []byte, baseAddr uint64) ([]Instruction, error) {
	var out []Instruction
	offset := 0
	addr := baseAddr

	for offset < len(code) {
		inst, err := d.dec.Decode(code[offset:], addr)
		if err != nil {
			return out, elferr.Make(elferr.KindDecode, err, "decode failed at 0x%x", addr)
		}
		if inst.Size <= 0 {
			return out, elferr.Make(elferr.KindDecode, nil, "decoder returned zero-length instruction at 0x%x", addr)
		}

		out = append(out, inst)
		offset += inst.Size
		addr += uint64(inst.Size)
	}

	return out, nil
}

// FunctionBody computes the byte slice covering fn within section
// (whose bytes start at sectionBase), rejecting offsets outside the
// section per spec.md §4.2.
func FunctionBody(fn image.Function, sectionBytes []byte, sectionBase uint64) ([]byte, error) {
	if fn.Address < sectionBase {
		return nil, elferr.Make(elferr.KindFormat, nil, "function %q address 0x%x precedes section base 0x%x", fn.Name, fn.Address, sectionBase)
	}
	offset := fn.Address - sectionBase
	if offset >= uint64(len(sectionBytes)) {
		return nil, elferr.Make(elferr.KindFormat, nil, "function %q offset 0x%x outside section of length %d", fn.Name, offset, len(sectionBytes))
	}

	remaining := uint64(len(sectionBytes)) - offset
	length := fn.Size
	if length > remaining {
		length = remaining
	}

	return sectionBytes[offset : offset+length], nil
}
