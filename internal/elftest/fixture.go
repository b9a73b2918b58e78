// Package elftest builds minimal, hand-assembled ELF64 little-endian
// files for use as test fixtures across elfscope's packages. It
// generalizes the teacher's inline createTestELFFile helper
// (llvm/binaryfileparser_test.go) into a shared builder, since several
// packages here (image, callgraph, stackanalyzer) all need a function
// with known code bytes at a known address rather than just one.
package elftest

import (
	"debug/elf"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// FuncSpec describes one STT_FUNC symbol to embed in the fixture.
type FuncSpec struct {
	Name   string
	Offset uint64 // offset from TextAddr
	Size   uint64
}

// Spec describes the fixture to build.
type Spec struct {
	Machine  elf.Machine
	TextAddr uint64
	Text     []byte
	Funcs    []FuncSpec
	Entry    uint64
}

const (
	ehdrSize = 64
	shdrSize = 64
	symSize  = 24
)

// Build writes a minimal ELF64 file satisfying Spec to a temp file and
// returns its path.
func Build(t *testing.T, spec Spec) string {
	t.Helper()

	var shstrtab strTable
	shstrtab.add("") // index 0 is always empty

	textName := shstrtab.add(".text")
	symtabName := shstrtab.add(".symtab")
	strtabName := shstrtab.add(".strtab")
	shstrtabName := shstrtab.add(".shstrtab")

	var strtab strTable
	strtab.add("") // symbol 0 has no name

	syms := make([]byte, symSize) // null symbol
	for _, f := range spec.Funcs {
		nameOff := strtab.add(f.Name)
		sym := make([]byte, symSize)
		binary.LittleEndian.PutUint32(sym[0:], nameOff)
		sym[4] = byte(elf.STB_GLOBAL)<<4 | byte(elf.STT_FUNC)
		sym[5] = byte(elf.STV_DEFAULT)
		binary.LittleEndian.PutUint16(sym[6:], 1) // section index 1 = .text
		binary.LittleEndian.PutUint64(sym[8:], spec.TextAddr+f.Offset)
		binary.LittleEndian.PutUint64(sym[16:], f.Size)
		syms = append(syms, sym...)
	}

	// Layout: ehdr | .text | .symtab | .strtab | .shstrtab | shdrs
	textOff := uint64(ehdrSize)
	symtabOff := textOff + uint64(len(spec.Text))
	strtabOff := symtabOff + uint64(len(syms))
	shstrtabOff := strtabOff + uint64(len(strtab.buf))
	shoff := shstrtabOff + uint64(len(shstrtab.buf))

	buf := make([]byte, shoff+5*shdrSize)

	// e_ident
	copy(buf[0:4], []byte{0x7f, 'E', 'L', 'F'})
	buf[4] = byte(elf.ELFCLASS64)
	buf[5] = byte(elf.ELFDATA2LSB)
	buf[6] = 1 // EV_CURRENT
	le := binary.LittleEndian
	le.PutUint16(buf[16:], uint16(elf.ET_EXEC))
	le.PutUint16(buf[18:], uint16(spec.Machine))
	le.PutUint32(buf[20:], 1)
	le.PutUint64(buf[24:], spec.Entry)
	le.PutUint64(buf[32:], 0) // phoff
	le.PutUint64(buf[40:], shoff)
	le.PutUint32(buf[48:], 0)
	le.PutUint16(buf[52:], ehdrSize)
	le.PutUint16(buf[54:], 0)
	le.PutUint16(buf[56:], 0)
	le.PutUint16(buf[58:], shdrSize)
	le.PutUint16(buf[60:], 5) // shnum
	le.PutUint16(buf[62:], 4) // shstrndx

	copy(buf[textOff:], spec.Text)
	copy(buf[symtabOff:], syms)
	copy(buf[strtabOff:], strtab.buf)
	copy(buf[shstrtabOff:], shstrtab.buf)

	shdr := func(i int, name, typ uint32, flags, addr, offset, size, link, info, align, entsize uint64) {
		base := int(shoff) + i*shdrSize
		le.PutUint32(buf[base:], name)
		le.PutUint32(buf[base+4:], typ)
		le.PutUint64(buf[base+8:], flags)
		le.PutUint64(buf[base+16:], addr)
		le.PutUint64(buf[base+24:], offset)
		le.PutUint64(buf[base+32:], size)
		le.PutUint32(buf[base+40:], uint32(link))
		le.PutUint32(buf[base+44:], uint32(info))
		le.PutUint64(buf[base+48:], align)
		le.PutUint64(buf[base+56:], entsize)
	}

	shdr(0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0)
	shdr(1, textName, uint32(elf.SHT_PROGBITS), uint64(elf.SHF_ALLOC|elf.SHF_EXECINSTR), spec.TextAddr, textOff, uint64(len(spec.Text)), 0, 0, 16, 0)
	shdr(2, symtabName, uint32(elf.SHT_SYMTAB), 0, 0, symtabOff, uint64(len(syms)), 3, 1, 8, symSize)
	shdr(3, strtabName, uint32(elf.SHT_STRTAB), 0, 0, strtabOff, uint64(len(strtab.buf)), 0, 0, 1, 0)
	shdr(4, shstrtabName, uint32(elf.SHT_STRTAB), 0, 0, shstrtabOff, uint64(len(shstrtab.buf)), 0, 0, 1, 0)

	dir := t.TempDir()
	path := filepath.Join(dir, "fixture.elf")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

type strTable struct {
	buf []byte
}

func (s *strTable) add(str string) uint32 {
	off := uint32(len(s.buf))
	s.buf = append(s.buf, []byte(str)...)
	s.buf = append(s.buf, 0)
	return off
}
