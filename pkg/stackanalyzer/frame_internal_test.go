package stackanalyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Manu343726/elfscope/pkg/disasm"
	"github.com/Manu343726/elfscope/pkg/image"
)

func TestDetectLoopAllocation_ExactByteMath(t *testing.T) {
	a := &Analyzer{archInfo: lookupArchStackInfo(image.ArchX86_64)}

	const base = uint64(0x1000)
	insts := []disasm.Instruction{
		{Address: base, Mnemonic: "lea", OperandText: "rax, [rsp - 0x1000]", Class: disasm.ClassStackAlloc, Size: 8},
		{Address: base + 8, Mnemonic: "sub", OperandText: "rsp, 0x10", Class: disasm.ClassStackAlloc, Size: 4},
		{Address: base + 12, Mnemonic: "jne", OperandText: "0x1008", Class: disasm.ClassOther, Size: 2, Target: base + 8, HasTarget: true},
		{Address: base + 14, Mnemonic: "sub", OperandText: "rsp, 0x8", Class: disasm.ClassStackAlloc, Size: 4},
	}

	got := a.detectLoopAllocation(insts)
	assert.Equal(t, uint64(0x1010), got)
}

func TestDetectLoopAllocation_NoLoopShapeReturnsZero(t *testing.T) {
	a := &Analyzer{archInfo: lookupArchStackInfo(image.ArchX86_64)}

	insts := []disasm.Instruction{
		{Mnemonic: "sub", OperandText: "rsp, 0x18", Class: disasm.ClassStackAlloc},
	}

	assert.Zero(t, a.detectLoopAllocation(insts))
}

func TestScanPrologue_DecrementPlusPushes(t *testing.T) {
	a := &Analyzer{archInfo: lookupArchStackInfo(image.ArchX86_64)}

	insts := []disasm.Instruction{
		{Mnemonic: "push", OperandText: "rbp"},
		{Mnemonic: "push", OperandText: "rbx"},
		{Mnemonic: "sub", OperandText: "rsp, 0x18", Class: disasm.ClassStackAlloc},
	}

	// 0x18 (24) + 2 pushes * 8 bytes = 40, rounded up to the next
	// multiple of 16 is 48.
	assert.Equal(t, uint64(48), a.scanPrologue(insts))
}

func TestExtractImmediate_PrefersHexOverDecimal(t *testing.T) {
	v, ok := extractImmediate("rsp, 0x20")
	assert.True(t, ok)
	assert.Equal(t, uint64(0x20), v)
}

func TestAlignUp(t *testing.T) {
	assert.Equal(t, uint64(16), alignUp(16, 16))
	assert.Equal(t, uint64(32), alignUp(17, 16))
	assert.Equal(t, uint64(0), alignUp(0, 16))
}
