package disasm_test

import (
	"testing"

	"github.com/Manu343726/elfscope/pkg/disasm"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RejectsUnknownArchitecture(t *testing.T) {
	_, err := disasm.New(image.ArchUnknown)
	require.Error(t, err)
}

func TestX86_64_CallRel32(t *testing.T) {
	d, err := disasm.New(image.ArchX86_64)
	require.NoError(t, err)

	// E8 rel32: call +5 (relative to the next instruction)
	code := []byte{0xE8, 0x05, 0x00, 0x00, 0x00}
	insts, err := d.Stream(code, 0x1000)
	require.NoError(t, err)
	require.Len(t, insts, 1)

	inst := insts[0]
	assert.Equal(t, disasm.ClassCall, inst.Class)
	assert.True(t, inst.HasTarget)
	assert.Equal(t, uint64(0x100A), inst.Target)
}

func TestX86_64_JmpRel32IsTailJump(t *testing.T) {
	d, err := disasm.New(image.ArchX86_64)
	require.NoError(t, err)

	// E9 rel32: jmp +0
	code := []byte{0xE9, 0x00, 0x00, 0x00, 0x00}
	insts, err := d.Stream(code, 0x2000)
	require.NoError(t, err)
	require.Len(t, insts, 1)

	assert.Equal(t, disasm.ClassTailJump, insts[0].Class)
	assert.Equal(t, uint64(0x2005), insts[0].Target)
}

func TestFunctionBody_RejectsOutOfRangeOffset(t *testing.T) {
	fn := image.Function{Name: "f", Address: 0x5000, Size: 0x10}
	_, err := disasm.FunctionBody(fn, make([]byte, 0x10), 0x1000)
	require.Error(t, err)
}

func TestFunctionBody_ClampsToSectionLength(t *testing.T) {
	fn := image.Function{Name: "f", Address: 0x1000, Size: 0x100}
	body, err := disasm.FunctionBody(fn, make([]byte, 0x20), 0x1000)
	require.NoError(t, err)
	assert.Len(t, body, 0x20)
}

func TestMIPS_JalEncodesTarget(t *testing.T) {
	d, err := disasm.New(image.ArchMIPS)
	require.NoError(t, err)

	// JAL: opcode 0x03 in bits 31-26, target index in low 26 bits.
	// index = 0x40 -> target = (delaySlot & 0xf0000000) | (0x40<<2)
	word := uint32(0x03<<26) | 0x40
	code := []byte{byte(word >> 24), byte(word >> 16), byte(word >> 8), byte(word)}

	insts, err := d.Stream(code, 0x1000)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, disasm.ClassCall, insts[0].Class)
	assert.True(t, insts[0].HasTarget)
	assert.Equal(t, uint64(0x100), insts[0].Target)
}

func TestRISCV_JalrWithLinkRegisterIsCallWithoutTarget(t *testing.T) {
	d, err := disasm.New(image.ArchRISCV)
	require.NoError(t, err)

	// JALR x1, 0(x5): opcode 0x67, rd=1 (ra)
	word := uint32(0x67) | (1 << 7) | (5 << 15)
	code := []byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)}

	insts, err := d.Stream(code, 0x1000)
	require.NoError(t, err)
	require.Len(t, insts, 1)
	assert.Equal(t, disasm.ClassCall, insts[0].Class)
	assert.False(t, insts[0].HasTarget)
}
