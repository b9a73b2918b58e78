package callgraph_test

import (
	"debug/elf"
	"testing"

	"github.com/Manu343726/elfscope/internal/elftest"
	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// callRel32 builds a CALL rel32 instruction transferring control from
// an instruction at fromAddr to toAddr.
func callRel32(fromAddr, toAddr uint64) []byte {
	rel := int32(int64(toAddr) - int64(fromAddr+5))
	return []byte{0xE8, byte(rel), byte(rel >> 8), byte(rel >> 16), byte(rel >> 24)}
}

func padTo(code []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, code)
	for i := len(code); i < n; i++ {
		out[i] = 0x90 // nop
	}
	return out
}

func TestBuild_TwoHopChain(t *testing.T) {
	const base = uint64(0x1000)
	text := append(append(
		padTo(callRel32(base, base+0x10), 0x10),
		padTo(callRel32(base+0x10, base+0x20), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs: []elftest.FuncSpec{
			{Name: "main", Offset: 0x00, Size: 0x10},
			{Name: "helper", Offset: 0x10, Size: 0x10},
			{Name: "util", Offset: 0x20, Size: 0x10},
		},
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"helper"}, g.Callees("main"))
	assert.ElementsMatch(t, []string{"util"}, g.Callees("helper"))
	assert.Empty(t, g.Callees("util"))
	assert.False(t, g.IsRecursive("main"))
}

func TestBuild_DirectRecursion(t *testing.T) {
	const base = uint64(0x2000)
	text := padTo(callRel32(base, base), 0x10)

	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs: []elftest.FuncSpec{
			{Name: "fact", Offset: 0x00, Size: 0x10},
		},
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)

	assert.True(t, g.IsRecursive("fact"))
}

func TestBuild_ExternalCall(t *testing.T) {
	const base = uint64(0x3000)
	text := padTo(callRel32(base, 0xdeadbeef), 0x10)

	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs: []elftest.FuncSpec{
			{Name: "main", Offset: 0x00, Size: 0x10},
		},
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)

	callees := g.Callees("main")
	require.Len(t, callees, 1)
	node, ok := g.Node(callees[0])
	require.True(t, ok)
	assert.True(t, node.External)
}

func TestBuild_Diamond(t *testing.T) {
	const base = uint64(0x4000)
	// main calls a and b; a and b both call leaf.
	text := append(append(append(
		padTo(append(callRel32(base, base+0x10), callRel32(base+0x05, base+0x20)...), 0x10),
		padTo(callRel32(base+0x10, base+0x30), 0x10)...),
		padTo(callRel32(base+0x20, base+0x30), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs: []elftest.FuncSpec{
			{Name: "main", Offset: 0x00, Size: 0x10},
			{Name: "a", Offset: 0x10, Size: 0x10},
			{Name: "b", Offset: 0x20, Size: 0x10},
			{Name: "leaf", Offset: 0x30, Size: 0x10},
		},
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a", "b"}, g.Callees("main"))
	assert.ElementsMatch(t, []string{"leaf"}, g.Callees("a"))
	assert.ElementsMatch(t, []string{"leaf"}, g.Callees("b"))
}
