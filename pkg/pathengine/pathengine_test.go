package pathengine_test

import (
	"debug/elf"
	"testing"

	"github.com/Manu343726/elfscope/internal/elftest"
	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/Manu343726/elfscope/pkg/pathengine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func callRel32(fromAddr, toAddr uint64) []byte {
	rel := int32(int64(toAddr) - int64(fromAddr+5))
	return []byte{0xE8, byte(rel), byte(rel >> 8), byte(rel >> 16), byte(rel >> 24)}
}

func padTo(code []byte, n int) []byte {
	out := make([]byte, n)
	copy(out, code)
	for i := len(code); i < n; i++ {
		out[i] = 0x90
	}
	return out
}

func buildGraph(t *testing.T, base uint64, text []byte, funcs []elftest.FuncSpec) *callgraph.Graph {
	t.Helper()
	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs:    funcs,
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { img.Close() })

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)
	return g
}

func TestFindPaths_TwoHopChain(t *testing.T) {
	const base = uint64(0x1000)
	text := append(append(
		padTo(callRel32(base, base+0x10), 0x10),
		padTo(callRel32(base+0x10, base+0x20), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	g := buildGraph(t, base, text, []elftest.FuncSpec{
		{Name: "main", Offset: 0x00, Size: 0x10},
		{Name: "helper", Offset: 0x10, Size: 0x10},
		{Name: "util", Offset: 0x20, Size: 0x10},
	})

	e := pathengine.New(g)
	paths := e.FindPaths("util", "main", 5, false)
	require.Len(t, paths, 1)
	assert.Equal(t, []string{"main", "helper", "util"}, paths[0].Nodes)

	shortest, ok := e.FindShortestPath("main", "util")
	require.True(t, ok)
	assert.Equal(t, []string{"main", "helper", "util"}, shortest.Nodes)
}

func TestFindPaths_Diamond(t *testing.T) {
	const base = uint64(0x4000)
	text := append(append(append(
		padTo(append(callRel32(base, base+0x10), callRel32(base+0x05, base+0x20)...), 0x10),
		padTo(callRel32(base+0x10, base+0x30), 0x10)...),
		padTo(callRel32(base+0x20, base+0x30), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	g := buildGraph(t, base, text, []elftest.FuncSpec{
		{Name: "main", Offset: 0x00, Size: 0x10},
		{Name: "a", Offset: 0x10, Size: 0x10},
		{Name: "b", Offset: 0x20, Size: 0x10},
		{Name: "leaf", Offset: 0x30, Size: 0x10},
	})

	e := pathengine.New(g)
	paths := e.FindPaths("leaf", "main", 4, false)
	require.Len(t, paths, 2)

	var found []string
	for _, p := range paths {
		found = append(found, p.Nodes[0]+">"+p.Nodes[1]+">"+p.Nodes[2])
	}
	assert.ElementsMatch(t, []string{"main>a>leaf", "main>b>leaf"}, found)
}

func TestReachability_LeafAndRoot(t *testing.T) {
	const base = uint64(0x1000)
	text := append(append(
		padTo(callRel32(base, base+0x10), 0x10),
		padTo(callRel32(base+0x10, base+0x20), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	g := buildGraph(t, base, text, []elftest.FuncSpec{
		{Name: "main", Offset: 0x00, Size: 0x10},
		{Name: "helper", Offset: 0x10, Size: 0x10},
		{Name: "util", Offset: 0x20, Size: 0x10},
	})

	e := pathengine.New(g)

	mainReach := e.Reachability("main")
	assert.True(t, mainReach.IsRoot)
	assert.False(t, mainReach.IsLeaf)
	assert.ElementsMatch(t, []string{"helper", "util"}, mainReach.CanReach)

	utilReach := e.Reachability("util")
	assert.True(t, utilReach.IsLeaf)
	assert.False(t, utilReach.IsRoot)
	assert.ElementsMatch(t, []string{"main", "helper"}, utilReach.ReachableFrom)
}

func TestFindAllCallers_TwoHopChain(t *testing.T) {
	const base = uint64(0x1000)
	text := append(append(
		padTo(callRel32(base, base+0x10), 0x10),
		padTo(callRel32(base+0x10, base+0x20), 0x10)...),
		padTo([]byte{0xC3}, 0x10)...)

	g := buildGraph(t, base, text, []elftest.FuncSpec{
		{Name: "main", Offset: 0x00, Size: 0x10},
		{Name: "helper", Offset: 0x10, Size: 0x10},
		{Name: "util", Offset: 0x20, Size: 0x10},
	})

	e := pathengine.New(g)
	ancestors := e.FindAllCallers("util", 5)

	byName := map[string]bool{}
	var direct []string
	for _, a := range ancestors {
		byName[a.Function] = true
		if a.Direct {
			direct = append(direct, a.Function)
		}
	}
	assert.True(t, byName["main"])
	assert.True(t, byName["helper"])
	assert.Equal(t, []string{"helper"}, direct)
}
