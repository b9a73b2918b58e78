package report_test

import (
	"debug/elf"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Manu343726/elfscope/internal/elftest"
	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/Manu343726/elfscope/pkg/report"
	"github.com/Manu343726/elfscope/pkg/stackanalyzer"
)

func TestBuildAndRoundTrip(t *testing.T) {
	const base = uint64(0x1000)
	text := make([]byte, 0x20)
	copy(text, []byte{0x48, 0x83, 0xEC, 0x08}) // sub rsp, 0x08
	for i := 4; i < len(text); i++ {
		text[i] = 0x90
	}

	path := elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: base,
		Text:     text,
		Funcs: []elftest.FuncSpec{
			{Name: "main", Offset: 0x00, Size: 0x20},
		},
		Entry: base,
	})

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	g, err := callgraph.Build(img, nil)
	require.NoError(t, err)

	sa, err := stackanalyzer.New(img, g, stackanalyzer.Config{}, nil)
	require.NoError(t, err)

	r, err := report.Build(path, img, g, sa, "test")
	require.NoError(t, err)
	assert.Equal(t, "elfscope", r.Metadata.ToolName)
	assert.Equal(t, "test", r.Metadata.Version)
	assert.Equal(t, path, r.Metadata.ElfFile)
	assert.NotEmpty(t, r.Metadata.ExportTime)
	assert.Contains(t, r.Functions, "main")
	assert.Equal(t, "function", r.Functions["main"].SymbolType)
	assert.True(t, r.FileInfo.EntryFunctionOK)

	data, err := report.Marshal(r)
	require.NoError(t, err)

	// The external contract is the literal key names, not just Go field
	// names — round-tripping alone wouldn't catch a renamed JSON tag.
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	metadata, ok := raw["metadata"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"tool_name", "version", "export_time", "elf_file", "architecture"} {
		assert.Contains(t, metadata, key)
	}
	functions, ok := raw["functions"].(map[string]any)
	require.True(t, ok)
	mainFunc, ok := functions["main"].(map[string]any)
	require.True(t, ok)
	for _, key := range []string{"name", "address", "size", "symbol_type", "visibility", "external"} {
		assert.Contains(t, mainFunc, key)
	}

	parsed, err := report.Parse(data)
	require.NoError(t, err)
	assert.Equal(t, r.Metadata, parsed.Metadata)
	assert.Equal(t, r.Functions, parsed.Functions)
	assert.Equal(t, r.StackSummary, parsed.StackSummary)
}
