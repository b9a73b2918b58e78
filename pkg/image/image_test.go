package image_test

import (
	"debug/elf"
	"testing"

	"github.com/Manu343726/elfscope/internal/elftest"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFixture(t *testing.T) string {
	t.Helper()
	return elftest.Build(t, elftest.Spec{
		Machine:  elf.EM_X86_64,
		TextAddr: 0x1000,
		Text:     make([]byte, 0x40),
		Entry:    0x1000,
		Funcs: []elftest.FuncSpec{
			{Name: "main", Offset: 0x00, Size: 0x10},
			{Name: "helper", Offset: 0x10, Size: 0x10},
			{Name: "unsized", Offset: 0x20, Size: 0},
		},
	})
}

func TestOpen_ParsesArchitectureAndFunctions(t *testing.T) {
	path := buildFixture(t)

	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	assert.Equal(t, image.ArchX86_64, img.Architecture())
	assert.Equal(t, uint64(0x1000), img.EntryPoint())

	funcs := img.Functions()
	require.Len(t, funcs, 2, "size==0 symbols must be excluded")

	names := map[string]bool{}
	for _, f := range funcs {
		names[f.Name] = true
	}
	assert.True(t, names["main"])
	assert.True(t, names["helper"])
	assert.False(t, names["unsized"])
}

func TestFunctionByAddress_ContainingRangeAndMiss(t *testing.T) {
	path := buildFixture(t)
	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	f, ok := img.FunctionByAddress(0x1005)
	require.True(t, ok)
	assert.Equal(t, "main", f.Name)

	_, ok = img.FunctionByAddress(0xffff)
	assert.False(t, ok)
}

func TestFunctionByName(t *testing.T) {
	path := buildFixture(t)
	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	f, ok := img.FunctionByName("helper")
	require.True(t, ok)
	assert.Equal(t, uint64(0x1010), f.Address)

	_, ok = img.FunctionByName("does-not-exist")
	assert.False(t, ok)
}

func TestTextSections(t *testing.T) {
	path := buildFixture(t)
	img, err := image.Open(path)
	require.NoError(t, err)
	defer img.Close()

	sections := img.TextSections()
	require.Len(t, sections, 1)
	assert.Equal(t, ".text", sections[0].Name)
	assert.True(t, sections[0].IsText())
}

func TestOpen_RejectsMissingFile(t *testing.T) {
	_, err := image.Open("/nonexistent/path/to/binary")
	require.Error(t, err)
}

func TestOpen_DeterministicAcrossInvocations(t *testing.T) {
	path := buildFixture(t)

	img1, err := image.Open(path)
	require.NoError(t, err)
	defer img1.Close()

	img2, err := image.Open(path)
	require.NoError(t, err)
	defer img2.Close()

	assert.Equal(t, img1.FileInfo(), img2.FileInfo())
	assert.Equal(t, img1.Functions(), img2.Functions())
}
