package stackanalyzer

import (
	_ "embed"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Manu343726/elfscope/pkg/elferr"
)

//go:embed externalcosts.yaml
var defaultExternalCostsYAML []byte

// externalCostTable is the parsed form of externalcosts.yaml: a
// default cost for any unrecognized external symbol, plus per-symbol
// overrides, loaded with gopkg.in/yaml.v3 the same way the teacher's
// mc/instructions tables are loaded from YAML fixtures.
type externalCostTable struct {
	Default   uint64            `yaml:"default"`
	Functions map[string]uint64 `yaml:"functions"`
}

func loadDefaultExternalCosts() (externalCostTable, error) {
	return parseExternalCosts(defaultExternalCostsYAML)
}

// loadExternalCosts reads an override file (internal/config's
// stack.external_costs_file knob) on top of the embedded defaults: any
// symbol the override table doesn't mention keeps its built-in cost.
func loadExternalCosts(overridePath string) (externalCostTable, error) {
	table, err := loadDefaultExternalCosts()
	if err != nil {
		return externalCostTable{}, err
	}
	if overridePath == "" {
		return table, nil
	}

	raw, err := os.ReadFile(overridePath)
	if err != nil {
		return externalCostTable{}, elferr.Make(elferr.KindInput, err, "reading external cost override %q", overridePath)
	}

	override, err := parseExternalCosts(raw)
	if err != nil {
		return externalCostTable{}, err
	}

	if override.Default != 0 {
		table.Default = override.Default
	}
	for name, cost := range override.Functions {
		table.Functions[name] = cost
	}
	return table, nil
}

func parseExternalCosts(raw []byte) (externalCostTable, error) {
	var table externalCostTable
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return externalCostTable{}, elferr.Make(elferr.KindFormat, err, "parsing external cost table")
	}
	if table.Functions == nil {
		table.Functions = map[string]uint64{}
	}
	return table, nil
}

// cost returns the configured stack cost for an external symbol name
// (an "external:0x<addr>" placeholder node carries no name to match,
// so it always falls back to the table default).
func (t externalCostTable) cost(name string) uint64 {
	if c, ok := t.Functions[name]; ok {
		return c
	}
	return t.Default
}
