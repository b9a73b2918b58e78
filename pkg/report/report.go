// Package report assembles elfscope's JSON-serializable output tree
// from the core analysis packages and parses it back, per spec.md §6.
// Field names mirror the original's snake_case report keys since that
// shape is part of the tool's external contract; addresses are
// rendered through pkg/utils.FormatHex the same way the original
// renders them as "0x..." strings rather than raw integers, so the
// report survives round-tripping through JSON without losing the
// hexadecimal convention callers expect.
package report

import (
	"encoding/json"
	"time"

	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/elferr"
	"github.com/Manu343726/elfscope/pkg/image"
	"github.com/Manu343726/elfscope/pkg/stackanalyzer"
	"github.com/Manu343726/elfscope/pkg/utils"
)

// Metadata identifies the analysis run, per spec.md §6's literal
// {tool_name, version, export_time, elf_file, architecture} shape.
type Metadata struct {
	ToolName   string `json:"tool_name"`
	Version    string `json:"version"`
	ExportTime string `json:"export_time"`
	ElfFile    string `json:"elf_file"`
	Architecture string `json:"architecture"`
}

// FileInfo is the JSON projection of image.FileInfo.
type FileInfo struct {
	Architecture    string `json:"architecture"`
	Class           string `json:"class"`
	DataEncoding    string `json:"data_encoding"`
	FileType        string `json:"file_type"`
	EntryPoint      string `json:"entry_point"`
	SectionCount    int    `json:"section_count"`
	SymbolCount     int    `json:"symbol_count"`
	FunctionCount   int    `json:"function_count"`
	TextSections    int    `json:"text_sections"`
	IsStripped      bool   `json:"is_stripped"`
	EntryFunction   string `json:"entry_function,omitempty"`
	EntryFunctionOK bool   `json:"entry_function_resolved"`
}

// FunctionInfo is one entry of the functions map.
type FunctionInfo struct {
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Size        uint64   `json:"size"`
	SymbolType  string   `json:"symbol_type"`
	Visibility  string   `json:"visibility"`
	External    bool     `json:"external"`
	Callers     []string `json:"callers"`
	Callees     []string `json:"callees"`
	InDegree    int      `json:"in_degree"`
	OutDegree   int      `json:"out_degree"`
	IsRecursive bool     `json:"is_recursive"`
}

// CallEdge is one entry of call_relationships.
type CallEdge struct {
	FromFunction string `json:"from_function"`
	ToFunction   string `json:"to_function"`
	FromAddress  string `json:"from_address"`
	ToAddress    string `json:"to_address,omitempty"`
	Instruction  string `json:"instruction"`
	EdgeKind     string `json:"edge_kind"`
	External     bool   `json:"external,omitempty"`
}

// Statistics is the JSON projection of callgraph.Statistics.
type Statistics struct {
	TotalFunctions          int     `json:"total_functions"`
	TotalCalls              int     `json:"total_calls"`
	AverageCallsPerFunction float64 `json:"average_calls_per_function"`
	MaxCallsFromFunction    int     `json:"max_calls_from_function"`
	MaxCallsToFunction      int     `json:"max_calls_to_function"`
	RecursiveFunctions      int     `json:"recursive_functions"`
	ExternalFunctions       int     `json:"external_functions"`
	Cycles                  int     `json:"cycles"`
}

// StackInfo is the JSON projection of one stackanalyzer.FunctionStackInfo.
type StackInfo struct {
	Function        string   `json:"function"`
	LocalFrame      uint64   `json:"local_frame_bytes"`
	MaxTotal        uint64   `json:"max_total_bytes"`
	ConsumedByCalls uint64   `json:"consumed_by_calls_bytes"`
	WitnessPath     []string `json:"witness_path"`
	IsRecursive     bool     `json:"is_recursive"`
	IsExternal      bool     `json:"is_external"`
}

// StackSummary is the JSON projection of stackanalyzer.StackSummary.
type StackSummary struct {
	Functions       []StackInfo `json:"functions"`
	MaxObservedByte uint64      `json:"max_observed_bytes"`
	DeepestFunction string      `json:"deepest_function"`
}

// Report is the full output tree, per spec.md §6.
type Report struct {
	Metadata          Metadata                `json:"metadata"`
	FileInfo          FileInfo                `json:"file_info"`
	Functions         map[string]FunctionInfo `json:"functions"`
	CallRelationships []CallEdge              `json:"call_relationships"`
	Statistics        Statistics              `json:"statistics"`
	StackSummary      StackSummary            `json:"stack_summary"`
}

const toolName = "elfscope"

// Build assembles a Report from the parsed image, the built call
// graph, and a stack analyzer over the same pair. When sa is nil the
// stack_summary section is left empty; an error from sa.Summary (such
// as KindInternalInvariant) aborts report generation and is returned
// to the caller rather than silently omitting the section.
func Build(sourceFile string, img *image.Image, g *callgraph.Graph, sa *stackanalyzer.Analyzer, toolVersion string) (*Report, error) {
	fi := img.FileInfo()

	r := &Report{
		Metadata: Metadata{
			ToolName:     toolName,
			Version:      toolVersion,
			ExportTime:   time.Now().UTC().Format(time.RFC3339),
			ElfFile:      sourceFile,
			Architecture: string(fi.Architecture),
		},
		FileInfo: FileInfo{
			Architecture:    string(fi.Architecture),
			Class:           fi.Class,
			DataEncoding:    fi.DataEncoding,
			FileType:        fi.FileType,
			EntryPoint:      utils.FormatHex(fi.EntryPoint),
			SectionCount:    fi.SectionCount,
			SymbolCount:     fi.SymbolCount,
			FunctionCount:   fi.FunctionCount,
			TextSections:    fi.TextSections,
			IsStripped:      fi.IsStripped,
			EntryFunction:   fi.EntryFunction,
			EntryFunctionOK: fi.EntryFunctionOK,
		},
		Functions: map[string]FunctionInfo{},
	}

	for _, name := range g.Nodes() {
		node, _ := g.Node(name)
		symbolType := "other"
		if node.Function.SymbolType == image.SymbolFunction {
			symbolType = "function"
		}
		r.Functions[name] = FunctionInfo{
			Name:        name,
			Address:     utils.FormatHex(node.Function.Address),
			Size:        node.Function.Size,
			SymbolType:  symbolType,
			Visibility:  node.Function.Visibility,
			External:    node.External,
			Callers:     g.Callers(name),
			Callees:     g.Callees(name),
			InDegree:    g.InDegree(name),
			OutDegree:   g.OutDegree(name),
			IsRecursive: g.IsRecursive(name),
		}
	}

	for _, name := range g.Nodes() {
		for _, callee := range g.Callees(name) {
			for _, edge := range g.CallDetails(name, callee) {
				kind := "call"
				if edge.Kind == callgraph.EdgeTailJump {
					kind = "tail_jump"
				}
				r.CallRelationships = append(r.CallRelationships, CallEdge{
					FromFunction: edge.From,
					ToFunction:   edge.To,
					FromAddress:  utils.FormatHex(edge.FromAddress),
					ToAddress:    utils.FormatHex(edge.ToAddress),
					Instruction:  edge.InstructionText,
					EdgeKind:     kind,
					External:     edge.External,
				})
			}
		}
	}

	stats := g.Statistics()
	r.Statistics = Statistics{
		TotalFunctions:          stats.TotalFunctions,
		TotalCalls:              stats.TotalCalls,
		AverageCallsPerFunction: stats.AverageCallsPerFunction,
		MaxCallsFromFunction:    stats.MaxCallsFromFunction,
		MaxCallsToFunction:      stats.MaxCallsToFunction,
		RecursiveFunctions:      stats.RecursiveFunctions,
		ExternalFunctions:       stats.ExternalFunctions,
		Cycles:                  stats.Cycles,
	}

	if sa != nil {
		summary, err := sa.Summary()
		if err != nil {
			return nil, err
		}
		r.StackSummary.MaxObservedByte = summary.MaxObservedByte
		r.StackSummary.DeepestFunction = summary.DeepestFunction
		r.StackSummary.Functions = utils.Map(summary.Functions, func(info stackanalyzer.FunctionStackInfo) StackInfo {
			return StackInfo{
				Function:        info.Function,
				LocalFrame:      info.LocalFrame,
				MaxTotal:        info.MaxTotal,
				ConsumedByCalls: info.ConsumedByCalls,
				WitnessPath:     info.WitnessPath,
				IsRecursive:     info.IsRecursive,
				IsExternal:      info.IsExternal,
			}
		})
	}

	return r, nil
}

// Marshal renders r as indented JSON.
func Marshal(r *Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, elferr.Make(elferr.KindInternalInvariant, err, "marshaling report")
	}
	return data, nil
}

// Parse decodes a Report previously produced by Marshal, the
// round-trip property spec.md §8 names.
func Parse(data []byte) (*Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, elferr.Make(elferr.KindFormat, err, "parsing report")
	}
	return &r, nil
}
