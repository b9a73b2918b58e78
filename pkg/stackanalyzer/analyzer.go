// Package stackanalyzer estimates, per function, the worst-case stack
// depth reachable from it: its own local frame plus the heaviest
// chain of callees, walking the call graph pkg/callgraph builds and
// falling back to a configurable cost table for external symbols.
//
// This is the heaviest single piece of elfscope — grounded on the
// original's core/stack_analyzer.py (ARCH_STACK_INFO,
// EXTERNAL_FUNC_STACK_ESTIMATES, _detect_loop_stack_allocation,
// _calculate_call_chain_stack) and rebuilt the way the teacher builds
// its own heaviest piece, the CPU interpreter: a small per-architecture
// table driving a structured-decode-first, text-fallback recognizer,
// plus a memoized DFS with an explicit on-stack set standing in for
// the interpreter's explicit register/flag state.
package stackanalyzer

import (
	"log/slog"
	"sync"

	"github.com/Manu343726/elfscope/pkg/callgraph"
	"github.com/Manu343726/elfscope/pkg/disasm"
	"github.com/Manu343726/elfscope/pkg/elferr"
	"github.com/Manu343726/elfscope/pkg/image"
)

// Config is the subset of internal/config.Stack the analyzer reads.
type Config struct {
	RecursionMultiplier int
	ExternalCostsFile   string
}

// Analyzer computes stack-depth estimates over one parsed image and
// its built call graph.
type Analyzer struct {
	img      *image.Image
	graph    *callgraph.Graph
	dis      *disasm.Disassembler
	archInfo archStackInfo
	costs    externalCostTable
	k        uint64
	logger   *slog.Logger

	mu            sync.RWMutex
	frameCache    map[string]uint64
	maxTotalCache map[string]maxTotalResult
}

// New builds an Analyzer for img/g. cfg.RecursionMultiplier defaults
// to 10 when zero, matching the original's hardcoded constant.
func New(img *image.Image, g *callgraph.Graph, cfg Config, logger *slog.Logger) (*Analyzer, error) {
	dis, err := disasm.New(img.Architecture())
	if err != nil {
		return nil, err
	}

	costs, err := loadExternalCosts(cfg.ExternalCostsFile)
	if err != nil {
		return nil, err
	}

	k := uint64(cfg.RecursionMultiplier)
	if k == 0 {
		k = 10
	}

	return &Analyzer{
		img:           img,
		graph:         g,
		dis:           dis,
		archInfo:      lookupArchStackInfo(img.Architecture()),
		costs:         costs,
		k:             k,
		logger:        logger,
		frameCache:    map[string]uint64{},
		maxTotalCache: map[string]maxTotalResult{},
	}, nil
}

// instructionsFor decodes the full instruction stream of the named
// function, or reports ok == false when the image has no body for it
// (external placeholder, or a section/decode failure already logged
// by pkg/callgraph at build time).
func (a *Analyzer) instructionsFor(name string) ([]disasm.Instruction, bool) {
	fn, ok := a.img.FunctionByName(name)
	if !ok {
		return nil, false
	}

	for _, section := range a.img.TextSections() {
		if fn.Address < section.VirtualAddress || fn.Address >= section.VirtualAddress+section.Size {
			continue
		}
		data, ok := a.img.SectionBytes(section.Name)
		if !ok {
			return nil, false
		}
		body, err := disasm.FunctionBody(fn, data, section.VirtualAddress)
		if err != nil {
			return nil, false
		}
		insts, decodeErr := a.dis.Stream(body, fn.Address)
		if decodeErr != nil && a.logger != nil {
			a.logger.Warn("stack analysis: partial instruction stream",
				slog.String("function", name), slog.Any("error", decodeErr))
		}
		return insts, true
	}

	return nil, false
}

var errInconsistentCache = elferr.Make(elferr.KindInternalInvariant, nil, "stack analysis cache re-entry is inconsistent with the current call path")
