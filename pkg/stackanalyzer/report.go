package stackanalyzer

import "sort"

// StackSummary aggregates FunctionStackInfo across every named
// function in the graph, per spec.md §6's stack_summary shape.
type StackSummary struct {
	Functions       []FunctionStackInfo
	MaxObservedByte uint64
	DeepestFunction string
}

// Summary computes FunctionStackInfo for every named (non-external)
// node in the graph.
func (a *Analyzer) Summary() (StackSummary, error) {
	var summary StackSummary

	for _, name := range a.graph.Nodes() {
		node, ok := a.graph.Node(name)
		if !ok || node.External {
			continue
		}

		info, err := a.FunctionStackInfo(name)
		if err != nil {
			return StackSummary{}, err
		}
		summary.Functions = append(summary.Functions, info)

		if info.MaxTotal > summary.MaxObservedByte {
			summary.MaxObservedByte = info.MaxTotal
			summary.DeepestFunction = name
		}
	}

	return summary, nil
}

// HeavyFunctions returns the top limit functions from summary sorted
// descending by MaxTotal (or by LocalFrame when sortBy == "local"),
// per spec.md §4.5's heavy_functions query. limit <= 0 returns every
// function.
func HeavyFunctions(summary StackSummary, limit int, sortBy string) []FunctionStackInfo {
	out := make([]FunctionStackInfo, len(summary.Functions))
	copy(out, summary.Functions)

	sort.SliceStable(out, func(i, j int) bool {
		if sortBy == "local" {
			return out[i].LocalFrame > out[j].LocalFrame
		}
		return out[i].MaxTotal > out[j].MaxTotal
	})

	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}
