package stackanalyzer

import "fmt"

// maxTotalResult is one function's worst-case stack depth: its own
// total (local frame plus the heaviest callee chain) and the witness
// path that realizes it, function names in call order starting at the
// function itself.
type maxTotalResult struct {
	Total   uint64
	Witness []string
	cyclic  bool // carries a recursion/cycle marker; never memoized

	// cycleMembers names every function whose local frame is already
	// folded into Total by a cycle/recursion marker somewhere in this
	// result's subtree. A function popping back out of its own
	// maxTotal call checks membership here before adding its own local
	// frame: if it's already accounted for as a cycle member, adding it
	// again would double-count that frame once per loop iteration of
	// the DFS unwind. Only set on results that are themselves exactly
	// the cycle/recursion marker value (not on a normal sum that merely
	// includes one as a callee).
	cycleMembers map[string]bool
}

// FunctionStackInfo is the reporting shape for one function's
// stack-depth estimate, per spec.md §6.
type FunctionStackInfo struct {
	Function        string
	LocalFrame      uint64
	MaxTotal        uint64
	ConsumedByCalls uint64
	WitnessPath     []string
	IsRecursive     bool
	IsExternal      bool
}

// FunctionStackInfo computes the full stack-depth estimate for f.
func (a *Analyzer) FunctionStackInfo(f string) (FunctionStackInfo, error) {
	result, err := a.maxTotal(f, nil, map[string]bool{})
	if err != nil {
		return FunctionStackInfo{}, err
	}

	node, _ := a.graph.Node(f)
	local := a.costOf(f)

	return FunctionStackInfo{
		Function:        f,
		LocalFrame:      local,
		MaxTotal:        result.Total,
		ConsumedByCalls: result.Total - local,
		WitnessPath:     result.Witness,
		IsRecursive:     a.graph.IsRecursive(f),
		IsExternal:      node.External,
	}, nil
}

// costOf is a node's own stack contribution: the external cost table
// for an unresolved symbol, or the recovered local frame for a
// function with a body.
func (a *Analyzer) costOf(f string) uint64 {
	node, ok := a.graph.Node(f)
	if ok && node.External {
		return a.costs.cost(externalSymbolName(f))
	}
	return a.localFrame(f)
}

// externalSymbolName returns the node name unchanged. The callgraph's
// "external:0x<addr>" synthetic names never match a cost-table entry,
// so such nodes always resolve to the table's default; an external
// node carrying a plain symbol name is looked up by that name.
func externalSymbolName(node string) string {
	return node
}

// maxTotal implements the original's _calculate_call_chain_stack: a
// DFS over the call graph, memoized per function, with three distinct
// cycle outcomes depending on how f was reached:
//
//   - f already being computed and f is the immediate caller on
//     currentPath (direct self-recursion): stop here, contribute
//     local(f) * K as a terminal marker, without descending further.
//   - f already being computed but reached through a longer cycle
//     (indirect recursion): resolve the cycle as a unit — sum the
//     distinct local frames of every function in the cycle, multiply
//     by K, then search every cycle member's successors (not just the
//     one f was re-entered through) for the best escaping tail that
//     isn't itself part of the cycle.
//   - a cached result for some callee g turns out to describe a path
//     that would re-enter the current call chain (a stale memo from a
//     different cyclic context): invalidate it and recompute once
//     with an empty currentPath; if that retry still can't produce a
//     consistent result, raise KindInternalInvariant.
//
// A cycle/recursion marker's Total already accounts for every member's
// local frame (folded into the marker's own arithmetic); as the DFS
// unwinds back through each of those members' own maxTotal calls, they
// must not add their local frame a second time on top of it — maxTotal
// checks cycleMembers for this before summing.
func (a *Analyzer) maxTotal(f string, currentPath []string, calculating map[string]bool) (maxTotalResult, error) {
	if calculating[f] {
		return a.resolveCycle(f, currentPath, calculating)
	}

	if cached, ok := a.cachedMaxTotal(f); ok {
		if !pathContains(currentPath, f) {
			return cached, nil
		}
		// Stale memo: f is cached from an earlier, non-cyclic call
		// context, but is now being reached through a cycle. One
		// retry under an empty path is allowed before this is treated
		// as unrecoverable.
		a.invalidateMaxTotal(f)
		currentPath = nil
	}

	local := a.costOf(f)
	calculating[f] = true
	path := append(append([]string{}, currentPath...), f)

	var best uint64
	var bestWitness []string
	var bestCycleMembers map[string]bool
	cyclic := false

	for _, callee := range a.graph.Callees(f) {
		result, err := a.maxTotal(callee, path, calculating)
		if err != nil {
			delete(calculating, f)
			return maxTotalResult{}, err
		}
		if result.cyclic {
			cyclic = true
		}
		if result.Total > best {
			best = result.Total
			bestWitness = result.Witness
			bestCycleMembers = result.cycleMembers
		}
	}

	delete(calculating, f)

	if bestCycleMembers != nil && bestCycleMembers[f] {
		// f's own local frame is already summed into the cycle total
		// that dominates its callees (f is itself one of the cycle's
		// members) — adding local here on the way back out of the
		// recursion would double-count that frame.
		result := maxTotalResult{Total: best, Witness: bestWitness, cyclic: true, cycleMembers: bestCycleMembers}
		return result, nil
	}

	total := local + best
	witness := append([]string{f}, bestWitness...)
	result := maxTotalResult{Total: total, Witness: witness, cyclic: cyclic}

	if !cyclic {
		a.storeMaxTotal(f, result)
	}
	return result, nil
}

// resolveCycle handles re-entering a function that is still on the
// DFS stack (calculating[f] is true).
func (a *Analyzer) resolveCycle(f string, currentPath []string, calculating map[string]bool) (maxTotalResult, error) {
	if len(currentPath) == 0 {
		// f is marked as calculating but currentPath is empty: the
		// calculating set and the path it describes have diverged,
		// which should be structurally impossible. One retry with a
		// clean slate is already what callers do before reaching
		// here, so this is the unrecoverable case.
		return maxTotalResult{}, errInconsistentCache
	}

	immediateCaller := currentPath[len(currentPath)-1]
	if immediateCaller == f {
		local := a.costOf(f)
		return maxTotalResult{
			Total:        local * a.k,
			Witness:      []string{fmt.Sprintf("%s (recursive x%d)", f, a.k)},
			cyclic:       true,
			cycleMembers: map[string]bool{f: true},
		}, nil
	}

	idx := indexOf(currentPath, f)
	if idx < 0 {
		return maxTotalResult{}, errInconsistentCache
	}

	// The cycle is the path suffix from f's earlier occurrence back to
	// f itself; every member's local frame is already spent once per
	// lap of the loop, so escape candidates must be searched across
	// ALL of the cycle's members, not just the one f re-entered through
	// — a sibling member can have an edge leaving the cycle that f
	// itself never reaches directly.
	cycleSuffix := currentPath[idx:]
	members := map[string]bool{}
	var distinctMembers []string
	for _, name := range cycleSuffix {
		if !members[name] {
			members[name] = true
			distinctMembers = append(distinctMembers, name)
		}
	}

	var cycleCost uint64
	for _, name := range distinctMembers {
		cycleCost += a.costOf(name)
	}

	marker := fmt.Sprintf("cycle(%s) x%d", joinCycle(distinctMembers), a.k)

	// Look for the best escaping tail: any cycle member's callee that
	// isn't itself part of the cycle, explored with an empty path so a
	// cached, non-cyclic result can be reused directly. The cycle's own
	// internal edges are already paid for by cycleCost and must not be
	// re-chased here.
	var bestTail uint64
	var bestTailWitness []string
	for _, member := range distinctMembers {
		for _, callee := range a.graph.Callees(member) {
			if members[callee] {
				continue
			}
			tail, err := a.maxTotal(callee, nil, map[string]bool{})
			if err != nil {
				return maxTotalResult{}, err
			}
			if tail.Total > bestTail {
				bestTail = tail.Total
				bestTailWitness = tail.Witness
			}
		}
	}

	witness := append([]string{marker}, bestTailWitness...)
	return maxTotalResult{
		Total:        cycleCost*a.k + bestTail,
		Witness:      witness,
		cyclic:       true,
		cycleMembers: members,
	}, nil
}

func (a *Analyzer) cachedMaxTotal(f string) (maxTotalResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.maxTotalCache[f]
	return v, ok
}

func (a *Analyzer) storeMaxTotal(f string, result maxTotalResult) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.maxTotalCache[f] = result
}

func (a *Analyzer) invalidateMaxTotal(f string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.maxTotalCache, f)
}

func pathContains(path []string, f string) bool {
	return indexOf(path, f) >= 0
}

func indexOf(path []string, f string) int {
	for i, n := range path {
		if n == f {
			return i
		}
	}
	return -1
}

func joinCycle(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += "->"
		}
		out += n
	}
	return out
}
