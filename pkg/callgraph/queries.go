package callgraph

// Cycles returns every simple cycle in the graph (Johnson-style,
// collapsed to the commonly needed case: strongly-connected cycles
// reachable through DFS backtracking), matching the networkx
// simple_cycles semantics the original relies on.
func (g *Graph) Cycles() [][]string {
	var cycles [][]string
	seen := map[string]bool{}

	for _, start := range g.order {
		var path []string
		onPath := map[string]bool{}

		var dfs func(node string)
		dfs = func(node string) {
			path = append(path, node)
			onPath[node] = true

			for _, next := range g.Callees(node) {
				if next == start {
					cycle := make([]string, len(path))
					copy(cycle, path)
					cycles = append(cycles, cycle)
					continue
				}
				if !onPath[next] && !seen[next] {
					dfs(next)
				}
			}

			onPath[node] = false
			path = path[:len(path)-1]
		}

		dfs(start)
		seen[start] = true
	}

	return dedupeCycles(cycles)
}

func dedupeCycles(cycles [][]string) [][]string {
	type key = string
	index := func(c []string) int {
		min := 0
		for i := range c {
			if c[i] < c[min] {
				min = i
			}
		}
		return min
	}
	seen := map[key]bool{}
	var out [][]string
	for _, c := range cycles {
		start := index(c)
		rot := append(append([]string{}, c[start:]...), c[:start]...)
		k := ""
		for _, n := range rot {
			k += n + "\x00"
		}
		if !seen[k] {
			seen[k] = true
			out = append(out, rot)
		}
	}
	return out
}

// Depth reports, per spec.md §4.3 and the open question in §9, the
// longest shortest-path length from f to any reachable node — this is
// "distance to farthest reachable", not "longest path"; the name is
// kept (matching the original's misleading get_function_depth) and
// the distinction is documented here rather than renamed in the API.
func (g *Graph) Depth(f string) int {
	if _, ok := g.nodes[f]; !ok {
		return 0
	}

	dist := map[string]int{f: 0}
	queue := []string{f}
	max := 0

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range g.Callees(node) {
			if _, visited := dist[next]; visited {
				continue
			}
			dist[next] = dist[node] + 1
			if dist[next] > max {
				max = dist[next]
			}
			queue = append(queue, next)
		}
	}

	return max
}

// Statistics summarizes the graph per spec.md §4.3 and the original's
// get_statistics, including the supplemented average_calls_per_function.
type Statistics struct {
	TotalFunctions            int
	TotalCalls                int
	AverageCallsPerFunction   float64
	MaxCallsFromFunction      int
	MaxCallsToFunction        int
	RecursiveFunctions        int
	ExternalFunctions         int
	Cycles                    int
}

func (g *Graph) Statistics() Statistics {
	stats := Statistics{
		TotalFunctions: len(g.nodes),
		TotalCalls:     len(g.edges),
		Cycles:         len(g.Cycles()),
	}

	if stats.TotalFunctions > 0 {
		stats.AverageCallsPerFunction = float64(stats.TotalCalls) / float64(stats.TotalFunctions)
	}

	for name, node := range g.nodes {
		out := g.OutDegree(name)
		in := g.InDegree(name)
		if out > stats.MaxCallsFromFunction {
			stats.MaxCallsFromFunction = out
		}
		if in > stats.MaxCallsToFunction {
			stats.MaxCallsToFunction = in
		}
		if g.IsRecursive(name) {
			stats.RecursiveFunctions++
		}
		if node.External {
			stats.ExternalFunctions++
		}
	}

	return stats
}
