// Package pathengine implements spec.md §4.4's read-only queries over
// a built callgraph.Graph: simple/cycle-bounded path enumeration,
// shortest path, reverse-reachable ancestors, forward/backward
// closures, and a betweenness-based notion of "critical" functions.
// No graph library is available anywhere in the corpus (see
// pkg/callgraph's package doc), so every algorithm here is a direct
// BFS/DFS over callgraph.Graph.
package pathengine

import "github.com/Manu343726/elfscope/pkg/callgraph"

// Engine wraps a built graph for path queries.
type Engine struct {
	g *callgraph.Graph
}

// New wraps g for path queries.
func New(g *callgraph.Graph) *Engine {
	return &Engine{g: g}
}

// Path is one traversal result: the ordered node sequence plus, for
// each step, every parallel call edge between consecutive nodes.
type Path struct {
	Nodes []string
	Steps [][]callgraph.Edge
}

func (e *Engine) formatPath(nodes []string) Path {
	p := Path{Nodes: nodes}
	for i := 0; i+1 < len(nodes); i++ {
		p.Steps = append(p.Steps, e.g.CallDetails(nodes[i], nodes[i+1]))
	}
	return p
}

// FindPaths implements spec.md §4.4's find_paths. When source is
// empty, every node that can reach target becomes a candidate source.
func (e *Engine) FindPaths(target, source string, maxDepth int, includeCycles bool) []Path {
	sources := []string{source}
	if source == "" {
		sources = nil
		for _, n := range e.g.Nodes() {
			if n != target && e.hasPath(n, target) {
				sources = append(sources, n)
			}
		}
	}

	seen := map[string]bool{}
	var out []Path

	for _, src := range sources {
		for _, nodes := range e.walksTo(src, target, maxDepth, includeCycles) {
			key := pathKey(nodes)
			if !seen[key] {
				seen[key] = true
				out = append(out, e.formatPath(nodes))
			}
		}
	}

	return out
}

func pathKey(nodes []string) string {
	s := ""
	for _, n := range nodes {
		s += n + "\x00"
	}
	return s
}

// walksTo enumerates walks from src to target of length <= maxDepth.
// When includeCycles is false, only simple paths (no repeated node)
// are allowed; when true, any node may appear at most twice.
func (e *Engine) walksTo(src, target string, maxDepth int, includeCycles bool) [][]string {
	var results [][]string
	visitCount := map[string]int{}
	limit := 1
	if includeCycles {
		limit = 2
	}

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		path = append(path, node)

		if node == target {
			results = append(results, append([]string{}, path...))
		}
		if len(path)-1 >= maxDepth {
			return
		}

		for _, next := range e.g.Callees(node) {
			if visitCount[next] >= limit {
				continue
			}
			visitCount[next]++
			dfs(next, path)
			visitCount[next]--
		}
	}

	visitCount[src] = 1
	dfs(src, nil)
	return results
}

func (e *Engine) hasPath(src, target string) bool {
	if src == target {
		return true
	}
	visited := map[string]bool{src: true}
	queue := []string{src}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range e.g.Callees(node) {
			if next == target {
				return true
			}
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

// FindShortestPath runs a breadth-first search from source to target.
func (e *Engine) FindShortestPath(source, target string) (Path, bool) {
	if source == target {
		return e.formatPath([]string{source}), true
	}

	prev := map[string]string{}
	visited := map[string]bool{source: true}
	queue := []string{source}

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]

		for _, next := range e.g.Callees(node) {
			if visited[next] {
				continue
			}
			visited[next] = true
			prev[next] = node
			if next == target {
				return e.formatPath(reconstruct(prev, source, target)), true
			}
			queue = append(queue, next)
		}
	}

	return Path{}, false
}

func reconstruct(prev map[string]string, source, target string) []string {
	var nodes []string
	for node := target; ; {
		nodes = append([]string{node}, nodes...)
		if node == source {
			break
		}
		node = prev[node]
	}
	return nodes
}

// Ancestor is one result of FindAllCallers: an ancestor of target plus
// every distinct path from it, and whether it calls target directly.
type Ancestor struct {
	Function string
	Paths    []Path
	Direct   bool
}

// FindAllCallers performs a reverse BFS from target up to maxDepth,
// pruning any walk that would repeat a node (no cycles), per
// spec.md §4.4.
func (e *Engine) FindAllCallers(target string, maxDepth int) []Ancestor {
	direct := map[string]bool{}
	for _, c := range e.g.Callers(target) {
		direct[c] = true
	}

	byFunc := map[string][]Path{}
	var order []string

	var dfs func(node string, path []string)
	dfs = func(node string, path []string) {
		path = append([]string{node}, path...)

		if node != target {
			if _, seen := byFunc[node]; !seen {
				order = append(order, node)
			}
			// path already runs from node to target.
			full := append([]string{}, path...)
			byFunc[node] = append(byFunc[node], e.formatPath(full))
		}

		if len(path)-1 >= maxDepth {
			return
		}

		inPath := map[string]bool{}
		for _, n := range path {
			inPath[n] = true
		}

		for _, caller := range e.g.Callers(node) {
			if inPath[caller] {
				continue
			}
			dfs(caller, path)
		}
	}

	dfs(target, nil)

	var out []Ancestor
	for _, f := range order {
		out = append(out, Ancestor{Function: f, Paths: byFunc[f], Direct: direct[f]})
	}
	return out
}

// Reachability reports the forward/backward closures of f per
// spec.md §4.4.
type Reachability struct {
	CanReach      []string
	ReachableFrom []string
	IsLeaf        bool
	IsRoot        bool
}

func (e *Engine) Reachability(f string) Reachability {
	return Reachability{
		CanReach:      e.descendants(f),
		ReachableFrom: e.ancestors(f),
		IsLeaf:        e.g.OutDegree(f) == 0,
		IsRoot:        e.g.InDegree(f) == 0,
	}
}

func (e *Engine) descendants(f string) []string {
	visited := map[string]bool{f: true}
	queue := []string{f}
	var out []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, next := range e.g.Callees(node) {
			if !visited[next] {
				visited[next] = true
				out = append(out, next)
				queue = append(queue, next)
			}
		}
	}
	return out
}

func (e *Engine) ancestors(f string) []string {
	visited := map[string]bool{f: true}
	queue := []string{f}
	var out []string
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, prev := range e.g.Callers(node) {
			if !visited[prev] {
				visited[prev] = true
				out = append(out, prev)
				queue = append(queue, prev)
			}
		}
	}
	return out
}
