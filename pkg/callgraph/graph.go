// Package callgraph builds and queries the inter-procedural call
// graph: a directed multigraph over function names where parallel
// edges (multiple call sites between the same pair) and self-loops
// (direct recursion) are first-class, not deduplicated.
//
// No graph library (gonum or otherwise) is reachable anywhere in the
// retrieved corpus, and spec.md §9 independently directs an explicit
// representation, so Graph is hand-rolled: a node map, an edge arena,
// and two adjacency indices (out-edges, in-edges) storing arena
// indices. This generalizes the teacher's instructionresolver.go
// resolve-and-validate idiom — resolve every reference, mint a
// placeholder when resolution fails, never panic on an unresolved
// target — to call-site-to-function resolution.
package callgraph

import "github.com/Manu343726/elfscope/pkg/image"

// EdgeKind distinguishes a direct call from a tail jump; both are
// graph edges per spec.md §4.3, with the double-counting caveat
// spec.md §9 documents.
type EdgeKind int

const (
	EdgeCall EdgeKind = iota
	EdgeTailJump
)

// Node is a function (named, graph-resident) or an external
// placeholder minted on first reference from an unresolved call site.
type Node struct {
	Name     string
	Function image.Function
	External bool
}

// Edge is one call site: a caller, a resolved or external callee, and
// the instruction that performed the transfer.
type Edge struct {
	From            string
	To              string
	FromAddress     uint64
	ToAddress       uint64
	InstructionText string
	Kind            EdgeKind
	External        bool
}

// Graph is the built call graph. It is immutable after Build returns;
// every query method is read-only.
type Graph struct {
	nodes map[string]*Node
	order []string // node insertion order, for deterministic iteration
	edges []Edge
	out   map[string][]int
	in    map[string][]int
}

func newGraph() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		out:   make(map[string][]int),
		in:    make(map[string][]int),
	}
}

func (g *Graph) ensureNode(name string, fn image.Function, external bool) *Node {
	if n, ok := g.nodes[name]; ok {
		return n
	}
	n := &Node{Name: name, Function: fn, External: external}
	g.nodes[name] = n
	g.order = append(g.order, name)
	return n
}

func (g *Graph) addEdge(e Edge) {
	idx := len(g.edges)
	g.edges = append(g.edges, e)
	g.out[e.From] = append(g.out[e.From], idx)
	g.in[e.To] = append(g.in[e.To], idx)
}

// Nodes returns every node name in insertion order (functions first,
// up-front; external placeholders in first-reference order).
func (g *Graph) Nodes() []string {
	out := make([]string, len(g.order))
	copy(out, g.order)
	return out
}

// Node looks up a node by name.
func (g *Graph) Node(name string) (Node, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return *n, true
}

// Callers returns the predecessors of f.
func (g *Graph) Callers(f string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, idx := range g.in[f] {
		from := g.edges[idx].From
		if !seen[from] {
			seen[from] = true
			out = append(out, from)
		}
	}
	return out
}

// Callees returns the successors of f.
func (g *Graph) Callees(f string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, idx := range g.out[f] {
		to := g.edges[idx].To
		if !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

// CallDetails returns every parallel edge from -> to, in scan order.
func (g *Graph) CallDetails(from, to string) []Edge {
	var out []Edge
	for _, idx := range g.out[from] {
		if g.edges[idx].To == to {
			out = append(out, g.edges[idx])
		}
	}
	return out
}

// IsRecursive reports whether f has a direct self-loop.
func (g *Graph) IsRecursive(f string) bool {
	for _, idx := range g.out[f] {
		if g.edges[idx].To == f {
			return true
		}
	}
	return false
}

// InDegree and OutDegree count distinct neighbor edges (parallel edges
// counted once per target, matching a simple-graph degree notion used
// by critical_functions' degree heuristic).
func (g *Graph) InDegree(f string) int  { return len(g.Callers(f)) }
func (g *Graph) OutDegree(f string) int { return len(g.Callees(f)) }
