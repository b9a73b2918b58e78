package pathengine

import "sort"

// Centrality is the degree/betweenness summary spec.md §4.4 defines
// for critical_functions.
type Centrality struct {
	Function     string
	InDegree     int
	OutDegree    int
	TotalDegree  int
	Betweenness  float64
	Critical     bool
}

// CriticalFunctions computes (in_degree, out_degree, total_degree,
// betweenness) for every node, marks a node critical when
// total_degree > 5 or betweenness > 0.1, and sorts descending by
// (total_degree, betweenness), per spec.md §4.4.
func (e *Engine) CriticalFunctions() []Centrality {
	betweenness := e.betweenness()

	nodes := e.g.Nodes()
	out := make([]Centrality, 0, len(nodes))
	for _, n := range nodes {
		in := e.g.InDegree(n)
		outDeg := e.g.OutDegree(n)
		total := in + outDeg
		b := betweenness[n]

		out = append(out, Centrality{
			Function:    n,
			InDegree:    in,
			OutDegree:   outDeg,
			TotalDegree: total,
			Betweenness: b,
			Critical:    total > 5 || b > 0.1,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TotalDegree != out[j].TotalDegree {
			return out[i].TotalDegree > out[j].TotalDegree
		}
		return out[i].Betweenness > out[j].Betweenness
	})

	return out
}

// betweenness computes directed, unweighted node betweenness
// centrality via Brandes' algorithm (one BFS per source, accumulating
// dependency scores), normalized by (n-1)(n-2) as networkx does for
// directed graphs. No graph-theory library is available anywhere in
// the corpus, so this is a direct implementation rather than an
// import.
func (e *Engine) betweenness() map[string]float64 {
	nodes := e.g.Nodes()
	n := len(nodes)
	cb := make(map[string]float64, n)
	for _, v := range nodes {
		cb[v] = 0
	}

	for _, s := range nodes {
		stack := []string{}
		pred := map[string][]string{}
		sigma := map[string]float64{s: 1}
		dist := map[string]int{s: 0}
		queue := []string{s}

		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			stack = append(stack, v)

			for _, w := range e.g.Callees(v) {
				if _, ok := dist[w]; !ok {
					dist[w] = dist[v] + 1
					queue = append(queue, w)
				}
				if dist[w] == dist[v]+1 {
					sigma[w] += sigma[v]
					pred[w] = append(pred[w], v)
				}
			}
		}

		delta := map[string]float64{}
		for i := len(stack) - 1; i >= 0; i-- {
			w := stack[i]
			for _, v := range pred[w] {
				delta[v] += (sigma[v] / sigma[w]) * (1 + delta[w])
			}
			if w != s {
				cb[w] += delta[w]
			}
		}
	}

	if n > 2 {
		scale := 1.0 / float64((n-1)*(n-2))
		for k := range cb {
			cb[k] *= scale
		}
	}

	return cb
}
