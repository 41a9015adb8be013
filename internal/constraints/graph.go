package constraints

import "regionck/internal/regions"

// Graph is the outlives graph in CSR form: an edge sup -> sub per
// constraint, grouped by sup in insertion order.
type Graph struct {
	set    *Set
	indptr []int
	edges  []Index
}

func NewGraph(set *Set, numRegions int) *Graph {
	g := &Graph{set: set, indptr: make([]int, numRegions+1), edges: make([]Index, set.Len())}
	for _, c := range set.outlives {
		g.indptr[int(c.Sup)+1]++
	}
	for i := range numRegions {
		g.indptr[i+1] += g.indptr[i]
	}
	next := make([]int, numRegions)
	copy(next, g.indptr[:numRegions])
	for i, c := range set.outlives {
		g.edges[next[c.Sup]] = indexFromInt(i)
		next[c.Sup]++
	}
	return g
}

func (g *Graph) NumRegions() int { return len(g.indptr) - 1 }

func (g *Graph) Set() *Set { return g.set }

// Outgoing lists the constraints whose Sup is r.
func (g *Graph) Outgoing(r regions.RegionVid) []Index {
	return g.edges[g.indptr[r]:g.indptr[r+1]]
}
