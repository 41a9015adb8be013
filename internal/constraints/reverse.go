package constraints

import "regionck/internal/regions"

// ReverseSccGraph inverts the SCC DAG and remembers which universal
// regions live in each SCC. It answers "which universal regions must
// outlive this SCC".
type ReverseSccGraph struct {
	predStart  []int
	preds      []SccIndex
	univStart  []int
	universals []regions.RegionVid
}

// NewReverseSccGraph builds the reverse graph; universal is the list of
// universal regions in increasing order.
func NewReverseSccGraph(sccs *Sccs, universal []regions.RegionVid) *ReverseSccGraph {
	n := sccs.NumSccs()
	g := &ReverseSccGraph{predStart: make([]int, n+1), univStart: make([]int, n+1)}

	for scc := range n {
		for _, succ := range sccs.Successors(sccFromInt(scc)) {
			g.predStart[int(succ)+1]++
		}
	}
	for i := range n {
		g.predStart[i+1] += g.predStart[i]
	}
	fill := make([]int, n)
	copy(fill, g.predStart[:n])
	g.preds = make([]SccIndex, g.predStart[n])
	for scc := range n {
		for _, succ := range sccs.Successors(sccFromInt(scc)) {
			g.preds[fill[succ]] = sccFromInt(scc)
			fill[succ]++
		}
	}

	for _, r := range universal {
		g.univStart[int(sccs.SccOf(r))+1]++
	}
	for i := range n {
		g.univStart[i+1] += g.univStart[i]
	}
	copy(fill, g.univStart[:n])
	g.universals = make([]regions.RegionVid, len(universal))
	for _, r := range universal {
		scc := sccs.SccOf(r)
		g.universals[fill[scc]] = r
		fill[scc]++
	}
	return g
}

// UpperBounds walks every SCC that reaches scc (scc included) and returns
// the universal regions found there, each once.
func (g *ReverseSccGraph) UpperBounds(scc SccIndex) []regions.RegionVid {
	visited := make(map[SccIndex]struct{})
	seen := make(map[regions.RegionVid]struct{})
	var out []regions.RegionVid
	stack := []SccIndex{scc}
	visited[scc] = struct{}{}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, r := range g.universals[g.univStart[cur]:g.univStart[cur+1]] {
			if _, dup := seen[r]; !dup {
				seen[r] = struct{}{}
				out = append(out, r)
			}
		}
		for _, p := range g.preds[g.predStart[cur]:g.predStart[cur+1]] {
			if _, ok := visited[p]; !ok {
				visited[p] = struct{}{}
				stack = append(stack, p)
			}
		}
	}
	return out
}
