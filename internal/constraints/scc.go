package constraints

import (
	"fmt"

	"fortio.org/safecast"

	"regionck/internal/regions"
)

// SccIndex identifies a strongly connected component of the outlives
// graph. Indices follow Tarjan completion order, so every successor of an
// SCC has a smaller index than the SCC itself.
type SccIndex uint32

func (s SccIndex) String() string { return fmt.Sprintf("scc%d", uint32(s)) }

func sccFromInt(i int) SccIndex {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("scc index overflow: %w", err))
	}
	return SccIndex(v)
}

// Sccs is the condensation of the outlives graph.
type Sccs struct {
	sccOf     []SccIndex
	succStart []int
	succ      []SccIndex
	memStart  []int
	members   []regions.RegionVid
}

type tarjanFrame struct {
	node int
	edge int
}

// ComputeSccs runs an iterative Tarjan over g.
func ComputeSccs(g *Graph) *Sccs {
	n := g.NumRegions()
	const unvisited = -1
	index := make([]int, n)
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	for i := range index {
		index[i] = unvisited
	}
	sccOf := make([]SccIndex, n)
	stack := make([]int, 0, n)
	next := 0
	numSccs := 0

	for root := range n {
		if index[root] != unvisited {
			continue
		}
		frames := []tarjanFrame{{node: root}}
		index[root], lowlink[root] = next, next
		next++
		stack = append(stack, root)
		onStack[root] = true

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			out := g.Outgoing(regions.VidFromInt(f.node))
			if f.edge < len(out) {
				w := int(g.set.At(out[f.edge]).Sub)
				f.edge++
				switch {
				case index[w] == unvisited:
					index[w], lowlink[w] = next, next
					next++
					stack = append(stack, w)
					onStack[w] = true
					frames = append(frames, tarjanFrame{node: w})
				case onStack[w]:
					lowlink[f.node] = min(lowlink[f.node], index[w])
				}
				continue
			}

			v := f.node
			if lowlink[v] == index[v] {
				scc := sccFromInt(numSccs)
				numSccs++
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					sccOf[w] = scc
					if w == v {
						break
					}
				}
			}
			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].node
				lowlink[parent] = min(lowlink[parent], lowlink[v])
			}
		}
	}

	s := &Sccs{sccOf: sccOf}
	s.buildMembers(numSccs)
	s.buildSuccessors(g, numSccs)
	return s
}

func (s *Sccs) buildMembers(numSccs int) {
	s.memStart = make([]int, numSccs+1)
	for _, scc := range s.sccOf {
		s.memStart[int(scc)+1]++
	}
	for i := range numSccs {
		s.memStart[i+1] += s.memStart[i]
	}
	fill := make([]int, numSccs)
	copy(fill, s.memStart[:numSccs])
	s.members = make([]regions.RegionVid, len(s.sccOf))
	for r, scc := range s.sccOf {
		s.members[fill[scc]] = regions.VidFromInt(r)
		fill[scc]++
	}
}

func (s *Sccs) buildSuccessors(g *Graph, numSccs int) {
	s.succStart = make([]int, numSccs+1)
	seen := make([]int, numSccs) // last scc+1 that recorded this target
	for scc := range numSccs {
		s.succStart[scc] = len(s.succ)
		for _, r := range s.Members(sccFromInt(scc)) {
			for _, ci := range g.Outgoing(r) {
				target := s.sccOf[g.set.At(ci).Sub]
				if int(target) == scc || seen[target] == scc+1 {
					continue
				}
				seen[target] = scc + 1
				s.succ = append(s.succ, target)
			}
		}
	}
	s.succStart[numSccs] = len(s.succ)
}

func (s *Sccs) NumSccs() int { return len(s.succStart) - 1 }

func (s *Sccs) NumRegions() int { return len(s.sccOf) }

func (s *Sccs) SccOf(r regions.RegionVid) SccIndex { return s.sccOf[r] }

// Successors lists the distinct SCCs directly outlived by scc.
func (s *Sccs) Successors(scc SccIndex) []SccIndex {
	return s.succ[s.succStart[scc]:s.succStart[scc+1]]
}

// Members lists the regions of scc in increasing order.
func (s *Sccs) Members(scc SccIndex) []regions.RegionVid {
	return s.members[s.memStart[scc]:s.memStart[scc+1]]
}

// Representative is the smallest region of scc.
func (s *Sccs) Representative(scc SccIndex) regions.RegionVid {
	return s.members[s.memStart[scc]]
}

// AllSccs returns every SCC index in an order where successors come first.
func (s *Sccs) AllSccs() []SccIndex {
	out := make([]SccIndex, s.NumSccs())
	for i := range out {
		out[i] = sccFromInt(i)
	}
	return out
}
