package universal

import (
	"slices"

	"regionck/internal/regions"
)

// closure is the transitive closure of a relation over universal region
// indices: contains(a, b) iff a reaches b.
type closure struct {
	rows []*regions.BitSet
}

func newClosure(n int) *closure {
	c := &closure{rows: make([]*regions.BitSet, n)}
	for i := range c.rows {
		c.rows[i] = regions.NewBitSet(n)
	}
	return c
}

func (c *closure) add(a, b int) { c.rows[a].Insert(b) }

// compute closes the relation (Warshall over bit rows).
func (c *closure) compute() {
	for k := range c.rows {
		for i := range c.rows {
			if c.rows[i].Contains(k) {
				c.rows[i].Union(c.rows[k])
			}
		}
	}
}

func (c *closure) contains(a, b int) bool {
	if a < 0 || a >= len(c.rows) {
		return false
	}
	return c.rows[a].Contains(b)
}

func (c *closure) row(a int) []int { return c.rows[a].Slice() }

// intersectRows lists the nodes reachable from both a and b, in order.
func (c *closure) intersectRows(a, b int) []int {
	var out []int
	c.rows[a].Each(func(i int) bool {
		if c.rows[b].Contains(i) {
			out = append(out, i)
		}
		return true
	})
	return out
}

// minimalUpperBounds returns the minimal nodes reachable from both a and b.
func (c *closure) minimalUpperBounds(a, b int) []int {
	if a > b {
		a, b = b, a
	}
	if c.contains(a, b) {
		return []int{b}
	}
	if c.contains(b, a) {
		return []int{a}
	}
	candidates := c.intersectRows(a, b)
	candidates = c.pareDown(candidates)
	slices.Reverse(candidates)
	candidates = c.pareDown(candidates)
	slices.Reverse(candidates)
	return candidates
}

// parents returns the minimal nodes reachable from a that do not reach a
// back.
func (c *closure) parents(a int) []int {
	var ancestors []int
	for _, e := range c.row(a) {
		if !c.contains(e, a) {
			ancestors = append(ancestors, e)
		}
	}
	ancestors = c.pareDown(ancestors)
	slices.Reverse(ancestors)
	ancestors = c.pareDown(ancestors)
	slices.Reverse(ancestors)
	return ancestors
}

// pareDown removes every candidate reachable from an earlier candidate.
func (c *closure) pareDown(candidates []int) []int {
	for i := 0; i < len(candidates); i++ {
		ci := candidates[i]
		kept := candidates[:i+1]
		for _, cj := range candidates[i+1:] {
			if !c.contains(ci, cj) {
				kept = append(kept, cj)
			}
		}
		candidates = kept
	}
	return candidates
}

// mutualImmediatePostdominator folds a list of bounds pairwise through
// minimalUpperBounds until one remains.
func (c *closure) mutualImmediatePostdominator(mubs []int) (int, bool) {
	mubs = slices.Clone(mubs)
	for {
		switch len(mubs) {
		case 0:
			return 0, false
		case 1:
			return mubs[0], true
		}
		m := mubs[len(mubs)-1]
		n := mubs[len(mubs)-2]
		mubs = append(mubs[:len(mubs)-2], c.minimalUpperBounds(n, m)...)
	}
}
