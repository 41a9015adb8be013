package universal

import (
	"fmt"

	"github.com/benbjohnson/immutable"

	"regionck/internal/regions"
)

var emptyFacts = immutable.NewSortedMap(nil)

// factKey packs `sup: sub` into one sortable key.
func factKey(sup, sub regions.RegionVid) int {
	return int(sup)<<32 | int(sub)
}

func splitFactKey(k int) (sup, sub regions.RegionVid) {
	return regions.RegionVid(uint32(k >> 32)), regions.RegionVid(uint32(k))
}

// Fact is one known `Sup: Sub` relation.
type Fact struct {
	Sup regions.RegionVid
	Sub regions.RegionVid
}

// Builder collects outlives facts between universal regions.
type Builder struct {
	regions *Regions
	facts   *immutable.SortedMapBuilder
}

func NewBuilder(r *Regions) *Builder {
	return &Builder{regions: r, facts: immutable.NewSortedMapBuilder(emptyFacts)}
}

// Relate records sup: sub.
func (b *Builder) Relate(sup, sub regions.RegionVid) *Builder {
	if !b.regions.IsUniversalRegion(sup) || !b.regions.IsUniversalRegion(sub) {
		panic(fmt.Errorf("relating non-universal regions %s: %s", sup, sub))
	}
	b.facts.Set(factKey(sup, sub), struct{}{})
	return b
}

// Freeze adds the facts that always hold (every region outlives itself and
// the fn body, 'static outlives every region) and computes the closure.
func (b *Builder) Freeze() *Relations {
	static, body := b.regions.Static(), b.regions.FnBody()
	for _, fr := range b.regions.UniversalRegions() {
		b.Relate(fr, fr)
		b.Relate(static, fr)
		b.Relate(fr, body)
	}
	return newRelations(b.regions, b.facts.Map())
}

// Relations answers outlives questions about universal regions. It is
// immutable; Extend returns a new oracle sharing the fact map.
type Relations struct {
	regions  *Regions
	facts    *immutable.SortedMap
	outlives *closure
	inverse  *closure
}

func newRelations(r *Regions, facts *immutable.SortedMap) *Relations {
	rel := &Relations{
		regions:  r,
		facts:    facts,
		outlives: newClosure(r.Len()),
		inverse:  newClosure(r.Len()),
	}
	it := facts.Iterator()
	for !it.Done() {
		k, _ := it.Next()
		sup, sub := splitFactKey(k.(int))
		rel.outlives.add(int(sup), int(sub))
		rel.inverse.add(int(sub), int(sup))
	}
	rel.outlives.compute()
	rel.inverse.compute()
	return rel
}

func (r *Relations) Regions() *Regions { return r.regions }

// Extend returns an oracle with the extra facts; r is unchanged.
func (r *Relations) Extend(facts ...Fact) *Relations {
	m := r.facts
	for _, f := range facts {
		if !r.regions.IsUniversalRegion(f.Sup) || !r.regions.IsUniversalRegion(f.Sub) {
			panic(fmt.Errorf("relating non-universal regions %s: %s", f.Sup, f.Sub))
		}
		m = m.Set(factKey(f.Sup, f.Sub), struct{}{})
	}
	return newRelations(r.regions, m)
}

// Facts lists the recorded facts sorted by (sup, sub).
func (r *Relations) Facts() []Fact {
	out := make([]Fact, 0, r.facts.Len())
	it := r.facts.Iterator()
	for !it.Done() {
		k, _ := it.Next()
		sup, sub := splitFactKey(k.(int))
		out = append(out, Fact{Sup: sup, Sub: sub})
	}
	return out
}

// Outlives reports whether a: b is known.
func (r *Relations) Outlives(a, b regions.RegionVid) bool {
	return r.outlives.contains(int(a), int(b))
}

// RegionsOutlivedBy lists every universal region a is known to outlive.
func (r *Relations) RegionsOutlivedBy(a regions.RegionVid) []regions.RegionVid {
	return toVids(r.outlives.row(int(a)))
}

// PostdomUpperBound returns a region known to outlive both a and b,
// falling back to 'static.
func (r *Relations) PostdomUpperBound(a, b regions.RegionVid) regions.RegionVid {
	r.assertUniversal(a)
	r.assertUniversal(b)
	mubs := r.inverse.minimalUpperBounds(int(a), int(b))
	if p, ok := r.inverse.mutualImmediatePostdominator(mubs); ok {
		return regions.VidFromInt(p)
	}
	return r.regions.Static()
}

// NonLocalUpperBounds lists the minimal non-local regions that outlive fr.
func (r *Relations) NonLocalUpperBounds(fr regions.RegionVid) []regions.RegionVid {
	out := r.nonLocalBounds(r.inverse, fr)
	if len(out) == 0 {
		panic(fmt.Errorf("no non-local upper bound for %s", fr))
	}
	return toVids(out)
}

// NonLocalUpperBound picks a single non-local region that outlives fr;
// 'static if nothing smaller works.
func (r *Relations) NonLocalUpperBound(fr regions.RegionVid) regions.RegionVid {
	bounds := r.nonLocalBounds(r.inverse, fr)
	if p, ok := r.inverse.mutualImmediatePostdominator(bounds); ok && !r.regions.IsLocalFreeRegion(regions.VidFromInt(p)) {
		return regions.VidFromInt(p)
	}
	return r.regions.Static()
}

// NonLocalLowerBound returns a non-local region outlived by fr, if any.
func (r *Relations) NonLocalLowerBound(fr regions.RegionVid) (regions.RegionVid, bool) {
	bounds := r.nonLocalBounds(r.outlives, fr)
	p, ok := r.outlives.mutualImmediatePostdominator(bounds)
	if !ok || r.regions.IsLocalFreeRegion(regions.VidFromInt(p)) {
		return 0, false
	}
	return regions.VidFromInt(p), true
}

// nonLocalBounds expands fr into its parents in rel until only non-local
// regions remain.
func (r *Relations) nonLocalBounds(rel *closure, fr regions.RegionVid) []int {
	r.assertUniversal(fr)
	var out []int
	queue := []int{int(fr)}
	for len(queue) > 0 {
		cur := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		if !r.regions.IsLocalFreeRegion(regions.VidFromInt(cur)) {
			out = append(out, cur)
			continue
		}
		queue = append(queue, rel.parents(cur)...)
	}
	return out
}

func (r *Relations) assertUniversal(fr regions.RegionVid) {
	if !r.regions.IsUniversalRegion(fr) {
		panic(fmt.Errorf("%s is not a universal region", fr))
	}
}

func toVids(xs []int) []regions.RegionVid {
	out := make([]regions.RegionVid, len(xs))
	for i, x := range xs {
		out[i] = regions.VidFromInt(x)
	}
	return out
}
