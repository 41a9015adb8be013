package infer

import (
	"fmt"
	"slices"
	"strconv"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/trace"
)

// propagate computes the least values satisfying every outlives
// constraint, visiting each SCC once after all of its successors.
func (cx *Context) propagate() {
	span := cx.beginPass("propagate")
	visited := regions.NewBitSet(cx.sccs.NumSccs())
	for _, scc := range cx.sccs.AllSccs() {
		cx.propagateScc(visited, scc, span)
	}
	slices.SortStableFunc(cx.applied, func(a, b AppliedMemberConstraint) int {
		return int(a.MemberRegionScc) - int(b.MemberRegionScc)
	})
	span.WithExtra("sccs", strconv.Itoa(cx.sccs.NumSccs())).
		WithExtra("applied_members", strconv.Itoa(len(cx.applied))).
		End("")
}

func (cx *Context) propagateScc(visited *regions.BitSet, a constraints.SccIndex, span *trace.Span) {
	if !visited.Insert(int(a)) {
		return
	}
	for _, b := range cx.sccs.Successors(a) {
		cx.propagateScc(visited, b, span)
		if cx.universeCompatible(b, a) {
			cx.values.AddRegion(a, b)
		} else {
			cx.addIncompatibleUniverse(a)
		}
	}
	for _, idx := range cx.members.Indices(a) {
		cx.applyMemberConstraint(a, idx)
	}
	if cx.traceRegions() {
		trace.Point(cx.tracer, trace.ScopeRegion, a.String(), span.ID(), cx.values.RegionValueStr(a))
	}
}

// universeCompatible reports whether scc a can absorb the value of scc b,
// i.e. a's universe can name every placeholder in b.
func (cx *Context) universeCompatible(b, a constraints.SccIndex) bool {
	ua := cx.sccUniverses[a]
	if ua.CanName(cx.sccUniverses[b]) {
		return true
	}
	for _, p := range cx.values.PlaceholdersContainedIn(b) {
		if !ua.CanName(p.Universe) {
			return false
		}
	}
	return true
}

// applyMemberConstraint narrows the choices of one member constraint and, if
// a single least choice remains, adds it to scc. It reports whether scc grew.
func (cx *Context) applyMemberConstraint(scc constraints.SccIndex, idx constraints.MemberIndex) bool {
	mc := cx.members.At(idx)
	for _, c := range mc.ChoiceRegions {
		if !cx.universal.IsUniversalRegion(c) {
			panic(fmt.Errorf("member constraint %d has non-universal choice %s", idx, c))
		}
	}
	if cx.sccUniverses[scc] != regions.RootUniverse {
		panic(fmt.Errorf("member region %s is in universe %s, want root", scc, cx.sccUniverses[scc]))
	}

	choices := slices.Clone(mc.ChoiceRegions)

	// The choice must outlive every universal region already in scc.
	for _, lb := range cx.values.UniversalRegionsOutlivedBy(scc) {
		choices = slices.DeleteFunc(choices, func(c regions.RegionVid) bool {
			return !cx.relations.Outlives(c, lb)
		})
	}
	// And it must be outlived by every universal region that outlives scc.
	for _, ub := range cx.reverseSccGraph().UpperBounds(scc) {
		choices = slices.DeleteFunc(choices, func(c regions.RegionVid) bool {
			return !cx.relations.Outlives(ub, c)
		})
	}
	if len(choices) == 0 {
		return false
	}

	best := choices[0]
	for _, c := range choices[1:] {
		r1OutlivesR2 := cx.relations.Outlives(best, c)
		r2OutlivesR1 := cx.relations.Outlives(c, best)
		switch {
		case r1OutlivesR2 && r2OutlivesR1:
			best = min(best, c)
		case r1OutlivesR2:
			best = c
		case r2OutlivesR1:
		default:
			return false
		}
	}

	if !cx.values.AddRegion(scc, cx.sccs.SccOf(best)) {
		return false
	}
	cx.applied = append(cx.applied, AppliedMemberConstraint{
		MemberRegionScc:       scc,
		MinChoice:             best,
		MemberConstraintIndex: idx,
	})
	return true
}

func (cx *Context) traceRegions() bool {
	return trace.Wants(cx.tracer, trace.ScopeRegion)
}
