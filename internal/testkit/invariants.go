package testkit

import (
	"fmt"
	"slices"

	"regionck/internal/constraints"
	"regionck/internal/infer"
	"regionck/internal/regions"
	"regionck/internal/trace"
)

// CheckSolvedInvariants runs the structural checks that must hold after
// Solve on any input:
// 1) every SCC contains the values of its successors, unless it was grown to
// 'static plus every point by a universe mismatch
// 2) every placeholder whose SCC can name it is contained in its SCC
// 3) every SCC representative belongs to its SCC
func CheckSolvedInvariants(cx *infer.Context) error {
	if cx == nil {
		return fmt.Errorf("nil context")
	}
	if !cx.Solved() {
		return fmt.Errorf("context not solved")
	}
	sccs := cx.Sccs()
	values := cx.SccValues()
	static := regions.UniversalElement(cx.UniversalRegions().Static())
	numPoints := values.Elements().NumPoints()

	// 1) successor containment
	for _, a := range sccs.AllSccs() {
		for _, b := range sccs.Successors(a) {
			if containsAll(values, a, b) {
				continue
			}
			if values.Contains(a, static) && len(values.LocationsOutlivedBy(a)) == numPoints {
				continue
			}
			return fmt.Errorf("%s does not contain its successor %s: %s vs %s",
				a, b, values.RegionValueStr(a), values.RegionValueStr(b))
		}
	}

	// 2) placeholders stay in their own SCC
	for i := range cx.NumRegions() {
		r := regions.VidFromInt(i)
		def := cx.RegionDefinition(r)
		if def.Origin.Kind != regions.OriginPlaceholder {
			continue
		}
		scc := sccs.SccOf(r)
		if !cx.SccUniverse(scc).CanName(def.Origin.Placeholder.Universe) {
			continue
		}
		if !slices.Contains(values.PlaceholdersContainedIn(scc), def.Origin.Placeholder) {
			return fmt.Errorf("placeholder %s missing from %s = %s", def.Origin.Placeholder, scc, values.RegionValueStr(scc))
		}
	}

	// 3) representatives
	for _, s := range sccs.AllSccs() {
		rep := cx.SccRepresentative(s)
		if got := sccs.SccOf(rep); got != s {
			return fmt.Errorf("representative %s of %s belongs to %s", rep, s, got)
		}
		if members := sccs.Members(s); len(members) == 0 || members[0] != rep {
			return fmt.Errorf("representative %s of %s is not its smallest member %v", rep, s, members)
		}
	}
	return nil
}

func containsAll(values *regions.Values[constraints.SccIndex], sup, sub constraints.SccIndex) bool {
	for _, e := range values.ElementsContainedIn(sub) {
		if !values.Contains(sup, e) {
			return false
		}
	}
	return true
}

// CheckVisitedOnce inspects the per-SCC events of a debug-level trace and
// fails if propagation visited some SCC more than once.
func CheckVisitedOnce(events []trace.Event) error {
	seen := make(map[string]int)
	for _, ev := range events {
		if ev.Kind != trace.KindPoint || ev.Scope != trace.ScopeRegion {
			continue
		}
		seen[ev.Name]++
		if seen[ev.Name] > 1 {
			return fmt.Errorf("%s visited %d times", ev.Name, seen[ev.Name])
		}
	}
	return nil
}
