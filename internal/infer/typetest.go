package infer

import (
	"fmt"
	"strconv"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/ty"
)

type typeTestKey struct {
	kind      string
	lower     regions.RegionVid
	locations constraints.Locations
}

// checkTypeTests evaluates every type test against the solved values. In
// closure mode a failing test may be promoted into requirements instead.
func (cx *Context) checkTypeTests(reqs *[]ClosureOutlivesRequirement, errs *RegionErrors) {
	span := cx.beginPass("type_tests")
	seen := make(map[typeTestKey]struct{})
	failed := 0
	for _, tt := range cx.typeTests {
		if cx.evalVerifyBound(tt.GenericKind.ToTy(), tt.LowerBound, tt.VerifyBound) {
			continue
		}
		if reqs != nil && cx.tryPromoteTypeTest(tt, reqs) {
			continue
		}
		key := typeTestKey{kind: tt.GenericKind.Erased().String(), lower: tt.LowerBound, locations: tt.Locations}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		failed++
		*errs = append(*errs, TypeTestError{TypeTest: tt})
	}
	span.WithExtra("tests", strconv.Itoa(len(cx.typeTests))).
		WithExtra("failed", strconv.Itoa(failed)).
		End("")
}

// tryPromoteTypeTest rewrites a failing test in terms of the creator's
// regions. It fails when the type mentions a region with no such name.
func (cx *Context) tryPromoteTypeTest(tt constraints.TypeTest, reqs *[]ClosureOutlivesRequirement) bool {
	generic := tt.GenericKind.ToTy()
	subject, ok := cx.tryPromoteTypeTestSubject(generic)
	if !ok {
		return false
	}
	for _, ur := range cx.values.UniversalRegionsOutlivedBy(cx.sccs.SccOf(tt.LowerBound)) {
		// A universal region the test already holds for needs no requirement.
		if cx.evalVerifyBound(generic, ur, tt.VerifyBound) {
			continue
		}
		for _, upper := range cx.relations.NonLocalUpperBounds(ur) {
			*reqs = append(*reqs, ClosureOutlivesRequirement{
				Subject:            SubjectTy(subject),
				OutlivedFreeRegion: upper,
				BlameSpan:          tt.Locations.Span(cx.body),
				Category:           constraints.CategoryBoring,
			})
		}
	}
	return true
}

// tryPromoteTypeTestSubject replaces each region of t by a named non-local
// universal region equal to it, if there is one.
func (cx *Context) tryPromoteTypeTestSubject(t ty.Ty) (ty.Ty, bool) {
	out := ty.FoldRegions(t, func(r ty.Region) ty.Region {
		vid := cx.universal.ToRegionVid(r)
		upper := cx.nonLocalUniversalUpperBound(vid)
		if !cx.RegionContains(vid, regions.UniversalElement(upper)) {
			return r
		}
		if upper == cx.universal.Static() {
			return ty.ReStatic()
		}
		if name := cx.definitions[upper].ExternalName; name != "" {
			return ty.ReNamed(name)
		}
		return r
	})
	if ty.HasInferRegions(out) {
		return ty.Ty{}, false
	}
	return out, true
}

func (cx *Context) evalVerifyBound(generic ty.Ty, lower regions.RegionVid, b constraints.VerifyBound) bool {
	switch b.Kind {
	case constraints.BoundIfEq:
		if !ty.Equal(cx.normalizeToSccRepresentatives(generic), cx.normalizeToSccRepresentatives(b.Ty)) {
			return false
		}
		return cx.evalVerifyBound(generic, lower, b.Inner[0])
	case constraints.BoundIsEmpty:
		return cx.values.IsEmpty(cx.sccs.SccOf(lower))
	case constraints.BoundOutlivedBy:
		return cx.evalOutlives(cx.universal.ToRegionVid(b.Region), lower)
	case constraints.BoundAny:
		for _, inner := range b.Inner {
			if cx.evalVerifyBound(generic, lower, inner) {
				return true
			}
		}
		return false
	case constraints.BoundAll:
		for _, inner := range b.Inner {
			if !cx.evalVerifyBound(generic, lower, inner) {
				return false
			}
		}
		return true
	default:
		panic(fmt.Errorf("unknown verify bound kind %d", b.Kind))
	}
}

// normalizeToSccRepresentatives maps every region of t to the smallest
// region of its SCC. Equal results imply equal types; the converse does
// not hold.
func (cx *Context) normalizeToSccRepresentatives(t ty.Ty) ty.Ty {
	return ty.FoldRegions(t, func(r ty.Region) ty.Region {
		vid := cx.universal.ToRegionVid(r)
		return ty.ReVar(cx.sccRepresentatives[cx.sccs.SccOf(vid)])
	})
}

// evalEqual reports whether r1 and r2 outlive each other.
func (cx *Context) evalEqual(r1, r2 regions.RegionVid) bool {
	return cx.evalOutlives(r1, r2) && cx.evalOutlives(r2, r1)
}

// evalOutlives reports whether sup: sub holds for the solved values.
func (cx *Context) evalOutlives(sup, sub regions.RegionVid) bool {
	supScc, subScc := cx.sccs.SccOf(sup), cx.sccs.SccOf(sub)
	supUniversals := cx.values.UniversalRegionsOutlivedBy(supScc)
	for _, r1 := range cx.values.UniversalRegionsOutlivedBy(subScc) {
		found := false
		for _, r2 := range supUniversals {
			if cx.relations.Outlives(r2, r1) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	// A universal region contains every point.
	if cx.universal.IsUniversalRegion(sup) {
		return true
	}
	return cx.values.ContainsPoints(supScc, subScc)
}

// EvalOutlives exposes the solved sup: sub check.
func (cx *Context) EvalOutlives(sup, sub regions.RegionVid) bool {
	cx.checkVid(sup)
	cx.checkVid(sub)
	return cx.evalOutlives(sup, sub)
}
