package infer

import (
	"fmt"
	"slices"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/source"
)

type traceKind uint8

const (
	traceNotVisited traceKind = iota
	traceStart
	traceFromConstraint
)

type bfsTrace struct {
	kind       traceKind
	constraint constraints.OutlivesConstraint
}

// FindConstraintPathsBetweenRegions searches breadth first from from for a
// region satisfying target and returns the constraints along the shortest
// path to it, in order, together with the region found.
func (cx *Context) FindConstraintPathsBetweenRegions(from regions.RegionVid, target func(regions.RegionVid) bool) ([]constraints.OutlivesConstraint, regions.RegionVid, bool) {
	cx.checkVid(from)
	traces := make([]bfsTrace, len(cx.definitions))
	traces[from] = bfsTrace{kind: traceStart}
	queue := []regions.RegionVid{from}
	static := cx.universal.Static()

	for len(queue) > 0 {
		r := queue[0]
		queue = queue[1:]

		if target(r) {
			var path []constraints.OutlivesConstraint
			for p := r; ; {
				switch t := traces[p]; t.kind {
				case traceStart:
					slices.Reverse(path)
					return path, r, true
				case traceFromConstraint:
					path = append(path, t.constraint)
					p = t.constraint.Sup
				default:
					panic(fmt.Errorf("blame path reached unvisited region %s", p))
				}
			}
		}

		visit := func(c constraints.OutlivesConstraint) {
			if traces[c.Sub].kind == traceNotVisited {
				traces[c.Sub] = bfsTrace{kind: traceFromConstraint, constraint: c}
				queue = append(queue, c.Sub)
			}
		}
		if r == static {
			// 'static outlives everything.
			for i := range cx.definitions {
				visit(constraints.OutlivesConstraint{
					Sup:       static,
					Sub:       regions.VidFromInt(i),
					Locations: constraints.All(source.Span{}),
					Category:  constraints.CategoryInternal,
				})
			}
		} else {
			for _, idx := range cx.graph.Outgoing(r) {
				visit(cx.constraints.At(idx))
			}
		}
		for _, applied := range cx.AppliedMemberConstraints(r) {
			mc := cx.members.At(applied.MemberConstraintIndex)
			visit(constraints.OutlivesConstraint{
				Sup:       r,
				Sub:       applied.MinChoice,
				Locations: constraints.All(mc.DefinitionSpan),
				Category:  constraints.CategoryOpaqueType,
			})
		}
	}
	return nil, 0, false
}

// Blame is the category and span chosen to explain a violation. FromClosure
// is set when it was recovered from a nested closure's requirements.
type Blame struct {
	Category    constraints.Category
	FromClosure bool
	Span        source.Span
}

// BestBlameConstraint picks the most interesting constraint on the path
// from from to a region satisfying target.
func (cx *Context) BestBlameConstraint(from regions.RegionVid, origin regions.Origin, target func(regions.RegionVid) bool) (constraints.Category, bool, source.Span) {
	b, ok := cx.TryBestBlameConstraint(from, origin, target)
	if !ok {
		panic(fmt.Errorf("no constraint path from %s", from))
	}
	return b.Category, b.FromClosure, b.Span
}

// TryBestBlameConstraint is BestBlameConstraint for callers that can live
// without a path: ok is false when no region satisfying target is reachable.
func (cx *Context) TryBestBlameConstraint(from regions.RegionVid, origin regions.Origin, target func(regions.RegionVid) bool) (Blame, bool) {
	path, targetRegion, ok := cx.FindConstraintPathsBetweenRegions(from, target)
	if !ok {
		return Blame{}, false
	}
	return cx.bestBlame(path, targetRegion, origin), true
}

func (cx *Context) bestBlame(path []constraints.OutlivesConstraint, targetRegion regions.RegionVid, origin regions.Origin) Blame {
	categorized := make([]Blame, len(path))
	for i, c := range path {
		if c.Category == constraints.CategoryClosureBounds {
			categorized[i] = cx.retrieveClosureConstraintInfo(c)
		} else {
			categorized[i] = Blame{Category: c.Category, Span: c.Locations.Span(cx.body)}
		}
	}
	if len(categorized) == 0 {
		return Blame{Category: constraints.CategoryBoring}
	}

	blameSource := origin.Kind == regions.OriginFreeRegion ||
		(origin.Kind == regions.OriginExistential && !origin.FromForall)
	targetScc := cx.sccs.SccOf(targetRegion)

	interesting := func(i int) bool {
		cat := categorized[i].Category
		if cat.IsBoring() {
			return false
		}
		if !blameSource {
			return true
		}
		switch cat {
		case constraints.CategoryTypeAnnotation, constraints.CategoryReturn, constraints.CategoryYield:
			return true
		default:
			return cx.sccs.SccOf(path[i].Sup) != targetScc
		}
	}

	best := -1
	if blameSource {
		for i := len(path) - 1; i >= 0; i-- {
			if interesting(i) {
				best = i
				break
			}
		}
	} else {
		for i := range path {
			if interesting(i) {
				best = i
				break
			}
		}
	}
	if best >= 0 {
		// Blame the opaque return type rather than the returned expression.
		if best+1 < len(categorized) &&
			categorized[best].Category == constraints.CategoryReturn &&
			categorized[best+1].Category == constraints.CategoryOpaqueType {
			return categorized[best+1]
		}
		return categorized[best]
	}

	slices.SortStableFunc(categorized, func(a, b Blame) int {
		return int(a.Category) - int(b.Category)
	})
	return categorized[0]
}

// RetrieveClosureConstraintInfo recovers the original blame of an edge
// introduced by a closure's requirements.
func (cx *Context) RetrieveClosureConstraintInfo(c constraints.OutlivesConstraint) (constraints.Category, bool, source.Span) {
	b := cx.retrieveClosureConstraintInfo(c)
	return b.Category, b.FromClosure, b.Span
}

func (cx *Context) retrieveClosureConstraintInfo(c constraints.OutlivesConstraint) Blame {
	loc, single := c.Locations.Location()
	if !single {
		return Blame{Category: c.Category, Span: c.Locations.Span(cx.body)}
	}
	if bound, ok := cx.closureBounds[loc][ClosureBoundKey{Sup: c.Sup, Sub: c.Sub}]; ok {
		return Blame{Category: bound.Category, FromClosure: true, Span: bound.Span}
	}
	return Blame{Category: c.Category, Span: c.Locations.Span(cx.body)}
}

// FindOutlivesBlameSpan blames the failure of longer: shorter.
func (cx *Context) FindOutlivesBlameSpan(longer regions.RegionVid, origin regions.Origin, shorter regions.RegionVid) (constraints.Category, bool, source.Span) {
	return cx.BestBlameConstraint(longer, origin, func(r regions.RegionVid) bool {
		return cx.ProvidesUniversalRegion(r, longer, shorter)
	})
}

// TryFindOutlivesBlameSpan is FindOutlivesBlameSpan without the panic.
// Supplied subset errors may name pairs with no constraint path between
// them.
func (cx *Context) TryFindOutlivesBlameSpan(longer regions.RegionVid, origin regions.Origin, shorter regions.RegionVid) (Blame, bool) {
	return cx.TryBestBlameConstraint(longer, origin, func(r regions.RegionVid) bool {
		return cx.ProvidesUniversalRegion(r, longer, shorter)
	})
}

// ProvidesUniversalRegion reports whether reaching r explains why fr1 must
// outlive fr2: r is fr2 itself, or fr2 is 'static and r is a placeholder
// fr1 cannot name.
func (cx *Context) ProvidesUniversalRegion(r, fr1, fr2 regions.RegionVid) bool {
	return r == fr2 || (fr2 == cx.universal.Static() && cx.CannotNamePlaceholder(fr1, r))
}

// CannotNamePlaceholder reports whether r2 is a placeholder from a universe
// r1 cannot name.
func (cx *Context) CannotNamePlaceholder(r1, r2 regions.RegionVid) bool {
	def := cx.RegionDefinition(r2)
	if def.Origin.Kind != regions.OriginPlaceholder {
		return false
	}
	return cx.RegionDefinition(r1).Universe.CannotName(def.Origin.Placeholder.Universe)
}

// RegionFromElement names a region responsible for elem being in the value
// of longer.
func (cx *Context) RegionFromElement(longer regions.RegionVid, elem regions.RegionElement) regions.RegionVid {
	switch elem.Kind {
	case regions.ElementLocation:
		return cx.FindSubRegionLiveAt(longer, elem.Location)
	case regions.ElementRootUniversal:
		return elem.Region
	case regions.ElementPlaceholder:
		for i, def := range cx.definitions {
			if def.Origin.Kind == regions.OriginPlaceholder && def.Origin.Placeholder == elem.Placeholder {
				return regions.VidFromInt(i)
			}
		}
		panic(fmt.Errorf("no region for placeholder %s", elem.Placeholder))
	default:
		panic(fmt.Errorf("unknown region element kind %d", elem.Kind))
	}
}

// FindSubRegionLiveAt finds a region outlived by fr1 that is live at loc,
// falling back to placeholders that force fr1 to grow.
func (cx *Context) FindSubRegionLiveAt(fr1 regions.RegionVid, loc regions.Location) regions.RegionVid {
	tests := []func(regions.RegionVid) bool{
		func(r regions.RegionVid) bool { return cx.liveness.Contains(r, loc) },
		func(r regions.RegionVid) bool { return cx.CannotNamePlaceholder(fr1, r) },
		func(r regions.RegionVid) bool {
			return cx.sccs.SccOf(r) == cx.sccs.SccOf(fr1) && cx.CannotNamePlaceholder(r, fr1)
		},
	}
	for _, test := range tests {
		if _, r, ok := cx.FindConstraintPathsBetweenRegions(fr1, test); ok {
			return r
		}
	}
	panic(fmt.Errorf("no region outlived by %s is live at %s", fr1, loc))
}
