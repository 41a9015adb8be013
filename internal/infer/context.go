package infer

import (
	"fmt"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/trace"
	"regionck/internal/universal"
)

// ClosureBoundKey identifies an outlives edge inside a closure-bounds entry.
type ClosureBoundKey struct {
	Sup, Sub regions.RegionVid
}

// ClosureBound is the category and span of a requirement propagated out of
// a nested closure.
type ClosureBound struct {
	Category constraints.Category
	Span     source.Span
}

// ClosureBoundsMapping maps a closure call site to the original blame of the
// edges it introduced.
type ClosureBoundsMapping map[regions.Location]map[ClosureBoundKey]ClosureBound

// SubsetError is a pre-computed "longer does not outlive shorter" pair from
// an external solver. When present, universal-region checking is replaced by
// these pairs.
type SubsetError struct {
	Location regions.Location
	Longer   regions.RegionVid
	Shorter  regions.RegionVid
}

// Input is everything type-checking hands over for one body.
type Input struct {
	VarInfos      []regions.VarInfo
	Universal     *universal.Regions
	Placeholders  *regions.PlaceholderIndices
	Relations     *universal.Relations
	Constraints   *constraints.Set
	Members       *constraints.MemberConstraintSet[regions.RegionVid]
	ClosureBounds ClosureBoundsMapping
	TypeTests     []constraints.TypeTest
	Liveness      *regions.LivenessValues
	Elements      *regions.Elements

	// Body resolves single-point locations to spans; optional.
	Body constraints.SpanSource
	// SubsetErrors switches error detection to the supplied pairs when non-nil.
	SubsetErrors []SubsetError
	Tracer       trace.Tracer
	// TraceParent is the span the engine passes nest under.
	TraceParent uint64
}

// AppliedMemberConstraint records that a member constraint narrowed the
// value of MemberRegionScc to include MinChoice.
type AppliedMemberConstraint struct {
	MemberRegionScc       constraints.SccIndex
	MinChoice             regions.RegionVid
	MemberConstraintIndex constraints.MemberIndex
}

// Context is the region inference state of one body. It is single use:
// build it with New, call Solve once, then query it.
type Context struct {
	definitions []regions.Definition
	liveness    *regions.LivenessValues
	elements    *regions.Elements

	constraints *constraints.Set
	graph       *constraints.Graph
	sccs        *constraints.Sccs
	revScc      *constraints.ReverseSccGraph

	memberVids *constraints.MemberConstraintSet[regions.RegionVid]
	members    *constraints.MemberConstraintSet[constraints.SccIndex]
	applied    []AppliedMemberConstraint

	closureBounds ClosureBoundsMapping

	sccUniverses       []regions.Universe
	sccRepresentatives []regions.RegionVid
	values             *regions.Values[constraints.SccIndex]

	typeTests    []constraints.TypeTest
	universal    *universal.Regions
	relations    *universal.Relations
	placeholders *regions.PlaceholderIndices
	body         constraints.SpanSource
	subsetErrors []SubsetError

	tracer      trace.Tracer
	traceParent uint64
	solved      bool
}

// New builds the constraint graph, its SCCs and the initial SCC values.
func New(in Input) (*Context, error) {
	if in.Universal == nil || in.Relations == nil || in.Elements == nil {
		return nil, fmt.Errorf("infer: universal regions, relations and elements are required")
	}
	n := len(in.VarInfos)
	if n < in.Universal.Len() {
		return nil, fmt.Errorf("infer: %d region variables but %d universal regions", n, in.Universal.Len())
	}
	set := in.Constraints
	if set == nil {
		set = &constraints.Set{}
	}
	for _, c := range set.All() {
		if int(c.Sup) >= n || int(c.Sub) >= n {
			return nil, fmt.Errorf("infer: constraint %s mentions an unknown region", c)
		}
	}
	liveness := in.Liveness
	if liveness == nil {
		liveness = regions.NewLivenessValues(in.Elements)
	}
	placeholders := in.Placeholders
	if placeholders == nil {
		placeholders = regions.NewPlaceholderIndices()
	}

	defs := make([]regions.Definition, n)
	for i, info := range in.VarInfos {
		defs[i] = regions.NewDefinition(info)
		if info.Origin.Kind == regions.OriginPlaceholder {
			placeholders.Insert(info.Origin.Placeholder)
		}
	}

	graph, sccs := set.Sccs(n)
	cx := &Context{
		definitions:   defs,
		liveness:      liveness,
		elements:      in.Elements,
		constraints:   set,
		graph:         graph,
		sccs:          sccs,
		memberVids:    in.Members,
		closureBounds: in.ClosureBounds,
		values:        regions.NewValues[constraints.SccIndex](in.Elements, in.Universal.Len(), placeholders),
		typeTests:     in.TypeTests,
		universal:     in.Universal,
		relations:     in.Relations,
		placeholders:  placeholders,
		body:          in.Body,
		subsetErrors:  in.SubsetErrors,
		tracer:        in.Tracer,
		traceParent:   in.TraceParent,
	}
	if cx.memberVids == nil {
		cx.memberVids = constraints.NewMemberConstraintSet[regions.RegionVid]()
	}
	cx.members = constraints.MapMemberConstraints(cx.memberVids, sccs.SccOf)

	for _, r := range liveness.Rows() {
		if int(r) >= n {
			return nil, fmt.Errorf("infer: liveness mentions unknown region %s", r)
		}
		cx.values.MergeLiveness(sccs.SccOf(r), r, liveness)
	}

	cx.computeSccUniverses()
	cx.computeSccRepresentatives()
	cx.initFreeAndBoundRegions()
	return cx, nil
}

func (cx *Context) computeSccUniverses() {
	cx.sccUniverses = make([]regions.Universe, cx.sccs.NumSccs())
	for i := range cx.sccUniverses {
		cx.sccUniverses[i] = regions.MaxUniverse
	}
	for i, def := range cx.definitions {
		scc := cx.sccs.SccOf(regions.VidFromInt(i))
		cx.sccUniverses[scc] = min(cx.sccUniverses[scc], def.Universe)
	}
}

func (cx *Context) computeSccRepresentatives() {
	cx.sccRepresentatives = make([]regions.RegionVid, cx.sccs.NumSccs())
	for _, scc := range cx.sccs.AllSccs() {
		cx.sccRepresentatives[scc] = cx.sccs.Representative(scc)
	}
}

// initFreeAndBoundRegions seeds universal regions with every point and
// their own end, and placeholders with themselves when their SCC can name
// them.
func (cx *Context) initFreeAndBoundRegions() {
	for _, named := range cx.universal.NamedUniversalRegions() {
		cx.definitions[named.Vid].ExternalName = named.Name
	}
	for i, def := range cx.definitions {
		v := regions.VidFromInt(i)
		scc := cx.sccs.SccOf(v)
		switch def.Origin.Kind {
		case regions.OriginFreeRegion:
			cx.liveness.AddAllPoints(v)
			cx.values.AddAllPoints(scc)
			cx.values.AddElement(scc, regions.UniversalElement(v))
		case regions.OriginPlaceholder:
			p := def.Origin.Placeholder
			if cx.sccUniverses[scc].CanName(p.Universe) {
				cx.values.AddElement(scc, regions.PlaceholderElement(p))
			} else {
				cx.addIncompatibleUniverse(scc)
			}
		case regions.OriginExistential:
		}
	}
}

// addIncompatibleUniverse grows scc to every point plus 'static.
func (cx *Context) addIncompatibleUniverse(scc constraints.SccIndex) {
	cx.values.AddAllPoints(scc)
	cx.values.AddElement(scc, regions.UniversalElement(cx.universal.Static()))
}

// beginPass opens the trace span of one engine pass.
func (cx *Context) beginPass(name string) *trace.Span {
	return trace.Begin(cx.tracer, trace.ScopePass, "region."+name, cx.traceParent)
}

func (cx *Context) checkVid(r regions.RegionVid) {
	if int(r) >= len(cx.definitions) {
		panic(fmt.Errorf("region %s out of range (%d regions)", r, len(cx.definitions)))
	}
}

// NumRegions is the number of region variables.
func (cx *Context) NumRegions() int { return len(cx.definitions) }

// RegionDefinition returns the definition of r.
func (cx *Context) RegionDefinition(r regions.RegionVid) regions.Definition {
	cx.checkVid(r)
	return cx.definitions[r]
}

func (cx *Context) UniversalRegions() *universal.Regions { return cx.universal }

func (cx *Context) Relations() *universal.Relations { return cx.relations }

func (cx *Context) Sccs() *constraints.Sccs { return cx.sccs }

func (cx *Context) Constraints() *constraints.Set { return cx.constraints }

// SccValues exposes the per-SCC value store read-only for checkers.
func (cx *Context) SccValues() *regions.Values[constraints.SccIndex] { return cx.values }

// SccUniverse is the smallest universe among the members of scc.
func (cx *Context) SccUniverse(scc constraints.SccIndex) regions.Universe {
	return cx.sccUniverses[scc]
}

// SccRepresentative is the smallest region of scc.
func (cx *Context) SccRepresentative(scc constraints.SccIndex) regions.RegionVid {
	return cx.sccRepresentatives[scc]
}

// RegionContains reports whether the value of r contains elem.
func (cx *Context) RegionContains(r regions.RegionVid, elem regions.RegionElement) bool {
	cx.checkVid(r)
	return cx.values.Contains(cx.sccs.SccOf(r), elem)
}

// RegionValueStr renders the value of r, e.g. `{bb0[0..=2], '?1}`.
func (cx *Context) RegionValueStr(r regions.RegionVid) string {
	cx.checkVid(r)
	return cx.values.RegionValueStr(cx.sccs.SccOf(r))
}

// SpanOf resolves constraint locations against the body.
func (cx *Context) SpanOf(l constraints.Locations) source.Span {
	return l.Span(cx.body)
}

// RegionUniverse is the universe of the SCC containing r.
func (cx *Context) RegionUniverse(r regions.RegionVid) regions.Universe {
	cx.checkVid(r)
	return cx.sccUniverses[cx.sccs.SccOf(r)]
}

// AppliedMemberConstraints lists the member constraints applied to the SCC
// of r, in application order.
func (cx *Context) AppliedMemberConstraints(r regions.RegionVid) []AppliedMemberConstraint {
	scc := cx.sccs.SccOf(r)
	lo, hi := 0, len(cx.applied)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if cx.applied[mid].MemberRegionScc < scc {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	end := lo
	for end < len(cx.applied) && cx.applied[end].MemberRegionScc == scc {
		end++
	}
	return cx.applied[lo:end]
}

// UniversalUpperBound is the smallest universal region that the value of r
// is known to be contained in, starting from the fn body region.
func (cx *Context) UniversalUpperBound(r regions.RegionVid) regions.RegionVid {
	cx.checkVid(r)
	lub := cx.universal.FnBody()
	for _, ur := range cx.values.UniversalRegionsOutlivedBy(cx.sccs.SccOf(r)) {
		lub = cx.relations.PostdomUpperBound(lub, ur)
	}
	return lub
}

// UpperBoundInRegionScc reports whether the SCC of r contains the end of
// the universal region upper.
func (cx *Context) UpperBoundInRegionScc(r, upper regions.RegionVid) bool {
	return cx.values.Contains(cx.sccs.SccOf(r), regions.UniversalElement(upper))
}

// nonLocalUniversalUpperBound maps r to a region nameable by the closure's
// creator.
func (cx *Context) nonLocalUniversalUpperBound(r regions.RegionVid) regions.RegionVid {
	return cx.relations.NonLocalUpperBound(cx.UniversalUpperBound(r))
}

// reverseSccGraph is built on first use by member constraint application.
func (cx *Context) reverseSccGraph() *constraints.ReverseSccGraph {
	if cx.revScc == nil {
		cx.revScc = constraints.NewReverseSccGraph(cx.sccs, cx.universal.UniversalRegions())
	}
	return cx.revScc
}
