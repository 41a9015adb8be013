package infer_test

import (
	"testing"

	"regionck/internal/constraints"
	"regionck/internal/infer"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/testkit"
	"regionck/internal/trace"
	"regionck/internal/universal"
)

// bodySpans gives every point a one-byte span at block*100+statement.
type bodySpans struct{}

func (bodySpans) SpanOf(loc regions.Location) source.Span {
	start := loc.Block*100 + loc.Statement
	return source.Span{Start: start, End: start + 1}
}

// problem assembles one inference input. Universal regions are laid out as
// 'static, the external names, the local names, then 'body.
type problem struct {
	t        *testing.T
	classes  []universal.Classification
	names    []string
	infos    []regions.VarInfo
	byName   map[string]regions.RegionVid
	facts    []universal.Fact
	set      constraints.Set
	members  *constraints.MemberConstraintSet[regions.RegionVid]
	tests    []constraints.TypeTest
	elements *regions.Elements
	live     *regions.LivenessValues
	bounds   infer.ClosureBoundsMapping
	subset   []infer.SubsetError
	tracer   trace.Tracer
}

func newProblem(t *testing.T, blocks []int, external, local []string) *problem {
	t.Helper()
	p := &problem{
		t:        t,
		byName:   make(map[string]regions.RegionVid),
		members:  constraints.NewMemberConstraintSet[regions.RegionVid](),
		elements: regions.NewElements(blocks),
	}
	p.live = regions.NewLivenessValues(p.elements)
	p.universal("'static", universal.Global)
	for _, n := range external {
		p.universal(n, universal.External)
	}
	for _, n := range local {
		p.universal(n, universal.Local)
	}
	p.universal("'body", universal.Local)
	return p
}

func (p *problem) universal(name string, class universal.Classification) {
	v := regions.VidFromInt(len(p.infos))
	p.classes = append(p.classes, class)
	p.names = append(p.names, name)
	p.infos = append(p.infos, regions.VarInfo{Universe: regions.RootUniverse, Origin: regions.FreeRegion()})
	p.byName[name] = v
}

func (p *problem) vid(name string) regions.RegionVid {
	p.t.Helper()
	v, ok := p.byName[name]
	if !ok {
		p.t.Fatalf("unknown region %s", name)
	}
	return v
}

func (p *problem) existential() regions.RegionVid {
	v := regions.VidFromInt(len(p.infos))
	p.infos = append(p.infos, regions.VarInfo{Universe: regions.RootUniverse, Origin: regions.Existential(false)})
	return v
}

func (p *problem) placeholder(u regions.Universe, bound uint32) regions.RegionVid {
	v := regions.VidFromInt(len(p.infos))
	ph := regions.PlaceholderRegion{Universe: u, Bound: bound}
	p.infos = append(p.infos, regions.VarInfo{Universe: u, Origin: regions.Placeholder(ph)})
	return v
}

func (p *problem) relate(sup, sub regions.RegionVid) {
	p.facts = append(p.facts, universal.Fact{Sup: sup, Sub: sub})
}

func (p *problem) outlives(sup, sub regions.RegionVid, cat constraints.Category) {
	locs := constraints.All(source.Span{Start: uint32(sup), End: uint32(sub)})
	if p.elements.NumPoints() > 0 {
		locs = constraints.Single(regions.Location{})
	}
	p.set.Push(constraints.OutlivesConstraint{Sup: sup, Sub: sub, Locations: locs, Category: cat})
}

func (p *problem) outlivesAt(sup, sub regions.RegionVid, cat constraints.Category, loc regions.Location) {
	p.set.Push(constraints.OutlivesConstraint{Sup: sup, Sub: sub, Locations: constraints.Single(loc), Category: cat})
}

func (p *problem) liveAt(r regions.RegionVid, loc regions.Location) {
	p.live.AddElement(r, loc)
}

func (p *problem) input() infer.Input {
	p.t.Helper()
	ur, err := universal.NewRegions(p.classes, p.names, p.vid("'body"))
	if err != nil {
		p.t.Fatalf("NewRegions: %v", err)
	}
	b := universal.NewBuilder(ur)
	for _, f := range p.facts {
		b.Relate(f.Sup, f.Sub)
	}
	return infer.Input{
		VarInfos:      p.infos,
		Universal:     ur,
		Relations:     b.Freeze(),
		Constraints:   &p.set,
		Members:       p.members,
		ClosureBounds: p.bounds,
		TypeTests:     p.tests,
		Liveness:      p.live,
		Elements:      p.elements,
		Body:          bodySpans{},
		SubsetErrors:  p.subset,
		Tracer:        p.tracer,
	}
}

func (p *problem) build() *infer.Context {
	p.t.Helper()
	cx, err := infer.New(p.input())
	if err != nil {
		p.t.Fatalf("New: %v", err)
	}
	return cx
}

// solve builds, solves and checks the structural invariants.
func (p *problem) solve(closure bool) (*infer.Context, *infer.ClosureRegionRequirements, infer.RegionErrors) {
	p.t.Helper()
	cx := p.build()
	reqs, errs := cx.Solve(closure)
	if err := testkit.CheckSolvedInvariants(cx); err != nil {
		p.t.Fatalf("invariants: %v", err)
	}
	return cx, reqs, errs
}

func errorsOf[T infer.RegionErrorKind](errs infer.RegionErrors) []T {
	var out []T
	for _, e := range errs {
		if v, ok := e.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
