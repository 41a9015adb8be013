package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"regionck/internal/constraints"
	"regionck/internal/diag"
	"regionck/internal/infer"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/ty"
	"regionck/internal/universal"
)

// Problem is a decoded fixture ready to hand to infer.New. Input.Tracer is
// left for the caller.
type Problem struct {
	Name    string
	Closure bool
	Input   infer.Input
	Expect  *Expect

	names  []string
	byName map[string]regions.RegionVid
}

// RegionName is the fixture name of r, or '?N for anonymous regions.
func (p *Problem) RegionName(r regions.RegionVid) string {
	if int(r) < len(p.names) && p.names[r] != "" {
		return p.names[r]
	}
	return r.String()
}

// Lookup resolves a region name as written in the fixture.
func (p *Problem) Lookup(name string) (regions.RegionVid, bool) {
	name = normalizeName(name)
	if v, ok := p.byName[name]; ok {
		return v, true
	}
	if n, ok := anonymousIndex(name); ok && n < len(p.names) {
		return regions.VidFromInt(n), true
	}
	return 0, false
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

func anonymousIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "'?")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil && n >= 0
}

var kindClasses = map[string]universal.Classification{
	"global":   universal.Global,
	"external": universal.External,
	"local":    universal.Local,
}

// Build validates the fixture and assembles the inference input.
func (f *File) Build() (*Problem, error) {
	b := &builder{f: f, p: &Problem{Name: f.Name, Closure: f.Closure, Expect: f.Expect, byName: make(map[string]regions.RegionVid)}}
	steps := []func() error{
		b.layoutBody,
		b.declareRegions,
		b.relations,
		b.outlives,
		b.liveness,
		b.members,
		b.typeTests,
		b.closureBounds,
		b.subsetErrors,
		b.spans,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return b.p, nil
}

type builder struct {
	f *File
	p *Problem

	elems   *regions.Elements
	infos   []regions.VarInfo
	classes []universal.Classification
	ur      *universal.Regions
	set     constraints.Set
}

func (b *builder) layoutBody() error {
	for i, n := range b.f.Blocks {
		if n < 0 {
			return errorf(diag.FixSchema, "block bb%d has %d statements", i, n)
		}
	}
	b.elems = regions.NewElements(b.f.Blocks)
	b.p.Input.Elements = b.elems
	return nil
}

func (b *builder) declareRegions() error {
	universalDone := false
	for i, r := range b.f.Regions {
		vid := regions.VidFromInt(i)
		name := normalizeName(r.Name)
		kind := strings.ToLower(strings.TrimSpace(r.Kind))
		if kind == "" {
			kind = "existential"
		}
		info := regions.VarInfo{Universe: regions.Universe(r.Universe)}
		switch kind {
		case "global", "external", "local":
			if universalDone {
				return errorf(diag.FixSchema, "universal region %s declared after non-universal regions", displayName(name, vid))
			}
			if name == "" {
				return errorf(diag.FixSchema, "universal region %s needs a name", vid)
			}
			if info.Universe != regions.RootUniverse {
				return errorf(diag.FixSchema, "universal region %s must be in the root universe", name)
			}
			info.Origin = regions.FreeRegion()
			b.classes = append(b.classes, kindClasses[kind])
		case "existential":
			universalDone = true
			info.Origin = regions.Existential(r.FromForall)
		case "placeholder":
			universalDone = true
			if info.Universe == regions.RootUniverse {
				return errorf(diag.FixSchema, "placeholder %s needs a universe above U0", displayName(name, vid))
			}
			info.Origin = regions.Placeholder(regions.PlaceholderRegion{Universe: info.Universe, Bound: r.Bound})
		default:
			return errorf(diag.FixSchema, "region %s has unknown kind %q", displayName(name, vid), r.Kind)
		}
		if name != "" {
			if _, dup := b.p.byName[name]; dup {
				return errorf(diag.FixSchema, "region %s declared twice", name)
			}
			if n, anon := anonymousIndex(name); anon && n != i {
				return errorf(diag.FixSchema, "region %s declared at position %d", name, i)
			}
			b.p.byName[name] = vid
		}
		b.p.names = append(b.p.names, name)
		b.infos = append(b.infos, info)
	}

	fnBody, err := b.fnBody()
	if err != nil {
		return err
	}
	ur, err := universal.NewRegions(b.classes, b.p.names[:len(b.classes)], fnBody)
	if err != nil {
		return &Error{Code: diag.FixSchema, Msg: "universal regions", Err: err}
	}
	b.ur = ur
	b.p.Input.VarInfos = b.infos
	b.p.Input.Universal = ur
	return nil
}

func displayName(name string, vid regions.RegionVid) string {
	if name != "" {
		return name
	}
	return vid.String()
}

func (b *builder) fnBody() (regions.RegionVid, error) {
	if len(b.classes) == 0 {
		return 0, errorf(diag.FixSchema, "no universal regions; the first region must be 'static")
	}
	if b.f.FnBody != "" {
		v, err := b.region(b.f.FnBody)
		if err != nil {
			return 0, err
		}
		if int(v) >= len(b.classes) {
			return 0, errorf(diag.FixSchema, "fn_body %s is not universal", b.f.FnBody)
		}
		return v, nil
	}
	return regions.VidFromInt(len(b.classes) - 1), nil
}

// region resolves a fixture region name to its variable.
func (b *builder) region(name string) (regions.RegionVid, error) {
	if v, ok := b.p.Lookup(name); ok {
		return v, nil
	}
	return 0, errorf(diag.FixUnknownRegion, "unknown region %q", name)
}

// universalRegion resolves name and insists it is one of the universal
// regions; what names the table entry for the error.
func (b *builder) universalRegion(name, what string) (regions.RegionVid, error) {
	v, err := b.region(name)
	if err != nil {
		return 0, err
	}
	if !b.ur.IsUniversalRegion(v) {
		return 0, errorf(diag.FixSchema, "%s: %s is not a universal region", what, name)
	}
	return v, nil
}

// tyRegion resolves region names inside types and bounds.
func (b *builder) tyRegion(name string) (ty.Region, error) {
	switch name = normalizeName(name); name {
	case "'static":
		return ty.ReStatic(), nil
	case "'_":
		return ty.ReErased(), nil
	}
	v, err := b.region(name)
	if err != nil {
		return ty.Region{}, err
	}
	return ty.ReVar(v), nil
}

func (b *builder) parseTy(src string) (ty.Ty, error) {
	t, err := ty.Parse(src, b.tyRegion)
	if err != nil {
		if CodeOf(err) != diag.UnknownCode {
			return ty.Ty{}, err
		}
		return ty.Ty{}, &Error{Code: diag.FixBadType, Msg: "type", Err: err}
	}
	return t, nil
}

func (b *builder) relations() error {
	rb := universal.NewBuilder(b.ur)
	for _, rel := range b.f.Relations {
		sup, err := b.region(rel.Sup)
		if err != nil {
			return err
		}
		sub, err := b.region(rel.Sub)
		if err != nil {
			return err
		}
		if !b.ur.IsUniversalRegion(sup) || !b.ur.IsUniversalRegion(sub) {
			return errorf(diag.FixSchema, "relation %s: %s mentions a non-universal region", rel.Sup, rel.Sub)
		}
		rb.Relate(sup, sub)
	}
	b.p.Input.Relations = rb.Freeze()
	return nil
}

func (b *builder) location(at string) (regions.Location, error) {
	loc, err := ParseLocation(at)
	if err != nil {
		return regions.Location{}, err
	}
	if !b.elems.ValidLocation(loc) {
		return regions.Location{}, errorf(diag.FixBadLocation, "location %s is outside the body", loc)
	}
	return loc, nil
}

func (b *builder) locations(at string, span []uint32) (constraints.Locations, error) {
	if at != "" {
		loc, err := b.location(at)
		if err != nil {
			return constraints.Locations{}, err
		}
		return constraints.Single(loc), nil
	}
	sp, err := spanOf(span)
	if err != nil {
		return constraints.Locations{}, err
	}
	return constraints.All(sp), nil
}

func spanOf(xs []uint32) (source.Span, error) {
	switch {
	case len(xs) == 0:
		return source.Span{}, nil
	case len(xs) != 2 || xs[1] < xs[0]:
		return source.Span{}, errorf(diag.FixSchema, "span %v: want [start, end]", xs)
	}
	return source.Span{Start: xs[0], End: xs[1]}, nil
}

func (b *builder) outlives() error {
	for _, o := range b.f.Outlives {
		sup, err := b.region(o.Sup)
		if err != nil {
			return err
		}
		sub, err := b.region(o.Sub)
		if err != nil {
			return err
		}
		cat, err := constraints.ParseCategory(o.Category)
		if err != nil {
			return &Error{Code: diag.FixSchema, Msg: fmt.Sprintf("outlives %s: %s", o.Sup, o.Sub), Err: err}
		}
		locs, err := b.locations(o.At, o.Span)
		if err != nil {
			return err
		}
		b.set.Push(constraints.OutlivesConstraint{Sup: sup, Sub: sub, Locations: locs, Category: cat})
	}
	b.p.Input.Constraints = &b.set
	return nil
}

func (b *builder) liveness() error {
	live := regions.NewLivenessValues(b.elems)
	for _, l := range b.f.Live {
		r, err := b.region(l.Region)
		if err != nil {
			return err
		}
		for _, at := range l.At {
			locs, err := ParseLocationRange(at, b.elems)
			if err != nil {
				return err
			}
			for _, loc := range locs {
				live.AddElement(r, loc)
			}
		}
	}
	b.p.Input.Liveness = live
	return nil
}

func (b *builder) members() error {
	set := constraints.NewMemberConstraintSet[regions.RegionVid]()
	for _, m := range b.f.Members {
		member, err := b.region(m.Region)
		if err != nil {
			return err
		}
		if b.infos[member].Universe != regions.RootUniverse {
			return errorf(diag.FixSchema, "member region %s must be in the root universe", m.Region)
		}
		choices := make([]regions.RegionVid, 0, len(m.Choices))
		for _, c := range m.Choices {
			v, err := b.universalRegion(c, "member choice")
			if err != nil {
				return err
			}
			choices = append(choices, v)
		}
		var hidden ty.Ty
		if m.Hidden != "" {
			if hidden, err = b.parseTy(m.Hidden); err != nil {
				return err
			}
		}
		sp, err := spanOf(m.Span)
		if err != nil {
			return err
		}
		set.Push(constraints.MemberConstraint[regions.RegionVid]{
			OpaqueDefID:    m.Opaque,
			DefinitionSpan: sp,
			HiddenTy:       hidden,
			MemberRegion:   member,
			ChoiceRegions:  choices,
		})
	}
	b.p.Input.Members = set
	return nil
}

func (b *builder) typeTests() error {
	for _, tt := range b.f.TypeTests {
		t, err := b.parseTy(tt.Ty)
		if err != nil {
			return err
		}
		kind, err := ty.NewGenericKind(t)
		if err != nil {
			return &Error{Code: diag.FixBadType, Msg: "type test", Err: err}
		}
		lower, err := b.region(tt.Lower)
		if err != nil {
			return err
		}
		bound, err := ParseBound(tt.Bound, b.tyRegion)
		if err != nil {
			return err
		}
		locs, err := b.locations(tt.At, tt.Span)
		if err != nil {
			return err
		}
		b.p.Input.TypeTests = append(b.p.Input.TypeTests, constraints.TypeTest{
			GenericKind: kind,
			LowerBound:  lower,
			Locations:   locs,
			VerifyBound: bound,
		})
	}
	return nil
}

func (b *builder) closureBounds() error {
	if len(b.f.ClosureBounds) == 0 {
		return nil
	}
	mapping := make(infer.ClosureBoundsMapping)
	for _, cb := range b.f.ClosureBounds {
		loc, err := b.location(cb.At)
		if err != nil {
			return err
		}
		sup, err := b.region(cb.Sup)
		if err != nil {
			return err
		}
		sub, err := b.region(cb.Sub)
		if err != nil {
			return err
		}
		cat, err := constraints.ParseCategory(cb.Category)
		if err != nil {
			return &Error{Code: diag.FixSchema, Msg: "closure bound", Err: err}
		}
		sp, err := spanOf(cb.Span)
		if err != nil {
			return err
		}
		if mapping[loc] == nil {
			mapping[loc] = make(map[infer.ClosureBoundKey]infer.ClosureBound)
		}
		mapping[loc][infer.ClosureBoundKey{Sup: sup, Sub: sub}] = infer.ClosureBound{Category: cat, Span: sp}
	}
	b.p.Input.ClosureBounds = mapping
	return nil
}

func (b *builder) subsetErrors() error {
	if !b.f.Polonius && len(b.f.SubsetErrors) == 0 {
		return nil
	}
	out := make([]infer.SubsetError, 0, len(b.f.SubsetErrors))
	for _, se := range b.f.SubsetErrors {
		longer, err := b.universalRegion(se.Longer, "subset error")
		if err != nil {
			return err
		}
		shorter, err := b.universalRegion(se.Shorter, "subset error")
		if err != nil {
			return err
		}
		var loc regions.Location
		if se.At != "" {
			if loc, err = b.location(se.At); err != nil {
				return err
			}
		}
		out = append(out, infer.SubsetError{Location: loc, Longer: longer, Shorter: shorter})
	}
	b.p.Input.SubsetErrors = out
	return nil
}

func (b *builder) spans() error {
	table := &bodySpans{elements: b.elems, explicit: make(map[regions.Location]source.Span, len(b.f.Spans))}
	for at, xs := range b.f.Spans {
		loc, err := b.location(at)
		if err != nil {
			return err
		}
		sp, err := spanOf(xs)
		if err != nil {
			return err
		}
		table.explicit[loc] = sp
	}
	b.p.Input.Body = table
	return nil
}

// bodySpans maps a point to its explicit span, or to a one-byte span at its
// point index.
type bodySpans struct {
	elements *regions.Elements
	explicit map[regions.Location]source.Span
}

func (s *bodySpans) SpanOf(loc regions.Location) source.Span {
	if sp, ok := s.explicit[loc]; ok {
		return sp
	}
	if !s.elements.ValidLocation(loc) {
		return source.Span{}
	}
	p := uint32(s.elements.PointFromLocation(loc))
	return source.Span{Start: p, End: p + 1}
}
