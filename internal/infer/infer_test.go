package infer_test

import (
	"slices"
	"strings"
	"testing"

	"regionck/internal/constraints"
	"regionck/internal/infer"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/testkit"
	"regionck/internal/trace"
	"regionck/internal/ty"
)

func TestSimpleOutlives(t *testing.T) {
	p := newProblem(t, []int{2}, []string{"'a", "'b"}, nil)
	a, b := p.vid("'a"), p.vid("'b")
	p.relate(a, b)
	p.outlives(a, b, constraints.CategoryAssignment)

	cx, reqs, errs := p.solve(false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs.Strings())
	}
	if reqs != nil {
		t.Fatalf("unexpected requirements: %+v", reqs)
	}
	if !cx.RegionContains(a, regions.UniversalElement(b)) {
		t.Fatalf("value('a) = %s, want it to contain 'b", cx.RegionValueStr(a))
	}
	if got := cx.RegionValueStr(a); got != "{bb0[0..=2], '?1, '?2}" {
		t.Fatalf("value('a) = %s", got)
	}
}

func TestClosurePromotion(t *testing.T) {
	build := func() (*problem, regions.RegionVid, regions.RegionVid) {
		p := newProblem(t, []int{1}, []string{"'a", "'b"}, []string{"'x", "'y"})
		x, y := p.vid("'x"), p.vid("'y")
		p.relate(x, p.vid("'a"))
		p.relate(p.vid("'b"), y)
		p.outlives(x, y, constraints.CategoryAssignment)
		return p, x, y
	}

	p, _, _ := build()
	_, reqs, errs := p.solve(true)
	if len(errs) != 0 {
		t.Fatalf("closure mode errors: %v", errs.Strings())
	}
	if reqs == nil || len(reqs.OutlivesRequirements) != 1 {
		t.Fatalf("requirements = %+v, want exactly one", reqs)
	}
	req := reqs.OutlivesRequirements[0]
	if req.Subject.IsTy || req.Subject.Region != p.vid("'a") || req.OutlivedFreeRegion != p.vid("'b") {
		t.Fatalf("requirement = %s, want 'a: 'b", req)
	}
	if req.Category != constraints.CategoryAssignment {
		t.Fatalf("category = %s, want assignment", req.Category)
	}
	if reqs.NumExternalVids != 3 {
		t.Fatalf("external vids = %d, want 3", reqs.NumExternalVids)
	}

	p, x, y := build()
	_, reqs, errs = p.solve(false)
	if reqs != nil {
		t.Fatalf("requirements outside closure mode: %+v", reqs)
	}
	got := errorsOf[infer.RegionError](errs)
	want := []infer.RegionError{{LongerFR: x, ShorterFR: y, Origin: regions.FreeRegion(), IsReported: true}}
	if !slices.Equal(got, want) {
		t.Fatalf("errors = %v, want %v", got, want)
	}
}

func TestClosurePromotionNeedsLowerBound(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a"}, []string{"'x", "'y"})
	p.outlives(p.vid("'x"), p.vid("'y"), constraints.CategoryAssignment)
	_, reqs, errs := p.solve(true)
	if reqs != nil {
		t.Fatalf("requirements = %+v, want none", reqs)
	}
	if len(errorsOf[infer.RegionError](errs)) != 1 {
		t.Fatalf("errors = %v, want one region error", errs.Strings())
	}
}

func TestPlaceholderEscape(t *testing.T) {
	p := newProblem(t, nil, []string{"'a"}, nil)
	a := p.vid("'a")
	p1 := p.placeholder(1, 0)
	p.outlives(a, p1, constraints.CategoryBoring)

	cx, _, errs := p.solve(false)
	if len(errorsOf[infer.BoundUniversalRegionError](errs)) != 0 {
		t.Fatalf("unexpected placeholder error: %v", errs.Strings())
	}
	if !cx.RegionContains(a, regions.UniversalElement(0)) {
		t.Fatalf("value('a) = %s, want 'static", cx.RegionValueStr(a))
	}
	if cx.RegionContains(a, regions.PlaceholderElement(regions.PlaceholderRegion{Universe: 1})) {
		t.Fatalf("value('a) = %s must not name the placeholder", cx.RegionValueStr(a))
	}
	if !cx.RegionContains(p1, regions.PlaceholderElement(regions.PlaceholderRegion{Universe: 1})) {
		t.Fatalf("value(p1) = %s, want itself", cx.RegionValueStr(p1))
	}

	p = newProblem(t, nil, []string{"'a"}, nil)
	a = p.vid("'a")
	p1 = p.placeholder(1, 0)
	p.outlives(p1, a, constraints.CategoryBoring)
	_, _, errs = p.solve(false)
	got := errorsOf[infer.BoundUniversalRegionError](errs)
	if len(got) != 1 {
		t.Fatalf("errors = %v, want one placeholder error", errs.Strings())
	}
	if got[0].LongerFR != p1 || got[0].ErrorElement != regions.UniversalElement(a) {
		t.Fatalf("error = %+v, want %s containing %s", got[0], p1, a)
	}
	if got[0].Origin.Kind != regions.OriginPlaceholder {
		t.Fatalf("origin = %s", got[0].Origin)
	}
}

func TestPlaceholderInLowerUniverseScc(t *testing.T) {
	// p1 and e share an SCC whose universe is the root, so p1 cannot be
	// added and the SCC grows to 'static.
	p := newProblem(t, []int{0}, nil, nil)
	p1 := p.placeholder(1, 0)
	e := p.existential()
	p.outlives(p1, e, constraints.CategoryBoring)
	p.outlives(e, p1, constraints.CategoryBoring)
	cx, _, errs := p.solve(false)
	if !cx.RegionContains(e, regions.UniversalElement(0)) {
		t.Fatalf("value = %s, want 'static", cx.RegionValueStr(e))
	}
	if cx.RegionUniverse(p1) != regions.RootUniverse {
		t.Fatalf("universe = %s", cx.RegionUniverse(p1))
	}
	got := errorsOf[infer.BoundUniversalRegionError](errs)
	if len(got) != 1 || got[0].ErrorElement.Kind != regions.ElementLocation {
		t.Fatalf("errors = %v, want one leak at a location", errs.Strings())
	}
}

func memberProblem(t *testing.T) (*problem, regions.RegionVid) {
	p := newProblem(t, []int{1}, []string{"'a", "'b", "'c"}, nil)
	return p, p.existential()
}

func TestMemberSingleSurvivingChoice(t *testing.T) {
	p, m := memberProblem(t)
	a, b, c := p.vid("'a"), p.vid("'b"), p.vid("'c")
	p.relate(b, a)
	p.outlives(m, a, constraints.CategoryBoring)
	idx := p.members.Push(constraints.MemberConstraint[regions.RegionVid]{
		OpaqueDefID:    "Foo",
		DefinitionSpan: source.Span{Start: 10, End: 20},
		HiddenTy:       ty.Ref(ty.ReVar(m), ty.Param("T"), false),
		MemberRegion:   m,
		ChoiceRegions:  []regions.RegionVid{b, c},
	})

	cx, _, errs := p.solve(false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs.Strings())
	}
	if !cx.RegionContains(m, regions.UniversalElement(b)) {
		t.Fatalf("value(m) = %s, want 'b", cx.RegionValueStr(m))
	}
	if cx.RegionContains(m, regions.UniversalElement(c)) {
		t.Fatalf("value(m) = %s must not contain 'c", cx.RegionValueStr(m))
	}
	applied := cx.AppliedMemberConstraints(m)
	if len(applied) != 1 || applied[0].MinChoice != b || applied[0].MemberConstraintIndex != idx {
		t.Fatalf("applied = %+v", applied)
	}
	if got := cx.AppliedMemberConstraints(a); len(got) != 0 {
		t.Fatalf("applied for 'a = %+v, want none", got)
	}

	// The blame search follows the synthetic member edge.
	path, found, ok := cx.FindConstraintPathsBetweenRegions(m, func(r regions.RegionVid) bool { return r == b })
	if !ok || found != b || len(path) != 1 || path[0].Category != constraints.CategoryOpaqueType {
		t.Fatalf("path = %v found=%s ok=%v", path, found, ok)
	}
	if path[0].Locations.Span(nil) != (source.Span{Start: 10, End: 20}) {
		t.Fatalf("member edge span = %v", path[0].Locations)
	}
}

func TestMemberPicksLeastChoice(t *testing.T) {
	p, m := memberProblem(t)
	a, b := p.vid("'a"), p.vid("'b")
	p.relate(b, a)
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{
		MemberRegion:  m,
		ChoiceRegions: []regions.RegionVid{b, a},
	})
	cx, _, errs := p.solve(false)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs.Strings())
	}
	applied := cx.AppliedMemberConstraints(m)
	if len(applied) != 1 || applied[0].MinChoice != a {
		t.Fatalf("applied = %+v, want min choice 'a", applied)
	}
}

func TestMemberIncomparableChoices(t *testing.T) {
	p, m := memberProblem(t)
	b, c := p.vid("'b"), p.vid("'c")
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{
		OpaqueDefID:    "Foo",
		DefinitionSpan: source.Span{Start: 1, End: 2},
		HiddenTy:       ty.Param("T"),
		MemberRegion:   m,
		ChoiceRegions:  []regions.RegionVid{b, c},
	})
	cx, _, errs := p.solve(false)
	if len(cx.AppliedMemberConstraints(m)) != 0 {
		t.Fatalf("member constraint applied despite incomparable choices")
	}
	got := errorsOf[infer.UnexpectedHiddenRegion](errs)
	if len(got) != 1 || got[0].MemberRegion != ty.ReVar(m) || got[0].Span != (source.Span{Start: 1, End: 2}) {
		t.Fatalf("errors = %v", errs.Strings())
	}
}

func TestMemberCheckSkippedAfterOtherErrors(t *testing.T) {
	p, m := memberProblem(t)
	a, b, c := p.vid("'a"), p.vid("'b"), p.vid("'c")
	p.outlives(a, b, constraints.CategoryAssignment)
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{
		MemberRegion:  m,
		ChoiceRegions: []regions.RegionVid{b, c},
	})
	_, _, errs := p.solve(false)
	if len(errorsOf[infer.UnexpectedHiddenRegion](errs)) != 0 {
		t.Fatalf("member check ran despite region errors: %v", errs.Strings())
	}
	if len(errorsOf[infer.RegionError](errs)) != 1 {
		t.Fatalf("errors = %v", errs.Strings())
	}
}

func TestMemberNonUniversalChoicePanics(t *testing.T) {
	p, m := memberProblem(t)
	e := p.existential()
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{MemberRegion: m, ChoiceRegions: []regions.RegionVid{e}})
	cx := p.build()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for a non-universal choice")
		}
	}()
	cx.Solve(false)
}

func typeTestProblem(t *testing.T) (*problem, regions.RegionVid) {
	p := newProblem(t, []int{1}, []string{"'a", "'b", "'c"}, nil)
	r := p.existential()
	p.outlives(r, p.vid("'c"), constraints.CategoryBoring)
	gk, err := ty.NewGenericKind(ty.Param("T"))
	if err != nil {
		t.Fatalf("NewGenericKind: %v", err)
	}
	p.tests = append(p.tests, constraints.TypeTest{
		GenericKind: gk,
		LowerBound:  r,
		Locations:   constraints.Single(regions.Location{Block: 0, Statement: 1}),
		VerifyBound: constraints.AnyBound(
			constraints.OutlivedBy(ty.ReNamed("'a")),
			constraints.OutlivedBy(ty.ReNamed("'b")),
		),
	})
	return p, r
}

func TestTypeTestPasses(t *testing.T) {
	p, _ := typeTestProblem(t)
	p.relate(p.vid("'a"), p.vid("'c"))
	_, reqs, errs := p.solve(true)
	if len(errs) != 0 || reqs != nil {
		t.Fatalf("errors = %v reqs = %+v, want none", errs.Strings(), reqs)
	}
}

func TestTypeTestFailsOutsideClosure(t *testing.T) {
	p, r := typeTestProblem(t)
	p.tests = append(p.tests, p.tests[0])
	_, _, errs := p.solve(false)
	got := errorsOf[infer.TypeTestError](errs)
	if len(got) != 1 {
		t.Fatalf("errors = %v, want one deduplicated type test error", errs.Strings())
	}
	if got[0].TypeTest.LowerBound != r {
		t.Fatalf("lower bound = %s", got[0].TypeTest.LowerBound)
	}
}

func TestTypeTestPromotedInClosure(t *testing.T) {
	p, _ := typeTestProblem(t)
	_, reqs, errs := p.solve(true)
	if len(errorsOf[infer.TypeTestError](errs)) != 0 {
		t.Fatalf("type test not promoted: %v", errs.Strings())
	}
	if reqs == nil || len(reqs.OutlivesRequirements) != 1 {
		t.Fatalf("requirements = %+v", reqs)
	}
	req := reqs.OutlivesRequirements[0]
	if !req.Subject.IsTy || req.Subject.Ty.String() != "T" || req.OutlivedFreeRegion != p.vid("'c") {
		t.Fatalf("requirement = %s, want T: 'c", req)
	}
	if req.BlameSpan != (source.Span{Start: 1, End: 2}) {
		t.Fatalf("blame span = %v", req.BlameSpan)
	}
}

func TestTypeTestPromotionRenamesRegions(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a"}, nil)
	a := p.vid("'a")
	r := p.existential()
	inner := p.existential()
	p.outlives(r, a, constraints.CategoryBoring)
	p.outlives(inner, a, constraints.CategoryBoring)
	p.outlives(a, inner, constraints.CategoryBoring)
	gk, err := ty.NewGenericKind(ty.Projection(ty.Param("T"), "Item", []ty.Region{ty.ReVar(inner)}))
	if err != nil {
		t.Fatalf("NewGenericKind: %v", err)
	}
	p.tests = append(p.tests, constraints.TypeTest{
		GenericKind: gk,
		LowerBound:  r,
		Locations:   constraints.Single(regions.Location{}),
		VerifyBound: constraints.IsEmpty(),
	})
	_, reqs, errs := p.solve(true)
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs.Strings())
	}
	if reqs == nil || len(reqs.OutlivesRequirements) != 1 {
		t.Fatalf("requirements = %+v", reqs)
	}
	if got := reqs.OutlivesRequirements[0].Subject.Ty.String(); got != "T<'a>::Item" {
		t.Fatalf("subject = %s, want T<'a>::Item", got)
	}
}

func TestVerifyBoundIfEq(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a"}, nil)
	a := p.vid("'a")
	r1, r2, lower := p.existential(), p.existential(), p.existential()
	p.outlives(r1, r2, constraints.CategoryBoring)
	p.outlives(r2, r1, constraints.CategoryBoring)
	gk, err := ty.NewGenericKind(ty.Projection(ty.Param("T"), "Item", []ty.Region{ty.ReVar(r2)}))
	if err != nil {
		t.Fatalf("NewGenericKind: %v", err)
	}
	test := ty.Projection(ty.Param("T"), "Item", []ty.Region{ty.ReVar(r1)})
	p.tests = append(p.tests, constraints.TypeTest{
		GenericKind: gk,
		LowerBound:  lower,
		Locations:   constraints.Single(regions.Location{}),
		VerifyBound: constraints.IfEq(test, constraints.OutlivedBy(ty.ReVar(a))),
	})
	_, _, errs := p.solve(false)
	if len(errs) != 0 {
		t.Fatalf("IfEq with equal representatives failed: %v", errs.Strings())
	}
}

func TestRepresentativeOptimization(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a", "'b", "'c"}, nil)
	a, b, c := p.vid("'a"), p.vid("'b"), p.vid("'c")
	p.outlives(a, b, constraints.CategoryAssignment)
	p.outlives(a, c, constraints.CategoryAssignment)
	_, _, errs := p.solve(false)
	got := errorsOf[infer.RegionError](errs)
	want := []infer.RegionError{
		{LongerFR: a, ShorterFR: b, Origin: regions.FreeRegion(), IsReported: true},
		{LongerFR: a, ShorterFR: c, Origin: regions.FreeRegion(), IsReported: false},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("errors = %v, want %v", got, want)
	}

	p = newProblem(t, []int{1}, []string{"'a", "'b"}, nil)
	a, b = p.vid("'a"), p.vid("'b")
	p.outlives(a, b, constraints.CategoryAssignment)
	p.outlives(b, a, constraints.CategoryAssignment)
	_, _, errs = p.solve(false)
	got = errorsOf[infer.RegionError](errs)
	want = []infer.RegionError{
		{LongerFR: a, ShorterFR: b, Origin: regions.FreeRegion(), IsReported: true},
		{LongerFR: b, ShorterFR: a, Origin: regions.FreeRegion(), IsReported: true},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("cycle errors = %v, want %v", got, want)
	}
}

func TestEmptyConstraintSet(t *testing.T) {
	p := newProblem(t, []int{1, 0}, []string{"'a"}, nil)
	e := p.existential()
	cx, reqs, errs := p.solve(true)
	if len(errs) != 0 || reqs != nil {
		t.Fatalf("errors = %v reqs = %+v", errs.Strings(), reqs)
	}
	if got := cx.RegionValueStr(e); got != "{}" {
		t.Fatalf("existential value = %s, want {}", got)
	}
	a := p.vid("'a")
	if got := cx.RegionValueStr(a); got != "{bb0[0..=1], bb1[0], '?1}" {
		t.Fatalf("universal value = %s", got)
	}
}

func TestSelfLoopAndCycle(t *testing.T) {
	p := newProblem(t, []int{2}, nil, nil)
	x, y, z := p.existential(), p.existential(), p.existential()
	p.outlives(z, z, constraints.CategoryBoring)
	p.outlives(x, y, constraints.CategoryBoring)
	p.outlives(y, x, constraints.CategoryBoring)
	p.liveAt(x, regions.Location{Block: 0, Statement: 1})
	p.liveAt(z, regions.Location{Block: 0, Statement: 2})
	cx, _, _ := p.solve(false)
	if cx.Constraints().Len() != 2 {
		t.Fatalf("self loop kept: %d constraints", cx.Constraints().Len())
	}
	if cx.Sccs().SccOf(x) != cx.Sccs().SccOf(y) {
		t.Fatalf("cycle members in different SCCs")
	}
	if cx.RegionValueStr(x) != cx.RegionValueStr(y) || cx.RegionValueStr(y) != "{bb0[1]}" {
		t.Fatalf("values = %s / %s", cx.RegionValueStr(x), cx.RegionValueStr(y))
	}
	if got := cx.RegionValueStr(z); got != "{bb0[2]}" {
		t.Fatalf("self loop changed value: %s", got)
	}
}

func TestDuplicateConstraintsDoNotChangeValues(t *testing.T) {
	values := func(dup bool) []string {
		p := newProblem(t, []int{3}, []string{"'a"}, nil)
		x, y := p.existential(), p.existential()
		p.liveAt(y, regions.Location{Block: 0, Statement: 2})
		p.outlives(x, y, constraints.CategoryBoring)
		p.outlives(y, p.vid("'a"), constraints.CategoryBoring)
		if dup {
			p.outlives(x, y, constraints.CategoryCast)
			p.outlives(y, p.vid("'a"), constraints.CategoryBoring)
		}
		cx, _, _ := p.solve(false)
		var out []string
		for i := range cx.NumRegions() {
			out = append(out, cx.RegionValueStr(regions.VidFromInt(i)))
		}
		return out
	}
	if a, b := values(false), values(true); !slices.Equal(a, b) {
		t.Fatalf("values differ: %v vs %v", a, b)
	}
}

func TestSolveIsDeterministic(t *testing.T) {
	run := func() ([]string, string) {
		p, m := memberProblem(t)
		p.outlives(m, p.vid("'a"), constraints.CategoryBoring)
		p.relate(p.vid("'b"), p.vid("'a"))
		p.members.Push(constraints.MemberConstraint[regions.RegionVid]{MemberRegion: m, ChoiceRegions: []regions.RegionVid{p.vid("'b"), p.vid("'c")}})
		cx, _, errs := p.solve(false)
		var sb strings.Builder
		if err := cx.Dump(&sb); err != nil {
			t.Fatalf("Dump: %v", err)
		}
		return errs.Strings(), sb.String()
	}
	e1, d1 := run()
	e2, d2 := run()
	if !slices.Equal(e1, e2) || d1 != d2 {
		t.Fatalf("two solves differ:\n%s\n%s", d1, d2)
	}
}

func TestSolveTwicePanics(t *testing.T) {
	p := newProblem(t, []int{1}, nil, nil)
	cx := p.build()
	cx.Solve(false)
	defer func() {
		if recover() == nil {
			t.Fatalf("second Solve did not panic")
		}
	}()
	cx.Solve(false)
}

func TestNewRejectsBadInput(t *testing.T) {
	p := newProblem(t, []int{1}, nil, nil)
	in := p.input()
	in.Constraints.Push(constraints.OutlivesConstraint{Sup: 0, Sub: 99})
	if _, err := infer.New(in); err == nil {
		t.Fatalf("constraint on unknown region accepted")
	}
	in = p.input()
	in.Universal = nil
	if _, err := infer.New(in); err == nil {
		t.Fatalf("missing universal regions accepted")
	}
}

func TestPropagationVisitsEachSccOnce(t *testing.T) {
	p := newProblem(t, []int{2}, []string{"'a"}, nil)
	ring := trace.NewRingTracer(1024, trace.LevelDebug)
	p.tracer = ring
	prev := p.vid("'a")
	for range 20 {
		r := p.existential()
		p.outlives(r, prev, constraints.CategoryBoring)
		prev = r
	}
	cx, _, _ := p.solve(false)
	if err := testkit.CheckVisitedOnce(ring.Snapshot()); err != nil {
		t.Fatalf("%v", err)
	}
	visits := 0
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindPoint && ev.Scope == trace.ScopeRegion {
			visits++
		}
	}
	if visits != cx.Sccs().NumSccs() {
		t.Fatalf("visited %d SCCs, have %d", visits, cx.Sccs().NumSccs())
	}
}

func TestPoloniusSubsetErrors(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a", "'b"}, nil)
	a, b := p.vid("'a"), p.vid("'b")
	p.subset = []infer.SubsetError{
		{Longer: b, Shorter: a},
		{Longer: a, Shorter: b},
		{Longer: a, Shorter: b, Location: regions.Location{Statement: 1}},
	}
	// Without subset errors this constraint would be reported.
	p.outlives(a, b, constraints.CategoryAssignment)
	_, _, errs := p.solve(false)
	got := errorsOf[infer.RegionError](errs)
	want := []infer.RegionError{
		{LongerFR: a, ShorterFR: b, Origin: regions.FreeRegion(), IsReported: true},
		{LongerFR: b, ShorterFR: a, Origin: regions.FreeRegion(), IsReported: true},
	}
	if !slices.Equal(got, want) {
		t.Fatalf("errors = %v, want %v", got, want)
	}
}

func TestApplyRequirements(t *testing.T) {
	reqs := &infer.ClosureRegionRequirements{
		NumExternalVids: 3,
		OutlivesRequirements: []infer.ClosureOutlivesRequirement{
			{Subject: infer.SubjectRegion(1), OutlivedFreeRegion: 2},
			{Subject: infer.SubjectTy(ty.Ref(ty.ReVar(1), ty.Param("T"), false)), OutlivedFreeRegion: 0},
		},
	}
	mapping := []ty.Region{ty.ReStatic(), ty.ReNamed("'x"), ty.ReVar(7)}
	preds, err := reqs.Apply(mapping)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	got := []string{preds[0].String(), preds[1].String()}
	want := []string{"'x: '?7", "&'x T: 'static"}
	if !slices.Equal(got, want) {
		t.Fatalf("predicates = %v, want %v", got, want)
	}
	if _, err := reqs.Apply(mapping[:2]); err == nil {
		t.Fatalf("short mapping accepted")
	}
	var none *infer.ClosureRegionRequirements
	if preds, err := none.Apply(nil); preds != nil || err != nil {
		t.Fatalf("nil requirements: %v %v", preds, err)
	}
}

func TestPoloniusSubsetErrorWithoutPathInClosure(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a", "'b"}, []string{"'x"})
	a, b, x := p.vid("'a"), p.vid("'b"), p.vid("'x")
	p.relate(x, a)
	// No constraint connects 'x to 'b.
	p.subset = []infer.SubsetError{{Longer: x, Shorter: b}}
	_, reqs, errs := p.solve(true)
	if len(errs) != 0 {
		t.Fatalf("errors = %v", errs.Strings())
	}
	if reqs == nil || len(reqs.OutlivesRequirements) != 1 {
		t.Fatalf("requirements = %+v, want exactly one", reqs)
	}
	req := reqs.OutlivesRequirements[0]
	if req.Subject.IsTy || req.Subject.Region != a || req.OutlivedFreeRegion != b {
		t.Fatalf("requirement = %s, want 'a: 'b", req)
	}
	if req.Category != constraints.CategoryBoring || req.BlameSpan != (source.Span{}) {
		t.Fatalf("blame = %s %v, want boring with no span", req.Category, req.BlameSpan)
	}
}

func TestPoloniusSubsetErrorOnExistentialInClosure(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a"}, nil)
	a := p.vid("'a")
	e := p.existential()
	p.subset = []infer.SubsetError{{Longer: e, Shorter: a}}
	_, reqs, errs := p.solve(true)
	if reqs != nil {
		t.Fatalf("requirements = %+v, want none", reqs)
	}
	got := errorsOf[infer.RegionError](errs)
	want := []infer.RegionError{{LongerFR: e, ShorterFR: a, Origin: regions.FreeRegion(), IsReported: true}}
	if !slices.Equal(got, want) {
		t.Fatalf("errors = %v, want %v", got, want)
	}
}

func TestPassesNestUnderTraceParent(t *testing.T) {
	p := newProblem(t, []int{1}, []string{"'a"}, nil)
	ring := trace.NewRingTracer(64, trace.LevelPhase)
	p.tracer = ring
	in := p.input()
	in.TraceParent = 77
	cx, err := infer.New(in)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	cx.Solve(false)

	var passes []string
	for _, ev := range ring.Snapshot() {
		if ev.Kind != trace.KindSpanBegin {
			continue
		}
		if ev.ParentID != 77 {
			t.Fatalf("pass %s has parent %d, want 77", ev.Name, ev.ParentID)
		}
		passes = append(passes, ev.Name)
	}
	want := []string{"region.propagate", "region.type_tests", "region.universal_regions", "region.member_constraints"}
	if !slices.Equal(passes, want) {
		t.Fatalf("passes = %v, want %v", passes, want)
	}
}

func TestMemberConstraintsNewestFirst(t *testing.T) {
	p, m := memberProblem(t)
	b, c := p.vid("'b"), p.vid("'c")
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{MemberRegion: m, ChoiceRegions: []regions.RegionVid{b}})
	p.members.Push(constraints.MemberConstraint[regions.RegionVid]{MemberRegion: m, ChoiceRegions: []regions.RegionVid{c}})
	cx, _, _ := p.solve(false)

	// Once 'c is in, 'b no longer outlives everything m contains.
	want := []infer.AppliedMemberConstraint{{MemberRegionScc: cx.Sccs().SccOf(m), MinChoice: c, MemberConstraintIndex: 1}}
	if got := cx.AppliedMemberConstraints(m); !slices.Equal(got, want) {
		t.Fatalf("applied = %+v, want %+v", got, want)
	}
	if cx.RegionContains(m, regions.UniversalElement(b)) {
		t.Fatalf("older member constraint applied after a newer one narrowed m")
	}
}
