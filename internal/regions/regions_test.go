package regions

import (
	"slices"
	"testing"
)

func TestBitSetBasics(t *testing.T) {
	b := NewBitSet(130)
	if !b.Insert(3) || b.Insert(3) {
		t.Fatalf("Insert should report only the first insertion")
	}
	b.Insert(64)
	b.Insert(129)
	if got := b.Slice(); !slices.Equal(got, []int{3, 64, 129}) {
		t.Fatalf("Slice = %v", got)
	}
	if b.Contains(130) || b.Contains(-1) {
		t.Fatalf("out-of-domain bits reported present")
	}
	if !b.InsertAll() || b.Count() != 130 || b.InsertAll() {
		t.Fatalf("InsertAll: count=%d", b.Count())
	}
}

func TestBitSetUnionSuperset(t *testing.T) {
	a, b := NewBitSet(70), NewBitSet(70)
	a.Insert(1)
	b.Insert(1)
	b.Insert(69)
	if a.Superset(b) || !b.Superset(a) {
		t.Fatalf("superset relation wrong")
	}
	if !a.Union(b) || a.Union(b) {
		t.Fatalf("Union should grow once")
	}
	if !a.Superset(b) {
		t.Fatalf("after union a should contain b")
	}
}

func TestSparseBitMatrixRows(t *testing.T) {
	m := NewSparseBitMatrix(10)
	if m.Row(5) != nil {
		t.Fatalf("unwritten row should be nil")
	}
	m.Insert(5, 2)
	if !m.Contains(5, 2) || m.Contains(4, 2) {
		t.Fatalf("Contains wrong")
	}
	if !m.RowSuperset(5, 0) || m.RowSuperset(0, 5) {
		t.Fatalf("RowSuperset with missing rows is wrong")
	}
	if !m.UnionRows(5, 7) || !m.Contains(7, 2) {
		t.Fatalf("UnionRows did not copy the row")
	}
	if m.UnionRows(5, 5) {
		t.Fatalf("union of a row with itself must not report a change")
	}
}

func TestElementsNumbering(t *testing.T) {
	e := NewElements([]int{2, 0, 1})
	if e.NumPoints() != 6 {
		t.Fatalf("points = %d, want 6", e.NumPoints())
	}
	for p := range e.NumPoints() {
		pi := PointIndex(p)
		loc := e.ToLocation(pi)
		if e.PointFromLocation(loc) != pi {
			t.Fatalf("round trip of point %d via %s failed", p, loc)
		}
	}
	if e.ValidLocation(Location{Block: 1, Statement: 1}) {
		t.Fatalf("bb1 has only its terminator")
	}
	if got := e.ToLocation(3); got != (Location{Block: 1, Statement: 0}) {
		t.Fatalf("point 3 = %s, want bb1[0]", got)
	}
}

func TestUniverseCanName(t *testing.T) {
	if !Universe(2).CanName(1) || Universe(1).CanName(2) || !RootUniverse.CanName(RootUniverse) {
		t.Fatalf("CanName is not `other <= u`")
	}
}

func newTestValues() (*Values[RegionVid], *PlaceholderIndices) {
	ph := NewPlaceholderIndices()
	ph.Insert(PlaceholderRegion{Universe: 1, Bound: 0})
	ph.Insert(PlaceholderRegion{Universe: 1, Bound: 1})
	return NewValues[RegionVid](NewElements([]int{2, 1}), 3, ph), ph
}

func TestValuesAddAndQuery(t *testing.T) {
	v, _ := newTestValues()
	p0 := PlaceholderRegion{Universe: 1, Bound: 0}
	if !v.IsEmpty(0) {
		t.Fatalf("fresh row should be empty")
	}
	v.AddElement(0, LocationElement(Location{Block: 0, Statement: 1}))
	v.AddElement(0, UniversalElement(2))
	v.AddElement(0, PlaceholderElement(p0))
	if !v.Contains(0, UniversalElement(2)) || v.Contains(0, UniversalElement(1)) {
		t.Fatalf("universal axis wrong")
	}
	if !v.Contains(0, PlaceholderElement(p0)) {
		t.Fatalf("placeholder missing")
	}
	if v.Contains(0, PlaceholderElement(PlaceholderRegion{Universe: 9})) {
		t.Fatalf("unknown placeholder reported present")
	}
	if got := v.RegionValueStr(0); got != "{bb0[1], '?2, !1_0}" {
		t.Fatalf("value = %s", got)
	}
	if v.AddRegion(1, 0) != true || v.AddRegion(1, 0) != false {
		t.Fatalf("AddRegion change reporting wrong")
	}
	if !v.ContainsPoints(1, 0) {
		t.Fatalf("row 1 should contain the points of row 0")
	}
	elems := v.ElementsContainedIn(1)
	if len(elems) != 3 || elems[0].Kind != ElementLocation || elems[2].Kind != ElementPlaceholder {
		t.Fatalf("elements = %v", elems)
	}
}

func TestValuesRangeRendering(t *testing.T) {
	v, _ := newTestValues()
	v.AddAllPoints(0)
	if got := v.RegionValueStr(0); got != "{bb0[0..=2], bb1[0..=1]}" {
		t.Fatalf("value = %s", got)
	}
}

func TestValuesAddUnknownPlaceholderPanics(t *testing.T) {
	v, _ := newTestValues()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	v.AddElement(0, PlaceholderElement(PlaceholderRegion{Universe: 4, Bound: 4}))
}

func TestLivenessMerge(t *testing.T) {
	elements := NewElements([]int{2, 1})
	live := NewLivenessValues(elements)
	live.AddElement(4, Location{Block: 1, Statement: 0})
	live.AddElement(4, Location{Block: 0, Statement: 0})
	if got := live.Rows(); !slices.Equal(got, []RegionVid{4}) {
		t.Fatalf("rows = %v", got)
	}
	if !live.Contains(4, Location{Block: 1, Statement: 0}) || live.Contains(4, Location{Block: 7}) {
		t.Fatalf("Contains wrong")
	}
	v := NewValues[RegionVid](elements, 1, nil)
	v.MergeLiveness(2, 4, live)
	if got := v.RegionValueStr(2); got != "{bb0[0], bb1[0]}" {
		t.Fatalf("merged value = %s", got)
	}
	if got := live.RegionValueStr(4); got != "{bb0[0], bb1[0]}" {
		t.Fatalf("liveness value = %s", got)
	}
}
