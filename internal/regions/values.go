package regions

import (
	"fmt"
	"strings"
)

// Values stores the value of every row R (a region or an SCC of regions)
// along three axes: CFG points, ends of universal regions and placeholders.
type Values[R ~uint32] struct {
	elements     *Elements
	placeholders *PlaceholderIndices
	points       *SparseBitMatrix
	freeRegions  *SparseBitMatrix
	placeholderM *SparseBitMatrix
}

// NewValues sizes a value store for a body with the given number of
// universal regions.
func NewValues[R ~uint32](elements *Elements, numUniversal int, placeholders *PlaceholderIndices) *Values[R] {
	if placeholders == nil {
		placeholders = NewPlaceholderIndices()
	}
	return &Values[R]{
		elements:     elements,
		placeholders: placeholders,
		points:       NewSparseBitMatrix(elements.NumPoints()),
		freeRegions:  NewSparseBitMatrix(numUniversal),
		placeholderM: NewSparseBitMatrix(placeholders.Len()),
	}
}

func (v *Values[R]) Elements() *Elements { return v.elements }

// AddElement inserts elem into r and reports whether r grew.
func (v *Values[R]) AddElement(r R, elem RegionElement) bool {
	switch elem.Kind {
	case ElementLocation:
		return v.points.Insert(int(r), int(v.elements.PointFromLocation(elem.Location)))
	case ElementRootUniversal:
		return v.freeRegions.Insert(int(r), int(elem.Region))
	case ElementPlaceholder:
		idx, ok := v.placeholders.Lookup(elem.Placeholder)
		if !ok {
			panic(fmt.Errorf("placeholder %s was not registered", elem.Placeholder))
		}
		return v.placeholderM.Insert(int(r), int(idx))
	default:
		panic(fmt.Errorf("unknown region element kind %d", elem.Kind))
	}
}

// AddPoint inserts a CFG point by its dense index.
func (v *Values[R]) AddPoint(r R, p PointIndex) bool {
	return v.points.Insert(int(r), int(p))
}

// AddAllPoints inserts every CFG point of the body into r.
func (v *Values[R]) AddAllPoints(r R) bool {
	return v.points.InsertAllInto(int(r))
}

// AddRegion unions src into dst on all three axes and reports whether dst grew.
func (v *Values[R]) AddRegion(dst, src R) bool {
	changed := v.points.UnionRows(int(src), int(dst))
	changed = v.freeRegions.UnionRows(int(src), int(dst)) || changed
	changed = v.placeholderM.UnionRows(int(src), int(dst)) || changed
	return changed
}

func (v *Values[R]) Contains(r R, elem RegionElement) bool {
	switch elem.Kind {
	case ElementLocation:
		if !v.elements.ValidLocation(elem.Location) {
			return false
		}
		return v.points.Contains(int(r), int(v.elements.PointFromLocation(elem.Location)))
	case ElementRootUniversal:
		return v.freeRegions.Contains(int(r), int(elem.Region))
	case ElementPlaceholder:
		idx, ok := v.placeholders.Lookup(elem.Placeholder)
		return ok && v.placeholderM.Contains(int(r), int(idx))
	default:
		return false
	}
}

// ContainsPoints reports whether the points of sub are a subset of the
// points of sup.
func (v *Values[R]) ContainsPoints(sup, sub R) bool {
	return v.points.RowSuperset(int(sup), int(sub))
}

// MergeLiveness copies the live points of region from into row to.
func (v *Values[R]) MergeLiveness(to R, from RegionVid, liveness *LivenessValues) {
	v.points.UnionRow(int(to), liveness.points.Row(int(from)))
}

// UniversalRegionsOutlivedBy lists the universal regions whose end is in r.
func (v *Values[R]) UniversalRegionsOutlivedBy(r R) []RegionVid {
	row := v.freeRegions.Row(int(r))
	if row == nil {
		return nil
	}
	out := make([]RegionVid, 0, row.Count())
	row.Each(func(i int) bool {
		out = append(out, VidFromInt(i))
		return true
	})
	return out
}

func (v *Values[R]) PlaceholdersContainedIn(r R) []PlaceholderRegion {
	row := v.placeholderM.Row(int(r))
	if row == nil {
		return nil
	}
	out := make([]PlaceholderRegion, 0, row.Count())
	row.Each(func(i int) bool {
		out = append(out, v.placeholders.Placeholder(PlaceholderIndex(i)))
		return true
	})
	return out
}

func (v *Values[R]) LocationsOutlivedBy(r R) []Location {
	row := v.points.Row(int(r))
	if row == nil {
		return nil
	}
	out := make([]Location, 0, row.Count())
	row.Each(func(i int) bool {
		out = append(out, v.elements.ToLocation(PointIndex(i)))
		return true
	})
	return out
}

// ElementsContainedIn lists points first, then universal regions, then
// placeholders.
func (v *Values[R]) ElementsContainedIn(r R) []RegionElement {
	var out []RegionElement
	for _, l := range v.LocationsOutlivedBy(r) {
		out = append(out, LocationElement(l))
	}
	for _, u := range v.UniversalRegionsOutlivedBy(r) {
		out = append(out, UniversalElement(u))
	}
	for _, p := range v.PlaceholdersContainedIn(r) {
		out = append(out, PlaceholderElement(p))
	}
	return out
}

// IsEmpty reports whether r has no element on any axis.
func (v *Values[R]) IsEmpty(r R) bool {
	for _, m := range []*SparseBitMatrix{v.points, v.freeRegions, v.placeholderM} {
		if row := m.Row(int(r)); row != nil && !row.IsEmpty() {
			return false
		}
	}
	return true
}

func (v *Values[R]) RegionValueStr(r R) string {
	return regionValueStr(v.ElementsContainedIn(r))
}

// regionValueStr renders elements as `{bb0[0..=2], bb1[0], '?1, !1_0}`,
// collapsing runs of consecutive statements of one block.
func regionValueStr(elems []RegionElement) string {
	var parts []string
	var open bool
	var start, end Location
	flush := func() {
		if !open {
			return
		}
		if start == end {
			parts = append(parts, start.String())
		} else {
			parts = append(parts, fmt.Sprintf("bb%d[%d..=%d]", start.Block, start.Statement, end.Statement))
		}
		open = false
	}
	for _, e := range elems {
		if e.Kind != ElementLocation {
			flush()
			parts = append(parts, e.String())
			continue
		}
		l := e.Location
		if open && l.Block == end.Block && l.Statement == end.Statement+1 {
			end = l
			continue
		}
		flush()
		start, end, open = l, l, true
	}
	flush()
	return "{" + strings.Join(parts, ", ") + "}"
}

// LivenessValues records, per region variable, the points where it is live.
type LivenessValues struct {
	elements *Elements
	points   *SparseBitMatrix
}

func NewLivenessValues(elements *Elements) *LivenessValues {
	return &LivenessValues{elements: elements, points: NewSparseBitMatrix(elements.NumPoints())}
}

func (l *LivenessValues) Elements() *Elements { return l.elements }

// AddElement marks r live at loc and reports whether that is new.
func (l *LivenessValues) AddElement(r RegionVid, loc Location) bool {
	return l.points.Insert(int(r), int(l.elements.PointFromLocation(loc)))
}

func (l *LivenessValues) AddAllPoints(r RegionVid) {
	l.points.InsertAllInto(int(r))
}

func (l *LivenessValues) Contains(r RegionVid, loc Location) bool {
	if !l.elements.ValidLocation(loc) {
		return false
	}
	return l.points.Contains(int(r), int(l.elements.PointFromLocation(loc)))
}

// Rows lists the regions that have at least one live point.
func (l *LivenessValues) Rows() []RegionVid {
	var out []RegionVid
	for i := range l.points.NumRows() {
		if row := l.points.Row(i); row != nil && !row.IsEmpty() {
			out = append(out, VidFromInt(i))
		}
	}
	return out
}

func (l *LivenessValues) RegionValueStr(r RegionVid) string {
	row := l.points.Row(int(r))
	if row == nil {
		return "{}"
	}
	elems := make([]RegionElement, 0, row.Count())
	row.Each(func(i int) bool {
		elems = append(elems, LocationElement(l.elements.ToLocation(PointIndex(i))))
		return true
	})
	return regionValueStr(elems)
}
