package constraints

import (
	"fmt"

	"fortio.org/safecast"

	"regionck/internal/regions"
	"regionck/internal/source"
)

// Locations says where a constraint must hold: at every point (with a
// span to blame) or at a single point.
type Locations struct {
	all  bool
	span source.Span
	at   regions.Location
}

func All(span source.Span) Locations { return Locations{all: true, span: span} }

func Single(loc regions.Location) Locations { return Locations{at: loc} }

func (l Locations) IsAll() bool { return l.all }

// Location returns the single point, if any.
func (l Locations) Location() (regions.Location, bool) {
	return l.at, !l.all
}

// SpanSource maps body points back to source spans.
type SpanSource interface {
	SpanOf(loc regions.Location) source.Span
}

// Span resolves the locations to a span for reporting.
func (l Locations) Span(body SpanSource) source.Span {
	if l.all {
		return l.span
	}
	if body == nil {
		return source.Span{}
	}
	return body.SpanOf(l.at)
}

func (l Locations) String() string {
	if l.all {
		return "All(" + l.span.String() + ")"
	}
	return l.at.String()
}

// Less orders All before Single, then by span or location.
func (l Locations) Less(o Locations) bool {
	if l.all != o.all {
		return l.all
	}
	if l.all {
		if l.span.File != o.span.File {
			return l.span.File < o.span.File
		}
		if l.span.Start != o.span.Start {
			return l.span.Start < o.span.Start
		}
		return l.span.End < o.span.End
	}
	return l.at.Less(o.at)
}

// Index identifies a constraint inside a Set.
type Index uint32

func indexFromInt(i int) Index {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("constraint index overflow: %w", err))
	}
	return Index(v)
}

// OutlivesConstraint requires Sup: Sub, so the value of Sup must include
// the value of Sub.
type OutlivesConstraint struct {
	Sup       regions.RegionVid
	Sub       regions.RegionVid
	Locations Locations
	Category  Category
}

func (c OutlivesConstraint) String() string {
	return fmt.Sprintf("(%s: %s) due to %s at %s", c.Sup, c.Sub, c.Category, c.Locations)
}

// Set is the flat list of outlives constraints of one body.
type Set struct {
	outlives []OutlivesConstraint
}

// Push appends c; `r: r` is dropped since it never changes a value.
func (s *Set) Push(c OutlivesConstraint) {
	if c.Sup == c.Sub {
		return
	}
	s.outlives = append(s.outlives, c)
}

func (s *Set) Len() int { return len(s.outlives) }

func (s *Set) At(i Index) OutlivesConstraint { return s.outlives[i] }

// All returns the constraints in insertion order. The slice must not be
// modified.
func (s *Set) All() []OutlivesConstraint { return s.outlives }

// Graph builds the forward outlives graph over numRegions nodes.
func (s *Set) Graph(numRegions int) *Graph { return NewGraph(s, numRegions) }

// Sccs computes the strongly connected components of the set.
func (s *Set) Sccs(numRegions int) (*Graph, *Sccs) {
	g := s.Graph(numRegions)
	return g, ComputeSccs(g)
}
