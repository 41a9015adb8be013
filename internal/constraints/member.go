package constraints

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/ty"
)

// MemberIndex identifies a member constraint inside its set.
type MemberIndex uint32

func memberFromInt(i int) MemberIndex {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("member constraint index overflow: %w", err))
	}
	return MemberIndex(v)
}

// MemberConstraint requires the value of MemberRegion to equal the value
// of one of ChoiceRegions. It comes from inferring the hidden type of an
// opaque type.
type MemberConstraint[R comparable] struct {
	OpaqueDefID    string
	DefinitionSpan source.Span
	HiddenTy       ty.Ty
	MemberRegion   R
	ChoiceRegions  []regions.RegionVid
}

// MemberConstraintSet groups member constraints by member region. Within
// one key the newest constraint comes first, so propagation tries the
// latest constraint on a region before earlier ones.
type MemberConstraintSet[R comparable] struct {
	constraints []MemberConstraint[R]
	byKey       map[R][]MemberIndex
	keys        []R
}

func NewMemberConstraintSet[R comparable]() *MemberConstraintSet[R] {
	return &MemberConstraintSet[R]{byKey: make(map[R][]MemberIndex)}
}

// Push records a constraint and returns its index.
func (s *MemberConstraintSet[R]) Push(c MemberConstraint[R]) MemberIndex {
	idx := memberFromInt(len(s.constraints))
	s.constraints = append(s.constraints, c)
	if _, ok := s.byKey[c.MemberRegion]; !ok {
		s.keys = append(s.keys, c.MemberRegion)
	}
	s.byKey[c.MemberRegion] = slices.Insert(s.byKey[c.MemberRegion], 0, idx)
	return idx
}

func (s *MemberConstraintSet[R]) Len() int {
	if s == nil {
		return 0
	}
	return len(s.constraints)
}

func (s *MemberConstraintSet[R]) At(i MemberIndex) MemberConstraint[R] { return s.constraints[i] }

// Indices lists the constraints whose member region is key, newest first.
func (s *MemberConstraintSet[R]) Indices(key R) []MemberIndex {
	if s == nil {
		return nil
	}
	return s.byKey[key]
}

// Keys lists the member regions in order of first appearance.
func (s *MemberConstraintSet[R]) Keys() []R {
	if s == nil {
		return nil
	}
	return s.keys
}

// AllIndices lists every constraint index in insertion order.
func (s *MemberConstraintSet[R]) AllIndices() []MemberIndex {
	out := make([]MemberIndex, s.Len())
	for i := range out {
		out[i] = memberFromInt(i)
	}
	return out
}

// MapMemberConstraints rekeys the set, e.g. from regions to their SCCs.
// Indices are preserved; constraints whose keys collapse together are
// listed newest first like any other key.
func MapMemberConstraints[R, R2 comparable](s *MemberConstraintSet[R], fn func(R) R2) *MemberConstraintSet[R2] {
	out := NewMemberConstraintSet[R2]()
	if s == nil {
		return out
	}
	for _, c := range s.constraints {
		out.Push(MemberConstraint[R2]{
			OpaqueDefID:    c.OpaqueDefID,
			DefinitionSpan: c.DefinitionSpan,
			HiddenTy:       c.HiddenTy,
			MemberRegion:   fn(c.MemberRegion),
			ChoiceRegions:  c.ChoiceRegions,
		})
	}
	return out
}
