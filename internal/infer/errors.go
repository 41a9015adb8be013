package infer

import (
	"fmt"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/ty"
)

// RegionErrorKind is one violation found by Solve. The set of kinds is
// closed: RegionError, BoundUniversalRegionError, TypeTestError and
// UnexpectedHiddenRegion.
type RegionErrorKind interface {
	fmt.Stringer
	regionErrorKind()
}

// RegionError: LongerFR does not outlive ShorterFR. IsReported is false for
// duplicates the caller may suppress.
type RegionError struct {
	LongerFR   regions.RegionVid
	ShorterFR  regions.RegionVid
	Origin     regions.Origin
	IsReported bool
}

// BoundUniversalRegionError: a placeholder leaked out of its universe and
// its value came to contain ErrorElement.
type BoundUniversalRegionError struct {
	LongerFR     regions.RegionVid
	ErrorElement regions.RegionElement
	Origin       regions.Origin
}

// TypeTestError: a type outlives obligation could not be proven.
type TypeTestError struct {
	TypeTest constraints.TypeTest
}

// UnexpectedHiddenRegion: the hidden type of an opaque type names a region
// that is none of its permitted choices.
type UnexpectedHiddenRegion struct {
	Span         source.Span
	HiddenTy     ty.Ty
	MemberRegion ty.Region
}

func (RegionError) regionErrorKind()               {}
func (BoundUniversalRegionError) regionErrorKind() {}
func (TypeTestError) regionErrorKind()             {}
func (UnexpectedHiddenRegion) regionErrorKind()    {}

func (e RegionError) String() string {
	s := fmt.Sprintf("region_error %s %s", e.LongerFR, e.ShorterFR)
	if e.IsReported {
		s += " reported"
	}
	return s
}

func (e BoundUniversalRegionError) String() string {
	return fmt.Sprintf("bound_universal %s %s", e.LongerFR, e.ErrorElement)
}

func (e TypeTestError) String() string {
	return fmt.Sprintf("type_test %s %s", e.TypeTest.GenericKind, e.TypeTest.LowerBound)
}

func (e UnexpectedHiddenRegion) String() string {
	return fmt.Sprintf("hidden_region %s in %s", e.MemberRegion, e.HiddenTy)
}

// RegionErrors is the error buffer returned by Solve, in detection order.
type RegionErrors []RegionErrorKind

func (es RegionErrors) Strings() []string {
	out := make([]string, len(es))
	for i, e := range es {
		out[i] = e.String()
	}
	return out
}
