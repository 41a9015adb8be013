package infer

import (
	"fmt"

	"regionck/internal/constraints"
	"regionck/internal/regions"
	"regionck/internal/source"
	"regionck/internal/ty"
)

// ClosureOutlivesSubject is the left side of a propagated requirement:
// either a region of the closure's creator or a type.
type ClosureOutlivesSubject struct {
	IsTy   bool
	Region regions.RegionVid
	Ty     ty.Ty
}

func SubjectRegion(r regions.RegionVid) ClosureOutlivesSubject {
	return ClosureOutlivesSubject{Region: r}
}

func SubjectTy(t ty.Ty) ClosureOutlivesSubject {
	return ClosureOutlivesSubject{IsTy: true, Ty: t}
}

func (s ClosureOutlivesSubject) String() string {
	if s.IsTy {
		return s.Ty.String()
	}
	return s.Region.String()
}

// ClosureOutlivesRequirement asks the creator to prove Subject: OutlivedFreeRegion.
type ClosureOutlivesRequirement struct {
	Subject            ClosureOutlivesSubject
	OutlivedFreeRegion regions.RegionVid
	BlameSpan          source.Span
	Category           constraints.Category
}

func (r ClosureOutlivesRequirement) String() string {
	return fmt.Sprintf("%s: %s", r.Subject, r.OutlivedFreeRegion)
}

// ClosureRegionRequirements are the obligations a closure body hands back to
// its creator. Region ids below NumExternalVids are the closure's global and
// external regions.
type ClosureRegionRequirements struct {
	NumExternalVids      int
	OutlivesRequirements []ClosureOutlivesRequirement
}

// OutlivesPredicate is a requirement instantiated in the creator's regions.
// Exactly one of SubjectRegion and SubjectTy is meaningful, per IsTy.
type OutlivesPredicate struct {
	IsTy          bool
	SubjectRegion ty.Region
	SubjectTy     ty.Ty
	Outlived      ty.Region
	Category      constraints.Category
	Span          source.Span
}

func (p OutlivesPredicate) String() string {
	if p.IsTy {
		return fmt.Sprintf("%s: %s", p.SubjectTy, p.Outlived)
	}
	return fmt.Sprintf("%s: %s", p.SubjectRegion, p.Outlived)
}

// Apply instantiates the requirements with mapping, which gives the
// creator's region for each of the closure's external region ids.
func (c *ClosureRegionRequirements) Apply(mapping []ty.Region) ([]OutlivesPredicate, error) {
	if c == nil {
		return nil, nil
	}
	if len(mapping) < c.NumExternalVids {
		return nil, fmt.Errorf("closure mapping has %d regions, want %d", len(mapping), c.NumExternalVids)
	}
	lookup := func(r regions.RegionVid) (ty.Region, error) {
		if int(r) >= len(mapping) {
			return ty.Region{}, fmt.Errorf("requirement mentions %s outside the closure mapping", r)
		}
		return mapping[r], nil
	}
	out := make([]OutlivesPredicate, 0, len(c.OutlivesRequirements))
	for _, req := range c.OutlivesRequirements {
		outlived, err := lookup(req.OutlivedFreeRegion)
		if err != nil {
			return nil, err
		}
		p := OutlivesPredicate{Outlived: outlived, Category: req.Category, Span: req.BlameSpan}
		if req.Subject.IsTy {
			var ferr error
			p.IsTy = true
			p.SubjectTy = ty.FoldRegions(req.Subject.Ty, func(r ty.Region) ty.Region {
				if r.Kind != ty.RegionVar {
					return r
				}
				m, err := lookup(r.Vid)
				if err != nil && ferr == nil {
					ferr = err
				}
				return m
			})
			if ferr != nil {
				return nil, ferr
			}
		} else {
			p.SubjectRegion, err = lookup(req.Subject.Region)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, p)
	}
	return out, nil
}
