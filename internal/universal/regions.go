// Package universal describes the universal regions of a body and the
// outlives facts known about them before inference runs.
package universal

import (
	"fmt"

	"regionck/internal/regions"
	"regionck/internal/ty"
)

// Classification says where a universal region is bound.
type Classification uint8

const (
	// Global regions ('static) are nameable everywhere.
	Global Classification = iota
	// External regions are bound by the closure's creator.
	External
	// Local regions are bound by the body itself; a closure cannot
	// report constraints on them to its creator.
	Local
)

func (c Classification) String() string {
	switch c {
	case Global:
		return "global"
	case External:
		return "external"
	case Local:
		return "local"
	default:
		return fmt.Sprintf("classification(%d)", c)
	}
}

// Regions is the table of universal regions. They occupy the first
// region ids: globals, then externals, then locals. Id 0 is 'static.
type Regions struct {
	firstExtern int
	firstLocal  int
	num         int
	fnBody      regions.RegionVid
	names       []string
	byName      map[string]regions.RegionVid
}

// NewRegions validates a classification list (one entry per universal
// region, in id order) and builds the table. names may be shorter than
// classes; missing names stay anonymous.
func NewRegions(classes []Classification, names []string, fnBody regions.RegionVid) (*Regions, error) {
	if len(classes) == 0 || classes[0] != Global {
		return nil, fmt.Errorf("universal region '?0 must be the global 'static region")
	}
	r := &Regions{num: len(classes), fnBody: fnBody, names: make([]string, len(classes)), byName: make(map[string]regions.RegionVid)}
	r.firstExtern, r.firstLocal = len(classes), len(classes)
	for i, c := range classes {
		if i > 0 && c < classes[i-1] {
			return nil, fmt.Errorf("universal region '?%d is %s after a %s region", i, c, classes[i-1])
		}
		if c >= External && r.firstExtern == len(classes) {
			r.firstExtern = i
		}
		if c == Local && r.firstLocal == len(classes) {
			r.firstLocal = i
		}
	}
	if int(fnBody) >= len(classes) {
		return nil, fmt.Errorf("fn body region %s is not universal", fnBody)
	}
	r.names[0] = "'static"
	r.byName["'static"] = 0
	for i, n := range names {
		if i >= len(classes) || n == "" || i == 0 {
			continue
		}
		if _, dup := r.byName[n]; dup {
			return nil, fmt.Errorf("universal region %s declared twice", n)
		}
		r.names[i] = n
		r.byName[n] = regions.VidFromInt(i)
	}
	return r, nil
}

func (r *Regions) Len() int { return r.num }

func (r *Regions) Static() regions.RegionVid { return 0 }

// FnBody is the region of the function body: every universal region
// outlives it.
func (r *Regions) FnBody() regions.RegionVid { return r.fnBody }

func (r *Regions) IsUniversalRegion(v regions.RegionVid) bool { return int(v) < r.num }

// IsLocalFreeRegion reports whether v is universal and bound by the body.
func (r *Regions) IsLocalFreeRegion(v regions.RegionVid) bool {
	c, ok := r.RegionClassification(v)
	return ok && c == Local
}

func (r *Regions) RegionClassification(v regions.RegionVid) (Classification, bool) {
	i := int(v)
	switch {
	case i >= r.num:
		return 0, false
	case i >= r.firstLocal:
		return Local, true
	case i >= r.firstExtern:
		return External, true
	default:
		return Global, true
	}
}

// NumGlobalAndExternalRegions counts the regions a closure's creator can
// name.
func (r *Regions) NumGlobalAndExternalRegions() int { return r.firstLocal }

// UniversalRegions lists every universal region in id order.
func (r *Regions) UniversalRegions() []regions.RegionVid {
	out := make([]regions.RegionVid, r.num)
	for i := range out {
		out[i] = regions.VidFromInt(i)
	}
	return out
}

// NamedUniversalRegion pairs a name with its region.
type NamedUniversalRegion struct {
	Name string
	Vid  regions.RegionVid
}

// NamedUniversalRegions lists the named universal regions in id order.
func (r *Regions) NamedUniversalRegions() []NamedUniversalRegion {
	var out []NamedUniversalRegion
	for i, n := range r.names {
		if n != "" {
			out = append(out, NamedUniversalRegion{Name: n, Vid: regions.VidFromInt(i)})
		}
	}
	return out
}

// Name returns the declared name of a universal region or "".
func (r *Regions) Name(v regions.RegionVid) string {
	if int(v) < len(r.names) {
		return r.names[v]
	}
	return ""
}

// Lookup resolves a universal region name.
func (r *Regions) Lookup(name string) (regions.RegionVid, bool) {
	v, ok := r.byName[name]
	return v, ok
}

// ToRegionVid maps a region appearing in a type to its variable.
func (r *Regions) ToRegionVid(reg ty.Region) regions.RegionVid {
	switch reg.Kind {
	case ty.RegionVar:
		return reg.Vid
	case ty.RegionStatic:
		return r.Static()
	case ty.RegionNamed:
		if v, ok := r.byName[reg.Name]; ok {
			return v
		}
	}
	panic(fmt.Errorf("region %s has no region variable", reg))
}
