// Package ty holds the small type terms the region engine needs: enough
// structure to carry regions through type tests, member constraints and
// closure requirements.
package ty

import (
	"fmt"
	"strings"

	"regionck/internal/regions"
)

// RegionKind tags a Region.
type RegionKind uint8

const (
	RegionVar RegionKind = iota
	RegionStatic
	RegionNamed
	RegionErased
)

// Region is a region as it appears inside a type.
type Region struct {
	Kind RegionKind
	Vid  regions.RegionVid
	Name string
}

func ReVar(v regions.RegionVid) Region { return Region{Kind: RegionVar, Vid: v} }

func ReStatic() Region { return Region{Kind: RegionStatic} }

func ReNamed(name string) Region { return Region{Kind: RegionNamed, Name: name} }

func ReErased() Region { return Region{Kind: RegionErased} }

func (r Region) String() string {
	switch r.Kind {
	case RegionVar:
		return r.Vid.String()
	case RegionStatic:
		return "'static"
	case RegionNamed:
		return r.Name
	default:
		return "'_"
	}
}

// Kind tags a Ty.
type Kind uint8

const (
	KindParam Kind = iota
	KindRef
	KindAdt
	KindProjection
	KindTuple
	KindPrim
)

var kindNames = [...]string{
	KindParam:      "param",
	KindRef:        "ref",
	KindAdt:        "adt",
	KindProjection: "projection",
	KindTuple:      "tuple",
	KindPrim:       "prim",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// Ty is a type term.
//
//	Param       Name
//	Ref         &Regions[0] Args[0], Mut marks `&mut`
//	Adt         Name<Regions..., Args...>
//	Projection  Args[0]::Name, Regions are the trait's region arguments
//	Tuple       (Args...)
//	Prim        Name
type Ty struct {
	Kind    Kind
	Name    string
	Mut     bool
	Regions []Region
	Args    []Ty
}

func Param(name string) Ty { return Ty{Kind: KindParam, Name: name} }

func Prim(name string) Ty { return Ty{Kind: KindPrim, Name: name} }

func Ref(r Region, inner Ty, mut bool) Ty {
	return Ty{Kind: KindRef, Mut: mut, Regions: []Region{r}, Args: []Ty{inner}}
}

func Adt(name string, rs []Region, args []Ty) Ty {
	return Ty{Kind: KindAdt, Name: name, Regions: rs, Args: args}
}

func Projection(self Ty, item string, rs []Region) Ty {
	return Ty{Kind: KindProjection, Name: item, Regions: rs, Args: []Ty{self}}
}

func Tuple(elems ...Ty) Ty { return Ty{Kind: KindTuple, Args: elems} }

func (t Ty) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t Ty) write(sb *strings.Builder) {
	switch t.Kind {
	case KindParam, KindPrim:
		sb.WriteString(t.Name)
	case KindRef:
		sb.WriteByte('&')
		if len(t.Regions) > 0 && t.Regions[0].Kind != RegionErased {
			sb.WriteString(t.Regions[0].String())
			sb.WriteByte(' ')
		}
		if t.Mut {
			sb.WriteString("mut ")
		}
		if len(t.Args) > 0 {
			t.Args[0].write(sb)
		}
	case KindAdt:
		sb.WriteString(t.Name)
		writeGenerics(sb, t.Regions, t.Args)
	case KindProjection:
		if len(t.Args) > 0 {
			t.Args[0].write(sb)
		}
		writeGenerics(sb, t.Regions, nil)
		sb.WriteString("::")
		sb.WriteString(t.Name)
	case KindTuple:
		sb.WriteByte('(')
		for i, a := range t.Args {
			if i > 0 {
				sb.WriteString(", ")
			}
			a.write(sb)
		}
		if len(t.Args) == 1 {
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
	}
}

func writeGenerics(sb *strings.Builder, rs []Region, args []Ty) {
	if len(rs) == 0 && len(args) == 0 {
		return
	}
	sb.WriteByte('<')
	n := 0
	for _, r := range rs {
		if n > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(r.String())
		n++
	}
	for _, a := range args {
		if n > 0 {
			sb.WriteString(", ")
		}
		a.write(sb)
		n++
	}
	sb.WriteByte('>')
}

// FoldRegions rebuilds t with every region replaced by fn(region).
func FoldRegions(t Ty, fn func(Region) Region) Ty {
	out := Ty{Kind: t.Kind, Name: t.Name, Mut: t.Mut}
	if len(t.Regions) > 0 {
		out.Regions = make([]Region, len(t.Regions))
		for i, r := range t.Regions {
			out.Regions[i] = fn(r)
		}
	}
	if len(t.Args) > 0 {
		out.Args = make([]Ty, len(t.Args))
		for i, a := range t.Args {
			out.Args[i] = FoldRegions(a, fn)
		}
	}
	return out
}

// WalkRegions calls fn for every region of t in left-to-right order until
// fn returns false.
func WalkRegions(t Ty, fn func(Region) bool) bool {
	for _, r := range t.Regions {
		if !fn(r) {
			return false
		}
	}
	for _, a := range t.Args {
		if !WalkRegions(a, fn) {
			return false
		}
	}
	return true
}

// EraseRegions replaces every region with '_.
func EraseRegions(t Ty) Ty {
	return FoldRegions(t, func(Region) Region { return ReErased() })
}

// HasInferRegions reports whether t mentions a region variable.
func HasInferRegions(t Ty) bool {
	found := false
	WalkRegions(t, func(r Region) bool {
		found = r.Kind == RegionVar
		return !found
	})
	return found
}

func Equal(a, b Ty) bool {
	if a.Kind != b.Kind || a.Name != b.Name || a.Mut != b.Mut ||
		len(a.Regions) != len(b.Regions) || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Regions {
		if a.Regions[i] != b.Regions[i] {
			return false
		}
	}
	for i := range a.Args {
		if !Equal(a.Args[i], b.Args[i]) {
			return false
		}
	}
	return true
}

// GenericKind is the subject of a type test: a type parameter or a
// projection.
type GenericKind struct {
	ty Ty
}

// NewGenericKind wraps t; only parameters and projections qualify.
func NewGenericKind(t Ty) (GenericKind, error) {
	switch t.Kind {
	case KindParam, KindProjection:
		return GenericKind{ty: t}, nil
	default:
		return GenericKind{}, fmt.Errorf("type %s is not a parameter or projection", t)
	}
}

func (g GenericKind) ToTy() Ty { return g.ty }

func (g GenericKind) String() string { return g.ty.String() }

// Erased returns g with its regions erased, for deduplication.
func (g GenericKind) Erased() GenericKind { return GenericKind{ty: EraseRegions(g.ty)} }
