package regions

import (
	"fmt"

	"fortio.org/safecast"
)

// RegionVid identifies a region variable. Ids are dense and start at zero;
// the first ids are the universal regions of the body.
type RegionVid uint32

func (r RegionVid) String() string {
	return fmt.Sprintf("'?%d", uint32(r))
}

// VidFromInt converts a slice index into a RegionVid.
func VidFromInt(i int) RegionVid {
	v, err := safecast.Conv[uint32](i)
	if err != nil {
		panic(fmt.Errorf("region vid overflow: %w", err))
	}
	return RegionVid(v)
}

// Universe indexes the nesting of higher-ranked binders. RootUniverse
// names only the regions of the enclosing item.
type Universe uint32

const RootUniverse Universe = 0

// MaxUniverse is larger than any universe a body can mention.
const MaxUniverse Universe = ^Universe(0)

// CanName reports whether a region introduced in other is visible from u.
func (u Universe) CanName(other Universe) bool {
	return other <= u
}

func (u Universe) CannotName(other Universe) bool {
	return !u.CanName(other)
}

func (u Universe) String() string {
	return fmt.Sprintf("U%d", uint32(u))
}

// PlaceholderRegion is a skolemized `for<'a>` region.
type PlaceholderRegion struct {
	Universe Universe
	Bound    uint32
}

func (p PlaceholderRegion) String() string {
	return fmt.Sprintf("!%d_%d", uint32(p.Universe), p.Bound)
}

// OriginKind classifies where a region variable came from.
type OriginKind uint8

const (
	OriginExistential OriginKind = iota
	OriginFreeRegion
	OriginPlaceholder
)

func (k OriginKind) String() string {
	switch k {
	case OriginFreeRegion:
		return "free"
	case OriginPlaceholder:
		return "placeholder"
	case OriginExistential:
		return "existential"
	default:
		return "unknown"
	}
}

// Origin describes a region variable. Placeholder is meaningful only for
// OriginPlaceholder and FromForall only for OriginExistential.
type Origin struct {
	Kind        OriginKind
	Placeholder PlaceholderRegion
	FromForall  bool
}

func FreeRegion() Origin { return Origin{Kind: OriginFreeRegion} }

func Placeholder(p PlaceholderRegion) Origin {
	return Origin{Kind: OriginPlaceholder, Placeholder: p}
}

func Existential(fromForall bool) Origin {
	return Origin{Kind: OriginExistential, FromForall: fromForall}
}

func (o Origin) String() string {
	switch o.Kind {
	case OriginPlaceholder:
		return "placeholder(" + o.Placeholder.String() + ")"
	case OriginExistential:
		if o.FromForall {
			return "existential(forall)"
		}
		return "existential"
	default:
		return o.Kind.String()
	}
}

// VarInfo is what type-checking knows about a region variable when it
// hands the body over to region inference.
type VarInfo struct {
	Universe Universe
	Origin   Origin
}

// Definition is the per-variable record kept by the inference context.
type Definition struct {
	Origin       Origin
	Universe     Universe
	ExternalName string
}

// NewDefinition builds a definition from type-check info. The external
// name is filled in later for named universal regions.
func NewDefinition(info VarInfo) Definition {
	return Definition{Origin: info.Origin, Universe: info.Universe}
}
