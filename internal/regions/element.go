package regions

import "fmt"

// ElementKind tags a RegionElement.
type ElementKind uint8

const (
	ElementLocation ElementKind = iota
	ElementRootUniversal
	ElementPlaceholder
)

// RegionElement is one member of a region value: a CFG point, the end of a
// universal region, or a placeholder.
type RegionElement struct {
	Kind        ElementKind
	Location    Location
	Region      RegionVid
	Placeholder PlaceholderRegion
}

func LocationElement(l Location) RegionElement {
	return RegionElement{Kind: ElementLocation, Location: l}
}

func UniversalElement(r RegionVid) RegionElement {
	return RegionElement{Kind: ElementRootUniversal, Region: r}
}

func PlaceholderElement(p PlaceholderRegion) RegionElement {
	return RegionElement{Kind: ElementPlaceholder, Placeholder: p}
}

func (e RegionElement) String() string {
	switch e.Kind {
	case ElementLocation:
		return e.Location.String()
	case ElementRootUniversal:
		return e.Region.String()
	case ElementPlaceholder:
		return e.Placeholder.String()
	default:
		return fmt.Sprintf("<element %d>", e.Kind)
	}
}
