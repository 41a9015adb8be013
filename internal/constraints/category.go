package constraints

import (
	"fmt"
	"strings"
)

// Category classifies why a constraint was emitted. Only blame ranking
// looks at it; smaller values are more interesting to report.
type Category uint8

const (
	CategoryReturn Category = iota
	CategoryYield
	CategoryUseAsConst
	CategoryUseAsStatic
	CategoryTypeAnnotation
	CategoryCast
	CategoryClosureBounds
	CategoryCallArgument
	CategoryCopyBound
	CategorySizedBound
	CategoryAssignment
	CategoryOpaqueType
	CategoryBoring
	CategoryBoringNoLocation
	CategoryInternal
)

var categoryNames = [...]string{
	CategoryReturn:           "return",
	CategoryYield:            "yield",
	CategoryUseAsConst:       "use_as_const",
	CategoryUseAsStatic:      "use_as_static",
	CategoryTypeAnnotation:   "type_annotation",
	CategoryCast:             "cast",
	CategoryClosureBounds:    "closure_bounds",
	CategoryCallArgument:     "call_argument",
	CategoryCopyBound:        "copy_bound",
	CategorySizedBound:       "sized_bound",
	CategoryAssignment:       "assignment",
	CategoryOpaqueType:       "opaque_type",
	CategoryBoring:           "boring",
	CategoryBoringNoLocation: "boring_no_location",
	CategoryInternal:         "internal",
}

func (c Category) String() string {
	if int(c) < len(categoryNames) {
		return categoryNames[c]
	}
	return fmt.Sprintf("category(%d)", c)
}

// ParseCategory accepts the snake_case names printed by String.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryBoring, nil
	}
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown constraint category %q", s)
}

// IsBoring reports whether the category carries no useful blame.
func (c Category) IsBoring() bool {
	switch c {
	case CategoryOpaqueType, CategoryBoring, CategoryBoringNoLocation, CategoryInternal:
		return true
	default:
		return false
	}
}
