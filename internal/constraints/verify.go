package constraints

import (
	"strings"

	"regionck/internal/regions"
	"regionck/internal/ty"
)

// BoundKind tags a VerifyBound node.
type BoundKind uint8

const (
	BoundIfEq BoundKind = iota
	BoundIsEmpty
	BoundOutlivedBy
	BoundAny
	BoundAll
)

// VerifyBound is a predicate on the lower bound of a type test.
type VerifyBound struct {
	Kind   BoundKind
	Ty     ty.Ty         // IfEq
	Region ty.Region     // OutlivedBy
	Inner  []VerifyBound // IfEq holds one child, Any/All any number
}

func IfEq(t ty.Ty, inner VerifyBound) VerifyBound {
	return VerifyBound{Kind: BoundIfEq, Ty: t, Inner: []VerifyBound{inner}}
}

func IsEmpty() VerifyBound { return VerifyBound{Kind: BoundIsEmpty} }

func OutlivedBy(r ty.Region) VerifyBound { return VerifyBound{Kind: BoundOutlivedBy, Region: r} }

func AnyBound(bs ...VerifyBound) VerifyBound { return VerifyBound{Kind: BoundAny, Inner: bs} }

func AllBounds(bs ...VerifyBound) VerifyBound { return VerifyBound{Kind: BoundAll, Inner: bs} }

// MustHold reports whether the bound is trivially true.
func (b VerifyBound) MustHold() bool {
	switch b.Kind {
	case BoundIfEq, BoundIsEmpty:
		return false
	case BoundOutlivedBy:
		return b.Region.Kind == ty.RegionStatic
	case BoundAny:
		for _, in := range b.Inner {
			if in.MustHold() {
				return true
			}
		}
		return false
	default:
		for _, in := range b.Inner {
			if !in.MustHold() {
				return false
			}
		}
		return true
	}
}

func (b VerifyBound) String() string {
	var sb strings.Builder
	b.write(&sb)
	return sb.String()
}

func (b VerifyBound) write(sb *strings.Builder) {
	switch b.Kind {
	case BoundIfEq:
		sb.WriteString("if_eq(")
		sb.WriteString(b.Ty.String())
		sb.WriteString(", ")
		b.Inner[0].write(sb)
		sb.WriteByte(')')
	case BoundIsEmpty:
		sb.WriteString("is_empty")
	case BoundOutlivedBy:
		sb.WriteString("outlived_by(")
		sb.WriteString(b.Region.String())
		sb.WriteByte(')')
	case BoundAny, BoundAll:
		if b.Kind == BoundAny {
			sb.WriteString("any(")
		} else {
			sb.WriteString("all(")
		}
		for i, in := range b.Inner {
			if i > 0 {
				sb.WriteString(", ")
			}
			in.write(sb)
		}
		sb.WriteByte(')')
	}
}

// TypeTest is a pending `GenericKind: LowerBound` obligation that could
// only be phrased as a VerifyBound.
type TypeTest struct {
	GenericKind ty.GenericKind
	LowerBound  regions.RegionVid
	Locations   Locations
	VerifyBound VerifyBound
}

func (t TypeTest) String() string {
	return t.GenericKind.String() + ": " + t.LowerBound.String() + " if " + t.VerifyBound.String()
}
