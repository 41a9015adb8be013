package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"regionck/internal/diag"
	"regionck/internal/regions"
)

// ParseLocation reads "bb<block>[<statement>]".
func ParseLocation(s string) (regions.Location, error) {
	block, inner, err := splitLocation(s)
	if err != nil {
		return regions.Location{}, err
	}
	stmt, err := parseIndex(inner)
	if err != nil {
		return regions.Location{}, errorf(diag.FixBadLocation, "location %q: %v", s, err)
	}
	return regions.Location{Block: block, Statement: stmt}, nil
}

// ParseLocationRange reads a single location, "bb<block>[<from>..=<to>]",
// or "bb<block>[*]" for every point of the block. elements bounds the
// star form and validates the result.
func ParseLocationRange(s string, elements *regions.Elements) ([]regions.Location, error) {
	block, inner, err := splitLocation(s)
	if err != nil {
		return nil, err
	}
	if int(block) >= elements.NumBlocks() {
		return nil, errorf(diag.FixBadLocation, "location %q: no block bb%d", s, block)
	}
	var from, to uint32
	switch {
	case inner == "*":
		from, to = 0, uint32(elements.PointsInBlock(block)-1)
	case strings.Contains(inner, "..="):
		lo, hi, _ := strings.Cut(inner, "..=")
		if from, err = parseIndex(lo); err == nil {
			to, err = parseIndex(hi)
		}
		if err != nil {
			return nil, errorf(diag.FixBadLocation, "location %q: %v", s, err)
		}
		if to < from {
			return nil, errorf(diag.FixBadLocation, "location %q: empty range", s)
		}
	default:
		if from, err = parseIndex(inner); err != nil {
			return nil, errorf(diag.FixBadLocation, "location %q: %v", s, err)
		}
		to = from
	}
	out := make([]regions.Location, 0, to-from+1)
	for stmt := from; stmt <= to; stmt++ {
		loc := regions.Location{Block: block, Statement: stmt}
		if !elements.ValidLocation(loc) {
			return nil, errorf(diag.FixBadLocation, "location %s is outside the body", loc)
		}
		out = append(out, loc)
	}
	return out, nil
}

func splitLocation(s string) (uint32, string, error) {
	s = strings.TrimSpace(s)
	rest, ok := strings.CutPrefix(s, "bb")
	if !ok || !strings.HasSuffix(rest, "]") {
		return 0, "", errorf(diag.FixBadLocation, "location %q: want bb<block>[<statement>]", s)
	}
	head, inner, ok := strings.Cut(rest[:len(rest)-1], "[")
	if !ok {
		return 0, "", errorf(diag.FixBadLocation, "location %q: missing [", s)
	}
	block, err := parseIndex(head)
	if err != nil {
		return 0, "", errorf(diag.FixBadLocation, "location %q: %v", s, err)
	}
	return block, strings.TrimSpace(inner), nil
}

func parseIndex(s string) (uint32, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad index %q", s)
	}
	return uint32(n), nil
}
