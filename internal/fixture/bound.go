package fixture

import (
	"fmt"
	"strings"

	"regionck/internal/constraints"
	"regionck/internal/diag"
	"regionck/internal/ty"
)

// ParseBound reads a verify bound:
//
//	any(b, ...)    all(b, ...)    is_empty    outlived_by('a)    if_eq(T, b)
//
// Regions and types are resolved through resolve.
func ParseBound(src string, resolve ty.Resolver) (constraints.VerifyBound, error) {
	b, err := parseBound(strings.TrimSpace(src), resolve)
	if err != nil {
		return constraints.VerifyBound{}, &Error{Code: diag.FixBadBound, Msg: fmt.Sprintf("bound %q", src), Err: err}
	}
	return b, nil
}

func parseBound(s string, resolve ty.Resolver) (constraints.VerifyBound, error) {
	if s == "is_empty" {
		return constraints.IsEmpty(), nil
	}
	head, args, ok := call(s)
	if !ok {
		return constraints.VerifyBound{}, errorf(diag.FixBadBound, "unexpected %q", s)
	}
	switch head {
	case "outlived_by":
		r, err := ty.ParseRegion(args, resolve)
		if err != nil {
			return constraints.VerifyBound{}, err
		}
		return constraints.OutlivedBy(r), nil
	case "if_eq":
		parts := splitTopLevel(args)
		if len(parts) != 2 {
			return constraints.VerifyBound{}, errorf(diag.FixBadBound, "if_eq takes a type and a bound")
		}
		t, err := ty.Parse(parts[0], resolve)
		if err != nil {
			return constraints.VerifyBound{}, err
		}
		inner, err := parseBound(parts[1], resolve)
		if err != nil {
			return constraints.VerifyBound{}, err
		}
		return constraints.IfEq(t, inner), nil
	case "any", "all":
		var inner []constraints.VerifyBound
		if strings.TrimSpace(args) != "" {
			for _, part := range splitTopLevel(args) {
				b, err := parseBound(part, resolve)
				if err != nil {
					return constraints.VerifyBound{}, err
				}
				inner = append(inner, b)
			}
		}
		if head == "any" {
			return constraints.AnyBound(inner...), nil
		}
		return constraints.AllBounds(inner...), nil
	}
	return constraints.VerifyBound{}, errorf(diag.FixBadBound, "unknown bound %q", head)
}

// call splits "name(args)" into its parts.
func call(s string) (string, string, bool) {
	open := strings.IndexByte(s, '(')
	if open <= 0 || !strings.HasSuffix(s, ")") {
		return "", "", false
	}
	return strings.TrimSpace(s[:open]), s[open+1 : len(s)-1], true
}

// splitTopLevel splits on commas outside (), <> pairs.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '<':
			depth++
		case ')', '>':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(out, strings.TrimSpace(s[start:]))
}
