package fixture

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"regionck/internal/regions"
)

// Expect is the [expect] table. Errors and Requirements are compared in
// order and always checked; Values only for the listed regions.
type Expect struct {
	Errors       []string          `toml:"errors" yaml:"errors"`
	Requirements []string          `toml:"requirements" yaml:"requirements"`
	Values       map[string]string `toml:"values" yaml:"values"`
}

// Observed is what one run produced, already renamed with Problem.Rename.
type Observed struct {
	Errors       []string
	Requirements []string
	Values       map[string]string
}

// Mismatch is one expectation that did not hold.
type Mismatch struct {
	What string
	Got  string
	Want string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: got %s, want %s", m.What, m.Got, m.Want)
}

// Check compares obs against the expectations. A nil Expect accepts
// everything.
func (e *Expect) Check(obs Observed) []Mismatch {
	if e == nil {
		return nil
	}
	var out []Mismatch
	if !slices.Equal(normalizeAll(e.Errors), normalizeAll(obs.Errors)) {
		out = append(out, Mismatch{What: "errors", Got: list(obs.Errors), Want: list(e.Errors)})
	}
	if !slices.Equal(normalizeAll(e.Requirements), normalizeAll(obs.Requirements)) {
		out = append(out, Mismatch{What: "requirements", Got: list(obs.Requirements), Want: list(e.Requirements)})
	}
	keys := make([]string, 0, len(e.Values))
	for k := range e.Values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		got, ok := obs.Values[normalizeName(k)]
		if !ok {
			got = "<missing>"
		}
		if want := strings.TrimSpace(e.Values[k]); got != want {
			out = append(out, Mismatch{What: "value of " + k, Got: got, Want: want})
		}
	}
	return out
}

// ValueKeys lists the regions whose values the expectations mention.
func (e *Expect) ValueKeys() []string {
	if e == nil {
		return nil
	}
	out := make([]string, 0, len(e.Values))
	for k := range e.Values {
		out = append(out, normalizeName(k))
	}
	slices.Sort(out)
	return out
}

func normalizeAll(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = strings.Join(strings.Fields(normalizeName(x)), " ")
	}
	return out
}

func list(xs []string) string {
	return "[" + strings.Join(xs, "; ") + "]"
}

var vidPattern = regexp.MustCompile(`'\?\d+`)

// Rename replaces region ids such as '?3 in engine output with the names
// the fixture declared.
func (p *Problem) Rename(s string) string {
	return vidPattern.ReplaceAllStringFunc(s, func(m string) string {
		n, err := strconv.Atoi(m[2:])
		if err != nil || n >= len(p.names) {
			return m
		}
		return p.RegionName(regions.VidFromInt(n))
	})
}

// RenameAll applies Rename to every string.
func (p *Problem) RenameAll(xs []string) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = p.Rename(x)
	}
	return out
}
