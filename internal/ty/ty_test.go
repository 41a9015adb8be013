package ty

import (
	"testing"

	"regionck/internal/regions"
)

func TestParseRoundTrip(t *testing.T) {
	for _, src := range []string{
		"T",
		"u32",
		"&'a T",
		"&'?3 mut Vec<'b, T>",
		"(T, &'static str)",
		"T<'a>::Item",
		"Foo<'a, Bar<T>>",
		"(T,)",
	} {
		got, err := Parse(src, nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", src, err)
		}
		if got.String() != src {
			t.Fatalf("Parse(%q).String() = %q", src, got.String())
		}
	}
}

func TestParseKinds(t *testing.T) {
	cases := []struct {
		src  string
		want Kind
	}{
		{"T", KindParam},
		{"T1", KindParam},
		{"Tx", KindAdt},
		{"bool", KindPrim},
		{"&T", KindRef},
		{"T::Item", KindProjection},
		{"()", KindTuple},
	}
	for _, tc := range cases {
		got, err := Parse(tc.src, nil)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.src, err)
		}
		if got.Kind != tc.want {
			t.Fatalf("Parse(%q).Kind = %s, want %s", tc.src, got.Kind, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "&", "Vec<T", "T::", "(T", "T extra", "Vec<T>::Item"} {
		if _, err := Parse(src, nil); err == nil {
			t.Fatalf("Parse(%q) succeeded, want error", src)
		}
	}
}

func TestFoldAndErase(t *testing.T) {
	src, err := Parse("&'?1 Vec<'?2, T>", nil)
	if err != nil {
		t.Fatal(err)
	}
	folded := FoldRegions(src, func(r Region) Region {
		if r.Kind == RegionVar {
			return ReVar(r.Vid + 10)
		}
		return r
	})
	if got := folded.String(); got != "&'?11 Vec<'?12, T>" {
		t.Fatalf("folded = %q", got)
	}
	if got := src.String(); got != "&'?1 Vec<'?2, T>" {
		t.Fatalf("fold mutated the input: %q", got)
	}
	if !HasInferRegions(src) {
		t.Fatalf("expected inference regions in %s", src)
	}
	erased := EraseRegions(src)
	if HasInferRegions(erased) {
		t.Fatalf("erased type still has variables: %s", erased)
	}
	other, _ := Parse("&'?5 Vec<'?6, T>", nil)
	if !Equal(erased, EraseRegions(other)) {
		t.Fatalf("erased types differ: %s vs %s", erased, EraseRegions(other))
	}
	if Equal(src, other) {
		t.Fatalf("types with different regions compare equal")
	}
}

func TestResolverIsUsed(t *testing.T) {
	names := map[string]regions.RegionVid{"'a": 4}
	got, err := Parse("&'a T", func(name string) (Region, error) {
		return ReVar(names[name]), nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if got.Regions[0] != ReVar(4) {
		t.Fatalf("region = %v, want '?4", got.Regions[0])
	}
}

func TestGenericKind(t *testing.T) {
	if _, err := NewGenericKind(Prim("u8")); err == nil {
		t.Fatalf("primitive accepted as generic kind")
	}
	p, _ := Parse("T<'?3>::Item", nil)
	g, err := NewGenericKind(p)
	if err != nil {
		t.Fatal(err)
	}
	if g.Erased().String() != "T<'_>::Item" {
		t.Fatalf("erased = %s", g.Erased())
	}
}
