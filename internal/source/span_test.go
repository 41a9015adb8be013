package source

import "testing"

func TestSpanCover(t *testing.T) {
	tests := []struct {
		name string
		a, b Span
		want Span
	}{
		{"disjoint", Span{File: 1, Start: 2, End: 4}, Span{File: 1, Start: 8, End: 9}, Span{File: 1, Start: 2, End: 9}},
		{"nested", Span{File: 1, Start: 0, End: 10}, Span{File: 1, Start: 3, End: 5}, Span{File: 1, Start: 0, End: 10}},
		{"other file", Span{File: 1, Start: 2, End: 4}, Span{File: 2, Start: 0, End: 9}, Span{File: 1, Start: 2, End: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Cover(tt.b); got != tt.want {
				t.Fatalf("Cover() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSpanContainsAndLen(t *testing.T) {
	outer := Span{File: 3, Start: 10, End: 20}
	if !outer.Contains(Span{File: 3, Start: 10, End: 20}) {
		t.Fatalf("span must contain itself")
	}
	if outer.Contains(Span{File: 3, Start: 9, End: 12}) {
		t.Fatalf("span must not contain a range starting before it")
	}
	if got := outer.Len(); got != 10 {
		t.Fatalf("Len() = %d, want 10", got)
	}
	if !(Span{Start: 4, End: 4}).Empty() {
		t.Fatalf("zero-width span must be empty")
	}
	if got := outer.String(); got != "3:10-20" {
		t.Fatalf("String() = %q, want %q", got, "3:10-20")
	}
}
