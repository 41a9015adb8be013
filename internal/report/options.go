package report

import "regionck/internal/diag"

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	ShowNotes bool
	Paths     diag.PathFunc
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	Paths        diag.PathFunc
	Max          int // обрезка вывода, не Bag
	IncludeNotes bool
}
