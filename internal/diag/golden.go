package diag

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"regionck/internal/source"
)

// PathFunc maps a span's file to the path printed next to it. A nil PathFunc
// prints the numeric file id.
type PathFunc func(source.FileID) string

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Start    uint32
	End      uint32
	Message  string
}

// FormatGoldenDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation suitable for fixture expectations and golden files. Entries are
// sorted deterministically and returned as a single string (empty when there
// are none).
func FormatGoldenDiagnostics(diags []Diagnostic, paths PathFunc, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}
	rendered := make([]goldenDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendDiagnostic(rendered, &diags[i], paths, includeNotes)
	}

	slices.SortStableFunc(rendered, func(di, dj goldenDiagnostic) int {
		if c := cmp.Compare(di.Path, dj.Path); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Start, dj.Start); c != 0 {
			return c
		}
		if c := cmp.Compare(di.End, dj.End); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Severity, dj.Severity); c != 0 {
			return c
		}
		if c := cmp.Compare(di.Code, dj.Code); c != 0 {
			return c
		}
		return cmp.Compare(di.Message, dj.Message)
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d-%d %s", d.Severity, d.Code, d.Path, d.Start, d.End, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []goldenDiagnostic, d *Diagnostic, paths PathFunc, includeNotes bool) []goldenDiagnostic {
	out = append(out, goldenDiagnostic{
		Severity: severityLabel(d.Severity),
		Code:     d.Code.ID(),
		Path:     pathOf(paths, d.Primary.File),
		Start:    d.Primary.Start,
		End:      d.Primary.End,
		Message:  sanitizeMessage(d.Message),
	})
	if includeNotes {
		for _, note := range d.Notes {
			out = append(out, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Path:     pathOf(paths, note.Span.File),
				Start:    note.Span.Start,
				End:      note.Span.End,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}
	return out
}

func pathOf(paths PathFunc, id source.FileID) string {
	if paths == nil {
		return fmt.Sprintf("#%d", id)
	}
	return normalizePath(paths(id))
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
