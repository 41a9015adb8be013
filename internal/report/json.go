package report

import (
	"encoding/json"
	"fmt"
	"io"

	"regionck/internal/diag"
	"regionck/internal/infer"
	"regionck/internal/source"
)

// LocationJSON представляет местоположение в файле для JSON
type LocationJSON struct {
	File      string `json:"file"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// Output is the root of the JSON report for one fixture.
type Output struct {
	Fixture      string           `json:"fixture,omitempty"`
	Errors       []string         `json:"errors"`
	Requirements []string         `json:"requirements"`
	Diagnostics  []DiagnosticJSON `json:"diagnostics"`
	Count        int              `json:"count"`
}

func makeLocation(span source.Span, paths diag.PathFunc) LocationJSON {
	path := fmt.Sprintf("#%d", span.File)
	if paths != nil {
		path = paths(span.File)
	}
	return LocationJSON{File: path, StartByte: span.Start, EndByte: span.End}
}

// BuildOutput формирует структуру JSON-вывода без сериализации.
func BuildOutput(fixture string, errs infer.RegionErrors, reqs *infer.ClosureRegionRequirements, bag *diag.Bag, opts JSONOpts) Output {
	items := bag.Items()
	maxItems := len(items)
	if opts.Max > 0 && opts.Max < maxItems {
		maxItems = opts.Max
	}

	diagnostics := make([]DiagnosticJSON, 0, maxItems)
	for _, d := range items[:maxItems] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, opts.Paths),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{Message: note.Msg, Location: makeLocation(note.Span, opts.Paths)}
			}
		}
		diagnostics = append(diagnostics, dj)
	}

	return Output{
		Fixture:      fixture,
		Errors:       errs.Strings(),
		Requirements: RequirementStrings(reqs),
		Diagnostics:  diagnostics,
		Count:        len(diagnostics),
	}
}

// JSON форматирует результат в JSON.
func JSON(w io.Writer, out Output) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// RequirementStrings renders the propagated requirements as "subject: region".
// It never returns nil so JSON prints an empty list.
func RequirementStrings(reqs *infer.ClosureRegionRequirements) []string {
	if reqs == nil {
		return []string{}
	}
	out := make([]string, len(reqs.OutlivesRequirements))
	for i, r := range reqs.OutlivesRequirements {
		out[i] = r.String()
	}
	return out
}
