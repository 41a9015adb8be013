package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"regionck/internal/diag"
	"regionck/internal/source"
)

type palette struct {
	err, warn, info, note, code, path *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:  color.New(color.FgRed, color.Bold),
		warn: color.New(color.FgYellow, color.Bold),
		info: color.New(color.FgCyan),
		note: color.New(color.FgBlue),
		code: color.New(color.Faint),
		path: color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.code, p.path} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид.
// Идёт по bag.Items() (ожидается bag.Sort() заранее).
// Для каждого diag печатает:
// <path>:<start>-<end>: <SEV> <CODE>: <Message>
// затем Notes с отступом.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	p := newPalette(opts.Color)
	for _, d := range bag.Items() {
		_, err := fmt.Fprintf(w, "%s: %s %s: %s\n",
			p.path.Sprint(location(opts.Paths, d.Primary)),
			p.severity(d.Severity).Sprint(d.Severity),
			p.code.Sprint(d.Code.ID()),
			d.Message)
		if err != nil {
			return err
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			if _, err := fmt.Fprintf(w, "  %s %s: %s\n", p.note.Sprint("note"), location(opts.Paths, n.Span), n.Msg); err != nil {
				return err
			}
		}
	}
	return nil
}

func location(paths diag.PathFunc, sp source.Span) string {
	path := fmt.Sprintf("#%d", sp.File)
	if paths != nil {
		path = paths(sp.File)
	}
	return fmt.Sprintf("%s:%d-%d", path, sp.Start, sp.End)
}
