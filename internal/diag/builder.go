package diag

import (
	"fmt"

	"regionck/internal/source"
)

// New builds a diagnostic with an explicit severity.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

// ForCode builds a diagnostic with the code's own severity.
func ForCode(code Code, primary source.Span, msg string) Diagnostic {
	return New(SeverityOf(code), code, primary, msg)
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}

func (d Diagnostic) WithNotef(sp source.Span, format string, args ...any) Diagnostic {
	return d.WithNote(sp, fmt.Sprintf(format, args...))
}
