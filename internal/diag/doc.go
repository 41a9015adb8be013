// Package diag defines the diagnostic model shared by the fixture loader,
// the region inference report and the CLI.
//
// # Data model
//
// Diagnostic is the central record. It contains:
//
//   - Severity – tri-level enum (Info, Warning, Error) defined in severity.go.
//   - Code – compact numeric identifier (see codes.go) with stable string form:
//     REGxxxx for inference results, FIXxxxx for fixture problems, IOxxxx and
//     OBSxxxx for the driver.
//   - Message – human oriented text; keep it short and actionable.
//   - Primary span – the source.Span the blame search settled on.
//   - Notes – optional secondary spans/messages for additional context.
//
// Notes should be used sparingly: each note must add new context (e.g. “the
// closure requires this”) rather than repeating the diagnostic message.
//
// # Emitting diagnostics
//
// Producers use a diag.Reporter to decouple emission from storage. A
// ReportBuilder is constructed via NewReportBuilder (or ReportError /
// ReportCode, which takes the severity from the code), optionally extended with WithNote, and sent
// with Emit. BagReporter aggregates diagnostics into a Bag, which supports
// sorting and deduplication; DedupReporter drops repeats before they reach
// the bag.
//
// Package diag does no IO. FormatGoldenDiagnostics renders a stable one line
// per entry form used by fixture expectations; coloured output lives in
// internal/report.
package diag
