// Package trace records what the region checker is doing.
//
// Spans mark the phases of a run (fixture loading, constraint propagation,
// type tests, universal-region checks) so slow or stuck fixtures can be
// located after the fact.
//
// # Usage
//
//	regionck solve --trace=- --trace-level=phase fixture.toml
//
// # Tracers
//
//   - Nop: zero-overhead tracer used when tracing is off
//   - StreamTracer: writes each event immediately (text, NDJSON or Chrome JSON)
//   - RingTracer: keeps the last N events in memory for crash dumps
//   - MultiTracer: fans out to several tracers
//
// # Levels and scopes
//
// A level decides which scopes are emitted:
//
//   - LevelPhase: ScopeDriver and ScopePass
//   - LevelDetail: adds ScopeFixture
//   - LevelDebug: adds ScopeRegion (one event per SCC or region)
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	ctx = trace.WithParent(ctx, cmdSpan.ID())
//	span := trace.Begin(t, trace.ScopePass, "region.propagate", trace.ParentFrom(ctx))
//	defer span.End("")
//
// The engine names its passes region.<pass> and nests them under the
// fixture span passed in infer.Input.TraceParent.
package trace
