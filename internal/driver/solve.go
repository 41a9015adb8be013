package driver

import (
	"context"
	"fmt"
	"os"
	"time"

	"regionck/internal/buildpipeline"
	"regionck/internal/diag"
	"regionck/internal/fixture"
	"regionck/internal/infer"
	"regionck/internal/observ"
	"regionck/internal/report"
	"regionck/internal/source"
	"regionck/internal/trace"
)

// Options configures a single fixture run.
type Options struct {
	// FileID is stamped into every diagnostic span.
	FileID source.FileID
	// Tracer overrides the tracer attached to the context.
	Tracer trace.Tracer
	// ParentSpan nests the run under an enclosing trace span; it defaults
	// to trace.ParentFrom(ctx).
	ParentSpan uint64
	Sink       buildpipeline.ProgressSink
	// Timings appends an ObsTimings diagnostic with the phase report.
	Timings bool
}

// Result is the outcome of solving one fixture.
type Result struct {
	Path    string
	Problem *fixture.Problem
	Context *infer.Context

	Errors       infer.RegionErrors
	Requirements *infer.ClosureRegionRequirements
	Bag          *diag.Bag

	// Observed is the engine output renamed to fixture region names.
	Observed   fixture.Observed
	Mismatches []fixture.Mismatch
	Timer      *observ.Timer
}

// HasExpect reports whether the fixture carried an [expect] table.
func (r *Result) HasExpect() bool {
	return r != nil && r.Problem != nil && r.Problem.Expect != nil
}

// Passed is true when every expectation held. Fixtures without
// expectations pass when no region error was found.
func (r *Result) Passed() bool {
	if r == nil {
		return false
	}
	if r.HasExpect() {
		return len(r.Mismatches) == 0
	}
	return len(r.Errors) == 0
}

// SolveFile reads path and solves it.
func SolveFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		err = &fixture.Error{Code: diag.IOLoadFileError, Path: path, Msg: "read fixture", Err: err}
		buildpipeline.Emit(opts.Sink, buildpipeline.Event{File: path, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError, Err: err})
		return nil, err
	}
	return SolveData(ctx, path, data, opts)
}

// SolveData decodes data (format chosen by the extension of path), builds
// the inference context, solves it and lowers the outcome. The returned
// error is a *fixture.Error for fixture problems or the context error on
// cancellation.
func SolveData(ctx context.Context, path string, data []byte, opts Options) (*Result, error) {
	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	parent := opts.ParentSpan
	if parent == 0 {
		parent = trace.ParentFrom(ctx)
	}
	span := trace.Begin(tracer, trace.ScopeFixture, "solve_fixture", parent).WithExtra("path", path)
	r := &run{
		ctx:    ctx,
		path:   path,
		opts:   opts,
		tracer: tracer,
		span:   span.ID(),
		res:    &Result{Path: path, Timer: observ.NewTimer()},
	}

	var file *fixture.File
	err := r.stage(buildpipeline.StageLoad, func() (string, error) {
		format, ok := fixture.FormatOf(path)
		if !ok {
			return "", &fixture.Error{Code: diag.FixDecode, Path: path, Msg: "unknown fixture extension"}
		}
		f, err := fixture.Decode(data, format)
		if err != nil {
			return "", withPath(err, path)
		}
		file = f
		return f.Name, nil
	})
	if err == nil {
		err = r.stage(buildpipeline.StageBuild, r.build(file))
	}
	if err == nil {
		err = r.stage(buildpipeline.StageSolve, r.solve)
	}
	if err == nil {
		err = r.stage(buildpipeline.StageReport, r.report)
	}
	if err != nil {
		span.End(err.Error())
		return nil, err
	}

	res := r.res
	if opts.Timings {
		rep := res.Timer.Report()
		appendTimingDiagnostic(res.Bag, timingPayload{Path: path, TotalMS: rep.TotalMS, Phases: rep.Phases})
	}
	span.WithExtra("errors", fmt.Sprint(len(res.Errors))).End(passLabel(res.Passed()))
	return res, nil
}

func passLabel(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func withPath(err error, path string) error {
	if fe, ok := err.(*fixture.Error); ok && fe.Path == "" {
		fe.Path = path
	}
	return err
}

type run struct {
	ctx    context.Context
	path   string
	opts   Options
	tracer trace.Tracer
	span   uint64
	res    *Result
}

// stage runs fn as one timed, traced phase and reports its progress.
// fn returns a short note for the timer.
func (r *run) stage(st buildpipeline.Stage, fn func() (string, error)) error {
	if err := r.ctx.Err(); err != nil {
		return err
	}
	r.emit(st, buildpipeline.StatusWorking, nil, 0)
	span := trace.Begin(r.tracer, trace.ScopePass, string(st), r.span)
	idx := r.res.Timer.Begin(string(st))
	start := time.Now()

	note, err := fn()

	elapsed := time.Since(start)
	r.res.Timer.End(idx, note)
	if err != nil {
		span.End(err.Error())
		r.emit(st, buildpipeline.StatusError, err, elapsed)
		return err
	}
	span.End(note)
	r.emit(st, buildpipeline.StatusDone, nil, elapsed)
	return nil
}

func (r *run) emit(st buildpipeline.Stage, status buildpipeline.Status, err error, elapsed time.Duration) {
	buildpipeline.Emit(r.opts.Sink, buildpipeline.Event{File: r.path, Stage: st, Status: status, Err: err, Elapsed: elapsed})
}

func (r *run) build(file *fixture.File) func() (string, error) {
	return func() (string, error) {
		p, err := file.Build()
		if err != nil {
			return "", withPath(err, r.path)
		}
		p.Input.Tracer = r.tracer
		p.Input.TraceParent = r.span
		cx, err := infer.New(p.Input)
		if err != nil {
			return "", &fixture.Error{Code: diag.FixSchema, Path: r.path, Msg: "inconsistent problem", Err: err}
		}
		r.res.Problem = p
		r.res.Context = cx
		return fmt.Sprintf("%d regions", cx.NumRegions()), nil
	}
}

func (r *run) solve() (string, error) {
	res := r.res
	res.Requirements, res.Errors = res.Context.Solve(res.Problem.Closure)
	return fmt.Sprintf("%d errors", len(res.Errors)), nil
}

func (r *run) report() (string, error) {
	res := r.res
	p := res.Problem
	res.Bag = report.Lower(res.Context, res.Errors, res.Requirements, r.opts.FileID)

	res.Observed = fixture.Observed{
		Errors:       p.RenameAll(res.Errors.Strings()),
		Requirements: p.RenameAll(report.RequirementStrings(res.Requirements)),
		Values:       make(map[string]string),
	}
	for _, name := range p.Expect.ValueKeys() {
		if vid, ok := p.Lookup(name); ok {
			res.Observed.Values[name] = p.Rename(res.Context.RegionValueStr(vid))
		}
	}
	res.Mismatches = p.Expect.Check(res.Observed)
	for _, m := range res.Mismatches {
		addGrowing(res.Bag, diag.NewError(diag.FixExpectMismatch, source.Span{File: r.opts.FileID}, m.String()))
	}
	return fmt.Sprintf("%d mismatches", len(res.Mismatches)), nil
}

// ErrorDiagnostic turns a run error into a diagnostic so it can be printed
// with the rest.
func ErrorDiagnostic(err error, file source.FileID) diag.Diagnostic {
	code := fixture.CodeOf(err)
	if code == diag.UnknownCode {
		code = diag.IOLoadFileError
	}
	return diag.ForCode(code, source.Span{File: file}, err.Error())
}
