package driver

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"fortio.org/safecast"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"regionck/internal/buildpipeline"
	"regionck/internal/diag"
	"regionck/internal/source"
	"regionck/internal/trace"
)

// Outcome is the cacheable summary of one fixture run.
type Outcome struct {
	Path         string
	Name         string
	Errors       []string
	Requirements []string
	Mismatches   []string
	// LoadError is set when the fixture could not be decoded or built.
	LoadError string
	LoadCode  diag.Code
	HasExpect bool
	Elapsed   time.Duration
	// Stages is the time spent per stage of a fresh run.
	Stages map[buildpipeline.Stage]time.Duration

	// Cached is set on outcomes served from the cache; never stored.
	Cached bool `msgpack:"-"`
}

// Passed mirrors Result.Passed for cached and fresh outcomes alike.
func (o Outcome) Passed() bool {
	if o.LoadError != "" {
		return false
	}
	if o.HasExpect {
		return len(o.Mismatches) == 0
	}
	return len(o.Errors) == 0
}

// OutcomeOf summarises a finished run.
func OutcomeOf(res *Result, elapsed time.Duration) Outcome {
	o := Outcome{
		Path:         res.Path,
		Errors:       res.Observed.Errors,
		Requirements: res.Observed.Requirements,
		HasExpect:    res.HasExpect(),
		Elapsed:      elapsed,
		Stages:       make(map[buildpipeline.Stage]time.Duration, len(buildpipeline.Stages)),
	}
	for _, st := range buildpipeline.Stages {
		o.Stages[st] = res.Timer.Duration(string(st))
	}
	if res.Problem != nil {
		o.Name = res.Problem.Name
	}
	for _, m := range res.Mismatches {
		o.Mismatches = append(o.Mismatches, m.String())
	}
	return o
}

// CheckOptions configures CheckDir.
type CheckOptions struct {
	// Jobs limits concurrent fixtures; <= 0 means GOMAXPROCS.
	Jobs  int
	Cache *DiskCache
	Sink  buildpipeline.ProgressSink
	// Tracer overrides the tracer attached to the context.
	Tracer trace.Tracer
}

// Summary is the result of CheckDir. Outcomes are in path order.
type Summary struct {
	RunID    string
	Dir      string
	Outcomes []Outcome
	Passed   int
	Failed   int
	Cached   int
	Elapsed  time.Duration
	// Timings sums Outcome.Stages over the fixtures that were solved.
	Timings buildpipeline.Timings
}

// OK reports whether every fixture passed.
func (s *Summary) OK() bool { return s != nil && s.Failed == 0 }

// ListFixtures возвращает отсортированный список всех фикстур в директории
func ListFixtures(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".toml", ".yaml", ".yml":
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	// Сортируем для детерминированного порядка
	sort.Strings(files)
	return files, nil
}

// CheckDir solves every fixture under dir in parallel and compares each
// with its expectations. Only walking dir and cancellation are errors;
// broken fixtures are failed outcomes.
func CheckDir(ctx context.Context, dir string, opts CheckOptions) (*Summary, error) {
	started := time.Now()
	files, err := ListFixtures(dir)
	if err != nil {
		return nil, err
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = trace.FromContext(ctx)
	}
	runID := uuid.NewString()
	span := trace.Begin(tracer, trace.ScopeDriver, "check_dir", trace.ParentFrom(ctx)).
		WithExtra("dir", dir).
		WithExtra("run_id", runID)

	sink := opts.Sink
	buildpipeline.Emit(sink, buildpipeline.Event{Stage: buildpipeline.StageCheck, Status: buildpipeline.StatusWorking})
	for _, path := range files {
		buildpipeline.Emit(sink, buildpipeline.Event{File: path, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusQueued})
	}

	// Настраиваем параллелизм
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	// Результаты (индексы уникальны для каждой горутины, мьютекс не нужен)
	outcomes := make([]Outcome, len(files))
	var cacheErrs sync.Map
	var cached atomic.Int64

	c := &checker{runID: runID, parent: span.ID(), tracer: tracer, opts: opts}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, min(jobs, len(files))))

	for i, path := range files {
		g.Go(func() error {
			// Проверка отмены
			if err := gctx.Err(); err != nil {
				return err
			}
			fileID, err := safecast.Conv[source.FileID](i + 1)
			if err != nil {
				return err
			}
			o, hit, err := c.one(gctx, path, fileID)
			if err != nil {
				return err
			}
			if hit {
				cached.Add(1)
			}
			if o.cacheErr != nil {
				cacheErrs.Store(path, o.cacheErr)
			}
			outcomes[i] = o.Outcome
			return nil
		})
	}

	// Ждём завершения всех горутин
	if err := g.Wait(); err != nil {
		span.End(err.Error())
		buildpipeline.Emit(sink, buildpipeline.Event{Stage: buildpipeline.StageCheck, Status: buildpipeline.StatusError, Err: err, Elapsed: time.Since(started)})
		return nil, err
	}
	cacheErrs.Range(func(k, v any) bool {
		trace.Point(tracer, trace.ScopeDriver, "cache_error", span.ID(), k.(string)+": "+v.(error).Error())
		return true
	})

	sum := &Summary{RunID: runID, Dir: dir, Outcomes: outcomes, Cached: int(cached.Load())}
	for _, o := range outcomes {
		if !o.Cached {
			for st, d := range o.Stages {
				sum.Timings.Add(st, d)
			}
		}
		if o.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	sum.Elapsed = time.Since(started)
	status := buildpipeline.StatusDone
	if sum.Failed > 0 {
		status = buildpipeline.StatusMismatch
	}
	buildpipeline.Emit(sink, buildpipeline.Event{Stage: buildpipeline.StageCheck, Status: status, Elapsed: sum.Elapsed})
	span.WithExtra("passed", strconv.Itoa(sum.Passed)).WithExtra("failed", strconv.Itoa(sum.Failed)).End("")
	return sum, nil
}

type checked struct {
	Outcome
	cacheErr error
}

// checker carries what every worker of one CheckDir run shares.
type checker struct {
	runID  string
	parent uint64
	tracer trace.Tracer
	opts   CheckOptions
}

// one serves path from the cache or solves it. The returned error is only
// set on cancellation.
func (c *checker) one(ctx context.Context, path string, fileID source.FileID) (checked, bool, error) {
	started := time.Now()
	sink := c.opts.Sink
	data, err := os.ReadFile(path)
	if err != nil {
		buildpipeline.Emit(sink, buildpipeline.Event{File: path, Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError, Err: err})
		return checked{Outcome: Outcome{Path: path, LoadError: err.Error(), LoadCode: diag.IOLoadFileError}}, false, nil
	}

	key := CacheKey(data)
	var cacheErr error
	if c.opts.Cache != nil {
		var payload DiskPayload
		ok, err := c.opts.Cache.Get(key, &payload)
		switch {
		case err != nil:
			cacheErr = err
		case ok:
			o := payload.Outcome
			o.Path = path
			o.Cached = true
			status := buildpipeline.StatusCached
			if !o.Passed() {
				status = buildpipeline.StatusMismatch
			}
			buildpipeline.Emit(sink, buildpipeline.Event{File: path, Stage: buildpipeline.StageReport, Status: status, Elapsed: time.Since(started)})
			return checked{Outcome: o}, true, nil
		}
	}

	res, err := SolveData(ctx, path, data, Options{FileID: fileID, Tracer: c.tracer, ParentSpan: c.parent, Sink: sink})
	var o Outcome
	switch {
	case err != nil && ctx.Err() != nil:
		return checked{}, false, ctx.Err()
	case err != nil:
		o = Outcome{Path: path, LoadError: err.Error(), LoadCode: ErrorDiagnostic(err, fileID).Code, Elapsed: time.Since(started)}
	default:
		o = OutcomeOf(res, time.Since(started))
		if !o.Passed() {
			buildpipeline.Emit(sink, buildpipeline.Event{File: path, Stage: buildpipeline.StageReport, Status: buildpipeline.StatusMismatch, Elapsed: o.Elapsed})
		}
	}
	if c.opts.Cache != nil {
		if err := c.opts.Cache.Put(key, &DiskPayload{RunID: c.runID, Stored: time.Now(), Outcome: o}); err != nil && cacheErr == nil {
			cacheErr = err
		}
	}
	return checked{Outcome: o, cacheErr: cacheErr}, false, nil
}
