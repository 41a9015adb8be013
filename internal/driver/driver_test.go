package driver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"regionck/internal/buildpipeline"
	"regionck/internal/diag"
	"regionck/internal/driver"
	"regionck/internal/fixture"
	"regionck/internal/testkit"
	"regionck/internal/trace"
)

const fixtures = "../fixture/testdata"

const mismatching = `schema = "1.0.0"
name = "wrong expectation"

[[region]]
name = "'static"
kind = "global"

[[region]]
name = "'a"
kind = "external"

[[region]]
name = "'b"
kind = "external"

[[region]]
name = "'body"
kind = "local"

[[outlives]]
sup = "'a"
sub = "'b"
span = [0, 1]

[expect]
errors = []
`

func TestSolveFixtures(t *testing.T) {
	entries, err := os.ReadDir(fixtures)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, e := range entries {
		t.Run(e.Name(), func(t *testing.T) {
			res, err := driver.SolveFile(context.Background(), filepath.Join(fixtures, e.Name()), driver.Options{FileID: 1})
			if err != nil {
				t.Fatalf("SolveFile: %v", err)
			}
			if len(res.Mismatches) != 0 {
				t.Fatalf("mismatches: %v", res.Mismatches)
			}
			if !res.Passed() {
				t.Fatalf("fixture did not pass")
			}
			if err := testkit.CheckSolvedInvariants(res.Context); err != nil {
				t.Fatalf("invariants: %v", err)
			}
			for _, d := range res.Bag.Items() {
				if d.Primary.File != 1 {
					t.Fatalf("diagnostic %s not stamped with the file id", d.Message)
				}
			}
		})
	}
}

func TestSolveReportsMismatchAsDiagnostic(t *testing.T) {
	res, err := driver.SolveData(context.Background(), "bad.toml", []byte(mismatching), driver.Options{})
	if err != nil {
		t.Fatalf("SolveData: %v", err)
	}
	if res.Passed() || len(res.Mismatches) != 1 || res.Mismatches[0].What != "errors" {
		t.Fatalf("mismatches = %v", res.Mismatches)
	}
	if got := res.Observed.Errors; len(got) != 1 || got[0] != "region_error 'a 'b reported" {
		t.Fatalf("observed errors = %v", got)
	}
	if res.Bag.Count(diag.SevError) != 2 {
		t.Fatalf("want a region error and a mismatch, got %v", res.Bag.Items())
	}
}

func TestSolveStagesAndTimings(t *testing.T) {
	sink := &buildpipeline.RecordingSink{}
	ring := trace.NewRingTracer(64, trace.LevelDetail)
	res, err := driver.SolveFile(context.Background(), filepath.Join(fixtures, "simple.toml"), driver.Options{Sink: sink, Timings: true, Tracer: ring})
	if err != nil {
		t.Fatalf("SolveFile: %v", err)
	}

	var done []buildpipeline.Stage
	for _, ev := range sink.Events() {
		if ev.Status == buildpipeline.StatusDone {
			done = append(done, ev.Stage)
		}
	}
	if len(done) != len(buildpipeline.Stages) {
		t.Fatalf("done stages = %v", done)
	}
	for i, st := range buildpipeline.Stages {
		if done[i] != st {
			t.Fatalf("stage %d = %s, want %s", i, done[i], st)
		}
	}

	rep := res.Timer.Report()
	if len(rep.Phases) != 4 || rep.Phases[0].Name != "load" || rep.Phases[3].Name != "report" {
		t.Fatalf("phases = %+v", rep.Phases)
	}
	if res.Bag.Count(diag.SevInfo) == 0 {
		t.Fatalf("missing timings diagnostic")
	}
	var found bool
	for _, d := range res.Bag.Items() {
		if d.Code == diag.ObsTimings && len(d.Notes) == 1 && strings.Contains(d.Notes[0].Msg, `"phases"`) {
			found = true
		}
	}
	if !found {
		t.Fatalf("timings note not found in %v", res.Bag.Items())
	}

	var fixtureSpan bool
	for _, ev := range ring.Snapshot() {
		if ev.Scope == trace.ScopeFixture && ev.Kind == trace.KindSpanEnd && ev.Detail == "pass" {
			fixtureSpan = true
		}
	}
	if !fixtureSpan {
		t.Fatalf("no fixture span in trace")
	}
}

func TestSolveNestsEngineSpans(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithParent(trace.WithTracer(context.Background(), ring), 9)
	if _, err := driver.SolveFile(ctx, filepath.Join(fixtures, "simple.toml"), driver.Options{}); err != nil {
		t.Fatalf("SolveFile: %v", err)
	}
	begins := make(map[string]trace.Event)
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanBegin {
			begins[ev.Name] = ev
		}
	}
	fixture, ok := begins["solve_fixture"]
	if !ok || fixture.ParentID != 9 {
		t.Fatalf("fixture span = %+v, want parent 9", fixture)
	}
	prop, ok := begins["region.propagate"]
	if !ok || prop.ParentID != fixture.SpanID {
		t.Fatalf("propagate span = %+v, want parent %d", prop, fixture.SpanID)
	}
}

func TestSolveErrors(t *testing.T) {
	_, err := driver.SolveData(context.Background(), "x.toml", []byte(`schema = "2.0.0"`), driver.Options{})
	if fixture.CodeOf(err) != diag.FixSchema {
		t.Fatalf("err = %v, want a schema error", err)
	}
	if d := driver.ErrorDiagnostic(err, 3); d.Code != diag.FixSchema || d.Primary.File != 3 {
		t.Fatalf("diagnostic = %+v", d)
	}

	_, err = driver.SolveData(context.Background(), "x.json", nil, driver.Options{})
	if fixture.CodeOf(err) != diag.FixDecode {
		t.Fatalf("err = %v, want a decode error", err)
	}

	_, err = driver.SolveFile(context.Background(), filepath.Join(t.TempDir(), "missing.toml"), driver.Options{})
	if fixture.CodeOf(err) != diag.IOLoadFileError {
		t.Fatalf("err = %v, want an I/O error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = driver.SolveFile(ctx, filepath.Join(fixtures, "simple.toml"), driver.Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func copyFixtures(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		data, err := os.ReadFile(filepath.Join(fixtures, n))
		if err != nil {
			t.Fatalf("read %s: %v", n, err)
		}
		if err := os.WriteFile(filepath.Join(dir, n), data, 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
}

func TestCheckDirUsesCache(t *testing.T) {
	dir := t.TempDir()
	copyFixtures(t, dir, "simple.toml", "closure_error.yaml", "member.toml")
	if err := os.WriteFile(filepath.Join(dir, "wrong.toml"), []byte(mismatching), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "broken.yml"), []byte("schema: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	cache, err := driver.NewDiskCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}

	sink := &buildpipeline.RecordingSink{}
	first, err := driver.CheckDir(context.Background(), dir, driver.CheckOptions{Jobs: 2, Cache: cache, Sink: sink})
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if len(first.Outcomes) != 5 || first.Passed != 3 || first.Failed != 2 || first.Cached != 0 || first.OK() {
		t.Fatalf("first run = %+v", first)
	}
	for i := 1; i < len(first.Outcomes); i++ {
		if first.Outcomes[i-1].Path >= first.Outcomes[i].Path {
			t.Fatalf("outcomes not sorted: %s before %s", first.Outcomes[i-1].Path, first.Outcomes[i].Path)
		}
	}
	byName := make(map[string]driver.Outcome)
	for _, o := range first.Outcomes {
		byName[filepath.Base(o.Path)] = o
	}
	if o := byName["broken.yml"]; o.LoadCode != diag.FixDecode || o.Passed() {
		t.Fatalf("broken outcome = %+v", o)
	}
	if o := byName["wrong.toml"]; len(o.Mismatches) != 1 {
		t.Fatalf("wrong outcome = %+v", o)
	}
	if o := byName["closure_error.yaml"]; !o.Passed() || len(o.Errors) != 1 {
		t.Fatalf("closure_error outcome = %+v", o)
	}

	second, err := driver.CheckDir(context.Background(), dir, driver.CheckOptions{Jobs: 1, Cache: cache})
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if second.Cached != 5 || second.Passed != 3 || second.RunID == first.RunID {
		t.Fatalf("second run = %+v", second)
	}
	for _, o := range second.Outcomes {
		if !o.Cached {
			t.Fatalf("%s not served from cache", o.Path)
		}
	}

	var checkEnd bool
	for _, ev := range sink.Events() {
		if ev.Stage == buildpipeline.StageCheck && ev.Status == buildpipeline.StatusMismatch {
			checkEnd = true
		}
	}
	if !checkEnd {
		t.Fatalf("no final check event")
	}
}

func TestCheckDirEmpty(t *testing.T) {
	sum, err := driver.CheckDir(context.Background(), t.TempDir(), driver.CheckOptions{})
	if err != nil {
		t.Fatalf("CheckDir: %v", err)
	}
	if !sum.OK() || len(sum.Outcomes) != 0 {
		t.Fatalf("summary = %+v", sum)
	}
	if _, err := driver.CheckDir(context.Background(), filepath.Join(t.TempDir(), "nope"), driver.CheckOptions{}); err == nil {
		t.Fatalf("expected an error for a missing directory")
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	cache, err := driver.NewDiskCache(filepath.Join(t.TempDir(), "c"))
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	key := driver.CacheKey([]byte("a"))
	if key == driver.CacheKey([]byte("b")) || key.IsZero() {
		t.Fatalf("cache keys collide")
	}
	var out driver.DiskPayload
	if ok, err := cache.Get(key, &out); ok || err != nil {
		t.Fatalf("Get on empty cache = %v, %v", ok, err)
	}
	in := &driver.DiskPayload{RunID: "r1", Outcome: driver.Outcome{Name: "n", Errors: []string{"e"}, HasExpect: true, Cached: true}}
	if err := cache.Put(key, in); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if ok, err := cache.Get(key, &out); !ok || err != nil {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if out.RunID != "r1" || out.Outcome.Name != "n" || len(out.Outcome.Errors) != 1 || out.Outcome.Cached {
		t.Fatalf("payload = %+v", out)
	}
	if err := cache.DropAll(); err != nil {
		t.Fatalf("DropAll: %v", err)
	}
	if ok, _ := cache.Get(key, &out); ok {
		t.Fatalf("entry survived DropAll")
	}

	var nilCache *driver.DiskCache
	if err := nilCache.Put(key, in); err != nil {
		t.Fatalf("nil Put: %v", err)
	}
}
