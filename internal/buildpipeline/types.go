package buildpipeline

import "time"

// Stage describes one phase of a fixture run.
type Stage string

const (
	// StageLoad reads and decodes the fixture file.
	StageLoad Stage = "load"
	// StageBuild turns the fixture into an inference context.
	StageBuild Stage = "build"
	// StageSolve runs region inference.
	StageSolve Stage = "solve"
	// StageReport lowers errors into diagnostics and checks expectations.
	StageReport Stage = "report"
	// StageCheck is the whole-directory run; its events carry no File.
	StageCheck Stage = "check"
)

// Stages lists the per-file stages in execution order.
var Stages = []Stage{StageLoad, StageBuild, StageSolve, StageReport}

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the fixture is waiting for a worker.
	StatusQueued Status = "queued"
	// StatusWorking indicates the stage is running.
	StatusWorking Status = "working"
	// StatusDone indicates the stage finished and expectations held.
	StatusDone Status = "done"
	// StatusCached indicates the outcome came from the disk cache.
	StatusCached Status = "cached"
	// StatusMismatch indicates the fixture solved but its expectations failed.
	StatusMismatch Status = "mismatch"
	// StatusError indicates the stage failed.
	StatusError Status = "error"
)

// Terminal reports whether no further events follow for the file.
func (s Status) Terminal() bool {
	switch s {
	case StatusCached, StatusMismatch, StatusError:
		return true
	}
	return false
}

// Event reports progress for a file (or for the overall run when File is empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings holds stage durations.
type Timings struct {
	stages map[Stage]time.Duration
}

func (t *Timings) ensure() {
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
	}
}

// Set stores a duration for the given stage.
func (t *Timings) Set(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] = dur
}

// Add accumulates dur into stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.ensure()
	t.stages[stage] += dur
}

// Has reports whether a duration for stage is recorded.
func (t Timings) Has(stage Stage) bool {
	if t.stages == nil {
		return false
	}
	_, ok := t.stages[stage]
	return ok
}

// Duration returns the recorded duration for stage.
func (t Timings) Duration(stage Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	return t.stages[stage]
}

// Sum returns the sum of durations across the provided stages.
func (t Timings) Sum(stages ...Stage) time.Duration {
	if t.stages == nil {
		return 0
	}
	var total time.Duration
	for _, stage := range stages {
		total += t.stages[stage]
	}
	return total
}
