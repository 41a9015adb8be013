package ui

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"

	"regionck/internal/buildpipeline"
)

func TestProgressModelTracksFixtures(t *testing.T) {
	events := make(chan buildpipeline.Event)
	m := NewProgressModel("check", []string{"a.toml", "b.yaml", "c.toml"}, events).(*progressModel)

	m.applyEvent(buildpipeline.Event{File: "a.toml", Stage: buildpipeline.StageSolve, Status: buildpipeline.StatusWorking})
	if m.items[0].status != "solving" || m.items[0].final {
		t.Fatalf("a = %+v", m.items[0])
	}
	// Intermediate done events keep the running label.
	m.applyEvent(buildpipeline.Event{File: "a.toml", Stage: buildpipeline.StageSolve, Status: buildpipeline.StatusDone})
	if m.items[0].status != "solving" {
		t.Fatalf("a = %+v", m.items[0])
	}
	m.applyEvent(buildpipeline.Event{File: "a.toml", Stage: buildpipeline.StageReport, Status: buildpipeline.StatusDone})
	m.applyEvent(buildpipeline.Event{File: "b.yaml", Stage: buildpipeline.StageReport, Status: buildpipeline.StatusCached})
	m.applyEvent(buildpipeline.Event{File: "unknown.toml", Stage: buildpipeline.StageLoad, Status: buildpipeline.StatusError})
	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StageCheck, Status: buildpipeline.StatusWorking})

	if m.items[0].status != "pass" || !m.items[0].final {
		t.Fatalf("a = %+v", m.items[0])
	}
	if m.items[1].status != "cached" || !m.items[1].final {
		t.Fatalf("b = %+v", m.items[1])
	}
	if got := m.finished(); got != 2 {
		t.Fatalf("finished = %d", got)
	}
	if got := m.percent(); got < 0.66 || got > 0.67 {
		t.Fatalf("percent = %f", got)
	}
	if m.stageLabel != "checking" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}

	m.applyEvent(buildpipeline.Event{File: "c.toml", Stage: buildpipeline.StageReport, Status: buildpipeline.StatusMismatch})
	view := m.View()
	if !strings.Contains(view, "[3/3]") || !strings.Contains(view, "fail") || !strings.Contains(view, "c.toml") {
		t.Fatalf("view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("fixtures/very/long/name.toml", 10); !strings.HasSuffix(got, "...") || runewidth.StringWidth(got) > 10 {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("truncate = %q", got)
	}
	if got := truncate("abcdef", 2); got != "ab" {
		t.Fatalf("truncate = %q", got)
	}
}
