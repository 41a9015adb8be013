package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"regionck/internal/buildpipeline"
	"regionck/internal/driver"
	"regionck/internal/ui"
)

type checkOutcome struct {
	summary *driver.Summary
	err     error
}

// runCheckWithUI runs CheckDir in the background and renders its events
// until the run finishes.
func runCheckWithUI(ctx context.Context, title string, files []string, dir string, opts driver.CheckOptions) (*driver.Summary, error) {
	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Sink = buildpipeline.ChannelSink{Ch: events}
		sum, err := driver.CheckDir(ctx, dir, optsCopy)
		outcomeCh <- checkOutcome{summary: sum, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, files, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	// The view may quit before the run ends (ctrl+c or a UI error); keep
	// draining so the workers never block on a full channel.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.summary, uiErr
	}
	return outcome.summary, outcome.err
}
