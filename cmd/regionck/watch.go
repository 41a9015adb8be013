package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Re-solve a fixture every time it changes",
		Args:  cobra.ExactArgs(1),
		RunE:  runWatch,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	cmd.Flags().Duration("debounce", 100*time.Millisecond, "wait this long after the last write before solving")
	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	path := args[0]
	opts, err := readSolveOptions(cmd)
	if err != nil {
		return err
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return err
	}
	cleanup, err := setupRun(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	cmd.SetContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()
	// Editors often replace the file on save, so watch its directory.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	return watchLoop(ctx, cmd, path, watcher, debounce, func() error {
		_, err := solveOnce(cmd, path, opts)
		return err
	})
}

// watchLoop calls solve once, then again after every burst of writes to
// path, until ctx is done.
func watchLoop(ctx context.Context, cmd *cobra.Command, path string, watcher *fsnotify.Watcher, debounce time.Duration, solve func() error) error {
	target := filepath.Clean(path)
	if err := solve(); err != nil {
		return err
	}
	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintln(cmd.ErrOrStderr(), "watch:", err)
		case <-fire:
			fire = nil
			fmt.Fprintf(cmd.OutOrStdout(), "--- %s changed at %s\n", path, time.Now().Format(time.TimeOnly))
			if err := solve(); err != nil {
				return err
			}
		}
	}
}
