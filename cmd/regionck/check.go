package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"regionck/internal/buildpipeline"
	"regionck/internal/driver"
)

func newCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check DIR",
		Short: "Solve every fixture in a directory and compare with its expectations",
		Args:  cobra.ExactArgs(1),
		RunE:  runCheck,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|json)")
	cmd.Flags().String("cache-dir", "", "cache directory (default $XDG_CACHE_HOME/regionck)")
	cmd.Flags().Bool("clear-cache", false, "drop cached outcomes before the run")
	return cmd
}

func runCheck(cmd *cobra.Command, args []string) error {
	dir := args[0]
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return err
	}
	format = strings.ToLower(format)
	if format != "pretty" && format != "json" {
		return fmt.Errorf("unsupported format %q (must be pretty or json)", format)
	}
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return err
	}
	if _, err := useColor(cmd); err != nil {
		return err
	}
	cleanup, err := setupRun(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	cache, err := openCache(cmd, g.cache)
	if err != nil {
		return err
	}

	opts := driver.CheckOptions{Jobs: g.jobs, Cache: cache}
	var sum *driver.Summary
	if format == "pretty" && shouldUseTUI(g.ui, g.quiet) {
		files, err := driver.ListFixtures(dir)
		if err != nil {
			return err
		}
		sum, err = runCheckWithUI(cmd.Context(), "regionck check "+dir, files, dir, opts)
		if err != nil {
			return err
		}
	} else {
		if sum, err = driver.CheckDir(cmd.Context(), dir, opts); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		if err := writeSummaryJSON(out, sum); err != nil {
			return err
		}
	} else {
		printSummary(out, sum, g.quiet, g.timings)
	}
	if !sum.OK() {
		return exitError{code: 1}
	}
	return nil
}

func openCache(cmd *cobra.Command, enabled bool) (*driver.DiskCache, error) {
	if !enabled {
		return nil, nil
	}
	dir, err := cmd.Flags().GetString("cache-dir")
	if err != nil {
		return nil, err
	}
	var cache *driver.DiskCache
	if dir != "" {
		cache, err = driver.NewDiskCache(dir)
	} else {
		cache, err = driver.OpenDiskCache("regionck")
	}
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	drop, err := cmd.Flags().GetBool("clear-cache")
	if err != nil {
		return nil, err
	}
	if drop {
		if err := cache.DropAll(); err != nil {
			return nil, fmt.Errorf("clear cache: %w", err)
		}
	}
	return cache, nil
}

var (
	passColor   = color.New(color.FgGreen, color.Bold)
	failColor   = color.New(color.FgRed, color.Bold)
	cachedColor = color.New(color.FgCyan)
)

func printSummary(out io.Writer, sum *driver.Summary, quiet, timings bool) {
	for _, o := range sum.Outcomes {
		if quiet && o.Passed() {
			continue
		}
		label := passColor.Sprint("PASS")
		if !o.Passed() {
			label = failColor.Sprint("FAIL")
		}
		line := fmt.Sprintf("%s %s", label, relPath(sum.Dir, o.Path))
		if o.Name != "" {
			line += " (" + o.Name + ")"
		}
		if o.Cached {
			line += " " + cachedColor.Sprint("[cached]")
		}
		if timings && !o.Cached {
			line += fmt.Sprintf(" %.2f ms", millis(o.Elapsed))
		}
		fmt.Fprintln(out, line)
		if o.LoadError != "" {
			fmt.Fprintf(out, "    %s: %s\n", o.LoadCode.ID(), o.LoadError)
		}
		for _, m := range o.Mismatches {
			fmt.Fprintf(out, "    %s\n", m)
		}
	}
	fmt.Fprintf(out, "%d passed, %d failed, %d cached (run %s)\n", sum.Passed, sum.Failed, sum.Cached, sum.RunID)
	if timings {
		printStageTimings(out, sum)
	}
}

func relPath(dir, path string) string {
	if rel, err := filepath.Rel(dir, path); err == nil {
		return rel
	}
	return path
}

type outcomeJSON struct {
	Path         string   `json:"path"`
	Name         string   `json:"name,omitempty"`
	Passed       bool     `json:"passed"`
	Cached       bool     `json:"cached"`
	Errors       []string `json:"errors"`
	Requirements []string `json:"requirements"`
	Mismatches   []string `json:"mismatches,omitempty"`
	LoadError    string   `json:"load_error,omitempty"`
	Code         string   `json:"code,omitempty"`
}

type summaryJSON struct {
	RunID    string        `json:"run_id"`
	Dir      string        `json:"dir"`
	Passed   int           `json:"passed"`
	Failed   int           `json:"failed"`
	Cached   int           `json:"cached"`
	Outcomes []outcomeJSON `json:"outcomes"`
}

func writeSummaryJSON(out io.Writer, sum *driver.Summary) error {
	payload := summaryJSON{
		RunID:    sum.RunID,
		Dir:      sum.Dir,
		Passed:   sum.Passed,
		Failed:   sum.Failed,
		Cached:   sum.Cached,
		Outcomes: make([]outcomeJSON, len(sum.Outcomes)),
	}
	for i, o := range sum.Outcomes {
		oj := outcomeJSON{
			Path:         relPath(sum.Dir, o.Path),
			Name:         o.Name,
			Passed:       o.Passed(),
			Cached:       o.Cached,
			Errors:       nonNil(o.Errors),
			Requirements: nonNil(o.Requirements),
			Mismatches:   o.Mismatches,
			LoadError:    o.LoadError,
		}
		if o.LoadError != "" {
			oj.Code = o.LoadCode.ID()
		}
		payload.Outcomes[i] = oj
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}

func nonNil(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

func printStageTimings(out io.Writer, sum *driver.Summary) {
	for _, st := range buildpipeline.Stages {
		if !sum.Timings.Has(st) {
			continue
		}
		fmt.Fprintf(out, "  %-8s %8.2f ms\n", st, millis(sum.Timings.Duration(st)))
	}
	fmt.Fprintf(out, "  %-8s %8.2f ms (wall)\n", "total", millis(sum.Elapsed))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
