package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"regionck/internal/diag"
	"regionck/internal/source"
)

// setupRun enables tracing and profiling for cmd. The returned cleanup
// stops both.
func setupRun(cmd *cobra.Command) (func(), error) {
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return nil, err
	}
	stopTracing, err := setupTracing(cmd)
	if err != nil {
		stopProfiling()
		return nil, err
	}
	return func() {
		stopTracing()
		stopProfiling()
	}, nil
}

// useColor resolves --color and applies it to fatih/color globally.
func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	var on bool
	switch colorFlag {
	case "on":
		on = true
	case "off":
		on = false
	case "auto", "":
		on = isTerminal(os.Stdout)
	default:
		return false, fmt.Errorf("invalid --color value %q (expected auto|on|off)", colorFlag)
	}
	color.NoColor = !on
	return on, nil
}

type globalFlags struct {
	quiet   bool
	timings bool
	jobs    int
	cache   bool
	ui      uiMode
}

func readGlobalFlags(cmd *cobra.Command) (globalFlags, error) {
	var g globalFlags
	flags := cmd.Root().PersistentFlags()
	var err error
	if g.quiet, err = flags.GetBool("quiet"); err != nil {
		return g, err
	}
	if g.timings, err = flags.GetBool("timings"); err != nil {
		return g, err
	}
	if g.jobs, err = flags.GetInt("jobs"); err != nil {
		return g, err
	}
	if g.cache, err = flags.GetBool("cache"); err != nil {
		return g, err
	}
	noCache, err := flags.GetBool("no-cache")
	if err != nil {
		return g, err
	}
	g.cache = g.cache && !noCache
	uiFlag, err := flags.GetString("ui")
	if err != nil {
		return g, err
	}
	if g.ui, err = readUIMode(uiFlag); err != nil {
		return g, err
	}
	return g, nil
}

// singleFile maps the one file id used by solve/dump/watch to its path.
func singleFile(path string) diag.PathFunc {
	return func(source.FileID) string { return path }
}
