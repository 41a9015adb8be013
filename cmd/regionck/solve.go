package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"regionck/internal/diag"
	"regionck/internal/driver"
	"regionck/internal/report"
)

type solveOptions struct {
	format    string
	withNotes bool
	color     bool
	quiet     bool
	timings   bool
}

func newSolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solve FILE",
		Short: "Solve one fixture and report region errors and closure requirements",
		Args:  cobra.ExactArgs(1),
		RunE:  runSolve,
	}
	cmd.Flags().String("format", "pretty", "output format (pretty|short|json)")
	cmd.Flags().Bool("with-notes", true, "include diagnostic notes in output")
	return cmd
}

func readSolveOptions(cmd *cobra.Command) (solveOptions, error) {
	var opts solveOptions
	var err error
	if opts.format, err = cmd.Flags().GetString("format"); err != nil {
		return opts, err
	}
	opts.format = strings.ToLower(opts.format)
	switch opts.format {
	case "pretty", "short", "json":
	default:
		return opts, fmt.Errorf("unsupported format %q (must be pretty, short or json)", opts.format)
	}
	if opts.withNotes, err = cmd.Flags().GetBool("with-notes"); err != nil {
		return opts, err
	}
	g, err := readGlobalFlags(cmd)
	if err != nil {
		return opts, err
	}
	opts.quiet, opts.timings = g.quiet, g.timings
	if opts.color, err = useColor(cmd); err != nil {
		return opts, err
	}
	return opts, nil
}

func runSolve(cmd *cobra.Command, args []string) error {
	opts, err := readSolveOptions(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupRun(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	code, err := solveOnce(cmd, args[0], opts)
	if err != nil {
		return err
	}
	if code != 0 {
		return exitError{code: code}
	}
	return nil
}

// solveOnce runs one fixture and prints the outcome. It returns 1 when the
// fixture failed to load, had region errors or missed an expectation.
func solveOnce(cmd *cobra.Command, path string, opts solveOptions) (int, error) {
	out := cmd.OutOrStdout()
	res, err := driver.SolveFile(cmd.Context(), path, driver.Options{FileID: 1, Timings: opts.timings})
	if err != nil {
		if cmd.Context().Err() != nil {
			return 0, err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), driver.ErrorDiagnostic(err, 1).Message)
		return 1, nil
	}

	paths := singleFile(path)
	switch opts.format {
	case "json":
		o := report.BuildOutput(res.Problem.Name, res.Errors, res.Requirements, res.Bag, report.JSONOpts{Paths: paths, IncludeNotes: opts.withNotes})
		o.Errors = res.Observed.Errors
		o.Requirements = res.Observed.Requirements
		if err := report.JSON(out, o); err != nil {
			return 0, err
		}
	case "short":
		if text := diag.FormatGoldenDiagnostics(res.Bag.Items(), paths, opts.withNotes); text != "" {
			fmt.Fprintln(out, text)
		}
	default:
		if err := report.Pretty(out, res.Bag, report.PrettyOpts{Color: opts.color, ShowNotes: opts.withNotes, Paths: paths}); err != nil {
			return 0, err
		}
		if !opts.quiet {
			printSolveSummary(out, res)
		}
	}
	if opts.timings && opts.format != "json" {
		fmt.Fprint(cmd.ErrOrStderr(), res.Timer.Summary())
	}

	if res.Bag.HasErrors() || !res.Passed() {
		return 1, nil
	}
	return 0, nil
}

func printSolveSummary(out io.Writer, res *driver.Result) {
	name := res.Problem.Name
	if name == "" {
		name = res.Path
	}
	fmt.Fprintf(out, "%s: %d error(s), %d requirement(s)\n", name, len(res.Observed.Errors), len(res.Observed.Requirements))
	for _, r := range res.Observed.Requirements {
		fmt.Fprintf(out, "  requires %s\n", r)
	}
	if res.HasExpect() {
		if res.Passed() {
			fmt.Fprintln(out, "expectations: ok")
		} else {
			fmt.Fprintf(out, "expectations: %d mismatch(es)\n", len(res.Mismatches))
		}
	}
}
