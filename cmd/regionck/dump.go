package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"regionck/internal/driver"
)

func newDumpCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump FILE",
		Short: "Solve one fixture and print the region inference state",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}
	cmd.Flags().Bool("names", true, "print fixture region names instead of '?N ids")
	return cmd
}

func runDump(cmd *cobra.Command, args []string) error {
	names, err := cmd.Flags().GetBool("names")
	if err != nil {
		return err
	}
	cleanup, err := setupRun(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := driver.SolveFile(cmd.Context(), args[0], driver.Options{FileID: 1})
	if err != nil {
		return err
	}
	var sb strings.Builder
	if err := res.Context.Dump(&sb); err != nil {
		return err
	}
	text := sb.String()
	if !names {
		_, err := fmt.Fprint(cmd.OutOrStdout(), text)
		return err
	}
	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, line := range strings.SplitAfter(text, "\n") {
		if _, err := w.WriteString(res.Problem.Rename(line)); err != nil {
			return err
		}
	}
	return w.Flush()
}
