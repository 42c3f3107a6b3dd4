package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/fda-label-loader/internal/pipeline"
	"github.com/pdiddy/fda-label-loader/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report <path>",
	Short: "Summarise a saved run report",
	Long: `Report reads a YAML run report written by "load --report" and prints a
one-screen summary. It exits non-zero when the run did not succeed.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := pipeline.ReadReport(args[0])
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), r)
		if !r.Succeeded() {
			return fmt.Errorf("run %s", r.State)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reportCmd)
}

func printReport(w io.Writer, r *types.RunReport) {
	table := r.Table
	if r.DryRun {
		table = "(dry run)"
	}
	fmt.Fprintf(w, "Search:   %s\n", r.Search)
	fmt.Fprintf(w, "Table:    %s\n", table)
	fmt.Fprintf(w, "State:    %s\n", r.State)
	fmt.Fprintf(w, "Started:  %s\n", r.Started.Format(time.RFC3339))
	fmt.Fprintf(w, "Elapsed:  %s\n", r.Finished.Sub(r.Started).Round(time.Millisecond))
	fmt.Fprintf(w, "Total:    %d\n", r.Total)
	fmt.Fprintf(w, "Pulled:   %d in %d pages\n", r.Pulled, r.Pages)
	fmt.Fprintf(w, "Skipped:  %d\n", r.Skipped)
	fmt.Fprintf(w, "Loaded:   %d\n", r.Loaded)
	if r.Error != "" {
		fmt.Fprintf(w, "Error:    %s\n", r.Error)
	}
}
