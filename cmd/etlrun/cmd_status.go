package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"etlflow/pkg/batch/repository"
)

var statusCmd = &cobra.Command{
	Use:   "status <execution-id>",
	Short: "Show an execution and the executions it created",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bi, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeQuietly(bi)

		rec, err := bi.JobOperator.GetExecution(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		children, err := bi.JobOperator.GetChildExecutions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		w := newTable()
		printHeader(w)
		printRecord(w, *rec)
		for _, c := range children {
			printRecord(w, c)
		}
		return w.Flush()
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <job>",
	Short: "List the recorded runs of a job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bi, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer closeQuietly(bi)

		records, err := bi.JobOperator.GetExecutions(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("no recorded runs of %s\n", args[0])
			return nil
		}
		w := newTable()
		printHeader(w)
		for _, r := range records {
			printRecord(w, r)
		}
		return w.Flush()
	},
}

func newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
}

func printHeader(w *tabwriter.Writer) {
	fmt.Fprintln(w, "ID\tLOCATOR\tSTATUS\tERRORS\tWARNINGS\tSTARTED\tDURATION")
}

func printRecord(w *tabwriter.Writer, r repository.StateRecord) {
	started, duration := "-", "-"
	if !r.StartTime.IsZero() {
		started = r.StartTime.Local().Format(time.DateTime)
		if !r.StopTime.IsZero() {
			duration = r.StopTime.Sub(r.StartTime).Round(time.Millisecond).String()
		}
	}
	fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n", r.ID, r.Locator, r.Status, r.Errors, r.Warnings, started, duration)
}
