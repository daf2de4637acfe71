// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oa-harvest/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs recorded in the ledger",
	Long: `history reads the run ledger configured by ledger_path and lists the most
recent runs. With --run it prints the per-work results of one run.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 10, "number of runs to list")
	historyCmd.Flags().String("run", "", "show the results of this run ID")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := viper.GetString("ledger_path")
	if path == "" {
		return fmt.Errorf("ledger_path is not configured")
	}
	store, err := ledger.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	defer w.Flush()

	if runID, _ := cmd.Flags().GetString("run"); runID != "" {
		results, err := store.Results(cmd.Context(), runID)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return fmt.Errorf("no results recorded for run %s", runID)
		}
		fmt.Fprintln(w, "WORK\tOUTCOME\tSOURCE\tDETAIL")
		for _, r := range results {
			detail := r.Detail
			if r.Succeeded() {
				detail = r.Path
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.WorkID, r.Outcome, r.Source, detail)
		}
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := store.Recent(cmd.Context(), limit)
	if err != nil {
		return err
	}
	fmt.Fprintln(w, "RUN\tSTARTED\tTOPIC\tTOTAL\tOK\tFAILED\tDUPLICATES")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Topic, r.Total, r.Succeeded, r.Failed, r.Duplicates)
	}
	return nil
}
