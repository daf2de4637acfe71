// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/oa-harvest/internal/harvest"
)

var csvCmd = &cobra.Command{
	Use:   "csv",
	Short: "Download PDFs for the PubMed IDs listed in a CSV file",
	Long: `csv reads a CSV file with pmid and title columns, looks each PMID up in
OpenAlex, and downloads the PDFs of the works it finds through the same
worker pool as a topic run. Rows with an empty title are skipped. --start
skips that many rows and --max limits how many are processed.`,
	Args: cobra.NoArgs,
	RunE: runCSV,
}

func init() {
	csvCmd.Flags().String("csv", "", "CSV file with pmid and title columns (required)")
	csvCmd.Flags().Int("start", 0, "number of rows to skip")
	csvCmd.Flags().Int("max", 0, "maximum number of rows to process (0 = all)")
	_ = csvCmd.MarkFlagRequired("csv")

	rootCmd.AddCommand(csvCmd)
}

func runCSV(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("csv")
	start, _ := cmd.Flags().GetInt("start")
	limit, _ := cmd.Flags().GetInt("max")

	cfg, deps, cleanup, err := setup(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	_, err = harvest.RunCSV(cmd.Context(), cfg, harvest.CSVOptions{Path: path, Start: start, Max: limit}, deps)
	return err
}
