// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/oa-harvest/internal/acquire"
	"github.com/pdiddy/oa-harvest/internal/search"
)

var worksCmd = &cobra.Command{
	Use:   "works [file]",
	Short: "List the works saved by the last fetch",
	Long: `works prints the works recorded in a works file (default:
<outdir>/works.yaml), including the file each one downloads to.
With --csl the works are written as a CSL-YAML bibliography instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWorks,
}

var worksCSL bool

func init() {
	worksCmd.Flags().BoolVar(&worksCSL, "csl", false, "write the works as CSL-YAML")
	rootCmd.AddCommand(worksCmd)
}

func runWorks(cmd *cobra.Command, args []string) error {
	outDir := viper.GetString("outdir")
	path := filepath.Join(outDir, search.WorksFileName)
	if len(args) == 1 {
		path = args[0]
	}
	wf, err := search.ReadWorksFile(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if worksCSL {
		return search.FormatCSL(wf.Works, out)
	}
	fmt.Fprintf(out, "topic %q: %d works (fetched %s)\n\n",
		wf.Query.Topic, wf.Summary.Total, wf.Summary.Timestamp.Local().Format("2006-01-02 15:04"))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "FILE\tCITED\tDOI\tPDF\tTITLE")
	for _, work := range wf.Works {
		pdf := "-"
		if work.PDFURL != "" {
			pdf = "yes"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			filepath.Base(acquire.DestPath(outDir, work.ID)), work.CitedByCount, work.DOI, pdf, work.Title)
	}
	return nil
}
