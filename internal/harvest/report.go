// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/oa-harvest/internal/acquire"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

// SummaryFileName is written next to the downloaded PDFs.
const SummaryFileName = "summary.yaml"

// outcomeOrder fixes the order of the per-outcome breakdown.
var outcomeOrder = []types.Outcome{
	types.OutcomeSuccess,
	types.OutcomeHTTPError,
	types.OutcomeResolutionFailed,
	types.OutcomeIOError,
	types.OutcomeCancelled,
}

func printResult(w io.Writer, r types.DownloadResult) {
	slug := acquire.Slug(r.WorkID)
	if r.Succeeded() {
		fmt.Fprintf(w, "downloaded: %s (%s, %d bytes)\n", slug, r.Source, r.Bytes)
		return
	}
	fmt.Fprintf(w, "failed:     %s (%s: %s)\n", slug, r.Outcome, r.Detail)
}

// PrintSummary writes the run totals and a per-outcome breakdown.
func PrintSummary(w io.Writer, s types.RunSummary) {
	fmt.Fprintf(w, "\nHarvest summary: %d succeeded, %d failed (total: %d)\n",
		s.Succeeded, s.Failed, s.Total)
	if s.Total == 0 {
		return
	}
	counts := s.ByOutcome()
	for _, o := range outcomeOrder {
		if n := counts[o]; n > 0 {
			fmt.Fprintf(w, "  %-18s %d\n", o, n)
		}
	}
}

// WriteSummaryFile saves the summary as YAML at path.
func WriteSummaryFile(path string, s types.RunSummary) error {
	data, err := yaml.Marshal(&s)
	if err != nil {
		return fmt.Errorf("marshaling summary: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for summary: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadSummaryFile loads a summary written by WriteSummaryFile.
func ReadSummaryFile(path string) (*types.RunSummary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading summary: %w", err)
	}
	var s types.RunSummary
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing summary: %w", err)
	}
	return &s, nil
}
