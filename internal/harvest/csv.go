// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package harvest

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/oa-harvest/internal/search"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

// CSVOptions selects the input rows for a CSV run.
type CSVOptions struct {
	Path string

	// Start skips this many usable rows (0-based).
	Start int

	// Max limits the number of rows processed; zero means no limit.
	Max int
}

// CSVRow is one usable input row.
type CSVRow struct {
	PMID  string
	Title string
}

// ReadCSV returns the rows of a CSV file with pmid and title columns.
// Rows with an empty title, or the literal "[]", are skipped.
func ReadCSV(r io.Reader) ([]CSVRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("CSV input is empty")
		}
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	pmidCol, titleCol := -1, -1
	for i, name := range header {
		switch strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))) {
		case "pmid":
			pmidCol = i
		case "title":
			titleCol = i
		}
	}
	if pmidCol < 0 || titleCol < 0 {
		return nil, fmt.Errorf("CSV header must include pmid and title columns (got %v)", header)
	}

	var rows []CSVRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV: %w", err)
		}
		title := field(rec, titleCol)
		if title == "" || title == "[]" {
			continue
		}
		rows = append(rows, CSVRow{PMID: field(rec, pmidCol), Title: title})
	}
	return rows, nil
}

func field(rec []string, i int) string {
	if i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// window applies the start offset and max limit.
func window(rows []CSVRow, start, limit int) []CSVRow {
	if start > 0 {
		if start >= len(rows) {
			return nil
		}
		rows = rows[start:]
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	return rows
}

// RunCSV harvests the works named by PMID in a CSV file. Each PMID is looked
// up in OpenAlex; rows without a PMID or without an OpenAlex record are
// logged and skipped. The found works then go through the same pool and
// reporting as a topic run.
func RunCSV(ctx context.Context, cfg types.HarvestConfig, opts CSVOptions, deps Deps) (types.RunSummary, error) {
	if cfg.Topic == "" {
		cfg.Topic = "csv:" + opts.Path
	}
	if err := cfg.Validate(); err != nil {
		return types.RunSummary{}, err
	}
	if opts.Start < 0 || opts.Max < 0 {
		return types.RunSummary{}, fmt.Errorf("start and max must not be negative")
	}

	f, err := os.Open(opts.Path)
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("opening CSV: %w", err)
	}
	rows, err := ReadCSV(f)
	f.Close()
	if err != nil {
		return types.RunSummary{}, err
	}
	rows = window(rows, opts.Start, opts.Max)

	started := deps.now()
	runID := uuid.NewString()
	log := deps.Log.With().Str("run_id", runID).Logger()
	log.Info().Str("csv", opts.Path).Int("rows", len(rows)).Msg("starting CSV harvest")
	fmt.Fprintf(deps.out(), "processing %d papers from %s\n", len(rows), opts.Path)

	works, dups, err := lookupRows(ctx, cfg, deps, rows)
	if err != nil {
		return types.RunSummary{}, err
	}
	if deps.Metrics != nil {
		deps.Metrics.RecordFetch(len(works), dups)
	}
	fmt.Fprintf(deps.out(), "found: %d of %d papers in OpenAlex\n", len(works), len(rows))

	results := download(ctx, cfg, deps, log, works)

	sum := types.NewRunSummary(results)
	sum.RunID = runID
	sum.Topic = cfg.Topic
	sum.StartedAt = started
	sum.FinishedAt = deps.now()
	sum.Duplicates = dups

	report(ctx, cfg, deps, log, sum)
	return sum, nil
}

// lookupRows resolves each row's PMID to an OpenAlex work, at most
// cfg.Workers lookups at a time. The returned works keep row order; two rows
// naming the same work yield it once.
func lookupRows(ctx context.Context, cfg types.HarvestConfig, deps Deps, rows []CSVRow) ([]types.WorkRecord, int, error) {
	fetcher := search.NewFetcher(deps.Client, cfg, deps.Log)
	found := make([]*types.WorkRecord, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, row := range rows {
		if row.PMID == "" {
			deps.Log.Warn().Str("title", row.Title).Msg("row has no PMID, skipping")
			continue
		}
		g.Go(func() error {
			w, err := fetcher.LookupPMID(gctx, row.PMID)
			switch {
			case gctx.Err() != nil:
				return gctx.Err()
			case err != nil:
				deps.Log.Warn().Err(err).Str("pmid", row.PMID).Msg("PMID lookup failed, skipping")
			case w == nil:
				deps.Log.Info().Str("pmid", row.PMID).Msg("no OpenAlex record for PMID")
			default:
				found[i] = w
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("looking up PMIDs: %w", err)
	}

	var works []types.WorkRecord
	dups := 0
	seen := make(map[string]struct{})
	for _, w := range found {
		if w == nil {
			continue
		}
		if _, ok := seen[w.ID]; ok {
			dups++
			continue
		}
		seen[w.ID] = struct{}{}
		works = append(works, *w)
	}
	return works, dups, nil
}
