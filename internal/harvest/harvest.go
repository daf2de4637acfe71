// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package harvest wires the pipeline together: fetch works from OpenAlex,
// download them through the worker pool, and report the run. A failed
// fetch aborts the run; download failures never do.
package harvest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/pdiddy/oa-harvest/internal/acquire"
	"github.com/pdiddy/oa-harvest/internal/metrics"
	"github.com/pdiddy/oa-harvest/internal/resolve"
	"github.com/pdiddy/oa-harvest/internal/search"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

// Recorder stores a finished run. *ledger.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, s types.RunSummary) error
}

// Deps are the collaborators of a run. Only Client is required.
type Deps struct {
	Client *http.Client
	Log    zerolog.Logger

	// Out receives per-work progress lines and the final summary.
	Out io.Writer

	Metrics *metrics.Metrics
	Ledger  Recorder

	// Now overrides the clock for tests.
	Now func() time.Time
}

func (d Deps) now() time.Time {
	if d.Now != nil {
		return d.Now()
	}
	return time.Now()
}

func (d Deps) out() io.Writer {
	if d.Out != nil {
		return d.Out
	}
	return io.Discard
}

// Run executes one topic harvest: fetch, download, report. It returns an
// error only for an invalid config or a failed fetch; otherwise the summary
// is returned even when every download failed.
func Run(ctx context.Context, cfg types.HarvestConfig, deps Deps) (types.RunSummary, error) {
	if err := cfg.Validate(); err != nil {
		return types.RunSummary{}, err
	}
	started := deps.now()
	runID := uuid.NewString()
	log := deps.Log.With().Str("run_id", runID).Logger()

	log.Info().
		Str("topic", cfg.Topic).
		Int("per_page", cfg.PerPage).
		Int("pages", cfg.Pages).
		Int("workers", cfg.Workers).
		Bool("unpaywall", cfg.UnpaywallEnabled()).
		Msg("starting harvest")

	params := search.ParamsFromConfig(cfg)
	fetched, err := search.NewFetcher(deps.Client, cfg, log).Fetch(ctx, params)
	if err != nil {
		if deps.Metrics != nil {
			deps.Metrics.RecordFetchFailure()
		}
		log.Error().Err(err).Msg("fetch failed")
		return types.RunSummary{}, fmt.Errorf("fetch stage: %w", err)
	}
	if deps.Metrics != nil {
		deps.Metrics.RecordFetch(len(fetched.Works), fetched.Duplicates)
	}
	fmt.Fprintf(deps.out(), "fetched: %d works for %q (%d duplicates dropped, %d below citation threshold)\n",
		len(fetched.Works), cfg.Topic, fetched.Duplicates, fetched.BelowThreshold)

	if len(fetched.Works) > 0 {
		worksPath := filepath.Join(cfg.OutDir, search.WorksFileName)
		if err := search.WriteWorksFile(worksPath, params, fetched); err != nil {
			log.Warn().Err(err).Str("path", worksPath).Msg("could not write works file")
		}
	}

	results := download(ctx, cfg, deps, log, fetched.Works)

	sum := types.NewRunSummary(results)
	sum.RunID = runID
	sum.Topic = cfg.Topic
	sum.StartedAt = started
	sum.FinishedAt = deps.now()
	sum.Duplicates = fetched.Duplicates

	report(ctx, cfg, deps, log, sum)
	return sum, nil
}

// download runs the worker pool over works, streaming progress to the
// output writer and metrics as results arrive.
func download(ctx context.Context, cfg types.HarvestConfig, deps Deps, log zerolog.Logger, works []types.WorkRecord) []types.DownloadResult {
	resolver := resolve.NewResolver(deps.Client, cfg, log)
	pool := acquire.NewPool(deps.Client, cfg, resolver, log)
	w := deps.out()
	pool.OnResult = func(r types.DownloadResult) {
		printResult(w, r)
		if deps.Metrics != nil {
			deps.Metrics.RecordResult(r)
		}
	}
	return pool.Run(ctx, works)
}

// report emits the summary to every configured sink. Sink failures are
// logged and never change the run's result.
func report(ctx context.Context, cfg types.HarvestConfig, deps Deps, log zerolog.Logger, sum types.RunSummary) {
	PrintSummary(deps.out(), sum)

	log.Info().
		Int("total", sum.Total).
		Int("succeeded", sum.Succeeded).
		Int("failed", sum.Failed).
		Dur("elapsed", sum.FinishedAt.Sub(sum.StartedAt)).
		Msg("harvest complete")

	if sum.Total > 0 {
		path := filepath.Join(cfg.OutDir, SummaryFileName)
		if err := WriteSummaryFile(path, sum); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("could not write summary file")
		}
	}

	if deps.Metrics != nil {
		deps.Metrics.RecordRun(sum)
		if cfg.MetricsFile != "" {
			if err := deps.Metrics.WriteTextfile(cfg.MetricsFile); err != nil {
				log.Warn().Err(err).Str("path", cfg.MetricsFile).Msg("could not write metrics")
			}
		}
	}

	if deps.Ledger != nil {
		// Record even when the run was interrupted.
		if err := deps.Ledger.Record(context.WithoutCancel(ctx), sum); err != nil {
			log.Warn().Err(err).Msg("could not record run in ledger")
		}
	}
}
