// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package acquire runs the bounded download pool: each work is resolved to
// a PDF URL, fetched, and written under the output directory by one of N
// workers. Every input work produces exactly one result.
package acquire

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// Resolver maps a work to a download location.
type Resolver interface {
	Resolve(ctx context.Context, w types.WorkRecord) types.ResolvedDownload
}

// Pool downloads works with a fixed number of concurrent workers.
type Pool struct {
	Workers    int
	OutDir     string
	Resolver   Resolver
	Downloader *Downloader
	Log        zerolog.Logger

	// OnResult, when set, is called from the aggregating goroutine once per
	// finished work, in completion order.
	OnResult func(types.DownloadResult)
}

// NewPool builds a pool from a harvest config.
func NewPool(client *http.Client, cfg types.HarvestConfig, resolver Resolver, log zerolog.Logger) *Pool {
	return &Pool{
		Workers:    cfg.Workers,
		OutDir:     cfg.OutDir,
		Resolver:   resolver,
		Downloader: NewDownloader(client, cfg),
		Log:        log.With().Str("stage", "download").Logger(),
	}
}

type job struct {
	index int
	work  types.WorkRecord
}

type indexedResult struct {
	index  int
	result types.DownloadResult
}

// Run processes every work and returns their results in input order. It
// returns only after each work has a terminal outcome. Individual failures
// never stop other works; once ctx is cancelled, works not yet started are
// reported as cancelled.
func (p *Pool) Run(ctx context.Context, works []types.WorkRecord) []types.DownloadResult {
	results := make([]types.DownloadResult, len(works))
	if len(works) == 0 {
		return results
	}

	workers := max(p.Workers, 1)
	workers = min(workers, len(works))

	jobs := make(chan job)
	out := make(chan indexedResult)

	// A plain group: one work failing must not cancel the others.
	var g errgroup.Group
	g.Go(func() error {
		defer close(jobs)
		for i, w := range works {
			jobs <- job{index: i, work: w}
		}
		return nil
	})
	for range workers {
		g.Go(func() error {
			for j := range jobs {
				out <- indexedResult{index: j.index, result: p.process(ctx, j.work)}
			}
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(out)
	}()

	p.Log.Info().Int("works", len(works)).Int("workers", workers).Msg("starting downloads")
	for r := range out {
		results[r.index] = r.result
		p.logResult(r.result)
		if p.OnResult != nil {
			p.OnResult(r.result)
		}
	}
	return results
}

// process resolves, downloads, and classifies a single work.
func (p *Pool) process(ctx context.Context, w types.WorkRecord) types.DownloadResult {
	if err := ctx.Err(); err != nil {
		return types.DownloadResult{
			WorkID:  w.ID,
			Outcome: types.OutcomeCancelled,
			Source:  types.SourceNone,
			Detail:  err.Error(),
		}
	}

	rd := p.Resolver.Resolve(ctx, w)
	res := types.DownloadResult{WorkID: w.ID, Source: rd.Source, URL: rd.URL}
	if !rd.Resolved() {
		res.Outcome = types.OutcomeResolutionFailed
		res.Detail = "no PDF location found"
		if ctx.Err() != nil {
			res.Detail += ": " + ctx.Err().Error()
		}
		return res
	}

	path := DestPath(p.OutDir, w.ID)
	n, status, err := p.Downloader.Download(ctx, rd.URL, path)
	switch {
	case err == nil:
		res.Outcome = types.OutcomeSuccess
		res.Path = path
		res.Bytes = n
	case isIOError(err):
		res.Outcome = types.OutcomeIOError
		res.Detail = err.Error()
	default:
		res.Outcome = types.OutcomeHTTPError
		res.StatusCode = status
		res.Detail = err.Error()
	}
	return res
}

func (p *Pool) logResult(r types.DownloadResult) {
	ev := p.Log.Info()
	if !r.Succeeded() {
		ev = p.Log.Warn()
	}
	ev = ev.Str("work_id", r.WorkID).Str("outcome", string(r.Outcome)).Str("source", string(r.Source))
	if r.Succeeded() {
		ev = ev.Str("path", r.Path).Int64("bytes", r.Bytes)
	} else {
		ev = ev.Str("detail", r.Detail)
		if r.StatusCode != 0 {
			ev = ev.Int("status", r.StatusCode)
		}
	}
	ev.Msg("download finished")
}
