// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve turns a fetched work into a downloadable PDF URL by trying
// an ordered list of strategies: the work's own open-access link first, then
// an Unpaywall lookup by DOI. A failed strategy falls through to the next;
// only exhausting the list leaves the work unresolved.
package resolve

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// Strategy is one step of the resolution chain. Resolve returns the PDF URL
// and true when the step found one. Network failures are reported as not
// found, never as errors.
type Strategy interface {
	Name() types.ResolutionSource
	Resolve(ctx context.Context, w types.WorkRecord) (string, bool)
}

// Resolver tries its strategies in order until one yields a URL.
type Resolver struct {
	strategies []Strategy
	log        zerolog.Logger
}

// New returns a resolver over the given strategies, tried in order.
func New(log zerolog.Logger, strategies ...Strategy) *Resolver {
	return &Resolver{strategies: strategies, log: log}
}

// NewResolver builds the standard chain from a harvest config. Without a
// contact email the Unpaywall step is omitted and the resolver runs in
// direct-only mode.
func NewResolver(client *http.Client, cfg types.HarvestConfig, log zerolog.Logger) *Resolver {
	log = log.With().Str("stage", "resolve").Logger()
	strategies := []Strategy{DirectStrategy{}}
	if cfg.UnpaywallEnabled() {
		strategies = append(strategies, &UnpaywallStrategy{
			Client:  client,
			BaseURL: cfg.UnpaywallAPI,
			Email:   cfg.Email,
			HTTP:    cfg.HTTPConfig,
			Timeout: cfg.ResolveTimeout,
			Log:     log,
		})
	} else {
		log.Debug().Msg("no contact email configured, unpaywall fallback disabled")
	}
	return New(log, strategies...)
}

// Strategies returns the names of the configured steps in order.
func (r *Resolver) Strategies() []types.ResolutionSource {
	names := make([]types.ResolutionSource, len(r.strategies))
	for i, s := range r.strategies {
		names[i] = s.Name()
	}
	return names
}

// Resolve runs the chain for one work. The returned download has source
// "none" and an empty URL when every strategy came up empty.
func (r *Resolver) Resolve(ctx context.Context, w types.WorkRecord) types.ResolvedDownload {
	for _, s := range r.strategies {
		if ctx.Err() != nil {
			break
		}
		if u, ok := s.Resolve(ctx, w); ok {
			r.log.Debug().Str("work_id", w.ID).Str("source", string(s.Name())).Str("url", u).Msg("resolved")
			return types.ResolvedDownload{WorkID: w.ID, URL: u, Source: s.Name()}
		}
	}
	r.log.Debug().Str("work_id", w.ID).Msg("no PDF location found")
	return types.ResolvedDownload{WorkID: w.ID, Source: types.SourceNone}
}

// DirectStrategy returns the open-access PDF URL carried by the work itself.
type DirectStrategy struct{}

func (DirectStrategy) Name() types.ResolutionSource { return types.SourceDirect }

func (DirectStrategy) Resolve(_ context.Context, w types.WorkRecord) (string, bool) {
	return w.PDFURL, w.PDFURL != ""
}
