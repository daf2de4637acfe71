// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package search pages through the OpenAlex works endpoint and returns the
// open-access works matching a topic. A single failed page aborts the fetch.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// FetchError reports a failure that aborts the fetch stage. Page is zero
// for single-work lookups.
type FetchError struct {
	Page       int
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("fetching OpenAlex page %d: %v", e.Page, e.Err)
	}
	return fmt.Sprintf("fetching OpenAlex: %v", e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is or wraps a *FetchError.
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// Params are the search parameters for one fetch.
type Params struct {
	Topic        string
	PerPage      int
	Pages        int
	MinCitations *int
}

// ParamsFromConfig extracts the search parameters from a harvest config.
func ParamsFromConfig(cfg types.HarvestConfig) Params {
	return Params{
		Topic:        cfg.Topic,
		PerPage:      cfg.PerPage,
		Pages:        cfg.Pages,
		MinCitations: cfg.MinCitations,
	}
}

// Validate checks the parameter ranges accepted by the fetcher.
func (p Params) Validate() error {
	switch {
	case strings.TrimSpace(p.Topic) == "":
		return fmt.Errorf("topic is empty")
	case p.PerPage < 1 || p.PerPage > 200:
		return fmt.Errorf("per_page %d out of range [1,200]", p.PerPage)
	case p.Pages < 1:
		return fmt.Errorf("pages %d must be at least 1", p.Pages)
	case p.MinCitations != nil && *p.MinCitations < 0:
		return fmt.Errorf("min_citations %d must not be negative", *p.MinCitations)
	}
	return nil
}

// Output holds the fetched works and the number of records dropped.
type Output struct {
	Works []types.WorkRecord

	// Duplicates counts works whose ID already appeared on an earlier page.
	Duplicates int

	// BelowThreshold counts works dropped by the min_citations filter.
	BelowThreshold int
}

// Fetcher queries the OpenAlex works endpoint.
type Fetcher struct {
	Client  *http.Client
	BaseURL string
	// Email is sent as the mailto parameter for polite pool access.
	Email   string
	HTTP    types.HTTPConfig
	Timeout time.Duration
	Log     zerolog.Logger
}

// NewFetcher builds a fetcher from a harvest config.
func NewFetcher(client *http.Client, cfg types.HarvestConfig, log zerolog.Logger) *Fetcher {
	return &Fetcher{
		Client:  client,
		BaseURL: cfg.APIBase,
		Email:   cfg.Email,
		HTTP:    cfg.HTTPConfig,
		Timeout: cfg.FetchTimeout,
		Log:     log.With().Str("stage", "fetch").Logger(),
	}
}

// Fetch pages through the works endpoint for pages 1..p.Pages and returns
// every work at or above the citation threshold. Paging stops early at the
// first empty page. Works repeated across pages are kept once, at their
// first position.
func (f *Fetcher) Fetch(ctx context.Context, p Params) (Output, error) {
	if err := p.Validate(); err != nil {
		return Output{}, fmt.Errorf("invalid search parameters: %w", err)
	}

	var out Output
	seen := make(map[string]struct{})

	for page := 1; page <= p.Pages; page++ {
		works, err := f.fetchPage(ctx, p, page)
		if err != nil {
			return Output{}, err
		}
		f.Log.Info().Int("page", page).Int("works", len(works)).Msg("fetched page")
		if len(works) == 0 {
			break
		}

		for _, w := range works {
			if p.MinCitations != nil && w.CitedByCount < *p.MinCitations {
				out.BelowThreshold++
				continue
			}
			if _, dup := seen[w.ID]; dup {
				out.Duplicates++
				f.Log.Debug().Str("work_id", w.ID).Int("page", page).Msg("duplicate work dropped")
				continue
			}
			seen[w.ID] = struct{}{}
			out.Works = append(out.Works, w)
		}
	}

	f.Log.Info().
		Int("works", len(out.Works)).
		Int("duplicates", out.Duplicates).
		Int("below_threshold", out.BelowThreshold).
		Msg("fetch complete")
	return out, nil
}

// LookupPMID returns the work with the given PubMed ID, or nil when
// OpenAlex has no record for it.
func (f *Fetcher) LookupPMID(ctx context.Context, pmid string) (*types.WorkRecord, error) {
	pmid = strings.TrimSpace(pmid)
	if pmid == "" {
		return nil, fmt.Errorf("empty PMID")
	}
	works, err := f.query(ctx, pmidQuery(pmid, f.Email), 0)
	if err != nil {
		return nil, err
	}
	if len(works) == 0 {
		return nil, nil
	}
	w := works[0]
	w.PMID = pmid
	return &w, nil
}

// fetchPage retrieves a single page of search results.
func (f *Fetcher) fetchPage(ctx context.Context, p Params, page int) ([]types.WorkRecord, error) {
	return f.query(ctx, searchQuery(p, page, f.Email), page)
}

// NormalizeDOI strips the URL and scheme prefixes OpenAlex and CSV inputs
// put in front of a DOI, returning the bare "10.x/y" form.
func NormalizeDOI(doi string) string {
	doi = strings.TrimSpace(doi)
	for _, prefix := range []string{
		"https://doi.org/",
		"http://doi.org/",
		"https://dx.doi.org/",
		"http://dx.doi.org/",
		"doi:",
	} {
		if len(doi) >= len(prefix) && strings.EqualFold(doi[:len(prefix)], prefix) {
			return doi[len(prefix):]
		}
	}
	return doi
}
