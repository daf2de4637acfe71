// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/oa-harvest/internal/httputil"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

// maxResponseBytes bounds the JSON body read from a single page.
const maxResponseBytes = 10 << 20

// searchQuery builds the query string for one page of a topic search.
// Only open-access works are requested; a citation threshold becomes the
// server-side filter cited_by_count:>min-1.
func searchQuery(p Params, page int, email string) url.Values {
	filters := []string{"is_oa:true"}
	if p.MinCitations != nil && *p.MinCitations > 0 {
		filters = append(filters, fmt.Sprintf("cited_by_count:>%d", *p.MinCitations-1))
	}
	params := url.Values{
		"search":   {p.Topic},
		"filter":   {strings.Join(filters, ",")},
		"per-page": {strconv.Itoa(p.PerPage)},
		"page":     {strconv.Itoa(page)},
	}
	if email != "" {
		params.Set("mailto", email)
	}
	return params
}

// pmidQuery builds the query string for a lookup by PubMed ID.
func pmidQuery(pmid, email string) url.Values {
	params := url.Values{
		"filter":   {"ids.pmid:" + pmid},
		"per-page": {"1"},
	}
	if email != "" {
		params.Set("mailto", email)
	}
	return params
}

// query runs one GET against the works endpoint under the fetch timeout and
// converts the results. Every failure is returned as a *FetchError.
func (f *Fetcher) query(ctx context.Context, params url.Values, page int) ([]types.WorkRecord, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	reqURL := f.BaseURL + "?" + params.Encode()
	req, err := httputil.NewGetRequest(ctx, reqURL, f.HTTP, "application/json")
	if err != nil {
		return nil, &FetchError{Page: page, Err: err}
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, &FetchError{Page: page, Err: fmt.Errorf("OpenAlex API request: %w", err)}
	}
	defer resp.Body.Close()

	if err := httputil.CheckStatus(resp); err != nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Err: err}
	}

	var oar openAlexResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&oar); err != nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing OpenAlex response: %w", err)}
	}
	if oar.Results == nil {
		return nil, &FetchError{Page: page, StatusCode: resp.StatusCode, Err: fmt.Errorf("parsing OpenAlex response: missing results")}
	}

	works := make([]types.WorkRecord, 0, len(oar.Results))
	for _, w := range oar.Results {
		if w.ID == "" {
			f.Log.Warn().Int("page", page).Str("title", w.title()).Msg("skipping work without id")
			continue
		}
		works = append(works, w.toRecord())
	}
	return works, nil
}

// OpenAlex API JSON structures.
type openAlexResponse struct {
	Meta    openAlexMeta   `json:"meta"`
	Results []openAlexWork `json:"results"`
}

type openAlexMeta struct {
	Count   int `json:"count"`
	PerPage int `json:"per_page"`
	Page    int `json:"page"`
}

type openAlexWork struct {
	ID              string             `json:"id"`
	Title           string             `json:"title"`
	DisplayName     string             `json:"display_name"`
	DOI             string             `json:"doi"`
	PublicationYear int                `json:"publication_year"`
	CitedByCount    int                `json:"cited_by_count"`
	BestOALocation  *openAlexLocation  `json:"best_oa_location"`
	Locations       []openAlexLocation `json:"locations"`
	IDs             openAlexIDs        `json:"ids"`
}

type openAlexLocation struct {
	PDFURL     string `json:"pdf_url"`
	LandingURL string `json:"landing_page_url"`
}

type openAlexIDs struct {
	PMID string `json:"pmid"`
}

func (w openAlexWork) title() string {
	if w.Title != "" {
		return w.Title
	}
	return w.DisplayName
}

// pdfURL prefers the best OA location and falls back to the first other
// location that carries a PDF link.
func (w openAlexWork) pdfURL() string {
	if w.BestOALocation != nil && w.BestOALocation.PDFURL != "" {
		return w.BestOALocation.PDFURL
	}
	for _, loc := range w.Locations {
		if loc.PDFURL != "" {
			return loc.PDFURL
		}
	}
	return ""
}

func (w openAlexWork) toRecord() types.WorkRecord {
	return types.WorkRecord{
		ID:              w.ID,
		Title:           w.title(),
		DOI:             NormalizeDOI(w.DOI),
		CitedByCount:    w.CitedByCount,
		PDFURL:          w.pdfURL(),
		PublicationYear: w.PublicationYear,
		PMID:            strings.TrimPrefix(w.IDs.PMID, "https://pubmed.ncbi.nlm.nih.gov/"),
	}
}
