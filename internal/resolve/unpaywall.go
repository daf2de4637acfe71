// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/oa-harvest/internal/httputil"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

const maxUnpaywallBytes = 2 << 20

// UnpaywallStrategy looks up the best open-access location for a DOI.
// It needs a contact email; Unpaywall rejects anonymous requests.
type UnpaywallStrategy struct {
	Client  *http.Client
	BaseURL string
	Email   string
	HTTP    types.HTTPConfig
	Timeout time.Duration
	Log     zerolog.Logger
}

func (s *UnpaywallStrategy) Name() types.ResolutionSource { return types.SourceUnpaywall }

// Resolve queries {BaseURL}/{doi}?email=... and returns
// best_oa_location.url_for_pdf. Works without a DOI are skipped without a
// request.
func (s *UnpaywallStrategy) Resolve(ctx context.Context, w types.WorkRecord) (string, bool) {
	if w.DOI == "" || s.Email == "" {
		return "", false
	}
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	log := s.Log.With().Str("work_id", w.ID).Str("doi", w.DOI).Logger()

	reqURL, err := lookupURL(s.BaseURL, w.DOI, s.Email)
	if err != nil {
		log.Warn().Err(err).Msg("unpaywall request")
		return "", false
	}
	req, err := httputil.NewGetRequest(ctx, reqURL, s.HTTP, "application/json")
	if err != nil {
		log.Warn().Err(err).Msg("unpaywall request")
		return "", false
	}

	resp, err := s.Client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("unpaywall lookup failed")
		return "", false
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusUnprocessableEntity:
		httputil.DiscardBody(resp)
		log.Debug().Int("status", resp.StatusCode).Msg("DOI unknown to unpaywall")
		return "", false
	case !httputil.IsSuccess(resp.StatusCode):
		httputil.DiscardBody(resp)
		log.Warn().Int("status", resp.StatusCode).Msg("unpaywall lookup failed")
		return "", false
	}

	var ur unpaywallResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxUnpaywallBytes)).Decode(&ur); err != nil {
		log.Warn().Err(err).Msg("parsing unpaywall response")
		return "", false
	}
	if ur.BestOALocation == nil || ur.BestOALocation.URLForPDF == "" {
		log.Debug().Msg("no PDF found via unpaywall")
		return "", false
	}
	return ur.BestOALocation.URLForPDF, true
}

// lookupURL appends doi to the base path and adds the email query. The DOI
// keeps its slashes; '#', '?' and '%' are percent-encoded.
func lookupURL(base, doi, email string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing unpaywall base URL: %w", err)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + doi
	u.RawPath = ""
	u.RawQuery = url.Values{"email": {email}}.Encode()
	u.Fragment = ""
	return u.String(), nil
}

type unpaywallResponse struct {
	DOI            string             `json:"doi"`
	IsOA           bool               `json:"is_oa"`
	BestOALocation *unpaywallLocation `json:"best_oa_location"`
}

type unpaywallLocation struct {
	URL       string `json:"url"`
	URLForPDF string `json:"url_for_pdf"`
}
