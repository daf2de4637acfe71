// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// drainLimit caps how much of an unwanted body is read before closing, so
// the connection can be reused without reading an entire PDF.
const drainLimit = 64 << 10

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// NewGetRequest builds a GET request bound to ctx carrying the configured
// User-Agent and Referer headers. accept may be empty.
func NewGetRequest(ctx context.Context, rawURL string, cfg types.HTTPConfig, accept string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}
	if cfg.Referer != "" {
		req.Header.Set("Referer", cfg.Referer)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req, nil
}

// IsSuccess reports whether code is in the 2xx range.
func IsSuccess(code int) bool {
	return code >= 200 && code < 300
}

// CheckStatus returns a *StatusError for non-2xx responses. It drains and
// closes the body in that case; on success the caller still owns the body.
func CheckStatus(resp *http.Response) error {
	if IsSuccess(resp.StatusCode) {
		return nil
	}
	DiscardBody(resp)
	return &StatusError{StatusCode: resp.StatusCode, URL: resp.Request.URL.String()}
}

// DiscardBody drains a bounded amount of the body and closes it.
func DiscardBody(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	resp.Body.Close()
}
