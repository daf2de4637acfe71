// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// unpaywallServer answers every lookup with status and body and counts hits.
func unpaywallServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts, &hits
}

func testConfig(unpaywallURL, email string) types.HarvestConfig {
	return types.HarvestConfig{
		HTTPConfig:     types.HTTPConfig{UserAgent: "oa-harvest-test/0.1"},
		UnpaywallAPI:   unpaywallURL,
		Email:          email,
		ResolveTimeout: 2 * time.Second,
	}
}

const foundBody = `{"doi":"10.1000/xyz","is_oa":true,"best_oa_location":{"url":"https://repo.example.org/landing","url_for_pdf":"https://repo.example.org/xyz.pdf"}}`

func TestResolveDirectNeverQueriesUnpaywall(t *testing.T) {
	ts, hits := unpaywallServer(t, http.StatusOK, foundBody)
	r := NewResolver(ts.Client(), testConfig(ts.URL, "me@example.com"), zerolog.Nop())

	got := r.Resolve(context.Background(), types.WorkRecord{
		ID:     "https://openalex.org/W1",
		DOI:    "10.1000/xyz",
		PDFURL: "https://arxiv.org/pdf/1706.03762",
	})

	assert.Equal(t, types.ResolvedDownload{
		WorkID: "https://openalex.org/W1",
		URL:    "https://arxiv.org/pdf/1706.03762",
		Source: types.SourceDirect,
	}, got)
	assert.Zero(t, hits.Load())
}

func TestResolveUnpaywallFallback(t *testing.T) {
	var gotPath, gotEmail string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotEmail = r.URL.Query().Get("email")
		fmt.Fprint(w, foundBody)
	}))
	defer ts.Close()

	r := NewResolver(ts.Client(), testConfig(ts.URL+"/v2", "me@example.com"), zerolog.Nop())
	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W2", DOI: "10.1000/xyz"})

	assert.True(t, got.Resolved())
	assert.Equal(t, types.SourceUnpaywall, got.Source)
	assert.Equal(t, "https://repo.example.org/xyz.pdf", got.URL)
	assert.Equal(t, "/v2/10.1000/xyz", gotPath)
	assert.Equal(t, "me@example.com", gotEmail)
}

func TestResolveUnpaywallEscapesDOI(t *testing.T) {
	tests := []struct {
		name string
		doi  string
	}{
		{"sici hash", "10.1002/(SICI)1097-4636(199706)35:4<463::AID-JBM6>3.0.CO;2-#"},
		{"question mark", "10.1000/a?b"},
		{"percent", "10.1000/50%off"},
		{"plain", "10.1000/xyz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotPath, gotEmail string
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotEmail = r.URL.Query().Get("email")
				fmt.Fprint(w, foundBody)
			}))
			defer ts.Close()

			r := NewResolver(ts.Client(), testConfig(ts.URL+"/v2/", "me@example.com"), zerolog.Nop())
			got := r.Resolve(context.Background(), types.WorkRecord{ID: "W9", DOI: tt.doi})

			assert.Equal(t, types.SourceUnpaywall, got.Source)
			assert.Equal(t, "/v2/"+tt.doi, gotPath)
			assert.Equal(t, "me@example.com", gotEmail)
		})
	}
}

func TestResolveWithoutEmailIsDirectOnly(t *testing.T) {
	ts, hits := unpaywallServer(t, http.StatusOK, foundBody)
	r := NewResolver(ts.Client(), testConfig(ts.URL, ""), zerolog.Nop())

	assert.Equal(t, []types.ResolutionSource{types.SourceDirect}, r.Strategies())

	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W3", DOI: "10.1000/xyz"})
	assert.False(t, got.Resolved())
	assert.Equal(t, types.SourceNone, got.Source)
	assert.Equal(t, "W3", got.WorkID)
	assert.Zero(t, hits.Load())
}

func TestResolveNoDOINoURL(t *testing.T) {
	ts, hits := unpaywallServer(t, http.StatusOK, foundBody)
	r := NewResolver(ts.Client(), testConfig(ts.URL, "me@example.com"), zerolog.Nop())

	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W4"})
	assert.Equal(t, types.SourceNone, got.Source)
	assert.Empty(t, got.URL)
	assert.Zero(t, hits.Load(), "no DOI means no lookup")
}

func TestResolveUnpaywallNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404", http.StatusNotFound, `{"error":true}`},
		{"422 invalid doi", http.StatusUnprocessableEntity, `{"error":true}`},
		{"server error", http.StatusInternalServerError, ``},
		{"malformed json", http.StatusOK, `{"best_oa_location":`},
		{"null location", http.StatusOK, `{"is_oa":false,"best_oa_location":null}`},
		{"location without pdf", http.StatusOK, `{"best_oa_location":{"url":"https://landing.example","url_for_pdf":null}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, hits := unpaywallServer(t, tt.status, tt.body)
			r := NewResolver(ts.Client(), testConfig(ts.URL, "me@example.com"), zerolog.Nop())

			got := r.Resolve(context.Background(), types.WorkRecord{ID: "W5", DOI: "10.1000/xyz"})
			assert.False(t, got.Resolved())
			assert.Equal(t, types.SourceNone, got.Source)
			assert.Equal(t, int32(1), hits.Load())
		})
	}
}

func TestResolveUnpaywallTimeout(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	cfg := testConfig(ts.URL, "me@example.com")
	cfg.ResolveTimeout = 50 * time.Millisecond
	r := NewResolver(ts.Client(), cfg, zerolog.Nop())

	start := time.Now()
	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W6", DOI: "10.1000/xyz"})
	assert.False(t, got.Resolved())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestResolveUnreachable(t *testing.T) {
	r := NewResolver(http.DefaultClient, testConfig("http://127.0.0.1:1", "me@example.com"), zerolog.Nop())
	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W7", DOI: "10.1000/xyz"})
	assert.Equal(t, types.SourceNone, got.Source)
}

type stubStrategy struct {
	name  types.ResolutionSource
	url   string
	calls int
}

func (s *stubStrategy) Name() types.ResolutionSource { return s.name }

func (s *stubStrategy) Resolve(context.Context, types.WorkRecord) (string, bool) {
	s.calls++
	return s.url, s.url != ""
}

func TestResolverTriesStrategiesInOrder(t *testing.T) {
	first := &stubStrategy{name: "first"}
	second := &stubStrategy{name: "second", url: "https://b.example/x.pdf"}
	third := &stubStrategy{name: "third", url: "https://c.example/x.pdf"}

	r := New(zerolog.Nop(), first, second, third)
	got := r.Resolve(context.Background(), types.WorkRecord{ID: "W8"})

	require.True(t, got.Resolved())
	assert.Equal(t, types.ResolutionSource("second"), got.Source)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Zero(t, third.calls)
}

func TestResolverStopsOnCancelledContext(t *testing.T) {
	s := &stubStrategy{name: "only", url: "https://a.example/x.pdf"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got := New(zerolog.Nop(), s).Resolve(ctx, types.WorkRecord{ID: "W9"})
	assert.False(t, got.Resolved())
	assert.Zero(t, s.calls)
}

func TestNewResolverWithEmail(t *testing.T) {
	r := NewResolver(http.DefaultClient, testConfig("https://api.unpaywall.org/v2", "me@example.com"), zerolog.Nop())
	assert.Equal(t, []types.ResolutionSource{types.SourceDirect, types.SourceUnpaywall}, r.Strategies())
}
