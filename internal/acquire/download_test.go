// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// fakePDF returns size bytes that start with the PDF signature.
func fakePDF(size int) []byte {
	head := []byte("%PDF-1.4\n")
	if size < len(head) {
		size = len(head)
	}
	return append(head, bytes.Repeat([]byte("x"), size-len(head))...)
}

func pdfHandler(body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write(body)
	}
}

func testDownloader(ts *httptest.Server) *Downloader {
	return &Downloader{
		Client:   ts.Client(),
		HTTP:     types.HTTPConfig{UserAgent: "oa-harvest-test/0.1"},
		Timeout:  5 * time.Second,
		MinBytes: types.DefaultMinPDFBytes,
	}
}

// assertDirClean fails if dir holds anything other than the named files.
func assertDirClean(t *testing.T, dir string, want ...string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, want, names)
}

func TestDownloadSuccess(t *testing.T) {
	body := fakePDF(4096)
	var gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		pdfHandler(body)(w, r)
	}))
	defer ts.Close()

	dir := filepath.Join(t.TempDir(), "pdfs")
	dest := filepath.Join(dir, "W1.pdf")
	n, status, err := testDownloader(ts).Download(context.Background(), ts.URL+"/paper.pdf", dest)
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), n)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "oa-harvest-test/0.1", gotUA)
	assert.Equal(t, "application/pdf", gotAccept)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, body, data)
	assertDirClean(t, dir, "W1.pdf")
}

func TestDownloadRejected(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		verify     bool
		wantErr    error
		wantStatus int
	}{
		{
			name: "not found",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "gone", http.StatusNotFound)
			},
			wantErr:    ErrHTTPStatus,
			wantStatus: http.StatusNotFound,
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			wantErr:    ErrHTTPStatus,
			wantStatus: http.StatusForbidden,
		},
		{
			name: "html content type",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.Write(fakePDF(4096))
			},
			wantErr:    ErrNotPDF,
			wantStatus: http.StatusOK,
		},
		{
			name: "body without signature",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/octet-stream")
				w.Write(bytes.Repeat([]byte("<html>"), 1000))
			},
			wantErr:    ErrNotPDF,
			wantStatus: http.StatusOK,
		},
		{
			name: "empty body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/pdf")
			},
			wantErr:    ErrNotPDF,
			wantStatus: http.StatusOK,
		},
		{
			name:       "too small",
			handler:    pdfHandler(fakePDF(100)),
			wantErr:    ErrTooSmall,
			wantStatus: http.StatusOK,
		},
		{
			name:       "fails structural check",
			handler:    pdfHandler(fakePDF(4096)),
			verify:     true,
			wantErr:    ErrNotPDF,
			wantStatus: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			dir := t.TempDir()
			d := testDownloader(ts)
			d.Verify = tt.verify
			_, status, err := d.Download(context.Background(), ts.URL, filepath.Join(dir, "W1.pdf"))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.False(t, isIOError(err))
			assert.Equal(t, tt.wantStatus, status)
			assertDirClean(t, dir)
		})
	}
}

func TestDownloadTruncatedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(8192))
		w.Write(fakePDF(2048))
	}))
	defer ts.Close()

	dir := t.TempDir()
	_, _, err := testDownloader(ts).Download(context.Background(), ts.URL, filepath.Join(dir, "W1.pdf"))
	require.Error(t, err)
	assert.False(t, isIOError(err), "network failures are not io errors")
	assertDirClean(t, dir)
}

func TestDownloadUnreachable(t *testing.T) {
	d := &Downloader{Client: http.DefaultClient, Timeout: time.Second}
	dir := t.TempDir()
	_, status, err := d.Download(context.Background(), "http://127.0.0.1:1/x.pdf", filepath.Join(dir, "W1.pdf"))
	require.Error(t, err)
	assert.Zero(t, status)
	assert.False(t, isIOError(err))
	assertDirClean(t, dir)
}

func TestDownloadOutDirIsFile(t *testing.T) {
	ts := httptest.NewServer(pdfHandler(fakePDF(2048)))
	defer ts.Close()

	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	_, _, err := testDownloader(ts).Download(context.Background(), ts.URL, filepath.Join(blocker, "W1.pdf"))
	require.Error(t, err)
	assert.True(t, isIOError(err))
}

func TestDownloadMinBytesDisabled(t *testing.T) {
	ts := httptest.NewServer(pdfHandler(fakePDF(10)))
	defer ts.Close()

	d := testDownloader(ts)
	d.MinBytes = 0
	dest := filepath.Join(t.TempDir(), "W1.pdf")
	n, _, err := d.Download(context.Background(), ts.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)
	assert.FileExists(t, dest)
}

func TestIsHTML(t *testing.T) {
	assert.True(t, isHTML("text/html"))
	assert.True(t, isHTML("text/html; charset=utf-8"))
	assert.True(t, isHTML("TEXT/HTML"))
	assert.False(t, isHTML("application/pdf"))
	assert.False(t, isHTML(""))
}
