// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package acquire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/pdiddy/oa-harvest/internal/httputil"
	"github.com/pdiddy/oa-harvest/internal/pdfcheck"
	"github.com/pdiddy/oa-harvest/pkg/types"
)

// Sentinel errors for rejected downloads. All of them map to the
// http_error outcome.
var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrNotPDF     = errors.New("response is not a PDF")
	ErrTooSmall   = errors.New("download too small")
)

// ioError marks a local file-system failure, as opposed to a failure of
// the remote server or the network.
type ioError struct {
	op  string
	err error
}

func (e *ioError) Error() string { return e.op + ": " + e.err.Error() }
func (e *ioError) Unwrap() error { return e.err }

func isIOError(err error) bool {
	var ie *ioError
	return errors.As(err, &ie)
}

// Downloader fetches one URL to a destination path.
type Downloader struct {
	Client  *http.Client
	HTTP    types.HTTPConfig
	Timeout time.Duration

	// MinBytes rejects smaller bodies; zero disables the check.
	MinBytes int64

	// Verify parses the file with pdfcheck before it is renamed into place.
	Verify bool
}

// NewDownloader builds a downloader from a harvest config.
func NewDownloader(client *http.Client, cfg types.HarvestConfig) *Downloader {
	return &Downloader{
		Client:   client,
		HTTP:     cfg.HTTPConfig,
		Timeout:  cfg.DownloadTimeout,
		MinBytes: cfg.MinPDFBytes,
		Verify:   cfg.VerifyPDF,
	}
}

// Download fetches rawURL into destPath. The body is streamed to a
// temporary file in the destination directory and renamed on success, so
// destPath either holds a complete PDF or does not exist. It returns the
// bytes written and the HTTP status, zero when no response arrived.
func (d *Downloader) Download(ctx context.Context, rawURL, destPath string) (int64, int, error) {
	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, 0, &ioError{op: "creating output directory", err: err}
	}

	req, err := httputil.NewGetRequest(ctx, rawURL, d.HTTP, "application/pdf")
	if err != nil {
		return 0, 0, err
	}
	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()
	status := resp.StatusCode

	if err := httputil.CheckStatus(resp); err != nil {
		return 0, status, fmt.Errorf("%w: %v", ErrHTTPStatus, err)
	}
	if isHTML(resp.Header.Get("Content-Type")) {
		return 0, status, fmt.Errorf("%w: got HTML instead of PDF", ErrNotPDF)
	}

	body := bufio.NewReader(resp.Body)
	head, err := body.Peek(len(pdfcheck.Magic))
	if err != nil && !errors.Is(err, io.EOF) {
		return 0, status, fmt.Errorf("reading response: %w", err)
	}
	if !pdfcheck.HasMagic(head) {
		return 0, status, fmt.Errorf("%w: body does not start with %s", ErrNotPDF, pdfcheck.Magic)
	}

	tmpFile, err := os.CreateTemp(dir, ".download-*.tmp")
	if err != nil {
		return 0, status, &ioError{op: "creating temp file", err: err}
	}
	tmpPath := tmpFile.Name()
	keep := false
	defer func() {
		if !keep {
			os.Remove(tmpPath)
		}
	}()

	dst := &errWriter{w: tmpFile}
	n, copyErr := io.Copy(dst, body)
	closeErr := tmpFile.Close()
	switch {
	case dst.err != nil:
		return n, status, &ioError{op: "writing download", err: dst.err}
	case copyErr != nil:
		return n, status, fmt.Errorf("reading response: %w", copyErr)
	case closeErr != nil:
		return n, status, &ioError{op: "closing temp file", err: closeErr}
	}

	if n < d.MinBytes {
		return n, status, fmt.Errorf("%w: %d bytes, need at least %d", ErrTooSmall, n, d.MinBytes)
	}
	if d.Verify {
		if _, err := pdfcheck.Verify(tmpPath); err != nil {
			return n, status, fmt.Errorf("%w: %v", ErrNotPDF, err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return n, status, &ioError{op: "renaming temp file", err: err}
	}
	keep = true
	return n, status, nil
}

func isHTML(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "text/html"
}

// errWriter records the first write error so copy failures can be split
// between the network side and the disk side.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	n, err := e.w.Write(p)
	if err != nil && e.err == nil {
		e.err = err
	}
	return n, err
}
