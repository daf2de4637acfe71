// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the oa-harvest pipeline:
// the works returned by the fetch stage, their resolved download locations,
// per-work download outcomes, and the run-level summary.
package types

import "time"

// WorkRecord is a single scholarly work returned by the OpenAlex fetch stage.
// Records are created once per run and never modified afterwards.
type WorkRecord struct {
	// ID is the OpenAlex identifier (e.g. "https://openalex.org/W2741809807").
	ID string `json:"id" yaml:"id"`

	// Title is the work title as returned by OpenAlex.
	Title string `json:"title" yaml:"title"`

	// DOI is the bare DOI (e.g. "10.1145/1234567"), empty when unknown.
	DOI string `json:"doi,omitempty" yaml:"doi,omitempty"`

	// CitedByCount is the OpenAlex citation count.
	CitedByCount int `json:"cited_by_count" yaml:"cited_by_count"`

	// PDFURL is the direct open-access PDF URL, empty when OpenAlex has none.
	PDFURL string `json:"pdf_url,omitempty" yaml:"pdf_url,omitempty"`

	// PublicationYear is the year of publication, zero when unknown.
	PublicationYear int `json:"publication_year,omitempty" yaml:"publication_year,omitempty"`

	// PMID is the PubMed identifier for works looked up from a CSV input.
	PMID string `json:"pmid,omitempty" yaml:"pmid,omitempty"`
}

// ResolutionSource names the step that produced a download URL.
type ResolutionSource string

const (
	SourceDirect    ResolutionSource = "direct"
	SourceUnpaywall ResolutionSource = "unpaywall"
	SourceNone      ResolutionSource = "none"
)

// ResolvedDownload is the outcome of resolving a WorkRecord to a PDF URL.
type ResolvedDownload struct {
	WorkID string           `json:"work_id" yaml:"work_id"`
	URL    string           `json:"url,omitempty" yaml:"url,omitempty"`
	Source ResolutionSource `json:"source" yaml:"source"`
}

// Resolved reports whether a download URL was found.
func (r ResolvedDownload) Resolved() bool {
	return r.URL != ""
}

// Outcome is the terminal state of one work in a run.
type Outcome string

const (
	OutcomeSuccess          Outcome = "success"
	OutcomeHTTPError        Outcome = "http_error"
	OutcomeResolutionFailed Outcome = "resolution_failed"
	OutcomeIOError          Outcome = "io_error"
	// OutcomeCancelled marks works that were never attempted because the
	// run context was cancelled first.
	OutcomeCancelled Outcome = "cancelled"
)

// DownloadResult records what happened to a single work.
type DownloadResult struct {
	WorkID  string           `json:"work_id" yaml:"work_id"`
	Outcome Outcome          `json:"outcome" yaml:"outcome"`
	Source  ResolutionSource `json:"source" yaml:"source"`
	URL     string           `json:"url,omitempty" yaml:"url,omitempty"`

	// Path is the destination file, set only on success.
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	Bytes int64  `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// StatusCode is the HTTP status for http_error outcomes that received
	// a response; zero for transport errors.
	StatusCode int    `json:"status_code,omitempty" yaml:"status_code,omitempty"`
	Detail     string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Succeeded reports whether the work was downloaded.
func (r DownloadResult) Succeeded() bool {
	return r.Outcome == OutcomeSuccess
}

// RunSummary aggregates the results of one harvest run.
type RunSummary struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Topic      string    `json:"topic" yaml:"topic"`
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at" yaml:"finished_at"`

	Total     int `json:"total" yaml:"total"`
	Succeeded int `json:"succeeded" yaml:"succeeded"`
	Failed    int `json:"failed" yaml:"failed"`

	// Duplicates counts works dropped by the fetch stage because their ID
	// had already been seen on an earlier page.
	Duplicates int `json:"duplicates" yaml:"duplicates"`

	// Results are ordered by the input order of the works.
	Results []DownloadResult `json:"results" yaml:"results"`
}

// NewRunSummary builds a summary from an ordered result list.
func NewRunSummary(results []DownloadResult) RunSummary {
	s := RunSummary{Total: len(results), Results: results}
	for _, r := range results {
		if r.Succeeded() {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	return s
}

// ByOutcome returns the number of results per outcome.
func (s RunSummary) ByOutcome() map[Outcome]int {
	counts := make(map[Outcome]int)
	for _, r := range s.Results {
		counts[r.Outcome]++
	}
	return counts
}

// HasFailures reports whether any work failed.
func (s RunSummary) HasFailures() bool {
	return s.Failed > 0
}
