// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics holds the Prometheus collectors for a harvest run. The CLI
// runs once and exits, so metrics are exported by writing a node-exporter
// textfile rather than serving a scrape endpoint.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/pdiddy/oa-harvest/pkg/types"
)

// Namespace prefixes every metric name.
const Namespace = "oa_harvest"

// Metrics contains the collectors for one process. Each instance owns its
// registry so tests and repeated runs never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	// WorksFetched counts works returned by the fetch stage.
	WorksFetched prometheus.Counter

	// DuplicatesDropped counts works dropped because their ID repeated
	// across pages.
	DuplicatesDropped prometheus.Counter

	// FetchFailures counts runs aborted by a fetch error.
	FetchFailures prometheus.Counter

	// Downloads counts finished works, labeled by outcome and resolution source.
	Downloads *prometheus.CounterVec

	// DownloadBytes counts bytes written to disk by successful downloads.
	DownloadBytes prometheus.Counter

	// DownloadSize observes the size of each downloaded PDF.
	DownloadSize prometheus.Histogram

	// RunDuration observes end-to-end run duration in seconds.
	RunDuration prometheus.Histogram

	// LastRunSuccess is the Unix time of the last completed run.
	LastRunSuccess prometheus.Gauge
}

// New creates a Metrics instance registered on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		WorksFetched: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "works_fetched_total",
			Help:      "Total number of works returned by OpenAlex",
		}),
		DuplicatesDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "duplicate_works_total",
			Help:      "Total number of works dropped as duplicates across pages",
		}),
		FetchFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "fetch_failures_total",
			Help:      "Total number of runs aborted by a fetch failure",
		}),
		Downloads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "downloads_total",
			Help:      "Finished works by outcome and resolution source",
		}, []string{"outcome", "source"}),
		DownloadBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "download_bytes_total",
			Help:      "Total bytes written by successful downloads",
		}),
		DownloadSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "download_size_bytes",
			Help:      "Size of downloaded PDFs in bytes",
			Buckets:   prometheus.ExponentialBuckets(64<<10, 2, 10),
		}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of harvest runs in seconds",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		LastRunSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time of the last completed run",
		}),
	}
}

// RecordFetch records the output of the fetch stage.
func (m *Metrics) RecordFetch(works, duplicates int) {
	m.WorksFetched.Add(float64(works))
	m.DuplicatesDropped.Add(float64(duplicates))
}

// RecordFetchFailure records a run aborted during fetch.
func (m *Metrics) RecordFetchFailure() {
	m.FetchFailures.Inc()
}

// RecordResult records one finished work.
func (m *Metrics) RecordResult(r types.DownloadResult) {
	source := r.Source
	if source == "" {
		source = types.SourceNone
	}
	m.Downloads.WithLabelValues(string(r.Outcome), string(source)).Inc()
	if r.Succeeded() {
		m.DownloadBytes.Add(float64(r.Bytes))
		m.DownloadSize.Observe(float64(r.Bytes))
	}
}

// RecordRun records a completed run.
func (m *Metrics) RecordRun(s types.RunSummary) {
	m.RunDuration.Observe(s.FinishedAt.Sub(s.StartedAt).Seconds())
	m.LastRunSuccess.Set(float64(s.FinishedAt.Unix()))
}

// WriteTextfile writes every metric in Prometheus text format to path,
// creating the parent directory when needed.
func (m *Metrics) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}
