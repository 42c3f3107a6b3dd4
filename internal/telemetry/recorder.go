// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package telemetry records retry and pipeline events as log entries and
// Prometheus metrics. The loader is a batch job with no scrape endpoint, so
// metrics are written to a node-exporter textfile at the end of a run.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pdiddy/fda-label-loader/pkg/types"
)

// Recorder implements httputil.Observer and pipeline.Observer.
type Recorder struct {
	log      *zap.Logger
	registry *prometheus.Registry

	AttemptsFailed   prometheus.Counter
	RetryWaits       prometheus.Counter
	RetryWaitSeconds prometheus.Counter
	RetriesExhausted prometheus.Counter
	PagesFetched     prometheus.Counter
	RecordsPulled    prometheus.Counter
	RecordsSkipped   prometheus.Counter
	RowsLoaded       prometheus.Counter
	SourceTotal      prometheus.Gauge
}

// NewRecorder returns a Recorder with its own registry. A nil log discards
// log entries.
func NewRecorder(log *zap.Logger) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Recorder{
		log:      log,
		registry: prometheus.NewRegistry(),
		AttemptsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_http_attempts_failed_total",
			Help: "Label API attempts that failed with a transport error or non-200 status",
		}),
		RetryWaits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_http_retry_waits_total",
			Help: "Backoff waits taken before retrying a label API request",
		}),
		RetryWaitSeconds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_http_retry_wait_seconds_total",
			Help: "Total time spent in retry backoff",
		}),
		RetriesExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_http_retries_exhausted_total",
			Help: "Label API requests that failed every attempt",
		}),
		PagesFetched: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_pages_fetched_total",
			Help: "Label search pages fetched successfully",
		}),
		RecordsPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_records_pulled_total",
			Help: "Label records extracted into rows",
		}),
		RecordsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_records_skipped_total",
			Help: "Malformed label records discarded during extraction",
		}),
		RowsLoaded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fda_rows_loaded_total",
			Help: "Rows committed to the destination table",
		}),
		SourceTotal: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fda_source_total_records",
			Help: "Result total reported by the label API on the first page",
		}),
	}
	r.registry.MustRegister(
		r.AttemptsFailed, r.RetryWaits, r.RetryWaitSeconds, r.RetriesExhausted,
		r.PagesFetched, r.RecordsPulled, r.RecordsSkipped, r.RowsLoaded, r.SourceTotal,
	)
	return r
}

// Registry returns the registry holding the run's metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes the current metric values to path in the node
// exporter textfile format, creating parent directories.
func (r *Recorder) WriteTextfile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return prometheus.WriteToTextfile(path, r.registry)
}

// --- retry gate events ---

func (r *Recorder) AttemptFailed(attempt int, err error) {
	r.AttemptsFailed.Inc()
	r.log.Warn("API call failed", zap.Int("attempt", attempt), zap.Error(err))
}

func (r *Recorder) RetryWait(attempt int, delay time.Duration) {
	r.RetryWaits.Inc()
	r.RetryWaitSeconds.Add(delay.Seconds())
	r.log.Info("retrying", zap.Int("after_attempt", attempt), zap.Duration("delay", delay))
}

func (r *Recorder) Exhausted(attempts int, err error) {
	r.RetriesExhausted.Inc()
	r.log.Error("API call failed after all attempts", zap.Int("attempts", attempts), zap.Error(err))
}

// --- pipeline events ---

func (r *Recorder) TotalObserved(total int) {
	r.SourceTotal.Set(float64(total))
	r.log.Info("total records", zap.Int("total", total))
}

func (r *Recorder) PageFetched(req types.PageRequest, kept, skipped int) {
	r.PagesFetched.Inc()
	r.RecordsPulled.Add(float64(kept))
	r.log.Info("pulled page",
		zap.Int("from", req.Skip+1),
		zap.Int("to", req.Skip+kept+skipped),
		zap.Int("skipped", skipped),
	)
}

func (r *Recorder) RecordSkipped(req types.PageRequest, reason, raw string) {
	r.RecordsSkipped.Inc()
	r.log.Warn("skipping bad record",
		zap.Int("skip", req.Skip),
		zap.String("reason", reason),
		zap.String("openfda", raw),
	)
}

func (r *Recorder) Loaded(table string, rows int) {
	r.RowsLoaded.Add(float64(rows))
	r.log.Info("successfully loaded records", zap.String("table", table), zap.Int("rows", rows))
}
