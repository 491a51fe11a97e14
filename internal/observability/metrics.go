// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Row-level ingestion metrics
	RowsRead          prometheus.Counter
	ClicksStored      prometheus.Counter
	ConversionsStored prometheus.Counter
	DuplicatesSkipped prometheus.Counter
	RowErrors         prometheus.Counter

	// Run-level metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	FilesShortCircuited prometheus.Counter

	// API sync metrics
	SyncRecordsProcessed prometheus.Counter
	SyncSourceFailures   prometheus.Counter

	// Analytics mirror metrics
	AnalyticsMirrorErrors prometheus.Counter
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "affiliate_ingest"
	}

	return &Metrics{
		RowsRead: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "rows_read_total",
			Help:      "Total number of source rows read",
		}),
		ClicksStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "clicks_stored_total",
			Help:      "Total number of clicks stored",
		}),
		ConversionsStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "conversions_stored_total",
			Help:      "Total number of conversions stored",
		}),
		DuplicatesSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "duplicates_skipped_total",
			Help:      "Total number of conversions skipped as duplicates",
		}),
		RowErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "row_errors_total",
			Help:      "Total number of rows rejected or failed",
		}),
		RunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "runs_total",
			Help:      "Total number of ingestion runs by entry point and status",
		}, []string{"entry", "status"}),
		RunDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "run_duration_seconds",
			Help:      "Ingestion run duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"entry"}),
		FilesShortCircuited: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingestion",
			Name:      "files_short_circuited_total",
			Help:      "Total number of file runs skipped via fingerprint match",
		}),
		SyncRecordsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "records_processed_total",
			Help:      "Total number of API-sourced records processed",
		}),
		SyncSourceFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "source_failures_total",
			Help:      "Total number of affiliate-network fetch failures",
		}),
		AnalyticsMirrorErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "analytics",
			Name:      "mirror_errors_total",
			Help:      "Total number of failed analytics mirror writes",
		}),
	}
}

// DefaultMetrics is the global metrics instance.
var DefaultMetrics = NewMetrics("affiliate_ingest")

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRowRead increments the rows-read counter.
func RecordRowRead() {
	DefaultMetrics.RowsRead.Inc()
}

// RecordClickStored increments the stored-clicks counter.
func RecordClickStored() {
	DefaultMetrics.ClicksStored.Inc()
}

// RecordConversionStored increments the stored-conversions counter.
func RecordConversionStored() {
	DefaultMetrics.ConversionsStored.Inc()
}

// RecordDuplicateSkipped increments the skipped-duplicates counter.
func RecordDuplicateSkipped() {
	DefaultMetrics.DuplicatesSkipped.Inc()
}

// RecordRowError increments the row-errors counter.
func RecordRowError() {
	DefaultMetrics.RowErrors.Inc()
}

// RecordRun records one completed ingestion run.
func RecordRun(entry, status string, durationSeconds float64) {
	DefaultMetrics.RunsTotal.WithLabelValues(entry, status).Inc()
	DefaultMetrics.RunDuration.WithLabelValues(entry).Observe(durationSeconds)
}

// RecordShortCircuit increments the short-circuited-files counter.
func RecordShortCircuit() {
	DefaultMetrics.FilesShortCircuited.Inc()
}

// RecordSyncRecord increments the sync-records counter.
func RecordSyncRecord() {
	DefaultMetrics.SyncRecordsProcessed.Inc()
}

// RecordSyncSourceFailure increments the sync source failure counter.
func RecordSyncSourceFailure() {
	DefaultMetrics.SyncSourceFailures.Inc()
}

// RecordAnalyticsMirrorError increments the analytics mirror error counter.
func RecordAnalyticsMirrorError() {
	DefaultMetrics.AnalyticsMirrorErrors.Inc()
}
