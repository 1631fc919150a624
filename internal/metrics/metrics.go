// Package metrics declares the prometheus collectors shared across the
// capture, archive, and stage engines, following the teacher's
// internal/staging/stage/metrics.go: one histogram per timed step and
// one counter per failure mode, each labeled by namespace and/or table.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// LatencyBuckets covers capture/archive/stage step durations, which
// range from sub-second small-table merges to multi-minute full table
// extracts.
var LatencyBuckets = []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// NamespaceLabels labels a metric by datapool namespace alone.
var NamespaceLabels = []string{"namespace"}

// TableLabels labels a metric by namespace and table, for per-table
// extraction/load timings.
var TableLabels = []string{"namespace", "table"}

var (
	// CaptureWindowDurations times one namespace's full per-job capture
	// window: connect, select, compress, upload (spec.md §4.2).
	CaptureWindowDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "udpcdc_capture_window_duration_seconds",
		Help:    "Duration of a full capture job window.",
		Buckets: LatencyBuckets,
	}, NamespaceLabels)

	// CaptureTableRows counts rows extracted per table per job.
	CaptureTableRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udpcdc_capture_table_rows_total",
		Help: "Rows extracted per table.",
	}, TableLabels)

	// CaptureErrors counts capture failures by namespace.
	CaptureErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udpcdc_capture_errors_total",
		Help: "Capture job failures.",
	}, NamespaceLabels)

	// ArchiveRelayDurations times one queue-message relay (copy + row
	// insert + delete), spec.md §4.3.
	ArchiveRelayDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "udpcdc_archive_relay_duration_seconds",
		Help:    "Duration of one archive relay operation.",
		Buckets: LatencyBuckets,
	}, NamespaceLabels)

	// ArchiveRelayErrors counts relay failures, left for redelivery.
	ArchiveRelayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udpcdc_archive_relay_errors_total",
		Help: "Archive relay failures that left the message for redelivery.",
	}, NamespaceLabels)

	// StageLoadDurations times one bundle's apply step (every table in
	// it), spec.md §4.4; the loader records it with an empty table label.
	StageLoadDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "udpcdc_stage_load_duration_seconds",
		Help:    "Duration of one bundle's stage load.",
		Buckets: LatencyBuckets,
	}, TableLabels)

	// StageLoadErrors counts failed bundle applies; the loader records it
	// with an empty table label.
	StageLoadErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "udpcdc_stage_load_errors_total",
		Help: "Stage load failures.",
	}, TableLabels)

	// StageQueueDepth reports the outstanding bundle count awaiting
	// dispatch per namespace.
	StageQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "udpcdc_stage_queue_depth",
		Help: "Bundles currently queued for stage dispatch.",
	}, NamespaceLabels)
)
