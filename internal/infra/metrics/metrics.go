// Package metrics provides Prometheus metrics for Gatekeep — counters and
// gauges for model loads, fetches, integrity retries, and classification.
// Registered into the default registry; the host application exposes them.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Model Loads ────────────────────────────────────────────────────────────

// LoadsTotal tracks completed load attempts by outcome
// (loaded, override, waiting, failed).
var LoadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "loads_total",
	Help:      "Total model load attempts by outcome.",
}, []string{"outcome"})

// PipelineStatus tracks the orchestrator's current phase as its enum value.
var PipelineStatus = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "gatekeep",
	Name:      "pipeline_status",
	Help:      "Current pipeline phase (0=uninitialised … 6=waiting).",
})

// ModelVersion tracks the version of the active model (0 = local override).
var ModelVersion = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "gatekeep",
	Name:      "model_version",
	Help:      "Version of the currently active model.",
})

// ─── Fetching ───────────────────────────────────────────────────────────────

// ManifestFetches tracks manifest fetches by source and outcome.
var ManifestFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "manifest_fetches_total",
	Help:      "Total manifest fetch attempts by source (release, direct) and outcome.",
}, []string{"source", "outcome"})

// ModelFetches tracks model binary fetches by outcome.
var ModelFetches = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "model_fetches_total",
	Help:      "Total model binary fetch attempts by outcome.",
}, []string{"outcome"})

// DigestRetries tracks re-fetches forced by digest mismatches.
var DigestRetries = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "digest_retries_total",
	Help:      "Total model re-fetches caused by digest mismatches.",
})

// ─── Cache ──────────────────────────────────────────────────────────────────

// CacheWriteFailures tracks failed cache writes (non-fatal by design).
var CacheWriteFailures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "cache_write_failures_total",
	Help:      "Total failed cache artifact writes.",
}, []string{"kind"})

// CacheHits tracks cache reads that satisfied a load step.
var CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "cache_hits_total",
	Help:      "Total cache reads that avoided a network fetch.",
}, []string{"kind"})

// ─── Classification ─────────────────────────────────────────────────────────

// ClassificationsTotal tracks classifications by resulting category.
var ClassificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "classifications_total",
	Help:      "Total classified messages by application category.",
}, []string{"category"})

// UnknownLabels tracks classifier labels missing from the category map.
var UnknownLabels = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "unknown_labels_total",
	Help:      "Total classifier output labels not in the category map.",
})

// ReportsSent tracks flagged-message reports by outcome.
var ReportsSent = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "gatekeep",
	Name:      "reports_sent_total",
	Help:      "Total flagged-message reports by outcome.",
}, []string{"outcome"})
