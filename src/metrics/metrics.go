package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels for OperationsTotal.
const (
	OutcomeOK           = "ok"
	OutcomeInvalid      = "invalid"
	OutcomeNotFound     = "not_found"
	OutcomeStoreError   = "store_error"
	OutcomeSummaryStale = "summary_stale"
)

// OperationsTotal counts inventory operations by result.
var OperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "painthouse",
	Name:      "operations_total",
	Help:      "Inventory operations by operation and outcome.",
}, []string{"operation", "outcome"})

// StoreRequestDuration tracks latency of calls to the tabular store.
var StoreRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "painthouse",
	Subsystem: "store",
	Name:      "request_duration_seconds",
	Help:      "Latency of tabular store calls.",
	Buckets:   []float64{0.001, 0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5},
}, []string{"table", "op"})

// StoreErrors counts failed tabular store calls.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "painthouse",
	Subsystem: "store",
	Name:      "errors_total",
	Help:      "Failed tabular store calls.",
}, []string{"table", "op"})

// SummaryDriftItems is the number of items whose stored summary disagreed
// with the last rebuild.
var SummaryDriftItems = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "painthouse",
	Name:      "summary_drift_items",
	Help:      "Items whose stored summary differs from a full rebuild, as of the last reconcile.",
})

// RebuildsTotal counts full summary rebuilds written to the store.
var RebuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "painthouse",
	Name:      "rebuilds_total",
	Help:      "Full summary rebuilds written to the store.",
})
