// Package metrics exposes Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansStarted counts scans admitted past rate-limit and quota checks.
	ScansStarted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visibility_scans_started_total",
		Help: "Number of scans started, by tier.",
	}, []string{"tier"})

	// ScansCompleted counts scans that reached a terminal state.
	ScansCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visibility_scans_finished_total",
		Help: "Number of scans finished, by tier and status.",
	}, []string{"tier", "status"})

	// ScansRejected counts admission failures.
	ScansRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visibility_scans_rejected_total",
		Help: "Number of scan requests rejected at admission, by reason.",
	}, []string{"reason"})

	// LLMCalls counts provider completions by outcome.
	LLMCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "visibility_llm_calls_total",
		Help: "Number of LLM completion calls, by provider and outcome.",
	}, []string{"provider", "outcome"})

	// ScanDuration observes end-to-end scan duration.
	ScanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "visibility_scan_duration_seconds",
		Help:    "End-to-end scan duration in seconds, by tier.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"tier"})
)
