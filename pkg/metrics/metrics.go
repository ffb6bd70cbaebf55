// Package metrics exposes the relay's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Decisions counts terminal pipeline outcomes per source.
	Decisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_decisions_total",
		Help: "Webhook pipeline decisions by source and decision.",
	}, []string{"source", "decision"})

	// ForwardLatency observes outbound send durations.
	ForwardLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_forward_duration_seconds",
		Help:    "Duration of outbound sends to the opposite platform.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})

	// DedupeSweepDeleted counts rows removed by the housekeeping sweep.
	DedupeSweepDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_dedupe_sweep_deleted_total",
		Help: "Expired dedupe entries physically deleted by the sweeper.",
	})
)
