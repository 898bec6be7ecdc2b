// Package metrics exposes Prometheus collectors for the decision pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EventsProcessed counts game events folded into match state, by type.
	EventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esportsbot",
		Name:      "events_processed_total",
		Help:      "Game events applied to match state.",
	}, []string{"type"})

	// EventsDropped counts events rejected before state application.
	EventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esportsbot",
		Name:      "events_dropped_total",
		Help:      "Game events dropped as stale, unknown, or retired.",
	}, []string{"reason"})

	// QuotesReceived counts market snapshots stored.
	QuotesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "esportsbot",
		Name:      "quotes_received_total",
		Help:      "Market snapshots ingested.",
	})

	// DecisionsEmitted counts decisions by status.
	DecisionsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esportsbot",
		Name:      "decisions_total",
		Help:      "Emitted decisions by status.",
	}, []string{"status"})

	// Rejections counts risk-gate rejections by reason.
	Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "esportsbot",
		Name:      "rejections_total",
		Help:      "Risk gate rejections by reason.",
	}, []string{"reason"})

	// ActiveMatches tracks matches with a live model.
	ActiveMatches = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "esportsbot",
		Name:      "active_matches",
		Help:      "Matches currently tracked with an active model.",
	})

	// TotalExposure tracks reserved stake across all matches.
	TotalExposure = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "esportsbot",
		Name:      "total_exposure_dollars",
		Help:      "Stake reserved against open positions.",
	})

	// EdgeObserved samples the absolute edge of evaluated opportunities.
	EdgeObserved = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "esportsbot",
		Name:      "edge_observed",
		Help:      "Absolute model-vs-market edge per evaluation.",
		Buckets:   []float64{0.005, 0.01, 0.015, 0.02, 0.03, 0.05, 0.08, 0.12, 0.20},
	})

	// CycleDuration samples decision cycle latency.
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "esportsbot",
		Name:      "decision_cycle_seconds",
		Help:      "Latency of one decision cycle.",
		Buckets:   prometheus.DefBuckets,
	})
)
