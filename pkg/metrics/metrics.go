// Package metrics exposes Prometheus instrumentation for the cascade engine.
// Registered via promauto and served at /metrics in text exposition format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CascadesTotal counts cascade invocations by final result.
var CascadesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solcascade",
		Name:      "cascades_total",
		Help:      "Cascade executions by result",
	},
	[]string{"result"}, // success, failure
)

// HopsTotal counts individual hops by terminal state.
var HopsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solcascade",
		Name:      "hops_total",
		Help:      "Cascade hops by terminal state",
	},
	[]string{"state"}, // confirmed, failed, unconfirmed
)

// RiskRejections counts hops rejected before any ledger interaction.
var RiskRejections = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "solcascade",
		Name:      "risk_rejections_total",
		Help:      "Pre-flight hop rejections by gate",
	},
	[]string{"gate"}, // balance, risk, price_impact
)

// DailyVolumeLamports tracks the risk manager's rolling daily counter.
var DailyVolumeLamports = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "solcascade",
		Name:      "daily_volume_lamports",
		Help:      "Accumulated daily notional in lamports",
	},
)

// ConfirmationSeconds observes the wall time spent waiting for on-chain
// confirmation. Buckets cover the 2s poll spacing up to the 60s budget.
var ConfirmationSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "solcascade",
		Name:      "confirmation_seconds",
		Help:      "Time from submission to confirmation",
		Buckets:   []float64{2, 4, 8, 15, 30, 45, 60},
	},
)

// QuoteSeconds observes quote gateway latency.
var QuoteSeconds = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "solcascade",
		Name:      "quote_seconds",
		Help:      "Quote gateway round-trip time",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	},
)
