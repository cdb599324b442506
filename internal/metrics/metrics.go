// Package metrics registers the engine's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	// Transaction metrics
	TransactionTotal    *prometheus.CounterVec
	TransactionDuration *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotDuration prometheus.Histogram
	SnapshotFailures prometheus.Counter

	// Instance metrics
	InstancesOnline prometheus.Gauge
}

// New creates and registers all collectors against reg. Tests pass a fresh
// registry so repeated construction never double-registers.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TransactionTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gameng_transactions_total",
				Help: "Transactions processed, by type and outcome",
			},
			[]string{"type", "outcome"}, // outcome: accepted, rejected, denied, error, replayed
		),
		TransactionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gameng_transaction_duration_seconds",
				Help:    "Dispatch latency per transaction type",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"type"},
		),
		SnapshotDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gameng_snapshot_duration_seconds",
				Help:    "Time spent serializing and writing one instance snapshot",
				Buckets: prometheus.DefBuckets,
			},
		),
		SnapshotFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "gameng_snapshot_failures_total",
				Help: "Snapshot writes skipped or failed",
			},
		),
		InstancesOnline: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "gameng_instances_online",
				Help: "Game instances currently loaded",
			},
		),
	}
}

// ObserveTransaction records one dispatch. Nil-safe.
func (m *Metrics) ObserveTransaction(txType, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.TransactionTotal.WithLabelValues(txType, outcome).Inc()
	m.TransactionDuration.WithLabelValues(txType).Observe(seconds)
}

// ObserveSnapshot records one snapshot write. Nil-safe.
func (m *Metrics) ObserveSnapshot(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.SnapshotDuration.Observe(seconds)
	if failed {
		m.SnapshotFailures.Inc()
	}
}

// SetInstancesOnline updates the live instance gauge. Nil-safe.
func (m *Metrics) SetInstancesOnline(n int) {
	if m == nil {
		return
	}
	m.InstancesOnline.Set(float64(n))
}
