// Copyright 2025 Certen Labs
//
// Prometheus collectors for the curve tree service. The teacher imports
// github.com/prometheus/client_golang but never registers a single
// collector with it; this package is where that dependency actually
// gets exercised, registered against the default registry and served by
// pkg/server's /metrics handler via promhttp.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles every collector the service updates. Construct once
// with New and share the handle across the ingest loop, the tree, and
// the wallet layer.
type Metrics struct {
	OutputsInserted   prometheus.Counter
	TreeDepth         prometheus.Gauge
	InsertLatency     prometheus.Histogram
	StorageOpLatency  *prometheus.HistogramVec
	RebuildsTotal     prometheus.Counter
	IntegrityFailures prometheus.Counter
	WalletBalance     *prometheus.GaugeVec
	ProofsSubmitted   prometheus.Counter
}

// New registers and returns the service's collectors against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with other
// packages' registrations against the global default registry.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		OutputsInserted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "curvetree",
			Name:      "outputs_inserted_total",
			Help:      "Total number of Output Tuples inserted into the tree.",
		}),
		TreeDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "curvetree",
			Name:      "tree_depth",
			Help:      "Current depth of the curve tree.",
		}),
		InsertLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "curvetree",
			Name:      "insert_latency_seconds",
			Help:      "Latency of a single AddOutput call, including cascade.",
			Buckets:   prometheus.DefBuckets,
		}),
		StorageOpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "curvetree",
			Name:      "storage_op_latency_seconds",
			Help:      "Latency of storage operations by kind (get_node, store_node, get_output, ...).",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
		RebuildsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "curvetree",
			Name:      "rebuilds_total",
			Help:      "Total number of successful Rebuild calls triggered by a failed integrity check.",
		}),
		IntegrityFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "curvetree",
			Name:      "integrity_failures_total",
			Help:      "Total number of VerifyIntegrity calls that detected corruption.",
		}),
		WalletBalance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "curvetree",
			Name:      "wallet_balance",
			Help:      "Wallet balance by kind (total, spendable, pending).",
		}, []string{"kind"}),
		ProofsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "curvetree",
			Name:      "proofs_submitted_total",
			Help:      "Total number of membership witnesses submitted to a ProofSink.",
		}),
	}
}

// ObserveStorageOp records seconds against op's histogram bucket.
func (m *Metrics) ObserveStorageOp(op string, seconds float64) {
	m.StorageOpLatency.WithLabelValues(op).Observe(seconds)
}

// SetWalletBalances updates the three wallet balance gauges at once.
func (m *Metrics) SetWalletBalances(total, spendable, pending uint64) {
	m.WalletBalance.WithLabelValues("total").Set(float64(total))
	m.WalletBalance.WithLabelValues("spendable").Set(float64(spendable))
	m.WalletBalance.WithLabelValues("pending").Set(float64(pending))
}
