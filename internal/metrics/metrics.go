package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "defiscope"

// Metrics holds the collectors shared by the indexer and analytics service.
type Metrics struct {
	BlocksIndexed     prometheus.Counter
	BlocksInvalidated prometheus.Counter
	IndexedHeight     prometheus.Gauge
	DecodeFailures    prometheus.Counter
	CustomTxs         *prometheus.CounterVec
	CacheRequests     *prometheus.CounterVec
}

// New builds the collectors and registers them with reg. A nil reg leaves them
// unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BlocksIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "blocks_indexed_total",
			Help:      "Blocks indexed.",
		}),
		BlocksInvalidated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "blocks_invalidated_total",
			Help:      "Blocks invalidated after a reorganization.",
		}),
		IndexedHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "indexer",
			Name:      "indexed_height",
			Help:      "Height of the highest indexed block.",
		}),
		DecodeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dftx",
			Name:      "decode_failures_total",
			Help:      "Custom transaction outputs skipped because they failed to decode.",
		}),
		CustomTxs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dftx",
			Name:      "decoded_total",
			Help:      "Custom transactions decoded, by type.",
		}, []string{"type"}),
		CacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Cache lookups by result (hit, miss, error).",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.BlocksIndexed,
			m.BlocksInvalidated,
			m.IndexedHeight,
			m.DecodeFailures,
			m.CustomTxs,
			m.CacheRequests,
		)
	}
	return m
}
