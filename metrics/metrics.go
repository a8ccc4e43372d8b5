// Package metrics registers the node's Prometheus instrumentation:
// pool size, admission outcomes, block height and sync lag, per
// SPEC_FULL.md §B.
//
// Grounded on cmd/kcn/main.go's direct use of
// github.com/prometheus/client_golang/prometheus and
// .../prometheus/promhttp to expose klaytn's metrics.DefaultRegistry over
// HTTP; this node has no go-metrics-style internal registry to bridge, so
// the client_golang collectors are registered and read directly.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector the node updates, constructed once and
// threaded into each component that reports.
type Registry struct {
	reg *prometheus.Registry

	PoolSize        prometheus.Gauge
	PoolGas         prometheus.Gauge
	AdmissionTotal  *prometheus.CounterVec
	BlockHeight     prometheus.Gauge
	BlockTxCount    prometheus.Histogram
	SyncLagBlocks   prometheus.Gauge
	SyncPeersActive prometheus.Gauge
}

// New constructs a fresh registry; enabled=false returns a Registry whose
// collectors are still safe to call (no-op backing) but are never
// registered or served, for when spec.md §6's `metrics` option is off.
func New(enabled bool) *Registry {
	r := &Registry{
		PoolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelnode", Subsystem: "txpool", Name: "size",
			Help: "Number of transactions currently held by the pool.",
		}),
		PoolGas: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelnode", Subsystem: "txpool", Name: "consumable_gas",
			Help: "Sum of gas_limit across pooled transactions.",
		}),
		AdmissionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fuelnode", Subsystem: "txpool", Name: "admission_total",
			Help: "Count of admission attempts by outcome.",
		}, []string{"outcome"}),
		BlockHeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelnode", Subsystem: "chain", Name: "height",
			Help: "Latest committed block height.",
		}),
		BlockTxCount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fuelnode", Subsystem: "chain", Name: "block_tx_count",
			Help:    "Number of transactions per produced/imported block.",
			Buckets: prometheus.LinearBuckets(0, 8, 16),
		}),
		SyncLagBlocks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelnode", Subsystem: "sync", Name: "lag_blocks",
			Help: "Best known peer height minus local committed height.",
		}),
		SyncPeersActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fuelnode", Subsystem: "sync", Name: "peers_active",
			Help: "Peers currently assigned an in-flight sync request.",
		}),
	}

	if !enabled {
		return r
	}

	r.reg = prometheus.NewRegistry()
	r.reg.MustRegister(r.PoolSize, r.PoolGas, r.AdmissionTotal, r.BlockHeight, r.BlockTxCount, r.SyncLagBlocks, r.SyncPeersActive)
	return r
}

// Handler returns the HTTP handler serving this registry's collectors, or
// nil if metrics are disabled.
func (r *Registry) Handler() http.Handler {
	if r.reg == nil {
		return nil
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}
