// Package observability holds the Prometheus collectors of the sync engine.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts the interesting events of the sync engine
type Metrics struct {
	CacheHits        prometheus.Counter
	CacheMisses      prometheus.Counter
	NodesUpserted    prometheus.Counter
	EdgesUpserted    prometheus.Counter
	HandleRepairs    prometheus.Counter
	EdgesDropped     prometheus.Counter
	RefreshAttempts  prometheus.Counter
	ReorderRollbacks prometheus.Counter
	StaleDiscards    prometheus.Counter
}

// NewMetrics registers the engine's collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CacheHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_cache_hits_total",
			Help: "Working-set loads served from the persistent cache.",
		}),
		CacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_cache_misses_total",
			Help: "Working-set loads that fell through to the remote store.",
		}),
		NodesUpserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_nodes_upserted_total",
			Help: "Node rows written through to the remote store by the differ.",
		}),
		EdgesUpserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_edges_upserted_total",
			Help: "Edge rows written through to the remote store by the differ.",
		}),
		HandleRepairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_handle_repairs_total",
			Help: "Edges whose handles were corrected during fetch.",
		}),
		EdgesDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_edges_dropped_total",
			Help: "Edges dropped because their handles stayed invalid after repair.",
		}),
		RefreshAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_refresh_attempts_total",
			Help: "Staged refresh attempts after bulk generation.",
		}),
		ReorderRollbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_reorder_rollbacks_total",
			Help: "List reorders rolled back after a persistence failure.",
		}),
		StaleDiscards: factory.NewCounter(prometheus.CounterOpts{
			Name: "netsync_stale_discards_total",
			Help: "Async results discarded because selection changed mid-flight.",
		}),
	}
}

// NewNopMetrics returns collectors backed by a private registry, for tests
// and embedders that do not scrape.
func NewNopMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
