// Package metrics exposes Prometheus instrumentation for knowledge store
// operations.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

//nolint:gochecknoglobals // Prometheus collectors are registered once at init
var (
	// EpisodeUpserts counts episode upserts by knowledge group.
	EpisodeUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardkit_store_upserts_total",
		Help: "Number of episode upserts against the knowledge store.",
	}, []string{"group"})

	// StoreSearches counts search queries by knowledge group.
	StoreSearches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardkit_store_searches_total",
		Help: "Number of search queries against the knowledge store.",
	}, []string{"group"})

	// StoreFailures counts failed store operations by operation name.
	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "guardkit_store_failures_total",
		Help: "Number of knowledge store operations that returned an error.",
	}, []string{"operation"})
)

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
