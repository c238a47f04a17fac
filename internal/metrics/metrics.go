// Package metrics defines the Prometheus collectors of the degree service and
// exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the service.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	OperationsTotal     *prometheus.CounterVec
	SyncTotal           *prometheus.CounterVec
	IndexDeletesTotal   *prometheus.CounterVec
	SearchQueriesTotal  *prometheus.CounterVec
	SearchLatency       prometheus.Histogram
	RepairJobsTotal     *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates all collectors and registers them on reg. Passing a
// *prometheus.Registry also makes it the source of Handler.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, route, and status.",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "route"},
		),
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "degree_operations_total",
				Help: "Degree service operations by operation and result.",
			},
			[]string{"operation", "result"},
		),
		SyncTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "degree_sync_total",
				Help: "Record store to search index syncs by outcome (ok, skipped, failed).",
			},
			[]string{"outcome"},
		),
		IndexDeletesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "degree_index_deletes_total",
				Help: "Search index deletes after a record store delete, by outcome.",
			},
			[]string{"outcome"},
		),
		SearchQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "search_queries_total",
				Help: "Search queries by result type (hit, zero_result, error).",
			},
			[]string{"result_type"},
		),
		SearchLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "search_latency_seconds",
				Help:    "Search index query latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
		),
		RepairJobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "degree_sync_repair_total",
				Help: "Sync repair jobs by operation and outcome (enqueued, repaired, retried, dropped, enqueue_failed).",
			},
			[]string{"op", "outcome"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.OperationsTotal,
		m.SyncTotal,
		m.IndexDeletesTotal,
		m.SearchQueriesTotal,
		m.SearchLatency,
		m.RepairJobsTotal,
	)

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	} else {
		m.gatherer = prometheus.DefaultGatherer
	}
	return m
}

// NewNop returns collectors registered on a private registry, for tools and tests.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler returns the Prometheus scrape HTTP handler for the registry the
// collectors were registered on.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
