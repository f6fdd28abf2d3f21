// Package observability exposes Prometheus metrics for the form
// subsystem. A private registry keeps the scrape surface limited to what
// this service registers.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for operation counters.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	Operations    *prometheus.CounterVec
	Conflicts     *prometheus.CounterVec
	RemoteSync    *prometheus.CounterVec
	StorageResets prometheus.Counter
	HTTPDuration  *prometheus.HistogramVec
}

// NewMetrics creates and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flra_operations_total",
			Help: "Form operations by operation name and outcome.",
		}, []string{"operation", "outcome"}),
		Conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flra_conflicts_total",
			Help: "Version conflicts by resolution outcome.",
		}, []string{"outcome"}),
		RemoteSync: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "flra_remote_sync_total",
			Help: "Remote synchronization attempts by operation and outcome.",
		}, []string{"operation", "outcome"}),
		StorageResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "flra_storage_resets_total",
			Help: "Times corrupted local storage was reset to empty.",
		}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flra_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status class.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Operations,
		m.Conflicts,
		m.RemoteSync,
		m.StorageResets,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordOperation counts one form operation outcome.
func (m *Metrics) RecordOperation(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
}

// RecordSync counts one remote sync attempt.
func (m *Metrics) RecordSync(operation string, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	m.RemoteSync.WithLabelValues(operation, outcome).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method, status string, elapsed time.Duration) {
	m.HTTPDuration.WithLabelValues(route, method, status).Observe(elapsed.Seconds())
}
