// Package metrics exposes Prometheus metrics for routing decisions and
// configuration store reads.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricNamespace = "edge_router"

// Metrics holds the router's collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	decisions          *prometheus.CounterVec
	redirects          prometheus.Counter
	fetchDuration      *prometheus.HistogramVec
	fetchFailures      *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

// New creates and registers the router metrics
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "decisions_total",
			Help:      "Routing decisions by routing domain, color and precedence tier",
		}, []string{"domain", "color", "source"}),
		redirects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "redirects_total",
			Help:      "Requests for the bare root answered with a redirect",
		}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricNamespace,
			Name:      "config_fetch_duration_seconds",
			Help:      "Duration of routing config reads from the key-value store",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		}, []string{"domain"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "config_fetch_failures_total",
			Help:      "Routing config reads that fell back to the default config",
		}, []string{"domain", "reason"}),
		breakerTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricNamespace,
			Name:      "store_breaker_transitions_total",
			Help:      "State changes of the circuit breaker guarding store reads",
		}, []string{"from", "to"}),
	}

	m.registry.MustRegister(
		m.decisions,
		m.redirects,
		m.fetchDuration,
		m.fetchFailures,
		m.breakerTransitions,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordDecision counts a routing decision
func (m *Metrics) RecordDecision(domain, color, source string) {
	m.decisions.WithLabelValues(domain, color, source).Inc()
}

// RecordRedirect counts a root redirect
func (m *Metrics) RecordRedirect() {
	m.redirects.Inc()
}

// RecordFetch observes the duration of a store read
func (m *Metrics) RecordFetch(domain string, d time.Duration) {
	m.fetchDuration.WithLabelValues(domain).Observe(d.Seconds())
}

// RecordFetchFailure counts a read that degraded to the default config.
// reason is an error code such as STORE_TIMEOUT or PAYLOAD_MALFORMED.
func (m *Metrics) RecordFetchFailure(domain, reason string) {
	m.fetchFailures.WithLabelValues(domain, reason).Inc()
}

// RecordBreakerTransition counts a breaker state change
func (m *Metrics) RecordBreakerTransition(from, to string) {
	m.breakerTransitions.WithLabelValues(from, to).Inc()
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
