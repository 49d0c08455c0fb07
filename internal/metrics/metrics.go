// Package metrics provides Prometheus metrics for placement operations and
// portal REST traffic. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics groups the collectors registered on one registry.
type Metrics struct {
	registry *prometheus.Registry

	binds           *prometheus.CounterVec
	unbinds         *prometheus.CounterVec
	restRequests    *prometheus.CounterVec
	restDuration    *prometheus.HistogramVec
	installRequests *prometheus.CounterVec
}

// New registers the placekit collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		binds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placekit_placement_binds_total",
				Help: "Total placement.bind batch items by outcome",
			},
			[]string{"placement", "outcome"},
		),
		unbinds: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placekit_placement_unbinds_total",
				Help: "Total placement.unbind calls by outcome",
			},
			[]string{"placement", "outcome"},
		),
		restRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placekit_rest_requests_total",
				Help: "Total portal REST requests by method and outcome",
			},
			[]string{"method", "outcome"},
		),
		restDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "placekit_rest_request_duration_seconds",
				Help:    "Portal REST round-trip duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		installRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "placekit_install_requests_total",
				Help: "Install entry-point hits served by placekit serve",
			},
			[]string{"outcome"},
		),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordBind counts one reconciled bind item.
func (m *Metrics) RecordBind(placement string, ok bool) {
	if m == nil {
		return
	}
	m.binds.WithLabelValues(placement, outcome(ok)).Inc()
}

// RecordUnbind counts one unbind call.
func (m *Metrics) RecordUnbind(placement string, ok bool) {
	if m == nil {
		return
	}
	m.unbinds.WithLabelValues(placement, outcome(ok)).Inc()
}

// RecordRequest counts one REST round trip and its duration.
func (m *Metrics) RecordRequest(method string, ok bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.restRequests.WithLabelValues(method, outcome(ok)).Inc()
	m.restDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordInstallRequest counts one hit on the install entry point.
func (m *Metrics) RecordInstallRequest(ok bool) {
	if m == nil {
		return
	}
	m.installRequests.WithLabelValues(outcome(ok)).Inc()
}

func outcome(ok bool) string {
	if ok {
		return OutcomeSuccess
	}
	return OutcomeFailure
}
