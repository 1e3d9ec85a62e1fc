// Package metrics provides Prometheus instrumentation for the variantz
// server.
//
// All metrics are registered in a custom [prometheus.Registry] (not the
// global default) so that only variantz metrics appear on the /metrics
// endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors used by the variantz server.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	EvaluationsTotal     *prometheus.CounterVec
	EvaluationErrors     *prometheus.CounterVec
	ConfigLoadsTotal     prometheus.Counter
	ConfigReloadFailures prometheus.Counter
	RegistryFlags        prometheus.Gauge
	RegistryVariants     prometheus.Gauge
}

// New creates and registers all variantz metrics in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "variantz_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "variantz_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		EvaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "variantz_evaluations_total",
			Help: "Total number of flag resolutions, by flag and outcome (base or variant).",
		}, []string{"flag", "outcome"}),

		EvaluationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "variantz_evaluation_errors_total",
			Help: "Total number of failed flag resolutions, by reason.",
		}, []string{"reason"}),

		ConfigLoadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "variantz_config_loads_total",
			Help: "Total number of successful configuration loads and reloads.",
		}),

		ConfigReloadFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "variantz_config_reload_failures_total",
			Help: "Total number of rejected configuration reloads.",
		}),

		RegistryFlags: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "variantz_registry_flags",
			Help: "Number of flags currently registered.",
		}),

		RegistryVariants: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "variantz_registry_variants",
			Help: "Number of variants currently registered.",
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.EvaluationsTotal,
		m.EvaluationErrors,
		m.ConfigLoadsTotal,
		m.ConfigReloadFailures,
		m.RegistryFlags,
		m.RegistryVariants,
	)

	return m
}

// Handler returns the HTTP handler serving this registry's metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// ObserveRegistry records the current registry sizes.
func (m *Metrics) ObserveRegistry(flags, variants int) {
	m.RegistryFlags.Set(float64(flags))
	m.RegistryVariants.Set(float64(variants))
}
