package config

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ConfigMetrics counts configuration fallbacks for one component. Every metric
// name is prefixed with "<component>_config_".
type ConfigMetrics struct {
	LoadTimestamp         prometheus.Gauge
	ValidationErrorsTotal *prometheus.CounterVec
	FallbacksTotal        *prometheus.CounterVec
	FallbackActive        prometheus.Gauge

	component string
}

// NewConfigMetricsWith registers the metrics for component with reg.
// Registering the same component twice on one registry panics.
func NewConfigMetricsWith(reg prometheus.Registerer, component string) *ConfigMetrics {
	f := promauto.With(reg)
	prefix := component + "_config_"
	byField := []string{"field"}

	return &ConfigMetrics{
		LoadTimestamp: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "load_timestamp",
			Help: "Unix time the " + component + " settings were last read from the environment",
		}),
		ValidationErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "validation_errors_total",
			Help: "Environment values rejected by validation, by field",
		}, byField),
		FallbacksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "fallbacks_total",
			Help: "Defaults substituted for rejected values, by field",
		}, byField),
		FallbackActive: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "fallback_active",
			Help: "1 while at least one " + component + " setting runs on a fallback",
		}),
		component: component,
	}
}

func (m *ConfigMetrics) Component() string { return m.component }

func (m *ConfigMetrics) RecordLoadTimestamp() { m.LoadTimestamp.SetToCurrentTime() }

func (m *ConfigMetrics) RecordValidationError(field string) {
	m.ValidationErrorsTotal.WithLabelValues(field).Inc()
}

func (m *ConfigMetrics) RecordFallback(field string) {
	m.FallbacksTotal.WithLabelValues(field).Inc()
}

func (m *ConfigMetrics) SetFallbackActive(active bool) {
	v := 0.0
	if active {
		v = 1
	}
	m.FallbackActive.Set(v)
}
