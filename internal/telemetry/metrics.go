package telemetry

import (
	"context"
	"net/http"

	"github.com/aretw0/fable/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts dispatches, seams and collaborator calls.
type Metrics struct {
	registry     *prometheus.Registry
	dispatches   *prometheus.CounterVec
	seams        *prometheus.CounterVec
	collaborator *prometheus.HistogramVec
	failures     *prometheus.CounterVec
}

// NewMetrics registers the engine collectors on a private registry, along
// with the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_dispatches_total",
				Help: "Nodes handed to an action handler, by tag.",
			},
			[]string{"tag", "skipped"},
		),
		seams: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_seams_total",
				Help: "Advance calls by the seam they stopped at.",
			},
			[]string{"seam"},
		),
		collaborator: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fable_collaborator_duration_seconds",
				Help:    "Latency of external service calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fable_collaborator_failures_total",
				Help: "External service calls that returned an error.",
			},
			[]string{"method"},
		),
	}
	m.registry.MustRegister(
		m.dispatches, m.seams, m.collaborator, m.failures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnDispatch: func(_ context.Context, ev *domain.DispatchEvent) {
			skipped := "false"
			if ev.Skipped {
				skipped = "true"
			}
			m.dispatches.WithLabelValues(ev.Tag, skipped).Inc()
		},
		OnSeam: func(_ context.Context, ev *domain.SeamEvent) {
			m.seams.WithLabelValues(string(ev.Seam)).Inc()
		},
		OnCollaborator: func(_ context.Context, ev *domain.CollaboratorEvent) {
			m.collaborator.WithLabelValues(ev.Method).Observe(ev.Duration.Seconds())
			if ev.Err != nil {
				m.failures.WithLabelValues(ev.Method).Inc()
			}
		},
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
