// Package metrics provides Prometheus metrics for the Fractured Truths server.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Label values shared by callers.
const (
	ResultOK       = "ok"
	ResultError    = "error"
	ResultRejected = "rejected"
	ResultDropped  = "dropped"

	ComponentOverlay   = "overlay"
	ComponentNarrative = "narrative"

	KindOverlay   = "overlay"
	KindNarrative = "narrative"
)

// Manager owns the server's collectors. A nil *Manager is valid and records nothing.
type Manager struct {
	namespace string
	buckets   []float64
	registry  *prometheus.Registry

	actions             *prometheus.CounterVec
	generationFailures  *prometheus.CounterVec
	fallbacks           *prometheus.CounterVec
	staleWrites         *prometheus.CounterVec
	broadcastDeliveries *prometheus.CounterVec
	liveConnections     prometheus.Gauge
	pipelineDuration    prometheus.Histogram
	generationDuration  *prometheus.HistogramVec
}

// Option applies a configuration option to the Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithHistogramBuckets sets custom histogram buckets for latency metrics.
func WithHistogramBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.buckets = buckets
		}
	}
}

// WithRegistry registers collectors on registry instead of a fresh one.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}

// NewManager creates a Manager on a private registry, so default Go
// runtime collectors are not exported unless asked for.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "fractured_truths",
		buckets:   prometheus.DefBuckets,
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	auto := promauto.With(m.registry)
	m.actions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "actions_total",
		Help:      "Actions handled by the pipeline, by result",
	}, []string{"result"})
	m.generationFailures = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "generation_failures_total",
		Help:      "Failed generation calls, by component",
	}, []string{"component"})
	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "fallbacks_total",
		Help:      "Fallback documents or narratives served, by component",
	}, []string{"component"})
	m.staleWrites = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "stale_writes_total",
		Help:      "View writes rejected because a newer version was already applied",
	}, []string{"kind"})
	m.broadcastDeliveries = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "broadcast_deliveries_total",
		Help:      "Broadcast frames delivered to or dropped for listeners",
	}, []string{"result"})
	m.liveConnections = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "live_connections",
		Help:      "Currently connected realtime listeners",
	})
	m.pipelineDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "pipeline_duration_seconds",
		Help:      "Time to fully handle one action",
		Buckets:   m.buckets,
	})
	m.generationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Name:      "generation_duration_seconds",
		Help:      "Latency of generation calls, by component",
		Buckets:   m.buckets,
	}, []string{"component"})

	return m
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Manager) ObserveAction(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(result).Inc()
	if result == ResultOK {
		m.pipelineDuration.Observe(d.Seconds())
	}
}

func (m *Manager) ObserveGeneration(component string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(component).Observe(d.Seconds())
	if err != nil {
		m.generationFailures.WithLabelValues(component).Inc()
	}
}

func (m *Manager) IncFallback(component string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(component).Inc()
}

func (m *Manager) IncStaleWrite(kind string) {
	if m == nil {
		return
	}
	m.staleWrites.WithLabelValues(kind).Inc()
}

func (m *Manager) IncDelivery(result string) {
	if m == nil {
		return
	}
	m.broadcastDeliveries.WithLabelValues(result).Inc()
}

func (m *Manager) AddConnections(delta int) {
	if m == nil {
		return
	}
	m.liveConnections.Add(float64(delta))
}
