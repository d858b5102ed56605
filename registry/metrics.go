package registry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsConfig configures registry metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "furry_rx").
	Namespace string

	// Subsystem is the metrics subsystem (default: "registry").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registerer receives the collectors.
	// Default: prometheus.DefaultRegisterer
	Registerer prometheus.Registerer
}

// MetricsOption configures registry metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegisterer sets the Prometheus registerer.
func WithRegisterer(registerer prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registerer = registerer
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace:  "furry_rx",
		Subsystem:  "registry",
		Registerer: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors updated by a Registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	nodes         prometheus.Gauge
	listeners     prometheus.Gauge
	recomputes    prometheus.Counter
	notifications prometheus.Counter
	refreshes     prometheus.Counter
	removals      prometheus.Counter
}

// NewMetrics creates and registers registry collectors.
//
// Metrics collected:
//   - furry_rx_registry_nodes: live nodes
//   - furry_rx_registry_listeners: live listeners across all nodes
//   - furry_rx_registry_recomputes_total: read function evaluations
//   - furry_rx_registry_notifications_total: listener callbacks fired
//   - furry_rx_registry_refreshes_total: Refresh calls
//   - furry_rx_registry_removals_total: nodes removed after going unused
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registerer)

	return &Metrics{
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "nodes",
			Help:        "Number of live registry nodes",
			ConstLabels: config.ConstLabels,
		}),
		listeners: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "listeners",
			Help:        "Number of live listeners across all nodes",
			ConstLabels: config.ConstLabels,
		}),
		recomputes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "recomputes_total",
			Help:        "Total number of read function evaluations",
			ConstLabels: config.ConstLabels,
		}),
		notifications: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of listener callbacks fired",
			ConstLabels: config.ConstLabels,
		}),
		refreshes: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "refreshes_total",
			Help:        "Total number of refresh requests",
			ConstLabels: config.ConstLabels,
		}),
		removals: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "removals_total",
			Help:        "Total number of nodes removed after going unused",
			ConstLabels: config.ConstLabels,
		}),
	}
}

func (m *Metrics) nodeAdded() {
	if m == nil {
		return
	}
	m.nodes.Inc()
}

func (m *Metrics) nodeRemoved(unused bool) {
	if m == nil {
		return
	}
	m.nodes.Dec()
	if unused {
		m.removals.Inc()
	}
}

func (m *Metrics) listenerAdded() {
	if m == nil {
		return
	}
	m.listeners.Inc()
}

func (m *Metrics) listenerRemoved() {
	if m == nil {
		return
	}
	m.listeners.Dec()
}

func (m *Metrics) recomputed() {
	if m == nil {
		return
	}
	m.recomputes.Inc()
}

func (m *Metrics) notified(n int) {
	if m == nil || n == 0 {
		return
	}
	m.notifications.Add(float64(n))
}

func (m *Metrics) refreshed() {
	if m == nil {
		return
	}
	m.refreshes.Inc()
}

func (m *Metrics) reset(nodes, listeners int) {
	if m == nil {
		return
	}
	m.nodes.Sub(float64(nodes))
	m.listeners.Sub(float64(listeners))
}
