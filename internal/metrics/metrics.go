// Package metrics exports scope activity to Prometheus through di.Hooks.
package metrics

import (
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
	"github.com/sghaida/scopedi/di"
)

// Config configures a Collector.
type Config struct {
	// Namespace is the metrics namespace (default: "readi").
	Namespace string

	// Buckets are the histogram buckets for construction duration.
	// Default: prometheus.DefBuckets
	Buckets []float64
}

// Option configures a Collector.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) { c.Namespace = namespace }
}

// WithBuckets sets the construction duration buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) { c.Buckets = buckets }
}

// Collector implements di.Hooks with Prometheus metrics.
type Collector struct {
	scopesCreated prometheus.Counter
	scopesActive  prometheus.Gauge
	constructions *prometheus.CounterVec
	constructTime *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	subscribers   *prometheus.GaugeVec
}

var _ di.Hooks = (*Collector)(nil)

// NewCollector registers the scope metrics with reg.
func NewCollector(reg prometheus.Registerer, opts ...Option) *Collector {
	cfg := Config{Namespace: "readi", Buckets: prometheus.DefBuckets}
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(reg)

	return &Collector{
		scopesCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "scopes_created_total",
			Help:      "Total number of scopes created",
		}),
		scopesActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "scopes_active",
			Help:      "Number of scopes not yet disposed",
		}),
		constructions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "constructions_total",
			Help:      "Total number of instances constructed, by token and scope",
		}, []string{"token", "scope"}),
		constructTime: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "construction_duration_seconds",
			Help:      "Constructor duration in seconds",
			Buckets:   cfg.Buckets,
		}, []string{"token"}),
		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "notifications_total",
			Help:      "Total number of state change notifications, by token",
		}, []string{"token"}),
		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Name:      "notification_subscribers",
			Help:      "Subscribers reached by the last notification, by token",
		}, []string{"token"}),
	}
}

// ScopeCreated implements di.Hooks.
func (c *Collector) ScopeCreated(*di.Scope) {
	c.scopesCreated.Inc()
	c.scopesActive.Inc()
}

// Constructed implements di.Hooks.
func (c *Collector) Constructed(s *di.Scope, tok di.Token, took time.Duration) {
	c.constructions.WithLabelValues(tok.String(), s.Label()).Inc()
	c.constructTime.WithLabelValues(tok.String()).Observe(took.Seconds())
}

// Notified implements di.Hooks.
func (c *Collector) Notified(_ *di.Scope, tok di.Token, subscribers int) {
	c.notifications.WithLabelValues(tok.String()).Inc()
	c.subscribers.WithLabelValues(tok.String()).Set(float64(subscribers))
}

// ScopeDisposed implements di.Hooks.
func (c *Collector) ScopeDisposed(*di.Scope) {
	c.scopesActive.Dec()
}

// WriteText writes the families gathered from g whose name starts with
// prefix in the Prometheus text format.
func WriteText(w io.Writer, g prometheus.Gatherer, prefix string) error {
	families, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
