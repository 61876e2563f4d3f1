package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics exports metrics through a Prometheus registry. Collectors are
// created on first use of a name.
type PrometheusMetrics struct {
	namespace string
	registry  *prometheus.Registry
	factory   promauto.Factory

	mu         sync.Mutex
	gauges     map[string]prometheus.Gauge
	counters   map[string]prometheus.Counter
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics creates a backend with its own registry.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	registry := prometheus.NewRegistry()
	return &PrometheusMetrics{
		namespace:  namespace,
		registry:   registry,
		factory:    promauto.With(registry),
		gauges:     make(map[string]prometheus.Gauge),
		counters:   make(map[string]prometheus.Counter),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the underlying registry.
func (p *PrometheusMetrics) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusMetrics) Initialize(ctx context.Context) error {
	err := p.registry.Register(collectors.NewGoCollector())
	var already prometheus.AlreadyRegisteredError
	if err != nil && !errors.As(err, &already) {
		return err
	}
	return nil
}

func (p *PrometheusMetrics) Flush(ctx context.Context) error    { return nil }
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error { return nil }

func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	g, ok := p.gauges[name]
	if !ok {
		g = p.factory.NewGauge(prometheus.GaugeOpts{Namespace: p.namespace, Name: name, Help: name})
		p.gauges[name] = g
	}
	p.mu.Unlock()

	g.Set(value)
	return nil
}

func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.mu.Lock()
	c, ok := p.counters[name]
	if !ok {
		c = p.factory.NewCounter(prometheus.CounterOpts{Namespace: p.namespace, Name: name, Help: name})
		p.counters[name] = c
	}
	p.mu.Unlock()

	c.Add(float64(value))
	return nil
}

func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.mu.Lock()
	h, ok := p.histograms[name]
	if !ok {
		h = p.factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      name,
			Buckets:   prometheus.DefBuckets,
		})
		p.histograms[name] = h
	}
	p.mu.Unlock()

	h.Observe(value)
	return nil
}
