// Package metrics records client-side counters for RPC calls, subscriptions and built
// transactions. Backends implement Metrics; Collection fans out to several of them.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Metric names. Backends may prefix them with a namespace.
const (
	MetricRPCRequests               = "rpc_requests_total"
	MetricRPCRequestErrors          = "rpc_request_errors_total"
	MetricRPCRequestDuration        = "rpc_request_duration_seconds"
	MetricRPCRequestsInFlight       = "rpc_requests_in_flight"
	MetricSubscriptionsActive       = "subscriptions_active"
	MetricSubscriptionNotifications = "subscription_notifications_total"
	MetricSubscriptionDropped       = "subscription_dropped_total"
	MetricTransactionsBuilt         = "transactions_built_total"
	MetricTransactionsConfirmed     = "transactions_confirmed_total"
	MetricTransactionsFailed        = "transactions_failed_total"
	MetricWebsocketReconnects       = "ws_reconnects_total"
)

// Metrics is implemented by every metrics backend. Callers on the request and
// notification paths ignore the returned errors; a failing backend never fails a call.
type Metrics interface {
	Initialize(ctx context.Context) error
	Flush(ctx context.Context) error
	Shutdown(ctx context.Context) error

	// UpdateGauge sets name to value, e.g. the number of in-flight requests.
	UpdateGauge(ctx context.Context, name string, value float64) error

	// IncrementCounter adds value to a monotonic counter.
	IncrementCounter(ctx context.Context, name string, value uint64) error

	// RecordHistogram observes one sample, e.g. a request duration in seconds.
	RecordHistogram(ctx context.Context, name string, value float64) error
}

// OrNoop returns m, or a NoopMetrics when m is nil.
func OrNoop(m Metrics) Metrics {
	if m == nil {
		return NewNoopMetrics()
	}
	return m
}

// Collection is the Metrics handed to clients, registries and connections. Every call
// reaches every backend; errors are joined.
type Collection struct {
	mu       sync.RWMutex
	backends []Metrics
}

func NewCollection(backends ...Metrics) *Collection {
	return &Collection{backends: backends}
}

// Add installs a backend. Backends added after Initialize must be initialized by the caller.
func (c *Collection) Add(m Metrics) {
	if m == nil {
		return
	}
	c.mu.Lock()
	c.backends = append(c.backends, m)
	c.mu.Unlock()
}

// Len returns the number of backends.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.backends)
}

func (c *Collection) each(fn func(Metrics) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs []error
	for _, m := range c.backends {
		if err := fn(m); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *Collection) Initialize(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Initialize(ctx) })
}

func (c *Collection) Flush(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Flush(ctx) })
}

func (c *Collection) Shutdown(ctx context.Context) error {
	return c.each(func(m Metrics) error { return m.Shutdown(ctx) })
}

func (c *Collection) UpdateGauge(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.UpdateGauge(ctx, name, value) })
}

func (c *Collection) IncrementCounter(ctx context.Context, name string, value uint64) error {
	return c.each(func(m Metrics) error { return m.IncrementCounter(ctx, name, value) })
}

func (c *Collection) RecordHistogram(ctx context.Context, name string, value float64) error {
	return c.each(func(m Metrics) error { return m.RecordHistogram(ctx, name, value) })
}

// NoopMetrics is the default backend of every component.
type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (*NoopMetrics) Initialize(context.Context) error                       { return nil }
func (*NoopMetrics) Flush(context.Context) error                            { return nil }
func (*NoopMetrics) Shutdown(context.Context) error                         { return nil }
func (*NoopMetrics) UpdateGauge(context.Context, string, float64) error     { return nil }
func (*NoopMetrics) IncrementCounter(context.Context, string, uint64) error { return nil }
func (*NoopMetrics) RecordHistogram(context.Context, string, float64) error { return nil }

// LogMetrics keeps totals in memory and writes each update at debug level. The CLI
// installs it with --log-level debug; tests read the totals back.
type LogMetrics struct {
	logger *slog.Logger

	mu       sync.RWMutex
	gauges   map[string]float64
	counters map[string]uint64
	samples  map[string]int
}

// NewLogMetrics logs to logger, or to slog.Default() when it is nil.
func NewLogMetrics(logger *slog.Logger) *LogMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMetrics{
		logger:   logger,
		gauges:   make(map[string]float64),
		counters: make(map[string]uint64),
		samples:  make(map[string]int),
	}
}

func (l *LogMetrics) Initialize(context.Context) error {
	l.logger.Debug("log metrics enabled")
	return nil
}

// Flush writes every total in one record.
func (l *LogMetrics) Flush(context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	l.logger.Info("metrics", "counters", l.counters, "gauges", l.gauges, "samples", l.samples)
	return nil
}

// Shutdown flushes the totals.
func (l *LogMetrics) Shutdown(ctx context.Context) error {
	return l.Flush(ctx)
}

func (l *LogMetrics) UpdateGauge(_ context.Context, name string, value float64) error {
	l.mu.Lock()
	l.gauges[name] = value
	l.mu.Unlock()

	l.logger.Debug("gauge", "name", name, "value", value)
	return nil
}

func (l *LogMetrics) IncrementCounter(_ context.Context, name string, value uint64) error {
	l.mu.Lock()
	l.counters[name] += value
	total := l.counters[name]
	l.mu.Unlock()

	l.logger.Debug("counter", "name", name, "delta", value, "total", total)
	return nil
}

// RecordHistogram counts samples per name; values are only logged.
func (l *LogMetrics) RecordHistogram(_ context.Context, name string, value float64) error {
	l.mu.Lock()
	l.samples[name]++
	l.mu.Unlock()

	l.logger.Debug("sample", "name", name, "value", value)
	return nil
}

// Counter returns the running total of a counter.
func (l *LogMetrics) Counter(name string) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counters[name]
}

// Gauge returns the last value set for a gauge.
func (l *LogMetrics) Gauge(name string) float64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.gauges[name]
}

// Samples returns how many histogram samples were recorded under name.
func (l *LogMetrics) Samples(name string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.samples[name]
}
