package observability

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the Prometheus metrics of the service. Each collector
// owns its registry so tests can create as many as they like.
type Collector struct {
	registry *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	OperationDuration *prometheus.HistogramVec
	Counts            *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Command, query and tree build duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		Counts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Business counters such as tree nodes built and cycle truncations",
			},
			[]string{"name"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.OperationDuration,
		c.Counts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one finished request
func (c *Collector) ObserveHTTP(method, route string, status int, duration time.Duration) {
	c.HTTPRequests.WithLabelValues(method, route, statusClass(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordLatency implements ports.MetricsRecorder
func (c *Collector) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	c.OperationDuration.WithLabelValues(operation).Observe(latency.Seconds())
}

// RecordCount implements ports.MetricsRecorder. Dimensions are folded into
// the name so label cardinality stays bounded by the callers.
func (c *Collector) RecordCount(ctx context.Context, name string, value float64, dimensions map[string]string) {
	if value < 0 {
		return
	}
	c.Counts.WithLabelValues(name).Add(value)
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}

// MetricsRecorder matches ports.MetricsRecorder without importing it
type MetricsRecorder interface {
	RecordLatency(ctx context.Context, operation string, latency time.Duration)
	RecordCount(ctx context.Context, name string, value float64, dimensions map[string]string)
}

// Fanout sends every measurement to each recorder
type Fanout []MetricsRecorder

func (f Fanout) RecordLatency(ctx context.Context, operation string, latency time.Duration) {
	for _, r := range f {
		r.RecordLatency(ctx, operation, latency)
	}
}

func (f Fanout) RecordCount(ctx context.Context, name string, value float64, dimensions map[string]string) {
	for _, r := range f {
		r.RecordCount(ctx, name, value, dimensions)
	}
}

// RouteLabel normalises an empty chi route pattern
func RouteLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return strings.TrimSuffix(pattern, "/*")
}
