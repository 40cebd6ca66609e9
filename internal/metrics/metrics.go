// Package metrics exposes Prometheus collectors for backend calls, the
// in-memory catalog and the web layer.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "bookclub"

// Outcome labels for backend calls that never produced a status code.
const (
	OutcomeNetworkError = "network_error"
)

// Collector owns a private registry so tests and multiple servers never
// collide on the global one. All methods are safe on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	backendRequests *prometheus.CounterVec
	backendDuration *prometheus.HistogramVec
	catalogBooks    prometheus.Gauge
	catalogFetches  *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	tasksEnqueued   *prometheus.CounterVec
}

func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		backendRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "requests_total",
				Help:      "Total number of requests sent to the book backend.",
			},
			[]string{"operation", "outcome"},
		),
		backendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "backend",
				Name:      "request_duration_seconds",
				Help:      "Duration of requests sent to the book backend.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"operation"},
		),
		catalogBooks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "books",
				Help:      "Number of books currently held in the catalog.",
			},
		),
		catalogFetches: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "catalog",
				Name:      "fetches_total",
				Help:      "Catalog list fetches by result.",
			},
			[]string{"result"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests handled.",
			},
			[]string{"method", "route", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		tasksEnqueued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "tasks",
				Name:      "enqueued_total",
				Help:      "Background tasks enqueued by queue.",
			},
			[]string{"queue"},
		),
	}

	c.registry.MustRegister(
		c.backendRequests,
		c.backendDuration,
		c.catalogBooks,
		c.catalogFetches,
		c.httpRequests,
		c.httpDuration,
		c.tasksEnqueued,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return c
}

// Registry returns the registry backing this collector.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler returns an HTTP handler exposing the registered metrics.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ObserveBackend records one backend call. status is the HTTP status, or 0
// when the request never got a response.
func (c *Collector) ObserveBackend(operation string, status int, duration time.Duration) {
	if c == nil {
		return
	}
	outcome := OutcomeNetworkError
	if status > 0 {
		outcome = strconv.Itoa(status)
	}
	c.backendRequests.WithLabelValues(operation, outcome).Inc()
	c.backendDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetCatalogSize records how many books the catalog holds.
func (c *Collector) SetCatalogSize(n int) {
	if c == nil {
		return
	}
	c.catalogBooks.Set(float64(n))
}

// CatalogFetch counts a list fetch; ok is false when it degraded to empty.
func (c *Collector) CatalogFetch(ok bool) {
	if c == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	c.catalogFetches.WithLabelValues(result).Inc()
}

// TaskEnqueued counts a task added to the named queue.
func (c *Collector) TaskEnqueued(queue string) {
	if c == nil {
		return
	}
	c.tasksEnqueued.WithLabelValues(queue).Inc()
}

// GinMiddleware records request counts and durations by route template.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if c == nil {
			ctx.Next()
			return
		}

		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		if route == "/metrics" {
			return
		}
		c.httpRequests.WithLabelValues(ctx.Request.Method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(ctx.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
