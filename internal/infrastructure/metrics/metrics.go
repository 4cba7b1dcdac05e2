// Package metrics holds the Prometheus collectors for the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sipdah/internal/infrastructure/storage/postgres"
)

const namespace = "sipdah"

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	registry *prometheus.Registry

	UnitsOfWork        *prometheus.CounterVec
	UnitOfWorkDuration *prometheus.HistogramVec
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		UnitsOfWork: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_of_work_total",
			Help:      "Units of work by outcome",
		}, []string{"outcome"}),
		UnitOfWorkDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "unit_of_work_duration_seconds",
			Help:      "Unit of work duration from begin to commit or rollback",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// ObserveUnitOfWork implements postgres.Observer.
func (m *Metrics) ObserveUnitOfWork(outcome string, elapsed time.Duration) {
	m.UnitsOfWork.WithLabelValues(outcome).Inc()
	m.UnitOfWorkDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// RegisterPoolStats exposes connection pool gauges sampled from stats at
// scrape time.
func (m *Metrics) RegisterPoolStats(stats func() postgres.PoolStats) {
	factory := promauto.With(m.registry)
	gauge := func(name, help string, value func(postgres.PoolStats) float64) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return value(stats()) })
	}

	gauge("total_conns", "Open connections", func(s postgres.PoolStats) float64 { return float64(s.TotalConns) })
	gauge("acquired_conns", "Connections in use", func(s postgres.PoolStats) float64 { return float64(s.AcquiredConns) })
	gauge("idle_conns", "Idle connections", func(s postgres.PoolStats) float64 { return float64(s.IdleConns) })
	gauge("max_conns", "Pool size limit", func(s postgres.PoolStats) float64 { return float64(s.MaxConns) })
}

// GinMiddleware records request count and latency per matched route.
func (m *Metrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

var _ postgres.Observer = (*Metrics)(nil)
