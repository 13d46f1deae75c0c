// Package metrics exposes Prometheus metrics for schema changes, HTTP traffic
// and the connection pool.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// DefaultNamespace prefixes every metric name.
const DefaultNamespace = "ekaya_migrate"

// StatsSource reports connection pool statistics.
type StatsSource interface {
	GetStats() datasource.ConnectionStats
}

// Collector owns a private registry and the metric vectors recorded into it.
// A nil *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	StatementsTotal     *prometheus.CounterVec
	StatementDuration   *prometheus.HistogramVec
	PlanStepsTotal      *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a collector. When pool is non-nil its statistics are
// exported as gauges on every scrape.
func NewCollector(namespace string, pool StatsSource) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()

	c := &Collector{
		registry: reg,
		StatementsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "statements_total",
			Help:      "DDL statements sent to target databases",
		}, []string{"engine", "step", "status"}),
		StatementDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "statement_duration_seconds",
			Help:      "Time taken by a DDL statement on the target database",
			Buckets:   prometheus.DefBuckets,
		}, []string{"engine", "step"}),
		PlanStepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_steps_total",
			Help:      "Plan steps by final status",
		}, []string{"engine", "step", "status"}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"method", "route", "status_code"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.StatementsTotal,
		c.StatementDuration,
		c.PlanStepsTotal,
		c.HTTPRequestsTotal,
		c.HTTPRequestDuration,
	)
	if pool != nil {
		reg.MustRegister(newPoolCollector(namespace, pool))
	}
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// RecordStatement records one executed statement.
func (c *Collector) RecordStatement(engine models.Engine, step models.StepKind, err error, duration time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.StatementsTotal.WithLabelValues(string(engine), string(step), status).Inc()
	c.StatementDuration.WithLabelValues(string(engine), string(step)).Observe(duration.Seconds())
}

// RecordReport counts every step of a finished plan by its final status.
func (c *Collector) RecordReport(engine models.Engine, report *models.PlanReport) {
	if c == nil || report == nil {
		return
	}
	for _, outcome := range report.Steps {
		c.PlanStepsTotal.WithLabelValues(string(engine), string(outcome.Step.Kind), string(outcome.Status)).Inc()
	}
}

// RecordHTTPRequest records a served request. route is the matched mux
// pattern, never the raw path.
func (c *Collector) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	c.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// poolCollector reads pool statistics at scrape time.
type poolCollector struct {
	source     StatsSource
	open       *prometheus.Desc
	byEngine   *prometheus.Desc
	max        *prometheus.Desc
	oldestIdle *prometheus.Desc
}

func newPoolCollector(namespace string, source StatsSource) *poolCollector {
	return &poolCollector{
		source:     source,
		open:       prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "open"), "Open connection pools", nil, nil),
		byEngine:   prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "open_by_engine"), "Open connection pools per engine", []string{"engine"}, nil),
		max:        prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "max"), "Maximum open connection pools", nil, nil),
		oldestIdle: prometheus.NewDesc(prometheus.BuildFQName(namespace, "pool", "oldest_idle_seconds"), "Idle time of the least recently used pool", nil, nil),
	}
}

func (p *poolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- p.open
	ch <- p.byEngine
	ch <- p.max
	ch <- p.oldestIdle
}

func (p *poolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := p.source.GetStats()
	ch <- prometheus.MustNewConstMetric(p.open, prometheus.GaugeValue, float64(stats.TotalConnections))
	ch <- prometheus.MustNewConstMetric(p.max, prometheus.GaugeValue, float64(stats.MaxConnections))
	ch <- prometheus.MustNewConstMetric(p.oldestIdle, prometheus.GaugeValue, float64(stats.OldestIdleSeconds))
	for engine, n := range stats.ConnectionsByEngine {
		ch <- prometheus.MustNewConstMetric(p.byEngine, prometheus.GaugeValue, float64(n), engine)
	}
}
