// Package metrics provides Prometheus metrics collection for pipekit.
package metrics

import (
	"strconv"
	"time"

	"github.com/artpar/pipekit/domain/evaluation"
	"github.com/artpar/pipekit/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "pipekit"

// Collector holds all Prometheus metrics for pipekit.
type Collector struct {
	// Evaluation metrics
	EvaluationsTotal   *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	PipelinesLoaded    prometheus.Gauge

	// HTTP metrics
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	// Definition reload metrics
	Reloads      prometheus.Counter
	ReloadErrors prometheus.Counter
	LastReload   prometheus.Gauge
}

// New creates a collector registered with the default Prometheus registry.
func New() *Collector {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a new metrics collector with a custom registry.
// Useful for testing to avoid global state.
func NewWithRegistry(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)

	return &Collector{
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "evaluations_total",
				Help:      "Total number of pipeline evaluations",
			},
			[]string{"pipeline", "status", "error_kind"},
		),
		EvaluationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "evaluation_duration_seconds",
				Help:      "Pipeline evaluation duration in seconds",
				Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"pipeline"},
		),
		PipelinesLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pipelines_loaded",
				Help:      "Number of named pipelines in the active snapshot",
			},
		),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "route"},
		),
		RequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_requests_in_flight",
				Help:      "Number of HTTP requests currently being processed",
			},
		),

		Reloads: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reloads_total",
				Help:      "Total number of successful definition reloads",
			},
		),
		ReloadErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reload_errors_total",
				Help:      "Total number of failed definition reloads",
			},
		),
		LastReload: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_reload_timestamp",
				Help:      "Unix timestamp of the last successful definition reload",
			},
		),
	}
}

// ObserveEvaluation records one finished evaluation.
func (c *Collector) ObserveEvaluation(pipeline string, status evaluation.Status, errorKind string, d time.Duration) {
	c.EvaluationsTotal.WithLabelValues(pipeline, string(status), errorKind).Inc()
	c.EvaluationDuration.WithLabelValues(pipeline).Observe(d.Seconds())
}

// SetPipelines reports the number of named pipelines loaded.
func (c *Collector) SetPipelines(n int) {
	c.PipelinesLoaded.Set(float64(n))
}

// ObserveReload records a definition reload attempt.
func (c *Collector) ObserveReload(ok bool) {
	if !ok {
		c.ReloadErrors.Inc()
		return
	}
	c.Reloads.Inc()
	c.LastReload.SetToCurrentTime()
}

// ObserveRequest records one finished HTTP request. route is the matched
// route pattern, not the raw path, to bound label cardinality.
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.RequestsTotal.WithLabelValues(method, route, StatusClass(status)).Inc()
	c.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// StatusClass buckets an HTTP status code, e.g. 404 -> "4xx".
func StatusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}

var _ ports.Metrics = (*Collector)(nil)
