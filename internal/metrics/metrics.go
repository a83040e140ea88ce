package metrics

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dialaschedule/dialaschedule/internal/callflow"
	"github.com/dialaschedule/dialaschedule/internal/jambonz"
)

const namespace = "dialaschedule"

// StatusCounter returns call status events recorded in the call log,
// grouped by status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[string]int64, error)
}

// Metrics holds the call-flow counters and implements callflow.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	calls          *prometheus.CounterVec
	upstreamErrors prometheus.Counter
	userErrors     prometheus.Counter
}

// New creates the counters and a scrape-time collector on a private
// registry. statuses may be nil when the call log is disabled.
func New(statuses StatusCounter, startTime time.Time) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Total number of requests received to call endpoints",
		}, []string{"endpoint"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "calls_total",
			Help:      "Total number of calls received",
		}, []string{"status", "from"}),
		upstreamErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_errors_total",
			Help:      "Total number of times a call to the event API failed",
		}),
		userErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "user_error_total",
			Help:      "Total number of times a user entered an obviously wrong value",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.calls,
		m.upstreamErrors,
		m.userErrors,
		NewCollector(statuses, startTime),
	)
	return m
}

// Request implements callflow.Recorder.
func (m *Metrics) Request(step callflow.Step) {
	m.requests.WithLabelValues(string(step)).Inc()
}

// Call implements callflow.Recorder.
func (m *Metrics) Call(status jambonz.CallStatus, from string) {
	m.calls.WithLabelValues(string(status), from).Inc()
}

// UpstreamError implements callflow.Recorder.
func (m *Metrics) UpstreamError() {
	m.upstreamErrors.Inc()
}

// UserError implements callflow.Recorder.
func (m *Metrics) UserError() {
	m.userErrors.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

var _ callflow.Recorder = (*Metrics)(nil)

// Collector is a prometheus.Collector that gathers values at scrape time.
type Collector struct {
	statuses  StatusCounter
	startTime time.Time

	statusEventsDesc *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector creates a new scrape-time collector. statuses may be nil.
func NewCollector(statuses StatusCounter, startTime time.Time) *Collector {
	return &Collector{
		statuses:  statuses,
		startTime: startTime,

		statusEventsDesc: prometheus.NewDesc(
			namespace+"_call_status_events",
			"Call status events stored in the call log",
			[]string{"status"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			namespace+"_uptime_seconds",
			"Seconds since the process started",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.statusEventsDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector. It queries the call log at scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.statuses != nil {
		counts, err := c.statuses.CountByStatus(ctx)
		if err != nil {
			slog.Error("metrics: failed to count call status events", "error", err)
		} else {
			for status, n := range counts {
				ch <- prometheus.MustNewConstMetric(
					c.statusEventsDesc, prometheus.GaugeValue,
					float64(n), status,
				)
			}
		}
	}

	ch <- prometheus.MustNewConstMetric(
		c.uptimeDesc, prometheus.GaugeValue,
		time.Since(c.startTime).Seconds(),
	)
}
