// Package telemetry exposes Prometheus metrics and OpenTelemetry tracing
// for the embedding codec, the reminder engine and the HTTP gateway.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flemzord/mnemo/internal/embedding"
	"github.com/flemzord/mnemo/internal/reminder"
)

const namespace = "mnemo"

// Metrics owns a private Prometheus registry. It implements
// embedding.Observer and reminder.Observer.
type Metrics struct {
	registry *prometheus.Registry

	embedRequests  *prometheus.CounterVec
	remoteFailures prometheus.Counter
	circuitOpen    prometheus.Gauge
	reminderEvents *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
}

var (
	_ embedding.Observer = (*Metrics)(nil)
	_ reminder.Observer  = (*Metrics)(nil)
)

// NewMetrics registers every collector on a fresh registry, including
// the Go runtime and process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		embedRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "requests_total",
			Help:      "Embeddings served, by source (remote, cache, fallback).",
		}, []string{"source"}),
		remoteFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "remote_failures_total",
			Help:      "Failed calls to the remote embedding provider.",
		}),
		circuitOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "embedding",
			Name:      "circuit_open",
			Help:      "1 while the remote embedding circuit is open.",
		}),
		reminderEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reminder",
			Name:      "events_total",
			Help:      "Reminder lifecycle events, by event and kind.",
		}, []string{"event", "kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests handled by the gateway.",
		}, []string{"method", "route", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.embedRequests,
		m.remoteFailures,
		m.circuitOpen,
		m.reminderEvents,
		m.httpRequests,
		m.httpDuration,
	)
	return m
}

// EmbedServed implements embedding.Observer.
func (m *Metrics) EmbedServed(source embedding.Source) {
	m.embedRequests.WithLabelValues(string(source)).Inc()
}

// RemoteFailed implements embedding.Observer.
func (m *Metrics) RemoteFailed() {
	m.remoteFailures.Inc()
}

// CircuitChanged implements embedding.Observer.
func (m *Metrics) CircuitChanged(open bool) {
	if open {
		m.circuitOpen.Set(1)
		return
	}
	m.circuitOpen.Set(0)
}

// ReminderEvent implements reminder.Observer.
func (m *Metrics) ReminderEvent(event string, kind reminder.Kind) {
	m.reminderEvents.WithLabelValues(event, string(kind)).Inc()
}

// ObserveHTTP records one handled request. route is the matched route
// pattern, not the raw path.
func (m *Metrics) ObserveHTTP(method, route string, code int, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }
