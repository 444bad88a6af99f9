// Package metrics exposes the service's Prometheus collectors.
//
// Metrics implements eventbus.Observer and delivery.Observer so the bus and
// the transports report into the same registry that /metrics serves.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hilthontt/watchparty/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "watchparty"

type Metrics struct {
	registry *prometheus.Registry

	published     *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	subscriptions prometheus.Gauge

	openStreams     *prometheus.GaugeVec
	encodeFailures  *prometheus.CounterVec
	pollResults     *prometheus.CounterVec
	requestCount    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		published: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "published_total",
			Help:      "Events accepted by the bus, by event type.",
		}, []string{"event_type"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "dropped_total",
			Help:      "Per-subscriber deliveries dropped on a full buffer, by event type.",
		}, []string{"event_type"}),
		subscriptions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "eventbus",
			Name:      "subscriptions",
			Help:      "Live bus subscriptions.",
		}),
		openStreams: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "open_streams",
			Help:      "Streaming connections currently open, by transport.",
		}, []string{"transport"}),
		encodeFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "encode_failures_total",
			Help:      "Events skipped because they could not be encoded, by transport.",
		}, []string{"transport"}),
		pollResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "delivery",
			Name:      "poll_results_total",
			Help:      "Completed long-poll requests, by outcome.",
		}, []string{"outcome"}),
		requestCount: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency, by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) EventPublished(eventType domain.EventType, _ int) {
	m.published.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) EventDropped(eventType domain.EventType) {
	m.dropped.WithLabelValues(string(eventType)).Inc()
}

func (m *Metrics) SubscriptionOpened() { m.subscriptions.Inc() }
func (m *Metrics) SubscriptionClosed() { m.subscriptions.Dec() }

func (m *Metrics) StreamOpened(transport string) {
	m.openStreams.WithLabelValues(transport).Inc()
}

func (m *Metrics) StreamClosed(transport string) {
	m.openStreams.WithLabelValues(transport).Dec()
}

func (m *Metrics) EncodeFailed(transport string) {
	m.encodeFailures.WithLabelValues(transport).Inc()
}

func (m *Metrics) PollCompleted(outcome string) {
	m.pollResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	m.requestCount.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
