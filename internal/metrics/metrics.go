// Package metrics exposes Prometheus collectors for the webhook and the
// Telegram client, plus a cheap in-process snapshot for the status page.
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tgecho"

// Metrics owns a private registry so several instances (tests) can coexist.
type Metrics struct {
	registry *prometheus.Registry

	webhookRequests *prometheus.CounterVec
	webhookDuration prometheus.Histogram
	replies         *prometheus.CounterVec
	apiCalls        *prometheus.CounterVec
	apiLatency      *prometheus.HistogramVec
	probeUp         *prometheus.GaugeVec

	requests     atomic.Int64
	failures     atomic.Int64
	sent         atomic.Int64
	totalLatency atomic.Int64 // nanoseconds
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		webhookRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_requests_total",
			Help:      "Webhook requests by response status.",
		}, []string{"status"}),
		webhookDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_duration_seconds",
			Help:      "Time spent handling one webhook update.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies derived from updates, by kind (structured|fallback|none).",
		}, []string{"kind"}),
		apiCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "telegram_api_calls_total",
			Help:      "Telegram Bot API calls by method and outcome.",
		}, []string{"method", "outcome"}), // outcome: success|error
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "telegram_api_latency_seconds",
			Help:      "Telegram Bot API call latency.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"method"}),
		probeUp: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "probe_up",
			Help:      "1 when the last getMe probe for a bot succeeded.",
		}, []string{"bot"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.webhookRequests,
		m.webhookDuration,
		m.replies,
		m.apiCalls,
		m.apiLatency,
		m.probeUp,
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one handled webhook request.
func (m *Metrics) ObserveRequest(status int, elapsed time.Duration) {
	m.webhookRequests.WithLabelValues(strconv.Itoa(status)).Inc()
	m.webhookDuration.Observe(elapsed.Seconds())

	m.requests.Add(1)
	m.totalLatency.Add(int64(elapsed))
	if status >= http.StatusBadRequest {
		m.failures.Add(1)
	}
}

// ObserveReply records the kind of reply an update produced.
func (m *Metrics) ObserveReply(kind string) {
	m.replies.WithLabelValues(kind).Inc()
}

// ObserveCall records one Telegram Bot API call.
func (m *Metrics) ObserveCall(method string, elapsed time.Duration, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	} else if method == "sendMessage" {
		m.sent.Add(1)
	}
	m.apiCalls.WithLabelValues(method, outcome).Inc()
	m.apiLatency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// SetProbe records the outcome of the latest probe for bot.
func (m *Metrics) SetProbe(bot string, up bool) {
	v := 0.0
	if up {
		v = 1
	}
	m.probeUp.WithLabelValues(bot).Set(v)
}

// Snapshot returns a point-in-time view of the request counters.
func (m *Metrics) Snapshot() Snapshot {
	requests := m.requests.Load()
	snap := Snapshot{
		Requests: requests,
		Failures: m.failures.Load(),
		Sent:     m.sent.Load(),
	}
	if requests > 0 {
		snap.AvgLatency = time.Duration(m.totalLatency.Load() / requests)
	}
	return snap
}

// Snapshot is a serializable point-in-time metrics view.
type Snapshot struct {
	Requests   int64         `json:"requests"`
	Failures   int64         `json:"failures"`
	Sent       int64         `json:"sent"`
	AvgLatency time.Duration `json:"avg_latency_ns"`
}
