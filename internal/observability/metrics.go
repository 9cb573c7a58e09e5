// Package observability holds the Prometheus instruments of the assistant.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the orchestrator.
type Metrics struct {
	MessagesSent      *prometheus.CounterVec
	RemoteFailures    *prometheus.CounterVec
	RemoteLatency     prometheus.Histogram
	Connected         prometheus.Gauge
	ConnectivityProbe *prometheus.CounterVec
	QuestionSets      *prometheus.CounterVec
	SessionEvents     *prometheus.CounterVec
}

// NewMetrics registers the instruments on reg. A nil reg falls back to the
// default registerer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		MessagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "Completed sends by reply outcome.",
		}, []string{"outcome"}),
		RemoteFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remote_failures_total",
			Help:      "Failed advisor calls by failure kind.",
		}, []string{"kind"}),
		RemoteLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "remote_latency_ms",
			Help:      "Latency of advisor chat calls in milliseconds.",
			Buckets:   []float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000},
		}),
		Connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "advisor_connected",
			Help:      "1 when the advisor is considered reachable.",
		}),
		ConnectivityProbe: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connectivity_probes_total",
			Help:      "Connectivity probes by result.",
		}, []string{"result"}),
		QuestionSets: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "question_sets_total",
			Help:      "Generated custom question sets by source.",
		}, []string{"source"}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session lifecycle events by type.",
		}, []string{"event"}),
	}
}

// ObserveRemoteLatency records one advisor call.
func (m *Metrics) ObserveRemoteLatency(d time.Duration) {
	m.RemoteLatency.Observe(float64(d.Milliseconds()))
}

// SetConnected mirrors the connectivity flag.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.Connected.Set(1)
		return
	}
	m.Connected.Set(0)
}

// Handler serves the metrics gathered by g. A nil g serves the default gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
