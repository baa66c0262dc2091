package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	ActiveCalls         prometheus.Gauge
	CallEvents          *prometheus.CounterVec
	RelayedFrames       *prometheus.CounterVec
	MalformedFrames     *prometheus.CounterVec
	DroppedFrames       *prometheus.CounterVec
	ProviderErrors      *prometheus.CounterVec
	RealtimeDialLatency prometheus.Histogram

	handler http.Handler
}

// NewMetrics registers instruments on the default Prometheus registry.
func NewMetrics(namespace string) *Metrics {
	m := newMetrics(namespace, prometheus.DefaultRegisterer)
	m.handler = promhttp.Handler()
	return m
}

// NewMetricsWithRegistry registers instruments on reg, so tests can build
// several instances without duplicate registration panics.
func NewMetricsWithRegistry(namespace string, reg *prometheus.Registry) *Metrics {
	m := newMetrics(namespace, reg)
	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return m
}

func newMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveCalls: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_calls",
			Help:      "Number of calls currently relayed.",
		}),
		CallEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "call_events_total",
			Help:      "Call lifecycle events by type.",
		}, []string{"event"}),
		RelayedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_frames_total",
			Help:      "Frames written by the relay by direction and type.",
		}, []string{"direction", "type"}),
		MalformedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_frames_total",
			Help:      "Frames skipped because their envelope could not be decoded.",
		}, []string{"source"}),
		DroppedFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Frames intentionally not forwarded, by reason.",
		}, []string{"reason"}),
		ProviderErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_errors_total",
			Help:      "Provider errors by provider and code.",
		}, []string{"provider", "code"}),
		RealtimeDialLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "realtime_dial_latency_ms",
			Help:      "Latency to open the AI realtime connection in milliseconds.",
			Buckets:   []float64{50, 100, 200, 300, 500, 800, 1200, 2000, 5000},
		}),
	}
}

func (m *Metrics) ObserveDialLatency(d time.Duration) {
	m.RealtimeDialLatency.Observe(float64(d.Milliseconds()))
}

func (m *Metrics) ObserveCallEvent(event string) {
	m.CallEvents.WithLabelValues(event).Inc()
}

// CallStarted and CallEnded must be paired; the active gauge moves by one on
// each so concurrent calls never overwrite each other's count.
func (m *Metrics) CallStarted() {
	m.ObserveCallEvent("started")
	m.ActiveCalls.Inc()
}

func (m *Metrics) CallEnded() {
	m.ObserveCallEvent("ended")
	m.ActiveCalls.Dec()
}

func (m *Metrics) Handler() http.Handler {
	return m.handler
}
