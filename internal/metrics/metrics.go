// Package metrics defines the engine's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every collector the engine exports.
type Metrics struct {
	ActiveStreams     prometheus.Gauge
	ActiveSubscribers prometheus.Gauge

	IngestConnections prometheus.Counter
	IngestErrors      prometheus.Counter
	BytesReceived     prometheus.Counter
	MessagesReceived  *prometheus.CounterVec

	SubscriberDrops prometheus.Counter

	RelayReconnects *prometheus.CounterVec

	HandshakeDuration prometheus.Histogram
}

// New registers all collectors with reg and returns them. Production
// passes prometheus.DefaultRegisterer; tests pass a fresh registry so
// repeated construction cannot collide.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weir_active_streams",
			Help: "Number of streams with an attached publisher",
		}),
		ActiveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "weir_active_subscribers",
			Help: "Number of attached subscribers across all streams",
		}),

		IngestConnections: factory.NewCounter(prometheus.CounterOpts{
			Name: "weir_ingest_connections_total",
			Help: "Total RTMP connections accepted",
		}),
		IngestErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "weir_ingest_errors_total",
			Help: "Total RTMP connections that ended with an error",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "weir_ingest_bytes_total",
			Help: "Total media payload bytes received from publishers",
		}),
		MessagesReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weir_ingest_messages_total",
				Help: "Total messages received from publishers",
			},
			[]string{"type"},
		),

		SubscriberDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "weir_subscriber_dropped_messages_total",
			Help: "Messages lost to subscriber backpressure",
		}),

		RelayReconnects: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "weir_relay_reconnects_total",
				Help: "Reconnect attempts per relay task",
			},
			[]string{"task"},
		),

		HandshakeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "weir_handshake_duration_seconds",
			Help:    "Time spent completing RTMP handshakes",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// RecordIngestConnection counts an accepted connection.
func (m *Metrics) RecordIngestConnection() {
	m.IngestConnections.Inc()
}

// RecordIngestError counts a connection that ended with an error.
func (m *Metrics) RecordIngestError() {
	m.IngestErrors.Inc()
}

// RecordMessage counts one inbound message and its payload size.
func (m *Metrics) RecordMessage(msgType string, size int) {
	m.MessagesReceived.WithLabelValues(msgType).Inc()
	m.BytesReceived.Add(float64(size))
}

// RecordPublishStart marks a stream going live.
func (m *Metrics) RecordPublishStart() {
	m.ActiveStreams.Inc()
}

// RecordPublishStop marks a stream ending.
func (m *Metrics) RecordPublishStop() {
	m.ActiveStreams.Dec()
}

// RecordSubscriberStart marks a subscriber attaching.
func (m *Metrics) RecordSubscriberStart() {
	m.ActiveSubscribers.Inc()
}

// RecordSubscriberStop marks a subscriber detaching, folding in the
// messages its buffer dropped over its lifetime.
func (m *Metrics) RecordSubscriberStop(dropped uint64) {
	m.ActiveSubscribers.Dec()
	if dropped > 0 {
		m.SubscriberDrops.Add(float64(dropped))
	}
}

// RecordRelayReconnect counts a reconnect attempt for a relay task.
func (m *Metrics) RecordRelayReconnect(task string) {
	m.RelayReconnects.WithLabelValues(task).Inc()
}

// ObserveHandshake records one handshake duration.
func (m *Metrics) ObserveHandshake(seconds float64) {
	m.HandshakeDuration.Observe(seconds)
}
