// Package prometheus implements the metric interfaces of pkg/metrics with
// Prometheus collectors registered on metrics.GetRegistry.
package prometheus

import (
	"time"

	"github.com/jacobtread/rme3/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// components names the Blaze components used as metric labels. Any other
// header value is recorded as "other" so peers cannot grow the series set.
var components = map[uint16]string{
	0x0001: "authentication",
	0x0004: "game_manager",
	0x0005: "redirector",
	0x0007: "stats",
	0x0009: "util",
	0x000F: "messaging",
	0x0019: "association_lists",
	0x001C: "game_reporting",
	0x7802: "user_sessions",
}

func componentLabel(c uint16) string {
	if name, ok := components[c]; ok {
		return name
	}
	return "other"
}

type blazeMetrics struct {
	packets        *prometheus.CounterVec
	decodeDuration *prometheus.HistogramVec
	contentBytes   prometheus.Histogram
	decodeErrors   *prometheus.CounterVec
	readErrors     *prometheus.CounterVec
	bytesSent      prometheus.Counter

	activeConnections prometheus.Gauge
	connections       *prometheus.CounterVec
}

// NewBlazeMetrics creates the Blaze collectors. It returns nil when metrics
// are disabled.
func NewBlazeMetrics() metrics.BlazeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}
	return newBlazeMetrics(metrics.GetRegistry())
}

func newBlazeMetrics(reg prometheus.Registerer) *blazeMetrics {
	f := promauto.With(reg)

	return &blazeMetrics{
		packets: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rme3_blaze_packets_total",
				Help: "Packets read, by component and outcome",
			},
			[]string{"component", "status"},
		),
		decodeDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "rme3_blaze_decode_duration_microseconds",
				Help: "Time spent decoding packet content into TDF values",
				Buckets: []float64{
					5,    // ping / empty content
					20,   // small requests
					100,  // typical login / settings
					500,  // lists of groups
					2000, // large blobs
					10000,
				},
			},
			[]string{"component"},
		),
		contentBytes: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "rme3_blaze_content_bytes",
				Help:    "Distribution of packet content sizes",
				Buckets: prometheus.ExponentialBuckets(16, 4, 8), // 16B .. 256KiB
			},
		),
		decodeErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rme3_blaze_decode_errors_total",
				Help: "TDF decode failures by kind",
			},
			[]string{"kind"},
		),
		readErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rme3_blaze_read_errors_total",
				Help: "Connection read failures by kind",
			},
			[]string{"kind"},
		),
		bytesSent: f.NewCounter(
			prometheus.CounterOpts{
				Name: "rme3_blaze_bytes_sent_total",
				Help: "Bytes written to clients",
			},
		),
		activeConnections: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "rme3_blaze_active_connections",
				Help: "Currently open client connections",
			},
		),
		connections: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rme3_blaze_connections_total",
				Help: "Connection lifecycle events",
			},
			[]string{"event"}, // accepted, closed, force_closed, rejected
		),
	}
}

func (m *blazeMetrics) RecordPacket(component, _ uint16, contentBytes int, decode time.Duration, errorKind string) {
	comp := componentLabel(component)
	status := "ok"
	if errorKind != "" {
		status = "error"
		m.decodeErrors.WithLabelValues(errorKind).Inc()
	}

	m.packets.WithLabelValues(comp, status).Inc()
	m.decodeDuration.WithLabelValues(comp).Observe(float64(decode.Microseconds()))
	m.contentBytes.Observe(float64(contentBytes))
}

func (m *blazeMetrics) RecordReadError(kind string) {
	m.readErrors.WithLabelValues(kind).Inc()
}

func (m *blazeMetrics) RecordBytesSent(n int) {
	m.bytesSent.Add(float64(n))
}

func (m *blazeMetrics) SetActiveConnections(count int32) {
	m.activeConnections.Set(float64(count))
}

func (m *blazeMetrics) RecordConnectionAccepted() {
	m.connections.WithLabelValues("accepted").Inc()
}

func (m *blazeMetrics) RecordConnectionClosed() {
	m.connections.WithLabelValues("closed").Inc()
}

func (m *blazeMetrics) RecordConnectionForceClosed() {
	m.connections.WithLabelValues("force_closed").Inc()
}

func (m *blazeMetrics) RecordConnectionRejected() {
	m.connections.WithLabelValues("rejected").Inc()
}
