// Package metrics provides Prometheus metrics for pongd.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "pongd"
)

// Metrics contains all Prometheus metrics for the responder.
type Metrics struct {
	// Inbound traffic
	PacketsReceived  prometheus.Counter
	PacketsDiscarded *prometheus.CounterVec
	PacketsIgnored   prometheus.Counter
	BytesReceived    prometheus.Counter

	// Replies
	RepliesSent       prometheus.Counter
	RepliesSuppressed prometheus.Counter
	BytesSent         prometheus.Counter

	// Processing
	ProcessingDuration prometheus.Histogram

	// Startup facts
	EntropySource *prometheus.GaugeVec
}

var (
	defaultMetrics *Metrics
	metricsOnce    sync.Once
)

// Default returns the default metrics instance.
func Default() *Metrics {
	metricsOnce.Do(func() {
		defaultMetrics = NewMetrics()
	})
	return defaultMetrics
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry creates a new Metrics instance with a custom registry.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		PacketsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_received_total",
			Help:      "Total datagrams received on the listener",
		}),
		PacketsDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_discarded_total",
			Help:      "Total datagrams silently discarded, by reason",
		}, []string{"reason"}),
		PacketsIgnored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "packets_ignored_total",
			Help:      "Total valid packets that did not request a reply",
		}),
		BytesReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_received_total",
			Help:      "Total datagram bytes received",
		}),
		RepliesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_sent_total",
			Help:      "Total reply datagrams sent",
		}),
		RepliesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_suppressed_total",
			Help:      "Total replies withheld by the per-peer rate limiter",
		}),
		BytesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_sent_total",
			Help:      "Total reply bytes sent",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Time from datagram receipt to reply transmission",
			Buckets:   prometheus.ExponentialBuckets(0.000001, 10, 8),
		}),
		EntropySource: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "entropy_source",
			Help:      "Selected identifier entropy source (1 for the active one)",
		}, []string{"source"}),
	}
}

// RecordReceived counts one inbound datagram of the given size.
func (m *Metrics) RecordReceived(bytes int) {
	m.PacketsReceived.Inc()
	m.BytesReceived.Add(float64(bytes))
}

// RecordDiscard counts a silent discard.
func (m *Metrics) RecordDiscard(reason string) {
	m.PacketsDiscarded.WithLabelValues(reason).Inc()
}

// RecordIgnored counts a valid packet that warranted no reply.
func (m *Metrics) RecordIgnored() {
	m.PacketsIgnored.Inc()
}

// RecordReply counts one sent reply and its processing latency.
func (m *Metrics) RecordReply(bytes int, seconds float64) {
	m.RepliesSent.Inc()
	m.BytesSent.Add(float64(bytes))
	m.ProcessingDuration.Observe(seconds)
}

// RecordSuppressed counts a reply withheld by rate limiting.
func (m *Metrics) RecordSuppressed() {
	m.RepliesSuppressed.Inc()
}

// SetEntropySource records which entropy source was selected at startup.
func (m *Metrics) SetEntropySource(name string) {
	m.EntropySource.WithLabelValues(name).Set(1)
}
