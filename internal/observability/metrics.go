package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "microburst"

// Metrics holds the Prometheus counters, histograms, and gauges for the monitor.
type Metrics struct {
	// Ingest metrics.
	DetectionsIngested *prometheus.CounterVec // labels: source={stream,snapshot,synthetic}
	DuplicatesIgnored  *prometheus.CounterVec // labels: source
	MalformedMessages  *prometheus.CounterVec // labels: source
	StoreSize          prometheus.Gauge

	// Live feed metrics.
	StreamState      prometheus.Gauge // 0 disconnected, 1 connecting, 2 connected
	StreamReconnects prometheus.Counter
	APIRequests      *prometheus.CounterVec   // labels: endpoint, outcome={success,error}
	APIDuration      *prometheus.HistogramVec // labels: endpoint

	// Synthetic and scheduling metrics.
	SyntheticEnabled prometheus.Gauge
	TaskDuration     *prometheus.HistogramVec // labels: task

	// Fan-out metrics.
	PushClients       prometheus.Gauge
	MessagesPublished prometheus.Counter
	PublishErrors     prometheus.Counter
	PublishDropped    prometheus.Counter
}

// NewMetrics creates and registers all monitor metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()

	prometheus.MustRegister(
		m.DetectionsIngested,
		m.DuplicatesIgnored,
		m.MalformedMessages,
		m.StoreSize,
		m.StreamState,
		m.StreamReconnects,
		m.APIRequests,
		m.APIDuration,
		m.SyntheticEnabled,
		m.TaskDuration,
		m.PushClients,
		m.MessagesPublished,
		m.PublishErrors,
		m.PublishDropped,
	)

	return m
}

// NewMetricsForTesting creates Metrics that are not registered anywhere, to
// avoid "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		DetectionsIngested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "detections_ingested_total",
			Help:      "Detections accepted into the store by source.",
		}, []string{"source"}),
		DuplicatesIgnored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicates_ignored_total",
			Help:      "Detections dropped because their event ID was already stored.",
		}, []string{"source"}),
		MalformedMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_messages_total",
			Help:      "Feed payloads dropped because they could not be parsed.",
		}, []string{"source"}),
		StoreSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_detections",
			Help:      "Number of detections currently held in the store.",
		}),
		StreamState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_state",
			Help:      "Live stream state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		StreamReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_reconnects_total",
			Help:      "Reconnect attempts made by the live stream client.",
		}),
		APIRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Requests made to the detection API by endpoint and outcome.",
		}, []string{"endpoint", "outcome"}),
		APIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "Detection API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"endpoint"}),
		SyntheticEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "synthetic_enabled",
			Help:      "1 when the synthetic generator is producing detections, 0 otherwise.",
		}),
		TaskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Duration of a scheduled task run.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"task"}),
		PushClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_clients",
			Help:      "Connected push WebSocket clients.",
		}),
		MessagesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Detections written to the Kafka topic.",
		}),
		PublishErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_errors_total",
			Help:      "Failed Kafka batch writes.",
		}),
		PublishDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_dropped_total",
			Help:      "Detections dropped because the publish buffer was full.",
		}),
	}
}
