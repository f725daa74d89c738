package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "temperature_relay"

// Metrics holds the Prometheus collectors for every hop of the relay. Each
// process registers the full set and only moves the ones for its own hop.
type Metrics struct {
	// Generator.
	ReadingsSent    prometheus.Counter
	ConnectionState prometheus.Gauge // 0 disconnected, 1 connecting, 2 connected
	Reconnects      prometheus.Counter

	// Ingress relay.
	ActiveConnections prometheus.Gauge
	MessagesReceived  prometheus.Counter
	Rejected          *prometheus.CounterVec   // labels: kind
	Forwarded         *prometheus.CounterVec   // labels: outcome={success,error}
	ForwardDuration   prometheus.Histogram
	Broadcasts        *prometheus.CounterVec   // labels: outcome={sent,dropped}

	// Enrichment relay.
	Enriched        *prometheus.CounterVec // labels: outcome={success,<error kind>}
	StorageDuration prometheus.Histogram

	// Storage service.
	Inserts       *prometheus.CounterVec   // labels: outcome={stored,<error kind>}
	QueryDuration *prometheus.HistogramVec // labels: op
	Published     *prometheus.CounterVec   // labels: outcome={success,error}
}

// NewMetrics creates all collectors and registers them with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, so tests can
// build as many as they like without "already registered" panics.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		ReadingsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_readings_sent_total",
			Help:      "Readings written to the ingress connection.",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "generator_connection_state",
			Help:      "Generator connection state: 0 disconnected, 1 connecting, 2 connected.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generator_reconnects_total",
			Help:      "Transitions into the disconnected state after a session or dial failure.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingress_active_connections",
			Help:      "Currently registered generator connections.",
		}),
		MessagesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_messages_received_total",
			Help:      "Frames received from generator connections.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_rejected_total",
			Help:      "Frames rejected before forwarding, by error kind.",
		}, []string{"kind"}),
		Forwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_forwarded_total",
			Help:      "Forward attempts to the enrichment relay by outcome.",
		}, []string{"outcome"}),
		ForwardDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingress_forward_duration_seconds",
			Help:      "Duration of the ingress to enrichment call.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		Broadcasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingress_broadcast_frames_total",
			Help:      "Server-initiated frames per connection by outcome.",
		}, []string{"outcome"}),
		Enriched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrichment_ingested_total",
			Help:      "Ingest calls by outcome (success or error kind).",
		}, []string{"outcome"}),
		StorageDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "enrichment_storage_duration_seconds",
			Help:      "Duration of the enrichment to storage insert call.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		Inserts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_inserts_total",
			Help:      "Insert attempts by outcome (stored or error kind).",
		}, []string{"outcome"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "storage_query_duration_seconds",
			Help:      "Duration of storage query operations.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"op"}),
		Published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_published_total",
			Help:      "Stored readings published to the change feed by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.ReadingsSent,
		m.ConnectionState,
		m.Reconnects,
		m.ActiveConnections,
		m.MessagesReceived,
		m.Rejected,
		m.Forwarded,
		m.ForwardDuration,
		m.Broadcasts,
		m.Enriched,
		m.StorageDuration,
		m.Inserts,
		m.QueryDuration,
		m.Published,
	}
}
