package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/proctor-live/internal/model"
)

const namespace = "proctor_live"

// Metrics holds the collectors for one channel instance.
type Metrics struct {
	state             prometheus.Gauge
	reconnects        prometheus.Counter
	exhausted         prometheus.Counter
	framesReceived    prometheus.Counter
	framesMalformed   prometheus.Counter
	dispatched        *prometheus.CounterVec
	consumerFailures  *prometheus.CounterVec
	sendsDropped      *prometheus.CounterVec
	heartbeatTimeouts prometheus.Counter
	heartbeatRTT      prometheus.Histogram
	archiveInserts    prometheus.Counter
	archiveErrors     prometheus.Counter
}

// New creates the collectors and registers them with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Current connection state (0=disconnected, 1=connecting, 2=connected, 3=closing).",
		}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnect_attempts_total",
			Help:      "Scheduled automatic reconnect attempts.",
		}),
		exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "reconnects_exhausted_total",
			Help:      "Times automatic reconnection gave up.",
		}),
		framesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "frames_received_total",
			Help:      "Inbound frames handed to the router.",
		}),
		framesMalformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "frames_malformed_total",
			Help:      "Inbound frames dropped because they could not be decoded.",
		}),
		dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "events_dispatched_total",
			Help:      "Events dispatched to consumers.",
		}, []string{"event_type"}),
		consumerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "router",
			Name:      "consumer_failures_total",
			Help:      "Consumer callbacks that returned an error or panicked.",
		}, []string{"event_type"}),
		sendsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "sends_dropped_total",
			Help:      "Outbound messages that were not transmitted.",
		}, []string{"reason"}),
		heartbeatTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "timeouts_total",
			Help:      "Pings that went unanswered within the pong timeout.",
		}),
		heartbeatRTT: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "heartbeat",
			Name:      "round_trip_seconds",
			Help:      "Time between a ping and its pong.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		archiveInserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "inserts_total",
			Help:      "Events written to the archive.",
		}),
		archiveErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "archive",
			Name:      "errors_total",
			Help:      "Failed archive batch inserts.",
		}),
	}

	reg.MustRegister(
		m.state, m.reconnects, m.exhausted,
		m.framesReceived, m.framesMalformed, m.dispatched, m.consumerFailures,
		m.sendsDropped, m.heartbeatTimeouts, m.heartbeatRTT,
		m.archiveInserts, m.archiveErrors,
	)
	return m
}

func (m *Metrics) SetState(s model.ConnectionState) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}

func (m *Metrics) ReconnectScheduled() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) ReconnectsExhausted() {
	if m == nil {
		return
	}
	m.exhausted.Inc()
}

func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.framesReceived.Inc()
}

func (m *Metrics) FrameMalformed() {
	if m == nil {
		return
	}
	m.framesMalformed.Inc()
}

func (m *Metrics) Dispatched(eventType string) {
	if m == nil {
		return
	}
	m.dispatched.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ConsumerFailed(eventType string) {
	if m == nil {
		return
	}
	m.consumerFailures.WithLabelValues(eventType).Inc()
}

func (m *Metrics) SendDropped(reason string) {
	if m == nil {
		return
	}
	m.sendsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) HeartbeatTimeout() {
	if m == nil {
		return
	}
	m.heartbeatTimeouts.Inc()
}

func (m *Metrics) HeartbeatRTT(d time.Duration) {
	if m == nil {
		return
	}
	m.heartbeatRTT.Observe(d.Seconds())
}

func (m *Metrics) ArchiveInserted(n int) {
	if m == nil {
		return
	}
	m.archiveInserts.Add(float64(n))
}

func (m *Metrics) ArchiveFailed() {
	if m == nil {
		return
	}
	m.archiveErrors.Inc()
}
