package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for sharing-session operations.
type Metrics struct {
	SessionsCreated   *prometheus.CounterVec
	SessionsActivated *prometheus.CounterVec
	SessionsCompleted *prometheus.CounterVec
	SessionsRevoked   *prometheus.CounterVec
	SessionsExpired   *prometheus.CounterVec
	ActiveSessions    prometheus.Gauge

	EnvelopeSizeBytes  prometheus.Histogram
	ReferenceFallbacks prometheus.Counter

	OperationLatency *prometheus.HistogramVec
}

// New registers and returns sharing metrics collectors.
func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofshare_sessions_created_total",
			Help: "Total number of sharing sessions created, labeled by session type",
		}, []string{"type"}),
		SessionsActivated: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofshare_sessions_activated_total",
			Help: "Total number of sharing sessions activated, labeled by session type",
		}, []string{"type"}),
		SessionsCompleted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofshare_sessions_completed_total",
			Help: "Total number of sharing sessions completed, labeled by session type",
		}, []string{"type"}),
		SessionsRevoked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofshare_sessions_revoked_total",
			Help: "Total number of sharing sessions revoked, labeled by session type",
		}, []string{"type"}),
		SessionsExpired: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "proofshare_sessions_expired_total",
			Help: "Total number of sharing sessions expired, labeled by session type",
		}, []string{"type"}),
		ActiveSessions: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "proofshare_active_sessions",
			Help: "Current number of non-terminal sharing sessions",
		}),
		EnvelopeSizeBytes: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "proofshare_envelope_size_bytes",
			Help:    "Serialized envelope sizes produced by the codec",
			Buckets: []float64{128, 256, 512, 1024, 2048, 2953, 4096, 8192},
		}),
		ReferenceFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "proofshare_reference_fallbacks_total",
			Help: "Total number of encodes that fell back to a reference envelope",
		}),
		OperationLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "proofshare_operation_latency_seconds",
			Help:    "Latency of session manager operations in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementCreated(sessionType string) {
	m.SessionsCreated.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) IncrementActivated(sessionType string) {
	m.SessionsActivated.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) IncrementCompleted(sessionType string) {
	m.SessionsCompleted.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) IncrementRevoked(sessionType string) {
	m.SessionsRevoked.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) IncrementExpired(sessionType string) {
	m.SessionsExpired.WithLabelValues(sessionType).Inc()
}

func (m *Metrics) SetActiveSessions(count int) {
	m.ActiveSessions.Set(float64(count))
}

func (m *Metrics) ObserveEnvelopeSize(bytes int) {
	m.EnvelopeSizeBytes.Observe(float64(bytes))
}

func (m *Metrics) ObserveOperationLatency(operation string, seconds float64) {
	m.OperationLatency.WithLabelValues(operation).Observe(seconds)
}
