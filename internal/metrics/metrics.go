// Package metrics provides Prometheus metrics for the chat pipeline
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "growthhub"

// Metrics holds all Prometheus metrics. A nil *Metrics records nothing.
type Metrics struct {
	// Pipeline metrics
	MessagesTotal         *prometheus.CounterVec
	SafetyInterceptsTotal *prometheus.CounterVec
	RejectedSendsTotal    *prometheus.CounterVec

	// Completion metrics
	CompletionsTotal   *prometheus.CounterVec
	CompletionDuration *prometheus.HistogramVec
	TokensTotal        *prometheus.CounterVec

	// Memory metrics
	ArchivesTotal  prometheus.Counter
	ActiveSessions prometheus.Gauge
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	m := &Metrics{}

	m.MessagesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_total",
			Help:      "Total number of messages appended to conversations",
		},
		[]string{"role"},
	)

	m.SafetyInterceptsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "safety_intercepts_total",
			Help:      "Total number of messages answered with a safety resource message",
		},
		[]string{"verdict"},
	)

	m.RejectedSendsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejected_sends_total",
			Help:      "Total number of sends rejected before reaching a provider",
		},
		[]string{"reason"},
	)

	m.CompletionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Total number of completion requests",
		},
		[]string{"provider", "status"},
	)

	m.CompletionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Duration of completion requests in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	m.TokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_total",
			Help:      "Total number of tokens charged against usage",
		},
		[]string{"kind"},
	)

	m.ArchivesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversation_archives_total",
			Help:      "Total number of archived conversations",
		},
	)

	m.ActiveSessions = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of chat sessions loaded in memory",
		},
	)

	return m
}

// RecordMessage counts one appended message
func (m *Metrics) RecordMessage(role string) {
	if m == nil {
		return
	}
	m.MessagesTotal.WithLabelValues(role).Inc()
}

// RecordSafetyIntercept counts a crisis or abuse intercept
func (m *Metrics) RecordSafetyIntercept(verdict string) {
	if m == nil {
		return
	}
	m.SafetyInterceptsTotal.WithLabelValues(verdict).Inc()
}

// RecordRejectedSend counts a send stopped by the config or usage gate
func (m *Metrics) RecordRejectedSend(reason string) {
	if m == nil {
		return
	}
	m.RejectedSendsTotal.WithLabelValues(reason).Inc()
}

// RecordCompletion records a completion request with its status
func (m *Metrics) RecordCompletion(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.CompletionsTotal.WithLabelValues(provider, status).Inc()
	m.CompletionDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordTokens(kind string, tokens int) {
	if m == nil || tokens <= 0 {
		return
	}
	m.TokensTotal.WithLabelValues(kind).Add(float64(tokens))
}

func (m *Metrics) RecordArchive() {
	if m == nil {
		return
	}
	m.ArchivesTotal.Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.ActiveSessions.Set(float64(n))
}
