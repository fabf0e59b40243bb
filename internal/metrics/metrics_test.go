package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordMessage("user")
	m.RecordMessage("user")
	m.RecordSafetyIntercept("crisis")
	m.RecordRejectedSend("config")
	m.RecordCompletion("groq", "success", 1500*time.Millisecond)
	m.RecordTokens("completion", 42)
	m.RecordTokens("completion", 0)
	m.RecordArchive()
	m.SetActiveSessions(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesTotal.WithLabelValues("user")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SafetyInterceptsTotal.WithLabelValues("crisis")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RejectedSendsTotal.WithLabelValues("config")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CompletionsTotal.WithLabelValues("groq", "success")))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TokensTotal.WithLabelValues("completion")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArchivesTotal))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ActiveSessions))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordMessage("user")
		m.RecordSafetyIntercept("abuse")
		m.RecordRejectedSend("usage")
		m.RecordCompletion("openai", "error", time.Second)
		m.RecordTokens("prompt", 10)
		m.RecordArchive()
		m.SetActiveSessions(1)
	})
}
