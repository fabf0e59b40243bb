package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/conversation"
	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/memory"
	"github.com/xaenox/growth-hub/internal/metrics"
	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/prompt"
	"github.com/xaenox/growth-hub/internal/safety"
	"github.com/xaenox/growth-hub/internal/storage"
	"github.com/xaenox/growth-hub/internal/usage"
)

type fakeCompleter struct {
	mu       sync.Mutex
	requests []llm.Request
	resp     *llm.Response
	err      error

	started chan struct{}
	release chan struct{}
}

func (f *fakeCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.started != nil {
		close(f.started)
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.resp != nil {
		return f.resp, nil
	}
	return &llm.Response{Content: "What would a calmer you do next?", CompletionTokens: 9}, nil
}

func (f *fakeCompleter) calls() []llm.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llm.Request(nil), f.requests...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	tones []ToneKind
}

func (n *recordingNotifier) PlayTone(kind ToneKind) {
	n.mu.Lock()
	n.tones = append(n.tones, kind)
	n.mu.Unlock()
}

type fixture struct {
	store     *conversation.Store
	completer *fakeCompleter
	notifier  *recordingNotifier
	tracker   *usage.Tracker
	metrics   *metrics.Metrics
	orch      *Orchestrator
}

func newFixture(t *testing.T, configured bool, opts ...Option) *fixture {
	t.Helper()
	backend := storage.NewMemoryStorage()
	f := &fixture{
		store:     conversation.NewStore(conversation.NewBlobPersister(backend, conversation.SessionKey("1")), zap.NewNop()),
		completer: &fakeCompleter{},
		notifier:  &recordingNotifier{},
		tracker:   usage.NewTracker(backend, usage.Key("1"), usage.Limits{}, zap.NewNop()),
		metrics:   metrics.NewMetrics(prometheus.NewRegistry()),
	}
	if configured {
		f.store.UpdateSettings(func(s *models.Settings) {
			s.APIConfig = models.APIConfig{Provider: models.ProviderGroq, APIKey: "gsk-test-1234"}
		})
	}
	opts = append([]Option{WithNotifier(f.notifier), WithUsage(f.tracker), WithMetrics(f.metrics)}, opts...)
	f.orch = NewOrchestrator(f.store, f.completer, zap.NewNop(), opts...)
	return f
}

func TestSendEmptyMessage(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.orch.Send(context.Background(), "   \n")
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, f.store.Messages())
}

func TestSendCrisisIsIntercepted(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.orch.Send(context.Background(), "Honestly I want to die")
	require.NoError(t, err)
	assert.Equal(t, PhaseBlocked, res.Phase)
	assert.Equal(t, safety.Crisis, res.Verdict)

	msgs := f.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "Honestly I want to die", msgs[0].Content)
	assert.Equal(t, safety.CrisisResponse, msgs[1].Content)
	assert.Equal(t, safety.CrisisResponse, res.Reply.Content)

	assert.True(t, f.orch.CrisisWarning())
	assert.Empty(t, f.completer.calls())
	assert.Equal(t, []ToneKind{ToneSend, ToneReceive}, f.notifier.tones)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SafetyInterceptsTotal.WithLabelValues("crisis")))

	f.orch.DismissCrisisWarning()
	assert.False(t, f.orch.CrisisWarning())
}

func TestSendAbuseIsIntercepted(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.orch.Send(context.Background(), "He hits me when he drinks")
	require.NoError(t, err)
	assert.Equal(t, safety.Abuse, res.Verdict)
	assert.Equal(t, safety.AbuseResponse, f.store.Messages()[1].Content)
	assert.False(t, f.orch.CrisisWarning())
	assert.Empty(t, f.completer.calls())
}

func TestSendCrisisWinsOverAbuse(t *testing.T) {
	f := newFixture(t, true)

	res, err := f.orch.Send(context.Background(), "he hits me and I want to end it all")
	require.NoError(t, err)
	assert.Equal(t, safety.Crisis, res.Verdict)
	assert.Equal(t, safety.CrisisResponse, res.Reply.Content)
}

func TestSendWithoutConfig(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.orch.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrConfig)
	require.NotNil(t, res)
	assert.Equal(t, PhaseConfigMissing, res.Phase)
	assert.Equal(t, ConfigNotice, res.Notice)
	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.completer.calls())
	assert.Equal(t, 0, f.tracker.Get(context.Background()).TokensUsed)
}

func TestSendTrialExhausted(t *testing.T) {
	f := newFixture(t, true)
	f.tracker.RecordResponseTokens(context.Background(), usage.DefaultFreeTokens)

	res, err := f.orch.Send(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrTrialExhausted)
	require.NotNil(t, res)
	assert.Equal(t, PhaseExhausted, res.Phase)
	assert.Contains(t, res.Notice, "free credits")
	assert.Empty(t, f.store.Messages())
	assert.Empty(t, f.completer.calls())
}

func TestSendSuccess(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	f.store.AddMessage(models.RoleUser, "I want to quit drinking")
	f.store.ArchiveConversation(conversation.ArchiveOptions{IncludeInMemory: true})
	for i := 0; i < 15; i++ {
		f.store.AddMessage(models.RoleUser, fmt.Sprintf("question %d", i))
		f.store.AddMessage(models.RoleAssistant, fmt.Sprintf("answer %d", i))
	}

	text := "My boss yelled at me again today"
	res, err := f.orch.Send(ctx, text)
	require.NoError(t, err)
	assert.Equal(t, PhaseSuccess, res.Phase)
	assert.Equal(t, "What would a calmer you do next?", res.Reply.Content)
	assert.Equal(t, PhaseIdle, f.orch.Phase())

	calls := f.completer.calls()
	require.Len(t, calls, 1)
	req := calls[0]
	assert.Equal(t, models.ProviderGroq, req.Config.Provider)
	require.Len(t, req.Messages, 18)
	assert.Equal(t, text, req.Messages[17].Content)
	assert.Equal(t, models.RoleUser, req.Messages[17].Role)
	assert.Contains(t, req.SystemPrompt, prompt.LongTermHeader+"\n")
	assert.Contains(t, req.SystemPrompt, "I want to quit drinking")
	assert.Contains(t, req.SystemPrompt, memory.SummaryHeader)
	assert.Contains(t, req.SystemPrompt, "[work] "+text)

	msgs := f.store.Messages()
	require.Len(t, msgs, 32)
	assert.Equal(t, text, msgs[30].Content)
	assert.Equal(t, "What would a calmer you do next?", msgs[31].Content)

	u := f.tracker.Get(ctx)
	assert.Equal(t, usage.EstimateTokens(len(text))+9, u.TokensUsed)
	assert.Equal(t, 1, u.MessagesCount)
	assert.Equal(t, []ToneKind{ToneSend, ToneReceive}, f.notifier.tones)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CompletionsTotal.WithLabelValues("groq", "success")))
}

func TestSendEstimatesMissingCompletionTokens(t *testing.T) {
	f := newFixture(t, true)
	f.completer.resp = &llm.Response{Content: strings.Repeat("a", 40)}

	_, err := f.orch.Send(context.Background(), "abcd")
	require.NoError(t, err)
	assert.Equal(t, 1+10, f.tracker.Get(context.Background()).TokensUsed)
}

func TestSendProviderFailure(t *testing.T) {
	f := newFixture(t, true)
	providerErr := &llm.ProviderError{Provider: models.ProviderGroq, Message: "Invalid API Key gsk-test-1234"}
	f.completer.err = providerErr

	res, err := f.orch.Send(context.Background(), "hello there")
	require.Error(t, err)
	assert.True(t, errors.Is(err, providerErr))
	require.NotNil(t, res)
	assert.Equal(t, PhaseFailed, res.Phase)
	assert.Equal(t, "Invalid API Key [REDACTED]", res.Notice)

	msgs := f.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "hello there", msgs[0].Content)
	assert.Equal(t, FallbackReply, msgs[1].Content)
	assert.Equal(t, []ToneKind{ToneSend}, f.notifier.tones)
}

func TestSendTimeout(t *testing.T) {
	f := newFixture(t, true, WithTimeout(20*time.Millisecond))
	f.completer.release = make(chan struct{})

	res, err := f.orch.Send(context.Background(), "are you there?")
	assert.ErrorIs(t, err, ErrTimeout)
	require.NotNil(t, res)
	assert.Equal(t, TimeoutNotice, res.Notice)
	assert.Equal(t, FallbackReply, res.Reply.Content)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CompletionsTotal.WithLabelValues("groq", "timeout")))
}

func TestSendSingleFlight(t *testing.T) {
	f := newFixture(t, true)
	f.completer.started = make(chan struct{})
	f.completer.release = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Send(context.Background(), "first")
		done <- err
	}()

	<-f.completer.started
	assert.Equal(t, PhaseSending, f.orch.Phase())
	_, err := f.orch.Send(context.Background(), "second")
	assert.ErrorIs(t, err, ErrBusy)

	close(f.completer.release)
	require.NoError(t, <-done)

	msgs := f.store.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "first", msgs[0].Content)
}

func TestSendWithoutUsageGate(t *testing.T) {
	backend := storage.NewMemoryStorage()
	store := conversation.NewStore(conversation.NewBlobPersister(backend, conversation.StateKey), zap.NewNop())
	store.UpdateSettings(func(s *models.Settings) {
		s.APIConfig = models.APIConfig{Provider: models.ProviderOpenAI, APIKey: "sk-test-1234"}
	})
	orch := NewOrchestrator(store, &fakeCompleter{}, zap.NewNop())

	res, err := orch.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, PhaseSuccess, res.Phase)
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "idle", PhaseIdle.String())
	assert.Equal(t, "config_missing", PhaseConfigMissing.String())
	assert.Equal(t, "unknown", Phase(99).String())
}

func TestDisclaimers(t *testing.T) {
	d := Disclaimers()
	require.Len(t, d, 3)
	assert.True(t, strings.HasPrefix(d[0], "Growth Hub provides"))
	assert.Contains(t, d[1], "988")
}
