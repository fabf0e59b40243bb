// Package chat runs one send through the safety scan, the configuration and
// usage gates, prompt assembly and the completion call.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/memory"
	"github.com/xaenox/growth-hub/internal/metrics"
	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/prompt"
	"github.com/xaenox/growth-hub/internal/redact"
	"github.com/xaenox/growth-hub/internal/safety"
	"github.com/xaenox/growth-hub/internal/usage"
)

const (
	// DefaultTimeout bounds one completion call.
	DefaultTimeout = 30 * time.Second

	// contextWindow is how many of the newest messages are sent.
	contextWindow = 18

	FallbackReply  = "I'm having trouble connecting right now. Please check your API settings, model choice, or provider status and try again."
	TimeoutNotice  = "The request timed out. Try again or switch providers."
	ConfigNotice   = "Please configure your API in Settings first."
	ProviderNotice = "The provider returned an error. Double-check your API key, model, and rate limits."
)

var (
	ErrEmptyMessage   = errors.New("message is empty")
	ErrBusy           = errors.New("a message is already being sent")
	ErrConfig         = errors.New("API provider or key not configured")
	ErrTrialExhausted = errors.New("free trial exhausted")
	ErrTimeout        = errors.New("request timed out")
)

// Completer sends a completion request.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Conversation is the state a send reads and appends to.
type Conversation interface {
	AddMessage(role models.Role, content string) models.Message
	Messages() []models.Message
	Settings() models.Settings
	LongTermSummary() string
}

// UsageGate charges and limits token usage.
type UsageGate interface {
	Allow(ctx context.Context) bool
	RecordMessageUsage(ctx context.Context, length int) models.UsageData
	RecordResponseTokens(ctx context.Context, tokens int) models.UsageData
}

// Result describes a finished send. Phase is one of PhaseBlocked,
// PhaseConfigMissing, PhaseExhausted, PhaseSuccess or PhaseFailed.
type Result struct {
	Phase   Phase
	Verdict safety.Verdict
	Reply   *models.Message
	// Notice is a banner for the user, set on failures and gates.
	Notice string
}

type Option func(*Orchestrator)

// WithUsage enables the trial gate. Without it sends are never limited.
func WithUsage(gate UsageGate) Option {
	return func(o *Orchestrator) {
		o.usage = gate
	}
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) {
		o.notifier = n
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) {
		o.metrics = m
	}
}

func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Orchestrator serves one single-user session. At most one send is in flight
// at a time.
type Orchestrator struct {
	conv      Conversation
	completer Completer
	usage     UsageGate
	notifier  Notifier
	metrics   *metrics.Metrics
	logger    *zap.Logger
	timeout   time.Duration

	inFlight sync.Mutex

	mu            sync.Mutex
	phase         Phase
	crisisWarning bool
}

func NewOrchestrator(conv Conversation, completer Completer, logger *zap.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		conv:      conv,
		completer: completer,
		notifier:  nopNotifier{},
		logger:    logger,
		timeout:   DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Orchestrator) setPhase(p Phase) {
	o.mu.Lock()
	o.phase = p
	o.mu.Unlock()
}

// Phase returns the phase of the send in progress, or PhaseIdle.
func (o *Orchestrator) Phase() Phase {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// CrisisWarning reports whether a crisis was detected and not yet dismissed.
func (o *Orchestrator) CrisisWarning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.crisisWarning
}

func (o *Orchestrator) DismissCrisisWarning() {
	o.mu.Lock()
	o.crisisWarning = false
	o.mu.Unlock()
}

func (o *Orchestrator) addMessage(role models.Role, content string) models.Message {
	msg := o.conv.AddMessage(role, content)
	o.metrics.RecordMessage(string(role))
	return msg
}

// Send processes one user message. A non-nil Result is returned for every
// send that got past the busy check, including failed ones.
func (o *Orchestrator) Send(ctx context.Context, text string) (*Result, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if !o.inFlight.TryLock() {
		return nil, ErrBusy
	}
	defer o.inFlight.Unlock()
	defer o.setPhase(PhaseIdle)

	o.setPhase(PhaseSafetyCheck)
	history := o.conv.Messages()

	if verdict := safety.Scan(text); verdict != safety.None {
		return o.intercept(text, verdict), nil
	}

	o.setPhase(PhaseConfigCheck)
	settings := o.conv.Settings()
	if !settings.APIConfig.Configured() {
		o.setPhase(PhaseConfigMissing)
		o.metrics.RecordRejectedSend("config")
		return &Result{Phase: PhaseConfigMissing, Notice: ConfigNotice}, ErrConfig
	}

	o.setPhase(PhaseUsageCheck)
	if o.usage != nil && !o.usage.Allow(ctx) {
		o.setPhase(PhaseExhausted)
		o.metrics.RecordRejectedSend("usage")
		o.logger.Info("Send rejected, trial exhausted")
		return &Result{Phase: PhaseExhausted, Notice: CreditsExhaustedNotice()}, ErrTrialExhausted
	}

	o.setPhase(PhaseSending)
	userMsg := o.addMessage(models.RoleUser, text)
	o.notifier.PlayTone(ToneSend)
	if o.usage != nil {
		o.usage.RecordMessageUsage(ctx, utf8.RuneCountInString(text))
		o.metrics.RecordTokens("estimated", usage.EstimateTokens(utf8.RuneCountInString(text)))
	}

	pending := append(history, userMsg)
	systemPrompt := prompt.Build(
		settings.PersonaConfig,
		settings.UserProfile,
		o.conv.LongTermSummary(),
		memory.Summarize(pending),
	)
	window := pending
	if len(window) > contextWindow {
		window = window[len(window)-contextWindow:]
	}

	callCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	provider := string(settings.APIConfig.Provider)
	start := time.Now()
	resp, err := o.completer.Complete(callCtx, llm.Request{
		Config:       settings.APIConfig,
		SystemPrompt: systemPrompt,
		Messages:     window,
	})
	if err != nil {
		timedOut := errors.Is(err, llm.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
		status := "error"
		if timedOut {
			status = "timeout"
		}
		o.metrics.RecordCompletion(provider, status, time.Since(start))
		return o.fail(err, timedOut, settings.APIConfig.APIKey)
	}
	o.metrics.RecordCompletion(provider, "success", time.Since(start))

	o.setPhase(PhaseSuccess)
	reply := o.addMessage(models.RoleAssistant, resp.Content)
	o.notifier.PlayTone(ToneReceive)

	tokens := resp.CompletionTokens
	if tokens <= 0 {
		tokens = usage.EstimateTokens(utf8.RuneCountInString(resp.Content))
	}
	if o.usage != nil {
		o.usage.RecordResponseTokens(ctx, tokens)
	}
	o.metrics.RecordTokens("prompt", resp.PromptTokens)
	o.metrics.RecordTokens("completion", tokens)

	o.logger.Debug("Reply received",
		zap.String("provider", provider),
		zap.Int("window", len(window)),
		zap.Int("completion_tokens", tokens),
		zap.Duration("elapsed", time.Since(start)))

	return &Result{Phase: PhaseSuccess, Reply: &reply}, nil
}

// intercept answers with the fixed resource message instead of the model.
func (o *Orchestrator) intercept(text string, verdict safety.Verdict) *Result {
	o.setPhase(PhaseBlocked)

	o.addMessage(models.RoleUser, text)
	reply := o.addMessage(models.RoleAssistant, verdict.Response())
	if verdict == safety.Crisis {
		o.mu.Lock()
		o.crisisWarning = true
		o.mu.Unlock()
	}
	o.notifier.PlayTone(ToneSend)
	o.notifier.PlayTone(ToneReceive)

	o.metrics.RecordSafetyIntercept(verdict.String())
	o.logger.Warn("Safety intercept", zap.String("verdict", verdict.String()))

	return &Result{Phase: PhaseBlocked, Verdict: verdict, Reply: &reply}
}

func (o *Orchestrator) fail(err error, timedOut bool, apiKey string) (*Result, error) {
	o.setPhase(PhaseFailed)
	reply := o.addMessage(models.RoleAssistant, FallbackReply)

	res := &Result{Phase: PhaseFailed, Reply: &reply}
	if timedOut {
		res.Notice = TimeoutNotice
		o.logger.Warn("Completion timed out", zap.Duration("timeout", o.timeout))
		return res, fmt.Errorf("send message: %w", ErrTimeout)
	}

	res.Notice = redact.String(err.Error(), apiKey)
	if res.Notice == "" {
		res.Notice = ProviderNotice
	}
	o.logger.Error("Completion failed", zap.String("error", res.Notice))
	return res, fmt.Errorf("send message: %w", err)
}
