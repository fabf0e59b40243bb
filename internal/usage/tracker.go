// Package usage estimates token consumption and enforces the free trial and
// paid tier limits.
package usage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/storage"
)

const (
	// StateKey is the storage key of the usage blob.
	StateKey = "growth-hub-usage"

	DefaultFreeTokens = 1000
	DefaultPaidTokens = 10000
)

var ErrInvalidEmail = errors.New("a valid email address is required")

// Limits sets the free trial allowance and how much an upgrade adds.
type Limits struct {
	FreeTokens int
	PaidTokens int
}

func (l Limits) withDefaults() Limits {
	if l.FreeTokens <= 0 {
		l.FreeTokens = DefaultFreeTokens
	}
	if l.PaidTokens <= 0 {
		l.PaidTokens = DefaultPaidTokens
	}
	return l
}

// Summary is the usage view shown to the user.
type Summary struct {
	TokensUsed      int
	TokensRemaining int
	TokensLimit     int
	WordsUsed       int
	WordsRemaining  int
	MessagesCount   int
	IsTrialActive   bool
	IsPaid          bool
	TrialStartedAt  *time.Time
}

// Key returns the usage key for one chat session.
func Key(session string) string {
	if session == "" {
		return StateKey
	}
	return StateKey + ":" + session
}

// EstimateTokens approximates one token per four characters, rounded up.
func EstimateTokens(length int) int {
	if length <= 0 {
		return 0
	}
	return (length + 3) / 4
}

// EstimateWords converts tokens to words at 0.75 words per token.
func EstimateWords(tokens int) int {
	return int(math.Round(float64(tokens) * 0.75))
}

// Tracker keeps the usage blob of one session. Reads never fail: an
// unreadable blob is logged and replaced by a fresh trial. Tracker is safe
// for concurrent use.
type Tracker struct {
	mu     sync.Mutex
	store  storage.Storage
	key    string
	limits Limits
	logger *zap.Logger
	now    func() time.Time
}

func NewTracker(store storage.Storage, key string, limits Limits, logger *zap.Logger) *Tracker {
	return &Tracker{
		store:  store,
		key:    key,
		limits: limits.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

func (t *Tracker) fresh() models.UsageData {
	return models.UsageData{
		IsTrialActive:   true,
		TotalTokenLimit: t.limits.FreeTokens,
	}
}

// load must be called with mu held.
func (t *Tracker) load(ctx context.Context) models.UsageData {
	data, err := t.store.Get(ctx, t.key)
	if errors.Is(err, storage.ErrNotFound) {
		return t.fresh()
	}
	if err != nil {
		t.logger.Warn("Failed to load usage data", zap.String("key", t.key), zap.Error(err))
		return t.fresh()
	}

	var usage models.UsageData
	if err := json.Unmarshal(data, &usage); err != nil {
		t.logger.Warn("Failed to parse usage data", zap.String("key", t.key), zap.Error(err))
		return t.fresh()
	}
	return usage
}

// save must be called with mu held. Failures are logged only.
func (t *Tracker) save(ctx context.Context, usage models.UsageData) {
	data, err := json.Marshal(usage)
	if err != nil {
		t.logger.Error("Failed to encode usage data", zap.Error(err))
		return
	}
	if err := t.store.Put(ctx, t.key, data); err != nil {
		t.logger.Error("Failed to save usage data", zap.String("key", t.key), zap.Error(err))
	}
}

func (t *Tracker) update(ctx context.Context, fn func(*models.UsageData)) models.UsageData {
	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.load(ctx)
	fn(&usage)
	t.save(ctx, usage)
	return usage
}

func (t *Tracker) Get(ctx context.Context) models.UsageData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.load(ctx)
}

// InitializeTrial starts the trial and records the email. A trial that has
// already started is returned unchanged.
func (t *Tracker) InitializeTrial(ctx context.Context, email string) (models.UsageData, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return models.UsageData{}, fmt.Errorf("initialize trial: %w", ErrInvalidEmail)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	usage := t.load(ctx)
	if usage.TrialStartedAt != nil {
		return usage, nil
	}
	started := t.now()
	usage.TrialStartedAt = &started
	usage.IsTrialActive = true
	usage.Email = email
	t.save(ctx, usage)

	t.logger.Info("Trial started", zap.String("key", t.key))
	return usage, nil
}

// UpgradeToPaid marks the session as paid and raises the limit.
func (t *Tracker) UpgradeToPaid(ctx context.Context) models.UsageData {
	usage := t.update(ctx, func(u *models.UsageData) {
		u.IsPaid = true
		u.TotalTokenLimit += t.limits.PaidTokens
		u.IsTrialActive = u.TokensUsed < u.TotalTokenLimit
	})
	t.logger.Info("Upgraded to paid tier",
		zap.String("key", t.key),
		zap.Int("token_limit", usage.TotalTokenLimit))
	return usage
}

// RecordMessageUsage charges the estimate for an outgoing message of the
// given length and counts the message. It starts the trial clock if needed.
func (t *Tracker) RecordMessageUsage(ctx context.Context, length int) models.UsageData {
	return t.update(ctx, func(u *models.UsageData) {
		if u.TrialStartedAt == nil {
			started := t.now()
			u.TrialStartedAt = &started
		}
		u.TokensUsed += EstimateTokens(length)
		u.MessagesCount++
		u.IsTrialActive = u.TokensUsed < u.TotalTokenLimit
	})
}

// RecordResponseTokens charges tokens reported by the provider.
func (t *Tracker) RecordResponseTokens(ctx context.Context, tokens int) models.UsageData {
	if tokens < 0 {
		tokens = 0
	}
	return t.update(ctx, func(u *models.UsageData) {
		u.TokensUsed += tokens
		u.IsTrialActive = u.TokensUsed < u.TotalTokenLimit
	})
}

func remaining(u models.UsageData) int {
	if rem := u.TotalTokenLimit - u.TokensUsed; rem > 0 {
		return rem
	}
	return 0
}

// Remaining returns the tokens left, never below zero.
func (t *Tracker) Remaining(ctx context.Context) int {
	return remaining(t.Get(ctx))
}

// IsExhausted reports whether usage has reached the limit.
func (t *Tracker) IsExhausted(ctx context.Context) bool {
	u := t.Get(ctx)
	return u.TokensUsed >= u.TotalTokenLimit
}

// Allow reports whether another message may be sent. It consumes nothing.
func (t *Tracker) Allow(ctx context.Context) bool {
	return !t.IsExhausted(ctx)
}

func (t *Tracker) Summary(ctx context.Context) Summary {
	u := t.Get(ctx)
	rem := remaining(u)
	return Summary{
		TokensUsed:      u.TokensUsed,
		TokensRemaining: rem,
		TokensLimit:     u.TotalTokenLimit,
		WordsUsed:       EstimateWords(u.TokensUsed),
		WordsRemaining:  EstimateWords(rem),
		MessagesCount:   u.MessagesCount,
		IsTrialActive:   u.IsTrialActive,
		IsPaid:          u.IsPaid,
		TrialStartedAt:  u.TrialStartedAt,
	}
}

// Reset deletes the usage blob so the next read starts a fresh trial.
func (t *Tracker) Reset(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.store.Delete(ctx, t.key); err != nil {
		return fmt.Errorf("reset usage: %w", err)
	}
	return nil
}
