// Package session wires a conversation store, usage tracker and orchestrator
// for each chat and keeps them for the life of the process.
package session

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/chat"
	"github.com/xaenox/growth-hub/internal/conversation"
	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/metrics"
	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/storage"
	"github.com/xaenox/growth-hub/internal/usage"
)

// Options are shared by every session.
type Options struct {
	// Defaults seeds the API settings of sessions that have none.
	Defaults     models.APIConfig
	UsageEnabled bool
	Limits       usage.Limits
	Timeout      time.Duration
}

type Session struct {
	ID    string
	Store *conversation.Store
	Usage *usage.Tracker
	Chat  *chat.Orchestrator

	metrics *metrics.Metrics
}

// Archive saves the current conversation and starts a fresh one. It returns
// nil when there was nothing to save.
func (s *Session) Archive(includeInMemory bool) *models.ConversationRecord {
	record := s.Store.ArchiveConversation(conversation.ArchiveOptions{IncludeInMemory: includeInMemory})
	if record != nil {
		s.metrics.RecordArchive()
	}
	return record
}

type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session

	backend storage.Storage
	client  *llm.Client
	opts    Options
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewManager(backend storage.Storage, client *llm.Client, opts Options, m *metrics.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		backend:  backend,
		client:   client,
		opts:     opts,
		metrics:  m,
		logger:   logger,
	}
}

// Client returns the completion client shared by all sessions.
func (m *Manager) Client() *llm.Client {
	return m.client
}

// Get returns the session for id, loading it on first use. notifier is only
// used when the session is created.
func (m *Manager) Get(id string, notifier chat.Notifier) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}

	logger := m.logger.With(zap.String("session", id))
	store := conversation.NewStore(
		conversation.NewBlobPersister(m.backend, conversation.SessionKey(id)),
		logger,
	)
	if !store.Settings().APIConfig.Configured() && m.opts.Defaults.Configured() {
		store.UpdateSettings(func(s *models.Settings) {
			s.APIConfig = m.opts.Defaults
		})
	}

	tracker := usage.NewTracker(m.backend, usage.Key(id), m.opts.Limits, logger)

	opts := []chat.Option{
		chat.WithMetrics(m.metrics),
		chat.WithTimeout(m.opts.Timeout),
	}
	if notifier != nil {
		opts = append(opts, chat.WithNotifier(notifier))
	}
	if m.opts.UsageEnabled {
		opts = append(opts, chat.WithUsage(tracker))
	}

	s := &Session{
		ID:    id,
		Store: store,
		Usage: tracker,
		Chat:  chat.NewOrchestrator(store, m.client, logger, opts...),

		metrics: m.metrics,
	}
	m.sessions[id] = s
	m.metrics.SetActiveSessions(len(m.sessions))

	logger.Info("Session loaded",
		zap.Int("messages", len(store.Messages())),
		zap.Int("conversations", len(store.Conversations())))
	return s
}

// Len returns the number of loaded sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
