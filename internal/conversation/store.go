// Package conversation owns the live message list, the archive of past
// conversations and the long-term summary built from them.
package conversation

import (
	"errors"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/memory"
	"github.com/xaenox/growth-hub/internal/models"
)

const (
	// MaxMessages bounds the live message list.
	MaxMessages = 200

	// MaxArchivedMessages is how many of the newest messages an archived
	// record keeps.
	MaxArchivedMessages = 30

	maxTitleChars = 60
)

// ErrConversationNotFound is returned for an unknown record ID.
var ErrConversationNotFound = errors.New("conversation not found")

// ArchiveOptions controls ArchiveConversation.
type ArchiveOptions struct {
	IncludeInMemory bool
}

// Store holds the state of one chat session. Every mutation writes the whole
// state through the Persister. Store is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	state     models.State
	persister Persister
	logger    *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewStore loads the persisted state. Load failures are logged and the store
// starts empty.
func NewStore(persister Persister, logger *zap.Logger) *Store {
	s := &Store{
		persister: persister,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return uuid.New().String() },
	}

	state, err := persister.Load()
	if err != nil {
		logger.Warn("Failed to load state, starting fresh", zap.Error(err))
		state = models.NewState()
	}
	s.state = normalize(state)
	return s
}

func normalize(state models.State) models.State {
	if state.Messages == nil {
		state.Messages = []models.Message{}
	}
	if state.Conversations == nil {
		state.Conversations = []models.ConversationRecord{}
	}
	if len(state.Messages) > MaxMessages {
		state.Messages = state.Messages[len(state.Messages)-MaxMessages:]
	}
	state.LongTermSummary = memory.CapLongTerm(state.LongTermSummary)
	return state
}

// persist must be called with mu held. Write failures never propagate.
func (s *Store) persist() {
	if err := s.persister.Save(s.state); err != nil {
		s.logger.Error("Failed to save state", zap.Error(err))
	}
}

// AddMessage appends a message with a fresh ID and timestamp and keeps only
// the newest MaxMessages.
func (s *Store) AddMessage(role models.Role, content string) models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:        s.newID(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	s.state.Messages = append(s.state.Messages, msg)
	if len(s.state.Messages) > MaxMessages {
		s.state.Messages = append([]models.Message(nil), s.state.Messages[len(s.state.Messages)-MaxMessages:]...)
	}
	s.persist()
	return msg
}

// Messages returns a copy of the live message list.
func (s *Store) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return copyMessages(s.state.Messages)
}

// ClearMessages drops the live messages without archiving them.
func (s *Store) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Messages = []models.Message{}
	s.persist()
}

// ToggleBookmark flips the bookmark flag of a live message.
func (s *Store) ToggleBookmark(id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.state.Messages {
		if s.state.Messages[i].ID == id {
			s.state.Messages[i].Bookmarked = !s.state.Messages[i].Bookmarked
			s.persist()
			return s.state.Messages[i].Bookmarked, nil
		}
	}
	return false, errors.New("message not found")
}

// ArchiveConversation turns the live messages into a ConversationRecord and
// clears them. It returns nil and changes nothing when there are no messages.
func (s *Store) ArchiveConversation(opts ArchiveOptions) *models.ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.state.Messages) == 0 {
		return nil
	}

	now := s.now()
	kept := s.state.Messages
	if len(kept) > MaxArchivedMessages {
		kept = kept[len(kept)-MaxArchivedMessages:]
	}

	record := models.ConversationRecord{
		ID:               s.newID(),
		Title:            autoTitle(s.state.Messages, now),
		CreatedAt:        now,
		UpdatedAt:        now,
		Summary:          memory.Summarize(s.state.Messages),
		Messages:         copyMessages(kept),
		IncludedInMemory: opts.IncludeInMemory,
	}

	s.state.Conversations = append(s.state.Conversations, record)
	if opts.IncludeInMemory {
		s.state.LongTermSummary = memory.MergeLongTerm(s.state.LongTermSummary, record.Summary)
	}
	s.state.Messages = []models.Message{}
	s.persist()

	s.logger.Info("Conversation archived",
		zap.String("conversation_id", record.ID),
		zap.Int("messages", len(record.Messages)),
		zap.Bool("included_in_memory", record.IncludedInMemory),
		zap.Int("summary_len", len(record.Summary)))

	out := copyRecord(record)
	return &out
}

// autoTitle uses the first user message, cut to 60 characters, or the
// archive time when the user never spoke.
func autoTitle(messages []models.Message, now time.Time) string {
	for _, m := range messages {
		if m.Role != models.RoleUser {
			continue
		}
		text := strings.TrimSpace(m.Content)
		if text == "" {
			continue
		}
		if utf8.RuneCountInString(text) > maxTitleChars {
			text = string([]rune(text)[:maxTitleChars])
		}
		return text
	}
	return "Conversation " + now.Format("Jan 2, 2006 3:04 PM")
}

// LoadConversation replaces the live messages with the record's stored
// subset. Messages older than the subset are not recovered.
func (s *Store) LoadConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrConversationNotFound
	}
	s.state.Messages = copyMessages(s.state.Conversations[i].Messages)
	s.persist()
	return nil
}

// SetConversationMemoryFlag includes or excludes a record from long-term
// memory and rebuilds the long-term summary.
func (s *Store) SetConversationMemoryFlag(id string, included bool) error {
	return s.updateRecord(id, func(r *models.ConversationRecord) {
		r.IncludedInMemory = included
	})
}

// RenameConversation sets a record's title and rebuilds the long-term summary.
func (s *Store) RenameConversation(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return errors.New("title must not be empty")
	}
	return s.updateRecord(id, func(r *models.ConversationRecord) {
		r.Title = title
	})
}

func (s *Store) updateRecord(id string, fn func(*models.ConversationRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrConversationNotFound
	}
	fn(&s.state.Conversations[i])
	s.state.Conversations[i].UpdatedAt = s.now()
	s.state.LongTermSummary = memory.RebuildLongTerm(s.state.Conversations)
	s.persist()
	return nil
}

// DeleteConversation removes a record and rebuilds the long-term summary.
func (s *Store) DeleteConversation(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return ErrConversationNotFound
	}
	s.state.Conversations = append(s.state.Conversations[:i:i], s.state.Conversations[i+1:]...)
	s.state.LongTermSummary = memory.RebuildLongTerm(s.state.Conversations)
	s.persist()
	return nil
}

// Conversations returns copies of the archived records, oldest first.
func (s *Store) Conversations() []models.ConversationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.ConversationRecord, len(s.state.Conversations))
	for i, r := range s.state.Conversations {
		out[i] = copyRecord(r)
	}
	return out
}

// Conversation returns one archived record.
func (s *Store) Conversation(id string) (models.ConversationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return models.ConversationRecord{}, ErrConversationNotFound
	}
	return copyRecord(s.state.Conversations[i]), nil
}

// LongTermSummary returns the capped summary of included conversations.
func (s *Store) LongTermSummary() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.LongTermSummary
}

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Settings
}

// UpdateSettings applies fn to the settings, clamps the persona sliders and
// persists.
func (s *Store) UpdateSettings(fn func(*models.Settings)) models.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&s.state.Settings)
	s.state.Settings.PersonaConfig = s.state.Settings.PersonaConfig.Clamp()
	s.persist()
	return s.state.Settings
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() models.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := s.state
	state.Messages = copyMessages(s.state.Messages)
	state.Conversations = make([]models.ConversationRecord, len(s.state.Conversations))
	for i, r := range s.state.Conversations {
		state.Conversations[i] = copyRecord(r)
	}
	return state
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.state.Conversations {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func copyMessages(msgs []models.Message) []models.Message {
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}

func copyRecord(r models.ConversationRecord) models.ConversationRecord {
	r.Messages = copyMessages(r.Messages)
	return r
}
