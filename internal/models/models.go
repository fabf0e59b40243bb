package models

import "time"

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single chat turn
type Message struct {
	ID         string    `json:"id"`
	Role       Role      `json:"role"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	Bookmarked bool      `json:"bookmarked,omitempty"`
}

// ConversationRecord is an archived conversation. Only Title and
// IncludedInMemory change after it is created.
type ConversationRecord struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Summary          string    `json:"summary"`
	Messages         []Message `json:"messages"`
	IncludedInMemory bool      `json:"includedInMemory"`
}

// State is the persisted state blob of one chat session
type State struct {
	Messages        []Message            `json:"messages"`
	Settings        Settings             `json:"settings"`
	Conversations   []ConversationRecord `json:"conversations"`
	LongTermSummary string               `json:"longTermSummary"`
}

// NewState returns an empty state with default settings.
func NewState() State {
	return State{
		Messages:      []Message{},
		Settings:      DefaultSettings(),
		Conversations: []ConversationRecord{},
	}
}
