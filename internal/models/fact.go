package models

import "time"

// FactCategory classifies an extracted fact
type FactCategory string

const (
	FactPersonal     FactCategory = "personal"
	FactChallenge    FactCategory = "challenge"
	FactGoal         FactCategory = "goal"
	FactRelationship FactCategory = "relationship"
	FactInsight      FactCategory = "insight"
	FactWork         FactCategory = "work"
	FactHealth       FactCategory = "health"
	FactHabit        FactCategory = "habit"
)

// Fact is derived from message history and never stored on its own.
type Fact struct {
	Category  FactCategory `json:"category"`
	Content   string       `json:"content"`
	Timestamp time.Time    `json:"timestamp"`
}
