// Package memory turns message history into the bounded context blocks that
// are injected into the system prompt: per-session fact summaries and the
// capped long-term summary built from archived conversations.
package memory

import (
	"strings"

	"github.com/xaenox/growth-hub/internal/models"
)

// trigger maps one category to the phrases that mark a message as a fact of
// that category. Matching is a lower-cased substring test.
type trigger struct {
	category models.FactCategory
	phrases  []string
}

// userTriggers is scanned in order for every user message. Adding a category
// only needs a new row here.
var userTriggers = []trigger{
	{models.FactPersonal, []string{"my name is", "i'm ", "i am "}},
	{models.FactChallenge, []string{"struggle", "difficult", "hard", "problem"}},
	{models.FactGoal, []string{
		"want to", "goal", "trying to", "working on",
		"hope to", "hoping to", "aiming to", "my dream is",
	}},
	{models.FactRelationship, []string{"wife", "girlfriend", "partner", "relationship"}},
	{models.FactWork, []string{"job", "work", "career", "boss", "company", "business"}},
	{models.FactHealth, []string{
		"anxiety", "anxious", "depressed", "panic", "burnout",
		"stressed", "mental health", "health",
	}},
	{models.FactHabit, []string{"habit", "routine", "discipline", "every day", "daily", "consistency"}},
}

// assistantTriggers picks up observations the coach made about the user.
var assistantTriggers = []trigger{
	{models.FactInsight, []string{"pattern", "notice", "seems like", "it sounds like"}},
}

// ExtractFacts scans messages and returns one fact per matching category per
// message, in message order. It has no side effects.
//
// There is no negation handling: "I don't want to quit" is still a goal.
func ExtractFacts(messages []models.Message) []models.Fact {
	var facts []models.Fact
	for _, msg := range messages {
		var table []trigger
		switch msg.Role {
		case models.RoleUser:
			table = userTriggers
		case models.RoleAssistant:
			table = assistantTriggers
		default:
			continue
		}

		content := strings.ToLower(msg.Content)
		for _, t := range table {
			if containsAny(content, t.phrases) {
				facts = append(facts, models.Fact{
					Category:  t.category,
					Content:   msg.Content,
					Timestamp: msg.Timestamp,
				})
			}
		}
	}
	return facts
}

func containsAny(content string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(content, p) {
			return true
		}
	}
	return false
}
