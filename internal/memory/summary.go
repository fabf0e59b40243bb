package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xaenox/growth-hub/internal/models"
)

const (
	// SummaryHeader opens every rendered context summary.
	SummaryHeader = "## Recent Context:"

	// recentFactWindow bounds how many of the newest facts are considered.
	recentFactWindow = 50

	// MaxSummaryFacts is the number of bullet lines in a summary.
	MaxSummaryFacts = 10
)

// categoryPriority orders categories for the summary, lowest first.
var categoryPriority = map[models.FactCategory]int{
	models.FactPersonal:     0,
	models.FactGoal:         1,
	models.FactRelationship: 2,
	models.FactWork:         3,
	models.FactHealth:       4,
	models.FactHabit:        5,
	models.FactChallenge:    6,
	models.FactInsight:      7,
}

func priorityOf(c models.FactCategory) int {
	if p, ok := categoryPriority[c]; ok {
		return p
	}
	return len(categoryPriority)
}

// BuildContextSummary renders the highest priority facts among the most
// recent ones as a bulleted block. Ties on priority keep chronological order,
// so an older personal fact outranks a newer challenge. Returns "" for no
// facts.
func BuildContextSummary(facts []models.Fact) string {
	if len(facts) == 0 {
		return ""
	}

	recent := facts
	if len(recent) > recentFactWindow {
		recent = recent[len(recent)-recentFactWindow:]
	}

	selected := make([]models.Fact, len(recent))
	copy(selected, recent)
	sort.SliceStable(selected, func(i, j int) bool {
		pi, pj := priorityOf(selected[i].Category), priorityOf(selected[j].Category)
		if pi != pj {
			return pi < pj
		}
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	})
	if len(selected) > MaxSummaryFacts {
		selected = selected[:MaxSummaryFacts]
	}

	var b strings.Builder
	b.WriteString(SummaryHeader)
	for _, f := range selected {
		fmt.Fprintf(&b, "\n- [%s] %s", f.Category, f.Content)
	}
	return b.String()
}

// Summarize is ExtractFacts followed by BuildContextSummary.
func Summarize(messages []models.Message) string {
	return BuildContextSummary(ExtractFacts(messages))
}
