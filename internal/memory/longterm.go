package memory

import (
	"strings"
	"unicode/utf8"

	"github.com/xaenox/growth-hub/internal/models"
)

// MaxLongTermChars caps the long-term summary, counted in characters.
const MaxLongTermChars = 4000

const summarySeparator = "\n\n"

// MergeLongTerm appends summary to the existing long-term text and caps the
// result. Empty summaries leave the text untouched.
func MergeLongTerm(existing, summary string) string {
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return CapLongTerm(existing)
	}
	if existing == "" {
		return CapLongTerm(summary)
	}
	return CapLongTerm(existing + summarySeparator + summary)
}

// RebuildLongTerm concatenates the summaries of every conversation that is
// included in memory, oldest first, and caps the result.
func RebuildLongTerm(records []models.ConversationRecord) string {
	parts := make([]string, 0, len(records))
	for _, r := range records {
		if !r.IncludedInMemory {
			continue
		}
		if s := strings.TrimSpace(r.Summary); s != "" {
			parts = append(parts, s)
		}
	}
	return CapLongTerm(strings.Join(parts, summarySeparator))
}

// CapLongTerm keeps the newest MaxLongTermChars characters of text. The
// oldest content is dropped first.
func CapLongTerm(text string) string {
	n := utf8.RuneCountInString(text)
	if n <= MaxLongTermChars {
		return text
	}
	drop := n - MaxLongTermChars
	for i := range text {
		if drop == 0 {
			return text[i:]
		}
		drop--
	}
	return ""
}
