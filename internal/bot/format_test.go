package bot

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/usage"
)

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `Hello\! \(1\.5\) \#tag\_x`, escapeMarkdown("Hello! (1.5) #tag_x"))
	assert.Equal(t, `a\\b`, escapeMarkdown(`a\b`))
}

func TestParseIndex(t *testing.T) {
	i, err := parseIndex("2", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, i)

	_, err = parseIndex("0", 3)
	assert.Error(t, err)
	_, err = parseIndex("4", 3)
	assert.Error(t, err)
	_, err = parseIndex("two", 3)
	assert.Error(t, err)
}

func TestParseSwitch(t *testing.T) {
	on, err := parseSwitch("ON")
	require.NoError(t, err)
	assert.True(t, on)

	on, err = parseSwitch("off")
	require.NoError(t, err)
	assert.False(t, on)

	_, err = parseSwitch("maybe")
	assert.Error(t, err)
}

func TestParseTone(t *testing.T) {
	tone, err := parseTone("Direct")
	require.NoError(t, err)
	assert.Equal(t, models.ToneDirect, tone)

	tone, err = parseTone("off")
	require.NoError(t, err)
	assert.Equal(t, models.ToneUnset, tone)

	_, err = parseTone("harsh")
	assert.Error(t, err)
}

func TestApplyPersona(t *testing.T) {
	p := models.DefaultSettings().PersonaConfig
	require.NoError(t, applyPersona(&p, "Warmth", 85))
	require.NoError(t, applyPersona(&p, "humour", 10))
	assert.Equal(t, 85, p.Warmth)
	assert.Equal(t, 10, p.Humor)
	assert.Error(t, applyPersona(&p, "sarcasm", 10))
}

func TestApplyProfile(t *testing.T) {
	var p models.UserProfile
	require.NoError(t, applyProfile(&p, "name", " Sam "))
	require.NoError(t, applyProfile(&p, "age", "34"))
	require.NoError(t, applyProfile(&p, "goals", "run a marathon"))
	assert.Equal(t, models.UserProfile{Name: "Sam", Age: 34, Goals: "run a marathon"}, p)

	assert.Error(t, applyProfile(&p, "age", "old"))
	assert.Error(t, applyProfile(&p, "shoe_size", "44"))

	require.NoError(t, applyProfile(&p, "age", ""))
	assert.Equal(t, 0, p.Age)
}

func TestFormatHistory(t *testing.T) {
	created := time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC)
	out := formatHistory([]models.ConversationRecord{
		{Title: "Talk about work.", CreatedAt: created, Messages: make([]models.Message, 3), IncludedInMemory: true},
		{Title: "Private", CreatedAt: created},
	})

	assert.Contains(t, out, "1\\. 🧠 *Talk about work\\.*")
	assert.Contains(t, out, "2\\. 🚫 *Private*")
	assert.Contains(t, out, "_Jan 2, 2025 15:04, 3 messages_")
}

func TestFormatHistory_LongArchiveFitsMessages(t *testing.T) {
	created := time.Date(2025, 1, 2, 15, 4, 0, 0, time.UTC)
	records := make([]models.ConversationRecord, 60)
	for i := range records {
		records[i] = models.ConversationRecord{
			Title:            fmt.Sprintf("%02d %s", i+1, strings.Repeat("x", 57)),
			CreatedAt:        created,
			IncludedInMemory: i%2 == 0,
		}
	}

	out := formatHistory(records)
	require.Greater(t, textLength(out), maxMessageLength)

	parts := splitMessage(out, maxMessageLength)
	require.Greater(t, len(parts), 1)
	for _, part := range parts {
		assert.LessOrEqual(t, textLength(part), maxMessageLength)
		assert.NotEmpty(t, part)
	}

	joined := strings.Join(parts, "\n")
	assert.True(t, strings.HasPrefix(parts[0], "*Your conversations:*"))
	assert.Contains(t, joined, "1\\. 🧠 *01 ")
	assert.Contains(t, joined, "60\\. 🚫 *60 ")
}

func TestSplitMessage(t *testing.T) {
	assert.Equal(t, []string{"short"}, splitMessage("short", 10))
	assert.Empty(t, splitMessage("", 10))

	assert.Equal(t, []string{"aaa\nbbb", "ccc"}, splitMessage("aaa\nbbb\nccc", 8))

	// a line longer than the limit is cut
	assert.Equal(t, []string{"abcd", "efgh", "ij"}, splitMessage("abcdefghij", 4))

	// emoji count as two code units
	parts := splitMessage(strings.Repeat("🔖", 5), 4)
	assert.Equal(t, []string{"🔖🔖", "🔖🔖", "🔖"}, parts)
}

func TestFormatProfile(t *testing.T) {
	assert.Contains(t, formatProfile(models.UserProfile{}), "empty")

	out := formatProfile(models.UserProfile{Name: "Sam", Goals: "sleep more"})
	assert.Equal(t, "Your profile:\nname: Sam\ngoals: sleep more", out)
}

func TestFormatPersona(t *testing.T) {
	out := formatPersona(models.DefaultSettings().PersonaConfig)
	assert.Contains(t, out, "warmth 50")
	assert.Contains(t, out, "humor 30")
	assert.Contains(t, out, "tone off")
}

func TestFormatUsage(t *testing.T) {
	out := formatUsage(usage.Summary{TokensUsed: 100, WordsUsed: 75, TokensRemaining: 900, WordsRemaining: 675, TokensLimit: 1000, MessagesCount: 4})
	assert.Contains(t, out, "Free trial")
	assert.Contains(t, out, "Remaining: 900 tokens (about 675 words)")
	assert.Contains(t, out, "Messages sent: 4")
}
