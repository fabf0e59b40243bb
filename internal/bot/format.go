package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/usage"
)

// maxMessageLength is Telegram's limit for one text message, counted in
// UTF-16 code units.
const maxMessageLength = 4096

// splitMessage cuts text into parts of at most limit code units, breaking
// after newlines. A single line longer than limit is cut between runes.
func splitMessage(text string, limit int) []string {
	var (
		parts []string
		cur   strings.Builder
		size  int
	)
	flush := func() {
		if part := strings.TrimRight(cur.String(), "\n"); part != "" {
			parts = append(parts, part)
		}
		cur.Reset()
		size = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := textLength(line)
		if size+n <= limit {
			cur.WriteString(line)
			size += n
			continue
		}
		flush()
		for _, r := range line {
			rn := utf16.RuneLen(r)
			if rn < 0 {
				rn = 1
			}
			if size+rn > limit {
				flush()
			}
			cur.WriteRune(r)
			size += rn
		}
	}
	flush()
	return parts
}

// textLength counts s the way Telegram measures message length.
func textLength(s string) int {
	n := 0
	for _, r := range s {
		if l := utf16.RuneLen(r); l > 0 {
			n += l
		} else {
			n++
		}
	}
	return n
}

// escapeMarkdown escapes special characters for MarkdownV2
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// parseIndex turns a 1-based list position into a slice index.
func parseIndex(arg string, n int) (int, error) {
	i, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", arg)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("pick a conversation between 1 and %d", n)
	}
	return i - 1, nil
}

func parseSwitch(arg string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(arg)) {
	case "on", "yes", "true", "1":
		return true, nil
	case "off", "no", "false", "0":
		return false, nil
	}
	return false, errors.New("use on or off")
}

func parseTone(arg string) (models.Tone, error) {
	switch t := models.Tone(strings.ToLower(strings.TrimSpace(arg))); t {
	case models.ToneGentle, models.ToneBalanced, models.ToneDirect:
		return t, nil
	case "off", "none", "":
		return models.ToneUnset, nil
	}
	return "", errors.New("tone must be gentle, balanced, direct or off")
}

// applyPersona sets one slider. Out of range values are clamped by the store.
func applyPersona(p *models.PersonaConfig, slider string, value int) error {
	switch strings.ToLower(slider) {
	case "warmth":
		p.Warmth = value
	case "firmness":
		p.Firmness = value
	case "verbosity":
		p.Verbosity = value
	case "humor", "humour":
		p.Humor = value
	case "directness":
		p.Directness = value
	default:
		return fmt.Errorf("unknown slider %q", slider)
	}
	return nil
}

func applyProfile(p *models.UserProfile, field, value string) error {
	value = strings.TrimSpace(value)
	switch strings.ToLower(field) {
	case "name":
		p.Name = value
	case "age":
		if value == "" {
			p.Age = 0
			return nil
		}
		age, err := strconv.Atoi(value)
		if err != nil || age < 0 || age > 130 {
			return fmt.Errorf("%q is not a valid age", value)
		}
		p.Age = age
	case "relationship":
		p.RelationshipStatus = value
	case "challenges":
		p.CurrentChallenges = value
	case "goals":
		p.Goals = value
	case "context":
		p.AdditionalContext = value
	default:
		return fmt.Errorf("unknown profile field %q", field)
	}
	return nil
}

// formatHistory renders archived conversations, newest last, as MarkdownV2.
func formatHistory(records []models.ConversationRecord) string {
	var b strings.Builder
	b.WriteString("*Your conversations:*\n\n")
	for i, r := range records {
		mark := "🧠"
		if !r.IncludedInMemory {
			mark = "🚫"
		}
		fmt.Fprintf(&b, "%d\\. %s *%s*\n", i+1, mark, escapeMarkdown(r.Title))
		fmt.Fprintf(&b, "_%s, %d messages_\n",
			escapeMarkdown(r.CreatedAt.Format("Jan 2, 2006 15:04")), len(r.Messages))
	}
	b.WriteString("\n🧠 included in memory  🚫 excluded")
	return b.String()
}

func formatPersona(p models.PersonaConfig) string {
	tone := string(p.Tone)
	if tone == "" {
		tone = "off"
	}
	return fmt.Sprintf("Persona:\nwarmth %d\nfirmness %d\nverbosity %d\nhumor %d\ndirectness %d\ntone %s",
		p.Warmth, p.Firmness, p.Verbosity, p.Humor, p.Directness, tone)
}

func formatProfile(p models.UserProfile) string {
	if p.Empty() {
		return "Your profile is empty. Set a field with /profile <field> <value>."
	}

	var b strings.Builder
	b.WriteString("Your profile:")
	field := func(name, value string) {
		if value != "" {
			fmt.Fprintf(&b, "\n%s: %s", name, value)
		}
	}
	field("name", p.Name)
	if p.Age > 0 {
		field("age", strconv.Itoa(p.Age))
	}
	field("relationship", p.RelationshipStatus)
	field("challenges", p.CurrentChallenges)
	field("goals", p.Goals)
	field("context", p.AdditionalContext)
	return b.String()
}

func formatUsage(s usage.Summary) string {
	plan := "Free trial"
	if s.IsPaid {
		plan = "GrowthPlus"
	}
	return fmt.Sprintf("%s\nUsed: %d tokens (about %d words)\nRemaining: %d tokens (about %d words)\nLimit: %d tokens\nMessages sent: %d",
		plan, s.TokensUsed, s.WordsUsed, s.TokensRemaining, s.WordsRemaining, s.TokensLimit, s.MessagesCount)
}
