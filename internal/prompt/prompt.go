// Package prompt assembles the system instruction sent ahead of every
// completion call.
package prompt

import (
	"fmt"
	"strings"

	"github.com/xaenox/growth-hub/internal/models"
)

const preamble = `You are a masculine mentor AI designed to help men develop clarity, emotional regulation, and character. Your role is to guide through thoughtful questions and reflections, helping users see their part in situations and develop personal responsibility.

## Core Principles:
- Always grounded, mature, and calm
- Guide users to reflect rather than giving direct solutions
- Ask probing questions that reveal patterns
- Help users see their role in situations
- No shaming, no ego-stroking, no aggressive "alpha male" nonsense
- Focus on accountability, integrity, and emotional steadiness

## Safety Rules:
- You are NOT a therapist or crisis counselor
- If you detect self-harm, abuse, or crisis language, direct to professional help
- Remind users this is guidance, not therapy or legal advice
- Never tell someone to stay in an unsafe situation

`

const closing = `
## Your Approach:
1. Listen and reflect back what you're hearing
2. Ask questions that reveal patterns or blind spots
3. Guide toward self-awareness and responsibility
4. Provide frameworks when helpful, but focus on their specific situation
5. Always validate feelings while challenging behaviors or thinking patterns
6. Help them see what they can control vs what they can't

Remember: Your goal is to help them think more clearly, not to think FOR them.`

// LongTermHeader introduces the memory carried over from archived chats.
const LongTermHeader = "## Long-term Memory"

// slider holds the three phrasings for one persona dimension.
type slider struct {
	value        func(models.PersonaConfig) int
	low, mid, hi string
}

var sliders = []slider{
	{
		value: func(p models.PersonaConfig) int { return p.Warmth },
		low:   "Be stoic and measured. Emotions are acknowledged but not dwelt on.",
		hi:    "Be warm and empathetic. Show understanding and compassion.",
		mid:   "Balance warmth with objectivity. Be supportive but not overly emotional.",
	},
	{
		value: func(p models.PersonaConfig) int { return p.Firmness },
		low:   "Be gentle and encouraging. Avoid harsh directness.",
		hi:    "Be firm and challenging. Don't accept excuses or deflection.",
		mid:   "Balance support with accountability. Push when needed, encourage when appropriate.",
	},
	{
		value: func(p models.PersonaConfig) int { return p.Verbosity },
		low:   "Keep responses concise and direct. 2-3 sentences maximum.",
		hi:    "Provide detailed, thorough responses with examples and context.",
		mid:   "Keep responses clear and focused. 3-5 sentences typically.",
	},
	{
		value: func(p models.PersonaConfig) int { return p.Humor },
		low:   "Stay serious and focused. This is important work.",
		hi:    "Use appropriate humor to lighten heavy moments, but know when to be serious.",
		mid:   "Occasional light humor is fine, but maintain focus on growth.",
	},
	{
		value: func(p models.PersonaConfig) int { return p.Directness },
		low:   "Guide indirectly. Let users discover insights through questions.",
		hi:    "Be direct and explicit. Call out patterns and behaviors clearly.",
		mid:   "Mix direct observations with guiding questions.",
	},
}

var toneLines = map[models.Tone]string{
	models.ToneGentle:   "Overall tone: gentle. Lead with patience and reassurance.",
	models.ToneBalanced: "Overall tone: balanced. Weigh encouragement and challenge evenly.",
	models.ToneDirect:   "Overall tone: direct. Say plainly what you see.",
}

// pick applies the <30 / >70 thresholds.
func (s slider) pick(p models.PersonaConfig) string {
	v := s.value(p)
	switch {
	case v < 30:
		return s.low
	case v > 70:
		return s.hi
	default:
		return s.mid
	}
}

// Build returns the full system prompt. The same inputs always give the same
// string. Empty memory summaries are left out.
func Build(persona models.PersonaConfig, profile models.UserProfile, longTermSummary, sessionSummary string) string {
	var b strings.Builder
	b.WriteString(preamble)

	b.WriteString("## Your Communication Style:\n")
	for _, s := range sliders {
		fmt.Fprintf(&b, "- %s\n", s.pick(persona))
	}
	if line, ok := toneLines[persona.Tone]; ok {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	writeProfile(&b, profile)

	b.WriteString(closing)

	if s := strings.TrimSpace(longTermSummary); s != "" {
		fmt.Fprintf(&b, "\n\n%s\n%s", LongTermHeader, s)
	}
	if s := strings.TrimSpace(sessionSummary); s != "" {
		fmt.Fprintf(&b, "\n\n%s", s)
	}
	return b.String()
}

// writeProfile adds the user context block. Additional context is only
// listed alongside at least one of the core fields.
func writeProfile(b *strings.Builder, p models.UserProfile) {
	if p.Name == "" && p.Age <= 0 && p.RelationshipStatus == "" && p.CurrentChallenges == "" && p.Goals == "" {
		return
	}
	b.WriteString("\n## User Context:\n")
	field := func(label, value string) {
		if value != "" {
			fmt.Fprintf(b, "- %s: %s\n", label, value)
		}
	}
	field("Name", p.Name)
	if p.Age > 0 {
		fmt.Fprintf(b, "- Age: %d\n", p.Age)
	}
	field("Relationship status", p.RelationshipStatus)
	field("Current challenges", p.CurrentChallenges)
	field("Goals", p.Goals)
	field("Additional context", p.AdditionalContext)
}
