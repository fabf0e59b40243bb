package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xaenox/growth-hub/internal/models"
)

func persona(v int) models.PersonaConfig {
	return models.PersonaConfig{Warmth: v, Firmness: v, Verbosity: v, Humor: v, Directness: v}
}

func TestBuild_SliderThresholds(t *testing.T) {
	tests := []struct {
		name  string
		value int
		want  []string
	}{
		{"low", 10, []string{"Be stoic and measured", "Be gentle and encouraging", "2-3 sentences maximum", "Stay serious and focused", "Guide indirectly"}},
		{"boundary 30 is middle", 30, []string{"Balance warmth with objectivity", "Balance support with accountability", "3-5 sentences typically", "Occasional light humor", "Mix direct observations"}},
		{"boundary 70 is middle", 70, []string{"Balance warmth with objectivity", "Mix direct observations"}},
		{"high", 90, []string{"Be warm and empathetic", "Be firm and challenging", "detailed, thorough responses", "appropriate humor", "Be direct and explicit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(persona(tt.value), models.UserProfile{}, "", "")
			for _, want := range tt.want {
				assert.Contains(t, got, want)
			}
		})
	}
}

func TestBuild_Deterministic(t *testing.T) {
	p := models.DefaultSettings().PersonaConfig
	profile := models.UserProfile{Name: "Sam", Age: 31}
	assert.Equal(t, Build(p, profile, "lt", "## Recent Context:\n- [goal] x"), Build(p, profile, "lt", "## Recent Context:\n- [goal] x"))
}

func TestBuild_ProfileOnlyWhenPresent(t *testing.T) {
	p := models.DefaultSettings().PersonaConfig

	assert.NotContains(t, Build(p, models.UserProfile{}, "", ""), "## User Context:")

	got := Build(p, models.UserProfile{Name: "Sam", Goals: "run a marathon"}, "", "")
	assert.Contains(t, got, "## User Context:\n- Name: Sam\n- Goals: run a marathon\n")
	assert.NotContains(t, got, "- Age:")
	assert.NotContains(t, got, "Relationship status")

	got = Build(p, models.UserProfile{Age: 40, AdditionalContext: "night shifts"}, "", "")
	assert.Contains(t, got, "## User Context:\n- Age: 40\n- Additional context: night shifts\n")
}

func TestBuild_AdditionalContextAloneIsOmitted(t *testing.T) {
	p := models.DefaultSettings().PersonaConfig

	got := Build(p, models.UserProfile{AdditionalContext: "night shifts"}, "", "")
	assert.NotContains(t, got, "## User Context:")
	assert.NotContains(t, got, "night shifts")
}

func TestBuild_MemoryLayers(t *testing.T) {
	p := models.DefaultSettings().PersonaConfig
	session := "## Recent Context:\n- [goal] I want to read more"

	plain := Build(p, models.UserProfile{}, "", "")
	assert.NotContains(t, plain, LongTermHeader)
	assert.True(t, strings.HasSuffix(plain, "not to think FOR them."))

	got := Build(p, models.UserProfile{}, "past summary", session)
	lt := strings.Index(got, LongTermHeader+"\npast summary")
	rc := strings.Index(got, session)
	assert.Greater(t, lt, 0)
	assert.Greater(t, rc, lt, "session summary follows long-term memory")
}

func TestBuild_Tone(t *testing.T) {
	p := persona(50)
	assert.NotContains(t, Build(p, models.UserProfile{}, "", ""), "Overall tone")

	p.Tone = models.ToneDirect
	assert.Contains(t, Build(p, models.UserProfile{}, "", ""), "Overall tone: direct.")
}
