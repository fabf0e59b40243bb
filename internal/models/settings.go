package models

// Provider is a hosted chat-completion backend.
type Provider string

const (
	ProviderNone       Provider = ""
	ProviderOpenAI     Provider = "openai"
	ProviderGroq       Provider = "groq"
	ProviderOpenRouter Provider = "openrouter"
)

// Tone is an optional overall tone applied on top of the persona sliders.
type Tone string

const (
	ToneUnset    Tone = ""
	ToneGentle   Tone = "gentle"
	ToneBalanced Tone = "balanced"
	ToneDirect   Tone = "direct"
)

// APIConfig selects the provider, key and model for completions
type APIConfig struct {
	Provider Provider `json:"provider"`
	APIKey   string   `json:"apiKey"`
	Model    string   `json:"model,omitempty"`
}

// Configured reports whether both a provider and a key are present.
func (c APIConfig) Configured() bool {
	return c.Provider != ProviderNone && c.APIKey != ""
}

// VoiceConfig is persisted for voice front-ends; the core never reads it.
type VoiceConfig struct {
	Enabled  bool    `json:"enabled"`
	Provider string  `json:"provider"`
	VoiceID  string  `json:"voiceId,omitempty"`
	Speed    float64 `json:"speed"`
	Pitch    float64 `json:"pitch"`
}

// PersonaConfig holds the coach personality sliders, each 0-100.
type PersonaConfig struct {
	Warmth     int  `json:"warmth"`
	Firmness   int  `json:"firmness"`
	Verbosity  int  `json:"verbosity"`
	Humor      int  `json:"humor"`
	Directness int  `json:"directness"`
	Tone       Tone `json:"tone,omitempty"`
}

// Clamp forces every slider into the 0-100 range.
func (p PersonaConfig) Clamp() PersonaConfig {
	p.Warmth = clampSlider(p.Warmth)
	p.Firmness = clampSlider(p.Firmness)
	p.Verbosity = clampSlider(p.Verbosity)
	p.Humor = clampSlider(p.Humor)
	p.Directness = clampSlider(p.Directness)
	return p
}

func clampSlider(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// UserProfile is optional context the user shares about themselves
type UserProfile struct {
	Name               string `json:"name,omitempty"`
	Age                int    `json:"age,omitempty"`
	RelationshipStatus string `json:"relationshipStatus,omitempty"`
	CurrentChallenges  string `json:"currentChallenges,omitempty"`
	Goals              string `json:"goals,omitempty"`
	AdditionalContext  string `json:"additionalContext,omitempty"`
}

// Empty reports whether no profile field is set.
func (p UserProfile) Empty() bool {
	return p == UserProfile{}
}

// Settings groups all user-editable configuration
type Settings struct {
	APIConfig     APIConfig     `json:"apiConfig"`
	VoiceConfig   VoiceConfig   `json:"voiceConfig"`
	PersonaConfig PersonaConfig `json:"personaConfig"`
	UserProfile   UserProfile   `json:"userProfile"`
	Theme         string        `json:"theme,omitempty"`
	SessionMode   bool          `json:"sessionMode"`
}

// DefaultSettings mirrors the values a fresh install starts with.
func DefaultSettings() Settings {
	return Settings{
		VoiceConfig: VoiceConfig{
			Provider: "browser",
			Speed:    1.0,
			Pitch:    1.0,
		},
		PersonaConfig: PersonaConfig{
			Warmth:     50,
			Firmness:   50,
			Verbosity:  50,
			Humor:      30,
			Directness: 60,
		},
		Theme: "dark",
	}
}
