package llm

import (
	"net/http"

	"github.com/xaenox/growth-hub/internal/models"
)

const (
	openAIBaseURL     = "https://api.openai.com/v1"
	groqBaseURL       = "https://api.groq.com/openai/v1"
	openRouterBaseURL = "https://openrouter.ai/api/v1"

	openRouterTitle = "Growth Hub"
)

type providerInfo struct {
	name         string
	baseURL      string
	defaultModel string
}

var providers = map[models.Provider]providerInfo{
	models.ProviderOpenAI:     {name: "OpenAI", baseURL: openAIBaseURL, defaultModel: "gpt-4o-mini"},
	models.ProviderGroq:       {name: "Groq", baseURL: groqBaseURL, defaultModel: "llama-3.3-70b-versatile"},
	models.ProviderOpenRouter: {name: "OpenRouter", baseURL: openRouterBaseURL, defaultModel: "meta-llama/llama-3.1-8b-instruct:free"},
}

// Supported reports whether p is a known provider.
func Supported(p models.Provider) bool {
	_, ok := providers[p]
	return ok
}

// DefaultModel is the model used when the config leaves it empty.
func DefaultModel(p models.Provider) string {
	return providers[p].defaultModel
}

// ProviderName is the display name used in messages.
func ProviderName(p models.Provider) string {
	if info, ok := providers[p]; ok {
		return info.name
	}
	return string(p)
}

// headerTransport adds fixed headers to every request. OpenRouter uses them
// for attribution.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
