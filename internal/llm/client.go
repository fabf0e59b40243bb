// Package llm sends chat completions to the hosted providers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/xaenox/growth-hub/internal/models"
	"github.com/xaenox/growth-hub/internal/redact"
)

const (
	temperature        = 0.7
	maxTokens          = 500
	testMaxTokens      = 10
	emptyChoicesAnswer = "I apologize, but I had trouble generating a response."
)

var (
	ErrNotConfigured   = errors.New("provider or API key not configured")
	ErrInvalidProvider = errors.New("invalid API provider")
	ErrTimeout         = errors.New("completion request timed out")
)

// ProviderError is a failed completion call. Message is the provider's own
// error text when it could be parsed.
type ProviderError struct {
	Provider   models.Provider
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string { return e.Message }

func (e *ProviderError) Unwrap() error { return e.Err }

// Request is one completion: the system prompt followed by the history.
type Request struct {
	Config       models.APIConfig
	SystemPrompt string
	Messages     []models.Message
}

type Response struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
}

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success bool
	Message string
}

type Client struct {
	httpClient *http.Client
	baseURLs   map[models.Provider]string
	referer    string
	logger     *zap.Logger
}

type Option func(*Client)

// WithBaseURL points a provider at another endpoint, such as a proxy or a
// test server.
func WithBaseURL(p models.Provider, url string) Option {
	return func(c *Client) {
		c.baseURLs[p] = strings.TrimRight(url, "/")
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithReferer sets the HTTP-Referer sent to OpenRouter.
func WithReferer(referer string) Option {
	return func(c *Client) {
		c.referer = referer
	}
}

func NewClient(logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURLs:   make(map[models.Provider]string),
		referer:    "https://github.com/xaenox/growth-hub",
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// openAIClient builds a go-openai client for one provider and key.
func (c *Client) openAIClient(cfg models.APIConfig) (*openai.Client, error) {
	info, ok := providers[cfg.Provider]
	if !ok {
		return nil, ErrInvalidProvider
	}

	config := openai.DefaultConfig(cfg.APIKey)
	config.BaseURL = info.baseURL
	if override, ok := c.baseURLs[cfg.Provider]; ok {
		config.BaseURL = override
	}

	hc := c.httpClient
	if cfg.Provider == models.ProviderOpenRouter {
		base := hc.Transport
		if base == nil {
			base = http.DefaultTransport
		}
		hc = &http.Client{
			Timeout: hc.Timeout,
			Transport: &headerTransport{
				base: base,
				headers: map[string]string{
					"HTTP-Referer": c.referer,
					"X-Title":      openRouterTitle,
				},
			},
		}
	}
	config.HTTPClient = hc

	return openai.NewClientWithConfig(config), nil
}

func modelFor(cfg models.APIConfig) string {
	if cfg.Model != "" {
		return cfg.Model
	}
	return DefaultModel(cfg.Provider)
}

// Complete sends the system prompt and messages and returns the first
// choice. Cancellation and deadlines come from ctx.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if !req.Config.Configured() {
		return nil, ErrNotConfigured
	}
	client, err := c.openAIClient(req.Config)
	if err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: req.SystemPrompt,
	})
	for _, m := range req.Messages {
		role := openai.ChatMessageRoleUser
		if m.Role == models.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		})
	}

	resp, err := client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       modelFor(req.Config),
			Messages:    messages,
			MaxTokens:   maxTokens,
			Temperature: temperature,
		},
	)
	if err != nil {
		return nil, c.translateError(ctx, req.Config, err)
	}

	out := &Response{
		Content:          emptyChoicesAnswer,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	}
	if len(resp.Choices) > 0 && resp.Choices[0].Message.Content != "" {
		out.Content = resp.Choices[0].Message.Content
	}
	return out, nil
}

// translateError maps transport and API failures onto ErrTimeout or a
// ProviderError, logging with the key scrubbed.
func (c *Client) translateError(ctx context.Context, cfg models.APIConfig, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		c.logger.Warn("Completion timed out", zap.String("provider", string(cfg.Provider)))
		return fmt.Errorf("%s: %w", ProviderName(cfg.Provider), ErrTimeout)
	}

	perr := &ProviderError{
		Provider: cfg.Provider,
		Message:  ProviderName(cfg.Provider) + " API error",
		Err:      err,
	}
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		perr.StatusCode = apiErr.HTTPStatusCode
		if apiErr.Message != "" {
			perr.Message = apiErr.Message
		}
	case errors.As(err, &reqErr):
		perr.StatusCode = reqErr.HTTPStatusCode
	}

	c.logger.Error("Failed to get completion",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", modelFor(cfg)),
		zap.Int("status", perr.StatusCode),
		zap.String("error", redact.String(err.Error(), cfg.APIKey)))
	return perr
}

// TestConnection sends a tiny request to check the key and model.
func (c *Client) TestConnection(ctx context.Context, cfg models.APIConfig) ConnectionResult {
	if !cfg.Configured() {
		return ConnectionResult{Message: "API key and provider are required"}
	}
	client, err := c.openAIClient(cfg)
	if err != nil {
		return ConnectionResult{Message: "Invalid provider"}
	}

	_, err = client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     modelFor(cfg),
		Messages:  []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "test"}},
		MaxTokens: testMaxTokens,
	})
	if err == nil {
		return ConnectionResult{Success: true, Message: ProviderName(cfg.Provider) + " connected successfully"}
	}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return ConnectionResult{Message: apiErr.Message}
	case errors.As(err, &apiErr):
		return ConnectionResult{Message: fmt.Sprintf("HTTP %d", apiErr.HTTPStatusCode)}
	case errors.As(err, &reqErr):
		return ConnectionResult{Message: fmt.Sprintf("HTTP %d", reqErr.HTTPStatusCode)}
	}
	return ConnectionResult{Message: redact.String(err.Error(), cfg.APIKey)}
}
