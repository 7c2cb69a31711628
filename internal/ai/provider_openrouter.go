package ai

import (
	"net/http"
	"time"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "openai/gpt-4o-mini"
	defaultOpenRouterReferer = "https://quizethic.ai"
	defaultOpenRouterTitle   = "Quizethic AI"
)

// OpenRouterOption configures the OpenRouter provider.
type OpenRouterOption func(*openRouterSettings)

type openRouterSettings struct {
	baseURL string
	model   string
	referer string
	title   string
	client  *http.Client
}

// WithOpenRouterBaseURL sets the base URL (for testing).
func WithOpenRouterBaseURL(url string) OpenRouterOption {
	return func(s *openRouterSettings) {
		if url != "" {
			s.baseURL = url
		}
	}
}

// WithOpenRouterHTTPClient sets a custom HTTP client. Its transport is wrapped
// to add the attribution headers.
func WithOpenRouterHTTPClient(client *http.Client) OpenRouterOption {
	return func(s *openRouterSettings) {
		s.client = client
	}
}

// WithOpenRouterModel sets the default model slug, e.g. "anthropic/claude-3.5-haiku".
func WithOpenRouterModel(model string) OpenRouterOption {
	return func(s *openRouterSettings) {
		if model != "" {
			s.model = model
		}
	}
}

// WithOpenRouterAttribution sets the HTTP-Referer and X-Title headers OpenRouter
// uses for app rankings.
func WithOpenRouterAttribution(referer, title string) OpenRouterOption {
	return func(s *openRouterSettings) {
		if referer != "" {
			s.referer = referer
		}
		if title != "" {
			s.title = title
		}
	}
}

// NewOpenRouterProvider creates a provider for OpenRouter.
// OpenRouter uses an OpenAI-compatible API with extra HTTP headers.
func NewOpenRouterProvider(apiKey string, opts ...OpenRouterOption) *OpenAIProvider {
	s := &openRouterSettings{
		baseURL: defaultOpenRouterBaseURL,
		model:   defaultOpenRouterModel,
		referer: defaultOpenRouterReferer,
		title:   defaultOpenRouterTitle,
		client:  &http.Client{Timeout: 120 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}

	base := s.client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client := *s.client
	client.Transport = &headerTransport{
		base: base,
		headers: map[string]string{
			"HTTP-Referer": s.referer,
			"X-Title":      s.title,
		},
	}

	return NewOpenAIProvider(apiKey,
		WithProviderName("openrouter"),
		WithBaseURL(s.baseURL),
		WithDefaultModel(s.model),
		WithHTTPClient(&client),
		WithModels([]ModelInfo{
			{ID: s.model, Name: s.model, MaxTokens: 128000, Description: "Default model routed via OpenRouter"},
		}),
	)
}

// headerTransport sets fixed headers on every outgoing request.
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
