package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

var (
	// ErrEmptyCompletion means the API answered without any content.
	ErrEmptyCompletion = errors.New("empty completion")
	// ErrTruncated means the model hit its token limit mid-answer. A cut-off
	// quiz document never parses, so it is reported instead of returned.
	ErrTruncated = errors.New("completion truncated at max tokens")
)

// StatusError is a non-2xx answer from a chat completion API.
type StatusError struct {
	Provider string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *StatusError) Temporary() bool {
	return e.Status == http.StatusTooManyRequests || e.Status >= 500
}

// OpenAIProvider talks to OpenAI or any API that speaks its chat completion
// dialect, via go-openai.
type OpenAIProvider struct {
	name         string
	defaultModel string
	models       []ModelInfo
	cfg          openai.ClientConfig
	client       *openai.Client
}

type OpenAIOption func(*OpenAIProvider)

func WithBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if url != "" {
			p.cfg.BaseURL = url
		}
	}
}

func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(p *OpenAIProvider) {
		if client != nil {
			p.cfg.HTTPClient = client
		}
	}
}

// WithModels overrides what Models reports.
func WithModels(models []ModelInfo) OpenAIOption {
	return func(p *OpenAIProvider) { p.models = models }
}

// WithDefaultModel picks the model for requests that leave Model empty.
func WithDefaultModel(model string) OpenAIOption {
	return func(p *OpenAIProvider) {
		if model != "" {
			p.defaultModel = model
		}
	}
}

// WithProviderName changes the name used in errors.
func WithProviderName(name string) OpenAIOption {
	return func(p *OpenAIProvider) { p.name = name }
}

func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		name:         "openai",
		defaultModel: defaultOpenAIModel,
		cfg:          openai.DefaultConfig(apiKey),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.client = openai.NewClientWithConfig(p.cfg)
	return p
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error) {
	resp, err := p.client.CreateChatCompletion(ctx, p.chatRequest(req))
	if err != nil {
		return CompletionResponse{}, p.wrap(err)
	}
	if len(resp.Choices) == 0 {
		return CompletionResponse{}, fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonLength {
		return CompletionResponse{}, fmt.Errorf("%s: %w", p.name, ErrTruncated)
	}
	if choice.Message.Content == "" {
		return CompletionResponse{}, fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	return CompletionResponse{
		Content:      choice.Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

func (p *OpenAIProvider) chatRequest(req CompletionRequest) openai.ChatCompletionRequest {
	out := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    make([]openai.ChatCompletionMessage, 0, len(req.Messages)),
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if out.Model == "" {
		out.Model = p.defaultModel
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	if req.JSONMode {
		out.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	return out
}

func (p *OpenAIProvider) wrap(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Provider: p.name, Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{Provider: p.name, Status: reqErr.HTTPStatusCode, Message: reqErr.Error()}
	}
	return fmt.Errorf("%s: %w", p.name, err)
}

func (p *OpenAIProvider) Models() []ModelInfo {
	if p.models != nil {
		return p.models
	}
	return []ModelInfo{
		{ID: "gpt-4o-mini", Name: "GPT-4o mini", MaxTokens: 128000, Description: "Default quiz model"},
		{ID: "gpt-4o", Name: "GPT-4o", MaxTokens: 128000, Description: "Higher quality, slower"},
	}
}

// HealthCheck lists models, which needs a valid key but costs no tokens.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	if _, err := p.client.ListModels(ctx); err != nil {
		return p.wrap(err)
	}
	return nil
}
