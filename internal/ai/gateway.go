// Package ai talks to chat-completion LLM APIs behind an ordered fallback router.
package ai

import "context"

// TaskType labels a completion for logs, metrics and test routing.
type TaskType int

const (
	TaskSyllabus TaskType = iota
	TaskQuiz
	TaskHealth
)

func (t TaskType) String() string {
	switch t {
	case TaskSyllabus:
		return "syllabus"
	case TaskQuiz:
		return "quiz"
	case TaskHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    string
	Content string
}

// Prompt builds the usual system + user pair.
func Prompt(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// CompletionRequest is one chat completion call. Zero values defer to the
// provider's defaults.
type CompletionRequest struct {
	Messages    []Message
	Model       string
	MaxTokens   int
	Temperature float64
	Task        TaskType
	// JSONMode asks the provider to constrain output to a single JSON object.
	JSONMode bool
}

// CompletionResponse carries the model's reply and token usage.
type CompletionResponse struct {
	Content      string
	Model        string
	InputTokens  int
	OutputTokens int
}

func (r CompletionResponse) TotalTokens() int {
	return r.InputTokens + r.OutputTokens
}

// ModelInfo describes a model a provider can serve.
type ModelInfo struct {
	ID          string
	Name        string
	MaxTokens   int
	Description string
}

// Completer is the narrow view the quiz pipeline depends on. *Router and
// every Provider satisfy it.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)
}

// Provider is a single LLM backend.
type Provider interface {
	Completer
	Models() []ModelInfo
	HealthCheck(ctx context.Context) error
}
