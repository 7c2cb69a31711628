package ai

import (
	"context"
	"sync"
)

// MockProvider is a test double for AI providers.
// TaskResponses wins for tasks it names. Otherwise, when Responses is set,
// calls consume it in order and the last entry repeats.
type MockProvider struct {
	Response      string
	Responses     []string
	TaskResponses map[TaskType]string
	Err           error
	LastRequest   *CompletionRequest // last request seen

	mu       sync.Mutex
	requests []CompletionRequest
}

// NewMockProvider creates a MockProvider that returns the given response.
func NewMockProvider(response string) *MockProvider {
	return &MockProvider{Response: response}
}

// NewTaskProvider creates a MockProvider that answers per task type.
func NewTaskProvider(responses map[TaskType]string) *MockProvider {
	return &MockProvider{TaskResponses: responses}
}

// NewScriptedProvider creates a MockProvider that returns responses in sequence.
func NewScriptedProvider(responses ...string) *MockProvider {
	return &MockProvider{Responses: responses}
}

func (m *MockProvider) Complete(_ context.Context, req CompletionRequest) (CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LastRequest = &req
	m.requests = append(m.requests, req)
	if m.Err != nil {
		return CompletionResponse{}, m.Err
	}

	content := m.Response
	if r, ok := m.TaskResponses[req.Task]; ok {
		content = r
	} else if len(m.Responses) > 0 {
		idx := len(m.requests) - 1
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		content = m.Responses[idx]
	}

	return CompletionResponse{
		Content:      content,
		Model:        "mock",
		InputTokens:  10,
		OutputTokens: len(content),
	}, nil
}

// Calls returns how many completions were requested.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Requests returns a copy of every captured request.
func (m *MockProvider) Requests() []CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]CompletionRequest(nil), m.requests...)
}

func (m *MockProvider) Models() []ModelInfo {
	return []ModelInfo{
		{ID: "mock", Name: "Mock Model", MaxTokens: 4096, Description: "Test mock"},
	}
}

func (m *MockProvider) HealthCheck(_ context.Context) error {
	return m.Err
}
