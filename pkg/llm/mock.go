package llm

import (
	"context"
	"sync"
)

// MockLLMClient is a configurable mock for tests.
type MockLLMClient struct {
	mu sync.Mutex

	// GenerateResponseFunc overrides the default canned response. When
	// nil, Response and Err are returned as-is.
	GenerateResponseFunc func(ctx context.Context, prompt, systemMessage string, temperature float64) (string, error)

	// Response and Err are returned when GenerateResponseFunc is nil.
	Response string
	Err      error

	// Responses, when non-empty, are returned in order, one per call.
	// After the slice is exhausted the last element is repeated.
	Responses []string

	// CallCount tracks the number of GenerateResponse invocations.
	CallCount int

	// Prompts records each prompt passed to GenerateResponse.
	Prompts []string
}

// GenerateResponse implements LLMClient.
func (m *MockLLMClient) GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error) {
	m.mu.Lock()
	idx := m.CallCount
	m.CallCount++
	m.Prompts = append(m.Prompts, prompt)
	m.mu.Unlock()

	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, prompt, systemMessage, temperature)
	}

	if len(m.Responses) > 0 {
		if idx >= len(m.Responses) {
			idx = len(m.Responses) - 1
		}
		return m.Responses[idx], m.Err
	}

	return m.Response, m.Err
}

// GetModel implements LLMClient.
func (m *MockLLMClient) GetModel() string {
	return "mock-model"
}
