// Package llm provides the generation adapter over OpenAI-compatible and
// Anthropic endpoints.
package llm

import (
	"context"
)

// LLMClient is the interface the resolution engine depends on. It is a
// stateless request/response capability: a prompt goes in, text comes
// back. Use this interface for dependency injection to enable mocking in
// tests.
type LLMClient interface {
	// GenerateResponse generates a single completion for the prompt.
	GenerateResponse(ctx context.Context, prompt string, systemMessage string, temperature float64) (string, error)

	// GetModel returns the configured model name.
	GetModel() string
}

// Ensure implementations satisfy LLMClient at compile time.
var (
	_ LLMClient = (*Client)(nil)
	_ LLMClient = (*AnthropicClient)(nil)
	_ LLMClient = (*MockLLMClient)(nil)
)
