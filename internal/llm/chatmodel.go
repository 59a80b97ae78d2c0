// Package llm defines the ChatModel capability the orchestrator depends on:
// a provider-agnostic text-in/text-out completion call with token
// accounting. Concrete adapters live in the anthropic, openai and google
// subpackages; provider wraps the selection factory.
package llm

import (
	"context"

	"github.com/diffcouncil/diffcouncil/internal/types"
)

// CompletionResult is a single ChatModel.Complete response.
type CompletionResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Usage converts a CompletionResult into a types.TokenUsage.
func (c CompletionResult) Usage() types.TokenUsage {
	return types.TokenUsage{
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		TotalTokens:  c.InputTokens + c.OutputTokens,
	}
}

// ChatModel is the orchestrator's only dependency on an LLM provider.
// Implementations MUST be safe for concurrent use: up to five agents call
// Complete concurrently within a round.
type ChatModel interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (CompletionResult, error)
}
