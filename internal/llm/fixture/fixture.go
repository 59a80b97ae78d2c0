// Package fixture provides a deterministic llm.ChatModel test double, used
// to drive orchestrator and agent scenario tests without depending on a
// live network call.
package fixture

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

// Model is a ChatModel that returns scripted responses keyed by call index,
// or a single repeated response if only one script entry is provided. Safe
// for the concurrent per-round agent dispatch the orchestrator performs.
type Model struct {
	mu       sync.Mutex
	scripted []Response
	calls    int64

	// PerAgent, if non-nil, overrides scripted responses by agent role
	// name extracted from the system prompt's "Role: <name>" line. Used by
	// tests that need per-agent-distinct behavior (e.g. one agent always
	// timing out or always returning its primary metric high).
	PerAgent map[string]Responder
}

// Response is one scripted ChatModel reply.
type Response struct {
	Text string
	Err  error
}

// Responder produces a Response for call n (0-indexed, counted across all
// Complete calls on the Model, not per agent).
type Responder func(n int) Response

// NewConstant returns a Model that always replies with text.
func NewConstant(text string) *Model {
	return &Model{scripted: []Response{{Text: text}}}
}

// NewSequence returns a Model that replies with each entry of texts in
// order, repeating the last entry once exhausted.
func NewSequence(texts ...string) *Model {
	m := &Model{}
	for _, t := range texts {
		m.scripted = append(m.scripted, Response{Text: t})
	}
	return m
}

// CallCount returns the number of Complete invocations so far.
func (m *Model) CallCount() int {
	return int(atomic.LoadInt64(&m.calls))
}

func (m *Model) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	n := int(atomic.AddInt64(&m.calls, 1)) - 1

	if role := extractRole(systemPrompt); role != "" && m.PerAgent != nil {
		if fn, ok := m.PerAgent[role]; ok {
			resp := fn(n)
			if resp.Err != nil {
				return llm.CompletionResult{}, resp.Err
			}
			return llm.CompletionResult{Text: resp.Text, InputTokens: len(systemPrompt) / 4, OutputTokens: len(resp.Text) / 4}, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.scripted) == 0 {
		return llm.CompletionResult{}, fmt.Errorf("fixture: no scripted response configured")
	}
	idx := n
	if idx >= len(m.scripted) {
		idx = len(m.scripted) - 1
	}
	resp := m.scripted[idx]
	if resp.Err != nil {
		return llm.CompletionResult{}, resp.Err
	}
	return llm.CompletionResult{Text: resp.Text, InputTokens: len(systemPrompt) / 4, OutputTokens: len(resp.Text) / 4}, nil
}

// extractRole pulls the value after "Role: " from a system prompt built by
// internal/agents, used only to key PerAgent responders.
func extractRole(systemPrompt string) string {
	const marker = "Role: "
	idx := strings.Index(systemPrompt, marker)
	if idx < 0 {
		return ""
	}
	rest := systemPrompt[idx+len(marker):]
	if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
		return rest[:nl]
	}
	return rest
}
