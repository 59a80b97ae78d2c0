// Package agents implements the uniform Agent contract and the five role
// specializations. Every agent shares one Execute skeleton; roles differ
// only in role label, primary-pillar weighting shown in the prompt, and
// round-1 RAG queries - a single data-driven Agent type rather than five
// bespoke classes.
package agents

import (
	"context"
	"fmt"
	"time"

	"github.com/diffcouncil/diffcouncil/internal/errors"
	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/ragindex"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

// AgentContext is the read-only snapshot an agent receives for one round.
// Agents never mutate shared orchestrator state; any per-agent work stays
// local until the orchestrator merges results.
type AgentContext struct {
	Diff         string // full diff text; empty when RAGIndex is set
	RAGIndex     *ragindex.DiffIndex
	FilesChanged []string
	Round        int
	RoundPurpose types.RoundPurpose
	AllResults   []types.AgentResult
	History      []types.ConversationMessage
	ModelConfig  types.ModelConfig
}

// RAGActive reports whether this context carries a built DiffIndex.
func (c AgentContext) RAGActive() bool { return c.RAGIndex != nil }

// Agent is one of the five fixed roles. Behavior is entirely data-driven:
// Role, Name and RAGQueries parameterize the shared Execute
// skeleton.
type Agent struct {
	Role       types.Role
	Name       string
	RAGQueries [3]string
}

// Execute runs the uniform skeleton: build system and user prompts,
// invoke the ChatModel, parse the JSON response, clamp metrics, and
// attach token usage. On an unrecoverable LLM/parse failure it returns a
// neutral fallback AgentResult (never an error) so the orchestrator can
// proceed without special-casing a failed agent.
func (a Agent) Execute(ctx context.Context, model llm.ChatModel, actx AgentContext) types.AgentResult {
	systemPrompt := a.buildSystemPrompt(actx)
	userPrompt := a.buildUserPrompt(actx)

	completion, err := a.complete(ctx, model, systemPrompt, userPrompt, actx)
	if err != nil {
		return types.NeutralResult(a.Name, a.Role, actx.Round, "")
	}

	result, parseErr := parseAgentResponse(completion.Text)
	usage := completion.Usage()
	if parseErr != nil {
		fallback := types.NeutralResult(a.Name, a.Role, actx.Round, completion.Text)
		fallback.TokenUsage = usage
		return fallback
	}

	result.AgentName = a.Name
	result.AgentRole = a.Role
	result.Round = actx.Round
	result.Metrics = result.Metrics.Clamp()
	result.TokenUsage = usage
	return result
}

// complete invokes the ChatModel with a per-call deadline and one retry on
// failure.
func (a Agent) complete(ctx context.Context, model llm.ChatModel, systemPrompt, userPrompt string, actx AgentContext) (llm.CompletionResult, error) {
	const perCallTimeout = 5 * time.Minute

	attempt := func() (llm.CompletionResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, perCallTimeout)
		defer cancel()
		res, err := model.Complete(callCtx, systemPrompt, userPrompt, actx.ModelConfig)
		if err != nil {
			if callCtx.Err() != nil {
				return llm.CompletionResult{}, &errors.TimeoutError{AgentName: a.Name, Round: actx.Round}
			}
			return llm.CompletionResult{}, &errors.LLMError{AgentName: a.Name, Err: err}
		}
		return res, nil
	}

	res, err := attempt()
	if err == nil {
		return res, nil
	}
	res, err = attempt()
	if err != nil {
		return llm.CompletionResult{}, fmt.Errorf("agent %s: %w", a.Name, err)
	}
	return res, nil
}
