// Package orchestrator drives the bounded multi-round discussion: it
// builds a DiffIndex when the diff is large, dispatches the five agents in
// parallel each round, aggregates their latest results into a consensus
// PillarScores vector, checks convergence, and emits the final
// EvaluationOutcome.
package orchestrator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/diffcouncil/diffcouncil/internal/accounting"
	"github.com/diffcouncil/diffcouncil/internal/aggregator"
	"github.com/diffcouncil/diffcouncil/internal/agents"
	"github.com/diffcouncil/diffcouncil/internal/convergence"
	cerrors "github.com/diffcouncil/diffcouncil/internal/errors"
	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/ragindex"
	"github.com/diffcouncil/diffcouncil/internal/telemetry"
	"github.com/diffcouncil/diffcouncil/internal/types"

	"github.com/google/uuid"
)

// Orchestrator owns the fixed five-agent roster and the shared dependencies
// every round needs: a ChatModel and a token price table.
type Orchestrator struct {
	Model    llm.ChatModel
	Roster   []agents.Agent
	Pricing  *accounting.TokenAccounting
	nowFunc  func() time.Time
	uuidFunc func() string
}

// New builds an Orchestrator with the fixed five-agent roster in canonical
// dispatch order: BusinessAnalyst, QAEngineer, DeveloperAuthor,
// SeniorArchitect, DeveloperReviewer.
func New(model llm.ChatModel, pricing *accounting.TokenAccounting) *Orchestrator {
	return &Orchestrator{
		Model:    model,
		Roster:   agents.Roster(),
		Pricing:  pricing,
		nowFunc:  time.Now,
		uuidFunc: uuid.NewString,
	}
}

// Evaluate runs the bounded multi-round discussion and returns the final
// EvaluationOutcome. It never fails because of agent-level
// errors (timeouts, transport failures, unparseable output); those are
// absorbed into neutral fallback results. It fails only with InputError
// (empty diff, request validation) since credential/provider validation
// already happened when the caller built o.Model.
func (o *Orchestrator) Evaluate(ctx context.Context, req types.EvaluationRequest) (types.EvaluationOutcome, error) {
	req = req.Defaults()
	if req.Diff == "" {
		return types.EvaluationOutcome{}, &cerrors.InputError{Reason: "diff is empty"}
	}
	if req.MaxRounds < 1 || req.MaxRounds > 5 {
		return types.EvaluationOutcome{}, &cerrors.InputError{Reason: "maxRounds must be in [1,5]"}
	}

	logger := telemetry.LoggerWithTrace(ctx)

	var ragIndex *ragindex.DiffIndex
	if ragindex.ShouldActivate(int64(len(req.Diff)), req.RAGThreshold) {
		idx, err := ragindex.Build(req.Diff, ragindex.DefaultDimension)
		if err != nil {
			logger.Warn().Err(err).Msg("orchestrator: failed to build RAG index, falling back to inline diff")
		} else {
			ragIndex = idx
			logger.Info().Int("chunks", idx.Stats().DocumentCount).Msg("orchestrator: RAG index built")
		}
	}

	state := types.EvaluationState{}

	for round := 1; round <= req.MaxRounds; round++ {
		purpose := types.PurposeForRound(round)

		diffForAgent := req.Diff
		if ragIndex != nil {
			diffForAgent = ""
		}

		results, err := o.dispatchRound(ctx, agents.AgentContext{
			Diff:         diffForAgent,
			RAGIndex:     ragIndex,
			FilesChanged: req.FilesChanged,
			Round:        round,
			RoundPurpose: purpose,
			AllResults:   append([]types.AgentResult(nil), state.AllResults...),
			History:      append([]types.ConversationMessage(nil), state.ConversationHistory...),
			ModelConfig:  req.ModelConfig,
		})
		if err != nil {
			return types.EvaluationOutcome{}, err
		}

		state.CurrentRound = round
		state.AgentResults = results
		state.AllResults = append(state.AllResults, results...)
		now := o.nowFunc()
		for _, r := range results {
			state.ConversationHistory = append(state.ConversationHistory, types.ConversationMessage{
				Round:     r.Round,
				AgentRole: r.AgentRole,
				AgentName: r.AgentName,
				Timestamp: now,
				Message:   r.Summary,
			})
		}

		state.PillarScores = aggregator.Aggregate(results)
		state.ConvergenceScore = convergence.Score(state.PreviousRoundResults, results)

		logger.Info().
			Int("round", round).
			Str("purpose", string(purpose)).
			Float64("convergence", state.ConvergenceScore).
			Msg("orchestrator: round complete")

		if state.ConvergenceScore >= req.ConvergenceThreshold {
			state.Converged = true
			state.PreviousRoundResults = results
			break
		}
		state.PreviousRoundResults = results

		// Whole-evaluation deadline: completed rounds form the outcome
		// rather than padding the remaining rounds with neutral fallbacks.
		if ctx.Err() != nil {
			logger.Warn().Int("round", round).Msg("orchestrator: evaluation deadline expired, stopping early")
			break
		}
	}

	return o.buildOutcome(req, state), nil
}

// dispatchRound runs all five agents concurrently for one round and
// returns their results in canonical roster order. Dispatch completion
// order never affects the returned order.
func (o *Orchestrator) dispatchRound(ctx context.Context, actx agents.AgentContext) ([]types.AgentResult, error) {
	results := make([]types.AgentResult, len(o.Roster))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(o.Roster))
	for i, agent := range o.Roster {
		i, agent := i, agent
		g.Go(func() error {
			spanCtx, span := telemetry.StartRequestSpan(gctx, "agent.execute", actx.ModelConfig.Provider, actx.ModelConfig.Model, actx.Round, agent.Role.String())
			defer span.End()
			result := agent.Execute(spanCtx, o.Model, actx)
			telemetry.RecordTokenAttributes(span, result.TokenUsage.InputTokens, result.TokenUsage.OutputTokens)
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// buildOutcome sums token usage across every round's results, computes
// total cost via the price table, and freezes the final record.
func (o *Orchestrator) buildOutcome(req types.EvaluationRequest, state types.EvaluationState) types.EvaluationOutcome {
	var total types.TokenUsage
	for _, r := range state.AllResults {
		total = total.Add(r.TokenUsage)
	}

	var costUSD float64
	var warnings []string
	if o.Pricing != nil {
		seen := make(map[string]struct{})
		for _, r := range state.AllResults {
			cost, warn := o.Pricing.Cost(req.ModelConfig.Provider, req.ModelConfig.Model, r.TokenUsage.InputTokens, r.TokenUsage.OutputTokens)
			costUSD += cost
			if warn != "" {
				if _, ok := seen[warn]; !ok {
					seen[warn] = struct{}{}
					warnings = append(warnings, warn)
				}
			}
		}
	}

	return types.EvaluationOutcome{
		EvaluationID:        o.uuidFunc(),
		CommitHash:          req.CommitHash,
		Timestamp:           o.nowFunc(),
		RoundsExecuted:      state.CurrentRound,
		PillarScores:        state.PillarScores,
		AllResults:          state.AllResults,
		ConversationHistory: state.ConversationHistory,
		ConvergenceScore:    state.ConvergenceScore,
		Converged:           state.Converged,
		TotalTokenUsage:     total,
		TotalCostUSD:        costUSD,
		CostWarnings:        warnings,
	}
}
