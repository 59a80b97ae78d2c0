package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffcouncil/diffcouncil/internal/accounting"
	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/llm/fixture"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

func tinyDiff() string {
	return "diff --git a/main.go b/main.go\n@@ -1,1 +1,1 @@\n-Hallo world\n+Hello world\n"
}

func baseRequest(diff string) types.EvaluationRequest {
	return types.EvaluationRequest{
		Diff:        diff,
		CommitHash:  "abc123",
		MaxRounds:   3,
		ModelConfig: types.ModelConfig{Provider: "anthropic", Model: "claude-3-7-sonnet-latest"},
	}.Defaults()
}

func mustPricing(t *testing.T) *accounting.TokenAccounting {
	t.Helper()
	p, err := accounting.LoadDefault()
	require.NoError(t, err)
	return p
}

// Scenario A — tiny commit, immediate convergence: every agent returns an
// identical JSON body every round, so round 2's comparison to round 1
// should converge before maxRounds is exhausted.
func TestEvaluateScenarioA_ImmediateConvergence(t *testing.T) {
	body := `{"summary":"trivial typo fix, no functional change","details":"fixes a comment typo",
"metrics":{"functionalImpact":2,"idealTimeHours":0.25,"testCoverage":7,"actualTimeHours":0.25,"codeComplexity":2,"technicalDebtHours":0,"codeQuality":8}}`
	model := fixture.NewConstant(body)
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.ConvergenceThreshold = 0.85

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, outcome.RoundsExecuted)
	assert.True(t, outcome.Converged)
	assert.InDelta(t, 2.0, outcome.PillarScores.FunctionalImpact, 1e-9)
	assert.InDelta(t, 8.0, outcome.PillarScores.CodeQuality, 1e-9)
	assert.Len(t, outcome.AllResults, outcome.RoundsExecuted*5)
}

// Scenario B — disagreement, no convergence: every agent pushes its own
// primary metric to 9 and everything else to 1. Expect maxRounds exhausted
// and each primary metric landing near primaryWeight*9 + (1-primaryWeight)*1.
//
// primaryByRole maps each role's display name (as it appears after the
// "Role: " line in the system prompt) to the metric it biases to 9.
// biasedModel restates the same position every round, but with each
// round's phrasing drawn from a disjoint word set (detected from the
// round-purpose instructions baked into the system prompt) - a simulated
// agent that never changes its mind would still phrase the restatement
// differently, and using identical text every round would let the
// convergence detector see perfect content similarity and stop the loop
// after round 2 regardless of the metric disagreement this scenario is
// meant to exercise.
func TestEvaluateScenarioB_DisagreementNoConvergence(t *testing.T) {
	model := &biasedModel{
		primaryByRole: map[string]string{
			"Business Analyst":     "functionalImpact",
			"QA Engineer":          "testCoverage",
			"Developer (Author)":   "actualTimeHours",
			"Senior Architect":     "codeComplexity",
			"Developer (Reviewer)": "codeQuality",
		},
	}
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.ConvergenceThreshold = 0.85

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, req.MaxRounds, outcome.RoundsExecuted)
	assert.False(t, outcome.Converged)
	assert.InDelta(t, 4.2, outcome.PillarScores.TestCoverage, 0.05)
	assert.InDelta(t, 4.33, outcome.PillarScores.CodeQuality, 0.05)
}

var roundPhrasing = []string{
	"keeping my score steady alpha bravo charlie",
	"holding firm delta echo foxtrot",
	"still convinced golf hotel india",
}

// biasedModel deterministically biases each role's primary metric to 9 and
// everything else to 1, varying only the summary wording by round-purpose
// (detected from the system prompt text, not a call counter, so it stays
// deterministic under the orchestrator's concurrent per-round dispatch).
type biasedModel struct {
	primaryByRole map[string]string
}

func (m *biasedModel) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	role := extractRoleName(systemPrompt)
	primary := m.primaryByRole[role]
	phrase := roundPhrasing[purposeIndex(systemPrompt)]
	text := biasedJSON(primary, phrase)
	return llm.CompletionResult{Text: text, InputTokens: len(systemPrompt) / 4, OutputTokens: len(text) / 4}, nil
}

// extractRoleName pulls the value after "Role: " from a system prompt
// built by internal/agents.
func extractRoleName(systemPrompt string) string {
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

// purposeIndex maps the round-purpose instructions embedded in the system
// prompt to a stable index (0=initial, 1=concerns, 2=validation), matching
// the exact text internal/agents/prompt.go's purposeInstructions emits.
func purposeIndex(systemPrompt string) int {
	switch {
	case strings.Contains(systemPrompt, "Respond to concerns about your primary scores"):
		return 2
	case strings.Contains(systemPrompt, "Review all other agents' scores"):
		return 1
	default:
		return 0
	}
}

// biasedJSON returns a scripted response where `primary` is 9 and every
// other metric is 1.
func biasedJSON(primary, summary string) string {
	metrics := map[string]float64{
		"functionalImpact": 1, "idealTimeHours": 1, "testCoverage": 1,
		"actualTimeHours": 1, "codeComplexity": 1, "technicalDebtHours": 1, "codeQuality": 1,
	}
	metrics[primary] = 9
	var b strings.Builder
	fmt.Fprintf(&b, `{"summary":%q,"details":"","metrics":{`, summary)
	first := true
	for _, k := range []string{"functionalImpact", "idealTimeHours", "testCoverage", "actualTimeHours", "codeComplexity", "technicalDebtHours", "codeQuality"} {
		if !first {
			b.WriteString(",")
		}
		first = false
		b.WriteString(`"` + k + `":`)
		if metrics[k] == 9 {
			b.WriteString("9")
		} else {
			b.WriteString("1")
		}
	}
	b.WriteString("}}")
	return b.String()
}

// Scenario C — one agent times out every round: four agents return valid
// results, Developer Author always errors. No abort; its three fallback
// entries are neutral, and aggregation counts those neutral metrics.
func TestEvaluateScenarioC_OneAgentAlwaysFails(t *testing.T) {
	ok := `{"summary":"fine","details":"","metrics":{"functionalImpact":6,"idealTimeHours":1,"testCoverage":6,"actualTimeHours":2,"codeComplexity":4,"technicalDebtHours":0,"codeQuality":6}}`
	model := fixture.NewConstant(ok)
	model.PerAgent = map[string]fixture.Responder{
		"Developer (Author)": func(n int) fixture.Response {
			return fixture.Response{Err: errAgentDown}
		},
	}
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.MaxRounds = 3
	req.ConvergenceThreshold = 0.99 // never converges; exercise all rounds

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 3, outcome.RoundsExecuted)
	assert.Len(t, outcome.AllResults, 15)

	failed := 0
	for _, r := range outcome.AllResults {
		if r.AgentRole == types.DeveloperAuthor {
			assert.True(t, r.ParseFailed)
			assert.Equal(t, types.NeutralPillarScores(), r.Metrics)
			failed++
		}
	}
	assert.Equal(t, 3, failed)

	// actualTimeHours is DeveloperAuthor's primary metric. The failed
	// agent's neutral 0 is weighted in, which pulls the aggregate below the
	// other four agents' 2, but it does not collapse to 0.
	assert.Greater(t, outcome.PillarScores.ActualTimeHours, 0.0)
}

var errAgentDown = errTimeout{}

type errTimeout struct{}

func (errTimeout) Error() string { return "simulated transport failure" }

// Shape property: for any outcome, allResults has exactly roundsExecuted*5
// entries and pillarScores covers all seven metrics.
func TestEvaluateShapeInvariant(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"ok","details":"","metrics":{"functionalImpact":5,"idealTimeHours":1,"testCoverage":5,"actualTimeHours":1,"codeComplexity":5,"technicalDebtHours":0,"codeQuality":5}}`)
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.ConvergenceThreshold = 2.0 // unreachable, forces maxRounds

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, outcome.RoundsExecuted, 1)
	assert.LessOrEqual(t, outcome.RoundsExecuted, req.MaxRounds)
	assert.Len(t, outcome.AllResults, outcome.RoundsExecuted*5)
}

// Bounded rounds: convergenceThreshold=0 still executes round 1 in full
// since there is no prior round to compare against (Score returns 0 on an
// empty prev, and 0 >= 0 only checked after round 1 completes).
func TestEvaluateConvergenceThresholdZeroStillRunsRoundOne(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"ok","details":"","metrics":{"functionalImpact":5,"idealTimeHours":1,"testCoverage":5,"actualTimeHours":1,"codeComplexity":5,"technicalDebtHours":0,"codeQuality":5}}`)
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.ConvergenceThreshold = 0
	req.MaxRounds = 3

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, outcome.RoundsExecuted)
	assert.True(t, outcome.Converged)
}

// Token accounting additivity: totalTokenUsage must equal the sum of
// tokenUsage across all results.
func TestEvaluateTokenAccountingAdditivity(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"ok","details":"","metrics":{"functionalImpact":5,"idealTimeHours":1,"testCoverage":5,"actualTimeHours":1,"codeComplexity":5,"technicalDebtHours":0,"codeQuality":5}}`)
	o := New(model, mustPricing(t))

	req := baseRequest(tinyDiff())
	req.ConvergenceThreshold = 2.0

	outcome, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	var want types.TokenUsage
	for _, r := range outcome.AllResults {
		want = want.Add(r.TokenUsage)
	}
	assert.Equal(t, want, outcome.TotalTokenUsage)
	assert.Greater(t, outcome.TotalCostUSD, 0.0)
}

// InputError aborts before any agent call.
func TestEvaluateRejectsEmptyDiff(t *testing.T) {
	model := fixture.NewConstant(`{}`)
	o := New(model, mustPricing(t))

	_, err := o.Evaluate(context.Background(), types.EvaluationRequest{Diff: ""})
	require.Error(t, err)
	assert.Equal(t, 0, model.CallCount())
}

// Scenario D — large diff activates RAG: round 1 user prompts never
// contain the full diff (they carry query results instead); round >= 2
// prompts omit the diff entirely.
func TestEvaluateScenarioD_LargeDiffActivatesRAG(t *testing.T) {
	var largeDiff strings.Builder
	largeDiff.WriteString("diff --git a/service.go b/service.go\n")
	for i := 0; i < 2000; i++ {
		largeDiff.WriteString("@@ -1,1 +1,1 @@\n-old line number marker unique_token_needle\n+new line replaced content here\n")
	}
	diff := largeDiff.String()
	require.Greater(t, len(diff), 102400)

	var seenPrompts []string
	model := &capturingModel{response: `{"summary":"reviewed via retrieval","details":"","metrics":{"functionalImpact":5,"idealTimeHours":1,"testCoverage":5,"actualTimeHours":1,"codeComplexity":5,"technicalDebtHours":0,"codeQuality":5}}`}
	o := New(model, mustPricing(t))

	req := baseRequest(diff)
	req.MaxRounds = 2
	req.ConvergenceThreshold = 2.0 // force both rounds

	_, err := o.Evaluate(context.Background(), req)
	require.NoError(t, err)

	seenPrompts = model.userPrompts
	require.Len(t, seenPrompts, 10) // 5 agents x 2 rounds

	// Round 1 prompts carry retrieval excerpts (far shorter than the full
	// diff) plus a summary header, never the full diff text verbatim.
	for _, p := range seenPrompts[:5] {
		assert.NotContains(t, p, diff)
		assert.Contains(t, p, "Diff summary:")
		assert.Less(t, len(p), len(diff)/4)
	}
	// Round >= 2 prompts omit the diff entirely, relying on accumulated
	// summaries instead.
	for _, p := range seenPrompts[5:] {
		assert.NotContains(t, p, "unique_token_needle")
		assert.NotContains(t, p, "Diff summary:")
	}
}

// capturingModel records every user prompt it receives, used to assert RAG
// prompts never leak the raw diff. Safe for the concurrent per-round agent
// dispatch the orchestrator performs.
type capturingModel struct {
	mu          sync.Mutex
	response    string
	userPrompts []string
}

func (c *capturingModel) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	c.mu.Lock()
	c.userPrompts = append(c.userPrompts, userPrompt)
	c.mu.Unlock()
	return llm.CompletionResult{Text: c.response, InputTokens: len(systemPrompt) / 4, OutputTokens: len(c.response) / 4}, nil
}
