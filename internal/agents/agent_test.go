package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diffcouncil/diffcouncil/internal/llm/fixture"
	"github.com/diffcouncil/diffcouncil/internal/ragindex"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

func baseContext() AgentContext {
	return AgentContext{
		Diff:         "diff --git a/main.go b/main.go\n@@ -1,1 +1,1 @@\n-old\n+new\n",
		Round:        1,
		RoundPurpose: types.RoundInitial,
		ModelConfig:  types.ModelConfig{Provider: "fixture", Model: "fixture-1"},
	}
}

func TestExecuteParsesWellFormedJSON(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"looks good","details":"safe change","metrics":{"functionalImpact":7,"testCoverage":8,"codeQuality":7,"codeComplexity":3,"idealTimeHours":1,"actualTimeHours":1.5,"technicalDebtHours":0}}`)
	result := BusinessAnalyst().Execute(context.Background(), model, baseContext())

	require.False(t, result.ParseFailed)
	assert.Equal(t, "looks good", result.Summary)
	assert.Equal(t, 7.0, result.Metrics.FunctionalImpact)
	assert.Equal(t, types.BusinessAnalyst, result.AgentRole)
}

func TestExecuteParsesFencedJSON(t *testing.T) {
	model := fixture.NewConstant("```json\n{\"summary\":\"fine\",\"details\":\"\",\"metrics\":{\"codeQuality\":9}}\n```")
	result := QAEngineer().Execute(context.Background(), model, baseContext())

	require.False(t, result.ParseFailed)
	assert.Equal(t, 9.0, result.Metrics.CodeQuality)
	// Unset metrics fall back to the neutral value, not zero.
	assert.Equal(t, 5.0, result.Metrics.FunctionalImpact)
}

func TestExecuteToleratesExtraTopLevelFields(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"ok","details":"d","confidence":"high","metrics":{"codeQuality":6}}`)
	result := DeveloperAuthor().Execute(context.Background(), model, baseContext())

	require.False(t, result.ParseFailed)
	assert.Equal(t, "ok", result.Summary)
}

func TestExecuteFallsBackToNeutralOnPlainProse(t *testing.T) {
	model := fixture.NewConstant("I think this change is fine, no concerns.")
	result := SeniorArchitect().Execute(context.Background(), model, baseContext())

	assert.True(t, result.ParseFailed)
	assert.Equal(t, types.NeutralPillarScores(), result.Metrics)
	assert.Equal(t, types.SeniorArchitect, result.AgentRole)
	// The raw prose is salvaged as the summary so downstream formatters and
	// the convergence detector still see the agent's opinion.
	assert.Equal(t, "I think this change is fine, no concerns.", result.Summary)
}

func TestExecuteClampsOutOfRangeMetrics(t *testing.T) {
	model := fixture.NewConstant(`{"summary":"ok","details":"","metrics":{"codeQuality":15,"functionalImpact":-3,"idealTimeHours":-2}}`)
	result := DeveloperReviewer().Execute(context.Background(), model, baseContext())

	require.False(t, result.ParseFailed)
	assert.Equal(t, 10.0, result.Metrics.CodeQuality)
	assert.Equal(t, 1.0, result.Metrics.FunctionalImpact)
	assert.Equal(t, 0.0, result.Metrics.IdealTimeHours)
}

func TestExecuteReturnsNeutralOnRepeatedLLMFailure(t *testing.T) {
	model := &fixture.Model{}
	result := QAEngineer().Execute(context.Background(), model, baseContext())

	assert.True(t, result.ParseFailed)
	assert.Equal(t, types.NeutralPillarScores(), result.Metrics)
}

func TestBuildUserPromptInlinesDiffWhenRAGInactive(t *testing.T) {
	actx := baseContext()
	prompt := BusinessAnalyst().buildUserPrompt(actx)
	assert.Contains(t, prompt, "old")
	assert.Contains(t, prompt, "new")
}

func TestBuildUserPromptIssuesThreeQueriesOnRound1WhenRAGActive(t *testing.T) {
	diff := "diff --git a/a.go b/a.go\n@@ -1,3 +1,3 @@\n-foo\n+bar\n baz\n qux\n"
	idx, err := ragindex.Build(diff, ragindex.DefaultDimension)
	require.NoError(t, err)

	actx := baseContext()
	actx.Diff = ""
	actx.RAGIndex = idx

	agent := QAEngineer()
	prompt := agent.buildUserPrompt(actx)
	for _, q := range agent.RAGQueries {
		assert.Contains(t, prompt, q)
	}
}

func TestBuildUserPromptOmitsDiffOnLaterRoundsWhenRAGActive(t *testing.T) {
	diff := "diff --git a/a.go b/a.go\n@@ -1,3 +1,3 @@\n-foo\n+bar\n baz\n qux\n"
	idx, err := ragindex.Build(diff, ragindex.DefaultDimension)
	require.NoError(t, err)

	actx := baseContext()
	actx.Diff = ""
	actx.Round = 2
	actx.RAGIndex = idx

	prompt := DeveloperAuthor().buildUserPrompt(actx)
	assert.NotContains(t, prompt, "foo")
	assert.NotContains(t, prompt, "bar")
}

func TestBuildSystemPromptReflectsRoundPurpose(t *testing.T) {
	actx := baseContext()
	actx.RoundPurpose = types.RoundConcerns
	prompt := SeniorArchitect().buildSystemPrompt(actx)
	assert.Contains(t, prompt, "Review all other agents")
}

func TestRosterIsFixedOrderAndFiveRoles(t *testing.T) {
	roster := Roster()
	require.Len(t, roster, 5)
	for i, role := range types.RosterOrder {
		assert.Equal(t, role, roster[i].Role)
	}
}
