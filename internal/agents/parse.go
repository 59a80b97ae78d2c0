package agents

import (
	"encoding/json"
	"strings"

	"github.com/diffcouncil/diffcouncil/internal/errors"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

// wireMetrics mirrors the JSON shape an agent is asked to emit; field names
// match jsonSchemaInstructions exactly.
type wireMetrics struct {
	FunctionalImpact   *float64 `json:"functionalImpact"`
	IdealTimeHours     *float64 `json:"idealTimeHours"`
	TestCoverage       *float64 `json:"testCoverage"`
	CodeQuality        *float64 `json:"codeQuality"`
	CodeComplexity     *float64 `json:"codeComplexity"`
	ActualTimeHours    *float64 `json:"actualTimeHours"`
	TechnicalDebtHours *float64 `json:"technicalDebtHours"`
}

type wireResponse struct {
	Summary string      `json:"summary"`
	Details string      `json:"details"`
	Metrics wireMetrics `json:"metrics"`
}

// stripFence removes a leading/trailing ```json or ``` code fence, if
// present, leaving the inner text untouched. Agents are asked for bare
// JSON but commonly fence it anyway.
func stripFence(text string) string {
	t := strings.TrimSpace(text)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	lines := strings.Split(t, "\n")
	if len(lines) < 2 {
		return t
	}
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// parseAgentResponse parses a completion's text into an AgentResult.
// Tolerates a surrounding code fence and extra top-level JSON keys; any
// metric the model omitted is filled from NeutralPillarScores. Returns a
// *errors.ParseError, never nil, when the text is not a JSON object at
// all, so the caller can fall back to a neutral result.
func parseAgentResponse(text string) (types.AgentResult, error) {
	body := stripFence(text)

	var wire wireResponse
	if err := json.Unmarshal([]byte(body), &wire); err != nil {
		return types.AgentResult{}, &errors.ParseError{Raw: text, Err: err}
	}

	metrics := types.NeutralPillarScores()
	assign := func(m types.Metric, v *float64) {
		if v != nil {
			metrics.Set(m, *v)
		}
	}
	assign(types.FunctionalImpact, wire.Metrics.FunctionalImpact)
	assign(types.IdealTimeHours, wire.Metrics.IdealTimeHours)
	assign(types.TestCoverage, wire.Metrics.TestCoverage)
	assign(types.CodeQuality, wire.Metrics.CodeQuality)
	assign(types.CodeComplexity, wire.Metrics.CodeComplexity)
	assign(types.ActualTimeHours, wire.Metrics.ActualTimeHours)
	assign(types.TechnicalDebtHours, wire.Metrics.TechnicalDebtHours)

	return types.AgentResult{
		Summary: wire.Summary,
		Details: wire.Details,
		Metrics: metrics,
	}, nil
}
