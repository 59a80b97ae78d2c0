package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurposeForRoundSequence(t *testing.T) {
	want := []RoundPurpose{
		RoundInitial, RoundConcerns, RoundValidation, RoundConcerns, RoundValidation,
	}
	for i, purpose := range want {
		assert.Equal(t, purpose, PurposeForRound(i+1), "round %d", i+1)
	}
}

func TestClampRespectsPerMetricDomains(t *testing.T) {
	p := PillarScores{
		FunctionalImpact:   12,
		IdealTimeHours:     -3,
		TestCoverage:       0.5,
		ActualTimeHours:    -1,
		CodeComplexity:     11,
		TechnicalDebtHours: -40, // debt reduced, stays negative
		CodeQuality:        10,
	}.Clamp()

	assert.Equal(t, 10.0, p.FunctionalImpact)
	assert.Equal(t, 0.0, p.IdealTimeHours)
	assert.Equal(t, 1.0, p.TestCoverage)
	assert.Equal(t, 0.0, p.ActualTimeHours)
	assert.Equal(t, 10.0, p.CodeComplexity)
	assert.Equal(t, -40.0, p.TechnicalDebtHours)
	assert.Equal(t, 10.0, p.CodeQuality)
}

func TestNeutralResultTruncatesLongSummary(t *testing.T) {
	raw := strings.Repeat("x", 1200)
	r := NeutralResult("QA Engineer", QAEngineer, 2, raw)

	assert.True(t, r.ParseFailed)
	assert.Len(t, r.Summary, 500)
	assert.Equal(t, NeutralPillarScores(), r.Metrics)
	assert.Equal(t, 2, r.Round)
}

func TestDefaultsLeavesExplicitZeroThreshold(t *testing.T) {
	r := EvaluationRequest{Diff: "x", ConvergenceThreshold: 0}.Defaults()
	assert.Equal(t, 0.0, r.ConvergenceThreshold)
	assert.Equal(t, 3, r.MaxRounds)
	assert.Equal(t, int64(102400), r.RAGThreshold)

	r = EvaluationRequest{Diff: "x", ConvergenceThreshold: -1}.Defaults()
	assert.Equal(t, DefaultConvergenceThreshold, r.ConvergenceThreshold)
}

func TestPrimaryMetricsMatchRoleOwnership(t *testing.T) {
	assert.ElementsMatch(t, []Metric{FunctionalImpact, IdealTimeHours}, PrimaryMetrics(BusinessAnalyst))
	assert.ElementsMatch(t, []Metric{TestCoverage}, PrimaryMetrics(QAEngineer))
	assert.ElementsMatch(t, []Metric{ActualTimeHours}, PrimaryMetrics(DeveloperAuthor))
	assert.ElementsMatch(t, []Metric{CodeComplexity, TechnicalDebtHours}, PrimaryMetrics(SeniorArchitect))
	assert.ElementsMatch(t, []Metric{CodeQuality}, PrimaryMetrics(DeveloperReviewer))
}
