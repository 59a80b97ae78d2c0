// Package convergence implements the combined content-similarity +
// metric-stability stopping score used to decide whether another
// discussion round would change the outcome. Agent summaries are short
// free text, better compared as token sets than character sequences, so
// the content signal is Jaccard similarity rather than edit distance.
package convergence

import (
	"math"
	"strings"

	"github.com/diffcouncil/diffcouncil/internal/aggregator"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

const (
	contentWeight   = 0.7
	stabilityWeight = 0.3
)

func isNotWordRune(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
}

func tokenSet(text string) map[string]struct{} {
	out := make(map[string]struct{})
	for _, tok := range strings.FieldsFunc(strings.ToLower(text), isNotWordRune) {
		if tok == "" {
			continue
		}
		out[tok] = struct{}{}
	}
	return out
}

// jaccard returns |a ∩ b| / |a ∪ b|, or 0 for two empty sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// resultText concatenates summary and details for token-set comparison.
func resultText(r types.AgentResult) string {
	return r.Summary + " " + r.Details
}

// contentSimilarity averages per-role Jaccard similarity between prev and
// curr. An agent with an empty summary (timeout or transport fallback)
// contributes 0, so a round of failed agents can never look more converged
// than it actually is. A parse-fail fallback that salvaged prose text keeps
// its non-empty summary and still counts.
func contentSimilarity(prev, curr []types.AgentResult) float64 {
	prevByRole := make(map[types.Role]types.AgentResult, len(prev))
	for _, r := range prev {
		prevByRole[r.AgentRole] = r
	}
	currByRole := make(map[types.Role]types.AgentResult, len(curr))
	for _, r := range curr {
		currByRole[r.AgentRole] = r
	}

	var sum float64
	for _, role := range types.RosterOrder {
		p, okP := prevByRole[role]
		c, okC := currByRole[role]
		if !okP || !okC || p.Summary == "" || c.Summary == "" {
			continue
		}
		sum += jaccard(tokenSet(resultText(p)), tokenSet(resultText(c)))
	}
	return sum / float64(len(types.RosterOrder))
}

// metricStability averages, across the seven pillars, 1 minus the
// normalized distance between the round's aggregated metrics. scale is 10
// for 1-10 metrics and max(1, |prev|+|curr|) for hour metrics, since those
// have no fixed upper bound.
func metricStability(prevAgg, currAgg types.PillarScores) float64 {
	var sum float64
	for _, m := range types.AllMetrics {
		p, c := prevAgg.Get(m), currAgg.Get(m)
		scale := scaleFor(m, p, c)
		d := 1 - math.Abs(c-p)/scale
		if d < 0 {
			d = 0
		}
		if d > 1 {
			d = 1
		}
		sum += d
	}
	return sum / float64(len(types.AllMetrics))
}

func scaleFor(m types.Metric, prev, curr float64) float64 {
	switch m {
	case types.IdealTimeHours, types.ActualTimeHours, types.TechnicalDebtHours:
		s := math.Abs(prev) + math.Abs(curr)
		if s < 1 {
			s = 1
		}
		return s
	default:
		return 10
	}
}

// Score returns the scalar in [0,1] the orchestrator compares against
// convergenceThreshold. Returns 0 if prev is empty: round 1 can never
// converge since there is nothing to compare against.
func Score(prev, curr []types.AgentResult) float64 {
	if len(prev) == 0 {
		return 0
	}
	content := contentSimilarity(prev, curr)
	stability := metricStability(aggregator.Aggregate(prev), aggregator.Aggregate(curr))
	return contentWeight*content + stabilityWeight*stability
}
