// Package aggregator computes the weighted consensus PillarScores vector
// from the five latest agent results. Pure, no I/O, deterministic. The
// weights come from types.WeightMatrix, the single source of truth shared
// with the per-agent prompt text.
package aggregator

import "github.com/diffcouncil/diffcouncil/internal/types"

// Aggregate applies types.WeightMatrix to results, renormalizing a
// metric's weights when the corresponding agent's result is absent from
// results so an absent agent never deflates the score. A failed agent's
// neutral fallback result is present and is weighted like any other.
func Aggregate(results []types.AgentResult) types.PillarScores {
	present := make(map[types.Role]types.AgentResult, len(results))
	for _, r := range results {
		present[r.AgentRole] = r
	}

	var out types.PillarScores
	for _, m := range types.AllMetrics {
		var weightedSum, weightTotal float64
		for _, role := range types.RosterOrder {
			r, ok := present[role]
			if !ok {
				continue
			}
			w := types.Weight(role, m)
			weightedSum += w * r.Metrics.Get(m)
			weightTotal += w
		}
		var value float64
		if weightTotal > 0 {
			value = weightedSum / weightTotal
		}
		out.Set(m, value)
	}
	return out
}
