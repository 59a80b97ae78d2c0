package agents

import (
	"fmt"
	"strings"

	"github.com/diffcouncil/diffcouncil/internal/types"
)

// buildSystemPrompt composes the role declaration, round-purpose
// instructions, per-pillar weight annotations from this role's
// perspective, the output JSON schema, and a compacted discussion-so-far
// block.
func (a Agent) buildSystemPrompt(actx AgentContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Role: %s\n\n", a.Name)
	fmt.Fprintf(&b, "%s\n\n", purposeInstructions(actx.RoundPurpose))
	b.WriteString("Score all seven pillars in every response, even those outside your primary expertise.\n\n")
	b.WriteString(weightAnnotations(a.Role))
	b.WriteString("\n")
	b.WriteString(jsonSchemaInstructions)
	b.WriteString("\n")
	if history := discussionSoFar(actx.History); history != "" {
		b.WriteString("Team discussion so far:\n")
		b.WriteString(history)
	}
	return b.String()
}

func purposeInstructions(p types.RoundPurpose) string {
	switch p {
	case types.RoundConcerns:
		return "Review all other agents' scores from prior rounds; for each metric not in your primary expertise where the responsible agent's value seems inconsistent, raise a specific question; defend your primary scores."
	case types.RoundValidation:
		return "Respond to concerns about your primary scores; revise secondary/tertiary scores if peers convinced you; publish final scores."
	default:
		return "Provide an independent assessment; do not assume other agents' opinions exist yet."
	}
}

// weightAnnotations renders, from this role's perspective, which pillars
// are primary/secondary/tertiary - generated directly from
// types.WeightMatrix so the prompt text and the aggregator can never
// drift.
func weightAnnotations(role types.Role) string {
	var b strings.Builder
	b.WriteString("Your expertise weighting on each pillar:\n")
	for _, m := range types.AllMetrics {
		w := types.Weight(role, m)
		tier := "tertiary"
		switch {
		case w >= 0.30:
			tier = "primary"
		case w >= 0.15:
			tier = "secondary"
		}
		fmt.Fprintf(&b, "- %s: %s (weight %.3f)\n", m, tier, w)
	}
	return b.String()
}

const jsonSchemaInstructions = `Respond with exactly one JSON object (no surrounding prose), shaped as:
{
  "summary": string (1-500 chars),
  "details": string,
  "metrics": {
    "functionalImpact": number,   // 1-10
    "idealTimeHours": number,     // >=0
    "testCoverage": number,       // 1-10
    "codeQuality": number,        // 1-10
    "codeComplexity": number,     // 1-10, lower is better
    "actualTimeHours": number,    // >=0
    "technicalDebtHours": number  // any real, negative means debt reduced
  }
}`

// discussionSoFar compacts the running history into one line per agent per
// round.
func discussionSoFar(history []types.ConversationMessage) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "round %d, %s: %s\n", m.Round, m.AgentRole, m.Message)
	}
	return b.String()
}

// buildUserPrompt branches three ways: RAG active and round 1 issues this
// role's three retrieval queries and joins the results; RAG active and
// round>1 omits the diff entirely; otherwise the full diff is inlined.
func (a Agent) buildUserPrompt(actx AgentContext) string {
	switch {
	case actx.RAGActive() && actx.Round == 1:
		return a.buildRAGPrompt(actx)
	case actx.RAGActive():
		return "Rely on the accumulated team discussion above; no diff excerpt is provided this round."
	default:
		return fmt.Sprintf("Full diff:\n\n%s", actx.Diff)
	}
}

// buildRAGPrompt issues exactly three role-specific queries against the
// DiffIndex and joins their results into the user prompt. Never issued on
// round>1 (enforced by the caller's switch).
func (a Agent) buildRAGPrompt(actx AgentContext) string {
	var b strings.Builder
	stats := actx.RAGIndex.Stats()
	fmt.Fprintf(&b, "Diff summary: %d files changed, +%d/-%d lines across %d chunks.\n\n",
		stats.FilesChanged, stats.Additions, stats.Deletions, stats.DocumentCount)

	for _, q := range a.RAGQueries {
		res := actx.RAGIndex.Query(q, 3)
		fmt.Fprintf(&b, "Query: %q\n", q)
		for _, c := range res.Chunks {
			fmt.Fprintf(&b, "  [%s:%d, %s] %s\n", c.Metadata.File, c.Metadata.HunkStartLine, c.Metadata.ChangeType, truncate(c.Content, 400))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
