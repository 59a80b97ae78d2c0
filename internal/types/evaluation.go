package types

import "time"

// ModelConfig is consumed opaquely by ChatModel implementations: the core
// never branches on these fields beyond passing them through.
type ModelConfig struct {
	Provider        string  `json:"provider"`
	Model           string  `json:"model"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// EvaluationRequest is the input to Orchestrator.Evaluate. Constructed by
// the caller, consumed once, never mutated by the core.
type EvaluationRequest struct {
	Diff                 string
	FilesChanged         []string
	CommitHash           string
	MaxRounds            int
	ConvergenceThreshold float64
	RAGThreshold         int64
	ModelConfig          ModelConfig
}

// DefaultConvergenceThreshold is the standard early-stop threshold. Callers
// that want it set it explicitly (see Defaults for why zero passes through).
const DefaultConvergenceThreshold = 0.85

// Defaults fills unset fields with the standard evaluation defaults. It
// never overwrites an explicitly-set field. ConvergenceThreshold is only
// defaulted when negative: zero is a meaningful value (the first
// post-round check trivially converges), so it passes through untouched.
func (r EvaluationRequest) Defaults() EvaluationRequest {
	if r.MaxRounds <= 0 {
		r.MaxRounds = 3
	}
	if r.ConvergenceThreshold < 0 {
		r.ConvergenceThreshold = DefaultConvergenceThreshold
	}
	if r.RAGThreshold <= 0 {
		r.RAGThreshold = 102400
	}
	return r
}

// TokenUsage is a ChatModel call's token accounting, always non-negative.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	TotalTokens  int `json:"totalTokens"`
}

// Add returns the element-wise sum of two usages.
func (t TokenUsage) Add(o TokenUsage) TokenUsage {
	return TokenUsage{
		InputTokens:  t.InputTokens + o.InputTokens,
		OutputTokens: t.OutputTokens + o.OutputTokens,
		TotalTokens:  t.TotalTokens + o.TotalTokens,
	}
}

// AgentResult is one agent's output for one round.
type AgentResult struct {
	AgentName  string       `json:"agentName"`
	AgentRole  Role         `json:"agentRole"`
	Round      int          `json:"round"`
	Summary    string       `json:"summary"`
	Details    string       `json:"details"`
	Metrics    PillarScores `json:"metrics"`
	TokenUsage TokenUsage   `json:"tokenUsage"`
	// ParseFailed marks a neutral-fallback result produced because the
	// ChatModel response could not be parsed, or the agent timed out /
	// exhausted its retry. The convergence detector gives an empty-summary
	// fallback zero content similarity.
	ParseFailed bool `json:"parseFailed"`
}

// NeutralResult builds the fallback AgentResult used on timeout or
// unrecoverable parse failure.
func NeutralResult(name string, role Role, round int, rawSummary string) AgentResult {
	summary := rawSummary
	if len(summary) > 500 {
		summary = summary[:500]
	}
	return AgentResult{
		AgentName:   name,
		AgentRole:   role,
		Round:       round,
		Summary:     summary,
		Details:     "",
		Metrics:     NeutralPillarScores(),
		ParseFailed: true,
	}
}

// ConversationMessage is one append-only entry in the shared discussion
// history, ordered by (round, agent-dispatch order).
type ConversationMessage struct {
	Round     int       `json:"round"`
	AgentRole Role      `json:"agentRole"`
	AgentName string    `json:"agentName"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// RoundPurpose tags the instructions a round's prompt preamble carries.
type RoundPurpose string

const (
	RoundInitial    RoundPurpose = "initial"
	RoundConcerns   RoundPurpose = "concerns"
	RoundValidation RoundPurpose = "validation"
)

// PurposeForRound implements the fixed sequence: round 1 is always
// initial, round 2 concerns, round 3 validation, subsequent rounds
// alternate concerns/validation.
func PurposeForRound(round int) RoundPurpose {
	switch {
	case round <= 1:
		return RoundInitial
	case round == 2:
		return RoundConcerns
	case round == 3:
		return RoundValidation
	case round%2 == 0:
		return RoundConcerns
	default:
		return RoundValidation
	}
}

// EvaluationState is the orchestrator's mutable working state, mutated only
// between rounds and never concurrently with an in-flight round.
type EvaluationState struct {
	CurrentRound         int
	AgentResults         []AgentResult // latest round's five, roster order
	AllResults           []AgentResult // accumulated, append-only
	ConversationHistory  []ConversationMessage
	PillarScores         PillarScores
	PreviousRoundResults []AgentResult // snapshot for convergence comparison
	Converged            bool
	ConvergenceScore     float64
}

// EvaluationOutcome is the orchestrator's output record.
type EvaluationOutcome struct {
	EvaluationID        string                `json:"evaluationId"`
	CommitHash          string                `json:"commitHash"`
	Timestamp           time.Time             `json:"timestamp"`
	RoundsExecuted      int                   `json:"roundsExecuted"`
	PillarScores        PillarScores          `json:"pillarScores"`
	AllResults          []AgentResult         `json:"allResults"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
	ConvergenceScore    float64               `json:"convergenceScore"`
	Converged           bool                  `json:"converged"`
	TotalTokenUsage     TokenUsage            `json:"totalTokenUsage"`
	TotalCostUSD        float64               `json:"totalCostUsd"`
	CostWarnings        []string              `json:"costWarnings,omitempty"`
}

// DiffChunk is a hunk-aligned slice of a unified diff, internal to the RAG
// index.
type DiffChunk struct {
	Content  string
	Metadata ChunkMetadata
	// Embedding is the fixed-dimensionality dense TF-IDF vector, L2
	// normalized. Length is always the index's configured D.
	Embedding []float64
}

// ChangeType classifies a diff hunk's origin.
type ChangeType string

const (
	ChangeAdded    ChangeType = "added"
	ChangeRemoved  ChangeType = "removed"
	ChangeModified ChangeType = "modified"
	ChangeRenamed  ChangeType = "renamed"
)

// ChunkMetadata carries the file/line provenance of a DiffChunk.
type ChunkMetadata struct {
	File          string     `json:"file"`
	HunkStartLine int        `json:"hunkStartLine"`
	AddedLines    int        `json:"addedLines"`
	DeletedLines  int        `json:"deletedLines"`
	ChangeType    ChangeType `json:"changeType"`
}
