// Package accounting implements the static TokenAccounting price table: a
// read-only {provider -> {model -> prices}} map loaded once at process
// start, queried as a pure function of (provider, model, inputTokens,
// outputTokens).
package accounting

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Prices is the per-model USD cost per 1M tokens.
type Prices struct {
	InputPerMillion  float64 `yaml:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million"`
}

//go:embed pricing.yaml
var defaultPricingYAML []byte

// TokenAccounting is the read-only price table. Constructed once at process
// start via Load or LoadDefault; MUST NOT be rebuilt mid-evaluation.
type TokenAccounting struct {
	mu       sync.Mutex
	table    map[string]map[string]Prices
	warnings []string
}

// LoadDefault parses the table embedded at build time.
func LoadDefault() (*TokenAccounting, error) {
	return Load(defaultPricingYAML)
}

// Load parses a price table from YAML shaped as
// {provider: {model: {input_per_million, output_per_million}}}.
func Load(data []byte) (*TokenAccounting, error) {
	var table map[string]map[string]Prices
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("accounting: parse price table: %w", err)
	}
	return &TokenAccounting{table: table}, nil
}

// LoadFromFile reads a price table from path, matching the YAML shape Load
// expects. Used when config.EvaluationContext.PriceTablePath overrides the
// embedded default.
func LoadFromFile(path string) (*TokenAccounting, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("accounting: read price table %q: %w", path, err)
	}
	return Load(data)
}

// Cost computes the USD cost of a completion. An unknown (provider, model)
// pair returns zero cost plus a warning string rather than an error, so an
// out-of-date table never aborts an evaluation.
func (t *TokenAccounting) Cost(provider, model string, inputTokens, outputTokens int) (usd float64, warning string) {
	models, ok := t.table[provider]
	if !ok {
		w := fmt.Sprintf("accounting: unknown provider %q, treating as zero cost", provider)
		t.recordWarning(w)
		return 0, w
	}
	prices, ok := models[model]
	if !ok {
		w := fmt.Sprintf("accounting: unknown model %q for provider %q, treating as zero cost", model, provider)
		t.recordWarning(w)
		return 0, w
	}
	usd = float64(inputTokens)/1_000_000*prices.InputPerMillion + float64(outputTokens)/1_000_000*prices.OutputPerMillion
	return usd, ""
}

func (t *TokenAccounting) recordWarning(w string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.warnings = append(t.warnings, w)
}

// Warnings returns every zero-cost warning emitted so far, in emission
// order, across every Cost call on this table. The orchestrator builds
// EvaluationOutcome.CostWarnings from Cost's returned warnings instead.
func (t *TokenAccounting) Warnings() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.warnings))
	copy(out, t.warnings)
	return out
}
