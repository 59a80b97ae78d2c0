// Package config loads process-level configuration: a best-effort .env
// overlay, then a flat set of os.Getenv reads with alias fallbacks. CLI
// flag parsing lives in cmd/diffcouncil instead.
package config

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/diffcouncil/diffcouncil/internal/types"
)

// EvaluationContext bundles everything the orchestrator and its
// dependencies need that isn't part of a single EvaluationRequest: API
// keys, the token price table path, default model settings, and telemetry
// settings.
type EvaluationContext struct {
	AnthropicAPIKey string
	OpenAIAPIKey    string
	XAIAPIKey       string
	GoogleAPIKey    string

	PriceTablePath string

	DefaultModelConfig types.ModelConfig

	LogPath  string
	LogLevel string

	OTLPEndpoint string
}

// firstNonEmpty returns the first non-empty env var among names.
func firstNonEmpty(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// Load reads process environment (after a best-effort .env overlay) into
// an EvaluationContext.
func Load() (EvaluationContext, error) {
	_ = godotenv.Overload()

	cfg := EvaluationContext{
		AnthropicAPIKey: firstNonEmpty("ANTHROPIC_API_KEY"),
		OpenAIAPIKey:    firstNonEmpty("OPENAI_API_KEY"),
		XAIAPIKey:       firstNonEmpty("XAI_API_KEY", "GROK_API_KEY"),
		GoogleAPIKey:    firstNonEmpty("GOOGLE_API_KEY", "GEMINI_API_KEY"),

		PriceTablePath: firstNonEmpty("DIFFCOUNCIL_PRICE_TABLE"),

		LogPath:  firstNonEmpty("DIFFCOUNCIL_LOG_PATH"),
		LogLevel: firstNonEmpty("DIFFCOUNCIL_LOG_LEVEL", "LOG_LEVEL"),

		OTLPEndpoint: firstNonEmpty("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	cfg.DefaultModelConfig = types.ModelConfig{
		Provider:        firstNonEmpty("DIFFCOUNCIL_PROVIDER"),
		Model:           firstNonEmpty("DIFFCOUNCIL_MODEL"),
		Temperature:     0.2,
		MaxOutputTokens: 2048,
	}
	if cfg.DefaultModelConfig.Provider == "" {
		cfg.DefaultModelConfig.Provider = "anthropic"
	}

	return cfg, nil
}

// APIKeyFor returns the configured key for a provider name, or "" if none
// is set.
func (c EvaluationContext) APIKeyFor(provider string) string {
	switch provider {
	case "anthropic":
		return c.AnthropicAPIKey
	case "openai":
		return c.OpenAIAPIKey
	case "xai":
		return c.XAIAPIKey
	case "google":
		return c.GoogleAPIKey
	default:
		return ""
	}
}
