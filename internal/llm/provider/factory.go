// Package provider selects a concrete llm.ChatModel implementation by
// provider name. xAI reuses the OpenAI adapter against a different base
// URL since the Grok API speaks the same wire protocol.
package provider

import (
	"context"
	"fmt"
	"net/http"

	"github.com/diffcouncil/diffcouncil/internal/config"
	cerrors "github.com/diffcouncil/diffcouncil/internal/errors"
	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/llm/anthropic"
	"github.com/diffcouncil/diffcouncil/internal/llm/google"
	"github.com/diffcouncil/diffcouncil/internal/llm/openai"
)

// Build constructs the llm.ChatModel named by providerName, keyed with the
// matching API key from cfg. Returns a *errors.ConfigError for an unknown provider
// or a missing API key, which aborts the evaluation before any agent runs.
func Build(ctx context.Context, cfg config.EvaluationContext, providerName, model string, httpClient *http.Client) (llm.ChatModel, error) {
	switch providerName {
	case "", "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, &cerrors.ConfigError{Reason: "missing ANTHROPIC_API_KEY"}
		}
		return anthropic.New(cfg.AnthropicAPIKey, model, httpClient), nil
	case "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, &cerrors.ConfigError{Reason: "missing OPENAI_API_KEY"}
		}
		return openai.New(cfg.OpenAIAPIKey, model, httpClient), nil
	case "xai":
		if cfg.XAIAPIKey == "" {
			return nil, &cerrors.ConfigError{Reason: "missing XAI_API_KEY"}
		}
		return openai.NewXAI(cfg.XAIAPIKey, model, httpClient), nil
	case "google":
		if cfg.GoogleAPIKey == "" {
			return nil, &cerrors.ConfigError{Reason: "missing GOOGLE_API_KEY"}
		}
		client, err := google.New(ctx, cfg.GoogleAPIKey, model, httpClient)
		if err != nil {
			return nil, fmt.Errorf("provider: %w", err)
		}
		return client, nil
	default:
		return nil, &cerrors.ConfigError{Reason: fmt.Sprintf("unsupported llm provider: %s", providerName)}
	}
}
