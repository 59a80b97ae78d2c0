// Package openai adapts the official OpenAI SDK to the llm.ChatModel
// contract. It is also reused, pointed at a different base URL, to
// implement the xAI provider (see NewXAI) - xAI's Grok API is
// OpenAI-wire-compatible.
package openai

import (
	"context"
	"fmt"
	"net/http"

	sdk "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"

	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/telemetry"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

const xaiBaseURL = "https://api.x.ai/v1"

// Client is a llm.ChatModel backed by the OpenAI chat-completions API (or
// any OpenAI-wire-compatible host, via baseURL).
type Client struct {
	sdk   sdk.Client
	model string
}

// New constructs an OpenAI ChatModel.
func New(apiKey, model string, httpClient *http.Client) *Client {
	return newClient(apiKey, "", model, httpClient)
}

// NewXAI constructs a ChatModel for xAI's Grok models by pointing the
// OpenAI-compatible client at xAI's base URL.
func NewXAI(apiKey, model string, httpClient *http.Client) *Client {
	return newClient(apiKey, xaiBaseURL, model, httpClient)
}

func newClient(apiKey, baseURL, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithHTTPClient(httpClient)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &Client{sdk: sdk.NewClient(opts...), model: model}
}

// Complete implements llm.ChatModel.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	model := cfg.Model
	if model == "" {
		model = c.model
	}

	ctx, span := telemetry.StartRequestSpan(ctx, "openai.chat.completions", cfg.Provider, model, 0, "")
	defer span.End()

	params := sdk.ChatCompletionNewParams{
		Model: sdk.ChatModel(model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(systemPrompt),
			sdk.UserMessage(userPrompt),
		},
		Temperature: sdk.Float(cfg.Temperature),
	}
	if cfg.MaxOutputTokens > 0 {
		params.MaxTokens = sdk.Int(int64(cfg.MaxOutputTokens))
	}

	comp, err := c.sdk.Chat.Completions.New(ctx, params)
	if err != nil {
		return llm.CompletionResult{}, fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(comp.Choices) == 0 {
		return llm.CompletionResult{}, fmt.Errorf("openai: empty choices in response")
	}

	result := llm.CompletionResult{
		Text:         comp.Choices[0].Message.Content,
		InputTokens:  int(comp.Usage.PromptTokens),
		OutputTokens: int(comp.Usage.CompletionTokens),
	}
	telemetry.RecordTokenAttributes(span, result.InputTokens, result.OutputTokens)
	telemetry.LoggerWithTrace(ctx).Debug().
		Str("model", model).
		Int("prompt_tokens", result.InputTokens).
		Int("completion_tokens", result.OutputTokens).
		Msg("openai_chat_ok")

	return result, nil
}
