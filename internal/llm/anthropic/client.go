// Package anthropic adapts the official Anthropic SDK to the
// llm.ChatModel contract.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/telemetry"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

const defaultMaxTokens int64 = 1024

// Client is a llm.ChatModel backed by the Anthropic Messages API.
type Client struct {
	sdk   anthropic.Client
	model string
}

// New constructs an Anthropic ChatModel.
func New(apiKey, model string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	opts := []option.RequestOption{
		option.WithAPIKey(strings.TrimSpace(apiKey)),
		option.WithHTTPClient(httpClient),
	}
	if model == "" {
		model = string(anthropic.ModelClaude3_7SonnetLatest)
	}
	return &Client{sdk: anthropic.NewClient(opts...), model: model}
}

// Complete implements llm.ChatModel.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	model := cfg.Model
	if model == "" {
		model = c.model
	}
	maxTokens := defaultMaxTokens
	if cfg.MaxOutputTokens > 0 {
		maxTokens = int64(cfg.MaxOutputTokens)
	}

	params := anthropic.MessageNewParams{
		Model: anthropic.Model(model),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		MaxTokens: maxTokens,
	}
	if cfg.Temperature > 0 {
		params.Temperature = anthropic.Float(cfg.Temperature)
	}

	ctx, span := telemetry.StartRequestSpan(ctx, "anthropic.messages.new", cfg.Provider, model, 0, "")
	defer span.End()
	log := telemetry.LoggerWithTrace(ctx)

	start := time.Now()
	resp, err := c.sdk.Messages.New(ctx, params)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("anthropic_chat_error")
		return llm.CompletionResult{}, fmt.Errorf("anthropic: messages.new: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	promptTokens := int(resp.Usage.InputTokens)
	completionTokens := int(resp.Usage.OutputTokens)

	result := llm.CompletionResult{
		Text:         text.String(),
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
	}
	telemetry.RecordTokenAttributes(span, promptTokens, completionTokens)
	log.Debug().
		Str("model", model).
		Dur("duration", dur).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("anthropic_chat_ok")

	return result, nil
}
