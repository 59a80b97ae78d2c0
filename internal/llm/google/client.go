// Package google adapts google.golang.org/genai to the llm.ChatModel
// contract.
package google

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	genai "google.golang.org/genai"

	"github.com/diffcouncil/diffcouncil/internal/llm"
	"github.com/diffcouncil/diffcouncil/internal/telemetry"
	"github.com/diffcouncil/diffcouncil/internal/types"
)

// Client is a llm.ChatModel backed by the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// New constructs a Google ChatModel.
func New(ctx context.Context, apiKey, model string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if model == "" {
		model = "gemini-1.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     strings.TrimSpace(apiKey),
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("google: init client: %w", err)
	}
	return &Client{client: client, model: model}, nil
}

// Complete implements llm.ChatModel.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, cfg types.ModelConfig) (llm.CompletionResult, error) {
	model := cfg.Model
	if model == "" {
		model = c.model
	}

	ctx, span := telemetry.StartRequestSpan(ctx, "google.models.generateContent", cfg.Provider, model, 0, "")
	defer span.End()
	log := telemetry.LoggerWithTrace(ctx)

	contents := []*genai.Content{
		genai.NewContentFromText(userPrompt, genai.RoleUser),
	}
	genCfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Temperature:       genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxOutputTokens > 0 {
		genCfg.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}

	start := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, model, contents, genCfg)
	dur := time.Since(start)
	if err != nil {
		span.RecordError(err)
		log.Error().Err(err).Str("model", model).Dur("duration", dur).Msg("google_chat_error")
		return llm.CompletionResult{}, fmt.Errorf("google: generate content: %w", err)
	}
	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return llm.CompletionResult{}, fmt.Errorf("google: request blocked: %s", resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return llm.CompletionResult{}, fmt.Errorf("google: no candidates in response")
	}

	text := resp.Text()

	var promptTokens, completionTokens int
	if resp.UsageMetadata != nil {
		promptTokens = int(resp.UsageMetadata.PromptTokenCount)
		completionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}

	result := llm.CompletionResult{
		Text:         text,
		InputTokens:  promptTokens,
		OutputTokens: completionTokens,
	}
	telemetry.RecordTokenAttributes(span, promptTokens, completionTokens)
	log.Debug().
		Str("model", model).
		Dur("duration", dur).
		Int("prompt_tokens", promptTokens).
		Int("completion_tokens", completionTokens).
		Msg("google_chat_ok")

	return result, nil
}
