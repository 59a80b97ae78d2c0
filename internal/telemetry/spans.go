package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("diffcouncil")

// StartRequestSpan starts a span for a single ChatModel call, tagged with
// the provider/model/round/role attributes every adapter and the
// orchestrator want on every completion.
func StartRequestSpan(ctx context.Context, operation, provider, model string, round int, role string) (context.Context, trace.Span) {
	return tracer.Start(ctx, operation,
		trace.WithAttributes(
			attribute.String("llm.provider", provider),
			attribute.String("llm.model", model),
			attribute.Int("evaluation.round", round),
			attribute.String("evaluation.agent_role", role),
		),
	)
}

// RecordTokenAttributes annotates span with the token counts from a
// completed ChatModel call.
func RecordTokenAttributes(span trace.Span, promptTokens, completionTokens int) {
	span.SetAttributes(
		attribute.Int("llm.prompt_tokens", promptTokens),
		attribute.Int("llm.completion_tokens", completionTokens),
		attribute.Int("llm.total_tokens", promptTokens+completionTokens),
	)
}
