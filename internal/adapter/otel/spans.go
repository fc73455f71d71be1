package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "studymate"

// StartTurnSpan starts a span for one conversation turn.
func StartTurnSpan(ctx context.Context, userID, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("user.id", userID),
			attribute.String("session.id", sessionID),
		),
	)
}

// StartGenerationSpan starts a span for a text generation call made by a
// pipeline stage (classify, small_talk, extract_tasks, extract_query).
func StartGenerationSpan(ctx context.Context, stage, model string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "generation",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("generation.stage", stage),
			attribute.String("generation.model", model),
		),
	)
}
