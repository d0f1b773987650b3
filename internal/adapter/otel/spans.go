package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "doclens"

// StartSessionSpan starts a span for one analysis session.
func StartSessionSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "session",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}

// StartToolCallSpan starts a span for a tool call within an agent loop.
func StartToolCallSpan(ctx context.Context, agentName, tool string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "toolcall",
		trace.WithAttributes(
			attribute.String("agent", agentName),
			attribute.String("toolcall.tool", tool),
		),
	)
}

// StartApprovalSpan starts a span covering the wait for an operator decision.
func StartApprovalSpan(ctx context.Context, requestID, category string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "approval",
		trace.WithAttributes(
			attribute.String("approval.id", requestID),
			attribute.String("approval.category", category),
		),
	)
}
