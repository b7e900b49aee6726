package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "conductor"

// StartWorkflowSpan starts a span for one workflow execution.
func StartWorkflowSpan(ctx context.Context, workflowID, pattern string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "workflow",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("workflow.pattern", pattern),
		),
	)
}

// StartInvocationSpan starts a span for a single agent invocation within a
// workflow.
func StartInvocationSpan(ctx context.Context, workflowID, agentID, toolName string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "invocation",
		trace.WithAttributes(
			attribute.String("workflow.id", workflowID),
			attribute.String("invocation.agent_id", agentID),
			attribute.String("invocation.tool", toolName),
		),
	)
}
