package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "conductor"

// Metrics holds all Conductor metric instruments.
type Metrics struct {
	WorkflowsStarted   metric.Int64Counter
	WorkflowsCompleted metric.Int64Counter
	WorkflowsFailed    metric.Int64Counter
	Invocations        metric.Int64Counter
	InvocationFailures metric.Int64Counter
	WorkflowDuration   metric.Float64Histogram
	InvocationDuration metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.WorkflowsStarted, err = meter.Int64Counter("conductor.workflows.started",
		metric.WithDescription("Number of workflows started"))
	if err != nil {
		return nil, err
	}

	m.WorkflowsCompleted, err = meter.Int64Counter("conductor.workflows.completed",
		metric.WithDescription("Number of workflows finished, any status"))
	if err != nil {
		return nil, err
	}

	m.WorkflowsFailed, err = meter.Int64Counter("conductor.workflows.failed",
		metric.WithDescription("Number of workflows that finished failed"))
	if err != nil {
		return nil, err
	}

	m.Invocations, err = meter.Int64Counter("conductor.invocations",
		metric.WithDescription("Number of agent invocations dispatched"))
	if err != nil {
		return nil, err
	}

	m.InvocationFailures, err = meter.Int64Counter("conductor.invocations.failed",
		metric.WithDescription("Number of agent invocations that failed"))
	if err != nil {
		return nil, err
	}

	m.WorkflowDuration, err = meter.Float64Histogram("conductor.workflow.duration_seconds",
		metric.WithDescription("Workflow duration in seconds"))
	if err != nil {
		return nil, err
	}

	m.InvocationDuration, err = meter.Float64Histogram("conductor.invocation.duration_seconds",
		metric.WithDescription("Agent invocation duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
