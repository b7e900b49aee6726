package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cdotel "github.com/Strob0t/Conductor/internal/adapter/otel"
	"github.com/Strob0t/Conductor/internal/adapter/ws"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/port/messagequeue"
	"github.com/Strob0t/Conductor/internal/resilience"
)

// skipReason is the outcome of the pre-dispatch skip checks.
type skipReason string

const (
	skipNone          skipReason = ""
	skipPriorFailure  skipReason = "prior failure with continueOnError disabled"
	skipDependency    skipReason = "dependency did not complete successfully"
	skipCondition     skipReason = "condition evaluated to false"
	skipNeverExecuted skipReason = "workflow stopped before this step"
)

// shouldSkip applies the skip checks in fixed precedence order: prior
// failure without continueOnError first, then dependsOn, then the condition
// predicate. A dependsOn with no prior result for the named agent skips the
// step on its own; requiresSuccess additionally demands that the result be
// completed. prior is every result produced so far.
func shouldSkip(spec *workflow.InvocationSpec, prior []workflow.AgentResult, continueOnError bool) skipReason {
	if !continueOnError && anyFailed(prior) {
		return skipPriorFailure
	}
	if spec.DependsOn != "" {
		dep, ok := workflow.MostRecent(prior, spec.DependsOn)
		if !ok {
			return skipDependency
		}
		if spec.RequiresSuccess && dep.Status != workflow.AgentCompleted {
			return skipDependency
		}
	}
	if spec.Condition != nil && !spec.Condition.Evaluate(prior) {
		return skipCondition
	}
	return skipNone
}

// shouldSkipConcurrent is the admission check for the concurrent pattern,
// which never evaluates dependsOn: steps are admitted FIFO against whatever
// has settled, so a dependency gate would make admission order-dependent.
// Only the prior-failure stop and the condition apply.
func shouldSkipConcurrent(spec *workflow.InvocationSpec, prior []workflow.AgentResult, continueOnError bool) skipReason {
	if !continueOnError && anyFailed(prior) {
		return skipPriorFailure
	}
	if spec.Condition != nil && !spec.Condition.Evaluate(prior) {
		return skipCondition
	}
	return skipNone
}

func anyFailed(results []workflow.AgentResult) bool {
	for i := range results {
		if results[i].Status == workflow.AgentFailed {
			return true
		}
	}
	return false
}

// skippedResult materializes a skipped invocation. Skipped results carry
// zero duration and no output or error.
func skippedResult(spec *workflow.InvocationSpec, round int) workflow.AgentResult {
	now := time.Now()
	return workflow.AgentResult{
		AgentID: spec.AgentID,
		Status:  workflow.AgentSkipped,
		Metadata: workflow.ResultMeta{
			StartTime: now,
			EndTime:   now,
			Round:     round,
		},
	}
}

// skipStep materializes a skipped invocation and emits the same events a
// dispatched one would.
func (o *Orchestrator) skipStep(ctx context.Context, workflowID string, spec *workflow.InvocationSpec, round int, reason skipReason) workflow.AgentResult {
	slog.Debug("invocation skipped",
		"workflow_id", workflowID,
		"agent_id", spec.AgentID,
		"tool", spec.ToolName,
		"reason", reason,
	)
	res := skippedResult(spec, round)
	o.emitInvocation(ctx, workflowID, spec, &res)
	return res
}

// dispatchStep invokes one agent tool with timeout, circuit breaking and
// panic capture, and returns a terminal AgentResult. Failures are values
// here, never raised errors.
func (o *Orchestrator) dispatchStep(ctx context.Context, workflowID string, spec *workflow.InvocationSpec, args map[string]any, receivedContext bool, round int) workflow.AgentResult {
	start := time.Now()

	cctx, cancel := context.WithTimeout(ctx, spec.Timeout())
	defer cancel()

	ictx, span := cdotel.StartInvocationSpan(cctx, workflowID, spec.AgentID, spec.ToolName)
	defer span.End()

	var (
		output any
		trace  string
	)
	err := o.breaker.Execute(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				trace = string(debug.Stack())
				err = fmt.Errorf("dispatch panic: %v", r)
			}
		}()
		output, err = o.dispatcher.Invoke(ictx, spec.AgentID, spec.ToolName, args)
		return err
	})

	end := time.Now()
	res := workflow.AgentResult{
		AgentID: spec.AgentID,
		Metadata: workflow.ResultMeta{
			StartTime:       start,
			EndTime:         end,
			DurationMs:      end.Sub(start).Milliseconds(),
			ReceivedContext: receivedContext,
			Round:           round,
		},
	}

	if err != nil {
		res.Status = workflow.AgentFailed
		res.Error = &workflow.InvocationError{
			Message: err.Error(),
			Code:    errCode(cctx, err),
			Trace:   trace,
		}
		span.SetStatus(codes.Error, err.Error())
		slog.Warn("invocation failed",
			"workflow_id", workflowID,
			"agent_id", spec.AgentID,
			"tool", spec.ToolName,
			"code", res.Error.Code,
			"error", err,
		)
	} else {
		res.Status = workflow.AgentCompleted
		res.Output = output
		slog.Debug("invocation completed",
			"workflow_id", workflowID,
			"agent_id", spec.AgentID,
			"tool", spec.ToolName,
			"duration_ms", res.Metadata.DurationMs,
		)
	}

	if o.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("agent_id", spec.AgentID),
			attribute.String("status", string(res.Status)),
		)
		o.metrics.Invocations.Add(ctx, 1, attrs)
		if res.Status == workflow.AgentFailed {
			o.metrics.InvocationFailures.Add(ctx, 1, attrs)
		}
		o.metrics.InvocationDuration.Record(ctx,
			float64(res.Metadata.DurationMs)/1000.0, attrs)
	}
	o.emitInvocation(ctx, workflowID, spec, &res)
	return res
}

// errCode maps a dispatch error onto a stable error code. The deadline check
// looks at both the wrapped error and the context because adapters differ in
// whether they propagate context.DeadlineExceeded verbatim.
func errCode(cctx context.Context, err error) string {
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen):
		return workflow.ErrCodeCircuitOpen
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(cctx.Err(), context.DeadlineExceeded):
		return workflow.ErrCodeTimeout
	default:
		return workflow.ErrCodeDispatch
	}
}

// emitInvocation publishes the per-invocation event to the queue and the
// WebSocket hub.
func (o *Orchestrator) emitInvocation(ctx context.Context, workflowID string, spec *workflow.InvocationSpec, res *workflow.AgentResult) {
	var errMsg string
	if res.Error != nil {
		errMsg = res.Error.Message
	}
	o.publishJSON(ctx, messagequeue.SubjectInvocationCompleted, messagequeue.InvocationEventPayload{
		WorkflowID: workflowID,
		AgentID:    spec.AgentID,
		ToolName:   spec.ToolName,
		Status:     string(res.Status),
		Round:      res.Metadata.Round,
		DurationMs: res.Metadata.DurationMs,
		Error:      errMsg,
	})
	o.broadcastEvent(ctx, ws.EventInvocationStatus, ws.InvocationStatusEvent{
		WorkflowID: workflowID,
		AgentID:    spec.AgentID,
		ToolName:   spec.ToolName,
		Status:     string(res.Status),
		Round:      res.Metadata.Round,
		DurationMs: res.Metadata.DurationMs,
		Error:      errMsg,
	})
}

// withPreviousResult returns the args for a step under config.passResults:
// the most recent completed output, if any, is injected under the reserved
// key. The second return value reports whether context was injected.
func withPreviousResult(spec *workflow.InvocationSpec, prior []workflow.AgentResult) (map[string]any, bool) {
	var prev *workflow.AgentResult
	for i := len(prior) - 1; i >= 0; i-- {
		if prior[i].Status == workflow.AgentCompleted {
			prev = &prior[i]
			break
		}
	}
	if prev == nil {
		return spec.Args, false
	}
	args := cloneArgs(spec.Args, 1)
	args[workflow.PreviousResultKey] = prev.Output
	return args, true
}

// cloneArgs copies caller args so reserved-key injection never mutates the
// request. extra reserves capacity for injected keys.
func cloneArgs(args map[string]any, extra int) map[string]any {
	out := make(map[string]any, len(args)+extra)
	for k, v := range args {
		out[k] = v
	}
	return out
}
