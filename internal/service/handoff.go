package service

import (
	"context"
	"log/slog"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// runHandoff walks the invocation list dynamically: after a completed step
// with a handoffTo target, control jumps to the first step whose agentId
// matches; otherwise control falls through to the next step in request
// order. Each step executes at most once. The walk terminates when it runs
// off either end of the list or reaches an already-visited step, which
// makes handoff cycles finite. Steps the walk never reached are
// materialized as skipped, in request order, after the executed results.
func (o *Orchestrator) runHandoff(ctx context.Context, id string, req *workflow.Request) execOutcome {
	n := len(req.Agents)
	visited := make([]bool, n)
	byIndex := make(map[int]workflow.AgentResult, n)
	order := make([]int, 0, n)
	var prior []workflow.AgentResult
	stopped := false

	for idx := 0; idx >= 0 && idx < n && !visited[idx]; {
		visited[idx] = true
		spec := &req.Agents[idx]

		if reason := shouldSkip(spec, prior, req.Config.ContinueOnError); reason != skipNone {
			if reason == skipPriorFailure {
				stopped = true
			}
			res := o.skipStep(ctx, id, spec, 0, reason)
			byIndex[idx] = res
			prior = append(prior, res)
			order = append(order, idx)
			// A skipped step cannot hand off; fall through.
			idx++
			continue
		}

		args, received := spec.Args, false
		if req.Config.PassResults {
			args, received = withPreviousResult(spec, prior)
		}
		res := o.dispatchStep(ctx, id, spec, args, received, 0)
		byIndex[idx] = res
		prior = append(prior, res)
		order = append(order, idx)

		next := idx + 1
		if res.Status == workflow.AgentCompleted && spec.HandoffTo != "" {
			if target, ok := firstIndexOf(req.Agents, spec.HandoffTo); ok {
				slog.Debug("handoff",
					"workflow_id", id,
					"from", spec.AgentID,
					"to", spec.HandoffTo,
				)
				next = target
			} else {
				slog.Warn("handoff target not in request, falling through",
					"workflow_id", id,
					"from", spec.AgentID,
					"to", spec.HandoffTo,
				)
			}
		}
		idx = next
	}

	results := make([]workflow.AgentResult, 0, n)
	for _, i := range order {
		results = append(results, byIndex[i])
	}
	for i := range req.Agents {
		if !visited[i] {
			results = append(results, o.skipStep(ctx, id, &req.Agents[i], 0, skipNeverExecuted))
		}
	}

	return execOutcome{results: results, stopped: stopped}
}

// firstIndexOf returns the position of the first spec with the given agent
// id. Duplicate ids are legal; handoff routing always targets the first.
func firstIndexOf(specs []workflow.InvocationSpec, agentID string) (int, bool) {
	for i := range specs {
		if specs[i].AgentID == agentID {
			return i, true
		}
	}
	return 0, false
}
