package service

import (
	"context"

	"golang.org/x/sync/semaphore"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// runConcurrent executes invocations through a bounded worker pool.
// Submission is strictly FIFO in request order; the effective pool size is
// the request's maxConcurrency, falling back to the engine cap, falling back
// to unbounded. Conditions are evaluated at submission time against the
// results that have settled so far, so a step already in flight when a
// failure lands still runs to completion. dependsOn is never evaluated
// here; with overlapping execution a dependency gate would turn admission
// into a scheduling constraint this pattern does not offer.
func (o *Orchestrator) runConcurrent(ctx context.Context, id string, req *workflow.Request) execOutcome {
	n := len(req.Agents)
	limit := req.Config.MaxConcurrency
	if limit == 0 {
		limit = o.engCfg.MaxConcurrency
	}
	if limit <= 0 || limit > n {
		limit = n
	}

	type indexed struct {
		i   int
		res workflow.AgentResult
	}

	sem := semaphore.NewWeighted(int64(limit))
	// Buffered to n so workers never block on send.
	done := make(chan indexed, n)

	results := make([]workflow.AgentResult, n)
	var settled []workflow.AgentResult // in completion order, for skip checks
	stopped := false
	outstanding := 0

	absorb := func(iv indexed) {
		results[iv.i] = iv.res
		settled = append(settled, iv.res)
		if iv.res.Status == workflow.AgentFailed && !req.Config.ContinueOnError {
			stopped = true
		}
	}

	for i := range req.Agents {
		// Fold in everything that finished before deciding this step.
	drained:
		for {
			select {
			case iv := <-done:
				outstanding--
				absorb(iv)
			default:
				break drained
			}
		}

		spec := &req.Agents[i]
		if stopped {
			results[i] = o.skipStep(ctx, id, spec, 0, skipNeverExecuted)
			continue
		}
		if reason := shouldSkipConcurrent(spec, settled, req.Config.ContinueOnError); reason != skipNone {
			if reason == skipPriorFailure {
				stopped = true
			}
			results[i] = o.skipStep(ctx, id, spec, 0, reason)
			continue
		}

		if err := sem.Acquire(ctx, 1); err != nil {
			stopped = true
			results[i] = o.skipStep(ctx, id, spec, 0, skipNeverExecuted)
			continue
		}
		outstanding++
		go func(i int, spec *workflow.InvocationSpec) {
			defer sem.Release(1)
			done <- indexed{i: i, res: o.dispatchStep(ctx, id, spec, spec.Args, false, 0)}
		}(i, spec)
	}

	for outstanding > 0 {
		iv := <-done
		outstanding--
		absorb(iv)
	}

	return execOutcome{results: results, stopped: stopped}
}
