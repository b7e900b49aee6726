package service

import (
	"context"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// runSequential executes every invocation in request order, one at a time.
// A failure with continueOnError disabled does not abort the loop; the
// remaining steps are walked anyway so each one materializes as skipped.
func (o *Orchestrator) runSequential(ctx context.Context, id string, req *workflow.Request) execOutcome {
	results := make([]workflow.AgentResult, 0, len(req.Agents))
	stopped := false

	for i := range req.Agents {
		spec := &req.Agents[i]

		if reason := shouldSkip(spec, results, req.Config.ContinueOnError); reason != skipNone {
			if reason == skipPriorFailure {
				stopped = true
			}
			results = append(results, o.skipStep(ctx, id, spec, 0, reason))
			continue
		}

		args, received := spec.Args, false
		if req.Config.PassResults {
			args, received = withPreviousResult(spec, results)
		}
		results = append(results, o.dispatchStep(ctx, id, spec, args, received, 0))
	}

	return execOutcome{results: results, stopped: stopped}
}
