package service

import (
	"fmt"
	"time"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// buildResult assembles the workflow-level result from a pattern executor's
// outcome. The status rule is uniform across patterns: any failed invocation
// makes the workflow failed unless continueOnError was set, in which case a
// fully-walked workflow reports completed even with failures inside.
func buildResult(id string, req *workflow.Request, out execOutcome, start, end time.Time) *workflow.Result {
	var succeeded, failed, skipped int
	for i := range out.results {
		switch out.results[i].Status {
		case workflow.AgentCompleted:
			succeeded++
		case workflow.AgentFailed:
			failed++
		case workflow.AgentSkipped:
			skipped++
		}
	}

	status := workflow.StatusCompleted
	if failed > 0 && !req.Config.ContinueOnError {
		status = workflow.StatusFailed
	}

	outputs := make([]any, 0, succeeded)
	for i := range out.results {
		if out.results[i].Status == workflow.AgentCompleted {
			outputs = append(outputs, out.results[i].Output)
		}
	}
	agg := workflow.AggregatedOutput{Outputs: outputs}
	if req.Config.AggregateResults {
		agg.Results = out.results
	}

	durMs := end.Sub(start).Milliseconds()
	summary := fmt.Sprintf("%s orchestration completed: %d succeeded, %d failed, %d skipped (%dms)",
		req.Pattern, succeeded, failed, skipped, durMs)
	if out.rounds > 0 {
		summary += fmt.Sprintf(" across %d rounds", out.rounds)
	}
	if out.stopped {
		summary += "; stopped early"
	}

	return &workflow.Result{
		ID:               id,
		Status:           status,
		AgentResults:     out.results,
		AggregatedOutput: agg,
		Summary:          summary,
		Metadata: workflow.WorkflowMeta{
			Pattern:         req.Pattern,
			StartTime:       start,
			EndTime:         end,
			TotalDurationMs: durMs,
			Rounds:          out.rounds,
			Description:     req.Description,
		},
	}
}
