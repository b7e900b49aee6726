package service

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// runGroupChat executes all invocations repeatedly in rounds. Every step in
// every round receives the accumulated discussion context of all completed
// results so far. The discussion ends early once a round at or past the
// minimum produced no failures and the same outputs as the round before it,
// and unconditionally at the maximum round. Every started round contributes
// exactly one result per invocation.
func (o *Orchestrator) runGroupChat(ctx context.Context, id string, req *workflow.Request) execOutcome {
	minRounds := o.engCfg.GroupChatMinRounds
	if minRounds < 1 {
		minRounds = 1
	}
	maxRounds := o.engCfg.GroupChatMaxRounds
	if maxRounds < minRounds {
		maxRounds = minRounds
	}

	var all []workflow.AgentResult
	var prevOutputs []any
	stopped := false
	rounds := 0

	for round := 1; round <= maxRounds; round++ {
		rounds = round
		roundFailed := false
		var roundOutputs []any

		for i := range req.Agents {
			spec := &req.Agents[i]

			if stopped {
				all = append(all, o.skipStep(ctx, id, spec, round, skipNeverExecuted))
				continue
			}
			if reason := shouldSkip(spec, all, req.Config.ContinueOnError); reason != skipNone {
				if reason == skipPriorFailure {
					stopped = true
				}
				all = append(all, o.skipStep(ctx, id, spec, round, reason))
				continue
			}

			args, received := withDiscussionContext(spec, all)
			res := o.dispatchStep(ctx, id, spec, args, received, round)
			all = append(all, res)

			switch res.Status {
			case workflow.AgentFailed:
				roundFailed = true
			case workflow.AgentCompleted:
				roundOutputs = append(roundOutputs, res.Output)
			}
		}

		if stopped {
			break
		}
		if roundFailed && !req.Config.ContinueOnError {
			stopped = true
			break
		}
		if round >= minRounds && !roundFailed && converged(prevOutputs, roundOutputs) {
			slog.Debug("group chat converged", "workflow_id", id, "round", round)
			break
		}
		prevOutputs = roundOutputs
	}

	return execOutcome{results: all, stopped: stopped, rounds: rounds}
}

// withDiscussionContext builds the args for a group-chat step: every
// completed result so far is injected under the reserved discussion key as
// a list of {agentId, round, output} entries. The second return value
// reports whether any context was injected.
func withDiscussionContext(spec *workflow.InvocationSpec, prior []workflow.AgentResult) (map[string]any, bool) {
	entries := make([]map[string]any, 0, len(prior))
	for i := range prior {
		if prior[i].Status != workflow.AgentCompleted {
			continue
		}
		entries = append(entries, map[string]any{
			"agentId": prior[i].AgentID,
			"round":   prior[i].Metadata.Round,
			"output":  prior[i].Output,
		})
	}
	if len(entries) == 0 {
		return spec.Args, false
	}
	args := cloneArgs(spec.Args, 1)
	args[workflow.DiscussionContextKey] = entries
	return args, true
}

// converged reports whether two consecutive rounds produced identical
// outputs. Outputs are compared by their JSON encoding since they are
// arbitrary decoded values.
func converged(prev, cur []any) bool {
	if prev == nil || len(prev) != len(cur) {
		return false
	}
	a, errA := json.Marshal(prev)
	b, errB := json.Marshal(cur)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}
