package service

import (
	"context"
	"fmt"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// Validate inspects a workflow request without executing it and returns a
// report. Structural problems and unknown agents or tools are errors;
// configurations that are legal but cannot ever take effect are warnings.
// The returned error is reserved for dispatcher transport failures.
func (o *Orchestrator) Validate(ctx context.Context, req *workflow.Request) (*workflow.ValidationReport, error) {
	report := &workflow.ValidationReport{
		Errors:   []string{},
		Warnings: []string{},
	}

	if !req.Pattern.Valid() {
		report.Errors = append(report.Errors, fmt.Sprintf("unknown pattern %q", req.Pattern))
	}
	if len(req.Agents) == 0 {
		report.Errors = append(report.Errors, "at least one agent invocation is required")
	}
	if req.Config.MaxConcurrency < 0 {
		report.Errors = append(report.Errors, "maxConcurrency must not be negative")
	}
	if req.Config.MaxConcurrency > 0 && req.Pattern != workflow.PatternConcurrent {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("maxConcurrency has no effect on the %s pattern", req.Pattern))
	}

	for i := range req.Agents {
		spec := &req.Agents[i]

		if spec.AgentID == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("agents[%d]: agentId is required", i))
		}
		if spec.ToolName == "" {
			report.Errors = append(report.Errors, fmt.Sprintf("agents[%d]: toolName is required", i))
		}
		if spec.AgentID != "" && spec.ToolName != "" {
			if err := o.dispatcher.Validate(ctx, spec.AgentID, spec.ToolName); err != nil {
				report.Errors = append(report.Errors,
					fmt.Sprintf("agents[%d]: %s", i, err))
			}
		}

		if spec.Condition != nil {
			if err := spec.Condition.Check(); err != nil {
				report.Errors = append(report.Errors,
					fmt.Sprintf("agents[%d]: condition: %s", i, err))
			} else if ordered(req.Pattern) && spec.Condition.AgentID != "" && !declaredBefore(req.Agents, i, spec.Condition.AgentID) {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("agents[%d]: condition references %q which produces no earlier result; the condition can never pass", i, spec.Condition.AgentID))
			}
		}

		if spec.DependsOn != "" {
			switch {
			case !declared(req.Agents, spec.DependsOn):
				report.Errors = append(report.Errors,
					fmt.Sprintf("agents[%d]: dependsOn references unknown agent %q", i, spec.DependsOn))
			case req.Pattern == workflow.PatternConcurrent:
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("agents[%d]: dependsOn has no effect on the %s pattern", i, req.Pattern))
			case req.Pattern == workflow.PatternSequential && !declaredBefore(req.Agents, i, spec.DependsOn):
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("agents[%d]: dependsOn references %q which only appears later; the dependency can never be satisfied", i, spec.DependsOn))
			}
		}

		if spec.HandoffTo != "" {
			if req.Pattern != workflow.PatternHandoff {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("agents[%d]: handoffTo has no effect on the %s pattern", i, req.Pattern))
			} else if !declared(req.Agents, spec.HandoffTo) {
				report.Warnings = append(report.Warnings,
					fmt.Sprintf("agents[%d]: handoffTo references unknown agent %q; control falls through instead", i, spec.HandoffTo))
			}
		}
	}

	report.IsValid = len(report.Errors) == 0
	return report, nil
}

// ordered reports whether a pattern checks conditions strictly in request
// order, which is what makes a condition on a later-declared agent a
// provable dead end. Concurrent qualifies because conditions are evaluated
// at FIFO submission time against settled results. Handoff can jump
// backward and group chat revisits every step each round, so the check
// would misfire there.
func ordered(p workflow.Pattern) bool {
	return p == workflow.PatternSequential || p == workflow.PatternConcurrent
}

// declared reports whether any spec carries the given agent id.
func declared(specs []workflow.InvocationSpec, agentID string) bool {
	for i := range specs {
		if specs[i].AgentID == agentID {
			return true
		}
	}
	return false
}

// declaredBefore reports whether the agent id appears at a position earlier
// than i.
func declaredBefore(specs []workflow.InvocationSpec, i int, agentID string) bool {
	for j := 0; j < i; j++ {
		if specs[j].AgentID == agentID {
			return true
		}
	}
	return false
}
