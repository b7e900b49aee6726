package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/port/dispatch"
)

func validatorDispatcher() *fakeDispatcher {
	return &fakeDispatcher{
		agents: []dispatch.AgentInfo{
			{AgentID: "a", Tools: []string{"run"}},
			{AgentID: "b", Tools: []string{"run"}},
			{AgentID: "c", Tools: []string{"run"}},
		},
	}
}

func hasEntry(entries []string, substr string) bool {
	for _, e := range entries {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	req := &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			step("a"),
			{AgentID: "b", ToolName: "run", DependsOn: "a", RequiresSuccess: true},
		},
	}
	report, err := orch.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.IsValid {
		t.Fatalf("report invalid: %v", report.Errors)
	}
	if len(report.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", report.Warnings)
	}
}

func TestValidateRejectsUnknownAgentAndTool(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	req := &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			step("ghost"),
			{AgentID: "a", ToolName: "vanish"},
		},
	}
	report, err := orch.Validate(context.Background(), req)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.IsValid {
		t.Fatal("report valid, want invalid")
	}
	if !hasEntry(report.Errors, `unknown agent "ghost"`) {
		t.Fatalf("errors = %v, want unknown agent entry", report.Errors)
	}
	if !hasEntry(report.Errors, `no tool "vanish"`) {
		t.Fatalf("errors = %v, want unknown tool entry", report.Errors)
	}
}

func TestValidateRejectsStructuralProblems(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	report, err := orch.Validate(context.Background(), &workflow.Request{
		Pattern: "ring",
		Config:  workflow.Config{MaxConcurrency: -2},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.IsValid {
		t.Fatal("report valid, want invalid")
	}
	if !hasEntry(report.Errors, "unknown pattern") {
		t.Fatalf("errors = %v, want unknown pattern entry", report.Errors)
	}
	if !hasEntry(report.Errors, "at least one agent") {
		t.Fatalf("errors = %v, want empty agents entry", report.Errors)
	}
	if !hasEntry(report.Errors, "maxConcurrency") {
		t.Fatalf("errors = %v, want maxConcurrency entry", report.Errors)
	}
}

func TestValidateDependsOnPlacement(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	// Unknown dependency target is an error.
	report, err := orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			{AgentID: "a", ToolName: "run", DependsOn: "ghost"},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !hasEntry(report.Errors, `dependsOn references unknown agent "ghost"`) {
		t.Fatalf("errors = %v, want unknown dependsOn entry", report.Errors)
	}

	// Dependency declared only later is legal but can never be satisfied.
	report, err = orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			{AgentID: "a", ToolName: "run", DependsOn: "b"},
			step("b"),
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.IsValid {
		t.Fatalf("forward dependency must be a warning, got errors: %v", report.Errors)
	}
	if !hasEntry(report.Warnings, "only appears later") {
		t.Fatalf("warnings = %v, want forward dependency entry", report.Warnings)
	}

	// The concurrent executor never evaluates dependsOn, so declaring one
	// there earns a no-effect warning instead of a placement warning.
	report, err = orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternConcurrent,
		Agents: []workflow.InvocationSpec{
			step("a"),
			{AgentID: "b", ToolName: "run", DependsOn: "a", RequiresSuccess: true},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.IsValid {
		t.Fatalf("dependsOn on concurrent must stay a warning, got errors: %v", report.Errors)
	}
	if !hasEntry(report.Warnings, "dependsOn has no effect") {
		t.Fatalf("warnings = %v, want no-effect entry", report.Warnings)
	}
	if hasEntry(report.Warnings, "only appears later") {
		t.Fatalf("warnings = %v, placement warning is meaningless on concurrent", report.Warnings)
	}
}

func TestValidateHandoffWarnings(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	report, err := orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternHandoff,
		Agents: []workflow.InvocationSpec{
			{AgentID: "a", ToolName: "run", HandoffTo: "ghost"},
			step("b"),
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !report.IsValid {
		t.Fatalf("unknown handoff target must stay a warning, got errors: %v", report.Errors)
	}
	if !hasEntry(report.Warnings, `handoffTo references unknown agent "ghost"`) {
		t.Fatalf("warnings = %v, want handoff entry", report.Warnings)
	}

	report, err = orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			{AgentID: "a", ToolName: "run", HandoffTo: "b"},
			step("b"),
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !hasEntry(report.Warnings, "handoffTo has no effect") {
		t.Fatalf("warnings = %v, want no-effect entry", report.Warnings)
	}
}

func TestValidateConditionShape(t *testing.T) {
	orch := newTestOrchestrator(validatorDispatcher())

	report, err := orch.Validate(context.Background(), &workflow.Request{
		Pattern: workflow.PatternSequential,
		Agents: []workflow.InvocationSpec{
			step("a"),
			{
				AgentID: "b", ToolName: "run",
				Condition: &workflow.Condition{Field: "mood", Operator: workflow.OpEq, Value: "good"},
			},
		},
	})
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if report.IsValid {
		t.Fatal("report valid, want invalid for bad condition field")
	}
	if !hasEntry(report.Errors, "condition") {
		t.Fatalf("errors = %v, want condition entry", report.Errors)
	}
}
