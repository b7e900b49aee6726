package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateValidWorkflowStarted(t *testing.T) {
	data := []byte(`{"workflow_id":"wf1","pattern":"sequential","status":"running"}`)
	if err := Validate(SubjectWorkflowStarted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidWorkflowCompleted(t *testing.T) {
	data := []byte(`{"workflow_id":"wf1","pattern":"concurrent","status":"completed","summary":"done"}`)
	if err := Validate(SubjectWorkflowCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateValidInvocation(t *testing.T) {
	data := []byte(`{"workflow_id":"wf1","agent_id":"a1","tool_name":"run","status":"completed","duration_ms":12}`)
	if err := Validate(SubjectInvocationCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownSubject(t *testing.T) {
	// Unknown subjects should pass (future-proof).
	data := []byte(`{"foo":"bar"}`)
	if err := Validate("unknown.subject", data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateInvalidJSON(t *testing.T) {
	data := []byte(`{not valid json`)
	err := Validate(SubjectWorkflowStarted, data)
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("expected 'invalid JSON' in error, got: %v", err)
	}
}

func TestValidateInvalidSchema(t *testing.T) {
	// Valid JSON but the wrong shape entirely.
	data := []byte(`"just a string"`)
	err := Validate(SubjectInvocationCompleted, data)
	if err == nil {
		t.Fatal("expected schema validation error")
	}
	if !strings.Contains(err.Error(), "schema validation failed") {
		t.Fatalf("expected 'schema validation failed' in error, got: %v", err)
	}
}

func TestValidateEmptyJSON(t *testing.T) {
	// Empty object is valid JSON and valid for all schemas (all fields are zero-value).
	data := []byte(`{}`)
	if err := Validate(SubjectWorkflowCompleted, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
