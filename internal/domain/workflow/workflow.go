// Package workflow defines the request/result model for multi-agent
// workflow orchestration.
package workflow

import (
	"fmt"
	"time"
)

// Pattern identifies the coordination topology used to execute a workflow.
type Pattern string

const (
	PatternSequential Pattern = "sequential"
	PatternConcurrent Pattern = "concurrent"
	PatternHandoff    Pattern = "handoff"
	PatternGroupChat  Pattern = "group-chat"
)

// Valid reports whether p is one of the four supported patterns.
func (p Pattern) Valid() bool {
	switch p {
	case PatternSequential, PatternConcurrent, PatternHandoff, PatternGroupChat:
		return true
	}
	return false
}

// Patterns returns all supported patterns in a stable order.
func Patterns() []Pattern {
	return []Pattern{PatternSequential, PatternConcurrent, PatternHandoff, PatternGroupChat}
}

// Status represents the workflow-level outcome.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPartial   Status = "partial"
	StatusFailed    Status = "failed"
)

// AgentStatus represents the terminal state of a single invocation.
// Pending/running are transient in-flight states and never appear in a
// finished result list.
type AgentStatus string

const (
	AgentCompleted AgentStatus = "completed"
	AgentFailed    AgentStatus = "failed"
	AgentSkipped   AgentStatus = "skipped"
)

// DefaultTimeoutMs bounds a single dispatch when the spec does not set one.
const DefaultTimeoutMs = 30000

// Reserved argument keys injected by the engine.
const (
	// PreviousResultKey carries the previous completed step's output when
	// config.passResults is enabled.
	PreviousResultKey = "previousResult"
	// DiscussionContextKey carries accumulated round results in the
	// group-chat pattern.
	DiscussionContextKey = "discussionContext"
)

// InvocationSpec is the immutable, caller-supplied description of one step.
type InvocationSpec struct {
	AgentID         string         `json:"agentId"`
	ToolName        string         `json:"toolName"`
	Args            map[string]any `json:"args,omitempty"`
	DependsOn       string         `json:"dependsOn,omitempty"`
	RequiresSuccess bool           `json:"requiresSuccess,omitempty"`
	Condition       *Condition     `json:"condition,omitempty"`
	HandoffTo       string         `json:"handoffTo,omitempty"`
	TimeoutMs       int            `json:"timeoutMs,omitempty"`
}

// Timeout returns the dispatch bound for this step.
func (s *InvocationSpec) Timeout() time.Duration {
	ms := s.TimeoutMs
	if ms <= 0 {
		ms = DefaultTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}

// Config holds the caller-tunable execution options of a request.
type Config struct {
	ContinueOnError  bool `json:"continueOnError,omitempty"`
	MaxConcurrency   int  `json:"maxConcurrency,omitempty"`
	PassResults      bool `json:"passResults,omitempty"`
	AggregateResults bool `json:"aggregateResults,omitempty"`
}

// Request is a complete workflow submission.
type Request struct {
	Pattern     Pattern          `json:"pattern"`
	Agents      []InvocationSpec `json:"agents"`
	Config      Config           `json:"config,omitempty"`
	Description string           `json:"description,omitempty"`
}

// CheckShape rejects structurally malformed requests. Dispatcher-dependent
// checks (unknown agents, dependency ordering) live in the validator; this
// is only the bar a request must clear before any executor may run.
func (r *Request) CheckShape() error {
	if !r.Pattern.Valid() {
		return fmt.Errorf("unknown pattern %q", r.Pattern)
	}
	if len(r.Agents) == 0 {
		return fmt.Errorf("at least one agent invocation is required")
	}
	if r.Config.MaxConcurrency < 0 {
		return fmt.Errorf("maxConcurrency must not be negative")
	}
	for i := range r.Agents {
		if r.Agents[i].AgentID == "" {
			return fmt.Errorf("agents[%d]: agentId is required", i)
		}
		if r.Agents[i].ToolName == "" {
			return fmt.Errorf("agents[%d]: toolName is required", i)
		}
		if c := r.Agents[i].Condition; c != nil {
			if err := c.Check(); err != nil {
				return fmt.Errorf("agents[%d]: condition: %w", i, err)
			}
		}
	}
	return nil
}

// InvocationError captures a dispatch failure inside an AgentResult.
type InvocationError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Trace   string `json:"trace,omitempty"`
}

// Error codes attached to InvocationError.
const (
	ErrCodeTimeout     = "timeout"
	ErrCodeCircuitOpen = "circuit_open"
	ErrCodeDispatch    = "dispatch_error"
)

// ResultMeta is per-invocation execution metadata.
type ResultMeta struct {
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	DurationMs      int64     `json:"durationMs"`
	RetryCount      int       `json:"retryCount"`
	ReceivedContext bool      `json:"receivedContext"`
	Round           int       `json:"round,omitempty"`
}

// AgentResult is produced exactly once per invocation (or per invocation and
// round in the group-chat pattern) and never mutated afterwards.
type AgentResult struct {
	AgentID  string           `json:"agentId"`
	Status   AgentStatus      `json:"status"`
	Output   any              `json:"output,omitempty"`
	Error    *InvocationError `json:"error,omitempty"`
	Metadata ResultMeta       `json:"metadata"`
}

// AggregatedOutput pairs the full result list with the ordered outputs of
// successful invocations only.
type AggregatedOutput struct {
	Results []AgentResult `json:"results"`
	Outputs []any         `json:"outputs"`
}

// WorkflowMeta is workflow-level execution metadata.
type WorkflowMeta struct {
	Pattern         Pattern   `json:"pattern"`
	StartTime       time.Time `json:"startTime"`
	EndTime         time.Time `json:"endTime"`
	TotalDurationMs int64     `json:"totalDuration"`
	Rounds          int       `json:"rounds,omitempty"`
	Description     string    `json:"description,omitempty"`
}

// Result is the single workflow-level outcome assembled after a pattern
// executor returns.
type Result struct {
	ID               string           `json:"id"`
	Status           Status           `json:"status"`
	AgentResults     []AgentResult    `json:"agentResults"`
	AggregatedOutput AggregatedOutput `json:"aggregatedOutput"`
	Summary          string           `json:"summary"`
	Metadata         WorkflowMeta     `json:"metadata"`
}

// ValidationReport is the validator's outcome. It is a value, not an error:
// configuration problems are data, only engine misuse is a Go error.
type ValidationReport struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}
