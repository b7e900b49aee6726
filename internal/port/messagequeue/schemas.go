package messagequeue

// WorkflowEventPayload is the schema for workflows.started and
// workflows.completed messages.
type WorkflowEventPayload struct {
	WorkflowID string `json:"workflow_id"`
	Pattern    string `json:"pattern"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
}

// InvocationEventPayload is the schema for workflows.invocation messages,
// one per invocation that reached a terminal state.
type InvocationEventPayload struct {
	WorkflowID string `json:"workflow_id"`
	AgentID    string `json:"agent_id"`
	ToolName   string `json:"tool_name"`
	Status     string `json:"status"`
	Round      int    `json:"round,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}
