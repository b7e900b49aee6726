package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventWorkflowStatus   = "workflow.status"
	EventInvocationStatus = "workflow.invocation"
)

// WorkflowStatusEvent is broadcast when a workflow starts or finishes.
type WorkflowStatusEvent struct {
	WorkflowID string `json:"workflow_id"`
	Pattern    string `json:"pattern"`
	Status     string `json:"status"`
	Summary    string `json:"summary,omitempty"`
}

// InvocationStatusEvent is broadcast when a single invocation reaches a
// terminal state.
type InvocationStatusEvent struct {
	WorkflowID string `json:"workflow_id"`
	AgentID    string `json:"agent_id"`
	ToolName   string `json:"tool_name"`
	Status     string `json:"status"`
	Round      int    `json:"round,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// BroadcastEvent is a convenience method that marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
