// Package dispatch defines the agent dispatcher port consumed by the
// orchestration engine. The dispatcher resolves an (agent id, tool name)
// pair to a callable and executes it; the engine never sees the business
// logic behind a tool.
package dispatch

import "context"

// AgentInfo describes one agent known to a dispatcher.
type AgentInfo struct {
	AgentID     string   `json:"agentId"`
	Description string   `json:"description,omitempty"`
	Tools       []string `json:"tools"`
}

// Dispatcher is the port interface for executing agent tool calls.
// Implementations must be safe for concurrent use: the concurrent pattern
// issues overlapping Invoke calls.
type Dispatcher interface {
	// Validate reports whether the (agentID, toolName) pair is known.
	// A non-nil error describes why the pair cannot be dispatched.
	Validate(ctx context.Context, agentID, toolName string) error

	// Invoke executes the tool and returns its output. The call must honor
	// ctx cancellation/deadline; the engine bounds every invocation with a
	// per-step timeout.
	Invoke(ctx context.Context, agentID, toolName string, args map[string]any) (any, error)

	// Agents returns a snapshot of the dispatcher's registry.
	Agents(ctx context.Context) ([]AgentInfo, error)
}
