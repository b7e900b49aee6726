// Package local provides an in-process dispatcher backed by registered Go
// functions. It is the dispatcher used in tests and in deployments that
// embed their agent tools directly in the engine binary.
package local

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/port/dispatch"
)

// ToolFunc is the signature of an in-process agent tool. Implementations
// must honor ctx; the engine bounds every invocation with a deadline.
type ToolFunc func(ctx context.Context, args map[string]any) (any, error)

type agentEntry struct {
	description string
	tools       map[string]ToolFunc
}

// Dispatcher routes invocations to registered tool functions.
type Dispatcher struct {
	mu     sync.RWMutex
	agents map[string]*agentEntry
}

// NewDispatcher creates an empty local dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{agents: make(map[string]*agentEntry)}
}

// Register adds a tool under the given agent id, creating the agent on
// first use. Registering the same (agent, tool) pair twice is an error.
func (d *Dispatcher) Register(agentID, toolName string, fn ToolFunc) error {
	if agentID == "" || toolName == "" || fn == nil {
		return fmt.Errorf("register %q/%q: agent id, tool name and func are required", agentID, toolName)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.agents[agentID]
	if !ok {
		entry = &agentEntry{tools: make(map[string]ToolFunc)}
		d.agents[agentID] = entry
	}
	if _, exists := entry.tools[toolName]; exists {
		return fmt.Errorf("register %q/%q: tool already registered", agentID, toolName)
	}
	entry.tools[toolName] = fn
	return nil
}

// Describe attaches a human-readable description to an agent.
func (d *Dispatcher) Describe(agentID, description string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry, ok := d.agents[agentID]
	if !ok {
		entry = &agentEntry{tools: make(map[string]ToolFunc)}
		d.agents[agentID] = entry
	}
	entry.description = description
}

// Validate implements dispatch.Dispatcher.
func (d *Dispatcher) Validate(_ context.Context, agentID, toolName string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.agents[agentID]
	if !ok {
		return fmt.Errorf("unknown agent %q: %w", agentID, domain.ErrNotFound)
	}
	if _, ok := entry.tools[toolName]; !ok {
		return fmt.Errorf("agent %q has no tool %q: %w", agentID, toolName, domain.ErrNotFound)
	}
	return nil
}

// Invoke implements dispatch.Dispatcher.
func (d *Dispatcher) Invoke(ctx context.Context, agentID, toolName string, args map[string]any) (any, error) {
	d.mu.RLock()
	var fn ToolFunc
	if entry, ok := d.agents[agentID]; ok {
		fn = entry.tools[toolName]
	}
	d.mu.RUnlock()

	if fn == nil {
		return nil, fmt.Errorf("unknown tool %s/%s: %w", agentID, toolName, domain.ErrNotFound)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fn(ctx, args)
}

// Agents implements dispatch.Dispatcher. The snapshot is sorted by agent id
// so discovery output is stable.
func (d *Dispatcher) Agents(_ context.Context) ([]dispatch.AgentInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]dispatch.AgentInfo, 0, len(d.agents))
	for id, entry := range d.agents {
		tools := make([]string, 0, len(entry.tools))
		for name := range entry.tools {
			tools = append(tools, name)
		}
		sort.Strings(tools)
		infos = append(infos, dispatch.AgentInfo{
			AgentID:     id,
			Description: entry.description,
			Tools:       tools,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].AgentID < infos[j].AgentID })
	return infos, nil
}
