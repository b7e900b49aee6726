// Package mcp implements the dispatcher port on top of MCP servers: each
// configured agent id maps to one MCP server whose tools become the agent's
// callable tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpprotocol "github.com/mark3labs/mcp-go/mcp"

	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/port/dispatch"
)

// serverConn is one connected MCP server serving one agent id.
type serverConn struct {
	client      mcpclient.MCPClient
	description string
	tools       map[string]string // name -> description
}

// Dispatcher routes invocations to MCP servers.
type Dispatcher struct {
	mu    sync.RWMutex
	conns map[string]*serverConn
}

// NewDispatcher connects to every configured MCP server, performs the
// initialize handshake and discovers each server's tools. Servers that fail
// to connect abort construction; a partially-available registry would make
// validation results meaningless.
func NewDispatcher(ctx context.Context, servers []config.MCPServer) (*Dispatcher, error) {
	d := &Dispatcher{conns: make(map[string]*serverConn, len(servers))}

	for i := range servers {
		def := &servers[i]
		if _, dup := d.conns[def.AgentID]; dup {
			d.Close()
			return nil, fmt.Errorf("mcp: duplicate agent id %q", def.AgentID)
		}
		conn, err := connect(ctx, def)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("mcp: agent %q: %w", def.AgentID, err)
		}
		d.conns[def.AgentID] = conn
		slog.Info("mcp server connected",
			"agent_id", def.AgentID,
			"transport", def.Transport,
			"tools", len(conn.tools),
		)
	}
	return d, nil
}

func connect(ctx context.Context, def *config.MCPServer) (*serverConn, error) {
	client, err := createClient(def)
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	initReq := mcpprotocol.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpprotocol.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpprotocol.Implementation{
		Name:    "conductor",
		Version: "1.0.0",
	}
	if _, err := client.Initialize(ctx, initReq); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("initialize: %w", err)
	}

	toolsResult, err := client.ListTools(ctx, mcpprotocol.ListToolsRequest{})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("tools/list: %w", err)
	}

	tools := make(map[string]string, len(toolsResult.Tools))
	for i := range toolsResult.Tools {
		tools[toolsResult.Tools[i].Name] = toolsResult.Tools[i].Description
	}
	return &serverConn{
		client:      client,
		description: def.Description,
		tools:       tools,
	}, nil
}

// createClient builds an mcp-go client for the given server definition.
func createClient(def *config.MCPServer) (mcpclient.MCPClient, error) {
	switch def.Transport {
	case "stdio":
		return mcpclient.NewStdioMCPClient(def.Command, envMapToSlice(def.Env), def.Args...)

	case "sse":
		var opts []transport.ClientOption
		if len(def.Headers) > 0 {
			opts = append(opts, transport.WithHeaders(def.Headers))
		}
		return mcpclient.NewSSEMCPClient(def.URL, opts...)

	case "streamable-http":
		var opts []transport.StreamableHTTPCOption
		if len(def.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(def.Headers))
		}
		return mcpclient.NewStreamableHttpClient(def.URL, opts...)

	default:
		return nil, fmt.Errorf("unsupported transport: %s", def.Transport)
	}
}

// Validate implements dispatch.Dispatcher.
func (d *Dispatcher) Validate(_ context.Context, agentID, toolName string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	conn, ok := d.conns[agentID]
	if !ok {
		return fmt.Errorf("unknown agent %q: %w", agentID, domain.ErrNotFound)
	}
	if _, ok := conn.tools[toolName]; !ok {
		return fmt.Errorf("agent %q has no tool %q: %w", agentID, toolName, domain.ErrNotFound)
	}
	return nil
}

// Invoke implements dispatch.Dispatcher. The tool result's text content is
// decoded as JSON when possible so workflow conditions can address output
// fields; otherwise the raw text is returned.
func (d *Dispatcher) Invoke(ctx context.Context, agentID, toolName string, args map[string]any) (any, error) {
	d.mu.RLock()
	conn, ok := d.conns[agentID]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown agent %q: %w", agentID, domain.ErrNotFound)
	}

	req := mcpprotocol.CallToolRequest{}
	req.Params.Name = toolName
	req.Params.Arguments = args

	result, err := conn.client.CallTool(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("call %s/%s: %w", agentID, toolName, err)
	}

	text := joinTextContent(result.Content)
	if result.IsError {
		return nil, fmt.Errorf("call %s/%s: %s", agentID, toolName, text)
	}
	return decodeOutput(text), nil
}

// Agents implements dispatch.Dispatcher.
func (d *Dispatcher) Agents(_ context.Context) ([]dispatch.AgentInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	infos := make([]dispatch.AgentInfo, 0, len(d.conns))
	for id, conn := range d.conns {
		tools := make([]string, 0, len(conn.tools))
		for name := range conn.tools {
			tools = append(tools, name)
		}
		infos = append(infos, dispatch.AgentInfo{
			AgentID:     id,
			Description: conn.description,
			Tools:       tools,
		})
	}
	return infos, nil
}

// Close closes all server connections.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for id, conn := range d.conns {
		if err := conn.client.Close(); err != nil {
			slog.Warn("close mcp client", "agent_id", id, "error", err)
		}
	}
	d.conns = make(map[string]*serverConn)
}

func joinTextContent(content []mcpprotocol.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(mcpprotocol.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// decodeOutput turns a tool's text payload into a structured value when it
// is valid JSON.
func decodeOutput(text string) any {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var v any
		if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
			return v
		}
	}
	return text
}

func envMapToSlice(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, k+"="+v)
	}
	return out
}
