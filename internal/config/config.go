// Package config provides hierarchical configuration loading for Conductor.
// Precedence: defaults < YAML file < environment variables.
package config

import "time"

// Config holds all runtime configuration for the Conductor service.
type Config struct {
	Server   Server   `yaml:"server"`
	Postgres Postgres `yaml:"postgres"`
	NATS     NATS     `yaml:"nats"`
	Logging  Logging  `yaml:"logging"`
	Breaker  Breaker  `yaml:"breaker"`
	Cache    Cache    `yaml:"cache"`
	Engine   Engine   `yaml:"engine"`
	MCP      MCP      `yaml:"mcp"`
	OTel     OTel     `yaml:"otel"`
}

// Engine holds orchestration engine configuration. These knobs belong to the
// operator, not to individual workflow requests.
type Engine struct {
	MaxConcurrency     int           `yaml:"max_concurrency"`      // Cap on a request's maxConcurrency; 0 = no cap
	GroupChatMinRounds int           `yaml:"groupchat_min_rounds"` // Minimum discussion rounds (default: 1)
	GroupChatMaxRounds int           `yaml:"groupchat_max_rounds"` // Maximum discussion rounds (default: 3)
	AgentsCacheTTL     time.Duration `yaml:"agents_cache_ttl"`     // TTL for the agent registry snapshot (default: 30s)
	HistoryLimit       int           `yaml:"history_limit"`        // Default page size for workflow history listings
}

// Server holds HTTP server configuration.
type Server struct {
	Port       string `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

// Postgres holds the optional workflow history database configuration.
// An empty DSN disables the postgres history store.
type Postgres struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time"`
	HealthCheck     time.Duration `yaml:"health_check"`
}

// NATS holds NATS JetStream configuration. An empty URL disables durable
// event publishing.
type NATS struct {
	URL string `yaml:"url"`
}

// MCP holds MCP dispatcher configuration: one entry per agent id, each
// pointing at an MCP server that provides the agent's tools.
type MCP struct {
	Servers []MCPServer `yaml:"servers"`
}

// MCPServer describes how to reach one agent's MCP server.
type MCPServer struct {
	AgentID     string            `yaml:"agent_id"`
	Description string            `yaml:"description"`
	Transport   string            `yaml:"transport"` // "stdio" | "sse" | "streamable-http"
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args"`
	Env         map[string]string `yaml:"env"`
	URL         string            `yaml:"url"`
	Headers     map[string]string `yaml:"headers"`
}

// Logging holds structured logging configuration. Async moves record
// handling onto a background worker at the cost of dropping records under
// sustained overload.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// Breaker holds circuit breaker configuration for dispatch calls.
type Breaker struct {
	MaxFailures int           `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
}

// Cache holds in-process cache configuration.
type Cache struct {
	L1MaxSizeMB int64 `yaml:"l1_max_size_mb"`
}

// OTel holds OpenTelemetry exporter configuration. An empty endpoint
// disables the OTLP exporters.
type OTel struct {
	Endpoint string `yaml:"endpoint"`
}

// Defaults returns a Config with sensible default values for local development.
func Defaults() Config {
	return Config{
		Server: Server{
			Port:       "8080",
			CORSOrigin: "http://localhost:3000",
		},
		Postgres: Postgres{
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			MaxConnIdleTime: 10 * time.Minute,
			HealthCheck:     time.Minute,
		},
		Logging: Logging{
			Level:   "info",
			Service: "conductor-core",
		},
		Breaker: Breaker{
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		},
		Cache: Cache{
			L1MaxSizeMB: 64,
		},
		Engine: Engine{
			MaxConcurrency:     0,
			GroupChatMinRounds: 1,
			GroupChatMaxRounds: 3,
			AgentsCacheTTL:     30 * time.Second,
			HistoryLimit:       50,
		},
	}
}
