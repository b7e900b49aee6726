package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "conductor.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "CONDUCTOR_PORT")
	setString(&cfg.Server.CORSOrigin, "CONDUCTOR_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "CONDUCTOR_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "CONDUCTOR_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "CONDUCTOR_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "CONDUCTOR_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "CONDUCTOR_PG_HEALTH_CHECK")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.Logging.Level, "CONDUCTOR_LOG_LEVEL")
	setString(&cfg.Logging.Service, "CONDUCTOR_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "CONDUCTOR_LOG_ASYNC")
	setInt(&cfg.Breaker.MaxFailures, "CONDUCTOR_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "CONDUCTOR_BREAKER_TIMEOUT")
	setInt64(&cfg.Cache.L1MaxSizeMB, "CONDUCTOR_CACHE_L1_SIZE_MB")
	setString(&cfg.OTel.Endpoint, "CONDUCTOR_OTLP_ENDPOINT")

	// Engine
	setInt(&cfg.Engine.MaxConcurrency, "CONDUCTOR_ENGINE_MAX_CONCURRENCY")
	setInt(&cfg.Engine.GroupChatMinRounds, "CONDUCTOR_ENGINE_GROUPCHAT_MIN_ROUNDS")
	setInt(&cfg.Engine.GroupChatMaxRounds, "CONDUCTOR_ENGINE_GROUPCHAT_MAX_ROUNDS")
	setDuration(&cfg.Engine.AgentsCacheTTL, "CONDUCTOR_ENGINE_AGENTS_CACHE_TTL")
	setInt(&cfg.Engine.HistoryLimit, "CONDUCTOR_ENGINE_HISTORY_LIMIT")
}

// validate checks that required fields are set and engine bounds are sane.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port is required")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if cfg.Engine.MaxConcurrency < 0 {
		return errors.New("engine.max_concurrency must not be negative")
	}
	if cfg.Engine.GroupChatMinRounds < 1 {
		return errors.New("engine.groupchat_min_rounds must be >= 1")
	}
	if cfg.Engine.GroupChatMaxRounds < cfg.Engine.GroupChatMinRounds {
		return errors.New("engine.groupchat_max_rounds must be >= engine.groupchat_min_rounds")
	}
	for i := range cfg.MCP.Servers {
		s := &cfg.MCP.Servers[i]
		if s.AgentID == "" {
			return fmt.Errorf("mcp.servers[%d].agent_id is required", i)
		}
		switch s.Transport {
		case "stdio":
			if s.Command == "" {
				return fmt.Errorf("mcp.servers[%d].command is required for stdio transport", i)
			}
		case "sse", "streamable-http":
			if s.URL == "" {
				return fmt.Errorf("mcp.servers[%d].url is required for %s transport", i, s.Transport)
			}
		default:
			return fmt.Errorf("mcp.servers[%d].transport must be stdio, sse or streamable-http", i)
		}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
