package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	conhttp "github.com/Strob0t/Conductor/internal/adapter/http"
	"github.com/Strob0t/Conductor/internal/adapter/local"
	"github.com/Strob0t/Conductor/internal/adapter/mcp"
	"github.com/Strob0t/Conductor/internal/adapter/memory"
	connats "github.com/Strob0t/Conductor/internal/adapter/nats"
	"github.com/Strob0t/Conductor/internal/adapter/natskv"
	conotel "github.com/Strob0t/Conductor/internal/adapter/otel"
	"github.com/Strob0t/Conductor/internal/adapter/postgres"
	"github.com/Strob0t/Conductor/internal/adapter/ristretto"
	"github.com/Strob0t/Conductor/internal/adapter/tiered"
	"github.com/Strob0t/Conductor/internal/adapter/ws"
	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/logger"
	"github.com/Strob0t/Conductor/internal/middleware"
	"github.com/Strob0t/Conductor/internal/port/cache"
	"github.com/Strob0t/Conductor/internal/port/dispatch"
	"github.com/Strob0t/Conductor/internal/resilience"
	"github.com/Strob0t/Conductor/internal/service"
)

// inMemoryHistoryCap bounds the fallback history store when no database is
// configured.
const inMemoryHistoryCap = 1000

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command = args[0]
		args = args[1:]
	}

	switch command {
	case "serve":
		flags, err := config.ParseFlags(args)
		if err != nil {
			return err
		}
		cfg, path, err := config.LoadWithCLI(flags)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log, logCloser := logger.New(cfg.Logging)
		slog.SetDefault(log)
		defer logCloser.Close()
		return serve(config.NewHolder(cfg, path))
	case "migrate", "validate":
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		log, logCloser := logger.New(cfg.Logging)
		slog.SetDefault(log)
		defer logCloser.Close()
		if command == "migrate" {
			return runMigrate(cfg)
		}
		return runValidate(cfg, args)
	default:
		return fmt.Errorf("unknown command: %s (expected serve, migrate or validate)", command)
	}
}

func serve(holder *config.Holder) error {
	ctx := context.Background()
	cfg := holder.Get()

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"mcp_servers", len(cfg.MCP.Servers),
	)

	// --- Telemetry ---
	otelShutdown, err := conotel.Setup(ctx, cfg.OTel.Endpoint, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Error("otel shutdown", "error", err)
		}
	}()

	metrics, err := conotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	// --- Dispatcher ---
	dispatcher, closeDispatcher, err := buildDispatcher(ctx, cfg)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	defer closeDispatcher()

	// --- Orchestrator ---
	orch := service.NewOrchestrator(dispatcher, cfg.Engine)
	orch.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))
	orch.SetMetrics(metrics)

	hub := ws.NewHub()
	defer hub.Close()
	orch.SetHub(hub)

	handlers := &conhttp.Handlers{
		Orchestrator: orch,
		Hub:          hub,
		HistoryLimit: cfg.Engine.HistoryLimit,
	}

	// NATS (optional)
	var queue *connats.Queue
	if cfg.NATS.URL != "" {
		queue, err = connats.Connect(ctx, cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer func() {
			if err := queue.Drain(); err != nil {
				slog.Error("nats drain", "error", err)
			}
		}()
		orch.SetQueue(queue)
		handlers.Queue = queue
	}

	// Postgres history (optional, in-memory fallback)
	if cfg.Postgres.DSN != "" {
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.Postgres)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		orch.SetHistory(postgres.NewHistoryStore(pool))
		slog.Info("postgres history store enabled")
	} else {
		orch.SetHistory(memory.NewHistoryStore(inMemoryHistoryCap))
		slog.Info("in-memory history store enabled", "capacity", inMemoryHistoryCap)
	}

	// Cache: in-process L1, layered over a shared NATS KV L2 when available.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer l1.Close()
	var agentCache cache.Cache = l1
	if queue != nil {
		kv, err := queue.KeyValue(ctx, "conductor-cache", cfg.Engine.AgentsCacheTTL)
		if err != nil {
			return fmt.Errorf("nats kv: %w", err)
		}
		agentCache = tiered.New(l1, natskv.New(kv), cfg.Engine.AgentsCacheTTL)
	}
	orch.SetCache(agentCache)

	// --- HTTP ---
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(conhttp.Logger)
	r.Use(conhttp.SecurityHeaders)
	r.Use(conhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(conotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.Recoverer)

	conhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute, // workflows may chain several slow invocations
		IdleTimeout:       120 * time.Second,
	}

	// SIGHUP re-reads the config file; only the log level takes effect
	// without a restart.
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)
	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			logger.SetLevel(holder.Get().Logging.Level)
			slog.Info("config reloaded", "log_level", holder.Get().Logging.Level)
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

// buildDispatcher returns the MCP dispatcher when servers are configured and
// an empty local dispatcher otherwise, so the engine stays usable for
// discovery and validation without any MCP setup.
func buildDispatcher(ctx context.Context, cfg *config.Config) (dispatch.Dispatcher, func(), error) {
	if len(cfg.MCP.Servers) > 0 {
		d, err := mcp.NewDispatcher(ctx, cfg.MCP.Servers)
		if err != nil {
			return nil, nil, err
		}
		slog.Info("mcp dispatcher ready", "agents", len(cfg.MCP.Servers))
		return d, d.Close, nil
	}
	slog.Warn("no mcp servers configured, using empty local dispatcher")
	return local.NewDispatcher(), func() {}, nil
}

// runMigrate applies pending database migrations and exits.
func runMigrate(cfg *config.Config) error {
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("migrate: postgres.dsn is not configured")
	}
	if err := postgres.RunMigrations(context.Background(), cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	slog.Info("migrations applied")
	return nil
}
