// Package service implements the orchestration engine: request validation,
// the four coordination pattern executors and result aggregation.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cdotel "github.com/Strob0t/Conductor/internal/adapter/otel"
	"github.com/Strob0t/Conductor/internal/adapter/ws"
	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/port/broadcast"
	"github.com/Strob0t/Conductor/internal/port/cache"
	"github.com/Strob0t/Conductor/internal/port/dispatch"
	"github.com/Strob0t/Conductor/internal/port/history"
	"github.com/Strob0t/Conductor/internal/port/messagequeue"
	"github.com/Strob0t/Conductor/internal/resilience"
)

const agentsCacheKey = "agents.snapshot"

// Orchestrator coordinates execution of agent invocations according to one
// of four patterns. The dispatcher is the only required collaborator; the
// breaker, hub, queue, history store, cache and metrics are optional and
// nil-safe.
type Orchestrator struct {
	dispatcher dispatch.Dispatcher
	engCfg     config.Engine
	breaker    *resilience.Breaker

	hub     broadcast.Broadcaster
	queue   messagequeue.Queue
	history history.Store
	cache   cache.Cache
	metrics *cdotel.Metrics
}

// NewOrchestrator creates an Orchestrator with the given dispatcher and
// engine configuration.
func NewOrchestrator(d dispatch.Dispatcher, engCfg config.Engine) *Orchestrator {
	return &Orchestrator{
		dispatcher: d,
		engCfg:     engCfg,
	}
}

// SetBreaker installs a circuit breaker around dispatch calls.
func (o *Orchestrator) SetBreaker(b *resilience.Breaker) { o.breaker = b }

// SetHub installs a real-time event broadcaster.
func (o *Orchestrator) SetHub(h broadcast.Broadcaster) { o.hub = h }

// SetQueue installs a durable event queue.
func (o *Orchestrator) SetQueue(q messagequeue.Queue) { o.queue = q }

// SetHistory installs a workflow history store.
func (o *Orchestrator) SetHistory(h history.Store) { o.history = h }

// SetCache installs a cache used for agent registry snapshots.
func (o *Orchestrator) SetCache(c cache.Cache) { o.cache = c }

// SetMetrics installs metric instruments.
func (o *Orchestrator) SetMetrics(m *cdotel.Metrics) { o.metrics = m }

// execOutcome is what a pattern executor hands to the aggregator.
type execOutcome struct {
	results []workflow.AgentResult
	stopped bool // execution stopped early because of a failure
	rounds  int  // group-chat only; 0 elsewhere
}

// Execute runs a workflow request to completion and returns the assembled
// result. It returns an error only for malformed requests (wrapped in
// domain.ErrValidation); invocation failures are captured inside the result,
// never raised.
func (o *Orchestrator) Execute(ctx context.Context, req *workflow.Request) (*workflow.Result, error) {
	if err := req.CheckShape(); err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	id := uuid.NewString()
	start := time.Now()

	ctx, span := cdotel.StartWorkflowSpan(ctx, id, string(req.Pattern))
	defer span.End()

	slog.Info("workflow started",
		"workflow_id", id,
		"pattern", req.Pattern,
		"agents", len(req.Agents),
	)
	if o.metrics != nil {
		o.metrics.WorkflowsStarted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("pattern", string(req.Pattern)),
		))
	}
	o.publishJSON(ctx, messagequeue.SubjectWorkflowStarted, messagequeue.WorkflowEventPayload{
		WorkflowID: id,
		Pattern:    string(req.Pattern),
		Status:     "running",
	})
	o.broadcastEvent(ctx, ws.EventWorkflowStatus, ws.WorkflowStatusEvent{
		WorkflowID: id,
		Pattern:    string(req.Pattern),
		Status:     "running",
	})

	var out execOutcome
	switch req.Pattern {
	case workflow.PatternSequential:
		out = o.runSequential(ctx, id, req)
	case workflow.PatternConcurrent:
		out = o.runConcurrent(ctx, id, req)
	case workflow.PatternHandoff:
		out = o.runHandoff(ctx, id, req)
	case workflow.PatternGroupChat:
		out = o.runGroupChat(ctx, id, req)
	}

	res := buildResult(id, req, out, start, time.Now())

	if res.Status == workflow.StatusFailed {
		span.SetStatus(codes.Error, res.Summary)
	}
	if o.metrics != nil {
		attrs := metric.WithAttributes(
			attribute.String("pattern", string(req.Pattern)),
			attribute.String("status", string(res.Status)),
		)
		o.metrics.WorkflowsCompleted.Add(ctx, 1, attrs)
		if res.Status == workflow.StatusFailed {
			o.metrics.WorkflowsFailed.Add(ctx, 1, attrs)
		}
		o.metrics.WorkflowDuration.Record(ctx,
			float64(res.Metadata.TotalDurationMs)/1000.0, attrs)
	}

	if o.history != nil {
		if err := o.history.Record(ctx, res); err != nil {
			slog.Error("record workflow history", "workflow_id", id, "error", err)
		}
	}

	o.publishJSON(ctx, messagequeue.SubjectWorkflowCompleted, messagequeue.WorkflowEventPayload{
		WorkflowID: id,
		Pattern:    string(req.Pattern),
		Status:     string(res.Status),
		Summary:    res.Summary,
	})
	o.broadcastEvent(ctx, ws.EventWorkflowStatus, ws.WorkflowStatusEvent{
		WorkflowID: id,
		Pattern:    string(req.Pattern),
		Status:     string(res.Status),
		Summary:    res.Summary,
	})

	slog.Info("workflow finished",
		"workflow_id", id,
		"status", res.Status,
		"duration_ms", res.Metadata.TotalDurationMs,
	)
	return res, nil
}

// PatternInfo describes one coordination pattern for discovery endpoints.
type PatternInfo struct {
	Pattern     workflow.Pattern `json:"pattern"`
	Description string           `json:"description"`
}

// ListPatterns returns metadata for all supported patterns.
func (o *Orchestrator) ListPatterns() []PatternInfo {
	return []PatternInfo{
		{workflow.PatternSequential, "Executes invocations one at a time in request order."},
		{workflow.PatternConcurrent, "Executes independent invocations through a bounded worker pool."},
		{workflow.PatternHandoff, "Dynamic routing where each step's result decides which step runs next."},
		{workflow.PatternGroupChat, "Iterative rounds over all invocations sharing accumulated discussion context."},
	}
}

// ListAgents returns the dispatcher's registry snapshot, cached for a short
// TTL when a cache is configured.
func (o *Orchestrator) ListAgents(ctx context.Context) ([]dispatch.AgentInfo, error) {
	if o.cache != nil {
		if data, ok, err := o.cache.Get(ctx, agentsCacheKey); err == nil && ok {
			var agents []dispatch.AgentInfo
			if err := json.Unmarshal(data, &agents); err == nil {
				return agents, nil
			}
		}
	}

	agents, err := o.dispatcher.Agents(ctx)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	if o.cache != nil {
		if data, err := json.Marshal(agents); err == nil {
			_ = o.cache.Set(ctx, agentsCacheKey, data, o.engCfg.AgentsCacheTTL)
		}
	}
	return agents, nil
}

// History returns the configured history store, or nil.
func (o *Orchestrator) History() history.Store { return o.history }

// BreakerState reports the circuit breaker state for health endpoints.
func (o *Orchestrator) BreakerState() string { return o.breaker.State() }

func (o *Orchestrator) publishJSON(ctx context.Context, subject string, payload any) {
	if o.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := o.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

func (o *Orchestrator) broadcastEvent(ctx context.Context, eventType string, payload any) {
	if o.hub == nil {
		return
	}
	o.hub.BroadcastEvent(ctx, eventType, payload)
}
