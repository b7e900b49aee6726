package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/Conductor/internal/adapter/ws"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/port/messagequeue"
	"github.com/Strob0t/Conductor/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Orchestrator *service.Orchestrator
	Hub          *ws.Hub
	Queue        messagequeue.Queue // optional, health reporting only
	HistoryLimit int                // default page size for workflow listings
}

// ExecuteWorkflow runs a workflow request synchronously and returns the
// aggregated result.
//
//	POST /api/v1/workflows/execute
func (h *Handlers) ExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.Request](w, r)
	if !ok {
		return
	}

	res, err := h.Orchestrator.Execute(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, "workflow rejected")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ValidateWorkflow checks a workflow request without executing anything.
//
//	POST /api/v1/workflows/validate
func (h *Handlers) ValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[workflow.Request](w, r)
	if !ok {
		return
	}

	report, err := h.Orchestrator.Validate(r.Context(), &req)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListPatterns returns the supported coordination patterns.
//
//	GET /api/v1/patterns
func (h *Handlers) ListPatterns(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"patterns": h.Orchestrator.ListPatterns(),
	})
}

// ListAgents returns the dispatcher's agent registry snapshot.
//
//	GET /api/v1/agents
func (h *Handlers) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.Orchestrator.ListAgents(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// ListWorkflows returns recent workflow results from the history store.
//
//	GET /api/v1/workflows?limit=N
func (h *Handlers) ListWorkflows(w http.ResponseWriter, r *http.Request) {
	store := h.Orchestrator.History()
	if store == nil {
		writeError(w, http.StatusNotImplemented, "workflow history is not configured")
		return
	}

	limit := h.HistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	results, err := store.List(r.Context(), limit)
	if err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"workflows": results})
}

// GetWorkflow returns one stored workflow result by id.
//
//	GET /api/v1/workflows/{id}
func (h *Handlers) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	store := h.Orchestrator.History()
	if store == nil {
		writeError(w, http.StatusNotImplemented, "workflow history is not configured")
		return
	}

	id := chi.URLParam(r, "id")
	res, err := store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "workflow not found")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Health reports liveness plus the state of optional subsystems.
//
//	GET /health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	status := map[string]any{
		"status":  "ok",
		"breaker": h.Orchestrator.BreakerState(),
	}
	if h.Queue != nil {
		status["nats_connected"] = h.Queue.IsConnected()
	}
	if h.Hub != nil {
		status["ws_connections"] = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, status)
}
