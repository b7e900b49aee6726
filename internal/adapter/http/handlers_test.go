package http_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	conductorhttp "github.com/Strob0t/Conductor/internal/adapter/http"
	"github.com/Strob0t/Conductor/internal/adapter/local"
	"github.com/Strob0t/Conductor/internal/adapter/memory"
	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
	"github.com/Strob0t/Conductor/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	d := local.NewDispatcher()
	echo := func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	}
	if err := d.Register("echo", "say", echo); err != nil {
		t.Fatalf("register: %v", err)
	}
	d.Describe("echo", "repeats its input")

	orch := service.NewOrchestrator(d, config.Defaults().Engine)
	orch.SetHistory(memory.NewHistoryStore(10))

	h := &conductorhttp.Handlers{
		Orchestrator: orch,
		HistoryLimit: 50,
	}
	r := chi.NewRouter()
	conductorhttp.MountRoutes(r, h)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp, data
}

func getJSON(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("get %s: %v", url, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read %s: %v", url, err)
	}
	return resp, data
}

func TestExecuteWorkflowEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"pattern": "sequential",
		"agents": [{"agentId": "echo", "toolName": "say", "args": {"text": "hello"}}]
	}`
	resp, data := postJSON(t, srv.URL+"/api/v1/workflows/execute", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, data)
	}

	var res workflow.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if res.Status != workflow.StatusCompleted {
		t.Fatalf("workflow status = %s, want completed", res.Status)
	}
	if res.ID == "" {
		t.Fatal("result has no id")
	}
	if len(res.AgentResults) != 1 || res.AgentResults[0].Output != "hello" {
		t.Fatalf("agent results = %+v", res.AgentResults)
	}
}

func TestExecuteWorkflowRejectsBadRequests(t *testing.T) {
	srv := newTestServer(t)

	cases := []struct {
		name string
		body string
		want int
	}{
		{"invalid json", `{"pattern":`, http.StatusBadRequest},
		{"unknown pattern", `{"pattern": "ring", "agents": [{"agentId": "a", "toolName": "run"}]}`, http.StatusBadRequest},
		{"no agents", `{"pattern": "sequential", "agents": []}`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := postJSON(t, srv.URL+"/api/v1/workflows/execute", tc.body)
			if resp.StatusCode != tc.want {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.want)
			}
		})
	}
}

func TestValidateWorkflowEndpoint(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"pattern": "sequential",
		"agents": [{"agentId": "ghost", "toolName": "say"}]
	}`
	resp, data := postJSON(t, srv.URL+"/api/v1/workflows/validate", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (validation problems are data)", resp.StatusCode)
	}

	var report workflow.ValidationReport
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.IsValid {
		t.Fatal("report valid, want invalid for unknown agent")
	}
	if len(report.Errors) == 0 {
		t.Fatal("report has no errors")
	}
}

func TestDiscoveryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, data := getJSON(t, srv.URL+"/api/v1/patterns")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("patterns status = %d", resp.StatusCode)
	}
	var patterns struct {
		Patterns []struct {
			Pattern string `json:"pattern"`
		} `json:"patterns"`
	}
	if err := json.Unmarshal(data, &patterns); err != nil {
		t.Fatalf("decode patterns: %v", err)
	}
	if len(patterns.Patterns) != 4 {
		t.Fatalf("got %d patterns, want 4", len(patterns.Patterns))
	}

	resp, data = getJSON(t, srv.URL+"/api/v1/agents")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("agents status = %d", resp.StatusCode)
	}
	var agents struct {
		Agents []struct {
			AgentID string   `json:"agentId"`
			Tools   []string `json:"tools"`
		} `json:"agents"`
	}
	if err := json.Unmarshal(data, &agents); err != nil {
		t.Fatalf("decode agents: %v", err)
	}
	if len(agents.Agents) != 1 || agents.Agents[0].AgentID != "echo" {
		t.Fatalf("agents = %+v", agents.Agents)
	}
}

func TestWorkflowHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	body := `{
		"pattern": "sequential",
		"agents": [{"agentId": "echo", "toolName": "say", "args": {"text": "hi"}}]
	}`
	_, data := postJSON(t, srv.URL+"/api/v1/workflows/execute", body)
	var res workflow.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}

	resp, data := getJSON(t, srv.URL+"/api/v1/workflows")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var list struct {
		Workflows []workflow.Result `json:"workflows"`
	}
	if err := json.Unmarshal(data, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Workflows) != 1 || list.Workflows[0].ID != res.ID {
		t.Fatalf("list = %+v, want the executed workflow", list.Workflows)
	}

	resp, _ = getJSON(t, srv.URL+"/api/v1/workflows/"+res.ID)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get status = %d", resp.StatusCode)
	}

	resp, _ = getJSON(t, srv.URL+"/api/v1/workflows/ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing workflow status = %d, want 404", resp.StatusCode)
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, data := getJSON(t, srv.URL+"/health")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var health map[string]any
	if err := json.Unmarshal(data, &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "ok" {
		t.Fatalf("health = %v", health)
	}
	if health["breaker"] != "disabled" {
		t.Fatalf("breaker state = %v, want disabled (none installed)", health["breaker"])
	}
}
