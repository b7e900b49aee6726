package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/Strob0t/Conductor/internal/config"
	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// testStore connects to postgres or skips the test if DATABASE_URL is not set.
func testStore(t *testing.T) *HistoryStore {
	t.Helper()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("requires DATABASE_URL")
	}

	ctx := context.Background()
	if err := RunMigrations(ctx, dsn); err != nil {
		t.Fatalf("migrations: %v", err)
	}

	cfg := config.Defaults().Postgres
	cfg.DSN = dsn
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	t.Cleanup(pool.Close)

	return NewHistoryStore(pool)
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	res := &workflow.Result{
		ID:     uuid.NewString(),
		Status: workflow.StatusCompleted,
		AgentResults: []workflow.AgentResult{
			{AgentID: "echo", Status: workflow.AgentCompleted, Output: "hi"},
		},
		Summary: "sequential orchestration completed: 1 succeeded, 0 failed, 0 skipped (3ms)",
		Metadata: workflow.WorkflowMeta{
			Pattern: workflow.PatternSequential,
		},
	}
	if err := s.Record(ctx, res); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.Get(ctx, res.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != res.Status || len(got.AgentResults) != 1 {
		t.Fatalf("got %+v", got)
	}
	if got.AgentResults[0].Output != "hi" {
		t.Fatalf("output = %v, want hi", got.AgentResults[0].Output)
	}

	if _, err := s.Get(ctx, uuid.NewString()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("error = %v, want ErrNotFound", err)
	}
}

func TestHistoryStoreList(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	var ids []string
	for i := range 3 {
		res := &workflow.Result{
			ID:      uuid.NewString(),
			Status:  workflow.StatusCompleted,
			Summary: fmt.Sprintf("run %d", i),
			Metadata: workflow.WorkflowMeta{
				Pattern: workflow.PatternConcurrent,
			},
		}
		if err := s.Record(ctx, res); err != nil {
			t.Fatalf("record: %v", err)
		}
		ids = append(ids, res.ID)
	}

	results, err := s.List(ctx, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	// Newest first; the most recent insert leads.
	if results[0].ID != ids[2] {
		t.Fatalf("results[0].ID = %s, want %s", results[0].ID, ids[2])
	}
}
