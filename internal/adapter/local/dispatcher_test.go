package local_test

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/Conductor/internal/adapter/local"
	"github.com/Strob0t/Conductor/internal/domain"
)

func TestRegisterAndInvoke(t *testing.T) {
	d := local.NewDispatcher()
	err := d.Register("echo", "say", func(_ context.Context, args map[string]any) (any, error) {
		return args["text"], nil
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	out, err := d.Invoke(context.Background(), "echo", "say", map[string]any{"text": "hi"})
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	if out != "hi" {
		t.Fatalf("output = %v, want hi", out)
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	d := local.NewDispatcher()
	fn := func(_ context.Context, _ map[string]any) (any, error) { return nil, nil }

	if err := d.Register("a", "run", fn); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := d.Register("a", "run", fn); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if err := d.Register("", "run", fn); err == nil {
		t.Fatal("expected error for empty agent id")
	}
}

func TestValidate(t *testing.T) {
	d := local.NewDispatcher()
	_ = d.Register("a", "run", func(_ context.Context, _ map[string]any) (any, error) { return nil, nil })

	if err := d.Validate(context.Background(), "a", "run"); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if err := d.Validate(context.Background(), "ghost", "run"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown agent error = %v, want ErrNotFound", err)
	}
	if err := d.Validate(context.Background(), "a", "fly"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown tool error = %v, want ErrNotFound", err)
	}
}

func TestInvokeHonorsCanceledContext(t *testing.T) {
	d := local.NewDispatcher()
	called := false
	_ = d.Register("a", "run", func(_ context.Context, _ map[string]any) (any, error) {
		called = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Invoke(ctx, "a", "run", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("tool ran despite canceled context")
	}
}

func TestAgentsSnapshot(t *testing.T) {
	d := local.NewDispatcher()
	fn := func(_ context.Context, _ map[string]any) (any, error) { return nil, nil }
	_ = d.Register("writer", "draft", fn)
	_ = d.Register("writer", "edit", fn)
	_ = d.Register("reviewer", "review", fn)
	d.Describe("reviewer", "checks drafts")

	agents, err := d.Agents(context.Background())
	if err != nil {
		t.Fatalf("agents: %v", err)
	}
	if len(agents) != 2 {
		t.Fatalf("got %d agents, want 2", len(agents))
	}
	if agents[0].AgentID != "reviewer" || agents[0].Description != "checks drafts" {
		t.Fatalf("agents[0] = %+v, want described reviewer first", agents[0])
	}
	if len(agents[1].Tools) != 2 || agents[1].Tools[0] != "draft" {
		t.Fatalf("writer tools = %v, want sorted [draft edit]", agents[1].Tools)
	}
}
