// Package memory provides an in-memory history store used when no database
// is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// HistoryStore keeps the most recent workflow results in memory, newest
// first. Older entries beyond the capacity are dropped.
type HistoryStore struct {
	mu      sync.Mutex
	results []workflow.Result
	cap     int
}

// NewHistoryStore creates a store that retains up to capacity results.
func NewHistoryStore(capacity int) *HistoryStore {
	if capacity < 1 {
		capacity = 1
	}
	return &HistoryStore{cap: capacity}
}

// Record implements history.Store.
func (s *HistoryStore) Record(_ context.Context, res *workflow.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.results = append([]workflow.Result{*res}, s.results...)
	if len(s.results) > s.cap {
		s.results = s.results[:s.cap]
	}
	return nil
}

// Get implements history.Store.
func (s *HistoryStore) Get(_ context.Context, id string) (*workflow.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.results {
		if s.results[i].ID == id {
			res := s.results[i]
			return &res, nil
		}
	}
	return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
}

// List implements history.Store. Results are returned newest first.
func (s *HistoryStore) List(_ context.Context, limit int) ([]workflow.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.results) {
		limit = len(s.results)
	}
	out := make([]workflow.Result, limit)
	copy(out, s.results[:limit])
	return out, nil
}
