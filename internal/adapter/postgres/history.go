package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Strob0t/Conductor/internal/domain"
	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// HistoryStore persists workflow results as JSONB rows.
type HistoryStore struct {
	pool *pgxpool.Pool
}

// NewHistoryStore creates a postgres-backed history store.
func NewHistoryStore(pool *pgxpool.Pool) *HistoryStore {
	return &HistoryStore{pool: pool}
}

// Record implements history.Store.
func (s *HistoryStore) Record(ctx context.Context, res *workflow.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal workflow result: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO workflow_results (id, pattern, status, result) VALUES ($1, $2, $3, $4)`,
		res.ID, string(res.Metadata.Pattern), string(res.Status), data,
	)
	if err != nil {
		return fmt.Errorf("insert workflow result: %w", err)
	}
	return nil
}

// Get implements history.Store.
func (s *HistoryStore) Get(ctx context.Context, id string) (*workflow.Result, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT result FROM workflow_results WHERE id = $1`, id,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("workflow %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select workflow result: %w", err)
	}

	var res workflow.Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("unmarshal workflow result: %w", err)
	}
	return &res, nil
}

// List implements history.Store. Results are returned newest first.
func (s *HistoryStore) List(ctx context.Context, limit int) ([]workflow.Result, error) {
	if limit < 1 {
		limit = 1
	}
	rows, err := s.pool.Query(ctx,
		`SELECT result FROM workflow_results ORDER BY created_at DESC LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list workflow results: %w", err)
	}
	defer rows.Close()

	var results []workflow.Result
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan workflow result: %w", err)
		}
		var res workflow.Result
		if err := json.Unmarshal(data, &res); err != nil {
			return nil, fmt.Errorf("unmarshal workflow result: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
