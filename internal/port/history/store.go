// Package history defines the port for recording finished workflow results.
// History is an audit trail, not workflow state: the engine never reads it
// back during execution and losing it does not affect correctness.
package history

import (
	"context"

	"github.com/Strob0t/Conductor/internal/domain/workflow"
)

// Store persists completed workflow results.
type Store interface {
	// Record stores a finished result.
	Record(ctx context.Context, res *workflow.Result) error

	// Get returns a previously recorded result by id.
	Get(ctx context.Context, id string) (*workflow.Result, error)

	// List returns the most recent results, newest first, up to limit.
	List(ctx context.Context, limit int) ([]workflow.Result, error)
}
