// Package repository holds published plans and answers score queries
// against the latest one.
package repository

import (
	"context"

	"github.com/okian/tofo/internal/domain/types"
)

// Store provides read/write access to published plans.
type Store interface {
	// Publish makes p the latest plan. Readers see either the previous plan
	// or p in full, never a mix.
	Publish(ctx context.Context, p *types.Plan) error

	// Latest returns the most recently published plan or ErrNoPlan.
	Latest(ctx context.Context) (*types.Plan, error)

	// Get returns a retained plan by ID or ErrNotFound.
	Get(ctx context.Context, id string) (*types.Plan, error)

	// Rank returns the score entry for a target in the latest plan.
	// Returns ErrNotFound if the target was not scored.
	Rank(ctx context.Context, target string) (types.Entry, error)

	// TopN returns the top-N entries of the latest plan ordered by rank.
	TopN(ctx context.Context, n int) ([]types.Entry, error)

	// Count returns the number of scored targets in the latest plan.
	Count(ctx context.Context) int
}
