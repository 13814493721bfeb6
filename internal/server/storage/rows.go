package storage

import (
	"context"

	"github.com/iudanet/rentsync/internal/models"
)

//go:generate moq -out rows_mock.go . RowStorage

// RowStorage defines interface for per-user collection rows
type RowStorage interface {
	// ApplyMutation applies one mutation atomically with an optimistic version check.
	// A mutation ID that was already applied returns the stored outcome and replayed=true.
	// Returns ErrRowExists, ErrRowNotFound or ErrVersionConflict when the mutation does not fit the row.
	ApplyMutation(ctx context.Context, m *models.Mutation) (row *models.Row, replayed bool, err error)

	// GetRow retrieves the current row, tombstones included
	// Returns ErrRowNotFound if row doesn't exist or is deleted
	GetRow(ctx context.Context, userID, collection, entityID string) (*models.Row, error)
}
