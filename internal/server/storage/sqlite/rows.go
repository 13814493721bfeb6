package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/rentsync/internal/models"
	"github.com/iudanet/rentsync/internal/server/storage"
)

// ApplyMutation applies one mutation in a single transaction.
//
// create on a live row fails with ErrRowExists, a tombstone is revived.
// update and delete require a live row, otherwise ErrRowNotFound.
// A non-zero ExpectedVersion must match the stored version, otherwise ErrVersionConflict.
// Successful outcomes are remembered by mutation ID so a retried request gets the same answer.
func (s *Storage) ApplyMutation(ctx context.Context, m *models.Mutation) (*models.Row, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if m.ID != "" {
		prev, err := appliedOutcome(ctx, tx, m.UserID, m.ID)
		if err != nil {
			return nil, false, err
		}
		if prev != nil {
			return prev, true, nil
		}
	}

	existing, err := selectRow(ctx, tx, m.UserID, m.Collection, m.EntityID)
	if err != nil && !errors.Is(err, storage.ErrRowNotFound) {
		return nil, false, err
	}
	live := existing != nil && !existing.Deleted

	if m.ExpectedVersion != 0 && live && existing.Version != m.ExpectedVersion {
		return nil, false, fmt.Errorf("%w: expected %d, stored %d",
			storage.ErrVersionConflict, m.ExpectedVersion, existing.Version)
	}

	row := &models.Row{
		UserID:     m.UserID,
		Collection: m.Collection,
		EntityID:   m.EntityID,
		UpdatedAt:  s.now().UTC().Truncate(time.Millisecond),
		Version:    1,
	}
	if existing != nil {
		// версия растет и через tombstone
		row.Version = existing.Version + 1
	}

	switch m.Operation {
	case models.OpCreate:
		if live {
			return nil, false, storage.ErrRowExists
		}
		row.Payload = m.Payload
	case models.OpUpdate:
		if !live {
			return nil, false, storage.ErrRowNotFound
		}
		row.Payload = m.Payload
	case models.OpDelete:
		if !live {
			return nil, false, storage.ErrRowNotFound
		}
		row.Deleted = true
	default:
		return nil, false, fmt.Errorf("unsupported operation %q", m.Operation)
	}

	if err := upsertRow(ctx, tx, row); err != nil {
		return nil, false, err
	}

	if m.ID != "" {
		if err := rememberOutcome(ctx, tx, m.UserID, m.ID, row); err != nil {
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("failed to commit mutation: %w", err)
	}

	return row, false, nil
}

// GetRow retrieves the current row. A deleted row is returned as a tombstone
// with Deleted set, so callers can see when and at which version it was removed.
func (s *Storage) GetRow(ctx context.Context, userID, collection, entityID string) (*models.Row, error) {
	return selectRow(ctx, s.db, userID, collection, entityID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func selectRow(ctx context.Context, q querier, userID, collection, entityID string) (*models.Row, error) {
	query := `
		SELECT user_id, collection, entity_id, payload, version, deleted, updated_at
		FROM collection_rows
		WHERE user_id = ? AND collection = ? AND entity_id = ?
	`

	row := &models.Row{}
	var (
		payload   []byte
		deleted   int
		updatedAt int64
	)
	err := q.QueryRowContext(ctx, query, userID, collection, entityID).Scan(
		&row.UserID,
		&row.Collection,
		&row.EntityID,
		&payload,
		&row.Version,
		&deleted,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRowNotFound
		}
		return nil, fmt.Errorf("failed to get row: %w", err)
	}

	if len(payload) > 0 {
		row.Payload = json.RawMessage(payload)
	}
	row.Deleted = deleted != 0
	row.UpdatedAt = time.UnixMilli(updatedAt).UTC()

	return row, nil
}

func upsertRow(ctx context.Context, tx *sql.Tx, row *models.Row) error {
	query := `
		INSERT INTO collection_rows (user_id, collection, entity_id, payload, version, deleted, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, collection, entity_id) DO UPDATE SET
			payload = excluded.payload,
			version = excluded.version,
			deleted = excluded.deleted,
			updated_at = excluded.updated_at
	`

	var payload []byte
	if !row.Deleted {
		payload = row.Payload
	}

	_, err := tx.ExecContext(ctx, query,
		row.UserID,
		row.Collection,
		row.EntityID,
		payload,
		row.Version,
		boolToInt(row.Deleted),
		row.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to save row: %w", err)
	}
	return nil
}

func appliedOutcome(ctx context.Context, tx *sql.Tx, userID, mutationID string) (*models.Row, error) {
	var data []byte
	err := tx.QueryRowContext(ctx,
		`SELECT response FROM applied_mutations WHERE mutation_id = ? AND user_id = ?`,
		mutationID, userID,
	).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up mutation: %w", err)
	}

	var row models.Row
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, fmt.Errorf("failed to decode stored outcome: %w", err)
	}
	return &row, nil
}

func rememberOutcome(ctx context.Context, tx *sql.Tx, userID, mutationID string, row *models.Row) error {
	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to encode outcome: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO applied_mutations (mutation_id, user_id, response, applied_at) VALUES (?, ?, ?, ?)`,
		mutationID, userID, data, row.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record mutation: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
