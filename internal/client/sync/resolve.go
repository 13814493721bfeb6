package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/iudanet/rentsync/internal/client/conflict"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/client/queue"
	"github.com/iudanet/rentsync/internal/models"
)

// ResolveConflict settles an open conflict with strategy.
// KeepLocal and Merge queue one corrected mutation based on the server state
// captured at detection; KeepRemote drops the pending local mutations.
func (e *Engine) ResolveConflict(ctx context.Context, conflictID string, strategy conflict.Strategy, mergePayload json.RawMessage) (*models.ConflictRecord, error) {
	rec, err := e.queue.Conflict(ctx, conflictID)
	if err != nil {
		return nil, err
	}
	if rec.Resolved {
		return nil, fmt.Errorf("%w: %s", queue.ErrConflictResolved, conflictID)
	}
	return e.resolve(ctx, rec, strategy, mergePayload)
}

func (e *Engine) resolve(ctx context.Context, rec *models.ConflictRecord, strategy conflict.Strategy, mergePayload json.RawMessage) (*models.ConflictRecord, error) {
	latest, _, err := e.queue.LatestPending(ctx, rec.Entity())
	if err != nil {
		return nil, fmt.Errorf("failed to load local intent: %w", err)
	}

	decision, err := conflict.Decide(rec, conflict.IntentOf(rec, latest), strategy, mergePayload)
	if err != nil {
		return nil, err
	}

	res := queue.Resolution{Label: decision.Resolution}
	if r := decision.Replacement; r != nil {
		res.Replacement = &queue.Mutation{
			EntityType: rec.EntityType,
			EntityID:   rec.EntityID,
			Operation:  r.Operation,
			Payload:    r.Payload,
		}
	}

	resolved, item, err := e.queue.ResolveConflict(ctx, rec.ID, res)
	if err != nil {
		return nil, err
	}

	attrs := []any{"conflict_id", resolved.ID, "entity", resolved.Entity().Key(), "resolution", resolved.Resolution}
	if item != nil {
		attrs = append(attrs, "replacement", item.ID, "operation", item.Operation)
	}
	e.logger.Info("Conflict resolved", attrs...)

	e.emit(events.Event{
		Type:       events.ConflictResolved,
		EntityType: string(resolved.EntityType),
		EntityID:   resolved.EntityID,
		ConflictID: resolved.ID,
	})
	return resolved, nil
}
