package queue

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/models"
)

// Resolution closes a conflict and optionally queues the corrected mutation.
type Resolution struct {
	Replacement *Mutation // nil, если остается серверная версия
	Label       string    // keep_local, keep_remote, merge...
}

// RecordConflict stores rec unless the entity already has an open conflict.
// It returns the open record and whether it was created by this call.
func (m *Manager) RecordConflict(ctx context.Context, rec *models.ConflictRecord) (*models.ConflictRecord, bool, error) {
	var (
		out     *models.ConflictRecord
		created bool
	)
	err := m.store.Update(ctx, func(tx storage.Tx) error {
		existing, err := openConflict(tx, rec.Entity())
		if err != nil {
			return err
		}
		if existing != nil {
			out = existing
			return nil
		}

		c := *rec
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		if c.DetectedAt.IsZero() {
			c.DetectedAt = m.clock()
		}
		c.Resolved = false
		c.Resolution = ""
		c.ResolvedAt = nil
		if err := saveConflict(tx, &c); err != nil {
			return err
		}
		out, created = &c, true

		return m.refresh(tx, c.Entity(), nil)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to record conflict for %s: %w", rec.Entity(), err)
	}
	return out, created, nil
}

// Conflict returns the conflict with id.
func (m *Manager) Conflict(ctx context.Context, id string) (*models.ConflictRecord, error) {
	var rec *models.ConflictRecord
	err := m.store.View(ctx, func(r storage.Reader) error {
		var err error
		rec, err = loadConflict(r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListConflicts returns conflicts ordered by detection time.
func (m *Manager) ListConflicts(ctx context.Context, openOnly bool) ([]*models.ConflictRecord, error) {
	var out []*models.ConflictRecord
	err := m.store.View(ctx, func(r storage.Reader) error {
		var (
			recs []storage.Record
			err  error
		)
		if openOnly {
			recs, err = r.QueryByIndex(storage.CollectionConflicts, storage.IndexOpen, strconv.FormatBool(true))
		} else {
			recs, err = r.List(storage.CollectionConflicts)
		}
		if err != nil {
			return err
		}
		out, err = storage.LoadAll[models.ConflictRecord](recs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}

	slices.SortFunc(out, func(a, b *models.ConflictRecord) int {
		return cmp.Or(a.DetectedAt.Compare(b.DetectedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// OpenConflictEntities returns entity keys that have an unresolved conflict.
func (m *Manager) OpenConflictEntities(ctx context.Context) (map[string]bool, error) {
	open, err := m.ListConflicts(ctx, true)
	if err != nil {
		return nil, err
	}
	keys := make(map[string]bool, len(open))
	for _, c := range open {
		keys[c.Entity().Key()] = true
	}
	return keys, nil
}

// ResolveConflict closes the conflict in one transaction: pending items of the
// entity are superseded, the remote version observed at detection is adopted,
// and res.Replacement, if any, is appended as a fresh pending item.
func (m *Manager) ResolveConflict(ctx context.Context, id string, res Resolution) (*models.ConflictRecord, *models.QueueItem, error) {
	if res.Replacement != nil {
		if err := validate(*res.Replacement); err != nil {
			return nil, nil, err
		}
	}

	var (
		rec  *models.ConflictRecord
		item *models.QueueItem
	)
	err := m.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		rec, err = loadConflict(tx, id)
		if err != nil {
			return err
		}
		if rec.Resolved {
			return fmt.Errorf("%w: %s", ErrConflictResolved, id)
		}

		now := m.clock()
		rec.Resolved = true
		rec.Resolution = res.Label
		rec.ResolvedAt = &now
		if err := saveConflict(tx, rec); err != nil {
			return err
		}

		items, err := entityItems(tx, rec.Entity())
		if err != nil {
			return err
		}
		for _, it := range items {
			if it.State != models.QueuePending {
				continue
			}
			it.State = models.QueueSuperseded
			it.ClosedAt = &now
			if err := saveItem(tx, it); err != nil {
				return err
			}
		}

		if res.Replacement != nil {
			if item, err = m.append(tx, *res.Replacement); err != nil {
				return err
			}
		}

		return m.refresh(tx, rec.Entity(), func(md *models.SyncMetadata) {
			md.RemoteVersion = rec.RemoteVersion
			md.LastError = ""
			if item != nil {
				md.LocalVersion++
			} else {
				md.LastSyncedAt = &now
			}
		})
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve conflict %s: %w", id, err)
	}

	m.logger.Info("conflict resolved",
		"id", rec.ID,
		"entity", rec.Entity().Key(),
		"resolution", rec.Resolution)
	if item != nil {
		m.nudge()
	}
	return rec, item, nil
}

func openConflict(r storage.Reader, ref models.EntityRef) (*models.ConflictRecord, error) {
	recs, err := r.QueryByIndex(storage.CollectionConflicts, storage.IndexEntity, ref.Key())
	if err != nil {
		return nil, err
	}
	conflicts, err := storage.LoadAll[models.ConflictRecord](recs)
	if err != nil {
		return nil, err
	}
	for _, c := range conflicts {
		if !c.Resolved {
			return c, nil
		}
	}
	return nil, nil
}

func loadConflict(r storage.Reader, id string) (*models.ConflictRecord, error) {
	rec, found, err := storage.Load[models.ConflictRecord](r, storage.CollectionConflicts, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrConflictNotFound, id)
	}
	return rec, nil
}

func saveConflict(tx storage.Tx, rec *models.ConflictRecord) error {
	return storage.Save(tx, storage.CollectionConflicts, rec.ID, rec, storage.Indexes{
		storage.IndexEntity: rec.Entity().Key(),
		storage.IndexOpen:   strconv.FormatBool(!rec.Resolved),
	})
}
