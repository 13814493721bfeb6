package queue

import (
	"context"
	"fmt"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/models"
)

// Metadata returns the sync state of the entity.
func (m *Manager) Metadata(ctx context.Context, ref models.EntityRef) (*models.SyncMetadata, bool, error) {
	var (
		md    *models.SyncMetadata
		found bool
	)
	err := m.store.View(ctx, func(r storage.Reader) error {
		var err error
		md, found, err = storage.Load[models.SyncMetadata](r, storage.CollectionSyncMetadata, ref.Key())
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to load metadata %s: %w", ref, err)
	}
	return md, found, nil
}

// ListMetadata returns the sync state of every known entity.
func (m *Manager) ListMetadata(ctx context.Context) ([]*models.SyncMetadata, error) {
	var out []*models.SyncMetadata
	err := m.store.View(ctx, func(r storage.Reader) error {
		recs, err := r.List(storage.CollectionSyncMetadata)
		if err != nil {
			return err
		}
		out, err = storage.LoadAll[models.SyncMetadata](recs)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list metadata: %w", err)
	}
	return out, nil
}

// refresh применяет mutate к метаданным сущности и пересчитывает производный статус.
// Метаданные создаются при первом обращении и никогда не удаляются.
func (m *Manager) refresh(tx storage.Tx, ref models.EntityRef, mutate func(*models.SyncMetadata)) error {
	md, found, err := storage.Load[models.SyncMetadata](tx, storage.CollectionSyncMetadata, ref.Key())
	if err != nil {
		return err
	}
	if !found {
		md = &models.SyncMetadata{EntityType: ref.Type, EntityID: ref.ID}
	}
	if mutate != nil {
		mutate(md)
	}

	items, err := entityItems(tx, ref)
	if err != nil {
		return err
	}
	pending := 0
	for _, item := range items {
		if item.State == models.QueuePending {
			pending++
		}
	}

	open, err := openConflict(tx, ref)
	if err != nil {
		return err
	}

	md.PendingCount = pending
	md.Status = models.DeriveStatus(pending, open != nil, md.LastError)
	md.UpdatedAt = m.clock()

	return storage.Save(tx, storage.CollectionSyncMetadata, ref.Key(), md, storage.Indexes{
		storage.IndexStatus: string(md.Status),
	})
}
