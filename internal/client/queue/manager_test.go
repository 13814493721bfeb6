package queue

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/client/storage/boltdb"
	"github.com/iudanet/rentsync/internal/client/storage/memory"
	"github.com/iudanet/rentsync/internal/models"
)

// fakeClock управляемые часы для тестов
type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(t *testing.T) (*Manager, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	return NewManager(memory.New(), WithClock(clock.Now)), clock
}

func mustEnqueue(t *testing.T, m *Manager, et models.EntityType, id string, op models.Operation, payload any) *models.QueueItem {
	t.Helper()
	item, err := m.Enqueue(context.Background(), et, id, op, payload)
	require.NoError(t, err)
	return item
}

func TestManager_Enqueue(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	notified := 0
	m.OnEnqueue(func() { notified++ })

	item, err := m.Enqueue(ctx, models.EntityWishlist, "p1", models.OpCreate, models.WishlistItem{ProductID: "p1"})
	require.NoError(t, err)

	assert.NotEmpty(t, item.ID)
	assert.Equal(t, uint64(1), item.Seq)
	assert.Equal(t, models.QueuePending, item.State)
	assert.False(t, item.IsSynced())
	assert.Equal(t, clock.Now(), item.CreatedAt)
	assert.JSONEq(t, `{"product_id":"p1"}`, string(item.Payload))
	assert.Equal(t, 1, notified)

	md, found, err := m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.StatusPending, md.Status)
	assert.Equal(t, int64(1), md.LocalVersion)
	assert.Equal(t, 1, md.PendingCount)

	_ = mustEnqueue(t, m, models.EntityWishlist, "p1", models.OpDelete, nil)
	md, _, err = m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, int64(2), md.LocalVersion)
	assert.Equal(t, 2, md.PendingCount)
}

func TestManager_Enqueue_Invalid(t *testing.T) {
	tests := []struct {
		name string
		et   models.EntityType
		id   string
		op   models.Operation
	}{
		{"unknown entity type", "order", "1", models.OpCreate},
		{"unknown operation", models.EntityCart, "1", "upsert"},
		{"empty id", models.EntityCart, "", models.OpCreate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestManager(t)
			_, err := m.Enqueue(context.Background(), tt.et, tt.id, tt.op, nil)
			assert.ErrorIs(t, err, ErrInvalidMutation)

			items, err := m.ListUnsynced(context.Background())
			require.NoError(t, err)
			assert.Empty(t, items)
		})
	}
}

func TestManager_Enqueue_StorageUnavailable(t *testing.T) {
	store := &storage.StoreMock{
		UpdateFunc: func(ctx context.Context, fn func(tx storage.Tx) error) error {
			return storage.ErrStorageUnavailable
		},
	}
	m := NewManager(store)

	notified := false
	m.OnEnqueue(func() { notified = true })

	_, err := m.Enqueue(context.Background(), models.EntityCart, "c1", models.OpCreate, nil)
	assert.ErrorIs(t, err, storage.ErrStorageUnavailable)
	assert.False(t, notified)
	assert.Len(t, store.UpdateCalls(), 1)
}

func TestManager_ListUnsynced_FIFO(t *testing.T) {
	m, clock := newTestManager(t)

	var ids []string
	for _, id := range []string{"a", "b", "a", "c"} {
		item := mustEnqueue(t, m, models.EntityCart, id, models.OpUpdate, map[string]int{"quantity": 1})
		ids = append(ids, item.ID)
		clock.Advance(time.Millisecond)
	}

	items, err := m.ListUnsynced(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 4)
	for i, item := range items {
		assert.Equal(t, ids[i], item.ID)
		assert.Equal(t, uint64(i+1), item.Seq)
	}
}

func TestManager_MarkSynced_Idempotent(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	item := mustEnqueue(t, m, models.EntityWishlist, "p1", models.OpCreate, nil)

	clock.Advance(time.Second)
	require.NoError(t, m.MarkSynced(ctx, item.ID))
	first, err := m.Get(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, first.SyncedAt)

	clock.Advance(time.Minute)
	require.NoError(t, m.MarkSynced(ctx, item.ID))
	second, err := m.Get(ctx, item.ID)
	require.NoError(t, err)

	assert.True(t, second.IsSynced())
	assert.Equal(t, *first.SyncedAt, *second.SyncedAt)

	items, err := m.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)

	md, _, err := m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, md.Status)
}

func TestManager_MarkSynced_Unknown(t *testing.T) {
	m, _ := newTestManager(t)
	err := m.MarkSynced(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestManager_Confirm_TracksRemoteVersion(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	first := mustEnqueue(t, m, models.EntityReservation, "r1", models.OpCreate, nil)
	_ = mustEnqueue(t, m, models.EntityReservation, "r1", models.OpUpdate, nil)

	require.NoError(t, m.Confirm(ctx, first.ID, 1))

	md, _, err := m.Metadata(ctx, first.Entity())
	require.NoError(t, err)
	assert.Equal(t, int64(1), md.RemoteVersion)
	assert.Equal(t, models.StatusPending, md.Status, "second update still pending")
	assert.NotNil(t, md.LastSyncedAt)
}

func TestManager_MarkFailed_ThenConfirm(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	item := mustEnqueue(t, m, models.EntityCart, "c1", models.OpCreate, nil)
	require.NoError(t, m.MarkFailed(ctx, item.ID, errors.New("connection refused")))

	md, _, err := m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, md.Status)
	assert.Equal(t, "connection refused", md.LastError)

	got, err := m.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.QueuePending, got.State)

	require.NoError(t, m.Confirm(ctx, item.ID, 1))
	md, _, err = m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSynced, md.Status)
	assert.Empty(t, md.LastError)
}

func TestManager_Reject(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	item := mustEnqueue(t, m, models.EntityProduct, "p9", models.OpUpdate, nil)
	require.NoError(t, m.Reject(ctx, item.ID, "products are read-only"))

	unsynced, err := m.ListUnsynced(ctx)
	require.NoError(t, err)
	assert.Empty(t, unsynced)

	rejected, err := m.ListRejected(ctx)
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "products are read-only", rejected[0].LastError)
	assert.NotNil(t, rejected[0].ClosedAt)

	assert.ErrorIs(t, m.MarkSynced(ctx, item.ID), ErrItemClosed)
	assert.ErrorIs(t, m.Reject(ctx, item.ID, "again"), ErrItemClosed)

	md, _, err := m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, models.StatusError, md.Status)
}

func TestManager_PurgeSynced(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	old := mustEnqueue(t, m, models.EntityCart, "c1", models.OpCreate, nil)
	require.NoError(t, m.MarkSynced(ctx, old.ID))

	clock.Advance(2 * time.Hour)
	recent := mustEnqueue(t, m, models.EntityCart, "c2", models.OpCreate, nil)
	require.NoError(t, m.MarkSynced(ctx, recent.ID))
	pending := mustEnqueue(t, m, models.EntityCart, "c3", models.OpCreate, nil)

	cutoff := clock.Now().Add(-time.Hour)
	n, err := m.PurgeSynced(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = m.Get(ctx, old.ID)
	assert.ErrorIs(t, err, ErrItemNotFound)
	_, err = m.Get(ctx, recent.ID)
	assert.NoError(t, err)
	_, err = m.Get(ctx, pending.ID)
	assert.NoError(t, err)

	// повторный вызов ничего не меняет
	n, err = m.PurgeSynced(ctx, cutoff)
	require.NoError(t, err)
	assert.Zero(t, n)

	// даже очень поздняя отсечка не трогает pending
	n, err = m.PurgeSynced(ctx, clock.Now().Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	unsynced, err := m.ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, unsynced, 1)
	assert.Equal(t, pending.ID, unsynced[0].ID)

	// метаданные переживают очистку
	md, found, err := m.Metadata(ctx, old.Entity())
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, models.StatusSynced, md.Status)
}

func TestManager_Stats(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	a := mustEnqueue(t, m, models.EntityCart, "c1", models.OpCreate, nil)
	b := mustEnqueue(t, m, models.EntityCart, "c2", models.OpCreate, nil)
	_ = mustEnqueue(t, m, models.EntityCart, "c3", models.OpCreate, nil)
	require.NoError(t, m.MarkSynced(ctx, a.ID))
	require.NoError(t, m.Reject(ctx, b.ID, "bad"))

	st, err := m.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Pending: 1, Synced: 1, Rejected: 1}, *st)
}

func TestManager_RecordConflict_OnePerEntity(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	item := mustEnqueue(t, m, models.EntityReservation, "r1", models.OpUpdate, nil)

	rec, created, err := m.RecordConflict(ctx, &models.ConflictRecord{
		EntityType:    models.EntityReservation,
		EntityID:      "r1",
		QueueItemID:   item.ID,
		Operation:     item.Operation,
		RemoteDeleted: true,
		Reason:        "remote record deleted",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, rec.ID)

	again, created, err := m.RecordConflict(ctx, &models.ConflictRecord{
		EntityType: models.EntityReservation,
		EntityID:   "r1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)

	md, _, err := m.Metadata(ctx, item.Entity())
	require.NoError(t, err)
	assert.Equal(t, models.StatusConflict, md.Status)

	open, err := m.OpenConflictEntities(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"reservation/r1": true}, open)

	// элемент очереди остается неподтвержденным
	got, err := m.Get(ctx, item.ID)
	require.NoError(t, err)
	assert.False(t, got.IsSynced())
}

func TestManager_ResolveConflict(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*Manager, *models.QueueItem, *models.ConflictRecord) {
		m, _ := newTestManager(t)
		first := mustEnqueue(t, m, models.EntityReservation, "r1", models.OpUpdate, json.RawMessage(`{"v":1}`))
		_ = mustEnqueue(t, m, models.EntityReservation, "r1", models.OpUpdate, json.RawMessage(`{"v":2}`))
		rec, _, err := m.RecordConflict(ctx, &models.ConflictRecord{
			EntityType:    models.EntityReservation,
			EntityID:      "r1",
			QueueItemID:   first.ID,
			RemoteVersion: 7,
			RemotePayload: json.RawMessage(`{"v":"server"}`),
		})
		require.NoError(t, err)
		return m, first, rec
	}

	t.Run("with replacement", func(t *testing.T) {
		m, first, rec := setup(t)

		resolved, item, err := m.ResolveConflict(ctx, rec.ID, Resolution{
			Label: "keep_local",
			Replacement: &Mutation{
				EntityType: models.EntityReservation,
				EntityID:   "r1",
				Operation:  models.OpUpdate,
				Payload:    json.RawMessage(`{"v":2}`),
			},
		})
		require.NoError(t, err)
		require.NotNil(t, item)
		assert.True(t, resolved.Resolved)
		assert.Equal(t, "keep_local", resolved.Resolution)

		unsynced, err := m.ListUnsynced(ctx)
		require.NoError(t, err)
		require.Len(t, unsynced, 1)
		assert.Equal(t, item.ID, unsynced[0].ID)

		old, err := m.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.QueueSuperseded, old.State)

		md, _, err := m.Metadata(ctx, first.Entity())
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, md.Status)
		assert.Equal(t, int64(7), md.RemoteVersion)

		open, err := m.OpenConflictEntities(ctx)
		require.NoError(t, err)
		assert.Empty(t, open)

		_, _, err = m.ResolveConflict(ctx, rec.ID, Resolution{Label: "keep_remote"})
		assert.ErrorIs(t, err, ErrConflictResolved)
	})

	t.Run("keep remote", func(t *testing.T) {
		m, first, rec := setup(t)

		_, item, err := m.ResolveConflict(ctx, rec.ID, Resolution{Label: "keep_remote"})
		require.NoError(t, err)
		assert.Nil(t, item)

		unsynced, err := m.ListUnsynced(ctx)
		require.NoError(t, err)
		assert.Empty(t, unsynced)

		md, _, err := m.Metadata(ctx, first.Entity())
		require.NoError(t, err)
		assert.Equal(t, models.StatusSynced, md.Status)
	})

	t.Run("unknown conflict", func(t *testing.T) {
		m, _ := newTestManager(t)
		_, _, err := m.ResolveConflict(ctx, "nope", Resolution{Label: "keep_remote"})
		assert.ErrorIs(t, err, ErrConflictNotFound)
	})
}

func TestManager_ListConflicts(t *testing.T) {
	m, clock := newTestManager(t)
	ctx := context.Background()

	for _, id := range []string{"r2", "r1"} {
		_, _, err := m.RecordConflict(ctx, &models.ConflictRecord{EntityType: models.EntityReservation, EntityID: id})
		require.NoError(t, err)
		clock.Advance(time.Second)
	}

	all, err := m.ListConflicts(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "r2", all[0].EntityID)

	_, _, err = m.ResolveConflict(ctx, all[0].ID, Resolution{Label: "keep_remote"})
	require.NoError(t, err)

	open, err := m.ListConflicts(ctx, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "r1", open[0].EntityID)
}

func TestManager_SurvivesRestart(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "queue.db")

	store, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	m := NewManager(store)
	item := mustEnqueue(t, m, models.EntityCart, "c1", models.OpCreate, models.CartItem{ProductID: "p1", Quantity: 1, RentalDays: 4})
	require.NoError(t, store.Close())

	reopened, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	defer reopened.Close()

	items, err := NewManager(reopened).ListUnsynced(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)
	assert.Equal(t, item.Payload, items[0].Payload)
}
