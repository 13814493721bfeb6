// Package queue persists pending local mutations and the per-entity sync state
// derived from them.
package queue

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/iudanet/rentsync/internal/client/storage"
	"github.com/iudanet/rentsync/internal/models"
)

// Mutation is a local intent that has not been enqueued yet.
type Mutation struct {
	EntityType models.EntityType
	EntityID   string
	Operation  models.Operation
	Payload    json.RawMessage
}

// Stats counts queue items per state.
type Stats struct {
	Pending    int `json:"pending"`
	Synced     int `json:"synced"`
	Rejected   int `json:"rejected"`
	Superseded int `json:"superseded"`
}

// Option configures Manager.
type Option func(*Manager)

// WithClock overrides time source.
func WithClock(clock func() time.Time) Option {
	return func(m *Manager) {
		m.clock = clock
	}
}

// WithLogger sets logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// Manager owns the queue, syncMetadata and conflicts collections.
// Every method is a single atomic store transaction.
type Manager struct {
	store   storage.Store
	clock   func() time.Time
	logger  *slog.Logger
	entropy io.Reader
	notify  func()
	mu      sync.Mutex // защищает entropy и notify
}

// NewManager creates queue manager on top of store.
func NewManager(store storage.Store, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		clock:   time.Now,
		logger:  slog.New(slog.DiscardHandler),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// OnEnqueue registers fn to be called after a new item is committed.
// The sync engine uses it to schedule an opportunistic pass.
func (m *Manager) OnEnqueue(fn func()) {
	m.mu.Lock()
	m.notify = fn
	m.mu.Unlock()
}

// Enqueue durably records a local mutation and marks its entity pending.
// Only storage failures are returned; the call never waits for the network.
func (m *Manager) Enqueue(ctx context.Context, entityType models.EntityType, entityID string, op models.Operation, payload any) (*models.QueueItem, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return nil, err
	}
	mut := Mutation{EntityType: entityType, EntityID: entityID, Operation: op, Payload: raw}
	if err := validate(mut); err != nil {
		return nil, err
	}

	var item *models.QueueItem
	err = m.store.Update(ctx, func(tx storage.Tx) error {
		var err error
		item, err = m.append(tx, mut)
		if err != nil {
			return err
		}
		return m.refresh(tx, item.Entity(), func(md *models.SyncMetadata) {
			md.LocalVersion++
			md.LastError = ""
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue %s %s: %w", op, mut.ref(), err)
	}

	m.logger.Debug("mutation enqueued",
		"id", item.ID,
		"entity", item.Entity().Key(),
		"operation", item.Operation)
	m.nudge()
	return item, nil
}

// ListUnsynced returns pending items in enqueue order.
func (m *Manager) ListUnsynced(ctx context.Context) ([]*models.QueueItem, error) {
	return m.listByState(ctx, models.QueuePending)
}

// ListRejected returns items the server refused permanently.
func (m *Manager) ListRejected(ctx context.Context) ([]*models.QueueItem, error) {
	return m.listByState(ctx, models.QueueRejected)
}

// Get returns the item with id.
func (m *Manager) Get(ctx context.Context, id string) (*models.QueueItem, error) {
	var item *models.QueueItem
	err := m.store.View(ctx, func(r storage.Reader) error {
		var err error
		item, err = loadItem(r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// MarkSynced records server confirmation of the item. Repeated calls are no-ops.
func (m *Manager) MarkSynced(ctx context.Context, id string) error {
	return m.Confirm(ctx, id, 0)
}

// Confirm marks the item synced and records the version the server assigned.
// A zero remoteVersion leaves the known remote version unchanged.
func (m *Manager) Confirm(ctx context.Context, id string, remoteVersion int64) error {
	return m.store.Update(ctx, func(tx storage.Tx) error {
		item, err := loadItem(tx, id)
		if err != nil {
			return err
		}
		switch item.State {
		case models.QueueSynced:
			return nil
		case models.QueuePending:
		default:
			return fmt.Errorf("%w: %s is %s", ErrItemClosed, id, item.State)
		}

		now := m.clock()
		item.State = models.QueueSynced
		item.SyncedAt = &now
		if err := saveItem(tx, item); err != nil {
			return err
		}

		return m.refresh(tx, item.Entity(), func(md *models.SyncMetadata) {
			if remoteVersion > 0 {
				md.RemoteVersion = remoteVersion
			}
			md.LastSyncedAt = &now
			md.LastError = ""
		})
	})
}

// MarkFailed records a transient failure for the item's entity.
// The item itself stays pending and will be retried.
func (m *Manager) MarkFailed(ctx context.Context, id string, cause error) error {
	return m.store.Update(ctx, func(tx storage.Tx) error {
		item, err := loadItem(tx, id)
		if err != nil {
			return err
		}
		return m.refresh(tx, item.Entity(), func(md *models.SyncMetadata) {
			md.LastError = cause.Error()
		})
	})
}

// Reject moves the item out of the retry path after a permanent server refusal.
func (m *Manager) Reject(ctx context.Context, id string, reason string) error {
	return m.store.Update(ctx, func(tx storage.Tx) error {
		item, err := loadItem(tx, id)
		if err != nil {
			return err
		}
		if item.State != models.QueuePending {
			return fmt.Errorf("%w: %s is %s", ErrItemClosed, id, item.State)
		}

		now := m.clock()
		item.State = models.QueueRejected
		item.ClosedAt = &now
		item.LastError = reason
		if err := saveItem(tx, item); err != nil {
			return err
		}

		return m.refresh(tx, item.Entity(), func(md *models.SyncMetadata) {
			md.LastError = reason
		})
	})
}

// PurgeSynced deletes items that left the pending state before olderThan.
// Pending items are never touched.
func (m *Manager) PurgeSynced(ctx context.Context, olderThan time.Time) (int, error) {
	var purged int
	err := m.store.Update(ctx, func(tx storage.Tx) error {
		for _, state := range []models.QueueState{models.QueueSynced, models.QueueSuperseded, models.QueueRejected} {
			items, err := itemsByState(tx, state)
			if err != nil {
				return err
			}
			for _, item := range items {
				at := item.TerminalAt()
				if at == nil || !at.Before(olderThan) {
					continue
				}
				if err := tx.Delete(storage.CollectionQueue, item.ID); err != nil {
					return fmt.Errorf("failed to delete item %s: %w", item.ID, err)
				}
				purged++
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue: %w", err)
	}

	if purged > 0 {
		m.logger.Info("purged synced queue items", "count", purged, "older_than", olderThan)
	}
	return purged, nil
}

// Stats returns item counts per state.
func (m *Manager) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{}
	err := m.store.View(ctx, func(r storage.Reader) error {
		counts := map[models.QueueState]*int{
			models.QueuePending:    &st.Pending,
			models.QueueSynced:     &st.Synced,
			models.QueueRejected:   &st.Rejected,
			models.QueueSuperseded: &st.Superseded,
		}
		for state, n := range counts {
			recs, err := r.QueryByIndex(storage.CollectionQueue, storage.IndexState, string(state))
			if err != nil {
				return err
			}
			*n = len(recs)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count queue items: %w", err)
	}
	return st, nil
}

// LatestPending returns the most recent pending item of the entity.
func (m *Manager) LatestPending(ctx context.Context, ref models.EntityRef) (*models.QueueItem, bool, error) {
	var latest *models.QueueItem
	err := m.store.View(ctx, func(r storage.Reader) error {
		items, err := entityItems(r, ref)
		if err != nil {
			return err
		}
		for _, item := range items {
			if item.State == models.QueuePending {
				latest = item
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return latest, latest != nil, nil
}

func (m *Manager) listByState(ctx context.Context, state models.QueueState) ([]*models.QueueItem, error) {
	var items []*models.QueueItem
	err := m.store.View(ctx, func(r storage.Reader) error {
		var err error
		items, err = itemsByState(r, state)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", state, err)
	}
	return items, nil
}

// append создает новый элемент очереди внутри транзакции
func (m *Manager) append(tx storage.Tx, mut Mutation) (*models.QueueItem, error) {
	seq, err := tx.NextSequence(storage.CollectionQueue)
	if err != nil {
		return nil, err
	}

	now := m.clock()
	id, err := m.newID(now)
	if err != nil {
		return nil, err
	}

	item := &models.QueueItem{
		ID:         id,
		Seq:        seq,
		EntityType: mut.EntityType,
		EntityID:   mut.EntityID,
		Operation:  mut.Operation,
		Payload:    mut.Payload,
		CreatedAt:  now,
		State:      models.QueuePending,
	}
	if err := saveItem(tx, item); err != nil {
		return nil, err
	}
	return item, nil
}

func (m *Manager) newID(now time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, err := ulid.New(ulid.Timestamp(now), m.entropy)
	if err != nil {
		return "", fmt.Errorf("failed to generate item id: %w", err)
	}
	return id.String(), nil
}

func (m *Manager) nudge() {
	m.mu.Lock()
	fn := m.notify
	m.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (mut Mutation) ref() models.EntityRef {
	return models.EntityRef{Type: mut.EntityType, ID: mut.EntityID}
}

func validate(mut Mutation) error {
	if !mut.EntityType.Valid() {
		return fmt.Errorf("%w: entity type %q", ErrInvalidMutation, mut.EntityType)
	}
	if !mut.Operation.Valid() {
		return fmt.Errorf("%w: operation %q", ErrInvalidMutation, mut.Operation)
	}
	if mut.EntityID == "" {
		return fmt.Errorf("%w: empty entity id", ErrInvalidMutation)
	}
	return nil
}

func encodePayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	case []byte:
		return json.RawMessage(p), nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrInvalidMutation, err)
	}
	return data, nil
}

func loadItem(r storage.Reader, id string) (*models.QueueItem, error) {
	item, found, err := storage.Load[models.QueueItem](r, storage.CollectionQueue, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}
	return item, nil
}

func saveItem(tx storage.Tx, item *models.QueueItem) error {
	return storage.Save(tx, storage.CollectionQueue, item.ID, item, storage.Indexes{
		storage.IndexState:  string(item.State),
		storage.IndexEntity: item.Entity().Key(),
	})
}

func itemsByState(r storage.Reader, state models.QueueState) ([]*models.QueueItem, error) {
	recs, err := r.QueryByIndex(storage.CollectionQueue, storage.IndexState, string(state))
	if err != nil {
		return nil, err
	}
	return sortedItems(recs)
}

func entityItems(r storage.Reader, ref models.EntityRef) ([]*models.QueueItem, error) {
	recs, err := r.QueryByIndex(storage.CollectionQueue, storage.IndexEntity, ref.Key())
	if err != nil {
		return nil, err
	}
	return sortedItems(recs)
}

// sortedItems декодирует записи и упорядочивает их по Seq
func sortedItems(recs []storage.Record) ([]*models.QueueItem, error) {
	items, err := storage.LoadAll[models.QueueItem](recs)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(items, func(a, b *models.QueueItem) int {
		return cmp.Compare(a.Seq, b.Seq)
	})
	return items, nil
}
