package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntityType_Valid(t *testing.T) {
	tests := []struct {
		name string
		in   EntityType
		want bool
	}{
		{"cart", EntityCart, true},
		{"wishlist", EntityWishlist, true},
		{"product", EntityProduct, true},
		{"reservation", EntityReservation, true},
		{"empty", "", false},
		{"unknown", "order", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Valid())
		})
	}
}

func TestOperation_Valid(t *testing.T) {
	assert.True(t, OpCreate.Valid())
	assert.True(t, OpUpdate.Valid())
	assert.True(t, OpDelete.Valid())
	assert.False(t, Operation("upsert").Valid())
}

func TestQueueItem_TerminalAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	item := &QueueItem{State: QueuePending}
	assert.Nil(t, item.TerminalAt())
	assert.False(t, item.IsSynced())

	item.State = QueueSynced
	item.SyncedAt = &now
	assert.Equal(t, &now, item.TerminalAt())
	assert.True(t, item.IsSynced())

	closed := &QueueItem{State: QueueRejected, ClosedAt: &now}
	assert.Equal(t, &now, closed.TerminalAt())
	assert.True(t, closed.State.Terminal())
}

func TestEntityRef_Key(t *testing.T) {
	ref := EntityRef{Type: EntityReservation, ID: "r1"}
	assert.Equal(t, "reservation/r1", ref.Key())

	item := &QueueItem{EntityType: EntityReservation, EntityID: "r1"}
	assert.Equal(t, ref, item.Entity())
}

func TestQueueItem_JSONFieldNames(t *testing.T) {
	item := QueueItem{
		ID:         "01HZX",
		EntityType: EntityWishlist,
		EntityID:   "p1",
		Operation:  OpCreate,
		State:      QueuePending,
		Payload:    json.RawMessage(`{"product_id":"p1"}`),
	}

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "wishlist", raw["entity_type"])
	assert.Equal(t, "pending", raw["state"])
	assert.NotContains(t, raw, "synced_at")
}

func TestDeriveStatus(t *testing.T) {
	tests := []struct {
		name     string
		pending  int
		conflict bool
		lastErr  string
		want     SyncStatus
	}{
		{"nothing pending", 0, false, "", StatusSynced},
		{"pending work", 2, false, "", StatusPending},
		{"error wins over pending", 1, false, "timeout", StatusError},
		{"conflict wins over error", 1, true, "timeout", StatusConflict},
		{"conflict without pending", 0, true, "", StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveStatus(tt.pending, tt.conflict, tt.lastErr))
		})
	}
}

func TestCachedAuth_Expired(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	auth := &CachedAuth{ExpiresAt: now.Add(time.Minute)}

	assert.False(t, auth.Expired(now))
	assert.True(t, auth.Expired(now.Add(time.Minute)))
	assert.True(t, auth.Expired(now.Add(time.Hour)))
}
