package models

import (
	"encoding/json"
	"time"
)

// SyncStatus статус синхронизации сущности для UI.
type SyncStatus string

const (
	StatusSynced   SyncStatus = "synced"
	StatusPending  SyncStatus = "pending"
	StatusConflict SyncStatus = "conflict"
	StatusError    SyncStatus = "error"
)

// SyncMetadata хранит состояние синхронизации одной сущности.
// Статус является производным от очереди, журнала конфликтов и последней ошибки.
type SyncMetadata struct {
	UpdatedAt     time.Time  `json:"updated_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"` // LastSyncedAt время последнего подтверждения
	EntityType    EntityType `json:"entity_type"`
	EntityID      string     `json:"entity_id"`
	Status        SyncStatus `json:"status"`
	LastError     string     `json:"last_error,omitempty"`
	LocalVersion  int64      `json:"local_version"`  // LocalVersion растет при каждой локальной мутации
	RemoteVersion int64      `json:"remote_version"` // RemoteVersion последняя известная версия на сервере
	PendingCount  int        `json:"pending_count"`  // PendingCount число неотправленных мутаций
}

// Entity returns the entity reference of the metadata row.
func (m *SyncMetadata) Entity() EntityRef {
	return EntityRef{Type: m.EntityType, ID: m.EntityID}
}

// DeriveStatus computes the badge shown to the user.
// An open conflict wins over an error, an error over pending work.
func DeriveStatus(pending int, openConflict bool, lastError string) SyncStatus {
	switch {
	case openConflict:
		return StatusConflict
	case lastError != "":
		return StatusError
	case pending > 0:
		return StatusPending
	default:
		return StatusSynced
	}
}

// ConflictRecord фиксирует расхождение локальной мутации и состояния сервера.
type ConflictRecord struct {
	DetectedAt      time.Time       `json:"detected_at"`
	LocalCreatedAt  time.Time       `json:"local_created_at"`            // LocalCreatedAt время локального намерения
	RemoteUpdatedAt *time.Time      `json:"remote_updated_at,omitempty"` // RemoteUpdatedAt время последнего изменения на сервере
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty"`
	ID              string          `json:"id"` // ID UUID конфликта
	EntityType      EntityType      `json:"entity_type"`
	EntityID        string          `json:"entity_id"`
	QueueItemID     string          `json:"queue_item_id"` // QueueItemID мутация, вызвавшая конфликт
	Operation       Operation       `json:"operation"`
	Reason          string          `json:"reason"`
	Resolution      string          `json:"resolution,omitempty"`
	LocalPayload    json.RawMessage `json:"local_payload,omitempty"`
	RemotePayload   json.RawMessage `json:"remote_payload,omitempty"` // RemotePayload nil, если запись удалена на сервере
	RemoteVersion   int64           `json:"remote_version"`
	RemoteDeleted   bool            `json:"remote_deleted"`
	Resolved        bool            `json:"resolved"`
}

// Entity returns the entity reference of the conflict.
func (c *ConflictRecord) Entity() EntityRef {
	return EntityRef{Type: c.EntityType, ID: c.EntityID}
}

// CachedAuth локальная копия сессии пользователя.
// Сервер остается источником истины, кэш не используется после ExpiresAt.
type CachedAuth struct {
	CachedAt    time.Time `json:"cached_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
	Username    string    `json:"username"`
	AccessToken string    `json:"access_token"`
}

// Expired reports whether the session must not be used at now.
func (a *CachedAuth) Expired(now time.Time) bool {
	return !now.Before(a.ExpiresAt)
}
