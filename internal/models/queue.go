package models

import (
	"encoding/json"
	"time"
)

// EntityType тип сущности витрины, изменения которой проходят через очередь.
type EntityType string

const (
	EntityCart        EntityType = "cart"
	EntityWishlist    EntityType = "wishlist"
	EntityProduct     EntityType = "product"
	EntityReservation EntityType = "reservation"
)

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	switch t {
	case EntityCart, EntityWishlist, EntityProduct, EntityReservation:
		return true
	}
	return false
}

// Operation тип мутации.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Valid reports whether o is one of the known operations.
func (o Operation) Valid() bool {
	switch o {
	case OpCreate, OpUpdate, OpDelete:
		return true
	}
	return false
}

// QueueState состояние элемента очереди.
// Из pending элемент переходит ровно один раз в одно из терминальных состояний.
type QueueState string

const (
	QueuePending    QueueState = "pending"    // ожидает отправки
	QueueSynced     QueueState = "synced"     // подтвержден сервером
	QueueRejected   QueueState = "rejected"   // окончательно отклонен сервером
	QueueSuperseded QueueState = "superseded" // заменен при разрешении конфликта
)

// Terminal reports whether the state can no longer change.
func (s QueueState) Terminal() bool {
	return s != QueuePending
}

// EntityRef идентифицирует сущность по типу и ID.
type EntityRef struct {
	Type EntityType `json:"entity_type"`
	ID   string     `json:"entity_id"`
}

// Key returns the storage key of the entity, "type/id".
func (r EntityRef) Key() string {
	return string(r.Type) + "/" + r.ID
}

func (r EntityRef) String() string {
	return r.Key()
}

// QueueItem представляет одно локальное намерение изменить данные.
// После записи неизменяем, кроме единственного перехода из pending в терминальное состояние.
type QueueItem struct {
	CreatedAt  time.Time       `json:"created_at"`          // CreatedAt время постановки в очередь
	SyncedAt   *time.Time      `json:"synced_at,omitempty"` // SyncedAt время подтверждения сервером
	ClosedAt   *time.Time      `json:"closed_at,omitempty"` // ClosedAt время перехода в rejected/superseded
	ID         string          `json:"id"`                  // ID ULID, сортируется по времени
	EntityType EntityType      `json:"entity_type"`         // EntityType тип сущности
	EntityID   string          `json:"entity_id"`           // EntityID идентификатор сущности
	Operation  Operation       `json:"operation"`           // Operation create/update/delete
	State      QueueState      `json:"state"`               // State состояние элемента
	LastError  string          `json:"last_error,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"` // Payload полное представление сущности
	Seq        uint64          `json:"seq"`               // Seq порядковый номер, задает FIFO
}

// IsSynced reports whether the server has confirmed the item.
func (q *QueueItem) IsSynced() bool {
	return q.State == QueueSynced
}

// Entity returns the entity reference of the item.
func (q *QueueItem) Entity() EntityRef {
	return EntityRef{Type: q.EntityType, ID: q.EntityID}
}

// TerminalAt returns the moment the item left the pending state, or nil.
func (q *QueueItem) TerminalAt() *time.Time {
	if q.SyncedAt != nil {
		return q.SyncedAt
	}
	return q.ClosedAt
}
