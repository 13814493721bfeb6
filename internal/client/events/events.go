// Package events delivers sync lifecycle notifications to UI listeners.
package events

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Type тип события жизненного цикла синхронизации
type Type string

const (
	SyncStarted      Type = "sync_started"
	SyncProgress     Type = "sync_progress"
	SyncCompleted    Type = "sync_completed"
	SyncError        Type = "sync_error"
	ConflictDetected Type = "conflict_detected"
	ConflictResolved Type = "conflict_resolved"
)

// Event is a single notification. Only the fields relevant to Type are set.
type Event struct {
	LastSyncTime *time.Time `json:"lastSyncTime,omitempty"` // sync_completed
	Type         Type       `json:"type"`
	Error        string     `json:"error,omitempty"`      // sync_error
	EntityType   string     `json:"entityType,omitempty"` // conflict_*
	EntityID     string     `json:"entityId,omitempty"`   // conflict_*
	ConflictID   string     `json:"conflictId,omitempty"` // conflict_*
	Progress     float64    `json:"progress,omitempty"`   // sync_progress, 0..100
}

func (e Event) String() string {
	switch e.Type {
	case SyncProgress:
		return fmt.Sprintf("%s %.0f%%", e.Type, e.Progress)
	case SyncError:
		return fmt.Sprintf("%s: %s", e.Type, e.Error)
	case SyncCompleted:
		if e.LastSyncTime != nil {
			return fmt.Sprintf("%s at %s", e.Type, e.LastSyncTime.Format(time.RFC3339))
		}
	case ConflictDetected, ConflictResolved:
		return fmt.Sprintf("%s %s/%s", e.Type, e.EntityType, e.EntityID)
	}
	return string(e.Type)
}

// Listener receives events synchronously on the emitting goroutine.
type Listener func(Event)

// ListenerID identifies a registered listener.
type ListenerID uint64

type registration struct {
	fn Listener
	id ListenerID
}

// Bus dispatches events to listeners in registration order.
// A panicking listener is logged and does not affect the others.
type Bus struct {
	logger    *slog.Logger
	listeners []registration
	next      ListenerID
	mu        sync.RWMutex
}

// NewBus creates an empty bus.
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{logger: logger}
}

// Add registers fn and returns its id.
func (b *Bus) Add(fn Listener) ListenerID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	b.listeners = append(b.listeners, registration{id: b.next, fn: fn})
	return b.next
}

// Remove unregisters the listener. It reports whether the id was known.
func (b *Bus) Remove(id ListenerID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, r := range b.listeners {
		if r.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Emit delivers ev to every listener registered at the time of the call.
func (b *Bus) Emit(ev Event) {
	b.mu.RLock()
	snapshot := make([]registration, len(b.listeners))
	copy(snapshot, b.listeners)
	b.mu.RUnlock()

	for _, r := range snapshot {
		b.deliver(r, ev)
	}
}

func (b *Bus) deliver(r registration, ev Event) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event listener panicked",
				"listener", r.id,
				"event", ev.Type,
				"panic", p)
		}
	}()
	r.fn(ev)
}
