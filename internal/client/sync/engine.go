// Package sync drains the mutation queue to the backend, detects conflicts
// and reports progress through lifecycle events.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/iudanet/rentsync/internal/client/conflict"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/client/queue"
	"github.com/iudanet/rentsync/pkg/api"
)

//go:generate moq -out backend_mock.go . Backend

// Backend is the remote row store.
type Backend interface {
	// Apply applies one mutation. Errors are classified with the api client sentinels.
	Apply(ctx context.Context, req api.MutationRequest) (*api.RowResponse, error)

	// Fetch returns the current row. A deleted row comes back with Deleted set,
	// a row that never existed is reported as not found.
	Fetch(ctx context.Context, collection, entityID string) (*api.RowResponse, error)
}

// State состояние движка синхронизации
type State string

const (
	StateIdle      State = "idle"
	StateSyncing   State = "syncing"
	StateCompleted State = "completed"
	StateError     State = "error"
)

// Defaults for Options.
const (
	DefaultTimeout   = 5 * time.Second
	DefaultInterval  = 30 * time.Second
	DefaultRetention = 24 * time.Hour
)

// Options configures Engine.
type Options struct {
	Clock     func() time.Time
	Policy    conflict.Strategy // обязательна: manual или автоматическая стратегия
	Timeout   time.Duration     // ограничение на один удаленный вызов
	Interval  time.Duration     // период фоновой синхронизации в Run
	Retention time.Duration     // сколько хранить подтвержденные элементы
}

// Engine drives synchronization of the local queue with the backend.
// At most one pass runs at a time; requests made during a pass are
// coalesced into a single follow-up pass.
type Engine struct {
	queue    *queue.Manager
	backend  Backend
	bus      *events.Bus
	logger   *slog.Logger
	wake     chan struct{}
	lastSync *time.Time
	opts     Options
	state    State
	outcome  State // итог последнего завершенного прохода
	mu       gosync.Mutex
	running  bool
	rerun    bool
}

// New creates engine. opts.Policy is required.
// The engine subscribes to q so that every enqueue schedules a pass.
func New(q *queue.Manager, backend Backend, bus *events.Bus, logger *slog.Logger, opts Options) (*Engine, error) {
	if opts.Policy == "" {
		return nil, ErrPolicyRequired
	}
	if opts.Policy != conflict.Manual && !opts.Policy.Automatic() {
		return nil, fmt.Errorf("%w: %q cannot be used as a policy", conflict.ErrUnknownStrategy, opts.Policy)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if bus == nil {
		bus = events.NewBus(logger)
	}

	e := &Engine{
		queue:   q,
		backend: backend,
		bus:     bus,
		logger:  logger,
		opts:    opts,
		state:   StateIdle,
		wake:    make(chan struct{}, 1),
	}
	q.OnEnqueue(e.Nudge)
	return e, nil
}

// State returns the current engine state. Between passes it is idle;
// the result of the last pass is reported by LastOutcome.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LastOutcome returns StateCompleted or StateError for the last finished pass.
// ok is false until a pass has finished.
func (e *Engine) LastOutcome() (State, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome, e.outcome != ""
}

// LastSyncTime returns the end of the last clean pass.
func (e *Engine) LastSyncTime() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastSync == nil {
		return time.Time{}, false
	}
	return *e.lastSync, true
}

// AddEventListener registers fn for lifecycle events.
func (e *Engine) AddEventListener(fn events.Listener) events.ListenerID {
	return e.bus.Add(fn)
}

// RemoveEventListener unregisters the listener.
func (e *Engine) RemoveEventListener(id events.ListenerID) bool {
	return e.bus.Remove(id)
}

// Nudge asks Run to start a pass soon. It never blocks.
func (e *Engine) Nudge() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// Sync runs a pass and waits for it.
// If a pass is already running the request is coalesced: ErrSyncInProgress
// is returned and the running caller performs exactly one more pass.
func (e *Engine) Sync(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.rerun = true
		e.mu.Unlock()
		return nil, ErrSyncInProgress
	}
	e.running = true
	e.mu.Unlock()

	for {
		res, err := e.pass(ctx)

		e.mu.Lock()
		if !e.rerun || ctx.Err() != nil {
			e.running, e.rerun = false, false
			e.state = StateIdle
			if res != nil {
				e.outcome = res.State
			}
			e.mu.Unlock()
			return res, err
		}
		e.rerun = false
		e.mu.Unlock()

		e.logger.Debug("Running coalesced sync pass")
	}
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) emit(ev events.Event) {
	e.bus.Emit(ev)
}
