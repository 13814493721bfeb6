package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	httpClient "github.com/iudanet/rentsync/internal/client/api"
	"github.com/iudanet/rentsync/internal/client/conflict"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/client/queue"
	"github.com/iudanet/rentsync/internal/client/storage/memory"
	"github.com/iudanet/rentsync/pkg/api"
)

var errOffline = errors.New("dial tcp 127.0.0.1:8080: connect: connection refused")

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeClock управляемые часы для тестов
type fakeClock struct {
	now time.Time
	mu  gosync.Mutex
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

// recorder собирает события шины
type recorder struct {
	events []events.Event
	mu     gosync.Mutex
}

func (r *recorder) listen(ev events.Event) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

func (r *recorder) of(t events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

type fakeRow struct {
	updated time.Time
	payload json.RawMessage
	version int64
	deleted bool
}

// fakeBackend имитирует сервер строк с проверкой версий
type fakeBackend struct {
	clock   *fakeClock
	rows    map[string]*fakeRow
	applied []api.MutationRequest
	offline bool
	mu      gosync.Mutex
}

func newFakeBackend(clock *fakeClock) *fakeBackend {
	return &fakeBackend{clock: clock, rows: make(map[string]*fakeRow)}
}

func (f *fakeBackend) seed(collection, id string, version int64, payload string, deleted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[collection+"/"+id] = &fakeRow{
		payload: json.RawMessage(payload),
		version: version,
		deleted: deleted,
		updated: f.clock.Now(),
	}
}

func (f *fakeBackend) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func (f *fakeBackend) appliedRequests() []api.MutationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]api.MutationRequest(nil), f.applied...)
}

func status(code int) error {
	return &httpClient.StatusError{StatusCode: code, Message: "fake"}
}

func (f *fakeBackend) Apply(ctx context.Context, req api.MutationRequest) (*api.RowResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	f.applied = append(f.applied, req)

	key := req.Collection + "/" + req.EntityID
	row := f.rows[key]
	live := row != nil && !row.deleted
	if live && req.Operation != "create" && req.ExpectedVersion > 0 && req.ExpectedVersion != row.version {
		return nil, status(409)
	}

	switch req.Operation {
	case "create":
		if live {
			return nil, status(409)
		}
		if row == nil {
			row = &fakeRow{}
			f.rows[key] = row
		}
		row.deleted = false
		row.payload = req.Payload
	case "update":
		if !live {
			return nil, status(404)
		}
		row.payload = req.Payload
	case "delete":
		if !live {
			return nil, status(404)
		}
		row.deleted = true
		row.payload = nil
	}
	row.version++
	row.updated = f.clock.Now()

	return &api.RowResponse{
		Collection: req.Collection,
		EntityID:   req.EntityID,
		Payload:    row.payload,
		Version:    row.version,
		Deleted:    row.deleted,
		UpdatedAt:  row.updated,
	}, nil
}

func (f *fakeBackend) Fetch(ctx context.Context, collection, entityID string) (*api.RowResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return nil, errOffline
	}
	row := f.rows[collection+"/"+entityID]
	if row == nil {
		return nil, status(404)
	}
	return &api.RowResponse{
		Collection: collection,
		EntityID:   entityID,
		Payload:    row.payload,
		Version:    row.version,
		Deleted:    row.deleted,
		UpdatedAt:  row.updated,
	}, nil
}

type testEnv struct {
	engine *Engine
	queue  *queue.Manager
	clock  *fakeClock
	rec    *recorder
}

func newTestEnv(t *testing.T, backend Backend, policy conflict.Strategy) *testEnv {
	t.Helper()
	clock := newFakeClock()
	q := queue.NewManager(memory.New(), queue.WithClock(clock.Now))
	rec := &recorder{}

	engine, err := New(q, backend, events.NewBus(setupTestLogger()), setupTestLogger(), Options{
		Policy:  policy,
		Timeout: time.Second,
		Clock:   clock.Now,
	})
	require.NoError(t, err)
	engine.AddEventListener(rec.listen)

	return &testEnv{engine: engine, queue: q, clock: clock, rec: rec}
}
