package sync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/iudanet/rentsync/internal/client/conflict"
	"github.com/iudanet/rentsync/internal/client/connectivity"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/models"
)

func TestEngine_Run(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, nil, conflict.Manual)
	backend := newFakeBackend(env.clock)
	env.engine.backend = backend
	env.engine.opts.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan connectivity.Signal, 1)
	done := make(chan error, 1)
	go func() {
		done <- env.engine.Run(ctx, signals)
	}()

	completed := func() int { return len(env.rec.of(events.SyncCompleted)) }

	// проход при запуске
	require.Eventually(t, func() bool { return completed() >= 1 }, 2*time.Second, 5*time.Millisecond)

	// локальная мутация будит движок
	item, err := env.queue.Enqueue(context.Background(), models.EntityWishlist, "p1", models.OpCreate, models.WishlistItem{ProductID: "p1"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		got, err := env.queue.Get(context.Background(), item.ID)
		return err == nil && got.IsSynced()
	}, 2*time.Second, 5*time.Millisecond)

	// восстановление связи запускает проход
	before := len(env.rec.of(events.SyncStarted))
	signals <- connectivity.Signal{Online: true, At: env.clock.Now()}
	require.Eventually(t, func() bool {
		return len(env.rec.of(events.SyncStarted)) > before
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestEngine_Run_OfflineSignalDoesNotSync(t *testing.T) {
	defer goleak.VerifyNone(t)

	env := newTestEnv(t, nil, conflict.Manual)
	env.engine.backend = newFakeBackend(env.clock)
	env.engine.opts.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	signals := make(chan connectivity.Signal)
	done := make(chan error, 1)
	go func() {
		done <- env.engine.Run(ctx, signals)
	}()

	require.Eventually(t, func() bool {
		return len(env.rec.of(events.SyncCompleted)) == 1
	}, 2*time.Second, 5*time.Millisecond)

	signals <- connectivity.Signal{Online: false}
	close(signals)
	// закрытый канал сигналов не останавливает цикл
	env.engine.Nudge()
	require.Eventually(t, func() bool {
		return len(env.rec.of(events.SyncStarted)) == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Len(t, env.rec.of(events.SyncStarted), 2)
}

func TestEngine_Purge(t *testing.T) {
	env := newTestEnv(t, nil, conflict.Manual)
	env.engine.backend = newFakeBackend(env.clock)

	item, err := env.queue.Enqueue(context.Background(), models.EntityCart, "c1", models.OpCreate, nil)
	require.NoError(t, err)
	_, err = env.engine.Sync(context.Background())
	require.NoError(t, err)

	env.clock.Advance(DefaultRetention + time.Minute)
	env.engine.purge(context.Background())

	_, err = env.queue.Get(context.Background(), item.ID)
	assert.Error(t, err)
}
