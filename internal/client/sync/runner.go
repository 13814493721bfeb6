package sync

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/rentsync/internal/client/connectivity"
)

// Run keeps the queue draining until ctx is done.
// A pass starts at launch, on every tick, after each Nudge and when signals
// reports that the backend became reachable. Synced items older than the
// retention window are purged on every tick.
func (e *Engine) Run(ctx context.Context, signals <-chan connectivity.Signal) error {
	ticker := time.NewTicker(e.opts.Interval)
	defer ticker.Stop()

	e.trigger(ctx, "startup")

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			e.trigger(ctx, "interval")
			e.purge(ctx)
		case <-e.wake:
			e.trigger(ctx, "nudge")
		case sig, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			if sig.Online {
				e.trigger(ctx, "reconnect")
			}
		}
	}
}

func (e *Engine) trigger(ctx context.Context, reason string) {
	e.logger.Debug("Sync triggered", "reason", reason)
	if _, err := e.Sync(ctx); err != nil && !errors.Is(err, ErrSyncInProgress) && ctx.Err() == nil {
		e.logger.Warn("Sync pass failed", "reason", reason, "error", err)
	}
}

func (e *Engine) purge(ctx context.Context) {
	cutoff := e.opts.Clock().Add(-e.opts.Retention)
	if _, err := e.queue.PurgeSynced(ctx, cutoff); err != nil {
		e.logger.Warn("Failed to purge synced mutations", "error", err)
	}
}
