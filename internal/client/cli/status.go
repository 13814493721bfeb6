package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/rentsync/internal/client/auth"
	"github.com/iudanet/rentsync/internal/models"
)

// badges значки статуса синхронизации
var badges = map[models.SyncStatus]string{
	models.StatusSynced:   "✓",
	models.StatusPending:  "…",
	models.StatusConflict: "!",
	models.StatusError:    "✗",
}

func (c *Cli) runStatus(ctx context.Context) error {
	c.io.Println("=== Status ===")
	c.io.Println()

	session, err := c.Auth.Current(ctx)
	switch {
	case err == nil:
		c.io.Printf("Session: %s, expires %s\n", session.Username, session.ExpiresAt.Format(time.RFC3339))
	case errors.Is(err, auth.ErrAuthNotFound), errors.Is(err, auth.ErrAuthExpired):
		c.io.Printf("Session: %v\n", err)
	default:
		return fmt.Errorf("failed to read session: %w", err)
	}

	stats, err := c.Queue.Stats(ctx)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	c.io.Printf("Queue: %d pending, %d synced, %d rejected, %d superseded\n",
		stats.Pending, stats.Synced, stats.Rejected, stats.Superseded)

	if last, ok := c.Engine.LastSyncTime(); ok {
		c.io.Printf("Last sync: %s\n", last.Format(time.RFC3339))
	}

	mds, err := c.Queue.ListMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to read sync status: %w", err)
	}
	if len(mds) > 0 {
		c.io.Println()
		c.io.Println("Entities:")
		for _, md := range mds {
			c.io.Printf("  %s %-40s %-8s", badges[md.Status], md.Entity().Key(), md.Status)
			if md.PendingCount > 0 {
				c.io.Printf(" pending=%d", md.PendingCount)
			}
			if md.LastError != "" {
				c.io.Printf(" error=%q", md.LastError)
			}
			c.io.Println()
		}
	}

	rejected, err := c.Queue.ListRejected(ctx)
	if err != nil {
		return fmt.Errorf("failed to read rejected changes: %w", err)
	}
	if len(rejected) > 0 {
		c.io.Println()
		c.io.Println("Rejected by server:")
		for _, item := range rejected {
			c.io.Printf("  %s %s %s: %s\n", item.ID, item.Operation, item.Entity(), item.LastError)
		}
	}

	if stats.Pending > 0 {
		c.io.Println()
		c.io.Println("Run 'rentsync sync' to send queued changes.")
	}
	return nil
}
