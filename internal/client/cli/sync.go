package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/rentsync/internal/client/conflict"
	"github.com/iudanet/rentsync/internal/client/events"
	"github.com/iudanet/rentsync/internal/client/sync"
)

func (c *Cli) runSync(ctx context.Context) error {
	c.io.Println("=== Synchronization ===")
	c.io.Println()

	if err := c.requireLogin(ctx); err != nil {
		return err
	}

	id := c.Engine.AddEventListener(c.printEvent)
	defer c.Engine.RemoveEventListener(id)

	result, err := c.Engine.Sync(ctx)
	if err != nil {
		if errors.Is(err, sync.ErrSyncInProgress) {
			c.io.Println("Synchronization is already running; another pass has been scheduled.")
			return nil
		}
		return fmt.Errorf("synchronization failed: %w", err)
	}

	c.io.Println()
	c.io.Printf("Sent:      %d of %d\n", result.Synced, result.Total)
	if result.Skipped > 0 {
		c.io.Printf("Held:      %d (waiting for an earlier change or a conflict)\n", result.Skipped)
	}
	if result.Failed > 0 {
		c.io.Printf("Retrying:  %d\n", result.Failed)
	}
	if result.Rejected > 0 {
		c.io.Printf("Rejected:  %d\n", result.Rejected)
	}
	if result.Conflicts > 0 {
		c.io.Printf("Conflicts: %d", result.Conflicts)
		if result.Resolved > 0 {
			c.io.Printf(" (%d resolved automatically)", result.Resolved)
		}
		c.io.Println()
		if result.Resolved < result.Conflicts {
			c.io.Println("Run 'rentsync conflicts' to review them.")
		}
	}
	return nil
}

// printEvent выводит события движка
func (c *Cli) printEvent(ev events.Event) {
	switch ev.Type {
	case events.SyncStarted:
		c.io.Println("Synchronizing...")
	case events.SyncProgress:
		c.io.Printf("  %3.0f%%\n", ev.Progress)
	case events.SyncCompleted:
		c.io.Printf("✓ Synchronized at %s\n", ev.LastSyncTime.Format(time.RFC3339))
	case events.SyncError:
		c.io.Printf("✗ %s\n", ev.Error)
	case events.ConflictDetected:
		c.io.Printf("! Conflict on %s/%s (id %s)\n", ev.EntityType, ev.EntityID, ev.ConflictID)
	case events.ConflictResolved:
		c.io.Printf("✓ Conflict on %s/%s resolved\n", ev.EntityType, ev.EntityID)
	}
}

func (c *Cli) runConflicts(ctx context.Context) error {
	c.io.Println("=== Open Conflicts ===")
	c.io.Println()

	open, err := c.Queue.ListConflicts(ctx, true)
	if err != nil {
		return fmt.Errorf("failed to list conflicts: %w", err)
	}
	if len(open) == 0 {
		c.io.Println("No open conflicts.")
		return nil
	}

	for _, rec := range open {
		c.io.Printf("ID:       %s\n", rec.ID)
		c.io.Printf("Entity:   %s\n", rec.Entity())
		c.io.Printf("Detected: %s\n", rec.DetectedAt.Format(time.RFC3339))
		c.io.Printf("Yours:    %s %s\n", rec.Operation, payloadText(rec.LocalPayload))
		if rec.RemoteDeleted {
			c.io.Println("Server:   deleted")
		} else {
			c.io.Printf("Server:   v%d %s\n", rec.RemoteVersion, payloadText(rec.RemotePayload))
		}
		c.io.Println()
	}
	c.io.Println("Resolve with: rentsync resolve <id> keep-local|keep-remote|last-write-wins|merge --payload JSON")
	return nil
}

func payloadText(p json.RawMessage) string {
	if len(p) == 0 {
		return "-"
	}
	return string(p)
}

func (c *Cli) runResolve(ctx context.Context, args []string) error {
	var payload string
	fs := newFlagSet("resolve")
	fs.StringVar(&payload, "payload", "", "merged JSON payload for merge")
	pos, err := parseInterspersed(fs, args)
	if err != nil {
		return err
	}
	if len(pos) != 2 {
		return fmt.Errorf("%w: usage: rentsync resolve <conflict-id> keep-local|keep-remote|last-write-wins|merge [--payload JSON]", ErrUsage)
	}

	strategy, err := conflict.ParseStrategy(pos[1])
	if err != nil {
		return err
	}
	var merged json.RawMessage
	if payload != "" {
		if !json.Valid([]byte(payload)) {
			return fmt.Errorf("%w: --payload is not valid JSON", ErrUsage)
		}
		merged = json.RawMessage(payload)
	}

	rec, err := c.Engine.ResolveConflict(ctx, pos[0], strategy, merged)
	if err != nil {
		return err
	}
	c.io.Printf("✓ Conflict on %s resolved with %s\n", rec.Entity(), rec.Resolution)

	// last_write_wins и keep_local могут ничего не поставить в очередь
	_, queued, err := c.Queue.LatestPending(ctx, rec.Entity())
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}
	if queued {
		c.io.Println("The corrected change is queued and will be sent on the next sync.")
	} else {
		c.io.Println("The server version is kept.")
	}
	return nil
}

func (c *Cli) runPurge(ctx context.Context, args []string) error {
	var olderThan time.Duration
	fs := newFlagSet("purge")
	fs.DurationVar(&olderThan, "older-than", sync.DefaultRetention, "age of entries to remove")
	if _, err := parseInterspersed(fs, args); err != nil {
		return err
	}

	n, err := c.Queue.PurgeSynced(ctx, time.Now().Add(-olderThan))
	if err != nil {
		return fmt.Errorf("failed to purge queue: %w", err)
	}
	c.io.Printf("✓ Removed %d finished change(s)\n", n)
	return nil
}
