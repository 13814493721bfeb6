package cli

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runWatch синхронизирует в фоне, пока ctx не отменен
func (c *Cli) runWatch(ctx context.Context) error {
	if err := c.requireLogin(ctx); err != nil {
		return err
	}

	c.io.Println("Watching for changes. Press Ctrl+C to stop.")

	id := c.Engine.AddEventListener(c.printEvent)
	defer c.Engine.RemoveEventListener(id)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Monitor.Run(gctx)
	})
	g.Go(func() error {
		return c.Engine.Run(gctx, c.Monitor.Signals())
	})

	err := g.Wait()
	c.io.Println("Stopped.")
	return err
}
