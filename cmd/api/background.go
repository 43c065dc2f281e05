package main

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// runHousekeeping sweeps expired guest carts and sold-out catalog items
// once at start and then every interval until ctx is done.
func (app *application) runHousekeeping(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		app.sweep(ctx)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (app *application) sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, time.Minute)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		n, err := app.sales.PurgeExpiredGuestCarts(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			app.logger.Infow("purged expired guest carts", "count", n)
		}
		return nil
	})
	g.Go(func() error {
		n, err := app.sales.DeactivateSoldOut(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			app.logger.Infow("deactivated sold-out items", "count", n)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		app.logger.Errorw("housekeeping sweep failed", "error", err)
	}
}
