package cli

import (
	"context"
	"errors"
	"time"

	"github.com/iudanet/labsync/internal/syncerr"
)

// RunSync выполняет один цикл синхронизации и печатает отчет
func (c *Cli) RunSync(ctx context.Context) error {
	if c.sync == nil {
		return errUnavailable
	}
	c.io.Println("Synchronizing...")

	res, err := c.sync.TriggerSync(ctx)
	switch {
	case errors.Is(err, syncerr.ErrOffline):
		c.io.Println("Device is offline: changes stay queued. Run 'labsync online' when the network is back.")
		return nil
	case errors.Is(err, syncerr.ErrAuthExpired):
		c.io.Println("Session expired. Run 'labsync login' and sync again.")
		return err
	}

	if res != nil {
		if res.Skipped {
			c.io.Println("Sync is already running.")
			return nil
		}
		c.io.Println()
		c.io.Println("=== Sync Report ===")
		c.io.Printf("Pushed:    %d (applied %d, conflicts %d, rejected %d, retrying %d)\n",
			res.Pushed, res.Applied, res.Conflicts, res.Rejected, res.Retrying)
		if res.Excluded > 0 {
			c.io.Printf("Excluded:  %d (selective sync)\n", res.Excluded)
		}
		if res.Discarded > 0 {
			c.io.Printf("Discarded: %d (cancelled while sending)\n", res.Discarded)
		}
		c.io.Printf("Pulled:    %d (conflicts %d)\n", res.Pulled, res.PullConflicts)
		c.io.Printf("Status:    %s\n", res.Status)
		if res.Conflicts+res.PullConflicts > 0 {
			c.io.Println("Run 'labsync conflicts' to review conflicts.")
		}
	}
	if err != nil {
		switch {
		case errors.Is(err, syncerr.ErrUnreachable):
			c.io.Println("⚠️  Server unreachable: device is now offline, changes stay queued.")
			c.io.Println("   'labsync daemon' reconnects automatically, or run 'labsync online'.")
		case syncerr.IsRetryable(err):
			c.io.Println("⚠️  Server error: failed changes will be retried with backoff.")
		}
		return err
	}

	c.io.Println("✓ Sync completed")
	return nil
}

// RunRetry ставит изменение с ошибкой на повторную отправку
func (c *Cli) RunRetry(ctx context.Context, changeID string) error {
	if c.sync == nil {
		return errUnavailable
	}
	if err := c.sync.Retry(ctx, changeID); err != nil {
		return err
	}
	c.io.Printf("✓ Change %s will be sent on the next sync.\n", changeID)
	return nil
}

// RunCancel удаляет изменение из очереди
func (c *Cli) RunCancel(ctx context.Context, changeID string) error {
	if c.sync == nil {
		return errUnavailable
	}
	if err := c.sync.Cancel(ctx, changeID); err != nil {
		return err
	}
	c.io.Printf("✓ Change %s cancelled.\n", changeID)
	return nil
}

// RunOnline переключает доступность сети для синхронизации
func (c *Cli) RunOnline(ctx context.Context, online bool) error {
	if c.sync == nil {
		return errUnavailable
	}
	if err := c.sync.SetOnline(ctx, online); err != nil {
		return err
	}
	if online {
		c.io.Println("✓ Device is online.")
	} else {
		c.io.Println("✓ Device is offline: sync is paused, changes keep queueing.")
	}
	return nil
}

// RunDaemon синхронизирует в фоне до отмены контекста
func (c *Cli) RunDaemon(ctx context.Context, interval time.Duration) error {
	if c.sync == nil {
		return errUnavailable
	}
	c.io.Printf("Background sync every %s. Press Ctrl+C to stop.\n", interval)
	return c.sync.Run(ctx, interval)
}
