package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/labsync/internal/client/auth"
	"github.com/iudanet/labsync/internal/models"
)

// maxShownErrors сколько последних ошибок показывает status
const maxShownErrors = 5

// RunStatus показывает сессию и состояние синхронизации устройства
func (c *Cli) RunStatus(ctx context.Context) error {
	if c.auth == nil || c.sync == nil {
		return errUnavailable
	}
	c.io.Println("=== Session ===")

	session, err := c.auth.Session(ctx)
	switch {
	case errors.Is(err, auth.ErrNotLoggedIn):
		c.io.Println("Status: Not authenticated")
		c.io.Println("Run 'labsync login' to authenticate.")
	case err != nil:
		return fmt.Errorf("failed to check authentication: %w", err)
	default:
		c.io.Println("Status: Authenticated")
		c.io.Printf("Username: %s\n", session.Username)
		expiresAt := time.Unix(session.ExpiresAt, 0).UTC()
		c.io.Printf("Token expires: %s\n", expiresAt.Format(time.RFC3339))
	}

	state, err := c.sync.State(ctx)
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	c.io.Println()
	c.io.Println("=== Sync ===")
	c.io.Printf("Device:    %s\n", state.DeviceID)
	c.io.Printf("Status:    %s\n", state.Status)
	c.io.Printf("Online:    %t\n", state.IsOnline)
	c.io.Printf("Pending:   %d\n", state.PendingCount)
	c.io.Printf("Conflicts: %d\n", state.ConflictCount)
	c.io.Printf("Last sync: %s\n", formatTime(state.LastSyncAt))
	if state.Progress != nil {
		c.io.Printf("Progress:  %s %d/%d\n", state.Progress.Phase, state.Progress.Current, state.Progress.Total)
	}
	if state.AuthRequired {
		c.io.Println("⚠️  Session expired: sync is paused until 'labsync login'.")
	}
	if state.Status == models.StatusConflict {
		c.io.Println("Run 'labsync conflicts' to review conflicts.")
	}

	if len(state.Errors) > 0 {
		c.io.Println()
		c.io.Println("Recent errors:")
		from := max(0, len(state.Errors)-maxShownErrors)
		for _, e := range state.Errors[from:] {
			target := e.ChangeID
			if target == "" {
				target = "-"
			}
			c.io.Printf("  %s [%s] %s: %s\n", e.At.Format(time.RFC3339), e.Kind, target, e.Message)
		}
	}
	return nil
}

// RunPending показывает очередь неотправленных изменений
func (c *Cli) RunPending(ctx context.Context) error {
	if c.sync == nil {
		return errUnavailable
	}
	queue, err := c.sync.PendingChanges(ctx)
	if err != nil {
		return err
	}
	if len(queue) == 0 {
		c.io.Println("✓ Nothing to sync.")
		return nil
	}

	c.io.Printf("%-36s  %-8s  %-6s  %-30s  %s\n", "CHANGE", "OP", "PRIO", "ENTITY", "STATE")
	for _, ch := range queue {
		c.io.Printf("%-36s  %-8s  %-6s  %-30s  %s\n", ch.ID, ch.Operation, ch.Priority, ch.EntityKey(), changeState(ch))
	}
	return nil
}

func changeState(ch *models.PendingChange) string {
	switch {
	case ch.ConflictID != "":
		return "conflict " + ch.ConflictID
	case ch.Errored:
		return "error: " + ch.LastError
	case ch.ExcludedFromSync:
		return "excluded"
	case ch.InFlight:
		return "sending"
	case ch.RetryCount > 0:
		return fmt.Sprintf("retry %d at %s", ch.RetryCount, ch.NextAttemptAt.Format(time.RFC3339))
	default:
		return "queued"
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.UTC().Format(time.RFC3339)
}
