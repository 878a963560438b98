package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/iudanet/labsync/internal/client/quota"
)

// RunQuota печатает занятость локального хранилища
func (c *Cli) RunQuota(ctx context.Context) error {
	if c.quota == nil {
		return errUnavailable
	}
	r, err := c.quota.Report(ctx)
	if err != nil {
		return err
	}

	c.io.Println("=== Local Storage ===")
	switch r.Level {
	case quota.LevelUnlimited:
		c.io.Printf("Database file: %s (no limit)\n", formatBytes(r.UsedBytes))
	default:
		c.io.Printf("Database file: %s of %s (%.0f%%)\n", formatBytes(r.UsedBytes), formatBytes(r.LimitBytes), r.Ratio*100)
	}
	switch r.Level {
	case quota.LevelWarning:
		c.io.Println("⚠️  Local storage is almost full.")
	case quota.LevelExceeded:
		c.io.Println("⚠️  Local storage limit exceeded: consider narrowing selective sync.")
	}

	c.io.Println()
	for _, b := range r.Buckets {
		c.io.Printf("  %-10s %6d keys  %s\n", b.Name, b.Keys, formatBytes(b.Bytes))
	}
	if len(r.Projects) > 0 {
		c.io.Println()
		c.io.Printf("Attachments: %s\n", formatBytes(r.AttachmentBytes))
		for _, p := range r.Projects {
			name := p.Project
			if name == "" {
				name = "(no project)"
			}
			c.io.Printf("  %-20s %s\n", name, formatBytes(p.Bytes))
		}
	}
	return nil
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "*"
	}
	return t.UTC().Format(time.DateOnly)
}
