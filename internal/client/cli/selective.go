package cli

import (
	"context"
	"strings"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
)

// RunSelective применяет изменения селективной синхронизации и печатает итоговую конфигурацию
func (c *Cli) RunSelective(ctx context.Context, patch selective.Patch) error {
	if c.sync == nil {
		return errUnavailable
	}
	cfg, err := c.sync.UpdateSelectiveSyncConfig(ctx, patch)
	if err != nil {
		return err
	}
	c.printSelective(cfg)
	return nil
}

func (c *Cli) printSelective(cfg *models.SelectiveSyncConfig) {
	c.io.Println("=== Selective Sync ===")
	if !cfg.Enabled {
		c.io.Println("Disabled: every entity is synced.")
		return
	}
	c.io.Printf("Projects:       %s\n", listOrAny(cfg.Projects))
	c.io.Printf("Entity types:   %s\n", listOrAny(cfg.EntityTypes))
	c.io.Printf("Modalities:     %s\n", listOrAny(cfg.Modalities))
	if cfg.DateRange != nil {
		c.io.Printf("Date range:     %s .. %s\n", formatDate(cfg.DateRange.From), formatDate(cfg.DateRange.To))
	} else {
		c.io.Println("Date range:     any")
	}
	if cfg.MaxAttachmentSize > 0 {
		c.io.Printf("Max attachment: %s\n", formatBytes(cfg.MaxAttachmentSize))
	} else {
		c.io.Println("Max attachment: any")
	}
}

func listOrAny(items []string) string {
	if len(items) == 0 {
		return "any"
	}
	return strings.Join(items, ", ")
}
