package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/iudanet/labsync/internal/client/recorder"
	"github.com/iudanet/labsync/internal/models"
)

// RecordInput параметры локальной правки
type RecordInput struct {
	Metadata   *models.EntityMetadata
	EntityType string
	EntityID   string
	Operation  string
	Data       string // JSON-объект payload
	Priority   string
}

// RunRecord записывает правку в локальную очередь
func (c *Cli) RunRecord(ctx context.Context, in RecordInput) error {
	if c.recorder == nil {
		return errUnavailable
	}

	op := models.Operation(strings.ToLower(in.Operation))
	var payload map[string]any
	if in.Data != "" {
		if err := json.Unmarshal([]byte(in.Data), &payload); err != nil {
			return fmt.Errorf("data must be a JSON object: %w", err)
		}
	}

	var opts []recorder.Option
	if in.Priority != "" {
		opts = append(opts, recorder.WithPriority(models.Priority(strings.ToLower(in.Priority))))
	}
	if in.Metadata != nil {
		opts = append(opts, recorder.WithMetadata(*in.Metadata))
	}

	change, err := c.recorder.Record(ctx, in.EntityType, in.EntityID, op, payload, opts...)
	if err != nil {
		return err
	}
	if change == nil {
		c.io.Printf("✓ %s was never synced: queued changes dropped.\n", models.EntityKey(in.EntityType, in.EntityID))
		return nil
	}

	c.io.Printf("✓ Recorded %s %s\n", change.Operation, change.EntityKey())
	c.io.Printf("Change ID:    %s\n", change.ID)
	c.io.Printf("Base version: %d\n", change.BaseVersion)
	if change.Revision > 0 {
		c.io.Printf("Merged into queued change (revision %d)\n", change.Revision)
	}
	return nil
}

// RunShow печатает последнюю известную копию сущности и ее неотправленные правки
func (c *Cli) RunShow(ctx context.Context, entityType, entityID string) error {
	if c.sync == nil {
		return errUnavailable
	}
	view, err := c.sync.Entity(ctx, entityType, entityID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(view, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format entity: %w", err)
	}
	_, err = c.io.Write(append(data, '\n'))
	return err
}
