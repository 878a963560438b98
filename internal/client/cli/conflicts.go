package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/labsync/internal/client/resolver"
	"github.com/iudanet/labsync/internal/models"
)

// RunConflicts печатает конфликты; all - включая решенные
func (c *Cli) RunConflicts(ctx context.Context, all bool) error {
	if c.sync == nil {
		return errUnavailable
	}
	conflicts, err := c.sync.Conflicts(ctx, !all)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		c.io.Println("✓ No conflicts.")
		return nil
	}

	for i, cf := range conflicts {
		if i > 0 {
			c.io.Println()
		}
		c.io.Printf("Conflict %s: %s (%s)\n", cf.ID, cf.EntityKey(), cf.Source)
		c.io.Printf("  local base version %d, server version %d, detected %s\n",
			cf.LocalVersion, cf.ServerVersion, cf.DetectedAt.UTC().Format(time.RFC3339))
		if cf.ResolvedAt != nil {
			c.io.Printf("  resolved %s with %s\n", cf.ResolvedAt.UTC().Format(time.RFC3339), cf.Resolution)
		}
		if cf.ServerDeleted {
			c.io.Println("  server copy is deleted")
		}
		for _, fc := range cf.FieldConflicts {
			c.io.Printf("  %-20s local=%s server=%s\n", fc.Field,
				formatValue(fc.LocalValue, fc.LocalPresent), formatValue(fc.ServerValue, fc.ServerPresent))
		}
	}
	return nil
}

// RunResolve решает конфликт. sets - значения полей для merge в виде field=value,
// value разбирается как JSON, иначе берется строкой.
func (c *Cli) RunResolve(ctx context.Context, conflictID, strategy string, sets []string) error {
	if c.sync == nil {
		return errUnavailable
	}
	s := models.ConflictStrategy(strings.ToLower(strategy))
	if !s.Valid() {
		return fmt.Errorf("unknown strategy %q: use server-wins, client-wins or merge", strategy)
	}

	values, err := parseAssignments(sets)
	if err != nil {
		return err
	}

	resolved, err := c.sync.ResolveConflict(ctx, conflictID, s, values)
	if err != nil {
		var unresolved *resolver.UnresolvedError
		if errors.As(err, &unresolved) {
			c.io.Printf("Fields need a value: %s\n", strings.Join(unresolved.Fields, ", "))
			c.io.Println("Pass them with --set field=value.")
		}
		return err
	}

	c.io.Printf("✓ Conflict %s resolved with %s.\n", resolved.ID, resolved.Resolution)
	if s != models.StrategyServerWins {
		c.io.Println("Local version will be sent on the next sync.")
	}
	return nil
}

func parseAssignments(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(sets))
	for _, kv := range sets {
		field, raw, ok := strings.Cut(kv, "=")
		if !ok || field == "" {
			return nil, fmt.Errorf("invalid --set %q: expected field=value", kv)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[field] = v
	}
	return out, nil
}

func formatValue(v any, present bool) string {
	if !present {
		return "<absent>"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
