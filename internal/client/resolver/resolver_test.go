package resolver

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/client/storage/boltdb"
	"github.com/iudanet/labsync/internal/models"
)

var (
	t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

type fixture struct {
	store    *boltdb.Storage
	resolver *Resolver
}

// newFixture готовит хранилище с конфликтом k1 по experiment/x:
// локальное изменение c1 от версии 1, на сервере версия 2.
func newFixture(t *testing.T, local, server map[string]any, localAt, serverAt time.Time) *fixture {
	t.Helper()
	ctx := context.Background()

	store, err := boltdb.New(ctx, filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.Update(ctx, func(tx storage.Tx) error {
		if err := tx.PutRecord(&models.Record{EntityType: "experiment", EntityID: "x", Version: 1}); err != nil {
			return err
		}
		if err := tx.PutPending(&models.PendingChange{
			ID: "c1", EntityType: "experiment", EntityID: "x", Operation: models.OpUpdate,
			Payload: local, BaseVersion: 1, ConflictID: "k1", RetryCount: 2, Timestamp: localAt,
		}); err != nil {
			return err
		}
		return tx.PutConflict(&models.SyncConflict{
			ID: "k1", ChangeID: "c1", EntityType: "experiment", EntityID: "x",
			LocalVersion: 1, ServerVersion: 2,
			LocalData: local, ServerData: server,
			LocalUpdatedAt: localAt, ServerUpdatedAt: serverAt,
			ServerMetadata: models.EntityMetadata{Project: "P1"},
			DetectedAt:     t1,
		})
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &fixture{
		store:    store,
		resolver: New(logger, store).WithClock(func() time.Time { return t1.Add(time.Hour) }),
	}
}

func (f *fixture) pending(t *testing.T) []*models.PendingChange {
	t.Helper()
	var out []*models.PendingChange
	require.NoError(t, f.store.View(context.Background(), func(tx storage.Tx) error {
		var err error
		out, err = tx.ListPending()
		return err
	}))
	return out
}

func (f *fixture) record(t *testing.T) *models.Record {
	t.Helper()
	var out *models.Record
	require.NoError(t, f.store.View(context.Background(), func(tx storage.Tx) error {
		var err error
		out, err = tx.GetRecord("experiment", "x")
		return err
	}))
	return out
}

func TestResolve_ServerWins(t *testing.T) {
	f := newFixture(t, map[string]any{"title": "A"}, map[string]any{"title": "B"}, t0, t1)

	c, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyServerWins, nil)
	require.NoError(t, err)
	require.NotNil(t, c.ResolvedAt)
	assert.Equal(t, models.StrategyServerWins, c.Resolution)
	assert.False(t, c.IsOpen())

	assert.Empty(t, f.pending(t))
	rec := f.record(t)
	assert.Equal(t, int64(2), rec.Version)
	assert.Equal(t, map[string]any{"title": "B"}, rec.Payload)
	assert.Equal(t, "P1", rec.Metadata.Project)

	_, err = f.resolver.Resolve(context.Background(), "k1", models.StrategyServerWins, nil)
	assert.ErrorIs(t, err, ErrAlreadyResolved)
}

func TestResolve_ClientWins(t *testing.T) {
	f := newFixture(t, map[string]any{"title": "A"}, map[string]any{"title": "B"}, t0, t1)

	_, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyClientWins, nil)
	require.NoError(t, err)

	q := f.pending(t)
	require.Len(t, q, 1)
	c := q[0]
	assert.Equal(t, "c1", c.ID)
	assert.Equal(t, map[string]any{"title": "A"}, c.Payload)
	assert.Equal(t, int64(2), c.BaseVersion)
	assert.Equal(t, int64(3), c.ClaimedVersion())
	assert.True(t, c.Force)
	assert.Empty(t, c.ConflictID)
	assert.Zero(t, c.RetryCount)
	assert.True(t, c.Sendable(time.Now()))

	assert.Equal(t, int64(2), f.record(t).Version)
}

func TestResolve_ClientWins_RebasesFollowers(t *testing.T) {
	f := newFixture(t, map[string]any{"title": "A"}, map[string]any{"title": "B"}, t0, t1)
	require.NoError(t, f.store.Update(context.Background(), func(tx storage.Tx) error {
		return tx.PutPending(&models.PendingChange{
			ID: "c2", EntityType: "experiment", EntityID: "x", Operation: models.OpUpdate,
			Payload: map[string]any{"title": "A2"}, BaseVersion: 2,
		})
	}))

	_, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyClientWins, nil)
	require.NoError(t, err)

	q := f.pending(t)
	require.Len(t, q, 2)
	assert.Equal(t, int64(2), q[0].BaseVersion)
	assert.Equal(t, "c2", q[1].ID)
	assert.Equal(t, int64(3), q[1].BaseVersion)
	assert.False(t, q[1].Force)
}

func TestResolve_ClientWins_RecreatesCancelledChange(t *testing.T) {
	f := newFixture(t, map[string]any{"title": "A"}, map[string]any{"title": "B"}, t0, t1)
	require.NoError(t, f.store.Update(context.Background(), func(tx storage.Tx) error {
		return tx.DeletePending("c1")
	}))

	_, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyClientWins, nil)
	require.NoError(t, err)

	q := f.pending(t)
	require.Len(t, q, 1)
	assert.NotEqual(t, "c1", q[0].ID)
	assert.Equal(t, models.OpUpdate, q[0].Operation)
	assert.True(t, q[0].Force)
	assert.Equal(t, int64(2), q[0].BaseVersion)
}

func TestResolve_MergeScalars(t *testing.T) {
	tests := []struct {
		want     map[string]any
		localAt  time.Time
		serverAt time.Time
		name     string
	}{
		{
			name:    "local newer",
			localAt: t1, serverAt: t0,
			want: map[string]any{"title": "A", "status": "draft", "notes": "local"},
		},
		{
			name:    "server newer",
			localAt: t0, serverAt: t1,
			want: map[string]any{"title": "B", "status": "final"},
		},
		{
			name:    "tie goes to server",
			localAt: t0, serverAt: t0,
			want: map[string]any{"title": "B", "status": "final"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := map[string]any{"title": "A", "status": "draft", "notes": "local"}
			server := map[string]any{"title": "B", "status": "final"}
			f := newFixture(t, local, server, tt.localAt, tt.serverAt)

			c, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyMerge, nil)
			require.NoError(t, err)
			assert.Equal(t, models.StrategyMerge, c.Resolution)
			for _, fc := range c.FieldConflicts {
				assert.True(t, fc.Merged, fc.Field)
			}

			q := f.pending(t)
			require.Len(t, q, 1)
			assert.Equal(t, tt.want, q[0].Payload)
			assert.True(t, q[0].Force)
			assert.Equal(t, int64(2), q[0].BaseVersion)
		})
	}
}

func TestResolve_MergeStructuredNeedsValue(t *testing.T) {
	local := map[string]any{"title": "A", "tags": []any{"x"}}
	server := map[string]any{"title": "B", "tags": []any{"y"}, "steps": map[string]any{"n": 1.0}}
	f := newFixture(t, local, server, t1, t0)

	_, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyMerge, nil)
	require.ErrorIs(t, err, ErrUnresolvedFields)
	var ue *UnresolvedError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"steps", "tags"}, ue.Fields)

	// конфликт остается открытым, очередь не тронута
	q := f.pending(t)
	require.Len(t, q, 1)
	assert.Equal(t, "k1", q[0].ConflictID)

	// частичные значения не закрывают конфликт
	_, err = f.resolver.Resolve(context.Background(), "k1", models.StrategyMerge, map[string]any{"tags": []any{"x", "y"}})
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"steps"}, ue.Fields)

	c, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyMerge, map[string]any{
		"tags":  []any{"x", "y"},
		"steps": map[string]any{"n": 2.0},
		"title": "manual",
	})
	require.NoError(t, err)
	assert.False(t, c.IsOpen())

	q = f.pending(t)
	require.Len(t, q, 1)
	assert.Equal(t, map[string]any{
		"title": "manual",
		"tags":  []any{"x", "y"},
		"steps": map[string]any{"n": 2.0},
	}, q[0].Payload)
}

func TestResolve_MergeDeletedEntity(t *testing.T) {
	f := newFixture(t, nil, map[string]any{"title": "B"}, t1, t0)

	_, err := f.resolver.Resolve(context.Background(), "k1", models.StrategyMerge, nil)
	assert.ErrorIs(t, err, ErrMergeDeleted)
}

func TestResolve_Errors(t *testing.T) {
	f := newFixture(t, map[string]any{"title": "A"}, map[string]any{"title": "B"}, t0, t1)

	_, err := f.resolver.Resolve(context.Background(), "k1", "coin-flip", nil)
	assert.ErrorIs(t, err, ErrUnknownStrategy)

	_, err = f.resolver.Resolve(context.Background(), "missing", models.StrategyServerWins, nil)
	assert.ErrorIs(t, err, storage.ErrConflictNotFound)
}
