package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/storage"
)

var testActor = storage.Actor{UserID: "user-1", DeviceID: "device-1"}

func timePtr(t time.Time) *time.Time {
	return &t
}

func newChange(id, entityID string, base int64, payload map[string]any) *models.PendingChange {
	return &models.PendingChange{
		ID:          id,
		EntityType:  "experiment",
		EntityID:    entityID,
		Operation:   models.OpUpdate,
		BaseVersion: base,
		Payload:     payload,
		Timestamp:   time.Now(),
	}
}

func TestApplyChange_CreateAndUpdate(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	res, err := s.ApplyChange(ctx, testActor, newChange("c1", "e1", 0, map[string]any{"title": "first"}))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeCreated, res.Outcome)
	assert.Equal(t, int64(1), res.Record.Version)

	res, err = s.ApplyChange(ctx, testActor, newChange("c2", "e1", 1, map[string]any{"title": "second"}))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, res.Outcome)
	assert.Equal(t, int64(2), res.Record.Version)

	stored, err := s.GetRecord(ctx, "experiment", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "second", stored.Payload["title"])
	assert.Equal(t, "c2", stored.LastChangeID)
	assert.Equal(t, "user-1", stored.UpdatedBy)
}

func TestApplyChange_Retransmit(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	change := newChange("c1", "e1", 0, map[string]any{"title": "first"})
	_, err := s.ApplyChange(ctx, testActor, change)
	require.NoError(t, err)

	res, err := s.ApplyChange(ctx, testActor, change)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeNoop, res.Outcome)
	assert.Equal(t, int64(1), res.Record.Version)

	log, err := s.EntityLog(ctx, "experiment", "e1")
	require.NoError(t, err)
	assert.Len(t, log, 1)
}

func TestApplyChange_Conflict(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.ApplyChange(ctx, testActor, newChange("c1", "e1", 0, map[string]any{"title": "a"}))
	require.NoError(t, err)
	_, err = s.ApplyChange(ctx, testActor, newChange("c2", "e1", 1, map[string]any{"title": "b"}))
	require.NoError(t, err)

	tests := []struct {
		name string
		base int64
	}{
		{name: "stale base", base: 0},
		{name: "same base as concurrent writer", base: 1},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.ApplyChange(ctx, testActor,
				newChange(fmt.Sprintf("late-%d", i), "e1", tt.base, map[string]any{"title": "late"}))
			require.NoError(t, err)
			assert.Equal(t, models.OutcomeConflict, res.Outcome)
			assert.Equal(t, int64(2), res.Record.Version)
			assert.Equal(t, "b", res.Record.Payload["title"])
		})
	}

	stored, err := s.GetRecord(ctx, "experiment", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "b", stored.Payload["title"])

	log, err := s.EntityLog(ctx, "experiment", "e1")
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, models.OutcomeConflict, log[2].Outcome)
	assert.Equal(t, models.OutcomeConflict, log[3].Outcome)
}

func TestApplyChange_Force(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.ApplyChange(ctx, testActor, newChange("c1", "e1", 0, map[string]any{"title": "a"}))
	require.NoError(t, err)
	_, err = s.ApplyChange(ctx, testActor, newChange("c2", "e1", 1, map[string]any{"title": "b"}))
	require.NoError(t, err)

	forced := newChange("c3", "e1", 0, map[string]any{"title": "mine"})
	forced.Force = true
	res, err := s.ApplyChange(ctx, storage.Actor{UserID: "user-2", DeviceID: "device-2"}, forced)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, res.Outcome)
	assert.Equal(t, int64(3), res.Record.Version)

	log, err := s.EntityLog(ctx, "experiment", "e1")
	require.NoError(t, err)
	require.Len(t, log, 3)
	last := log[2]
	assert.True(t, last.Forced)
	assert.Equal(t, "device-2", last.DeviceID)
	assert.Equal(t, "user-2", last.UserID)
	assert.Equal(t, int64(3), last.Version)
}

func TestApplyChange_DeleteKeepsMetadata(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	create := newChange("c1", "e1", 0, map[string]any{"title": "a"})
	create.Metadata = models.EntityMetadata{Project: "alpha", Modality: "mri"}
	_, err := s.ApplyChange(ctx, testActor, create)
	require.NoError(t, err)

	del := newChange("c2", "e1", 1, nil)
	del.Operation = models.OpDelete
	res, err := s.ApplyChange(ctx, testActor, del)
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUpdated, res.Outcome)

	stored, err := s.GetRecord(ctx, "experiment", "e1")
	require.NoError(t, err)
	assert.True(t, stored.Deleted)
	assert.Nil(t, stored.Payload)
	assert.Equal(t, int64(2), stored.Version)
	assert.Equal(t, "alpha", stored.Metadata.Project)
}

func TestGetRecord_NotFound(t *testing.T) {
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.GetRecord(context.Background(), "experiment", "missing")
	assert.ErrorIs(t, err, storage.ErrRecordNotFound)
}

func TestApplyChange_ConcurrentSameBase(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.ApplyChange(ctx, testActor, newChange("c0", "e1", 0, map[string]any{"n": 0}))
	require.NoError(t, err)

	const writers = 8
	outcomes := make([]models.Outcome, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := s.ApplyChange(ctx, testActor, newChange(fmt.Sprintf("w%d", i), "e1", 1, map[string]any{"n": i}))
			if assert.NoError(t, err) {
				outcomes[i] = res.Outcome
			}
		}(i)
	}
	wg.Wait()

	var applied, conflicts int
	for _, o := range outcomes {
		switch o {
		case models.OutcomeUpdated:
			applied++
		case models.OutcomeConflict:
			conflicts++
		}
	}
	assert.Equal(t, 1, applied)
	assert.Equal(t, writers-1, conflicts)

	stored, err := s.GetRecord(ctx, "experiment", "e1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stored.Version)
}

func TestListChanges_Cursor(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		_, err := s.ApplyChange(ctx, testActor,
			newChange(fmt.Sprintf("c%d", i), fmt.Sprintf("e%d", i), 0, map[string]any{"i": i}))
		require.NoError(t, err)
	}

	page, err := s.ListChanges(ctx, 0, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, "e0", page.Records[0].EntityID)
	assert.Equal(t, "e1", page.Records[1].EntityID)

	page, err = s.ListChanges(ctx, page.Cursor, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.True(t, page.HasMore)

	page, err = s.ListChanges(ctx, page.Cursor, nil, 2)
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, "e4", page.Records[0].EntityID)

	final := page.Cursor
	page, err = s.ListChanges(ctx, final, nil, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.Equal(t, final, page.Cursor)
}

func TestListChanges_UpdatedEntityMovesForward(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	_, err := s.ApplyChange(ctx, testActor, newChange("c1", "e1", 0, map[string]any{"v": 1}))
	require.NoError(t, err)
	page, err := s.ListChanges(ctx, 0, nil, 0)
	require.NoError(t, err)
	cursor := page.Cursor

	_, err = s.ApplyChange(ctx, testActor, newChange("c2", "e2", 0, map[string]any{"v": 1}))
	require.NoError(t, err)
	_, err = s.ApplyChange(ctx, testActor, newChange("c3", "e1", 1, map[string]any{"v": 2}))
	require.NoError(t, err)

	page, err = s.ListChanges(ctx, cursor, nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "e2", page.Records[0].EntityID)
	assert.Equal(t, "e1", page.Records[1].EntityID)
	assert.Equal(t, int64(2), page.Records[1].Version)
}

func TestListChanges_Filter(t *testing.T) {
	ctx := context.Background()
	s, cleanup := setupTestStorage(t)
	defer cleanup()

	seed := []struct {
		id   string
		meta models.EntityMetadata
	}{
		{id: "in-range", meta: models.EntityMetadata{Project: "alpha", ReferenceDate: timePtr(time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC))}},
		{id: "too-old", meta: models.EntityMetadata{Project: "alpha", ReferenceDate: timePtr(time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC))}},
		{id: "no-date", meta: models.EntityMetadata{Project: "alpha"}},
		{id: "other-project", meta: models.EntityMetadata{Project: "beta"}},
		{id: "too-big", meta: models.EntityMetadata{Project: "alpha", AttachmentSize: 10_000}},
	}
	for i, sd := range seed {
		c := newChange(fmt.Sprintf("c%d", i), sd.id, 0, map[string]any{"i": i})
		c.Metadata = sd.meta
		_, err := s.ApplyChange(ctx, testActor, c)
		require.NoError(t, err)
	}

	filter := &models.SelectiveSyncConfig{
		Enabled:           true,
		Projects:          []string{"alpha"},
		DateRange:         &models.DateRange{From: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		MaxAttachmentSize: 1000,
	}

	page, err := s.ListChanges(ctx, 0, filter, 0)
	require.NoError(t, err)

	var ids []string
	for _, r := range page.Records {
		ids = append(ids, r.EntityID)
	}
	assert.ElementsMatch(t, []string{"in-range", "no-date"}, ids)
	assert.False(t, page.HasMore)
	// курсор продвигается за отфильтрованные записи
	assert.Equal(t, int64(len(seed)), page.Cursor)
}
