package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/jwt"
	"github.com/iudanet/labsync/internal/server/storage"
	"github.com/iudanet/labsync/internal/server/storage/sqlite"
	"github.com/iudanet/labsync/pkg/api"
)

func asUser(userID, deviceID string) func(r *http.Request) {
	return func(r *http.Request) {
		*r = *r.WithContext(WithClaims(r.Context(), &jwt.Claims{UserID: userID, Username: userID, DeviceID: deviceID}))
	}
}

func TestSyncHandler_HandlePush_Outcomes(t *testing.T) {
	updatedAt := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	mock := &storage.RecordStorageMock{
		ApplyChangeFunc: func(ctx context.Context, actor storage.Actor, change *models.PendingChange) (*storage.ApplyResult, error) {
			switch change.ID {
			case "created":
				return &storage.ApplyResult{Outcome: models.OutcomeCreated, Record: &models.Record{Version: 1, UpdatedAt: updatedAt}}, nil
			case "conflicted":
				return &storage.ApplyResult{Outcome: models.OutcomeConflict, Record: &models.Record{
					EntityType: change.EntityType,
					EntityID:   change.EntityID,
					Version:    2,
					Payload:    map[string]any{"title": "server", "notes": "same"},
					UpdatedAt:  updatedAt,
				}}, nil
			default:
				return nil, errors.New("disk full")
			}
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	req := api.PushRequest{
		DeviceID: "ignored-device",
		Changes: []api.Change{
			{ID: "created", EntityType: "experiment", EntityID: "e1", Operation: "create", Payload: map[string]any{"a": 1}, BaseVersion: 0, Version: 1},
			{ID: "conflicted", EntityType: "experiment", EntityID: "e2", Operation: "update", Payload: map[string]any{"title": "local", "notes": "same"}, BaseVersion: 1, Version: 2},
			{ID: "broken", EntityType: "experiment", EntityID: "e3", Operation: "update", Payload: map[string]any{"a": 1}, BaseVersion: 1},
			{ID: "invalid", EntityType: "Experiment!", EntityID: "e4", Operation: "update", Payload: map[string]any{"a": 1}},
			{ID: "mismatch", EntityType: "experiment", EntityID: "e5", Operation: "update", Payload: map[string]any{"a": 1}, BaseVersion: 3, Version: 7},
		},
	}

	w := doJSON(t, handler.HandlePush, http.MethodPost, "/api/v1/sync/push", req, asUser("user-1", "laptop"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PushResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	require.Len(t, resp.Applied, 1)
	assert.Equal(t, "created", resp.Applied[0].ChangeID)
	assert.Equal(t, api.OutcomeCreated, resp.Applied[0].Outcome)
	assert.Equal(t, int64(1), resp.Applied[0].Version)

	require.Len(t, resp.Conflicts, 1)
	c := resp.Conflicts[0]
	assert.Equal(t, "conflicted", c.ChangeID)
	assert.Equal(t, int64(2), c.ServerVersion)
	assert.Equal(t, "server", c.ServerData["title"])
	require.Len(t, c.FieldConflicts, 1)
	assert.Equal(t, "title", c.FieldConflicts[0].Field)
	assert.Equal(t, "local", c.FieldConflicts[0].LocalValue)
	assert.Equal(t, "server", c.FieldConflicts[0].ServerValue)

	require.Len(t, resp.Rejected, 3)
	byID := map[string]api.RejectedChange{}
	for _, rj := range resp.Rejected {
		byID[rj.ChangeID] = rj
	}
	assert.Equal(t, "internal", byID["broken"].Error)
	assert.Equal(t, "validation", byID["invalid"].Error)
	assert.Equal(t, "validation", byID["mismatch"].Error)

	// невалидные изменения не доходят до хранилища
	calls := mock.ApplyChangeCalls()
	require.Len(t, calls, 3)
	for _, call := range calls {
		assert.Equal(t, storage.Actor{UserID: "user-1", DeviceID: "laptop"}, call.Actor)
	}
}

func TestSyncHandler_HandlePush_Errors(t *testing.T) {
	handler := NewSyncHandler(setupTestLogger(), &storage.RecordStorageMock{})

	t.Run("unauthenticated", func(t *testing.T) {
		w := doJSON(t, handler.HandlePush, http.MethodPost, "/api/v1/sync/push", api.PushRequest{}, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("too many changes", func(t *testing.T) {
		req := api.PushRequest{Changes: make([]api.Change, MaxPushBatch+1)}
		w := doJSON(t, handler.HandlePush, http.MethodPost, "/api/v1/sync/push", req, asUser("u", "d"))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestSyncHandler_HandlePull(t *testing.T) {
	var gotFilter *models.SelectiveSyncConfig
	mock := &storage.RecordStorageMock{
		ListChangesFunc: func(ctx context.Context, since int64, filter *models.SelectiveSyncConfig, limit int) (*storage.ChangePage, error) {
			gotFilter = filter
			return &storage.ChangePage{
				Records: []*models.Record{{EntityType: "experiment", EntityID: "e1", Version: 3, LastChangeID: "c9"}},
				Cursor:  42,
				HasMore: true,
			}, nil
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	req := api.PullRequest{Since: 10, Limit: 1, Filter: &api.SelectiveFilter{Projects: []string{"P1"}}}
	w := doJSON(t, handler.HandlePull, http.MethodPost, "/api/v1/sync/pull", req, asUser("user-1", "laptop"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp api.PullResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, int64(42), resp.Cursor)
	assert.True(t, resp.HasMore)
	require.Len(t, resp.Changes, 1)
	assert.Equal(t, "c9", resp.Changes[0].ChangeID)

	require.NotNil(t, gotFilter)
	assert.True(t, gotFilter.Enabled)
	assert.Equal(t, []string{"P1"}, gotFilter.Projects)

	calls := mock.ListChangesCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, int64(10), calls[0].Since)
	assert.Equal(t, 1, calls[0].Limit)
}

func TestSyncHandler_HandlePull_Errors(t *testing.T) {
	mock := &storage.RecordStorageMock{
		ListChangesFunc: func(ctx context.Context, since int64, filter *models.SelectiveSyncConfig, limit int) (*storage.ChangePage, error) {
			return nil, errors.New("db down")
		},
	}
	handler := NewSyncHandler(setupTestLogger(), mock)

	w := doJSON(t, handler.HandlePull, http.MethodPost, "/api/v1/sync/pull", api.PullRequest{Since: -1}, asUser("u", "d"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, handler.HandlePull, http.MethodPost, "/api/v1/sync/pull", api.PullRequest{}, asUser("u", "d"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// Два устройства через настоящее хранилище: создание, чтение другим устройством,
// правка и конфликт у устройства с устаревшей базовой версией.
func TestSyncHandler_TwoDevices(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(ctx, ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	handler := NewSyncHandler(setupTestLogger(), db)
	push := func(device string, changes ...api.Change) api.PushResponse {
		w := doJSON(t, handler.HandlePush, http.MethodPost, "/api/v1/sync/push",
			api.PushRequest{Changes: changes}, asUser("user-"+device, device))
		require.Equal(t, http.StatusOK, w.Code)
		var resp api.PushResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}
	pull := func(device string, since int64) api.PullResponse {
		w := doJSON(t, handler.HandlePull, http.MethodPost, "/api/v1/sync/pull",
			api.PullRequest{Since: since}, asUser("user-"+device, device))
		require.Equal(t, http.StatusOK, w.Code)
		var resp api.PullResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		return resp
	}

	// A создает X
	resp := push("A", api.Change{ID: "a1", EntityType: "experiment", EntityID: "X", Operation: "create",
		Payload: map[string]any{"title": "draft", "temp": 20.5}, BaseVersion: 0, Version: 1})
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, api.OutcomeCreated, resp.Applied[0].Outcome)
	assert.Equal(t, int64(1), resp.Applied[0].Version)

	// повтор того же изменения идемпотентен
	resp = push("A", api.Change{ID: "a1", EntityType: "experiment", EntityID: "X", Operation: "create",
		Payload: map[string]any{"title": "draft", "temp": 20.5}, BaseVersion: 0, Version: 1})
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, api.OutcomeNoop, resp.Applied[0].Outcome)

	// B получает X с тем же содержимым
	pulled := pull("B", 0)
	require.Len(t, pulled.Changes, 1)
	assert.Equal(t, int64(1), pulled.Changes[0].Version)
	assert.Equal(t, map[string]any{"title": "draft", "temp": 20.5}, pulled.Changes[0].Payload)

	// B правит X
	resp = push("B", api.Change{ID: "b1", EntityType: "experiment", EntityID: "X", Operation: "update",
		Payload: map[string]any{"title": "final", "temp": 20.5}, BaseVersion: 1, Version: 2})
	require.Len(t, resp.Applied, 1)
	assert.Equal(t, int64(2), resp.Applied[0].Version)

	// A правит X от версии 1 и получает конфликт
	resp = push("A", api.Change{ID: "a2", EntityType: "experiment", EntityID: "X", Operation: "update",
		Payload: map[string]any{"title": "mine", "temp": 21.0}, BaseVersion: 1, Version: 2})
	assert.Empty(t, resp.Applied)
	require.Len(t, resp.Conflicts, 1)
	c := resp.Conflicts[0]
	assert.Equal(t, int64(2), c.ServerVersion)
	assert.Equal(t, "final", c.ServerData["title"])
	fields := make([]string, 0, len(c.FieldConflicts))
	for _, fc := range c.FieldConflicts {
		fields = append(fields, fc.Field)
	}
	assert.Equal(t, []string{"temp", "title"}, fields)

	// новые изменения видны после курсора
	next := pull("A", pulled.Cursor)
	require.Len(t, next.Changes, 1)
	assert.Equal(t, int64(2), next.Changes[0].Version)
	assert.Equal(t, "user-B", next.Changes[0].UpdatedBy)
}
