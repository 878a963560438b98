package cli

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/client/recorder"
	clientsync "github.com/iudanet/labsync/internal/client/sync"
	"github.com/iudanet/labsync/internal/models"
)

func TestRunRecord(t *testing.T) {
	rec := &RecorderMock{
		RecordFunc: func(ctx context.Context, entityType, entityID string, op models.Operation, payload map[string]any, opts ...recorder.Option) (*models.PendingChange, error) {
			return &models.PendingChange{ID: "c-1", EntityType: entityType, EntityID: entityID, Operation: op, BaseVersion: 3, Revision: 1}, nil
		},
	}
	cli, out, _ := newTestCli(Deps{Recorder: rec})

	date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	err := cli.RunRecord(context.Background(), RecordInput{
		EntityType: "experiment",
		EntityID:   "e1",
		Operation:  "UPDATE",
		Data:       `{"title":"run 7","temperature":21.5}`,
		Priority:   "High",
		Metadata:   &models.EntityMetadata{Project: "P1", ReferenceDate: &date},
	})
	require.NoError(t, err)

	calls := rec.RecordCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, models.OpUpdate, calls[0].Op)
	assert.Equal(t, map[string]any{"title": "run 7", "temperature": 21.5}, calls[0].Payload)
	assert.Len(t, calls[0].Opts, 2)

	s := out.String()
	assert.Contains(t, s, "✓ Recorded update experiment/e1")
	assert.Contains(t, s, "Base version: 3")
	assert.Contains(t, s, "revision 1")
}

func TestRunRecord_InvalidData(t *testing.T) {
	rec := &RecorderMock{}
	cli, _, _ := newTestCli(Deps{Recorder: rec})

	err := cli.RunRecord(context.Background(), RecordInput{EntityType: "experiment", EntityID: "e1", Operation: "create", Data: `[1,2]`})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
	assert.Empty(t, rec.RecordCalls())
}

func TestRunRecord_DroppedDelete(t *testing.T) {
	rec := &RecorderMock{
		RecordFunc: func(ctx context.Context, entityType, entityID string, op models.Operation, payload map[string]any, opts ...recorder.Option) (*models.PendingChange, error) {
			return nil, nil
		},
	}
	cli, out, _ := newTestCli(Deps{Recorder: rec})

	require.NoError(t, cli.RunRecord(context.Background(), RecordInput{EntityType: "sample", EntityID: "s1", Operation: "delete"}))
	assert.Contains(t, out.String(), "sample/s1 was never synced")
	assert.Nil(t, rec.RecordCalls()[0].Payload)
	assert.Empty(t, rec.RecordCalls()[0].Opts)
}

func TestRunShow(t *testing.T) {
	view := &clientsync.EntityView{
		Record:  &models.Record{EntityType: "sample", EntityID: "s1", Version: 2, Payload: map[string]any{"name": "A"}},
		Pending: []*models.PendingChange{{ID: "c-1", EntityType: "sample", EntityID: "s1", Operation: models.OpUpdate}},
	}
	syncMock := &SyncServiceMock{
		EntityFunc: func(ctx context.Context, entityType, entityID string) (*clientsync.EntityView, error) {
			return view, nil
		},
	}
	cli, out, _ := newTestCli(Deps{Sync: syncMock})

	require.NoError(t, cli.RunShow(context.Background(), "sample", "s1"))

	var got clientsync.EntityView
	require.NoError(t, json.Unmarshal([]byte(out.String()), &got))
	assert.Equal(t, int64(2), got.Record.Version)
	assert.Equal(t, "A", got.Record.Payload["name"])
	require.Len(t, got.Pending, 1)
	assert.Equal(t, "c-1", got.Pending[0].ID)
}
