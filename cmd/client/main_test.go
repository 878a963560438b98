package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/client/storage/boltdb"
	"github.com/iudanet/labsync/internal/models"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "labsync client")
	assert.Contains(t, out, "Version:    dev")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  format: xml\n"), 0o600))

	_, err := run(t, "--config", path, "--db", filepath.Join(t.TempDir(), "c.db"), "status")
	assert.ErrorContains(t, err, "log.format")
}

func TestRecordAndOffline(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "client.db")

	_, err := run(t, "--db", dbPath, "record", "experiment", "e1",
		"--op", "create", "--data", `{"title":"run 1"}`, "--project", "P1", "--date", "2026-02-01", "--priority", "high")
	require.NoError(t, err)

	_, err = run(t, "--db", dbPath, "offline")
	require.NoError(t, err)
	_, err = run(t, "--db", dbPath, "sync")
	require.NoError(t, err)
	_, err = run(t, "--db", dbPath, "status")
	require.NoError(t, err)

	ctx := context.Background()
	store, err := boltdb.New(ctx, dbPath)
	require.NoError(t, err)
	defer store.Close()

	var queue []*models.PendingChange
	require.NoError(t, store.View(ctx, func(tx storage.Tx) error {
		queue, err = tx.ListPending()
		return err
	}))
	require.Len(t, queue, 1)
	assert.Equal(t, models.OpCreate, queue[0].Operation)
	assert.Equal(t, models.PriorityHigh, queue[0].Priority)
	assert.Equal(t, "P1", queue[0].Metadata.Project)
	assert.Equal(t, "run 1", queue[0].Payload["title"])

	state, err := store.GetSyncState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.StatusOffline, state.Status)
	assert.False(t, state.IsOnline)
}

func TestMetadataFromFlags(t *testing.T) {
	fs := pflag.NewFlagSet("record", pflag.ContinueOnError)
	addMetadataFlags(fs)
	require.NoError(t, fs.Parse(nil))

	md, err := metadataFromFlags(fs)
	require.NoError(t, err)
	assert.Nil(t, md)

	require.NoError(t, fs.Parse([]string{"--modality", "MRI", "--date", "2026-02-01", "--attachment-size", "4096"}))
	md, err = metadataFromFlags(fs)
	require.NoError(t, err)
	require.NotNil(t, md)
	assert.Equal(t, "MRI", md.Modality)
	assert.Equal(t, int64(4096), md.AttachmentSize)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), *md.ReferenceDate)

	bad := pflag.NewFlagSet("record", pflag.ContinueOnError)
	addMetadataFlags(bad)
	require.NoError(t, bad.Parse([]string{"--date", "01.02.2026"}))
	_, err = metadataFromFlags(bad)
	assert.ErrorContains(t, err, "YYYY-MM-DD")
}

func TestPatchFromFlags(t *testing.T) {
	parse := func(t *testing.T, args ...string) *pflag.FlagSet {
		t.Helper()
		fs := pflag.NewFlagSet("selective", pflag.ContinueOnError)
		addSelectiveFlags(fs)
		require.NoError(t, fs.Parse(args))
		return fs
	}

	t.Run("empty", func(t *testing.T) {
		p, err := patchFromFlags(parse(t))
		require.NoError(t, err)
		assert.Nil(t, p.Enabled)
		assert.Nil(t, p.Projects)
		assert.Nil(t, p.DateRange)
		assert.False(t, p.ClearDateRange)
	})

	t.Run("filters", func(t *testing.T) {
		p, err := patchFromFlags(parse(t, "--enable", "--projects", "P1,P2", "--entity-types", "",
			"--from", "2026-01-01", "--max-attachment-size", "1048576"))
		require.NoError(t, err)
		require.NotNil(t, p.Enabled)
		assert.True(t, *p.Enabled)
		require.NotNil(t, p.Projects)
		assert.Equal(t, []string{"P1", "P2"}, *p.Projects)
		require.NotNil(t, p.EntityTypes)
		assert.Empty(t, *p.EntityTypes)
		assert.Nil(t, p.Modalities)
		require.NotNil(t, p.DateRange)
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), p.DateRange.From)
		assert.True(t, p.DateRange.To.IsZero())
		require.NotNil(t, p.MaxAttachmentSize)
		assert.Equal(t, int64(1<<20), *p.MaxAttachmentSize)
	})

	t.Run("disable and clear dates", func(t *testing.T) {
		p, err := patchFromFlags(parse(t, "--disable", "--any-date"))
		require.NoError(t, err)
		require.NotNil(t, p.Enabled)
		assert.False(t, *p.Enabled)
		assert.True(t, p.ClearDateRange)
	})

	t.Run("conflicting flags", func(t *testing.T) {
		_, err := patchFromFlags(parse(t, "--enable", "--disable"))
		assert.Error(t, err)
		_, err = patchFromFlags(parse(t, "--any-date", "--to", "2026-01-01"))
		assert.Error(t, err)
		_, err = patchFromFlags(parse(t, "--max-attachment-size", "-1"))
		assert.Error(t, err)
	})
}
