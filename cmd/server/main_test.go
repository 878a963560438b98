package main

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	assert.Contains(t, out, "Version:    dev")
}

func TestMigrateCommand(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "server.db")

	out, err := run(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")

	// повторный запуск идемпотентен
	out, err = run(t, "migrate", "--db", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "schema version 2")
}

func TestServeCommand_RequiresSecret(t *testing.T) {
	t.Setenv("LABSYNC_JWT_SECRET", "")
	_, err := run(t, "serve", "--db", filepath.Join(t.TempDir(), "server.db"))
	assert.ErrorContains(t, err, "jwt.secret")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, err := run(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "version")
	assert.Error(t, err)
}
