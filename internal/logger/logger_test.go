package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input   string
		want    slog.Level
		wantErr bool
	}{
		{input: "", want: slog.LevelInfo},
		{input: "debug", want: slog.LevelDebug},
		{input: "WARN", want: slog.LevelWarn},
		{input: "error", want: slog.LevelError},
		{input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew_Stderr(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err := New(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	defer closer.Close()

	log.Info("hidden")
	log.Warn("visible", "entity_id", "e-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "visible", entry["msg"])
	assert.Equal(t, "e-1", entry["entity_id"])
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	log, closer, err := New(config.LogConfig{Level: "info", Format: "text", File: path, MaxSizeMB: 1}, os.Stderr)
	require.NoError(t, err)

	log.Info("written to file")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNew_Errors(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"}, os.Stderr)
	assert.Error(t, err)

	_, _, err = New(config.LogConfig{Format: "xml"}, os.Stderr)
	assert.Error(t, err)
}
