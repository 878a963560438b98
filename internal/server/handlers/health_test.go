package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/server/storage"
	"github.com/iudanet/labsync/pkg/api"
)

func TestHealthHandler_Health(t *testing.T) {
	tests := []struct {
		pingErr    error
		name       string
		wantStatus string
		wantDB     string
		wantCode   int
	}{
		{name: "database ok", wantCode: http.StatusOK, wantStatus: "ok", wantDB: "ok"},
		{name: "database down", pingErr: errors.New("disk I/O error"), wantCode: http.StatusServiceUnavailable, wantStatus: "degraded", wantDB: "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &storage.RecordStorageMock{
				PingFunc: func(ctx context.Context) error { return tt.pingErr },
			}
			handler := NewHealthHandler(setupTestLogger(), db, "1.2.3")

			req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
			w := httptest.NewRecorder()
			handler.Health(w, req)

			resp := w.Result()
			defer func() {
				assert.NoError(t, resp.Body.Close())
			}()

			assert.Equal(t, tt.wantCode, resp.StatusCode)
			assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

			var health api.HealthResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
			assert.Equal(t, tt.wantStatus, health.Status)
			assert.Equal(t, tt.wantDB, health.Database)
			assert.Equal(t, "1.2.3", health.Version)
			assert.Len(t, db.PingCalls(), 1)
		})
	}
}
