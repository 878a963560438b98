package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/syncerr"
	"github.com/iudanet/labsync/pkg/api"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// TestNewClient проверяет создание нового клиента
func TestNewClient(t *testing.T) {
	client := NewClient("http://localhost:8080/")

	assert.Equal(t, "http://localhost:8080", client.BaseURL())
	assert.Equal(t, DefaultTimeout, client.httpClient.Timeout)

	client = NewClient("http://localhost:8080", WithTimeout(5*time.Second))
	assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
}

// TestClient_Register проверяет успешную регистрацию
func TestClient_Register(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/register", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"))

		var req api.RegisterRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "testuser", req.Username)
		assert.Equal(t, "Test", req.DisplayName)

		writeJSON(w, http.StatusCreated, api.RegisterResponse{UserID: "user-123", Message: "Registration successful"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).Register(context.Background(), api.RegisterRequest{
		Username:    "testuser",
		DisplayName: "Test",
		AuthKeyHash: "hash123",
		PublicSalt:  "salt123",
	})
	require.NoError(t, err)
	assert.Equal(t, "user-123", resp.UserID)
}

// TestClient_ErrorClassification проверяет разбор ошибок сервера
func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		body        any
		name        string
		wantMessage string
		status      int
		network     bool
		unauthorize bool
	}{
		{
			name:        "conflict with json body",
			status:      http.StatusConflict,
			body:        api.ErrorResponse{Error: "Conflict", Message: "user already exists"},
			wantMessage: "user already exists",
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        api.ErrorResponse{Error: "Unauthorized", Message: "invalid token"},
			wantMessage: "invalid token",
			unauthorize: true,
		},
		{
			name:        "error without message",
			status:      http.StatusBadRequest,
			body:        api.ErrorResponse{Error: "Bad Request"},
			wantMessage: "Bad Request",
		},
		{
			name:        "server error is retryable",
			status:      http.StatusBadGateway,
			body:        "upstream down",
			wantMessage: "upstream down",
			network:     true,
		},
		{
			name:        "rate limited is retryable",
			status:      http.StatusTooManyRequests,
			body:        api.ErrorResponse{Error: "Too Many Requests", Message: "slow down"},
			wantMessage: "slow down",
			network:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if s, ok := tt.body.(string); ok {
					w.WriteHeader(tt.status)
					_, _ = w.Write([]byte(s))
					return
				}
				writeJSON(w, tt.status, tt.body)
			}))
			defer server.Close()

			_, err := NewClient(server.URL).Push(context.Background(), "token", api.PushRequest{})
			require.Error(t, err)

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.status, se.StatusCode)
			assert.Equal(t, tt.wantMessage, se.Message)
			assert.Equal(t, tt.network, errors.Is(err, syncerr.ErrNetwork))
			assert.NotErrorIs(t, err, syncerr.ErrUnreachable)
			assert.Equal(t, tt.unauthorize, errors.Is(err, ErrUnauthorized))
		})
	}
}

func TestClient_TransportErrorIsNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Pull(context.Background(), "token", api.PullRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, syncerr.ErrNetwork)
	assert.ErrorIs(t, err, syncerr.ErrUnreachable)
	assert.True(t, syncerr.IsRetryable(err))

	_, err = NewClient(url).Health(context.Background())
	assert.ErrorIs(t, err, syncerr.ErrUnreachable)
}

func TestClient_CancelledContextIsNotNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).Pull(ctx, "token", api.PullRequest{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, syncerr.ErrNetwork)
}

func TestClient_PushPull(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/api/v1/sync/push":
			var req api.PushRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "dev-1", req.DeviceID)
			require.Len(t, req.Changes, 1)
			writeJSON(w, http.StatusOK, api.PushResponse{
				Applied: []api.AppliedChange{{ChangeID: req.Changes[0].ID, Outcome: api.OutcomeCreated, Version: 1}},
			})
		case "/api/v1/sync/pull":
			var req api.PullRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, int64(7), req.Since)
			writeJSON(w, http.StatusOK, api.PullResponse{
				Changes: []api.RecordDTO{{EntityType: "experiment", EntityID: "e1", Version: 3}},
				Cursor:  9,
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	push, err := client.Push(ctx, "access", api.PushRequest{DeviceID: "dev-1", Changes: []api.Change{{ID: "c1"}}})
	require.NoError(t, err)
	require.Len(t, push.Applied, 1)
	assert.Equal(t, api.OutcomeCreated, push.Applied[0].Outcome)

	pull, err := client.Pull(ctx, "access", api.PullRequest{Since: 7})
	require.NoError(t, err)
	assert.Equal(t, int64(9), pull.Cursor)
	require.Len(t, pull.Changes, 1)
}

func TestClient_RefreshAndLogout(t *testing.T) {
	var logoutQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/refresh":
			assert.Equal(t, "Bearer refresh-1", r.Header.Get("Authorization"))
			writeJSON(w, http.StatusOK, api.TokenResponse{AccessToken: "a2", RefreshToken: "r2", ExpiresIn: 900})
		case "/api/v1/auth/logout":
			assert.Equal(t, "Bearer a2", r.Header.Get("Authorization"))
			logoutQuery = r.URL.RawQuery
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	tokens, err := client.Refresh(ctx, "refresh-1")
	require.NoError(t, err)
	assert.Equal(t, "a2", tokens.AccessToken)
	assert.Equal(t, int64(900), tokens.ExpiresIn)

	require.NoError(t, client.Logout(ctx, "a2", true))
	assert.Equal(t, "all=true", logoutQuery)
}

func TestClient_GetSaltEscapesUsername(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/salt/a%2Fb", r.URL.RawPath)
		writeJSON(w, http.StatusOK, api.SaltResponse{PublicSalt: "s"})
	}))
	defer server.Close()

	resp, err := NewClient(server.URL).GetSalt(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "s", resp.PublicSalt)
}

func TestClient_DocumentsURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{base: "http://localhost:8080", want: "ws://localhost:8080/api/v1/documents/ws?access_token=tok"},
		{base: "https://sync.example.org/", want: "wss://sync.example.org/api/v1/documents/ws?access_token=tok"},
	}
	for _, tt := range tests {
		got, err := NewClient(tt.base).DocumentsURL("tok")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
