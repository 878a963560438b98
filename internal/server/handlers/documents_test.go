package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/internal/server/jwt"
	"github.com/iudanet/labsync/internal/server/presence"
	"github.com/iudanet/labsync/pkg/api"
)

// fakeAuth подставляет claims из параметра user, как это сделал бы AuthMiddleware
func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims := &jwt.Claims{UserID: user, Username: user, DisplayName: strings.ToUpper(user), Color: "#abcdef"}
		next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
	})
}

func newDocumentsServer(t *testing.T) (*httptest.Server, *presence.Hub) {
	hub := presence.NewHub(presence.DefaultConfig(), setupTestLogger())
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	handler := NewDocumentsHandler(setupTestLogger(), hub, DocumentsConfig{})
	mux := http.NewServeMux()
	mux.Handle("GET /api/v1/documents/ws", fakeAuth(http.HandlerFunc(handler.ServeWS)))
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return srv, hub
}

func dialDocument(t *testing.T, ctx context.Context, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/documents/ws?" + query
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	return conn
}

func sendMessage(t *testing.T, ctx context.Context, conn *websocket.Conn, msg api.PresenceMessage) {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, data))
}

// readUntil читает сообщения, пока не встретится сообщение нужного типа
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, msgType string) api.PresenceMessage {
	t.Helper()
	for {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err, "waiting for %s", msgType)
		var msg api.PresenceMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		if msg.Type == msgType {
			return msg
		}
	}
}

func TestDocumentsHandler_LockFlow(t *testing.T) {
	srv, _ := newDocumentsServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	u1 := dialDocument(t, ctx, srv, "user=u1&entity_type=experiment&entity_id=exp-1")
	defer u1.Close(websocket.StatusNormalClosure, "")
	state := readUntil(t, ctx, u1, api.PresenceDocumentState)
	require.Len(t, state.Users, 1)
	assert.Equal(t, "U1", state.Users[0].Name)

	u2 := dialDocument(t, ctx, srv, "user=u2")
	defer u2.Close(websocket.StatusNormalClosure, "")
	sendMessage(t, ctx, u2, api.PresenceMessage{Type: api.PresenceJoin, EntityType: "experiment", EntityID: "exp-1"})
	state = readUntil(t, ctx, u2, api.PresenceDocumentState)
	assert.Len(t, state.Users, 2)

	joined := readUntil(t, ctx, u1, api.PresenceUserJoined)
	assert.Equal(t, "u2", joined.UserID)

	sendMessage(t, ctx, u1, api.PresenceMessage{Type: api.PresenceRequestLock, Field: "title", Exclusive: true})
	granted := readUntil(t, ctx, u1, api.PresenceLockGranted)
	require.NotNil(t, granted.Lock)
	assert.Equal(t, "title", granted.Lock.Field)
	acquired := readUntil(t, ctx, u2, api.PresenceLockAcquired)
	assert.Equal(t, "u1", acquired.UserID)

	sendMessage(t, ctx, u2, api.PresenceMessage{Type: api.PresenceRequestLock, Field: "title", Exclusive: true})
	denied := readUntil(t, ctx, u2, api.PresenceLockDenied)
	assert.Equal(t, "title", denied.Field)

	sendMessage(t, ctx, u1, api.PresenceMessage{Type: api.PresenceCursorMove, Cursor: &api.Cursor{Field: "title", Line: 1, Column: 3}})
	cursor := readUntil(t, ctx, u2, api.PresenceCursorUpdate)
	require.NotNil(t, cursor.Cursor)
	assert.Equal(t, 3, cursor.Cursor.Column)

	// обрыв соединения снимает блокировки
	require.NoError(t, u1.Close(websocket.StatusNormalClosure, ""))
	released := readUntil(t, ctx, u2, api.PresenceLockReleased)
	assert.Equal(t, "u1", released.UserID)
	left := readUntil(t, ctx, u2, api.PresenceUserLeft)
	assert.Equal(t, "u1", left.UserID)

	sendMessage(t, ctx, u2, api.PresenceMessage{Type: api.PresenceRequestLock, Field: "title", Exclusive: true})
	readUntil(t, ctx, u2, api.PresenceLockGranted)
}

func TestDocumentsHandler_Errors(t *testing.T) {
	srv, _ := newDocumentsServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dialDocument(t, ctx, srv, "user=u1")
	defer conn.Close(websocket.StatusNormalClosure, "")

	sendMessage(t, ctx, conn, api.PresenceMessage{Type: api.PresenceRequestLock, Field: "title"})
	msg := readUntil(t, ctx, conn, api.PresenceError)
	assert.Equal(t, errNotInDocument.Error(), msg.Reason)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte("{not json")))
	msg = readUntil(t, ctx, conn, api.PresenceError)
	assert.Equal(t, "invalid message", msg.Reason)

	sendMessage(t, ctx, conn, api.PresenceMessage{Type: api.PresenceJoin, EntityType: "Bad Type", EntityID: "x"})
	msg = readUntil(t, ctx, conn, api.PresenceError)
	assert.Equal(t, "invalid entity_type", msg.Reason)
}

func TestDocumentsHandler_RejectsInvalidQuery(t *testing.T) {
	srv, _ := newDocumentsServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/documents/ws?user=u1&entity_type=experiment")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/api/v1/documents/ws")
	require.NoError(t, err)
	defer func() { _ = resp2.Body.Close() }()
	assert.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
}
