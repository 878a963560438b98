package realtime

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/labsync/pkg/api"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newRoomServer отвечает на join состоянием документа, на request-lock - lock-granted,
// на leave-document закрывает соединение
func newRoomServer(t *testing.T, received chan<- api.PresenceMessage) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("access_token") != "good" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		ctx := r.Context()
		for {
			var msg api.PresenceMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return
			}
			received <- msg

			switch msg.Type {
			case api.PresenceJoin:
				_ = wsjson.Write(ctx, conn, api.PresenceMessage{
					Type:       api.PresenceDocumentState,
					EntityType: msg.EntityType,
					EntityID:   msg.EntityID,
					Users:      []api.PresenceUser{{ID: "u1", Name: "Alice", Color: "#ff0000"}},
				})
			case api.PresenceRequestLock:
				_ = wsjson.Write(ctx, conn, api.PresenceMessage{
					Type: api.PresenceLockGranted,
					Lock: &api.LockInfo{UserID: "u1", Field: msg.Field, Exclusive: msg.Exclusive},
				})
			case api.PresenceLeave:
				_ = conn.Close(websocket.StatusNormalClosure, "bye")
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/documents/ws?access_token=" + token
}

func TestSession_JoinLockAndWatch(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan api.PresenceMessage, 8)
	srv := newRoomServer(t, received)

	s, err := Dial(ctx, testLogger(), wsURL(srv, "good"), nil)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Join(ctx, "experiment", "x"))
	msg, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, api.PresenceDocumentState, msg.Type)
	assert.Equal(t, "x", msg.EntityID)
	require.Len(t, msg.Users, 1)
	assert.Equal(t, "Alice", msg.Users[0].Name)

	join := <-received
	assert.Equal(t, api.PresenceJoin, join.Type)
	assert.Equal(t, "experiment", join.EntityType)

	require.NoError(t, s.RequestLock(ctx, "title", true))
	require.NoError(t, s.MoveCursor(ctx, api.Cursor{Field: "title", Line: 1, Column: 4}))
	require.NoError(t, s.Leave(ctx))

	var got []string
	err = s.Watch(ctx, func(m api.PresenceMessage) error {
		got = append(got, m.Type)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{api.PresenceLockGranted}, got)

	lock := <-received
	assert.Equal(t, api.PresenceRequestLock, lock.Type)
	assert.Equal(t, "title", lock.Field)
	assert.True(t, lock.Exclusive)

	cursor := <-received
	require.NotNil(t, cursor.Cursor)
	assert.Equal(t, 4, cursor.Cursor.Column)
}

func TestSession_WatchStopsOnCancel(t *testing.T) {
	received := make(chan api.PresenceMessage, 8)
	srv := newRoomServer(t, received)

	s, err := Dial(context.Background(), testLogger(), wsURL(srv, "good"), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()
	assert.NoError(t, s.Watch(ctx, func(api.PresenceMessage) error { return nil }))
}

func TestDial_Unauthorized(t *testing.T) {
	srv := newRoomServer(t, make(chan api.PresenceMessage, 1))

	_, err := Dial(context.Background(), testLogger(), wsURL(srv, "bad"), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

type staticToken string

func (s staticToken) AccessToken(context.Context) (string, error) { return string(s), nil }

func TestWatcher_JoinsAndStreams(t *testing.T) {
	received := make(chan api.PresenceMessage, 8)
	srv := newRoomServer(t, received)

	w := NewWatcher(testLogger(), staticToken("good"), func(token string) (string, error) {
		return wsURL(srv, token), nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var first api.PresenceMessage
	errStop := errors.New("stop")
	err := w.Watch(ctx, "experiment", "x", func(m api.PresenceMessage) error {
		first = m
		return errStop
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, api.PresenceDocumentState, first.Type)

	join := <-received
	assert.Equal(t, api.PresenceJoin, join.Type)
	assert.Equal(t, "x", join.EntityID)
}
