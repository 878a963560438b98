// Package realtime клиент канала присутствия и блокировок документа.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/iudanet/labsync/pkg/api"
)

// readLimit максимальный размер входящего сообщения
const readLimit = 1 << 20

// Session соединение с каналом присутствия
type Session struct {
	conn   *websocket.Conn
	logger *slog.Logger
}

// Dial подключается к каналу. url содержит access token (см. api.Client.DocumentsURL).
func Dial(ctx context.Context, logger *slog.Logger, url string, httpClient *http.Client) (*Session, error) {
	conn, resp, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPClient: httpClient})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("presence channel: %w", ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to connect to presence channel: %w", err)
	}
	conn.SetReadLimit(readLimit)

	logger.Debug("presence channel connected")
	return &Session{conn: conn, logger: logger}, nil
}

// ErrUnauthorized сервер отклонил токен
var ErrUnauthorized = errors.New("unauthorized")

func (s *Session) send(ctx context.Context, msg api.PresenceMessage) error {
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		return fmt.Errorf("failed to send %s: %w", msg.Type, err)
	}
	return nil
}

// Join присоединяет к комнате документа; предыдущая комната покидается сервером
func (s *Session) Join(ctx context.Context, entityType, entityID string) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceJoin, EntityType: entityType, EntityID: entityID})
}

// Leave покидает текущую комнату
func (s *Session) Leave(ctx context.Context) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceLeave})
}

// MoveCursor сообщает позицию курсора
func (s *Session) MoveCursor(ctx context.Context, cursor api.Cursor) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceCursorMove, Cursor: &cursor})
}

// ChangeSelection сообщает выделение
func (s *Session) ChangeSelection(ctx context.Context, sel api.Selection) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceSelectionChange, Selection: &sel})
}

// RequestLock запрашивает блокировку поля (пустое поле - весь документ).
// Ответ приходит сообщением lock-granted или lock-denied.
func (s *Session) RequestLock(ctx context.Context, field string, exclusive bool) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceRequestLock, Field: field, Exclusive: exclusive})
}

// ReleaseLock снимает свою блокировку
func (s *Session) ReleaseLock(ctx context.Context, field string) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceReleaseLock, Field: field})
}

// Edit сообщает о правке поля
func (s *Session) Edit(ctx context.Context, field string, version int64) error {
	return s.send(ctx, api.PresenceMessage{Type: api.PresenceEdit, Field: field, Version: version})
}

// Next читает следующее сообщение сервера
func (s *Session) Next(ctx context.Context) (api.PresenceMessage, error) {
	var msg api.PresenceMessage
	if err := wsjson.Read(ctx, s.conn, &msg); err != nil {
		return msg, err
	}
	return msg, nil
}

// Watch передает сообщения сервера в fn до отмены контекста, закрытия соединения
// или ошибки fn. Штатное закрытие и отмена контекста не считаются ошибкой.
func (s *Session) Watch(ctx context.Context, fn func(api.PresenceMessage) error) error {
	for {
		msg, err := s.Next(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("presence channel read failed: %w", err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

// Close закрывает соединение
func (s *Session) Close() error {
	err := s.conn.Close(websocket.StatusNormalClosure, "")
	if err != nil && websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return err
}
