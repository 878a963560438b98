package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/server/presence"
	"github.com/iudanet/labsync/internal/validation"
	"github.com/iudanet/labsync/pkg/api"
)

// DocumentsConfig параметры канала присутствия
type DocumentsConfig struct {
	OriginPatterns []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	QueueSize      int // размер очереди исходящих сообщений одного соединения
}

// DefaultDocumentsConfig значения по умолчанию
func DefaultDocumentsConfig() DocumentsConfig {
	return DocumentsConfig{
		OriginPatterns: []string{"*"},
		PingInterval:   20 * time.Second,
		WriteTimeout:   5 * time.Second,
		QueueSize:      128,
	}
}

// DocumentsHandler обслуживает WebSocket канал присутствия и блокировок
type DocumentsHandler struct {
	logger *slog.Logger
	hub    *presence.Hub
	cfg    DocumentsConfig
}

// NewDocumentsHandler создает handler канала присутствия
func NewDocumentsHandler(logger *slog.Logger, hub *presence.Hub, cfg DocumentsConfig) *DocumentsHandler {
	d := DefaultDocumentsConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = d.PingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = d.WriteTimeout
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = d.QueueSize
	}
	if len(cfg.OriginPatterns) == 0 {
		cfg.OriginPatterns = d.OriginPatterns
	}
	return &DocumentsHandler{logger: logger, hub: hub, cfg: cfg}
}

// wsSession одно соединение. Исходящие сообщения идут через буферизованную очередь,
// переполнение очереди разрывает соединение.
type wsSession struct {
	out    chan api.PresenceMessage
	cancel context.CancelFunc
}

// Send реализует presence.Sink и никогда не блокируется
func (s *wsSession) Send(msg api.PresenceMessage) bool {
	select {
	case s.out <- msg:
		return true
	default:
		s.cancel()
		return false
	}
}

// ServeWS обрабатывает GET /api/v1/documents/ws[?entity_type=&entity_id=].
// Если документ указан в запросе, соединение сразу присоединяется к нему.
func (h *DocumentsHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, ok := GetClaims(r.Context())
	if !ok {
		sendError(h.logger, w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var initial *presence.RoomKey
	if et, id := r.URL.Query().Get("entity_type"), r.URL.Query().Get("entity_id"); et != "" || id != "" {
		key := presence.RoomKey{EntityType: et, EntityID: id}
		if err := validateRoomKey(key); err != nil {
			sendError(h.logger, w, err.Error(), http.StatusBadRequest)
			return
		}
		initial = &key
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.cfg.OriginPatterns,
	})
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &wsSession{
		out:    make(chan api.PresenceMessage, h.cfg.QueueSize),
		cancel: cancel,
	}
	name := claims.DisplayName
	if name == "" {
		name = claims.Username
	}
	c := &docConn{
		h:      h,
		sess:   sess,
		member: presence.Member{Sink: sess, UserID: claims.UserID, UserName: name, Color: claims.Color},
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		h.writeLoop(ctx, conn, sess)
	}()
	go func() {
		defer wg.Done()
		h.pingLoop(ctx, conn, c)
	}()

	h.logger.Info("presence client connected", slog.String("user_id", claims.UserID))

	if initial != nil {
		c.join(ctx, *initial)
	}
	h.readLoop(ctx, conn, c)

	cancel()
	c.disconnect()
	wg.Wait()
	_ = conn.Close(websocket.StatusNormalClosure, "")

	h.logger.Info("presence client disconnected", slog.String("user_id", claims.UserID))
}

func (h *DocumentsHandler) writeLoop(ctx context.Context, conn *websocket.Conn, sess *wsSession) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-sess.out:
			data, err := json.Marshal(msg)
			if err != nil {
				h.logger.Error("failed to marshal presence message", slog.Any("error", err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				sess.cancel()
				return
			}
		}
	}
}

func (h *DocumentsHandler) pingLoop(ctx context.Context, conn *websocket.Conn, c *docConn) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, h.cfg.WriteTimeout)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				c.sess.cancel()
				return
			}
			c.touch(ctx)
		}
	}
}

func (h *DocumentsHandler) readLoop(ctx context.Context, conn *websocket.Conn, c *docConn) {
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}

		var msg api.PresenceMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.fail("invalid message")
			continue
		}
		if err := c.dispatch(ctx, msg); err != nil {
			if errors.Is(err, presence.ErrHubClosed) {
				return
			}
			c.fail(err.Error())
		}
	}
}

// docConn состояние соединения: к какому документу оно присоединено
type docConn struct {
	h      *DocumentsHandler
	sess   *wsSession
	key    *presence.RoomKey
	member presence.Member
	mu     sync.Mutex
}

func (c *docConn) current() *presence.RoomKey {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.key
}

func (c *docConn) setCurrent(key *presence.RoomKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.key = key
}

func (c *docConn) fail(reason string) {
	c.sess.Send(api.PresenceMessage{Type: api.PresenceError, Reason: reason})
}

func (c *docConn) join(ctx context.Context, key presence.RoomKey) {
	if err := c.h.hub.Join(ctx, key, c.member); err != nil {
		c.fail(err.Error())
		return
	}
	c.setCurrent(&key)
}

func (c *docConn) touch(ctx context.Context) {
	key := c.current()
	if key == nil {
		return
	}
	if err := c.h.hub.Touch(ctx, *key, c.member.UserID); err != nil && !errors.Is(err, presence.ErrNotJoined) {
		c.h.logger.Debug("presence touch failed", slog.Any("error", err))
	}
}

func (c *docConn) disconnect() {
	key := c.current()
	if key == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.h.cfg.WriteTimeout)
	defer cancel()
	if err := c.h.hub.Disconnect(ctx, *key, c.member.UserID, c.sess); err != nil && !errors.Is(err, presence.ErrHubClosed) {
		c.h.logger.Warn("presence disconnect failed", slog.Any("error", err))
	}
	c.setCurrent(nil)
}

var errNotInDocument = errors.New("join a document first")

func (c *docConn) dispatch(ctx context.Context, msg api.PresenceMessage) error {
	hub := c.h.hub
	userID := c.member.UserID

	if msg.Type == api.PresenceJoin {
		key := presence.RoomKey{EntityType: msg.EntityType, EntityID: msg.EntityID}
		if err := validateRoomKey(key); err != nil {
			return err
		}
		if cur := c.current(); cur != nil && *cur != key {
			if err := hub.Leave(ctx, *cur, userID); err != nil && !errors.Is(err, presence.ErrNotJoined) {
				return err
			}
		}
		c.join(ctx, key)
		return nil
	}

	cur := c.current()
	if cur == nil {
		return errNotInDocument
	}
	key := *cur

	var err error
	switch msg.Type {
	case api.PresenceLeave:
		err = hub.Leave(ctx, key, userID)
		c.setCurrent(nil)
	case api.PresenceCursorMove:
		if msg.Cursor == nil {
			return errors.New("cursor is required")
		}
		err = hub.UpdateCursor(ctx, key, userID, models.CursorPosition{
			Field: msg.Cursor.Field, Line: msg.Cursor.Line, Column: msg.Cursor.Column,
		})
	case api.PresenceSelectionChange:
		if msg.Selection == nil {
			return errors.New("selection is required")
		}
		err = hub.UpdateSelection(ctx, key, userID, models.Selection{
			Field: msg.Selection.Field, Start: msg.Selection.Start, End: msg.Selection.End,
		})
	case api.PresenceRequestLock:
		// результат приходит клиенту сообщением lock-granted или lock-denied
		_, err = hub.RequestLock(ctx, key, userID, msg.Field, msg.Exclusive)
	case api.PresenceReleaseLock:
		_, err = hub.ReleaseLock(ctx, key, userID, msg.Field)
	case api.PresenceEdit:
		err = hub.Edit(ctx, key, userID, msg.Field, msg.Version)
	default:
		return errors.New("unknown message type: " + msg.Type)
	}

	if errors.Is(err, presence.ErrNotJoined) {
		// комната закрылась или участник снят по таймауту
		c.setCurrent(nil)
	}
	return err
}

func validateRoomKey(key presence.RoomKey) error {
	if !validation.EntityTypePattern.MatchString(key.EntityType) {
		return errors.New("invalid entity_type")
	}
	if key.EntityID == "" || len(key.EntityID) > validation.MaxEntityIDLen {
		return errors.New("invalid entity_id")
	}
	return nil
}
