// Package presence координирует живые сессии документов: участников, курсоры и блокировки полей.
//
// Каждая комната (entityType, entityID) обслуживается отдельной горутиной, через почтовый ящик
// которой проходят все операции. Поэтому проверка и выдача блокировки в комнате не пересекаются.
package presence

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/pkg/api"
)

var (
	// ErrNotJoined операция от пользователя, который не присоединен к комнате
	ErrNotJoined = errors.New("user has not joined the document")
	// ErrHubClosed хаб остановлен
	ErrHubClosed = errors.New("presence hub is closed")

	errRoomClosed = errors.New("room closed")
)

// Config параметры координатора
type Config struct {
	LockTTL         time.Duration // время жизни блокировки без активности
	SweepInterval   time.Duration // период фоновой проверки истекших блокировок
	PresenceTimeout time.Duration // участник без активности дольше этого считается ушедшим
	MailboxSize     int
}

// DefaultConfig значения по умолчанию
func DefaultConfig() Config {
	return Config{
		LockTTL:         30 * time.Second,
		SweepInterval:   5 * time.Second,
		PresenceTimeout: 60 * time.Second,
		MailboxSize:     64,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LockTTL <= 0 {
		c.LockTTL = d.LockTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.PresenceTimeout <= 0 {
		c.PresenceTimeout = d.PresenceTimeout
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = d.MailboxSize
	}
	return c
}

// Sink канал доставки сообщений одному участнику.
// Send не должен блокироваться; false означает, что участника нужно отключить.
type Sink interface {
	Send(msg api.PresenceMessage) bool
}

// Member участник, присоединяющийся к комнате
type Member struct {
	Sink     Sink
	UserID   string
	UserName string
	Color    string
}

// RoomKey идентификатор комнаты
type RoomKey struct {
	EntityType string
	EntityID   string
}

// LockResult результат запроса блокировки. Отказ - обычный результат, а не ошибка.
type LockResult struct {
	Lock    *models.Lock // выданная блокировка
	Holder  *models.Lock // блокировка, из-за которой отказано
	Granted bool
}

// State снимок состояния комнаты
type State struct {
	Users []models.UserPresence
	Locks []models.Lock
}

// Hub владеет комнатами документов. Создается сервером, глобального состояния нет.
type Hub struct {
	logger *slog.Logger
	now    func() time.Time
	rooms  map[RoomKey]*Room
	cfg    Config
	mu     sync.Mutex
	closed bool
}

// Option настраивает Hub
type Option func(*Hub)

// WithClock подменяет источник времени (для тестов)
func WithClock(now func() time.Time) Option {
	return func(h *Hub) {
		h.now = now
	}
}

// NewHub создает координатор присутствия
func NewHub(cfg Config, logger *slog.Logger, opts ...Option) *Hub {
	h := &Hub{
		logger: logger,
		now:    time.Now,
		rooms:  make(map[RoomKey]*Room),
		cfg:    cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Config возвращает действующие параметры
func (h *Hub) Config() Config {
	return h.cfg
}

// Run периодически снимает истекшие блокировки и неактивных участников.
// При отмене ctx останавливает все комнаты.
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	h.logger.Info("presence hub started",
		slog.Duration("lock_ttl", h.cfg.LockTTL),
		slog.Duration("sweep_interval", h.cfg.SweepInterval))

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			h.logger.Info("presence hub stopped")
			return nil
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep выполняет одну проверку истечения во всех комнатах
func (h *Hub) Sweep(ctx context.Context) {
	for _, r := range h.snapshotRooms() {
		err := r.call(ctx, func() {
			r.sweep(h.now())
			r.flushDropped()
			r.stopIfEmpty()
		})
		if err != nil && !errors.Is(err, errRoomClosed) {
			h.logger.Warn("room sweep failed", slog.String("entity_id", r.key.EntityID), slog.Any("error", err))
		}
	}
}

// RoomCount количество активных комнат
func (h *Hub) RoomCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms)
}

// Join присоединяет участника к комнате (создает ее при необходимости).
// Повторный вход того же пользователя заменяет прежнюю сессию.
func (h *Hub) Join(ctx context.Context, key RoomKey, m Member) error {
	return h.withRoom(ctx, key, true, func(r *Room) error {
		r.join(m, h.now())
		return nil
	})
}

// Leave удаляет участника и снимает его блокировки
func (h *Hub) Leave(ctx context.Context, key RoomKey, userID string) error {
	return h.withRoom(ctx, key, false, func(r *Room) error {
		if !r.removeMember(userID, "left") {
			return ErrNotJoined
		}
		return nil
	})
}

// Disconnect снимает участника после обрыва соединения.
// Если пользователь уже переподключился новой сессией, ничего не делает.
func (h *Hub) Disconnect(ctx context.Context, key RoomKey, userID string, sink Sink) error {
	err := h.withRoom(ctx, key, false, func(r *Room) error {
		r.disconnect(userID, sink)
		return nil
	})
	if errors.Is(err, ErrNotJoined) {
		return nil
	}
	return err
}

// Touch отмечает активность участника без продления блокировок
func (h *Hub) Touch(ctx context.Context, key RoomKey, userID string) error {
	return h.withRoom(ctx, key, false, func(r *Room) error {
		return r.touch(userID, h.now())
	})
}

// UpdateCursor обновляет курсор участника
func (h *Hub) UpdateCursor(ctx context.Context, key RoomKey, userID string, cursor models.CursorPosition) error {
	return h.withRoom(ctx, key, false, func(r *Room) error {
		return r.updateCursor(userID, cursor, h.now())
	})
}

// UpdateSelection обновляет выделение участника
func (h *Hub) UpdateSelection(ctx context.Context, key RoomKey, userID string, sel models.Selection) error {
	return h.withRoom(ctx, key, false, func(r *Room) error {
		return r.updateSelection(userID, sel, h.now())
	})
}

// RequestLock запрашивает блокировку поля; пустое field - весь документ
func (h *Hub) RequestLock(ctx context.Context, key RoomKey, userID, field string, exclusive bool) (*LockResult, error) {
	var res *LockResult
	err := h.withRoom(ctx, key, false, func(r *Room) error {
		var err error
		res, err = r.requestLock(userID, field, exclusive, h.now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ReleaseLock снимает блокировку участника. Возвращает false, если блокировки не было.
func (h *Hub) ReleaseLock(ctx context.Context, key RoomKey, userID, field string) (bool, error) {
	var released bool
	err := h.withRoom(ctx, key, false, func(r *Room) error {
		var err error
		released, err = r.releaseLock(userID, field, h.now())
		return err
	})
	return released, err
}

// Edit сообщает о сохраненной правке: продлевает блокировки автора и просит остальных обновиться
func (h *Hub) Edit(ctx context.Context, key RoomKey, userID, field string, version int64) error {
	return h.withRoom(ctx, key, false, func(r *Room) error {
		return r.edit(userID, field, version, h.now())
	})
}

// Snapshot возвращает текущее состояние комнаты
func (h *Hub) Snapshot(ctx context.Context, key RoomKey) (*State, error) {
	var st *State
	err := h.withRoom(ctx, key, false, func(r *Room) error {
		st = r.snapshot(h.now())
		return nil
	})
	if errors.Is(err, ErrNotJoined) {
		return &State{}, nil
	}
	return st, err
}

// withRoom выполняет fn внутри актора комнаты.
// Если комната успела остановиться между поиском и вызовом, попытка повторяется.
func (h *Hub) withRoom(ctx context.Context, key RoomKey, create bool, fn func(r *Room) error) error {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		r, err := h.room(key, create)
		if err != nil {
			return err
		}
		var opErr error
		err = r.call(ctx, func() {
			opErr = fn(r)
			r.flushDropped()
		})
		if errors.Is(err, errRoomClosed) {
			continue
		}
		if err != nil {
			return err
		}
		return opErr
	}
	return ErrHubClosed
}

func (h *Hub) room(key RoomKey, create bool) (*Room, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}
	r, ok := h.rooms[key]
	if ok {
		return r, nil
	}
	if !create {
		return nil, ErrNotJoined
	}
	r = newRoom(h, key)
	h.rooms[key] = r
	go r.run()
	h.logger.Debug("room opened", slog.String("entity_type", key.EntityType), slog.String("entity_id", key.EntityID))
	return r, nil
}

// release убирает комнату из реестра; вызывается самим актором перед остановкой
func (h *Hub) release(r *Room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.rooms[r.key]; ok && cur == r {
		delete(h.rooms, r.key)
	}
	h.logger.Debug("room closed", slog.String("entity_type", r.key.EntityType), slog.String("entity_id", r.key.EntityID))
}

func (h *Hub) snapshotRooms() []*Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	return rooms
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	h.closed = true
	rooms := make([]*Room, 0, len(h.rooms))
	for _, r := range h.rooms {
		rooms = append(rooms, r)
	}
	h.rooms = make(map[RoomKey]*Room)
	h.mu.Unlock()

	for _, r := range rooms {
		r.stop()
	}
}
