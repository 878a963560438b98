package presence

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/pkg/api"
)

// member участник комнаты вместе с его видимым состоянием
type member struct {
	Member
	presence models.UserPresence
}

// Room живая сессия одного документа. Состояние комнаты меняет только ее горутина.
type Room struct {
	hub      *Hub
	mailbox  chan func()
	quit     chan struct{}
	done     chan struct{}
	members  map[string]*member
	key      RoomKey
	locks    []*models.Lock
	dropped  []string
	quitOnce sync.Once
	stopped  bool
}

func newRoom(h *Hub, key RoomKey) *Room {
	return &Room{
		hub:     h,
		key:     key,
		mailbox: make(chan func(), h.cfg.MailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		members: make(map[string]*member),
	}
}

func (r *Room) run() {
	defer close(r.done)
	for {
		select {
		case fn := <-r.mailbox:
			fn()
			if r.stopped {
				return
			}
		case <-r.quit:
			return
		}
	}
}

func (r *Room) stop() {
	r.quitOnce.Do(func() {
		close(r.quit)
	})
	<-r.done
}

// call ставит fn в очередь актора и ждет ее выполнения
func (r *Room) call(ctx context.Context, fn func()) error {
	ran := make(chan struct{}, 1)
	task := func() {
		fn()
		ran <- struct{}{}
	}

	select {
	case r.mailbox <- task:
	case <-r.done:
		return errRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-ran:
		return nil
	case <-r.done:
		// задача могла выполниться перед остановкой
		select {
		case <-ran:
			return nil
		default:
			return errRoomClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopIfEmpty останавливает комнату без участников
func (r *Room) stopIfEmpty() {
	if len(r.members) > 0 || r.stopped {
		return
	}
	r.hub.release(r)
	r.stopped = true
}

func (r *Room) join(m Member, now time.Time) {
	existing, rejoin := r.members[m.UserID]

	mem := &member{
		Member: m,
		presence: models.UserPresence{
			ID:           m.UserID,
			Name:         m.UserName,
			Color:        m.Color,
			LastActivity: now,
		},
	}
	if rejoin {
		mem.presence.Cursor = existing.presence.Cursor
		mem.presence.Selection = existing.presence.Selection
	}
	r.members[m.UserID] = mem
	r.expire(now)

	r.deliver(mem, api.PresenceMessage{
		Type:       api.PresenceDocumentState,
		EntityType: r.key.EntityType,
		EntityID:   r.key.EntityID,
		Users:      r.usersAPI(),
		Locks:      r.locksAPI(),
	})

	if !rejoin {
		user := models.PresenceToAPI(&mem.presence)
		r.broadcast(api.PresenceMessage{
			Type:   api.PresenceUserJoined,
			UserID: m.UserID,
			User:   &user,
		}, m.UserID)
	}

	r.hub.logger.Debug("user joined document",
		slog.String("entity_id", r.key.EntityID),
		slog.String("user_id", m.UserID),
		slog.Bool("rejoin", rejoin))
}

// removeMember удаляет участника, снимает его блокировки и оповещает остальных
func (r *Room) removeMember(userID, reason string) bool {
	if _, ok := r.members[userID]; !ok {
		return false
	}
	delete(r.members, userID)

	kept := r.locks[:0]
	var released []*models.Lock
	for _, l := range r.locks {
		if l.UserID == userID {
			released = append(released, l)
			continue
		}
		kept = append(kept, l)
	}
	r.locks = kept

	for _, l := range released {
		info := models.LockToAPI(l)
		r.broadcast(api.PresenceMessage{
			Type:   api.PresenceLockReleased,
			UserID: userID,
			Field:  l.Field,
			Lock:   &info,
			Reason: reason,
		}, "")
	}

	r.broadcast(api.PresenceMessage{
		Type:   api.PresenceUserLeft,
		UserID: userID,
		Reason: reason,
	}, "")

	r.hub.logger.Debug("user left document",
		slog.String("entity_id", r.key.EntityID),
		slog.String("user_id", userID),
		slog.String("reason", reason),
		slog.Int("locks_released", len(released)))
	return true
}

func (r *Room) disconnect(userID string, sink Sink) {
	m, ok := r.members[userID]
	if !ok || m.Sink != sink {
		return
	}
	r.removeMember(userID, "disconnected")
}

func (r *Room) touch(userID string, now time.Time) error {
	m, ok := r.members[userID]
	if !ok {
		return ErrNotJoined
	}
	m.presence.LastActivity = now
	return nil
}

func (r *Room) updateCursor(userID string, cursor models.CursorPosition, now time.Time) error {
	m, ok := r.members[userID]
	if !ok {
		return ErrNotJoined
	}
	m.presence.Cursor = &cursor
	r.activity(m, now)

	r.broadcast(api.PresenceMessage{
		Type:   api.PresenceCursorUpdate,
		UserID: userID,
		Cursor: &api.Cursor{Field: cursor.Field, Line: cursor.Line, Column: cursor.Column},
	}, userID)
	return nil
}

func (r *Room) updateSelection(userID string, sel models.Selection, now time.Time) error {
	m, ok := r.members[userID]
	if !ok {
		return ErrNotJoined
	}
	m.presence.Selection = &sel
	r.activity(m, now)

	r.broadcast(api.PresenceMessage{
		Type:      api.PresenceSelectionUpdate,
		UserID:    userID,
		Selection: &api.Selection{Field: sel.Field, Start: sel.Start, End: sel.End},
	}, userID)
	return nil
}

func (r *Room) requestLock(userID, field string, exclusive bool, now time.Time) (*LockResult, error) {
	m, ok := r.members[userID]
	if !ok {
		return nil, ErrNotJoined
	}
	r.expire(now)
	r.activity(m, now)

	var own *models.Lock
	for _, l := range r.locks {
		if l.UserID == userID {
			if l.Field == field {
				own = l
			}
			continue
		}
		if l.Overlaps(field) && (l.Exclusive || exclusive) {
			holder := *l
			info := models.LockToAPI(l)
			r.deliver(m, api.PresenceMessage{
				Type:      api.PresenceLockDenied,
				Field:     field,
				Exclusive: exclusive,
				Lock:      &info,
				Reason:    fmt.Sprintf("locked by %s", l.UserName),
			})
			r.hub.logger.Debug("lock denied",
				slog.String("entity_id", r.key.EntityID),
				slog.String("user_id", userID),
				slog.String("field", field),
				slog.String("holder", l.UserID))
			return &LockResult{Holder: &holder}, nil
		}
	}

	lock := own
	if lock == nil {
		lock = &models.Lock{
			UserID:     userID,
			UserName:   m.UserName,
			Field:      field,
			AcquiredAt: now,
		}
		r.locks = append(r.locks, lock)
	}
	lock.Exclusive = exclusive
	lock.ExpiresAt = now.Add(r.hub.cfg.LockTTL)

	info := models.LockToAPI(lock)
	r.deliver(m, api.PresenceMessage{
		Type:  api.PresenceLockGranted,
		Field: field,
		Lock:  &info,
	})
	r.broadcast(api.PresenceMessage{
		Type:   api.PresenceLockAcquired,
		UserID: userID,
		Field:  field,
		Lock:   &info,
	}, userID)

	granted := *lock
	return &LockResult{Lock: &granted, Granted: true}, nil
}

func (r *Room) releaseLock(userID, field string, now time.Time) (bool, error) {
	m, ok := r.members[userID]
	if !ok {
		return false, ErrNotJoined
	}
	m.presence.LastActivity = now

	for i, l := range r.locks {
		if l.UserID != userID || l.Field != field {
			continue
		}
		r.locks = append(r.locks[:i], r.locks[i+1:]...)
		info := models.LockToAPI(l)
		r.broadcast(api.PresenceMessage{
			Type:   api.PresenceLockReleased,
			UserID: userID,
			Field:  field,
			Lock:   &info,
		}, "")
		return true, nil
	}
	return false, nil
}

func (r *Room) edit(userID, field string, version int64, now time.Time) error {
	m, ok := r.members[userID]
	if !ok {
		return ErrNotJoined
	}
	r.activity(m, now)

	r.broadcast(api.PresenceMessage{
		Type:    api.PresenceForceRefresh,
		UserID:  userID,
		Field:   field,
		Version: version,
	}, userID)
	return nil
}

// activity отмечает активность участника и продлевает его блокировки
func (r *Room) activity(m *member, now time.Time) {
	m.presence.LastActivity = now
	for _, l := range r.locks {
		if l.UserID == m.UserID && !l.Expired(now) {
			l.ExpiresAt = now.Add(r.hub.cfg.LockTTL)
		}
	}
}

// expire снимает истекшие блокировки
func (r *Room) expire(now time.Time) {
	kept := r.locks[:0]
	var expired []*models.Lock
	for _, l := range r.locks {
		if l.Expired(now) {
			expired = append(expired, l)
			continue
		}
		kept = append(kept, l)
	}
	r.locks = kept

	for _, l := range expired {
		info := models.LockToAPI(l)
		r.broadcast(api.PresenceMessage{
			Type:   api.PresenceLockExpired,
			UserID: l.UserID,
			Field:  l.Field,
			Lock:   &info,
		}, "")
	}
}

// sweep снимает истекшие блокировки и участников без активности
func (r *Room) sweep(now time.Time) {
	r.expire(now)

	var idle []string
	for id, m := range r.members {
		if now.Sub(m.presence.LastActivity) >= r.hub.cfg.PresenceTimeout {
			idle = append(idle, id)
		}
	}
	sort.Strings(idle)
	for _, id := range idle {
		r.removeMember(id, "timeout")
	}
}

func (r *Room) snapshot(now time.Time) *State {
	r.expire(now)
	st := &State{
		Users: make([]models.UserPresence, 0, len(r.members)),
		Locks: make([]models.Lock, 0, len(r.locks)),
	}
	for _, id := range r.memberIDs() {
		st.Users = append(st.Users, r.members[id].presence)
	}
	for _, l := range r.locks {
		st.Locks = append(st.Locks, *l)
	}
	return st
}

func (r *Room) memberIDs() []string {
	ids := make([]string, 0, len(r.members))
	for id := range r.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Room) usersAPI() []api.PresenceUser {
	users := make([]api.PresenceUser, 0, len(r.members))
	for _, id := range r.memberIDs() {
		users = append(users, models.PresenceToAPI(&r.members[id].presence))
	}
	return users
}

func (r *Room) locksAPI() []api.LockInfo {
	locks := make([]api.LockInfo, 0, len(r.locks))
	for _, l := range r.locks {
		locks = append(locks, models.LockToAPI(l))
	}
	return locks
}

// broadcast рассылает сообщение всем участникам, кроме except
func (r *Room) broadcast(msg api.PresenceMessage, except string) {
	msg.EntityType = r.key.EntityType
	msg.EntityID = r.key.EntityID
	for _, id := range r.memberIDs() {
		if id == except {
			continue
		}
		r.deliver(r.members[id], msg)
	}
}

// deliver отправляет сообщение участнику; переполненный получатель помечается на отключение
func (r *Room) deliver(m *member, msg api.PresenceMessage) {
	msg.EntityType = r.key.EntityType
	msg.EntityID = r.key.EntityID
	if m.Sink.Send(msg) {
		return
	}
	for _, id := range r.dropped {
		if id == m.UserID {
			return
		}
	}
	r.dropped = append(r.dropped, m.UserID)
}

// flushDropped отключает участников, которым не удалось доставить сообщения
func (r *Room) flushDropped() {
	for len(r.dropped) > 0 {
		id := r.dropped[0]
		r.dropped = r.dropped[1:]
		if m, ok := r.members[id]; ok {
			r.hub.logger.Warn("dropping slow presence client",
				slog.String("entity_id", r.key.EntityID),
				slog.String("user_id", m.UserID))
		}
		r.removeMember(id, "dropped")
	}
}
