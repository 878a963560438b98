// Package sync координирует циклы push/pull между локальной очередью устройства и сервером.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	clientapi "github.com/iudanet/labsync/internal/client/api"
	"github.com/iudanet/labsync/internal/client/resolver"
	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
	"github.com/iudanet/labsync/internal/syncerr"
)

// Service координатор синхронизации устройства
type Service struct {
	store    storage.SyncStorage
	api      ServerAPI
	tokens   TokenSource
	resolver *resolver.Resolver
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string

	// beforeSend вызывается после пометки InFlight и перед отправкой пакета.
	// Выставляется только через withBeforeSend.
	beforeSend func()

	opts     Options
	interval atomic.Int64

	cycle   sync.Mutex // один цикл на устройство
	stateMu sync.Mutex // read-modify-write SyncState
}

// NewService creates a new sync service
func NewService(logger *slog.Logger, store storage.SyncStorage, apiClient ServerAPI, tokens TokenSource, opts Options) *Service {
	return &Service{
		store:    store,
		api:      apiClient,
		tokens:   tokens,
		resolver: resolver.New(logger, store),
		logger:   logger,
		now:      time.Now,
		newID:    uuid.NewString,
		opts:     opts.withDefaults(),
	}
}

// WithClock подменяет источник времени (для тестов)
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	s.resolver.WithClock(now)
	return s
}

// SyncResult итог одного цикла
type SyncResult struct {
	Status        models.SyncStatus
	Skipped       bool // цикл уже выполнялся
	Pushed        int  // отправлено изменений
	Applied       int  // принято сервером (created/updated/noop)
	Conflicts     int  // конфликтов при push
	Rejected      int  // отклонено валидацией
	Retrying      int  // оставлено для повтора после ошибки
	Excluded      int  // исключено селективной синхронизацией
	Discarded     int  // ответы по отмененным во время отправки изменениям
	Pulled        int  // применено серверных изменений
	PullConflicts int  // конфликтов при pull
}

// TriggerSync выполняет push, затем pull. Если цикл уже идет, вызов ничего не делает
// и возвращает результат со Skipped. Без сети возвращает syncerr.ErrOffline без побочных эффектов.
func (s *Service) TriggerSync(ctx context.Context) (*SyncResult, error) {
	if !s.cycle.TryLock() {
		s.logger.DebugContext(ctx, "sync already in progress")
		return &SyncResult{Skipped: true, Status: models.StatusSyncing}, nil
	}
	defer s.cycle.Unlock()

	state, err := s.store.GetSyncState(ctx)
	if err != nil {
		return nil, err
	}
	if !state.IsOnline {
		return nil, syncerr.ErrOffline
	}

	return s.runCycle(ctx)
}

func (s *Service) runCycle(ctx context.Context) (*SyncResult, error) {
	result := &SyncResult{}
	start := s.now()

	deviceID, err := s.store.DeviceID(ctx)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return s.finish(ctx, result, err)
	}

	if err := s.updateState(ctx, func(st *models.SyncState) {
		st.DeviceID = deviceID
		st.AuthRequired = false
		setStatus(st, models.StatusSyncing)
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sync started", slog.String("device_id", deviceID))

	if err := s.push(ctx, deviceID, &token, result); err != nil {
		return s.finish(ctx, result, err)
	}
	if err := s.pull(ctx, &token, result); err != nil {
		return s.finish(ctx, result, err)
	}

	res, err := s.finish(ctx, result, nil)
	if err == nil {
		s.logger.InfoContext(ctx, "sync finished",
			slog.String("status", string(res.Status)),
			slog.Int("pushed", res.Pushed),
			slog.Int("applied", res.Applied),
			slog.Int("conflicts", res.Conflicts+res.PullConflicts),
			slog.Int("pulled", res.Pulled),
			slog.Duration("duration", s.now().Sub(start)))
	}
	return res, err
}

// finish пересчитывает состояние после цикла. Ошибка цикла возвращается вызывающему,
// но статус определяется содержимым очереди: ответ сервера с ошибкой оставляет pending,
// потеря соединения переводит устройство в offline.
func (s *Service) finish(ctx context.Context, result *SyncResult, cycleErr error) (*SyncResult, error) {
	if cycleErr != nil {
		level := slog.LevelWarn
		if syncerr.KindOf(cycleErr) == syncerr.KindInternal && !errors.Is(cycleErr, context.Canceled) {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "sync cycle failed",
			slog.String("kind", string(syncerr.KindOf(cycleErr))),
			slog.Any("error", cycleErr))
	}

	// Состояние сохраняется даже при отмене контекста вызывающего
	saveCtx := context.WithoutCancel(ctx)
	authExpired := errors.Is(cycleErr, syncerr.ErrAuthExpired)
	internal := cycleErr != nil && syncerr.KindOf(cycleErr) == syncerr.KindInternal && !errors.Is(cycleErr, context.Canceled)
	unreachable := errors.Is(cycleErr, syncerr.ErrUnreachable)

	state, err := s.refresh(saveCtx, true, func(st *models.SyncState, c counts) {
		st.Progress = nil
		if authExpired {
			st.AuthRequired = true
		}
		if cycleErr == nil {
			now := s.now().UTC()
			st.LastSyncAt = &now
		}
		if internal {
			s.appendError(st, models.SyncError{
				At:      s.now().UTC(),
				Kind:    string(syncerr.KindInternal),
				Message: cycleErr.Error(),
			})
			setStatus(st, models.StatusError)
		}
		if unreachable {
			goOffline(st)
		}
	})
	if err != nil {
		return nil, err
	}
	if unreachable {
		s.logger.WarnContext(ctx, "server unreachable, device is offline")
	}
	result.Status = state.Status
	return result, cycleErr
}

// counts сводка очереди для вычисления статуса
type counts struct {
	pending   int
	due       int // можно отправить прямо сейчас
	waiting   int // можно отправить позже (backoff)
	errored   int
	conflicts int
}

func (s *Service) countQueue(ctx context.Context) (counts, error) {
	var c counts
	cfg, err := s.store.GetSelectiveConfig(ctx)
	if err != nil {
		return c, err
	}
	now := s.now()
	err = s.store.View(ctx, func(tx storage.Tx) error {
		queued, err := tx.ListPending()
		if err != nil {
			return err
		}
		c.pending = len(queued)
		for _, ch := range queued {
			switch {
			case ch.Errored:
				c.errored++
			case ch.ConflictID != "":
			case !selective.IsEligible(cfg, ch.EntityType, ch.Metadata):
			case ch.Sendable(now):
				c.due++
			default:
				c.waiting++
			}
		}
		open, err := tx.ListConflicts(true)
		c.conflicts = len(open)
		return err
	})
	return c, err
}

// deriveStatus статус по содержимому очереди
func deriveStatus(c counts) models.SyncStatus {
	switch {
	case c.conflicts > 0:
		return models.StatusConflict
	case c.errored > 0:
		return models.StatusError
	case c.due > 0 || c.waiting > 0:
		return models.StatusPending
	default:
		return models.StatusIdle
	}
}

// refresh пересчитывает счетчики и статус. inCycle - вызов из владельца цикла:
// иначе статус syncing выполняющегося цикла не трогается.
func (s *Service) refresh(ctx context.Context, inCycle bool, mutate func(st *models.SyncState, c counts)) (*models.SyncState, error) {
	c, err := s.countQueue(ctx)
	if err != nil {
		return nil, err
	}

	var out *models.SyncState
	err = s.updateState(ctx, func(st *models.SyncState) {
		st.PendingCount = c.pending
		st.ConflictCount = c.conflicts

		if inCycle || st.Status != models.StatusSyncing || !s.cycleRunning() {
			setStatus(st, deriveStatus(c))
		}
		if mutate != nil {
			mutate(st, c)
		}
		cp := *st
		out = &cp
	})
	return out, err
}

// setStatus меняет статус. При offline новый статус сохраняется как PreviousStatus
// и будет восстановлен при появлении сети.
func setStatus(st *models.SyncState, status models.SyncStatus) {
	if st.Status == models.StatusOffline {
		st.PreviousStatus = status
		return
	}
	st.Status = status
}

// goOffline переводит устройство в offline, запоминая текущий статус
func goOffline(st *models.SyncState) {
	if !st.IsOnline {
		return
	}
	st.IsOnline = false
	st.PreviousStatus = st.Status
	st.Status = models.StatusOffline
}

// cycleRunning сообщает, выполняется ли сейчас цикл синхронизации
func (s *Service) cycleRunning() bool {
	if s.cycle.TryLock() {
		s.cycle.Unlock()
		return false
	}
	return true
}

func (s *Service) updateState(ctx context.Context, fn func(st *models.SyncState)) error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()

	state, err := s.store.GetSyncState(ctx)
	if err != nil {
		return err
	}
	fn(state)
	if err := s.store.SaveSyncState(ctx, state); err != nil {
		return err
	}
	return nil
}

func (s *Service) appendError(st *models.SyncState, e models.SyncError) {
	st.Errors = append(st.Errors, e)
	if extra := len(st.Errors) - s.opts.MaxErrors; extra > 0 {
		st.Errors = append([]models.SyncError(nil), st.Errors[extra:]...)
	}
}

// withToken выполняет запрос, один раз обновляя токен после 401
func (s *Service) withToken(ctx context.Context, token *string, call func(token string) error) error {
	err := call(*token)
	if !errors.Is(err, clientapi.ErrUnauthorized) {
		return err
	}

	s.logger.InfoContext(ctx, "access token rejected, refreshing")
	fresh, rerr := s.tokens.Refresh(ctx)
	if rerr != nil {
		return rerr
	}
	*token = fresh

	err = call(fresh)
	if errors.Is(err, clientapi.ErrUnauthorized) {
		return syncerr.AuthExpired(err)
	}
	return err
}

// errCycle оборачивает ошибку шага цикла
func errCycle(step string, err error) error {
	return fmt.Errorf("%s: %w", step, err)
}
