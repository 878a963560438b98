package sync

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/payload"
	"github.com/iudanet/labsync/internal/selective"
	"github.com/iudanet/labsync/internal/syncerr"
	"github.com/iudanet/labsync/pkg/api"
)

// selectBatch выбирает изменения для отправки и помечает их InFlight.
// Для каждой сущности отправляется только самое раннее изменение очереди:
// следующее строится на версии, которую должно получить предыдущее.
func (s *Service) selectBatch(ctx context.Context, result *SyncResult) ([]*models.PendingChange, error) {
	cfg, err := s.store.GetSelectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()

	var batch []*models.PendingChange
	excludedCount := 0
	err = s.store.Update(ctx, func(tx storage.Tx) error {
		queued, err := tx.ListPending()
		if err != nil {
			return err
		}

		// InFlight, оставшийся от прерванного цикла, недействителен: цикл сейчас один
		head := make(map[string]uint64, len(queued))
		for _, c := range queued {
			if c.InFlight {
				c.InFlight = false
				if err := tx.PutPending(c); err != nil {
					return err
				}
			}
			if seq, ok := head[c.EntityKey()]; !ok || c.Seq < seq {
				head[c.EntityKey()] = c.Seq
			}
		}

		for _, c := range queued {
			reason := selective.Evaluate(cfg, c.EntityType, c.Metadata)
			excluded := reason != selective.ReasonNone
			if excluded != c.ExcludedFromSync {
				c.ExcludedFromSync = excluded
				if err := tx.PutPending(c); err != nil {
					return err
				}
			}
			if excluded {
				excludedCount++
				s.logger.DebugContext(ctx, "change excluded from sync",
					slog.String("change_id", c.ID),
					slog.String("entity", c.EntityKey()),
					slog.String("reason", string(reason)))
				continue
			}
			if head[c.EntityKey()] != c.Seq || !c.Sendable(now) {
				continue
			}

			c.InFlight = true
			if err := tx.PutPending(c); err != nil {
				return err
			}
			batch = append(batch, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.Excluded = excludedCount
	return batch, nil
}

// stillQueued повторно проверяет пакет непосредственно перед отправкой:
// отмененные изменения в запрос не попадают
func (s *Service) stillQueued(ctx context.Context, batch []*models.PendingChange) ([]*models.PendingChange, error) {
	out := batch[:0]
	err := s.store.View(ctx, func(tx storage.Tx) error {
		for _, c := range batch {
			cur, err := tx.GetPending(c.ID)
			if errors.Is(err, storage.ErrChangeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, cur)
		}
		return nil
	})
	return out, err
}

// maxPushRounds ограничивает число пакетов за цикл
const maxPushRounds = 16

// push отправляет очередь пакетами. Следующий пакет собирается, пока сервер
// принимает изменения: после принятия головы сущности отправляется следующая правка.
func (s *Service) push(ctx context.Context, deviceID string, token *string, result *SyncResult) error {
	for round := 0; round < maxPushRounds; round++ {
		applied := result.Applied
		sent, err := s.pushRound(ctx, deviceID, token, result)
		if err != nil {
			return err
		}
		if sent == 0 || result.Applied == applied {
			break
		}
	}

	now := s.now().UTC()
	return s.updateState(ctx, func(st *models.SyncState) {
		st.LastPushAt = &now
	})
}

// pushRound отправляет один пакет и возвращает число отправленных изменений
func (s *Service) pushRound(ctx context.Context, deviceID string, token *string, result *SyncResult) (int, error) {
	batch, err := s.selectBatch(ctx, result)
	if err != nil {
		return 0, errCycle("select push batch", err)
	}
	if s.beforeSend != nil {
		s.beforeSend()
	}
	if len(batch) > 0 {
		batch, err = s.stillQueued(ctx, batch)
		if err != nil {
			return 0, errCycle("recheck push batch", err)
		}
	}
	if len(batch) == 0 {
		return 0, nil
	}

	s.setProgress(ctx, models.PhasePush, result.Pushed, result.Pushed+len(batch))

	req := api.PushRequest{DeviceID: deviceID, Changes: make([]api.Change, 0, len(batch))}
	for _, c := range batch {
		req.Changes = append(req.Changes, models.ChangeToAPI(c))
	}
	result.Pushed += len(batch)

	var resp *api.PushResponse
	err = s.withToken(ctx, token, func(token string) error {
		var err error
		resp, err = s.api.Push(ctx, token, req)
		return err
	})
	if err != nil {
		if rerr := s.releaseBatch(context.WithoutCancel(ctx), batch, err, result); rerr != nil {
			return 0, errCycle("release push batch", rerr)
		}
		return 0, errCycle("push", err)
	}

	if err := s.applyPushResponse(ctx, batch, resp, result); err != nil {
		return 0, errCycle("apply push response", err)
	}
	s.setProgress(ctx, models.PhasePush, result.Pushed, result.Pushed)
	return len(batch), nil
}

// releaseBatch снимает InFlight после неудачной отправки.
// Сетевая ошибка увеличивает счетчик попыток и откладывает изменение (backoff),
// ошибка авторизации только снимает пометку.
func (s *Service) releaseBatch(ctx context.Context, batch []*models.PendingChange, sendErr error, result *SyncResult) error {
	retryable := syncerr.IsRetryable(sendErr)
	var failed []models.SyncError

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		for _, b := range batch {
			c, err := tx.GetPending(b.ID)
			if errors.Is(err, storage.ErrChangeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			c.InFlight = false
			if retryable {
				if s.markRetry(c, sendErr.Error()) {
					failed = append(failed, s.changeError(c, syncerr.KindNetwork, c.LastError))
				} else {
					result.Retrying++
				}
			}
			if err := tx.PutPending(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.recordErrors(ctx, failed)
}

// markRetry учитывает неудачную попытку. Возвращает true, если исчерпан лимит попыток.
func (s *Service) markRetry(c *models.PendingChange, msg string) bool {
	c.RetryCount++
	c.LastError = msg
	if c.RetryCount >= s.opts.MaxRetries {
		c.Errored = true
		c.NextAttemptAt = time.Time{}
		return true
	}
	c.NextAttemptAt = s.now().Add(s.opts.Backoff(c.RetryCount)).UTC()
	return false
}

func (s *Service) applyPushResponse(ctx context.Context, batch []*models.PendingChange, resp *api.PushResponse, result *SyncResult) error {
	byID := make(map[string]*models.PendingChange, len(batch))
	for _, c := range batch {
		byID[c.ID] = c
	}
	var failed []models.SyncError

	err := s.store.Update(ctx, func(tx storage.Tx) error {
		seen := make(map[string]bool, len(batch))

		// current возвращает изменение из очереди; отмененное во время отправки дает nil
		current := func(id string) (*models.PendingChange, error) {
			if _, sent := byID[id]; !sent {
				return nil, nil
			}
			seen[id] = true
			c, err := tx.GetPending(id)
			if errors.Is(err, storage.ErrChangeNotFound) {
				result.Discarded++
				s.logger.InfoContext(ctx, "discarding response for cancelled change", slog.String("change_id", id))
				return nil, nil
			}
			return c, err
		}

		for _, a := range resp.Applied {
			c, err := current(a.ChangeID)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			if err := s.completeChange(tx, c, a); err != nil {
				return err
			}
			result.Applied++
		}

		for _, info := range resp.Conflicts {
			c, err := current(info.ChangeID)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			if err := s.raisePushConflict(ctx, tx, c, info); err != nil {
				return err
			}
			result.Conflicts++
		}

		for _, r := range resp.Rejected {
			c, err := current(r.ChangeID)
			if err != nil {
				return err
			}
			if c == nil {
				continue
			}
			c.InFlight = false
			if r.Error == string(syncerr.KindValidation) {
				c.Errored = true
				c.LastError = r.Message
				failed = append(failed, s.changeError(c, syncerr.KindValidation, r.Message))
				result.Rejected++
			} else if s.markRetry(c, r.Message) {
				failed = append(failed, s.changeError(c, syncerr.KindInternal, r.Message))
				result.Rejected++
			} else {
				result.Retrying++
			}
			if err := tx.PutPending(c); err != nil {
				return err
			}
		}

		// Изменения без ответа повторяются в следующем цикле
		for id := range byID {
			if seen[id] {
				continue
			}
			c, err := tx.GetPending(id)
			if errors.Is(err, storage.ErrChangeNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			c.InFlight = false
			if err := tx.PutPending(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return s.recordErrors(ctx, failed)
}

// completeChange удаляет принятое изменение из очереди и продвигает последнюю известную копию
func (s *Service) completeChange(tx storage.Tx, c *models.PendingChange, a api.AppliedChange) error {
	if err := tx.DeletePending(c.ID); err != nil {
		return err
	}

	rec := &models.Record{
		UpdatedAt:    a.UpdatedAt,
		Payload:      c.Payload,
		Metadata:     c.Metadata,
		EntityType:   c.EntityType,
		EntityID:     c.EntityID,
		LastChangeID: c.ID,
		Version:      a.Version,
		Deleted:      c.Operation == models.OpDelete,
	}
	if prev, err := tx.GetRecord(c.EntityType, c.EntityID); err == nil && prev.Version > rec.Version {
		rec = prev
	} else if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
		return err
	}
	if err := tx.PutRecord(rec); err != nil {
		return err
	}

	// Версия принудительной записи может отличаться от заявленной: цепочка перестраивается
	followers, err := tx.PendingForEntity(c.EntityType, c.EntityID)
	if err != nil {
		return err
	}
	base := a.Version
	for _, f := range followers {
		if f.BaseVersion != base {
			f.BaseVersion = base
			if err := tx.PutPending(f); err != nil {
				return err
			}
		}
		base = f.ClaimedVersion()
	}
	return nil
}

func (s *Service) raisePushConflict(ctx context.Context, tx storage.Tx, c *models.PendingChange, info api.ConflictInfo) error {
	server := &models.Record{
		UpdatedAt:  info.ServerUpdatedAt,
		Payload:    info.ServerData,
		Metadata:   models.MetadataFromAPI(info.ServerMetadata),
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		Version:    info.ServerVersion,
		Deleted:    info.ServerDeleted,
	}
	conflict, _, err := s.openConflict(tx, c, server, models.ConflictFromPush)
	if err != nil {
		return err
	}

	c.InFlight = false
	c.Force = false
	c.ConflictID = conflict.ID
	if err := tx.PutPending(c); err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "push conflict",
		slog.String("conflict_id", conflict.ID),
		slog.String("change_id", c.ID),
		slog.String("entity", c.EntityKey()),
		slog.Int64("local_version", conflict.LocalVersion),
		slog.Int64("server_version", conflict.ServerVersion))
	return nil
}

// openConflict создает конфликт для сущности или обновляет серверную сторону уже открытого.
// created сообщает, что конфликт новый.
func (s *Service) openConflict(tx storage.Tx, c *models.PendingChange, server *models.Record, source models.ConflictSource) (conflict *models.SyncConflict, created bool, err error) {
	conflict, err = tx.OpenConflictForEntity(c.EntityType, c.EntityID)
	switch {
	case errors.Is(err, storage.ErrConflictNotFound):
		created = true
		conflict = &models.SyncConflict{
			ID:         s.newID(),
			EntityType: c.EntityType,
			EntityID:   c.EntityID,
			DetectedAt: s.now().UTC(),
			Source:     source,
		}
	case err != nil:
		return nil, false, err
	}

	conflict.ChangeID = c.ID
	conflict.LocalVersion = c.BaseVersion
	conflict.LocalData = models.ClonePayload(c.Payload)
	conflict.LocalUpdatedAt = c.Timestamp
	conflict.ServerVersion = server.Version
	conflict.ServerData = models.ClonePayload(server.Payload)
	conflict.ServerMetadata = server.Metadata
	conflict.ServerUpdatedAt = server.UpdatedAt
	conflict.ServerDeleted = server.Deleted
	conflict.FieldConflicts = payload.Diff(conflict.LocalData, conflict.ServerData)

	if err := tx.PutConflict(conflict); err != nil {
		return nil, false, err
	}
	return conflict, created, nil
}

func (s *Service) changeError(c *models.PendingChange, kind syncerr.Kind, msg string) models.SyncError {
	return models.SyncError{
		At:         s.now().UTC(),
		ChangeID:   c.ID,
		EntityType: c.EntityType,
		EntityID:   c.EntityID,
		Kind:       string(kind),
		Message:    msg,
	}
}

func (s *Service) recordErrors(ctx context.Context, errs []models.SyncError) error {
	if len(errs) == 0 {
		return nil
	}
	for _, e := range errs {
		s.logger.WarnContext(ctx, "change failed permanently",
			slog.String("change_id", e.ChangeID),
			slog.String("kind", e.Kind),
			slog.String("error", e.Message))
	}
	return s.updateState(ctx, func(st *models.SyncState) {
		for _, e := range errs {
			s.appendError(st, e)
		}
	})
}

func (s *Service) setProgress(ctx context.Context, phase models.SyncPhase, current, total int) {
	err := s.updateState(ctx, func(st *models.SyncState) {
		st.Progress = &models.SyncProgress{Phase: phase, Current: current, Total: total}
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to save sync progress", slog.Any("error", err))
	}
}
