package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/iudanet/labsync/internal/client/resolver"
	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
)

// ErrChangeConflicted изменение ждет решения конфликта
var ErrChangeConflicted = errors.New("change has an open conflict, resolve it first")

// State возвращает актуальное состояние синхронизации
func (s *Service) State(ctx context.Context) (*models.SyncState, error) {
	deviceID, err := s.store.DeviceID(ctx)
	if err != nil {
		return nil, err
	}
	state, err := s.refresh(ctx, false, func(st *models.SyncState, _ counts) {
		st.DeviceID = deviceID
	})
	if err != nil {
		return nil, fmt.Errorf("failed to refresh sync state: %w", err)
	}
	return state, nil
}

// PendingChanges возвращает очередь в порядке отправки
func (s *Service) PendingChanges(ctx context.Context) ([]*models.PendingChange, error) {
	var out []*models.PendingChange
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListPending()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pending changes: %w", err)
	}
	return out, nil
}

// Conflicts возвращает конфликты; openOnly - только нерешенные
func (s *Service) Conflicts(ctx context.Context, openOnly bool) ([]*models.SyncConflict, error) {
	var out []*models.SyncConflict
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		out, err = tx.ListConflicts(openOnly)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list conflicts: %w", err)
	}
	return out, nil
}

// Retry снимает пометку errored и backoff: изменение уйдет в ближайшем цикле
func (s *Service) Retry(ctx context.Context, changeID string) error {
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		c, err := tx.GetPending(changeID)
		if err != nil {
			return err
		}
		if c.ConflictID != "" {
			return ErrChangeConflicted
		}
		c.Errored = false
		c.RetryCount = 0
		c.LastError = ""
		c.NextAttemptAt = time.Time{}
		return tx.PutPending(c)
	})
	if err != nil {
		return fmt.Errorf("failed to retry change %s: %w", changeID, err)
	}

	s.logger.InfoContext(ctx, "change scheduled for retry", slog.String("change_id", changeID))
	return s.afterUserAction(ctx, changeID)
}

// Cancel удаляет изменение из очереди. Если изменение уже отправлено,
// ответ сервера по нему будет отброшен. Отмена изменения в конфликте принимает
// серверную копию и, как server-wins, снимает все изменения сущности.
func (s *Service) Cancel(ctx context.Context, changeID string) error {
	err := s.store.Update(ctx, func(tx storage.Tx) error {
		c, err := tx.GetPending(changeID)
		if err != nil {
			return err
		}
		if err := tx.DeletePending(changeID); err != nil {
			return err
		}

		if c.ConflictID == "" {
			return nil
		}

		// Отмена правки в конфликте равносильна принятию серверной копии
		conflict, err := tx.GetConflict(c.ConflictID)
		if errors.Is(err, storage.ErrConflictNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !conflict.IsOpen() || conflict.ChangeID != changeID {
			return nil
		}
		now := s.now().UTC()
		conflict.ResolvedAt = &now
		conflict.Resolution = models.StrategyServerWins
		if err := tx.PutConflict(conflict); err != nil {
			return err
		}
		// Последующие правки сущности построены на отмененной версии и уходят вместе с ней
		return resolver.AcceptServer(tx, conflict)
	})
	if err != nil {
		return fmt.Errorf("failed to cancel change %s: %w", changeID, err)
	}

	s.logger.InfoContext(ctx, "change cancelled", slog.String("change_id", changeID))
	return s.afterUserAction(ctx, changeID)
}

// ResolveConflict применяет стратегию к конфликту и пересчитывает состояние
func (s *Service) ResolveConflict(
	ctx context.Context,
	conflictID string,
	strategy models.ConflictStrategy,
	mergedValues map[string]any,
) (*models.SyncConflict, error) {
	conflict, err := s.resolver.Resolve(ctx, conflictID, strategy, mergedValues)
	if err != nil {
		return nil, err
	}
	if err := s.afterUserAction(ctx, conflict.ChangeID); err != nil {
		return nil, err
	}
	return conflict, nil
}

// UpdateSelectiveSyncConfig применяет изменения конфигурации селективной синхронизации.
// Курсор pull сбрасывается: ранее отфильтрованные сущности будут получены заново,
// уже известные версии пропускаются.
func (s *Service) UpdateSelectiveSyncConfig(ctx context.Context, patch selective.Patch) (*models.SelectiveSyncConfig, error) {
	current, err := s.store.GetSelectiveConfig(ctx)
	if err != nil {
		return nil, err
	}
	next := selective.Merge(*current, patch)
	if err := s.store.SaveSelectiveConfig(ctx, &next); err != nil {
		return nil, err
	}

	// Пометки очереди пересчитываются сразу, чтобы состояние отражало новый фильтр
	err = s.store.Update(ctx, func(tx storage.Tx) error {
		queued, err := tx.ListPending()
		if err != nil {
			return err
		}
		for _, c := range queued {
			excluded := !selective.IsEligible(&next, c.EntityType, c.Metadata)
			if excluded == c.ExcludedFromSync {
				continue
			}
			c.ExcludedFromSync = excluded
			if err := tx.PutPending(c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to re-evaluate queue: %w", err)
	}

	if err := s.updateState(ctx, func(st *models.SyncState) {
		st.PullCursor = 0
	}); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "selective sync config updated",
		slog.Bool("enabled", next.Enabled),
		slog.Any("projects", next.Projects),
		slog.Any("entity_types", next.EntityTypes))

	if _, err := s.refresh(ctx, false, nil); err != nil {
		return nil, err
	}
	return &next, nil
}

// SetOnline сообщает о доступности сети. offline вытесняет любой статус;
// при появлении сети восстанавливается предыдущий.
func (s *Service) SetOnline(ctx context.Context, online bool) error {
	err := s.updateState(ctx, func(st *models.SyncState) {
		if st.IsOnline == online {
			return
		}
		if !online {
			goOffline(st)
			return
		}
		st.IsOnline = true
		st.Status = st.PreviousStatus
		st.PreviousStatus = ""
		if st.Status == "" || st.Status == models.StatusOffline {
			st.Status = models.StatusIdle
		}
	})
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "connectivity changed", slog.Bool("online", online))
	if online {
		_, err = s.refresh(ctx, false, nil)
	}
	return err
}

// afterUserAction убирает ошибки изменения из списка и пересчитывает статус
func (s *Service) afterUserAction(ctx context.Context, changeID string) error {
	_, err := s.refresh(ctx, false, func(st *models.SyncState, _ counts) {
		if changeID == "" {
			return
		}
		kept := st.Errors[:0]
		for _, e := range st.Errors {
			if e.ChangeID != changeID {
				kept = append(kept, e)
			}
		}
		st.Errors = kept
	})
	return err
}

// EntityView локальное представление сущности
type EntityView struct {
	Record  *models.Record          `json:"record,omitempty"` // последняя известная серверная копия
	Pending []*models.PendingChange `json:"pending"`          // неотправленные правки в порядке очереди
}

// Entity возвращает последнюю известную копию сущности и ее неотправленные правки
func (s *Service) Entity(ctx context.Context, entityType, entityID string) (*EntityView, error) {
	view := &EntityView{}
	err := s.store.View(ctx, func(tx storage.Tx) error {
		rec, err := tx.GetRecord(entityType, entityID)
		switch {
		case err == nil:
			view.Record = rec
		case !errors.Is(err, storage.ErrRecordNotFound):
			return err
		}
		view.Pending, err = tx.PendingForEntity(entityType, entityID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", models.EntityKey(entityType, entityID), err)
	}
	if view.Record == nil && len(view.Pending) == 0 {
		return nil, storage.ErrRecordNotFound
	}
	return view, nil
}
