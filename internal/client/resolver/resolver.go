// Package resolver применяет выбранную стратегию к конфликту синхронизации.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/payload"
)

var (
	// ErrUnresolvedFields merge оставил структурные поля без значения
	ErrUnresolvedFields = errors.New("conflict has unresolved fields")

	// ErrAlreadyResolved конфликт уже закрыт
	ErrAlreadyResolved = errors.New("conflict already resolved")

	// ErrUnknownStrategy неизвестная стратегия разрешения
	ErrUnknownStrategy = errors.New("unknown conflict strategy")

	// ErrMergeDeleted merge невозможен, когда одна из сторон удалила сущность
	ErrMergeDeleted = errors.New("cannot merge a deleted entity, choose server-wins or client-wins")
)

// UnresolvedError перечисляет поля, для которых merge требует явного значения
type UnresolvedError struct {
	Fields []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedFields, strings.Join(e.Fields, ", "))
}

func (e *UnresolvedError) Is(target error) bool {
	return target == ErrUnresolvedFields
}

// Resolver закрывает конфликты, обновляя очередь и последнюю известную серверную копию
// в одной транзакции с самим конфликтом
type Resolver struct {
	store  storage.SyncStorage
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New создает Resolver
func New(logger *slog.Logger, store storage.SyncStorage) *Resolver {
	return &Resolver{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// Resolve применяет стратегию к открытому конфликту.
// mergedValues используются только стратегией merge и переопределяют автоматический выбор.
func (r *Resolver) Resolve(
	ctx context.Context,
	conflictID string,
	strategy models.ConflictStrategy,
	mergedValues map[string]any,
) (*models.SyncConflict, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}

	var resolved *models.SyncConflict
	err := r.store.Update(ctx, func(tx storage.Tx) error {
		conflict, err := tx.GetConflict(conflictID)
		if err != nil {
			return err
		}
		if !conflict.IsOpen() {
			return ErrAlreadyResolved
		}

		switch strategy {
		case models.StrategyServerWins:
			err = AcceptServer(tx, conflict)
		case models.StrategyClientWins:
			err = r.resubmit(tx, conflict, conflict.LocalData)
		case models.StrategyMerge:
			var merged map[string]any
			merged, err = r.merge(conflict, mergedValues)
			if err == nil {
				err = r.resubmit(tx, conflict, merged)
			}
		}
		if err != nil {
			return err
		}

		now := r.now().UTC()
		conflict.ResolvedAt = &now
		conflict.Resolution = strategy
		if err := tx.PutConflict(conflict); err != nil {
			return err
		}
		resolved = conflict
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to resolve conflict %s: %w", conflictID, err)
	}

	r.logger.InfoContext(ctx, "conflict resolved",
		slog.String("conflict_id", conflictID),
		slog.String("entity", resolved.EntityKey()),
		slog.String("strategy", string(strategy)))

	return resolved, nil
}

// AcceptServer отбрасывает все локальные изменения сущности и принимает серверную копию.
// Конфликт не закрывается: это делает вызывающий.
func AcceptServer(tx storage.Tx, conflict *models.SyncConflict) error {
	queued, err := tx.PendingForEntity(conflict.EntityType, conflict.EntityID)
	if err != nil {
		return err
	}
	for _, c := range queued {
		if err := tx.DeletePending(c.ID); err != nil {
			return err
		}
	}
	return tx.PutRecord(ServerRecord(conflict))
}

// resubmit переотправляет локальную версию поверх серверной: разовый обход проверки версии.
// Следующий push даст версию ServerVersion+1.
func (r *Resolver) resubmit(tx storage.Tx, conflict *models.SyncConflict, data map[string]any) error {
	queued, err := tx.PendingForEntity(conflict.EntityType, conflict.EntityID)
	if err != nil {
		return err
	}

	var head *models.PendingChange
	if len(queued) > 0 {
		head = queued[0]
		for _, c := range queued {
			if c.ID == conflict.ChangeID {
				head = c
				break
			}
		}
	}

	if head == nil {
		// Локальное изменение уже отменено: ставим новое с локальной версией
		op := models.OpUpdate
		if data == nil {
			op = models.OpDelete
		}
		head = &models.PendingChange{
			ID:         r.newID(),
			EntityType: conflict.EntityType,
			EntityID:   conflict.EntityID,
			Operation:  op,
			Priority:   models.PriorityNormal,
			Timestamp:  r.now().UTC(),
		}
		queued = []*models.PendingChange{head}
	}

	if head.Operation != models.OpDelete {
		head.Payload = models.ClonePayload(data)
	}
	head.BaseVersion = conflict.ServerVersion
	head.Force = true
	head.ConflictID = ""
	head.Errored = false
	head.RetryCount = 0
	head.LastError = ""
	head.NextAttemptAt = time.Time{}
	head.ExcludedFromSync = false
	if err := tx.PutPending(head); err != nil {
		return err
	}

	// Остальные изменения сущности перестраиваются поверх новой версии
	prev := head
	for _, c := range queued {
		if c.ID == head.ID {
			continue
		}
		c.BaseVersion = prev.ClaimedVersion()
		c.ConflictID = ""
		if err := tx.PutPending(c); err != nil {
			return err
		}
		prev = c
	}

	return tx.PutRecord(ServerRecord(conflict))
}

// merge собирает итоговый документ: скалярные поля берутся со стороны с более поздней правкой
// (при равенстве побеждает сервер), явные значения вызывающего переопределяют выбор.
// Структурные поля без явного значения не угадываются.
func (r *Resolver) merge(conflict *models.SyncConflict, mergedValues map[string]any) (map[string]any, error) {
	if conflict.ServerDeleted || conflict.LocalData == nil {
		return nil, ErrMergeDeleted
	}

	localNewer := conflict.LocalUpdatedAt.After(conflict.ServerUpdatedAt)
	result := models.ClonePayload(conflict.ServerData)
	if result == nil {
		result = map[string]any{}
	}

	fields := payload.Diff(conflict.LocalData, conflict.ServerData)
	var unresolved []string
	for i := range fields {
		fc := &fields[i]

		if v, ok := mergedValues[fc.Field]; ok {
			fc.MergedValue = v
			fc.Merged = true
			result[fc.Field] = v
			continue
		}
		if !payload.IsScalar(fc.LocalValue) || !payload.IsScalar(fc.ServerValue) {
			unresolved = append(unresolved, fc.Field)
			continue
		}

		value, present := fc.ServerValue, fc.ServerPresent
		if localNewer {
			value, present = fc.LocalValue, fc.LocalPresent
		}
		fc.Merged = true
		if !present {
			// выбранная сторона не содержит поле
			delete(result, fc.Field)
			continue
		}
		fc.MergedValue = value
		result[fc.Field] = value
	}

	// Явные значения для полей без расхождений тоже применяются
	for k, v := range mergedValues {
		result[k] = v
	}

	if len(unresolved) > 0 {
		return nil, &UnresolvedError{Fields: unresolved}
	}

	conflict.FieldConflicts = fields
	return result, nil
}

// ServerRecord серверная сторона конфликта как известная клиенту копия сущности
func ServerRecord(conflict *models.SyncConflict) *models.Record {
	return &models.Record{
		UpdatedAt:  conflict.ServerUpdatedAt,
		Payload:    models.ClonePayload(conflict.ServerData),
		Metadata:   conflict.ServerMetadata,
		EntityType: conflict.EntityType,
		EntityID:   conflict.EntityID,
		Version:    conflict.ServerVersion,
		Deleted:    conflict.ServerDeleted,
	}
}
