// Package recorder ставит локальные изменения в очередь синхронизации.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iudanet/labsync/internal/client/storage"
	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/validation"
)

// Recorder записывает локальные правки в durable очередь
type Recorder struct {
	store  storage.SyncStorage
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// New создает Recorder
func New(logger *slog.Logger, store storage.SyncStorage) *Recorder {
	return &Recorder{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock подменяет источник времени (для тестов)
func (r *Recorder) WithClock(now func() time.Time) *Recorder {
	r.now = now
	return r
}

// Option дополняет записываемое изменение
type Option func(*options)

type options struct {
	metadata *models.EntityMetadata
	priority models.Priority
}

// WithPriority задает приоритет отправки
func WithPriority(p models.Priority) Option {
	return func(o *options) {
		o.priority = p
	}
}

// WithMetadata задает атрибуты сущности для селективной синхронизации
func WithMetadata(m models.EntityMetadata) Option {
	return func(o *options) {
		o.metadata = &m
	}
}

// Record ставит изменение в очередь.
//
// Удаление сущности, которая была создана локально и еще не отправлялась,
// убирает из очереди все ее изменения: в этом случае возвращается (nil, nil).
// Правка после неотправленного create или update той же сущности заменяет payload
// ожидающего изменения вместо добавления нового. Изменения, уже отправленные
// на сервер (InFlight), не объединяются.
func (r *Recorder) Record(
	ctx context.Context,
	entityType, entityID string,
	op models.Operation,
	payload map[string]any,
	opts ...Option,
) (*models.PendingChange, error) {
	o := options{priority: models.PriorityNormal}
	for _, opt := range opts {
		opt(&o)
	}
	switch o.priority {
	case models.PriorityHigh, models.PriorityNormal, models.PriorityLow:
	default:
		return nil, fmt.Errorf("unknown priority %q", o.priority)
	}

	change := &models.PendingChange{
		ID:         r.newID(),
		EntityType: entityType,
		EntityID:   entityID,
		Operation:  op,
		Payload:    models.ClonePayload(payload),
		Priority:   o.priority,
		Timestamp:  r.now().UTC(),
	}
	if o.metadata != nil {
		change.Metadata = *o.metadata
	}
	if op == models.OpDelete {
		change.Payload = nil
	}
	if err := validation.ValidateChange(change); err != nil {
		return nil, err
	}

	var result *models.PendingChange
	err := r.store.Update(ctx, func(tx storage.Tx) error {
		queued, err := tx.PendingForEntity(entityType, entityID)
		if err != nil {
			return err
		}

		var tail *models.PendingChange
		if len(queued) > 0 {
			tail = queued[len(queued)-1]
		}

		switch {
		case op == models.OpDelete && neverSynced(queued):
			for _, c := range queued {
				if err := tx.DeletePending(c.ID); err != nil {
					return err
				}
			}
			r.logger.DebugContext(ctx, "unsynced entity deleted, queue entries dropped",
				slog.String("entity", change.EntityKey()),
				slog.Int("dropped", len(queued)))
			return nil

		case tail != nil && coalescable(tail, op):
			tail.Payload = change.Payload
			if op == models.OpDelete {
				tail.Operation = models.OpDelete
			}
			if o.metadata != nil {
				tail.Metadata = change.Metadata
			}
			if o.priority.Rank() < tail.Priority.Rank() {
				tail.Priority = o.priority
			}
			tail.Timestamp = change.Timestamp
			tail.Revision++
			tail.ExcludedFromSync = false
			if err := tx.PutPending(tail); err != nil {
				return err
			}
			result = tail
			return nil
		}

		// Новое изменение продолжает цепочку: его база - версия, которую получит предыдущее
		switch {
		case tail != nil:
			change.BaseVersion = tail.ClaimedVersion()
		default:
			rec, err := tx.GetRecord(entityType, entityID)
			switch {
			case err == nil:
				change.BaseVersion = rec.Version
			case !errors.Is(err, storage.ErrRecordNotFound):
				return err
			}
		}

		if err := tx.PutPending(change); err != nil {
			return err
		}
		result = change
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record change: %w", err)
	}

	if result != nil {
		r.logger.DebugContext(ctx, "change recorded",
			slog.String("change_id", result.ID),
			slog.String("entity", result.EntityKey()),
			slog.String("operation", string(result.Operation)),
			slog.Int64("base_version", result.BaseVersion),
			slog.Int64("revision", result.Revision))
	}

	return result, nil
}

// neverSynced сообщает, что очередь сущности начинается с create, который сервер еще не видел.
// Конфликт по любому изменению означает, что сущность на сервере уже есть.
func neverSynced(queued []*models.PendingChange) bool {
	if len(queued) == 0 {
		return false
	}
	head := queued[0]
	if head.Operation != models.OpCreate || head.BaseVersion != 0 {
		return false
	}
	for _, c := range queued {
		if c.InFlight || c.ConflictID != "" {
			return false
		}
	}
	return true
}

// coalescable сообщает, можно ли влить новую правку в ожидающее изменение
func coalescable(tail *models.PendingChange, op models.Operation) bool {
	if tail.InFlight || tail.ConflictID != "" || tail.Errored || tail.Force {
		return false
	}
	switch op {
	case models.OpUpdate:
		return tail.Operation == models.OpCreate || tail.Operation == models.OpUpdate
	case models.OpDelete:
		return tail.Operation == models.OpUpdate
	}
	return false
}
