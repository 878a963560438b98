package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/selective"
	"github.com/iudanet/labsync/internal/server/storage"
)

const (
	// DefaultPullLimit размер порции pull по умолчанию
	DefaultPullLimit = 500
	// MaxPullLimit верхняя граница размера порции
	MaxPullLimit = 5000
)

const selectRecordColumns = `
	SELECT entity_type, entity_id, version, payload, project, reference_date, modality,
	       attachment_size, deleted, last_change_id, updated_by, updated_at, seq
	FROM records`

// rowScanner общий интерфейс *sql.Row и *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// ApplyChange проверяет версию изменения и применяет его в одной транзакции.
//
// Клиент заявляет версию base_version+1. Если хранимая версия уже произведена этим же
// изменением, повтор считается идемпотентным. Если заявленная версия не больше хранимой,
// изменение конфликтует и ничего не пишется. Force применяет изменение поверх хранимой версии.
func (s *Storage) ApplyChange(ctx context.Context, actor storage.Actor, change *models.PendingChange) (*storage.ApplyResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	current, err := scanRecord(tx.QueryRowContext(ctx,
		selectRecordColumns+` WHERE entity_type = ? AND entity_id = ?`,
		change.EntityType, change.EntityID))
	exists := true
	if err != nil {
		if !errors.Is(err, storage.ErrRecordNotFound) {
			return nil, err
		}
		exists = false
	}

	var stored int64
	if exists {
		stored = current.Version
	}

	if exists && current.LastChangeID == change.ID {
		return &storage.ApplyResult{Outcome: models.OutcomeNoop, Record: current}, nil
	}

	now := s.now()
	newVersion := change.ClaimedVersion()

	if change.Force {
		newVersion = stored + 1
	} else if newVersion <= stored {
		if _, err := s.appendLog(ctx, tx, actor, change, stored, models.OutcomeConflict, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &storage.ApplyResult{Outcome: models.OutcomeConflict, Record: current}, nil
	}

	outcome := models.OutcomeUpdated
	if !exists && change.Operation != models.OpDelete {
		outcome = models.OutcomeCreated
	}

	record := &models.Record{
		EntityType:   change.EntityType,
		EntityID:     change.EntityID,
		Version:      newVersion,
		Payload:      change.Payload,
		Metadata:     change.Metadata,
		UpdatedAt:    now.UTC().Truncate(time.Millisecond),
		UpdatedBy:    actor.UserID,
		LastChangeID: change.ID,
	}
	if change.Operation == models.OpDelete {
		record.Deleted = true
		record.Payload = nil
		if exists {
			// у tombstone остаются прежние метаданные, чтобы фильтры pull работали и для удаления
			record.Metadata = current.Metadata
		}
	}

	seq, err := s.appendLog(ctx, tx, actor, change, newVersion, outcome, now)
	if err != nil {
		return nil, err
	}
	record.Seq = seq

	if err := upsertRecord(ctx, tx, record); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &storage.ApplyResult{Outcome: outcome, Record: record}, nil
}

func (s *Storage) appendLog(ctx context.Context, tx *sql.Tx, actor storage.Actor, change *models.PendingChange, version int64, outcome models.Outcome, now time.Time) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO sync_log (entity_type, entity_id, change_id, device_id, user_id, version, outcome, forced, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		change.EntityType,
		change.EntityID,
		change.ID,
		actor.DeviceID,
		actor.UserID,
		version,
		string(outcome),
		boolToInt(change.Force),
		now.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to append sync log: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get sync log seq: %w", err)
	}
	return seq, nil
}

func upsertRecord(ctx context.Context, tx *sql.Tx, r *models.Record) error {
	var payload sql.NullString
	if r.Payload != nil {
		data, err := json.Marshal(r.Payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		payload = sql.NullString{String: string(data), Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO records (entity_type, entity_id, version, payload, project, reference_date, modality,
		                     attachment_size, deleted, last_change_id, updated_by, updated_at, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, entity_id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			project = excluded.project,
			reference_date = excluded.reference_date,
			modality = excluded.modality,
			attachment_size = excluded.attachment_size,
			deleted = excluded.deleted,
			last_change_id = excluded.last_change_id,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at,
			seq = excluded.seq`,
		r.EntityType,
		r.EntityID,
		r.Version,
		payload,
		r.Metadata.Project,
		nullUnixMilli(r.Metadata.ReferenceDate),
		r.Metadata.Modality,
		r.Metadata.AttachmentSize,
		boolToInt(r.Deleted),
		r.LastChangeID,
		r.UpdatedBy,
		unixMilli(r.UpdatedAt),
		r.Seq,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

// GetRecord возвращает текущую копию сущности
func (s *Storage) GetRecord(ctx context.Context, entityType, entityID string) (*models.Record, error) {
	return scanRecord(s.db.QueryRowContext(ctx,
		selectRecordColumns+` WHERE entity_type = ? AND entity_id = ?`,
		entityType, entityID))
}

// ListChanges возвращает сущности, измененные после курсора since
func (s *Storage) ListChanges(ctx context.Context, since int64, filter *models.SelectiveSyncConfig, limit int) (*storage.ChangePage, error) {
	if limit <= 0 {
		limit = DefaultPullLimit
	}
	if limit > MaxPullLimit {
		limit = MaxPullLimit
	}

	where, args := filterClause(filter)
	query := selectRecordColumns + ` WHERE seq > ?` + where + ` ORDER BY seq LIMIT ?`
	args = append([]any{since}, args...)
	args = append(args, limit+1)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	page := &storage.ChangePage{Cursor: since}
	if len(records) > limit {
		records = records[:limit]
		page.HasMore = true
		page.Cursor = records[len(records)-1].Seq
	} else {
		var maxSeq sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT MAX(seq) FROM sync_log`).Scan(&maxSeq); err != nil {
			return nil, fmt.Errorf("failed to get max seq: %w", err)
		}
		if maxSeq.Valid && maxSeq.Int64 > page.Cursor {
			page.Cursor = maxSeq.Int64
		}
	}

	page.Records = make([]*models.Record, 0, len(records))
	for _, r := range records {
		// sql-фильтр грубый; окончательное решение за общим предикатом
		if selective.IsEligible(filter, r.EntityType, r.Metadata) {
			page.Records = append(page.Records, r)
		}
	}

	return page, nil
}

// filterClause строит условия WHERE для селективной синхронизации
func filterClause(f *models.SelectiveSyncConfig) (string, []any) {
	if f == nil || !f.Enabled {
		return "", nil
	}

	var (
		sb   strings.Builder
		args []any
	)

	in := func(column string, values []string) {
		if len(values) == 0 {
			return
		}
		sb.WriteString(" AND " + column + " IN (")
		for i, v := range values {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("?")
			args = append(args, v)
		}
		sb.WriteString(")")
	}

	in("entity_type", f.EntityTypes)
	in("project", f.Projects)
	in("modality", f.Modalities)

	if f.DateRange != nil {
		if !f.DateRange.From.IsZero() {
			sb.WriteString(" AND (reference_date IS NULL OR reference_date >= ?)")
			args = append(args, f.DateRange.From.UnixMilli())
		}
		if !f.DateRange.To.IsZero() {
			sb.WriteString(" AND (reference_date IS NULL OR reference_date <= ?)")
			args = append(args, f.DateRange.To.UnixMilli())
		}
	}

	if f.MaxAttachmentSize > 0 {
		sb.WriteString(" AND attachment_size <= ?")
		args = append(args, f.MaxAttachmentSize)
	}

	return sb.String(), args
}

// EntityLog возвращает журнал изменений сущности
func (s *Storage) EntityLog(ctx context.Context, entityType, entityID string) ([]*storage.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, entity_type, entity_id, change_id, device_id, user_id, version, outcome, forced, created_at
		FROM sync_log
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY seq`, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*storage.LogEntry
	for rows.Next() {
		var (
			e         storage.LogEntry
			outcome   string
			forced    int
			createdAt int64
		)
		if err := rows.Scan(&e.Seq, &e.EntityType, &e.EntityID, &e.ChangeID, &e.DeviceID, &e.UserID,
			&e.Version, &outcome, &forced, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan sync log: %w", err)
		}
		e.Outcome = models.Outcome(outcome)
		e.Forced = forced != 0
		e.CreatedAt = fromUnixMilli(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}

func scanRecord(row rowScanner) (*models.Record, error) {
	var (
		r         models.Record
		payload   sql.NullString
		refDate   sql.NullInt64
		deleted   int
		updatedAt int64
	)
	err := row.Scan(
		&r.EntityType,
		&r.EntityID,
		&r.Version,
		&payload,
		&r.Metadata.Project,
		&refDate,
		&r.Metadata.Modality,
		&r.Metadata.AttachmentSize,
		&deleted,
		&r.LastChangeID,
		&r.UpdatedBy,
		&updatedAt,
		&r.Seq,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}

	if payload.Valid {
		if err := json.Unmarshal([]byte(payload.String), &r.Payload); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
		}
	}
	r.Metadata.ReferenceDate = timeFromNull(refDate)
	r.Deleted = deleted != 0
	r.UpdatedAt = fromUnixMilli(updatedAt)

	return &r, nil
}

func scanRecords(rows *sql.Rows) ([]*models.Record, error) {
	defer func() {
		_ = rows.Close()
	}()

	var records []*models.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}
