package models

import "github.com/iudanet/labsync/pkg/api"

// MetadataToAPI конвертирует метаданные в формат API
func MetadataToAPI(m EntityMetadata) api.Metadata {
	return api.Metadata{
		ReferenceDate:  m.ReferenceDate,
		Project:        m.Project,
		Modality:       m.Modality,
		AttachmentSize: m.AttachmentSize,
	}
}

// MetadataFromAPI конвертирует метаданные из формата API
func MetadataFromAPI(m api.Metadata) EntityMetadata {
	return EntityMetadata{
		ReferenceDate:  m.ReferenceDate,
		Project:        m.Project,
		Modality:       m.Modality,
		AttachmentSize: m.AttachmentSize,
	}
}

// ChangeToAPI конвертирует изменение для отправки в push
func ChangeToAPI(c *PendingChange) api.Change {
	return api.Change{
		Timestamp:   c.Timestamp,
		Payload:     c.Payload,
		Metadata:    MetadataToAPI(c.Metadata),
		ID:          c.ID,
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		Operation:   string(c.Operation),
		BaseVersion: c.BaseVersion,
		Version:     c.ClaimedVersion(),
		Force:       c.Force,
	}
}

// ChangeFromAPI конвертирует входящее изменение
func ChangeFromAPI(c api.Change) *PendingChange {
	return &PendingChange{
		Timestamp:   c.Timestamp,
		Payload:     c.Payload,
		Metadata:    MetadataFromAPI(c.Metadata),
		ID:          c.ID,
		EntityType:  c.EntityType,
		EntityID:    c.EntityID,
		Operation:   Operation(c.Operation),
		BaseVersion: c.BaseVersion,
		Force:       c.Force,
	}
}

// RecordToAPI конвертирует серверную копию сущности
func RecordToAPI(r *Record) api.RecordDTO {
	return api.RecordDTO{
		UpdatedAt:  r.UpdatedAt,
		Payload:    r.Payload,
		Metadata:   MetadataToAPI(r.Metadata),
		EntityType: r.EntityType,
		EntityID:   r.EntityID,
		UpdatedBy:  r.UpdatedBy,
		ChangeID:   r.LastChangeID,
		Version:    r.Version,
		Deleted:    r.Deleted,
	}
}

// RecordFromAPI конвертирует серверную копию сущности из формата API
func RecordFromAPI(r api.RecordDTO) *Record {
	return &Record{
		UpdatedAt:    r.UpdatedAt,
		Payload:      r.Payload,
		Metadata:     MetadataFromAPI(r.Metadata),
		EntityType:   r.EntityType,
		EntityID:     r.EntityID,
		UpdatedBy:    r.UpdatedBy,
		LastChangeID: r.ChangeID,
		Version:      r.Version,
		Deleted:      r.Deleted,
	}
}

// FieldConflictsToAPI конвертирует список расхождений
func FieldConflictsToAPI(fcs []FieldConflict) []api.FieldConflict {
	out := make([]api.FieldConflict, 0, len(fcs))
	for _, fc := range fcs {
		out = append(out, api.FieldConflict{
			LocalValue:    fc.LocalValue,
			ServerValue:   fc.ServerValue,
			Field:         fc.Field,
			LocalPresent:  fc.LocalPresent,
			ServerPresent: fc.ServerPresent,
		})
	}
	return out
}

// FilterToAPI переводит конфигурацию селективной синхронизации в серверный фильтр.
// Отключенная конфигурация дает nil.
func FilterToAPI(cfg *SelectiveSyncConfig) *api.SelectiveFilter {
	if cfg == nil || !cfg.Enabled {
		return nil
	}
	f := &api.SelectiveFilter{
		Projects:          cfg.Projects,
		EntityTypes:       cfg.EntityTypes,
		Modalities:        cfg.Modalities,
		MaxAttachmentSize: cfg.MaxAttachmentSize,
	}
	if cfg.DateRange != nil {
		if !cfg.DateRange.From.IsZero() {
			from := cfg.DateRange.From
			f.From = &from
		}
		if !cfg.DateRange.To.IsZero() {
			to := cfg.DateRange.To
			f.To = &to
		}
	}
	return f
}

// FilterFromAPI переводит серверный фильтр обратно в конфигурацию
func FilterFromAPI(f *api.SelectiveFilter) *SelectiveSyncConfig {
	if f == nil {
		return nil
	}
	cfg := &SelectiveSyncConfig{
		Enabled:           true,
		Projects:          f.Projects,
		EntityTypes:       f.EntityTypes,
		Modalities:        f.Modalities,
		MaxAttachmentSize: f.MaxAttachmentSize,
	}
	if f.From != nil || f.To != nil {
		cfg.DateRange = &DateRange{}
		if f.From != nil {
			cfg.DateRange.From = *f.From
		}
		if f.To != nil {
			cfg.DateRange.To = *f.To
		}
	}
	return cfg
}

// LockToAPI конвертирует блокировку
func LockToAPI(l *Lock) api.LockInfo {
	return api.LockInfo{
		AcquiredAt: l.AcquiredAt,
		ExpiresAt:  l.ExpiresAt,
		UserID:     l.UserID,
		UserName:   l.UserName,
		Field:      l.Field,
		Exclusive:  l.Exclusive,
	}
}

// PresenceToAPI конвертирует участника документа
func PresenceToAPI(p *UserPresence) api.PresenceUser {
	u := api.PresenceUser{
		LastActivity: p.LastActivity,
		ID:           p.ID,
		Name:         p.Name,
		Color:        p.Color,
	}
	if p.Cursor != nil {
		u.Cursor = &api.Cursor{Field: p.Cursor.Field, Line: p.Cursor.Line, Column: p.Cursor.Column}
	}
	if p.Selection != nil {
		u.Selection = &api.Selection{Field: p.Selection.Field, Start: p.Selection.Start, End: p.Selection.End}
	}
	return u
}
