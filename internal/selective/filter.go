// Package selective решает, какие сущности участвуют в синхронизации на данном устройстве.
// Один и тот же предикат применяется клиентом при push и сервером при pull.
package selective

import (
	"slices"

	"github.com/iudanet/labsync/internal/models"
)

// Reason причина исключения сущности из синхронизации
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonEntityType     Reason = "entity_type"
	ReasonProject        Reason = "project"
	ReasonDateRange      Reason = "date_range"
	ReasonModality       Reason = "modality"
	ReasonAttachmentSize Reason = "attachment_size"
)

// Evaluate проверяет сущность и возвращает причину исключения, если она есть
func Evaluate(cfg *models.SelectiveSyncConfig, entityType string, meta models.EntityMetadata) Reason {
	if cfg == nil || !cfg.Enabled {
		return ReasonNone
	}

	if len(cfg.EntityTypes) > 0 && !slices.Contains(cfg.EntityTypes, entityType) {
		return ReasonEntityType
	}

	if len(cfg.Projects) > 0 && !slices.Contains(cfg.Projects, meta.Project) {
		return ReasonProject
	}

	// сущности без даты под фильтр по диапазону не попадают
	if cfg.DateRange != nil && meta.ReferenceDate != nil && !cfg.DateRange.Contains(*meta.ReferenceDate) {
		return ReasonDateRange
	}

	if len(cfg.Modalities) > 0 && !slices.Contains(cfg.Modalities, meta.Modality) {
		return ReasonModality
	}

	if cfg.MaxAttachmentSize > 0 && meta.AttachmentSize > cfg.MaxAttachmentSize {
		return ReasonAttachmentSize
	}

	return ReasonNone
}

// IsEligible сообщает, участвует ли сущность в синхронизации
func IsEligible(cfg *models.SelectiveSyncConfig, entityType string, meta models.EntityMetadata) bool {
	return Evaluate(cfg, entityType, meta) == ReasonNone
}

// Merge применяет частичное обновление к конфигурации.
// Nil-поля патча оставляют текущее значение.
func Merge(current models.SelectiveSyncConfig, patch Patch) models.SelectiveSyncConfig {
	out := current
	if patch.Enabled != nil {
		out.Enabled = *patch.Enabled
	}
	if patch.Projects != nil {
		out.Projects = slices.Clone(*patch.Projects)
	}
	if patch.EntityTypes != nil {
		out.EntityTypes = slices.Clone(*patch.EntityTypes)
	}
	if patch.Modalities != nil {
		out.Modalities = slices.Clone(*patch.Modalities)
	}
	if patch.ClearDateRange {
		out.DateRange = nil
	}
	if patch.DateRange != nil {
		r := *patch.DateRange
		out.DateRange = &r
	}
	if patch.MaxAttachmentSize != nil {
		out.MaxAttachmentSize = *patch.MaxAttachmentSize
	}
	return out
}

// Patch частичное обновление SelectiveSyncConfig
type Patch struct {
	Enabled           *bool             `json:"enabled,omitempty"`
	Projects          *[]string         `json:"projects,omitempty"`
	EntityTypes       *[]string         `json:"entity_types,omitempty"`
	Modalities        *[]string         `json:"modalities,omitempty"`
	DateRange         *models.DateRange `json:"date_range,omitempty"`
	MaxAttachmentSize *int64            `json:"max_attachment_size,omitempty"`
	ClearDateRange    bool              `json:"clear_date_range,omitempty"`
}
