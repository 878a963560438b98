package validation

import (
	"regexp"

	"github.com/iudanet/labsync/internal/models"
	"github.com/iudanet/labsync/internal/syncerr"
)

// EntityTypePattern допустимый формат типа сущности: строчные буквы, цифры, '_' и '-'
var EntityTypePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,63}$`)

// MaxEntityIDLen максимальная длина идентификатора сущности
const MaxEntityIDLen = 128

// ValidateChange проверяет структуру изменения до применения.
// Возвращает ошибку категории validation; такие изменения повторно не отправляются.
func ValidateChange(c *models.PendingChange) error {
	if c.ID == "" {
		return syncerr.Validation("", "change id is required")
	}
	if !EntityTypePattern.MatchString(c.EntityType) {
		return syncerr.Validation(c.ID, "invalid entity_type %q", c.EntityType)
	}
	if c.EntityID == "" {
		return syncerr.Validation(c.ID, "entity_id is required")
	}
	if len(c.EntityID) > MaxEntityIDLen {
		return syncerr.Validation(c.ID, "entity_id must not exceed %d characters", MaxEntityIDLen)
	}
	if !c.Operation.Valid() {
		return syncerr.Validation(c.ID, "unknown operation %q", c.Operation)
	}
	if c.Operation != models.OpDelete && c.Payload == nil {
		return syncerr.Validation(c.ID, "payload is required for %s", c.Operation)
	}
	if c.BaseVersion < 0 {
		return syncerr.Validation(c.ID, "base_version must not be negative")
	}
	if c.Metadata.AttachmentSize < 0 {
		return syncerr.Validation(c.ID, "attachment_size must not be negative")
	}
	return nil
}
