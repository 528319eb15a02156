package models

import (
	"time"

	"github.com/perkgate/perkgate-backend/pkg/enums"
	"github.com/perkgate/perkgate-backend/pkg/types"
)

// AuditEntry is an immutable record of a privileged administrative mutation.
// IDs are ULIDs so entries sort lexicographically by creation time.
type AuditEntry struct {
	ID         string                `gorm:"column:id;primaryKey"`
	AdminID    string                `gorm:"column:admin_id;not null;index"`
	AdminEmail string                `gorm:"column:admin_email;not null;index"`
	AdminName  *string               `gorm:"column:admin_name"`
	Action     enums.AuditAction     `gorm:"column:action;not null;index"`
	EntityType enums.AuditEntityType `gorm:"column:entity_type;not null;index"`
	EntityID   *string               `gorm:"column:entity_id"`
	Summary    string                `gorm:"column:summary;not null"`
	Details    types.JSONMap         `gorm:"column:details;type:jsonb"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime;index"`
}
