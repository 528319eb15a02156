package models

import (
	"time"

	"github.com/google/uuid"
)

// WhitelistDomain is one uploaded domain row scoped to a partner. Rows from
// the partner's external catalog source are never persisted here; this table
// only holds admin uploads.
type WhitelistDomain struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	PartnerID  uuid.UUID  `gorm:"column:partner_id;type:uuid;not null;index;uniqueIndex:ux_whitelist_partner_domain"`
	Domain     string     `gorm:"column:domain;not null;uniqueIndex:ux_whitelist_partner_domain"`
	Company    *string    `gorm:"column:company"`
	UploadedBy *uuid.UUID `gorm:"column:uploaded_by;type:uuid"`
	CreatedAt  time.Time  `gorm:"column:created_at;autoCreateTime"`
}
