package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/enums"
)

// AccessRequest is a manual, human-reviewed override row. Rows are append-only
// history: transitions only move pending rows into a terminal status, and a
// user may file a fresh row after a rejection.
type AccessRequest struct {
	ID                  uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              string              `gorm:"column:user_id;not null;index"`
	UserEmail           string              `gorm:"column:user_email;not null;index"`
	UserName            string              `gorm:"column:user_name;not null"`
	CompanyName         string              `gorm:"column:company_name;not null"`
	PartnerName         string              `gorm:"column:partner_name;not null"`
	PartnerContactName  *string             `gorm:"column:partner_contact_name"`
	PartnerContactEmail *string             `gorm:"column:partner_contact_email"`
	Status              enums.RequestStatus `gorm:"column:status;not null;default:'pending';index"`
	ReviewedBy          *string             `gorm:"column:reviewed_by"`
	ReviewedAt          *time.Time          `gorm:"column:reviewed_at"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
}
