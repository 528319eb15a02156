package models

import (
	"time"

	"github.com/google/uuid"
)

// Partner represents an organization whose portfolio gates perk access.
type Partner struct {
	ID                uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name              string    `gorm:"column:name;not null"`
	Slug              string    `gorm:"column:slug;not null;uniqueIndex"`
	CatalogEndpoint   *string   `gorm:"column:catalog_endpoint"`
	CatalogCredential *string   `gorm:"column:catalog_credential"`
	OwnerEmail        string    `gorm:"column:owner_email;not null"`
	OwnerDomain       string    `gorm:"column:owner_domain;not null"`
	IsActive          bool      `gorm:"column:is_active;not null;default:true"`
	IsDefault         bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt         time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
