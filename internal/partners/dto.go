package partners

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
)

// CreatePartnerDTO is the admin payload for a new partner.
type CreatePartnerDTO struct {
	Name              string  `json:"name" validate:"required,min=2,max=120"`
	Slug              string  `json:"slug" validate:"omitempty,min=2,max=120"`
	CatalogEndpoint   *string `json:"catalogEndpoint" validate:"omitempty,url"`
	CatalogCredential *string `json:"catalogCredential"`
	OwnerEmail        string  `json:"ownerEmail" validate:"required,email"`
	IsActive          *bool   `json:"isActive"`
}

// UpdatePartnerDTO carries partial updates; nil fields stay untouched.
type UpdatePartnerDTO struct {
	Name              *string `json:"name" validate:"omitempty,min=2,max=120"`
	CatalogEndpoint   *string `json:"catalogEndpoint" validate:"omitempty,url"`
	CatalogCredential *string `json:"catalogCredential"`
	OwnerEmail        *string `json:"ownerEmail" validate:"omitempty,email"`
	IsActive          *bool   `json:"isActive"`
}

// PartnerDTO is the JSON shape returned to clients. The catalog credential
// never leaves the service.
type PartnerDTO struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Slug            string    `json:"slug"`
	CatalogEndpoint *string   `json:"catalogEndpoint,omitempty"`
	OwnerEmail      string    `json:"ownerEmail"`
	OwnerDomain     string    `json:"ownerDomain"`
	IsActive        bool      `json:"isActive"`
	IsDefault       bool      `json:"isDefault"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// FromModel maps a persisted partner into its response shape.
func FromModel(p *models.Partner) PartnerDTO {
	return PartnerDTO{
		ID:              p.ID,
		Name:            p.Name,
		Slug:            p.Slug,
		CatalogEndpoint: p.CatalogEndpoint,
		OwnerEmail:      p.OwnerEmail,
		OwnerDomain:     p.OwnerDomain,
		IsActive:        p.IsActive,
		IsDefault:       p.IsDefault,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

// Slugify normalizes a partner name into a URL-safe slug.
func Slugify(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func ownerDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
