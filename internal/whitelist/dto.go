package whitelist

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
)

// UploadDTO is the admin payload replacing a partner's uploaded domains.
type UploadDTO struct {
	Domains []UploadRow `json:"domains" validate:"required,min=1,max=5000,dive"`
}

// UploadRow is one uploaded domain with its optional company label.
type UploadRow struct {
	Domain  string  `json:"domain" validate:"required,fqdn"`
	Company *string `json:"company" validate:"omitempty,max=200"`
}

// DomainDTO is the JSON shape of one uploaded whitelist row.
type DomainDTO struct {
	ID        uuid.UUID `json:"id"`
	Domain    string    `json:"domain"`
	Company   *string   `json:"company,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromModel maps a persisted row into its response shape.
func FromModel(row *models.WhitelistDomain) DomainDTO {
	return DomainDTO{
		ID:        row.ID,
		Domain:    row.Domain,
		Company:   row.Company,
		CreatedAt: row.CreatedAt,
	}
}

// Matches reports whether a user domain satisfies a whitelist entry: an exact
// match, or the user domain being a subdomain of the entry. The comparison is
// case-insensitive.
func Matches(userDomain, entry string) bool {
	user := strings.ToLower(strings.TrimSpace(userDomain))
	listed := strings.ToLower(strings.TrimSpace(entry))
	if user == "" || listed == "" {
		return false
	}
	return user == listed || strings.HasSuffix(user, "."+listed)
}

// NormalizeDomain lowercases and trims a domain entry.
func NormalizeDomain(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
