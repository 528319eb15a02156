package audit

import (
	"time"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	"github.com/perkgate/perkgate-backend/pkg/types"
)

// Actor identifies the administrator performing a privileged mutation.
type Actor struct {
	ID    string
	Email string
	Name  *string
}

// Entry is the input for one audit append.
type Entry struct {
	Actor      Actor
	Action     enums.AuditAction
	EntityType enums.AuditEntityType
	EntityID   *string
	Summary    string
	Details    types.JSONMap
}

// ListFilter narrows the admin audit listing.
type ListFilter struct {
	Action     *enums.AuditAction
	EntityType *enums.AuditEntityType
	AdminEmail *string
	From       *time.Time
	To         *time.Time
}

// EntryDTO is the JSON shape returned to admin clients.
type EntryDTO struct {
	ID         string                `json:"id"`
	AdminID    string                `json:"adminId"`
	AdminEmail string                `json:"adminEmail"`
	AdminName  *string               `json:"adminName,omitempty"`
	Action     enums.AuditAction     `json:"action"`
	EntityType enums.AuditEntityType `json:"entityType"`
	EntityID   *string               `json:"entityId,omitempty"`
	Summary    string                `json:"summary"`
	Details    types.JSONMap         `json:"details,omitempty"`
	CreatedAt  time.Time             `json:"createdAt"`
}

// FromModel maps a persisted entry into its response shape.
func FromModel(entry *models.AuditEntry) EntryDTO {
	return EntryDTO{
		ID:         entry.ID,
		AdminID:    entry.AdminID,
		AdminEmail: entry.AdminEmail,
		AdminName:  entry.AdminName,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		Summary:    entry.Summary,
		Details:    entry.Details,
		CreatedAt:  entry.CreatedAt,
	}
}

// ListPage is one page of audit entries plus the cursor for the next page.
type ListPage struct {
	Entries    []EntryDTO `json:"entries"`
	NextCursor *string    `json:"nextCursor,omitempty"`
}
