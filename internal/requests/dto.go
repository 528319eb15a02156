package requests

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/enums"
)

// Requester identifies the member filing an access request.
type Requester struct {
	ID    string
	Email string
	Name  string
}

// CreateRequestDTO is the member payload for a new access request.
type CreateRequestDTO struct {
	CompanyName         string  `json:"companyName" validate:"required,min=2,max=200"`
	PartnerName         string  `json:"partnerName" validate:"required,min=2,max=200"`
	PartnerContactName  *string `json:"partnerContactName" validate:"omitempty,max=200"`
	PartnerContactEmail *string `json:"partnerContactEmail" validate:"omitempty,email"`
}

// TransitionDTO is the admin payload moving a pending request to a terminal
// status.
type TransitionDTO struct {
	Status enums.RequestStatus `json:"status" validate:"required,oneof=approved rejected"`
}

// ListFilter narrows the admin request listing.
type ListFilter struct {
	Status *enums.RequestStatus
}

// RequestDTO is the JSON shape returned to clients.
type RequestDTO struct {
	ID                  uuid.UUID           `json:"id"`
	UserID              string              `json:"userId"`
	UserEmail           string              `json:"userEmail"`
	UserName            string              `json:"userName"`
	CompanyName         string              `json:"companyName"`
	PartnerName         string              `json:"partnerName"`
	PartnerContactName  *string             `json:"partnerContactName,omitempty"`
	PartnerContactEmail *string             `json:"partnerContactEmail,omitempty"`
	Status              enums.RequestStatus `json:"status"`
	ReviewedBy          *string             `json:"reviewedBy,omitempty"`
	ReviewedAt          *time.Time          `json:"reviewedAt,omitempty"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// FromModel maps a persisted request into its response shape.
func FromModel(r *models.AccessRequest) RequestDTO {
	return RequestDTO{
		ID:                  r.ID,
		UserID:              r.UserID,
		UserEmail:           r.UserEmail,
		UserName:            r.UserName,
		CompanyName:         r.CompanyName,
		PartnerName:         r.PartnerName,
		PartnerContactName:  r.PartnerContactName,
		PartnerContactEmail: r.PartnerContactEmail,
		Status:              r.Status,
		ReviewedBy:          r.ReviewedBy,
		ReviewedAt:          r.ReviewedAt,
		CreatedAt:           r.CreatedAt,
	}
}

// ListPage is one page of requests plus the cursor for the next page.
type ListPage struct {
	Requests   []RequestDTO `json:"requests"`
	NextCursor *string      `json:"nextCursor,omitempty"`
}
