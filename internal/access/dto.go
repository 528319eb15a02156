package access

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/decision"
	"github.com/perkgate/perkgate-backend/pkg/enums"
)

// StatusDTO is the read-only decision summary returned to clients so they
// never parse the raw cookie token.
type StatusDTO struct {
	Granted        bool               `json:"granted"`
	Reason         enums.AccessReason `json:"reason,omitempty"`
	MatchedDomain  *string            `json:"matchedDomain,omitempty"`
	CheckedAt      *time.Time         `json:"checkedAt,omitempty"`
	PartnerID      *uuid.UUID         `json:"partnerId,omitempty"`
	AnimationShown bool               `json:"animationShown"`
}

// StatusFromDecision summarizes a decision for the status endpoint.
func StatusFromDecision(d *decision.Decision) StatusDTO {
	if d == nil {
		return StatusDTO{Granted: false}
	}
	checkedAt := d.CheckedAt
	partnerID := d.PartnerID
	return StatusDTO{
		Granted:        d.Granted,
		Reason:         d.Reason,
		MatchedDomain:  d.MatchedDomain,
		CheckedAt:      &checkedAt,
		PartnerID:      &partnerID,
		AnimationShown: d.AnimationShown,
	}
}
