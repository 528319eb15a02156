package decision

import (
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/enums"
)

// Decision is the cached access verdict for one identity+partner pair. It is
// client-held (as a signed cookie) but only ever constructed and validated
// server-side; the client copy of Granted is never authoritative.
type Decision struct {
	Granted              bool               `json:"granted"`
	Reason               enums.AccessReason `json:"reason"`
	MatchedDomain        *string            `json:"matched_domain,omitempty"`
	MatchedPartnerDomain *string            `json:"matched_partner_domain,omitempty"`
	CheckedAt            time.Time          `json:"checked_at"`
	PartnerID            uuid.UUID          `json:"partner_id"`
	AnimationShown       bool               `json:"animation_shown"`
}
