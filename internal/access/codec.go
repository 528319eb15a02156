package access

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/decision"
)

// Codec moves decisions in and out of the signed httpOnly cookie. The cookie
// is a cache token, never a source of truth: Load re-validates the signature,
// the subject and the partner the decision was computed against.
type Codec struct {
	cfg config.DecisionConfig
	now func() time.Time
}

// NewCodec builds a decision cookie codec.
func NewCodec(cfg config.DecisionConfig) *Codec {
	return &Codec{cfg: cfg, now: time.Now}
}

// Load returns the cached decision when the cookie verifies, was minted for
// this subject, and still refers to the active partner. Every failure mode
// is a plain cache miss.
func (c *Codec) Load(r *http.Request, subject string, activePartnerID uuid.UUID) (*decision.Decision, bool) {
	cookie, err := r.Cookie(c.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, false
	}

	d, tokenSubject, err := decision.Parse(c.cfg, cookie.Value)
	if err != nil {
		return nil, false
	}
	if tokenSubject != subject {
		return nil, false
	}
	// Partner reconfiguration must never leak a stale grant.
	if d.PartnerID != activePartnerID {
		return nil, false
	}
	return &d, true
}

// Store mints and sets the decision cookie for the subject.
func (c *Codec) Store(w http.ResponseWriter, subject string, d decision.Decision) error {
	token, err := decision.Mint(c.cfg, c.now(), subject, d)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(c.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the decision cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.cfg.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
