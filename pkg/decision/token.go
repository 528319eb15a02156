package decision

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/enums"
)

var jwtSigningMethod = jwt.SigningMethodHS256

// TokenClaims is the decision serialized into a signed cookie. The subject is
// the identity the decision was computed for.
type TokenClaims struct {
	Granted              bool               `json:"granted"`
	Reason               enums.AccessReason `json:"reason"`
	MatchedDomain        *string            `json:"matched_domain,omitempty"`
	MatchedPartnerDomain *string            `json:"matched_partner_domain,omitempty"`
	CheckedAt            int64              `json:"checked_at"`
	PartnerID            uuid.UUID          `json:"partner_id"`
	AnimationShown       bool               `json:"animation_shown"`
	jwt.RegisteredClaims
}

// Mint signs the decision for the given subject using the configured TTL.
func Mint(cfg config.DecisionConfig, now time.Time, subject string, d Decision) (string, error) {
	if cfg.Secret == "" {
		return "", fmt.Errorf("decision secret is required")
	}
	if cfg.Issuer == "" {
		return "", fmt.Errorf("decision issuer is required")
	}
	if cfg.TTL <= 0 {
		return "", fmt.Errorf("decision ttl must be positive")
	}
	if !d.Reason.IsValid() {
		return "", fmt.Errorf("invalid access reason %q", d.Reason)
	}

	claims := TokenClaims{
		Granted:              d.Granted,
		Reason:               d.Reason,
		MatchedDomain:        d.MatchedDomain,
		MatchedPartnerDomain: d.MatchedPartnerDomain,
		CheckedAt:            d.CheckedAt.Unix(),
		PartnerID:            d.PartnerID,
		AnimationShown:       d.AnimationShown,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(cfg.TTL)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	signed, err := token.SignedString([]byte(cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("signing decision token: %w", err)
	}
	return signed, nil
}

// Parse validates the token signature and expiry and returns the decision
// along with the subject it was minted for.
func Parse(cfg config.DecisionConfig, tokenString string) (Decision, string, error) {
	if cfg.Secret == "" {
		return Decision{}, "", fmt.Errorf("decision secret is required")
	}

	claims := &TokenClaims{}
	_, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(token *jwt.Token) (interface{}, error) {
			if token.Method != jwtSigningMethod {
				return nil, fmt.Errorf("unexpected signing method %s", token.Header["alg"])
			}
			return []byte(cfg.Secret), nil
		},
		jwt.WithValidMethods([]string{jwtSigningMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
	)
	if err != nil {
		return Decision{}, "", err
	}

	d := Decision{
		Granted:              claims.Granted,
		Reason:               claims.Reason,
		MatchedDomain:        claims.MatchedDomain,
		MatchedPartnerDomain: claims.MatchedPartnerDomain,
		CheckedAt:            time.Unix(claims.CheckedAt, 0).UTC(),
		PartnerID:            claims.PartnerID,
		AnimationShown:       claims.AnimationShown,
	}
	return d, claims.Subject, nil
}
