package enums

import "fmt"

// AccessReason explains why an access decision granted or denied.
type AccessReason string

const (
	AccessReasonAdmin          AccessReason = "admin"
	AccessReasonVCTeam         AccessReason = "vc_team"
	AccessReasonPortfolioMatch AccessReason = "portfolio_match"
	AccessReasonManualGrant    AccessReason = "manual_grant"
	AccessReasonDenied         AccessReason = "denied"
)

var validAccessReasons = []AccessReason{
	AccessReasonAdmin,
	AccessReasonVCTeam,
	AccessReasonPortfolioMatch,
	AccessReasonManualGrant,
	AccessReasonDenied,
}

// String implements fmt.Stringer.
func (a AccessReason) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AccessReason.
func (a AccessReason) IsValid() bool {
	for _, candidate := range validAccessReasons {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAccessReason converts raw input into an AccessReason.
func ParseAccessReason(value string) (AccessReason, error) {
	for _, candidate := range validAccessReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid access reason %q", value)
}
