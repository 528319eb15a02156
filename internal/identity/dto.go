package identity

import "strings"

// Identity is the resolved caller, enriched with the derived fields the
// access resolver consumes.
type Identity struct {
	ID                  string
	Email               string
	DisplayName         string
	IsAdmin             bool
	ConnectedAccounts   []ConnectedAccount
	NetworkAffiliations []string
	ConnectedDomains    []string
}

// ConnectedAccount is one external account linked to the caller at the
// identity authority.
type ConnectedAccount struct {
	Email    string
	Provider string
}

// EmailDomain returns the lowercased domain of the identity's primary email,
// or "" when the email has no domain part.
func (i *Identity) EmailDomain() string {
	return emailDomain(i.Email)
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(email[at+1:]))
}

type meResponse struct {
	ID                  string              `json:"id"`
	Email               string              `json:"email"`
	FirstName           string              `json:"first_name"`
	LastName            string              `json:"last_name"`
	ConnectedAccounts   []connectedAccount  `json:"connected_accounts"`
	NetworkAffiliations []string            `json:"network_affiliations"`
}

type connectedAccount struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
}

func (m meResponse) displayName() string {
	first := strings.TrimSpace(m.FirstName)
	last := strings.TrimSpace(m.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return strings.TrimSpace(m.Email)
	}
}
