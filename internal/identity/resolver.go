package identity

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/perkgate/perkgate-backend/pkg/config"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
)

// personalProviders are consumer email domains that never count as a
// connected organization domain.
var personalProviders = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"yahoo.com":      {},
	"outlook.com":    {},
	"hotmail.com":    {},
	"live.com":       {},
	"msn.com":        {},
	"icloud.com":     {},
	"me.com":         {},
	"aol.com":        {},
	"proton.me":      {},
	"protonmail.com": {},
	"gmx.com":        {},
	"zoho.com":       {},
	"yandex.com":     {},
	"mail.com":       {},
}

// Authority is the upstream profile lookup the resolver depends on.
type Authority interface {
	Me(ctx context.Context, credential string) (*Identity, error)
}

// Resolver turns an incoming HTTP request into a fully derived Identity.
type Resolver struct {
	authority     Authority
	primaryDomain string
	sessionCookie string
	access        config.AccessConfig
}

// NewResolver wires the resolver against the identity authority.
func NewResolver(authority Authority, app config.AppConfig, identity config.IdentityConfig, access config.AccessConfig) *Resolver {
	return &Resolver{
		authority:     authority,
		primaryDomain: strings.ToLower(strings.TrimSpace(app.PrimaryDomain)),
		sessionCookie: identity.SessionCookie,
		access:        access,
	}
}

// Resolve extracts the caller's credential, verifies it upstream and derives
// the connected domains and admin flag.
func (r *Resolver) Resolve(req *http.Request) (*Identity, error) {
	credential := r.credentialFrom(req)
	if credential == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthenticatedMessage)
	}

	ident, err := r.authority.Me(req.Context(), credential)
	if err != nil {
		return nil, err
	}

	ident.ConnectedDomains = deriveConnectedDomains(ident)
	ident.IsAdmin = r.isAdmin(ident.Email)
	return ident, nil
}

// credentialFrom picks the session cookie for primary-origin requests and
// falls back to the bearer header; cross-origin requests carry a bearer only.
func (r *Resolver) credentialFrom(req *http.Request) string {
	if r.isPrimaryOrigin(req) {
		if cookie, err := req.Cookie(r.sessionCookie); err == nil && cookie.Value != "" {
			return cookie.Value
		}
	}
	return bearerToken(req)
}

func (r *Resolver) isPrimaryOrigin(req *http.Request) bool {
	if r.primaryDomain == "" {
		return false
	}
	host := originHost(req)
	if host == "" {
		// No Origin/Referer means a same-origin navigation or a non-browser
		// client; the cookie path stays available either way.
		return true
	}
	return host == r.primaryDomain || strings.HasSuffix(host, "."+r.primaryDomain)
}

func (r *Resolver) isAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}

	configured := false
	for _, allowed := range r.access.AdminEmails {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		configured = true
		if allowed == email {
			return true
		}
	}
	domain := emailDomain(email)
	for _, allowed := range r.access.AdminDomains {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		if allowed == "" {
			continue
		}
		configured = true
		if allowed == domain {
			return true
		}
	}

	if !configured {
		// Empty allow-list means nobody unless explicitly flagged otherwise.
		return r.access.ImplicitAdminWhenUnconfigured
	}
	return false
}

func deriveConnectedDomains(ident *Identity) []string {
	seen := map[string]struct{}{}
	out := []string{}

	add := func(email string) {
		domain := emailDomain(email)
		if domain == "" {
			return
		}
		if _, personal := personalProviders[domain]; personal {
			return
		}
		if _, dup := seen[domain]; dup {
			return
		}
		seen[domain] = struct{}{}
		out = append(out, domain)
	}

	// Only connected accounts contribute domains. The primary login email is
	// matched separately by the rules that care about it.
	for _, acct := range ident.ConnectedAccounts {
		add(acct.Email)
	}
	return out
}

func originHost(req *http.Request) string {
	for _, header := range []string{"Origin", "Referer"} {
		raw := strings.TrimSpace(req.Header.Get(header))
		if raw == "" {
			continue
		}
		if u, err := url.Parse(raw); err == nil && u.Hostname() != "" {
			return strings.ToLower(u.Hostname())
		}
	}
	return ""
}

func bearerToken(req *http.Request) string {
	raw := strings.TrimSpace(req.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
