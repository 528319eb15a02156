package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/perkgate/perkgate-backend/pkg/config"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

const unauthenticatedMessage = "authentication required"

// Client talks to the external identity authority.
type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds an identity authority client with the configured timeout.
func NewClient(cfg config.IdentityConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("identity base url is required")
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}, nil
}

// Me exchanges the credential for the caller's profile. Every upstream
// failure mode collapses to Unauthenticated so nothing about the authority
// leaks to clients.
func (c *Client) Me(ctx context.Context, credential string) (*Identity, error) {
	if strings.TrimSpace(credential) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthenticatedMessage)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build identity request")
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.warn(ctx, "identity authority unreachable", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, unauthenticatedMessage)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		c.warn(ctx, fmt.Sprintf("identity authority returned %d", resp.StatusCode), nil)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthenticatedMessage)
	}

	var payload meResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.warn(ctx, "identity payload malformed", err)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthenticatedMessage)
	}
	if strings.TrimSpace(payload.ID) == "" || strings.TrimSpace(payload.Email) == "" {
		c.warn(ctx, "identity payload missing id or email", nil)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, unauthenticatedMessage)
	}

	accounts := make([]ConnectedAccount, 0, len(payload.ConnectedAccounts))
	for _, acct := range payload.ConnectedAccounts {
		email := strings.ToLower(strings.TrimSpace(acct.Email))
		if email == "" {
			continue
		}
		accounts = append(accounts, ConnectedAccount{
			Email:    email,
			Provider: strings.TrimSpace(acct.Provider),
		})
	}

	return &Identity{
		ID:                  strings.TrimSpace(payload.ID),
		Email:               strings.ToLower(strings.TrimSpace(payload.Email)),
		DisplayName:         payload.displayName(),
		ConnectedAccounts:   accounts,
		NetworkAffiliations: payload.NetworkAffiliations,
	}, nil
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	if err != nil {
		ctx = c.logg.WithField(ctx, "cause", err.Error())
	}
	c.logg.Warn(ctx, msg)
}
