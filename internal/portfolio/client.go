package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/perkgate/perkgate-backend/pkg/config"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// Company is one portfolio company returned by the network portfolio API.
type Company struct {
	Name    string `json:"name"`
	Domain  string `json:"domain"`
	Network string `json:"network"`
}

// Client queries the external network-portfolio API by company domain.
type Client struct {
	baseURL string
	token   string
	limit   int
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds a portfolio client. A client without a base URL is
// disabled and every lookup returns empty.
func NewClient(cfg config.PortfolioConfig, logg *logger.Logger) *Client {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 100
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:   cfg.Token,
		limit:   limit,
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}
}

// Enabled reports whether a portfolio API is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

type lookupResponse struct {
	Results []Company `json:"results"`
}

// LookupByDomain returns the portfolio companies registered under the given
// domain. Lookups on a disabled client return empty without error.
func (c *Client) LookupByDomain(ctx context.Context, domain string) ([]Company, error) {
	if !c.Enabled() {
		return nil, nil
	}
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, nil
	}

	query := url.Values{}
	query.Set("domain", domain)
	query.Set("limit", strconv.Itoa(c.limit))
	query.Set("offset", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/network_portfolios?"+query.Encode(), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build portfolio request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.warn(ctx, "portfolio api unreachable", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "portfolio api unavailable")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		c.warn(ctx, fmt.Sprintf("portfolio api returned %d", resp.StatusCode), nil)
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "portfolio api unavailable")
	}

	var payload lookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.warn(ctx, "portfolio payload malformed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "portfolio api unavailable")
	}
	return payload.Results, nil
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
