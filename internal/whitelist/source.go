package whitelist

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
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// maxCatalogPages bounds the pagination walk so a catalog that always
// advertises another page cannot pin the request.
const maxCatalogPages = 1000

// CatalogSource pulls the whitelist domains a partner publishes at its
// catalog endpoint.
type CatalogSource struct {
	http     *http.Client
	pageSize int
	logg     *logger.Logger
}

// NewCatalogSource builds a catalog source client with the configured
// timeout and page size.
func NewCatalogSource(cfg config.WhitelistConfig, logg *logger.Logger) *CatalogSource {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	return &CatalogSource{
		http:     &http.Client{Timeout: cfg.Timeout},
		pageSize: pageSize,
		logg:     logg,
	}
}

type sourcePage struct {
	Results []sourceRow `json:"results"`
	Count   int         `json:"count"`
	Next    *string     `json:"next"`
	Prev    *string     `json:"previous"`
}

type sourceRow struct {
	Domain  string `json:"domain"`
	Company string `json:"company"`
}

// FetchDomains walks every page of the partner's whitelist endpoint and
// returns the full set of listed domains. Partners without a catalog
// endpoint contribute nothing.
func (s *CatalogSource) FetchDomains(ctx context.Context, partner *models.Partner) ([]string, error) {
	if partner == nil || partner.CatalogEndpoint == nil {
		return nil, nil
	}
	base := strings.TrimRight(strings.TrimSpace(*partner.CatalogEndpoint), "/")
	if base == "" {
		return nil, nil
	}

	var domains []string
	for page := 1; page <= maxCatalogPages; page++ {
		rows, next, err := s.fetchPage(ctx, partner, base, page)
		if err != nil {
			return nil, err
		}
		for _, row := range rows {
			if d := NormalizeDomain(row.Domain); d != "" {
				domains = append(domains, d)
			}
		}
		if next == nil {
			return domains, nil
		}
	}
	// A well-formed catalog terminates with a null next link. Stop rather
	// than follow a cursor that never ends.
	return nil, fmt.Errorf("catalog source exceeded %d pages without a final page", maxCatalogPages)
}

func (s *CatalogSource) fetchPage(ctx context.Context, partner *models.Partner, base string, page int) ([]sourceRow, *string, error) {
	endpoint := base + "/whitelist/domains"
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("page_size", strconv.Itoa(s.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build catalog request: %w", err)
	}
	if partner.CatalogCredential != nil && *partner.CatalogCredential != "" {
		req.Header.Set("Authorization", "Bearer "+*partner.CatalogCredential)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("catalog source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return nil, nil, fmt.Errorf("catalog source returned %d", resp.StatusCode)
	}

	var payload sourcePage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, nil, fmt.Errorf("decode catalog page: %w", err)
	}
	return payload.Results, payload.Next, nil
}
