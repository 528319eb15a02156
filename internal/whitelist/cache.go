package whitelist

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/metrics"
)

type partnerGetter interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Partner, error)
}

type domainSource interface {
	FetchDomains(ctx context.Context, partner *models.Partner) ([]string, error)
}

type uploadSource interface {
	DomainsForPartner(ctx context.Context, partnerID uuid.UUID) ([]string, error)
}

type cacheEntry struct {
	domains   map[string]struct{}
	fetchedAt time.Time
}

// Cache memoizes each partner's whitelist for a short TTL. A failed refresh
// yields an empty set for that call only; the failure is never memoized.
type Cache struct {
	mu      sync.Mutex
	entries map[uuid.UUID]cacheEntry

	ttl      time.Duration
	partners partnerGetter
	source   domainSource
	uploads  uploadSource
	metrics  *metrics.AccessMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewCache wires the memo cache over the catalog source and uploaded rows.
func NewCache(cfg config.WhitelistConfig, partners partnerGetter, source domainSource, uploads uploadSource, m *metrics.AccessMetrics, logg *logger.Logger) *Cache {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Cache{
		entries:  map[uuid.UUID]cacheEntry{},
		ttl:      ttl,
		partners: partners,
		source:   source,
		uploads:  uploads,
		metrics:  m,
		logg:     logg,
		now:      time.Now,
	}
}

// DomainsFor returns the whitelisted domain set for the partner, refreshing
// the memo when stale. Concurrent refreshes race benignly: last write wins.
func (c *Cache) DomainsFor(ctx context.Context, partnerID uuid.UUID) (map[string]struct{}, error) {
	now := c.now()

	c.mu.Lock()
	entry, ok := c.entries[partnerID]
	c.mu.Unlock()
	if ok && now.Sub(entry.fetchedAt) < c.ttl {
		c.metrics.IncCacheHit()
		return entry.domains, nil
	}
	c.metrics.IncCacheMiss()

	domains, err := c.refresh(ctx, partnerID)
	if err != nil {
		c.metrics.IncUpstreamFailure("whitelist")
		if c.logg != nil {
			c.logg.Error(c.logg.WithPartnerID(ctx, partnerID.String()), "whitelist refresh failed", err)
		}
		return map[string]struct{}{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "whitelist source unavailable")
	}

	c.mu.Lock()
	c.entries[partnerID] = cacheEntry{domains: domains, fetchedAt: now}
	c.mu.Unlock()
	return domains, nil
}

// Match reports whether the user domain satisfies any whitelist entry and
// returns the entry it matched.
func (c *Cache) Match(ctx context.Context, partnerID uuid.UUID, userDomain string) (string, bool, error) {
	domains, err := c.DomainsFor(ctx, partnerID)
	if err != nil {
		return "", false, err
	}
	user := NormalizeDomain(userDomain)
	if user == "" {
		return "", false, nil
	}
	if _, ok := domains[user]; ok {
		return user, true, nil
	}
	for entry := range domains {
		if Matches(user, entry) {
			return entry, true, nil
		}
	}
	return "", false, nil
}

// IsWhitelisted is the boolean form of Match.
func (c *Cache) IsWhitelisted(ctx context.Context, partnerID uuid.UUID, userDomain string) bool {
	_, ok, err := c.Match(ctx, partnerID, userDomain)
	return err == nil && ok
}

// Invalidate drops the memo entry so the next lookup refreshes.
func (c *Cache) Invalidate(partnerID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, partnerID)
	c.mu.Unlock()
}

func (c *Cache) refresh(ctx context.Context, partnerID uuid.UUID) (map[string]struct{}, error) {
	partner, err := c.partners.FindByID(ctx, partnerID)
	if err != nil {
		return nil, err
	}

	set := map[string]struct{}{}
	if c.source != nil {
		listed, err := c.source.FetchDomains(ctx, partner)
		if err != nil {
			return nil, err
		}
		for _, domain := range listed {
			set[domain] = struct{}{}
		}
	}
	if c.uploads != nil {
		uploaded, err := c.uploads.DomainsForPartner(ctx, partnerID)
		if err != nil {
			return nil, err
		}
		for _, domain := range uploaded {
			set[NormalizeDomain(domain)] = struct{}{}
		}
	}
	return set, nil
}
