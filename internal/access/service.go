package access

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/internal/portfolio"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	"github.com/perkgate/perkgate-backend/pkg/decision"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/metrics"
)

// Service is the access-resolution engine: a prioritized rule chain over the
// caller's identity and the active partner, with the decision cached in a
// signed cookie.
type Service interface {
	Status(ctx context.Context, r *http.Request, ident *identity.Identity) (StatusDTO, error)
	Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (*decision.Decision, error)
	MarkAnimationShown(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (bool, error)
	Clear(w http.ResponseWriter)
}

type defaultPartnerGetter interface {
	GetDefault(ctx context.Context) (*models.Partner, error)
}

type whitelistMatcher interface {
	Match(ctx context.Context, partnerID uuid.UUID, userDomain string) (string, bool, error)
}

type portfolioLookup interface {
	Enabled() bool
	LookupByDomain(ctx context.Context, domain string) ([]portfolio.Company, error)
}

type approvalChecker interface {
	HasApprovedForEmail(ctx context.Context, email string) (bool, error)
}

type service struct {
	partners  defaultPartnerGetter
	whitelist whitelistMatcher
	portfolio portfolioLookup
	approvals approvalChecker
	codec     *Codec
	metrics   *metrics.AccessMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// ServiceParams bundles the dependencies required to build an access service.
type ServiceParams struct {
	Partners  defaultPartnerGetter
	Whitelist whitelistMatcher
	Portfolio portfolioLookup
	Approvals approvalChecker
	Codec     *Codec
	Metrics   *metrics.AccessMetrics
	Logger    *logger.Logger
}

// NewService constructs the access resolver.
func NewService(params ServiceParams) (Service, error) {
	if params.Partners == nil {
		return nil, fmt.Errorf("partner getter is required")
	}
	if params.Whitelist == nil {
		return nil, fmt.Errorf("whitelist matcher is required")
	}
	if params.Approvals == nil {
		return nil, fmt.Errorf("approval checker is required")
	}
	if params.Codec == nil {
		return nil, fmt.Errorf("decision codec is required")
	}
	return &service{
		partners:  params.Partners,
		whitelist: params.Whitelist,
		portfolio: params.Portfolio,
		approvals: params.Approvals,
		codec:     params.Codec,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// Status reports the cached decision without recomputing. No cookie, an
// invalid cookie or a stale partner all read as not granted.
func (s *service) Status(ctx context.Context, r *http.Request, ident *identity.Identity) (StatusDTO, error) {
	partner, err := s.partners.GetDefault(ctx)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return StatusDTO{Granted: false}, nil
		}
		return StatusDTO{}, err
	}

	d, ok := s.codec.Load(r, ident.Email, partner.ID)
	if !ok {
		return StatusDTO{Granted: false}, nil
	}
	return StatusFromDecision(d), nil
}

// Resolve recomputes the decision through the rule chain and stores it in
// the cookie. The animationShown flag survives recomputation when a valid
// cached decision existed.
func (s *service) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (*decision.Decision, error) {
	partner, err := s.partners.GetDefault(ctx)
	if err != nil {
		return nil, err
	}

	animationShown := false
	if cached, ok := s.codec.Load(r, ident.Email, partner.ID); ok {
		animationShown = cached.AnimationShown
	}

	d := s.evaluate(ctx, ident, partner)
	d.AnimationShown = animationShown

	if err := s.codec.Store(w, ident.Email, *d); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store decision")
	}

	s.metrics.IncDecision(string(d.Reason))
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"granted":    d.Granted,
			"reason":     d.Reason,
			"partner_id": partner.ID.String(),
		})
		s.logg.Info(logCtx, "access resolved")
	}
	return d, nil
}

// MarkAnimationShown flips the cached decision's animation flag one way.
// Without a valid cached decision it reports false and changes nothing.
func (s *service) MarkAnimationShown(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (bool, error) {
	partner, err := s.partners.GetDefault(ctx)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			return false, nil
		}
		return false, err
	}

	d, ok := s.codec.Load(r, ident.Email, partner.ID)
	if !ok {
		return false, nil
	}
	if d.AnimationShown {
		return true, nil
	}
	d.AnimationShown = true
	if err := s.codec.Store(w, ident.Email, *d); err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store decision")
	}
	return true, nil
}

// Clear drops the decision cookie.
func (s *service) Clear(w http.ResponseWriter) {
	s.codec.Clear(w)
}

type rule struct {
	name string
	eval func(ctx context.Context, ident *identity.Identity, partner *models.Partner) (*decision.Decision, error)
}

// evaluate walks the rule chain in strict priority order. A rule that fails
// on an upstream dependency is skipped so later independent rules still get
// their chance; only a full walk with no grant denies.
func (s *service) evaluate(ctx context.Context, ident *identity.Identity, partner *models.Partner) *decision.Decision {
	chain := []rule{
		{name: "admin", eval: s.adminRule},
		{name: "vc_team", eval: s.vcTeamRule},
		{name: "whitelist", eval: s.whitelistRule},
		{name: "network_affiliation", eval: s.affiliationRule},
		{name: "manual_grant", eval: s.manualGrantRule},
	}

	for _, rl := range chain {
		d, err := rl.eval(ctx, ident, partner)
		if err != nil {
			s.metrics.IncUpstreamFailure(rl.name)
			if s.logg != nil {
				s.logg.Error(s.logg.WithField(ctx, "rule", rl.name), "access rule skipped on upstream failure", err)
			}
			continue
		}
		if d != nil {
			d.CheckedAt = s.now().UTC()
			d.PartnerID = partner.ID
			return d
		}
	}

	return &decision.Decision{
		Granted:   false,
		Reason:    enums.AccessReasonDenied,
		CheckedAt: s.now().UTC(),
		PartnerID: partner.ID,
	}
}

func (s *service) adminRule(_ context.Context, ident *identity.Identity, _ *models.Partner) (*decision.Decision, error) {
	if !ident.IsAdmin {
		return nil, nil
	}
	return &decision.Decision{Granted: true, Reason: enums.AccessReasonAdmin}, nil
}

func (s *service) vcTeamRule(_ context.Context, ident *identity.Identity, partner *models.Partner) (*decision.Decision, error) {
	for _, domain := range ident.ConnectedDomains {
		if domain == partner.OwnerDomain {
			matched := domain
			return &decision.Decision{
				Granted:       true,
				Reason:        enums.AccessReasonVCTeam,
				MatchedDomain: &matched,
			}, nil
		}
	}
	return nil, nil
}

// whitelistRule tries connected domains in their given order; the first
// whitelist hit wins.
func (s *service) whitelistRule(ctx context.Context, ident *identity.Identity, partner *models.Partner) (*decision.Decision, error) {
	for _, domain := range ident.ConnectedDomains {
		entry, ok, err := s.whitelist.Match(ctx, partner.ID, domain)
		if err != nil {
			return nil, err
		}
		if ok {
			matched := domain
			matchedEntry := entry
			return &decision.Decision{
				Granted:              true,
				Reason:               enums.AccessReasonPortfolioMatch,
				MatchedDomain:        &matched,
				MatchedPartnerDomain: &matchedEntry,
			}, nil
		}
	}
	return nil, nil
}

// affiliationRule grants when a verified network affiliation, or a connected
// domain, lines up with a company in the partner's portfolio.
func (s *service) affiliationRule(ctx context.Context, ident *identity.Identity, partner *models.Partner) (*decision.Decision, error) {
	if s.portfolio == nil || !s.portfolio.Enabled() {
		return nil, nil
	}
	if len(ident.NetworkAffiliations) == 0 && len(ident.ConnectedDomains) == 0 {
		return nil, nil
	}

	companies, err := s.portfolio.LookupByDomain(ctx, partner.OwnerDomain)
	if err != nil {
		return nil, err
	}

	for _, company := range companies {
		for _, affiliation := range ident.NetworkAffiliations {
			if strings.EqualFold(affiliation, company.Name) || strings.EqualFold(affiliation, company.Network) {
				return &decision.Decision{Granted: true, Reason: enums.AccessReasonPortfolioMatch}, nil
			}
		}
		for _, domain := range ident.ConnectedDomains {
			if company.Domain != "" && strings.EqualFold(domain, company.Domain) {
				matched := domain
				companyDomain := strings.ToLower(company.Domain)
				return &decision.Decision{
					Granted:              true,
					Reason:               enums.AccessReasonPortfolioMatch,
					MatchedDomain:        &matched,
					MatchedPartnerDomain: &companyDomain,
				}, nil
			}
		}
	}
	return nil, nil
}

func (s *service) manualGrantRule(ctx context.Context, ident *identity.Identity, _ *models.Partner) (*decision.Decision, error) {
	approved, err := s.approvals.HasApprovedForEmail(ctx, ident.Email)
	if err != nil {
		return nil, err
	}
	if !approved {
		return nil, nil
	}
	return &decision.Decision{Granted: true, Reason: enums.AccessReasonManualGrant}, nil
}
