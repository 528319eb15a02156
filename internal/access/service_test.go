package access

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/internal/portfolio"
	"github.com/perkgate/perkgate-backend/pkg/db/models"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/enums"
)

type stubPartners struct {
	partner *models.Partner
	err     error
}

func (s *stubPartners) GetDefault(_ context.Context) (*models.Partner, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.partner, nil
}

type stubWhitelist struct {
	entries map[string]string
	err     error
	calls   int
}

func (s *stubWhitelist) Match(_ context.Context, _ uuid.UUID, userDomain string) (string, bool, error) {
	s.calls++
	if s.err != nil {
		return "", false, s.err
	}
	entry, ok := s.entries[userDomain]
	return entry, ok, nil
}

type stubPortfolio struct {
	enabled   bool
	companies []portfolio.Company
	err       error
}

func (s *stubPortfolio) Enabled() bool { return s.enabled }

func (s *stubPortfolio) LookupByDomain(_ context.Context, _ string) ([]portfolio.Company, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.companies, nil
}

type stubApprovals struct {
	approved bool
	err      error
	calls    int
}

func (s *stubApprovals) HasApprovedForEmail(_ context.Context, _ string) (bool, error) {
	s.calls++
	if s.err != nil {
		return false, s.err
	}
	return s.approved, nil
}

type fixture struct {
	svc       Service
	partner   *models.Partner
	whitelist *stubWhitelist
	pf        *stubPortfolio
	approvals *stubApprovals
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	partner := &models.Partner{
		ID:          uuid.New(),
		Slug:        "acme-ventures",
		OwnerDomain: "acme.io",
		IsActive:    true,
		IsDefault:   true,
	}
	wl := &stubWhitelist{entries: map[string]string{}}
	pf := &stubPortfolio{}
	approvals := &stubApprovals{}

	svc, err := NewService(ServiceParams{
		Partners:  &stubPartners{partner: partner},
		Whitelist: wl,
		Portfolio: pf,
		Approvals: approvals,
		Codec:     NewCodec(testDecisionConfig()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, partner: partner, whitelist: wl, pf: pf, approvals: approvals}
}

func memberIdentity(domains ...string) *identity.Identity {
	return &identity.Identity{
		ID:               "user-1",
		Email:            "ana@startup.io",
		ConnectedDomains: domains,
	}
}

func resolve(t *testing.T, f *fixture, ident *identity.Identity) (*httptest.ResponseRecorder, *StatusDTO) {
	t.Helper()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/resolve", nil)
	d, err := f.svc.Resolve(context.Background(), rec, req, ident)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	status := StatusFromDecision(d)
	return rec, &status
}

func TestResolveAdminShortCircuits(t *testing.T) {
	f := newFixture(t)
	ident := memberIdentity("startup.io")
	ident.IsAdmin = true

	_, status := resolve(t, f, ident)
	if !status.Granted || status.Reason != enums.AccessReasonAdmin {
		t.Fatalf("status = %+v", status)
	}
	if f.whitelist.calls != 0 || f.approvals.calls != 0 {
		t.Fatalf("later rules must not run after an admin grant")
	}
}

func TestResolveVCTeamBeatsWhitelist(t *testing.T) {
	f := newFixture(t)
	f.whitelist.entries["acme.io"] = "acme.io"

	_, status := resolve(t, f, memberIdentity("acme.io"))
	if !status.Granted || status.Reason != enums.AccessReasonVCTeam {
		t.Fatalf("status = %+v", status)
	}
	if status.MatchedDomain == nil || *status.MatchedDomain != "acme.io" {
		t.Fatalf("matched domain = %v", status.MatchedDomain)
	}
}

func TestResolveWhitelistFirstDomainWins(t *testing.T) {
	f := newFixture(t)
	f.whitelist.entries["startup.io"] = "startup.io"
	f.whitelist.entries["widgets.co"] = "widgets.co"

	_, status := resolve(t, f, memberIdentity("startup.io", "widgets.co"))
	if !status.Granted || status.Reason != enums.AccessReasonPortfolioMatch {
		t.Fatalf("status = %+v", status)
	}
	if *status.MatchedDomain != "startup.io" {
		t.Fatalf("expected first domain to win, matched %q", *status.MatchedDomain)
	}
}

func TestResolveAffiliationMatch(t *testing.T) {
	f := newFixture(t)
	f.pf.enabled = true
	f.pf.companies = []portfolio.Company{{Name: "Fund One", Domain: "fundone.vc", Network: "fund-one"}}

	ident := memberIdentity("nowhere.io")
	ident.NetworkAffiliations = []string{"fund-one"}

	_, status := resolve(t, f, ident)
	if !status.Granted || status.Reason != enums.AccessReasonPortfolioMatch {
		t.Fatalf("status = %+v", status)
	}
}

func TestResolveManualGrant(t *testing.T) {
	f := newFixture(t)
	f.approvals.approved = true

	_, status := resolve(t, f, memberIdentity("nowhere.io"))
	if !status.Granted || status.Reason != enums.AccessReasonManualGrant {
		t.Fatalf("status = %+v", status)
	}
}

func TestResolveDeniesByDefault(t *testing.T) {
	f := newFixture(t)

	_, status := resolve(t, f, memberIdentity("nowhere.io"))
	if status.Granted || status.Reason != enums.AccessReasonDenied {
		t.Fatalf("status = %+v", status)
	}
	if status.MatchedDomain != nil {
		t.Fatalf("a denial must not record a matched domain")
	}
}

func TestResolveWhitelistFailureFallsThroughToManualGrant(t *testing.T) {
	f := newFixture(t)
	f.whitelist.err = pkgerrors.New(pkgerrors.CodeDependency, "whitelist source unavailable")
	f.approvals.approved = true

	_, status := resolve(t, f, memberIdentity("startup.io"))
	if !status.Granted || status.Reason != enums.AccessReasonManualGrant {
		t.Fatalf("expected fallthrough to manual grant, got %+v", status)
	}
}

func TestResolveAllUpstreamsDownFailsClosed(t *testing.T) {
	f := newFixture(t)
	f.whitelist.err = pkgerrors.New(pkgerrors.CodeDependency, "whitelist down")
	f.approvals.err = pkgerrors.New(pkgerrors.CodeInternal, "db down")

	_, status := resolve(t, f, memberIdentity("startup.io"))
	if status.Granted {
		t.Fatalf("all rules failing must deny, got %+v", status)
	}
}

func TestStatusReadsCookieWithoutRecompute(t *testing.T) {
	f := newFixture(t)
	f.whitelist.entries["startup.io"] = "startup.io"
	ident := memberIdentity("startup.io")

	rec, _ := resolve(t, f, ident)
	callsAfterResolve := f.whitelist.calls

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access/status", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	status, err := f.svc.Status(context.Background(), req, ident)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status.Granted || status.Reason != enums.AccessReasonPortfolioMatch {
		t.Fatalf("status = %+v", status)
	}
	if f.whitelist.calls != callsAfterResolve {
		t.Fatalf("status must not re-run the rule chain")
	}
}

func TestStatusWithoutCookie(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access/status", nil)
	status, err := f.svc.Status(context.Background(), req, memberIdentity("startup.io"))
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Granted {
		t.Fatalf("no cookie must read as not granted")
	}
}

func TestStatusNoDefaultPartner(t *testing.T) {
	wl := &stubWhitelist{}
	svc, err := NewService(ServiceParams{
		Partners:  &stubPartners{err: pkgerrors.New(pkgerrors.CodeNotFound, "no default partner configured")},
		Whitelist: wl,
		Approvals: &stubApprovals{},
		Codec:     NewCodec(testDecisionConfig()),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/access/status", nil)
	status, err := svc.Status(context.Background(), req, memberIdentity())
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Granted {
		t.Fatalf("no default partner must read as not granted")
	}
}

func TestMarkAnimationShownFlipsOnce(t *testing.T) {
	f := newFixture(t)
	f.whitelist.entries["startup.io"] = "startup.io"
	ident := memberIdentity("startup.io")

	rec, status := resolve(t, f, ident)
	if status.AnimationShown {
		t.Fatalf("fresh decision must start with animationShown false")
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/animation-shown", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}

	rec2 := httptest.NewRecorder()
	ok, err := f.svc.MarkAnimationShown(context.Background(), rec2, req, ident)
	if err != nil || !ok {
		t.Fatalf("mark animation shown = (%v, %v)", ok, err)
	}

	// The re-stored cookie carries the flag; a second flip stays true.
	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/access/animation-shown", nil)
	for _, cookie := range rec2.Result().Cookies() {
		req2.AddCookie(cookie)
	}
	status2, err := f.svc.Status(context.Background(), req2, ident)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !status2.AnimationShown {
		t.Fatalf("expected animationShown carried in the cookie")
	}

	rec3 := httptest.NewRecorder()
	ok, err = f.svc.MarkAnimationShown(context.Background(), rec3, req2, ident)
	if err != nil || !ok {
		t.Fatalf("second mark = (%v, %v)", ok, err)
	}
}

func TestMarkAnimationShownWithoutDecision(t *testing.T) {
	f := newFixture(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/animation-shown", nil)
	ok, err := f.svc.MarkAnimationShown(context.Background(), rec, req, memberIdentity())
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if ok {
		t.Fatalf("no cached decision must report false")
	}
}

func TestResolveCarriesAnimationShownAcrossRecompute(t *testing.T) {
	f := newFixture(t)
	f.whitelist.entries["startup.io"] = "startup.io"
	ident := memberIdentity("startup.io")

	rec, _ := resolve(t, f, ident)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/access/animation-shown", nil)
	for _, cookie := range rec.Result().Cookies() {
		req.AddCookie(cookie)
	}
	rec2 := httptest.NewRecorder()
	if ok, err := f.svc.MarkAnimationShown(context.Background(), rec2, req, ident); err != nil || !ok {
		t.Fatalf("mark animation shown = (%v, %v)", ok, err)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/api/v1/access/resolve", nil)
	for _, cookie := range rec2.Result().Cookies() {
		req2.AddCookie(cookie)
	}
	rec3 := httptest.NewRecorder()
	d, err := f.svc.Resolve(context.Background(), rec3, req2, ident)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !d.AnimationShown {
		t.Fatalf("recompute must carry animationShown from the prior decision")
	}
}
