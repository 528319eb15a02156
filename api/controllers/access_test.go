package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/internal/access"
	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/pkg/decision"
	"github.com/perkgate/perkgate-backend/pkg/enums"
)

type stubAccessService struct {
	status   access.StatusDTO
	decision *decision.Decision
	marked   bool
	err      error
	cleared  int
}

func (s *stubAccessService) Status(ctx context.Context, r *http.Request, ident *identity.Identity) (access.StatusDTO, error) {
	return s.status, s.err
}

func (s *stubAccessService) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (*decision.Decision, error) {
	return s.decision, s.err
}

func (s *stubAccessService) MarkAnimationShown(ctx context.Context, w http.ResponseWriter, r *http.Request, ident *identity.Identity) (bool, error) {
	return s.marked, s.err
}

func (s *stubAccessService) Clear(w http.ResponseWriter) {
	s.cleared++
}

func identifiedRequest(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	ident := &identity.Identity{ID: "user-1", Email: "ana@startup.io", DisplayName: "Ana Flores"}
	return req.WithContext(middleware.WithIdentity(req.Context(), ident))
}

func TestAccessStatusReturnsSummary(t *testing.T) {
	matched := "startup.io"
	svc := &stubAccessService{status: access.StatusDTO{Granted: true, Reason: enums.AccessReasonPortfolioMatch, MatchedDomain: &matched}}
	resp := httptest.NewRecorder()

	AccessStatus(svc, nil).ServeHTTP(resp, identifiedRequest(http.MethodGet, "/api/v1/access/status"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data access.StatusDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Granted || envelope.Data.Reason != enums.AccessReasonPortfolioMatch {
		t.Fatalf("unexpected status payload %+v", envelope.Data)
	}
}

func TestAccessStatusRequiresIdentity(t *testing.T) {
	resp := httptest.NewRecorder()
	AccessStatus(&stubAccessService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/access/status", nil))

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAccessResolveReturnsDecisionSummary(t *testing.T) {
	svc := &stubAccessService{decision: &decision.Decision{
		Granted:   true,
		Reason:    enums.AccessReasonVCTeam,
		CheckedAt: time.Now().UTC(),
		PartnerID: uuid.New(),
	}}
	resp := httptest.NewRecorder()

	AccessResolve(svc, nil).ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/access/resolve"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data access.StatusDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.Granted || envelope.Data.Reason != enums.AccessReasonVCTeam {
		t.Fatalf("unexpected resolve payload %+v", envelope.Data)
	}
}

func TestAccessAnimationShown(t *testing.T) {
	svc := &stubAccessService{marked: true}
	resp := httptest.NewRecorder()

	AccessAnimationShown(svc, nil).ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/access/animation-shown"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data map[string]bool `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data["animationShown"] {
		t.Fatalf("expected animationShown true got %+v", envelope.Data)
	}
}

func TestAccessRefreshClearsCookie(t *testing.T) {
	svc := &stubAccessService{}
	resp := httptest.NewRecorder()

	AccessRefresh(svc, nil).ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/access/refresh"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cleared != 1 {
		t.Fatalf("expected one clear call got %d", svc.cleared)
	}
}

func TestAuthLogoutClearsCookie(t *testing.T) {
	svc := &stubAccessService{}
	resp := httptest.NewRecorder()

	AuthLogout(svc, nil).ServeHTTP(resp, identifiedRequest(http.MethodPost, "/api/v1/auth/logout"))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.cleared != 1 {
		t.Fatalf("expected one clear call got %d", svc.cleared)
	}
}
