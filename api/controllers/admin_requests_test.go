package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/internal/requests"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
)

func adminRequestWithParam(method, target, key, value string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}

	ident := &identity.Identity{ID: "admin-1", Email: "ops@perkgate.example", DisplayName: "Ops Admin", IsAdmin: true}
	ctx := middleware.WithIdentity(req.Context(), ident)

	routeCtx := chi.NewRouteContext()
	if key != "" {
		routeCtx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(ctx, chi.RouteCtxKey, routeCtx))
}

func TestAdminListAccessRequestsFiltersByStatus(t *testing.T) {
	svc := &stubRequestsService{page: &requests.ListPage{Requests: []requests.RequestDTO{}}}
	resp := httptest.NewRecorder()

	req := adminRequestWithParam(http.MethodGet, "/api/admin/v1/access-requests?status=pending&limit=10", "", "", nil)
	AdminListAccessRequests(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestAdminListAccessRequestsRejectsUnknownStatus(t *testing.T) {
	svc := &stubRequestsService{}
	resp := httptest.NewRecorder()

	req := adminRequestWithParam(http.MethodGet, "/api/admin/v1/access-requests?status=bogus", "", "", nil)
	AdminListAccessRequests(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAdminTransitionAccessRequestApproves(t *testing.T) {
	approved := pendingRequest()
	approved.Status = enums.RequestStatusApproved
	svc := &stubRequestsService{transitioned: approved}

	req := adminRequestWithParam(http.MethodPatch, "/api/admin/v1/access-requests/"+approved.ID.String(), "requestId", approved.ID.String(), []byte(`{"status":"approved"}`))
	resp := httptest.NewRecorder()

	AdminTransitionAccessRequest(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if svc.gotStatus != enums.RequestStatusApproved {
		t.Fatalf("expected approved transition got %s", svc.gotStatus)
	}
	if svc.gotActor.Email != "ops@perkgate.example" {
		t.Fatalf("unexpected actor %+v", svc.gotActor)
	}

	var envelope struct {
		Data requests.RequestDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.RequestStatusApproved {
		t.Fatalf("expected approved payload got %s", envelope.Data.Status)
	}
}

func TestAdminTransitionAccessRequestStateConflict(t *testing.T) {
	svc := &stubRequestsService{err: pkgerrors.New(pkgerrors.CodeStateConflict, "request already resolved")}
	id := uuid.NewString()

	req := adminRequestWithParam(http.MethodPatch, "/api/admin/v1/access-requests/"+id, "requestId", id, []byte(`{"status":"rejected"}`))
	resp := httptest.NewRecorder()

	AdminTransitionAccessRequest(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
}

func TestAdminTransitionAccessRequestRejectsInvalidStatus(t *testing.T) {
	svc := &stubRequestsService{}
	id := uuid.NewString()

	req := adminRequestWithParam(http.MethodPatch, "/api/admin/v1/access-requests/"+id, "requestId", id, []byte(`{"status":"pending"}`))
	resp := httptest.NewRecorder()

	AdminTransitionAccessRequest(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
