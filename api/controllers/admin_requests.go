package controllers

import (
	"net/http"
	"strings"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/api/validators"
	"github.com/perkgate/perkgate-backend/internal/requests"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

// AdminListAccessRequests returns a paginated request listing with an
// optional status filter.
func AdminListAccessRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access requests service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := requests.ListFilter{}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, parseErr := enums.ParseRequestStatus(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status filter"))
				return
			}
			filter.Status = &status
		}

		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}

		page, err := svc.List(r.Context(), filter, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

// AdminTransitionAccessRequest moves a pending request to approved or
// rejected.
func AdminTransitionAccessRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access requests service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := parseIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requests.TransitionDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Transition(r.Context(), adminActor(ident), id, body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.FromModel(updated))
	}
}
