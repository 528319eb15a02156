package controllers

import (
	"net/http"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/api/validators"
	"github.com/perkgate/perkgate-backend/internal/requests"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// CreateAccessRequest files a manual access request for the caller. A second
// pending request from the same email is rejected with a conflict.
func CreateAccessRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		var body requests.CreateRequestDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requester := requests.Requester{
			ID:    ident.ID,
			Email: ident.Email,
			Name:  ident.DisplayName,
		}

		created, err := svc.Create(r.Context(), requester, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, requests.FromModel(created))
	}
}

// MyAccessRequest returns the caller's most relevant request: the pending one
// when it exists, otherwise the latest filed.
func MyAccessRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
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

		request, err := svc.MostRelevantForEmail(r.Context(), ident.Email)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, requests.FromModel(request))
	}
}
