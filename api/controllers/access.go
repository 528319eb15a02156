package controllers

import (
	"net/http"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/internal/access"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// AccessStatus returns the cached decision summary without recomputing the
// rule chain. A missing or stale cookie reads as not granted.
func AccessStatus(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		status, err := svc.Status(r.Context(), r, ident)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// AccessResolve forces a full rule-chain evaluation and refreshes the
// decision cookie.
func AccessResolve(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		decided, err := svc.Resolve(r.Context(), w, r, ident)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, access.StatusFromDecision(decided))
	}
}

// AccessAnimationShown marks the grant animation as seen so the portal only
// plays it once per decision.
func AccessAnimationShown(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		marked, err := svc.MarkAnimationShown(r.Context(), w, r, ident)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"animationShown": marked})
	}
}

// AccessRefresh drops the decision cookie so the next status read recomputes.
func AccessRefresh(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		svc.Clear(w)
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// AuthLogout clears the decision cookie on sign-out. The identity session
// itself belongs to the upstream authority and is not ours to revoke.
func AuthLogout(svc access.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "access service unavailable"))
			return
		}

		svc.Clear(w)
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}
