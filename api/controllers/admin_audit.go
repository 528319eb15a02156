package controllers

import (
	"net/http"
	"strings"

	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/api/validators"
	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/pkg/enums"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/pagination"
)

// AdminListAuditEntries returns the append-only audit trail, newest first,
// narrowed by the optional action, entityType, adminEmail, from and to
// filters.
func AdminListAuditEntries(svc audit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "audit service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filter := audit.ListFilter{}

		if raw := strings.TrimSpace(r.URL.Query().Get("action")); raw != "" {
			action, parseErr := enums.ParseAuditAction(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid action filter"))
				return
			}
			filter.Action = &action
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("entityType")); raw != "" {
			entityType, parseErr := enums.ParseAuditEntityType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid entityType filter"))
				return
			}
			filter.EntityType = &entityType
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("adminEmail")); raw != "" {
			email := strings.ToLower(raw)
			filter.AdminEmail = &email
		}

		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.From = from

		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filter.To = to

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
