package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/api/validators"
	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/internal/identity"
	"github.com/perkgate/perkgate-backend/internal/partners"
	"github.com/perkgate/perkgate-backend/internal/whitelist"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

func adminActor(ident *identity.Identity) audit.Actor {
	actor := audit.Actor{ID: ident.ID, Email: ident.Email}
	if name := strings.TrimSpace(ident.DisplayName); name != "" {
		actor.Name = &name
	}
	return actor
}

func parseIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "identifier is required").WithDetails(map[string]any{"field": key})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid identifier").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// AdminListPartners returns every configured partner, active or not.
func AdminListPartners(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		rows, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dtos := make([]partners.PartnerDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, partners.FromModel(&rows[i]))
		}
		responses.WriteSuccess(w, dtos)
	}
}

// AdminCreatePartner registers a new perks partner.
func AdminCreatePartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		var body partners.CreatePartnerDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), adminActor(ident), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, partners.FromModel(created))
	}
}

// AdminGetPartner returns a single partner by id.
func AdminGetPartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		partner, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, partners.FromModel(partner))
	}
}

// AdminUpdatePartner applies a partial update to a partner.
func AdminUpdatePartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body partners.UpdatePartnerDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), adminActor(ident), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, partners.FromModel(updated))
	}
}

// AdminDeletePartner removes a partner. The default partner cannot be
// deleted.
func AdminDeletePartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), adminActor(ident), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AdminSetDefaultPartner promotes a partner to be the portal's active
// default.
func AdminSetDefaultPartner(svc partners.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "partners service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		promoted, err := svc.SetDefault(r.Context(), adminActor(ident), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, partners.FromModel(promoted))
	}
}

// AdminListWhitelist returns the manually uploaded whitelist rows for a
// partner.
func AdminListWhitelist(svc whitelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whitelist service unavailable"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.List(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AdminUploadWhitelist replaces a partner's uploaded whitelist in one shot.
func AdminUploadWhitelist(svc whitelist.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "whitelist service unavailable"))
			return
		}

		ident := middleware.IdentityFromContext(r.Context())
		if ident == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		id, err := parseIDParam(r, "partnerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body whitelist.UploadDTO
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		count, err := svc.Upload(r.Context(), adminActor(ident), id, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"uploaded": count})
	}
}
