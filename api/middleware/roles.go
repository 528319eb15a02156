package middleware

import (
	"net/http"

	"github.com/perkgate/perkgate-backend/api/responses"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// RequireAdmin gates the admin surface on the resolved identity's admin flag.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident := IdentityFromContext(r.Context())
			if ident == nil || !ident.IsAdmin {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
