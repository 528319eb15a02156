package middleware

import (
	"net/http"

	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/internal/identity"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// IdentityResolver resolves the caller behind a request.
type IdentityResolver interface {
	Resolve(r *http.Request) (*identity.Identity, error)
}

// Identity resolves the caller through the identity authority and seeds the
// request context with the result. Requests without a usable credential are
// rejected with 401 before any handler runs.
func Identity(resolver IdentityResolver, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if resolver == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "identity resolver unavailable"))
				return
			}

			ident, err := resolver.Resolve(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithIdentity(r.Context(), ident)
			if logg != nil {
				ctx = logg.WithUserEmail(ctx, ident.Email)
				if ident.IsAdmin {
					ctx = logg.WithField(ctx, "is_admin", true)
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
