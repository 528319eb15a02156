package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/perkgate/perkgate-backend/api/controllers"
	"github.com/perkgate/perkgate-backend/api/middleware"
	"github.com/perkgate/perkgate-backend/internal/access"
	"github.com/perkgate/perkgate-backend/internal/audit"
	"github.com/perkgate/perkgate-backend/internal/partners"
	"github.com/perkgate/perkgate-backend/internal/requests"
	"github.com/perkgate/perkgate-backend/internal/whitelist"
	"github.com/perkgate/perkgate-backend/pkg/config"
	"github.com/perkgate/perkgate-backend/pkg/logger"
	"github.com/perkgate/perkgate-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	registry *prometheus.Registry,
	resolver middleware.IdentityResolver,
	accessService access.Service,
	requestsService requests.Service,
	partnersService partners.Service,
	whitelistService whitelist.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisClient,
		}))
	})

	if registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(resolver, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Route("/access", func(r chi.Router) {
			r.Get("/status", controllers.AccessStatus(accessService, logg))
			r.Post("/resolve", controllers.AccessResolve(accessService, logg))
			r.Post("/animation-shown", controllers.AccessAnimationShown(accessService, logg))
			r.Post("/refresh", controllers.AccessRefresh(accessService, logg))
		})

		r.Post("/access-requests", controllers.CreateAccessRequest(requestsService, logg))
		r.Get("/access-requests/me", controllers.MyAccessRequest(requestsService, logg))

		r.Post("/auth/logout", controllers.AuthLogout(accessService, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Identity(resolver, logg))
		r.Use(middleware.RequireAdmin(logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Get("/partners", controllers.AdminListPartners(partnersService, logg))
		r.Post("/partners", controllers.AdminCreatePartner(partnersService, logg))
		r.Get("/partners/{partnerId}", controllers.AdminGetPartner(partnersService, logg))
		r.Put("/partners/{partnerId}", controllers.AdminUpdatePartner(partnersService, logg))
		r.Delete("/partners/{partnerId}", controllers.AdminDeletePartner(partnersService, logg))
		r.Post("/partners/{partnerId}/default", controllers.AdminSetDefaultPartner(partnersService, logg))
		r.Get("/partners/{partnerId}/whitelist", controllers.AdminListWhitelist(whitelistService, logg))
		r.Post("/partners/{partnerId}/whitelist", controllers.AdminUploadWhitelist(whitelistService, logg))

		r.Get("/access-requests", controllers.AdminListAccessRequests(requestsService, logg))
		r.Patch("/access-requests/{requestId}", controllers.AdminTransitionAccessRequest(requestsService, logg))

		r.Get("/audit-entries", controllers.AdminListAuditEntries(auditService, logg))
	})

	return r
}
