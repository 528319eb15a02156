package controllers

import (
	"context"
	"net/http"

	"github.com/perkgate/perkgate-backend/api/responses"
	"github.com/perkgate/perkgate-backend/pkg/config"
	pkgerrors "github.com/perkgate/perkgate-backend/pkg/errors"
	"github.com/perkgate/perkgate-backend/pkg/logger"
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerkGate-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PerkGate-Env", cfg.App.Env)

		checks := map[string]string{}
		healthy := true
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				checks[name] = "unavailable"
				healthy = false
				if logg != nil {
					logg.Error(r.Context(), "readiness check failed", err)
				}
				continue
			}
			checks[name] = "ok"
		}

		if !healthy {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency unavailable").WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
