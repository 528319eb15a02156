package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/perkgate/perkgate-backend/pkg/config"
)

// CORS returns middleware that only admits the portal's primary domain plus
// local development origins. Credentials stay enabled so the session and
// decision cookies flow on same-site requests.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	origins := []string{
		"http://localhost:3000", // local dev
	}
	if domain := strings.TrimSpace(app.PrimaryDomain); domain != "" {
		origins = append(origins, "https://"+domain, "https://www."+domain)
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
