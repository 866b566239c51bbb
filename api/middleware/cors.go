package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

const localClientOrigin = "http://localhost:3000"

// CORS allows the storefront client plus the local dev origin.
func CORS(clientURL string) func(http.Handler) http.Handler {
	origins := []string{localClientOrigin}
	if origin := strings.TrimRight(strings.TrimSpace(clientURL), "/"); origin != "" && origin != localClientOrigin {
		origins = append(origins, origin)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
