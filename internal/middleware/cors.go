// Package middleware provides the HTTP middleware of the BikeRoutes development API.
package middleware

import (
	"net/http"
	"slices"

	"github.com/rs/cors"
)

// preflightMaxAge is how long, in seconds, browsers may cache a preflight answer.
const preflightMaxAge = 600

// NewCORSHandler returns a middleware that applies CORS headers for the given
// origins. Each entry must be a full origin (scheme + host, no trailing slash);
// the single entry "*" allows any origin. Credentials travel in the
// Authorization header, never in cookies, so credentialed CORS stays off.
// Content-Disposition and WWW-Authenticate are exposed so browser clients can
// name export downloads and detect an expired token.
func NewCORSHandler(allowedOrigins []string) func(http.Handler) http.Handler {
	opts := cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		ExposedHeaders: []string{"Content-Disposition", "WWW-Authenticate"},
		MaxAge:         preflightMaxAge,
	}
	if slices.Contains(allowedOrigins, "*") {
		opts.AllowedOrigins = nil
		opts.AllowOriginFunc = func(string) bool { return true }
	}
	c := cors.New(opts)
	return func(next http.Handler) http.Handler {
		return c.Handler(next)
	}
}
