// Package router sets up all HTTP routes and middleware chains for the
// sharemeow server. Public image routes and API-key routes share the /v1
// prefix and its rate limiter.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"sharemeow/internal/handlers"
	"sharemeow/internal/middleware"
)

// Options carries everything the router wires together.
type Options struct {
	Images  *handlers.Images
	APIKey  string                  // empty disables the API-key routes
	Limiter *middleware.RateLimiter // nil disables rate limiting
	Metrics http.Handler            // nil omits /metrics
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		if opts.Limiter != nil {
			r.Use(opts.Limiter.Middleware)
		}

		// Signed GET URLs, usable from og:image tags.
		r.Get("/{token}/image.jpg", opts.Images.Render)
		r.Get("/templates", opts.Images.Templates)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(opts.APIKey))
			r.Post("/images", opts.Images.Create)
			r.Post("/images/sign", opts.Images.Sign)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
