// Package router sets up the HTTP routes and middleware chain for the
// gateway.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"gengate/internal/handlers"
	"gengate/internal/middleware"
)

// New creates the configured Chi router with all middleware and routes
// wired up.
func New(gen *handlers.Generation) chi.Router {
	r := chi.NewRouter()

	// Global middleware — applied to every request.
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.CORS)

	// Health check for load balancers; responds without touching any
	// upstream provider.
	r.Get("/health", healthHandler)

	r.Route("/api/v1/generation", func(r chi.Router) {
		r.Get("/models", gen.Models)
		r.Get("/edit-info", gen.EditInfo)

		// Static segments take precedence over the {provider} match,
		// so the edit route never shadows POST /openai.
		r.Post("/openai/edit", gen.Edit)
		r.Post("/{provider}", gen.Generate)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
