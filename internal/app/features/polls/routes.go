// internal/app/features/polls/routes.go
package polls

import (
	"github.com/civiclab/convene/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /polls: voting on a specific poll.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/{id}/vote", h.HandleVote)
	})

	return r
}

// GroupRoutes serves the group-scoped endpoints, mounted under
// /groups/{id}/polls. Listing is transparency-gated in the handler.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleCreate)
	})

	return r
}
