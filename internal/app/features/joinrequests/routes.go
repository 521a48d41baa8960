// internal/app/features/joinrequests/routes.go
package joinrequests

import (
	"github.com/civiclab/convene/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes serves /join-requests: voting on a specific ballot.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/{id}/vote", h.HandleVote)
	})

	return r
}

// GroupRoutes serves the group-scoped listing, mounted under
// /groups/{id}/join-requests. Listing is transparency-gated in the handler.
func GroupRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	return r
}
