// internal/app/features/groups/routes.go
package groups

import (
	"github.com/civiclab/convene/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	// Reads are open at the routing layer; the handlers enforce each
	// group's transparency mode themselves so public_all groups stay
	// visible to anonymous callers.
	r.Get("/{id}", h.ServeGroup)
	r.Get("/{id}/members", h.ServeMembers)
	r.Get("/{id}/log", h.ServeGovernanceLog)

	// Mutations require a signed-in caller.
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Post("/", h.HandleCreateGroup)
		pr.Post("/{id}/settings", h.HandleUpdateSettings)
		pr.Post("/{id}/join", h.HandleJoin)
		pr.Post("/{id}/promote", h.HandlePromote)
		pr.Post("/{id}/leave", h.HandleLeave)
	})

	return r
}
