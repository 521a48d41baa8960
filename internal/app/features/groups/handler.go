// internal/app/features/groups/handler.go

// Package groups exposes the group lifecycle over JSON: create, view,
// settings, joining, role changes, the roster, and the governance log.
package groups

import (
	"net/http"

	"github.com/civiclab/convene/internal/app/governance"
	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/system/authz"
	"github.com/civiclab/convene/internal/app/system/httpjson"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	Engine *governance.Engine
	Log    *zap.Logger
}

// NewHandler constructs a groups Handler. Called from bootstrap's
// BuildHandler once the engine is wired.
func NewHandler(engine *governance.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// urlID parses the {id} route parameter. Returns false after writing a 400
// when the value is not a valid ObjectID.
func urlID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// viewer builds the transparency-check identity for the request's caller,
// anonymous included.
func (h *Handler) viewer(r *http.Request, groupID primitive.ObjectID) (govpolicy.Viewer, error) {
	userID, _, ok := authz.UserCtx(r)
	return h.Engine.ViewerOf(r.Context(), groupID, userID, ok)
}
