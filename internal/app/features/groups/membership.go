// internal/app/features/groups/membership.go
package groups

import (
	"net/http"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/system/authz"
	"github.com/civiclab/convene/internal/app/system/httpjson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type joinRequest struct {
	Message string `json:"message"`
}

type joinResponse struct {
	Joined  bool `json:"joined"`
	Request any  `json:"request,omitempty"`
}

// HandleJoin handles POST /groups/{id}/join. Open groups admit directly;
// closed groups open a leader ballot.
func (h *Handler) HandleJoin(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	var req joinRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	result, err := h.Engine.RequestJoin(r.Context(), userID, groupID, req.Message)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	resp := joinResponse{Joined: result.Joined}
	status := http.StatusOK
	if result.Request != nil {
		resp.Request = result.Request
		status = http.StatusAccepted
	}
	httpjson.Write(w, status, resp)
}

type promoteRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// HandlePromote handles POST /groups/{id}/promote: raise a member to
// manager, or (founders only) to founder. Demotions go through proposals.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	actorID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	var req promoteRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		httpjson.BadRequest(w, "invalid user id")
		return
	}

	if err := h.Engine.Promote(r.Context(), actorID, groupID, targetID, req.Role); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLeave handles POST /groups/{id}/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	if err := h.Engine.Leave(r.Context(), userID, groupID); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ServeMembers handles GET /groups/{id}/members. The roster is governance
// data, so visibility follows the group's transparency mode.
func (h *Handler) ServeMembers(w http.ResponseWriter, r *http.Request) {
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	group, err := h.Engine.Groups().GetByID(r.Context(), groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	v, err := h.viewer(r, groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := govpolicy.RequireViewGovernance(group, v); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	role := r.URL.Query().Get("role")
	members, err := h.Engine.Memberships().ListByGroup(r.Context(), groupID, role)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, members)
}
