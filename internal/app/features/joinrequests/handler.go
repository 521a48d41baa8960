// internal/app/features/joinrequests/handler.go

// Package joinrequests exposes join-request ballots over JSON: listing a
// group's requests and casting leader votes.
package joinrequests

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

// Handler is the shared dependency container for the join-requests feature.
type Handler struct {
	Engine *governance.Engine
	Log    *zap.Logger
}

func NewHandler(engine *governance.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

// ServeList handles GET /groups/{id}/join-requests. Ballot data is
// governance data, so visibility follows the group's transparency mode.
// An optional status query parameter filters the list.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return
	}

	group, err := h.Engine.Groups().GetByID(r.Context(), groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	userID, _, signedIn := authz.UserCtx(r)
	v, err := h.Engine.ViewerOf(r.Context(), groupID, userID, signedIn)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	if err := govpolicy.RequireViewGovernance(group, v); err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}

	requests, err := h.Engine.JoinRequests().ListByGroup(r.Context(), groupID, r.URL.Query().Get("status"))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, requests)
}

type voteRequest struct {
	Choice string `json:"choice"`
}

// HandleVote handles POST /join-requests/{id}/vote. Leaders only; the
// engine resolves the ballot when the frozen threshold is met.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	voterID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	requestID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid join request id")
		return
	}

	var req voteRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	updated, err := h.Engine.VoteJoin(r.Context(), voterID, requestID, req.Choice)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
