// internal/app/features/proposals/handler.go

// Package proposals exposes demote/kick ballots over JSON: opening a
// proposal against a leader, listing a group's proposals, and voting.
package proposals

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

// Handler is the shared dependency container for the proposals feature.
type Handler struct {
	Engine *governance.Engine
	Log    *zap.Logger
}

func NewHandler(engine *governance.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

type createRequest struct {
	TargetUserID string `json:"target_user_id"`
	Action       string `json:"action"`
	Reason       string `json:"reason"`
}

// HandleCreate handles POST /groups/{id}/proposals. Leaders only; at most
// one live proposal per (group, target).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	proposerID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	groupID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid group id")
		return
	}

	var req createRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(req.TargetUserID)
	if err != nil {
		httpjson.BadRequest(w, "invalid target user id")
		return
	}

	proposal, err := h.Engine.Propose(r.Context(), proposerID, groupID, targetID, req.Action, req.Reason)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, proposal)
}

// ServeList handles GET /groups/{id}/proposals. Visibility follows the
// group's transparency mode; an optional status query parameter filters.
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

	proposals, err := h.Engine.Proposals().ListByGroup(r.Context(), groupID, r.URL.Query().Get("status"))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, proposals)
}

type voteRequest struct {
	Choice string `json:"choice"`
}

// HandleVote handles POST /proposals/{id}/vote. Leaders only, proposer
// excluded; an approved proposal that would break the leadership floor is
// auto-rejected by the engine.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	voterID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	proposalID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid proposal id")
		return
	}

	var req voteRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	updated, err := h.Engine.VoteProposal(r.Context(), voterID, proposalID, req.Choice)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
