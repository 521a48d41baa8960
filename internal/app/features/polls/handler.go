// internal/app/features/polls/handler.go

// Package polls exposes non-binding group polls over JSON: creating a
// time-boxed poll, listing a group's polls, and member voting.
package polls

import (
	"net/http"
	"time"

	"github.com/civiclab/convene/internal/app/governance"
	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/system/authz"
	"github.com/civiclab/convene/internal/app/system/httpjson"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler is the shared dependency container for the polls feature.
type Handler struct {
	Engine *governance.Engine
	Log    *zap.Logger
}

func NewHandler(engine *governance.Engine, logger *zap.Logger) *Handler {
	return &Handler{Engine: engine, Log: logger}
}

type createRequest struct {
	Question string `json:"question"`
	Options  []struct {
		Key   string `json:"key"`
		Label string `json:"label"`
	} `json:"options"`
	// DurationMinutes bounds the voting window; zero gets the default.
	DurationMinutes int `json:"duration_minutes"`
}

// HandleCreate handles POST /groups/{id}/polls. Any member of the group
// may open one.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	creatorID, _, ok := authz.UserCtx(r)
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

	options := make([]models.PollOption, 0, len(req.Options))
	for _, o := range req.Options {
		options = append(options, models.PollOption{Key: o.Key, Label: o.Label})
	}
	duration := time.Duration(req.DurationMinutes) * time.Minute

	poll, err := h.Engine.CreatePoll(r.Context(), creatorID, groupID, req.Question, options, duration)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, poll)
}

// ServeList handles GET /groups/{id}/polls. Visibility follows the
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

	polls, err := h.Engine.Polls().ListByGroup(r.Context(), groupID, r.URL.Query().Get("status"))
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, polls)
}

type voteRequest struct {
	Option string `json:"option"`
}

// HandleVote handles POST /polls/{id}/vote. Members only; re-voting moves
// the earlier vote to the new option.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	voterID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	pollID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.BadRequest(w, "invalid poll id")
		return
	}

	var req voteRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	updated, err := h.Engine.VotePoll(r.Context(), voterID, pollID, req.Option)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, updated)
}
