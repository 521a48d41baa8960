// internal/app/features/groups/group.go
package groups

import (
	"net/http"

	"github.com/civiclab/convene/internal/app/system/authz"
	"github.com/civiclab/convene/internal/app/system/httpjson"
	"github.com/civiclab/convene/internal/domain/models"
)

type createGroupRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// HandleCreateGroup handles POST /groups. The caller becomes the group's
// founder.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}

	var req createGroupRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}

	group, err := h.Engine.CreateGroup(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusCreated, group)
}

// ServeGroup handles GET /groups/{id}. The group summary itself is public;
// governance data behind it is gated separately.
func (h *Handler) ServeGroup(w http.ResponseWriter, r *http.Request) {
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	group, err := h.Engine.Groups().GetByID(r.Context(), groupID)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, group)
}

type settingsRequest struct {
	Description       *string `json:"description"`
	TransparencyMode  *string `json:"transparency_mode"`
	FoundersOnlyRules *bool   `json:"founders_only_rules"`
	Open              *bool   `json:"open"`
}

// HandleUpdateSettings handles POST /groups/{id}/settings. Leaders may
// change cosmetic settings; constitutional ones may be founder-gated.
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	userID, _, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Unauthorized(w)
		return
	}
	groupID, ok := urlID(w, r)
	if !ok {
		return
	}

	var req settingsRequest
	if !httpjson.Decode(w, r, &req) {
		return
	}
	patch := models.GroupSettingsPatch{
		Description:       req.Description,
		TransparencyMode:  req.TransparencyMode,
		FoundersOnlyRules: req.FoundersOnlyRules,
		Open:              req.Open,
	}

	group, err := h.Engine.UpdateSettings(r.Context(), userID, groupID, patch)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, group)
}
