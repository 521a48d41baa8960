// internal/app/features/groups/log.go
package groups

import (
	"net/http"
	"strconv"
	"time"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	"github.com/civiclab/convene/internal/app/system/httpjson"
)

// ServeGovernanceLog handles GET /groups/{id}/log.
//
// Query parameters: action (filter), before (RFC 3339 cursor for paging),
// limit. Visibility follows the group's transparency mode.
func (h *Handler) ServeGovernanceLog(w http.ResponseWriter, r *http.Request) {
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

	q := govlogstore.Query{
		GroupID: groupID,
		Action:  r.URL.Query().Get("action"),
	}
	if before := r.URL.Query().Get("before"); before != "" {
		t, err := time.Parse(time.RFC3339, before)
		if err != nil {
			httpjson.BadRequest(w, "before must be an RFC 3339 timestamp")
			return
		}
		q.Before = t
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.ParseInt(limit, 10, 64)
		if err != nil || n < 1 {
			httpjson.BadRequest(w, "limit must be a positive integer")
			return
		}
		q.Limit = n
	}

	entries, err := h.Engine.LogEntries().List(r.Context(), q)
	if err != nil {
		httpjson.Error(w, h.Log, err)
		return
	}
	httpjson.Write(w, http.StatusOK, entries)
}
