// internal/app/policy/govpolicy/govpolicy.go

// Package govpolicy answers who may see and steer a group's governance:
// transparency-gated reads, leader-only voting, and the founders-only gate
// on constitutional settings.
package govpolicy

import (
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/domain/models"
)

// Viewer describes the requesting user relative to a group. A non-member
// has IsMember false and an empty Role; an anonymous request has SignedIn
// false as well.
type Viewer struct {
	SignedIn bool
	IsMember bool
	Role     string
}

// CanViewGovernance reports whether the viewer may read the group's
// governance data (roster, log, polls) under its transparency mode.
func CanViewGovernance(group models.Group, v Viewer) bool {
	switch group.TransparencyMode {
	case models.TransparencyPublicAll:
		return true
	case models.TransparencyPublicMembers:
		return v.IsMember
	case models.TransparencyPrivate:
		return v.IsMember && models.IsLeaderRole(v.Role)
	}
	return false
}

// RequireViewGovernance converts a failed visibility check into the error
// the HTTP layer expects: 401 for anonymous callers, 403 otherwise.
func RequireViewGovernance(group models.Group, v Viewer) error {
	if CanViewGovernance(group, v) {
		return nil
	}
	if !v.SignedIn {
		return apperr.New(apperr.Unauthorized, "sign in to view this group's governance")
	}
	return apperr.New(apperr.Forbidden, "this group's governance is not visible to you")
}

// RequireLeader gates ballot voting and proposal creation on holding a
// leader role in the group.
func RequireLeader(role string) error {
	if models.IsLeaderRole(role) {
		return nil
	}
	return apperr.New(apperr.Forbidden, "only managers and founders may do this")
}

// RequireSettingsChange checks whether a member with the given role may
// apply the patch. Constitutional fields (transparency, the founders-only
// gate itself, open admission) are founder-only when the group says so;
// everything else needs any leader role.
func RequireSettingsChange(group models.Group, role string, patch models.GroupSettingsPatch) error {
	if err := RequireLeader(role); err != nil {
		return err
	}
	if group.FoundersOnlyRules && patch.Constitutional() && role != models.RoleFounder {
		return apperr.New(apperr.Forbidden, "only founders may change this group's rules")
	}
	return nil
}

// RequireVoterNotProposer blocks a proposer from voting on their own
// proposal.
func RequireVoterNotProposer(voterHex, proposerHex string) error {
	if voterHex == proposerHex {
		return apperr.New(apperr.Forbidden, "proposers may not vote on their own proposal")
	}
	return nil
}
