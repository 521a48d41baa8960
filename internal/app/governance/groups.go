// internal/app/governance/groups.go
package governance

import (
	"context"
	"errors"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/policy/leaderpolicy"
	groupstore "github.com/civiclab/convene/internal/app/store/groups"
	membershipstore "github.com/civiclab/convene/internal/app/store/memberships"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/sanitize"
	"github.com/civiclab/convene/internal/app/system/txn"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CreateGroup creates a group with the caller as its sole founder.
func (e *Engine) CreateGroup(ctx context.Context, founderID primitive.ObjectID, name, description string) (models.Group, error) {
	name = sanitize.Text(name)
	if name == "" {
		return models.Group{}, apperr.New(apperr.InvalidState, "group name is required")
	}

	var created models.Group
	err := txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		g, err := e.groups.Create(ctx, models.Group{
			Name:        name,
			Description: sanitize.Text(description),
		})
		if errors.Is(err, groupstore.ErrDuplicateGroupName) {
			return apperr.Wrap(apperr.Conflict, "a group with this name already exists", err)
		}
		if err != nil {
			return err
		}
		if err := e.memberships.Add(ctx, g.ID, founderID, models.RoleFounder); err != nil {
			return err
		}
		created = g
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}

	e.govLog.GroupCreated(ctx, created.ID, founderID)
	return created, nil
}

// UpdateSettings applies a partial settings patch after the founders-only
// gate and role checks.
func (e *Engine) UpdateSettings(ctx context.Context, actorID, groupID primitive.ObjectID, patch models.GroupSettingsPatch) (models.Group, error) {
	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return models.Group{}, err
	}
	role, err := e.memberRole(ctx, groupID, actorID)
	if err != nil {
		return models.Group{}, err
	}
	if err := govpolicy.RequireSettingsChange(group, role, patch); err != nil {
		return models.Group{}, err
	}
	if patch.TransparencyMode != nil && !models.IsValidTransparencyMode(*patch.TransparencyMode) {
		return models.Group{}, apperr.New(apperr.InvalidState, "unknown transparency mode")
	}
	if patch.Description != nil {
		clean := sanitize.Text(*patch.Description)
		patch.Description = &clean
	}

	updated, err := e.groups.ApplySettings(ctx, groupID, patch)
	if err != nil {
		return models.Group{}, err
	}

	e.govLog.SettingsChanged(ctx, groupID, actorID, patch)
	return updated, nil
}

// Promote raises a member's role. Promotion to founder is reserved for
// founders; managers may promote members to manager. Demotions go through a
// proposal, never through this path.
func (e *Engine) Promote(ctx context.Context, actorID, groupID, targetID primitive.ObjectID, newRole string) error {
	if !models.IsLeaderRole(newRole) {
		return apperr.New(apperr.InvalidState, "promotion target role must be manager or founder")
	}
	actorRole, err := e.memberRole(ctx, groupID, actorID)
	if err != nil {
		return err
	}
	if err := govpolicy.RequireLeader(actorRole); err != nil {
		return err
	}
	if newRole == models.RoleFounder && actorRole != models.RoleFounder {
		return apperr.New(apperr.Forbidden, "only founders may promote to founder")
	}

	targetRole, err := e.memberships.GetRole(ctx, groupID, targetID)
	if errors.Is(err, membershipstore.ErrNotMember) {
		return apperr.New(apperr.NotFound, "target is not a member of this group")
	}
	if err != nil {
		return err
	}
	if targetRole == newRole {
		return apperr.New(apperr.InvalidState, "member already holds that role")
	}
	if targetRole == models.RoleFounder {
		return apperr.New(apperr.InvalidState, "demotions require a governance proposal")
	}

	if err := e.memberships.SetRole(ctx, groupID, targetID, newRole); err != nil {
		return err
	}

	e.govLog.MemberPromoted(ctx, groupID, actorID, targetID, targetRole, newRole)
	return nil
}

// Leave removes the caller from the group, unless their departure would
// leave a large group under-led.
func (e *Engine) Leave(ctx context.Context, userID, groupID primitive.ObjectID) error {
	role, err := e.memberRole(ctx, groupID, userID)
	if err != nil {
		return err
	}

	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		counts, err := e.memberships.RoleCounts(ctx, groupID)
		if err != nil {
			return err
		}
		if err := leaderpolicy.CheckChange(counts, leaderpolicy.Change{
			Kind: leaderpolicy.ChangeLeave,
			Role: role,
		}); err != nil {
			return err
		}
		return e.memberships.Remove(ctx, groupID, userID)
	})
	if err != nil {
		return err
	}

	e.govLog.MemberLeft(ctx, groupID, userID, role)
	return nil
}
