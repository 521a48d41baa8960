// internal/app/policy/leaderpolicy/leaderpolicy.go

// Package leaderpolicy holds the anti-centralization rule: once a group
// grows past the small-group size, it must keep at least two leaders
// (managers plus founders) so no single person controls it.
//
// The package is pure. Callers load role counts from the membership store,
// project the mutation they are about to make, and consult the policy
// before writing anything.
package leaderpolicy

import (
	"fmt"

	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/domain/models"
)

const (
	// SmallGroupMax is the largest roster that may run with a single
	// leader. Above this size the minimum leader rule applies.
	SmallGroupMax = 3

	// MinLeaders is the leader floor for groups past SmallGroupMax.
	MinLeaders = 2
)

// ChangeKind names a roster mutation being checked.
type ChangeKind string

const (
	ChangeLeave  ChangeKind = "leave"
	ChangeDemote ChangeKind = "demote"
	ChangeKick   ChangeKind = "kick"
)

// Change describes a pending roster mutation: Kind plus the affected
// member's current role.
type Change struct {
	Kind ChangeKind
	Role string
}

// Satisfied reports whether counts meet the minimum leader rule as-is.
func Satisfied(counts models.RoleCounts) bool {
	if counts.Total <= SmallGroupMax {
		return true
	}
	return counts.Leaders() >= MinLeaders
}

// Project returns the role counts after applying the change.
func Project(counts models.RoleCounts, change Change) models.RoleCounts {
	out := counts
	switch change.Kind {
	case ChangeLeave, ChangeKick:
		out.Total--
		switch change.Role {
		case models.RoleFounder:
			out.Founders--
		case models.RoleManager:
			out.Managers--
		default:
			out.Members--
		}
	case ChangeDemote:
		switch change.Role {
		case models.RoleFounder:
			out.Founders--
		case models.RoleManager:
			out.Managers--
		default:
			return out // demoting a plain member changes nothing
		}
		out.Members++
	}
	return out
}

// CheckChange rejects a mutation that would take a group past the
// small-group size below the leader floor. A group already under the floor
// may still shrink back to small-group size, so the check compares the
// projected state, not the current one.
func CheckChange(counts models.RoleCounts, change Change) error {
	projected := Project(counts, change)
	if Satisfied(projected) {
		return nil
	}
	return apperr.New(apperr.InvariantViolation,
		fmt.Sprintf("group would drop below %d leaders", MinLeaders))
}

// CheckAdmission rejects admitting a new plain member when doing so would
// push the group past the small-group size without enough leaders. This is
// how an under-led group is forced to promote before it grows.
func CheckAdmission(counts models.RoleCounts) error {
	projected := counts
	projected.Total++
	projected.Members++
	if Satisfied(projected) {
		return nil
	}
	return apperr.New(apperr.InvariantViolation,
		fmt.Sprintf("group must have at least %d leaders before admitting more members", MinLeaders))
}
