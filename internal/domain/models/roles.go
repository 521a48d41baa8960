// internal/domain/models/roles.go
package models

// Membership roles within a group.
//
// A "leader" is anyone with role manager or founder; the anti-centralization
// rule counts leaders, not managers alone.
const (
	RoleMember  = "member"
	RoleManager = "manager"
	RoleFounder = "founder"
)

// IsValidRole checks if a value is a valid membership role.
func IsValidRole(role string) bool {
	return role == RoleMember || role == RoleManager || role == RoleFounder
}

// IsLeaderRole reports whether the role carries governance authority.
func IsLeaderRole(role string) bool {
	return role == RoleManager || role == RoleFounder
}

// Transparency modes controlling who may view a group's governance data
// (roster, governance log, polls).
const (
	TransparencyPrivate       = "private"        // leaders only
	TransparencyPublicMembers = "public_members" // any member
	TransparencyPublicAll     = "public_all"     // unauthenticated allowed
)

// IsValidTransparencyMode checks if a value is a valid transparency mode.
func IsValidTransparencyMode(mode string) bool {
	switch mode {
	case TransparencyPrivate, TransparencyPublicMembers, TransparencyPublicAll:
		return true
	}
	return false
}

// Ballot statuses shared by join requests and governance proposals.
// pending applies only to join requests (no leader vote cast yet).
const (
	BallotPending  = "pending"
	BallotVoting   = "voting"
	BallotApproved = "approved"
	BallotRejected = "rejected"
	BallotExpired  = "expired"
)

// IsTerminalBallotStatus reports whether a ballot can no longer change.
func IsTerminalBallotStatus(status string) bool {
	switch status {
	case BallotApproved, BallotRejected, BallotExpired:
		return true
	}
	return false
}

// Vote choices on a ballot.
const (
	VoteApprove = "approve"
	VoteReject  = "reject"
)

// Governance proposal actions.
const (
	ProposalDemote = "demote"
	ProposalKick   = "kick"
)

// Poll statuses.
const (
	PollVoting = "voting"
	PollClosed = "closed"
)

// RoleCounts summarizes a group's roster by role.
type RoleCounts struct {
	Members  int
	Managers int
	Founders int
	Total    int
}

// Leaders returns the count of members with governance authority.
func (c RoleCounts) Leaders() int {
	return c.Managers + c.Founders
}
