// internal/domain/models/governancelog.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Governance log actions.
const (
	LogGroupCreated     = "group_created"
	LogSettingsChanged  = "settings_changed"
	LogMemberJoined     = "member_joined"
	LogMemberPromoted   = "member_promoted"
	LogMemberLeft       = "member_left"
	LogJoinResolved     = "join_request_resolved"
	LogJoinExpired      = "join_request_expired"
	LogProposalResolved = "proposal_resolved"
	LogProposalExpired  = "proposal_expired"
	LogPollClosed       = "poll_closed"
)

// GovernanceLogEntry is one append-only record of a resolved governance
// action. Entries are never mutated or deleted; they are the system of
// record for what happened and why.
type GovernanceLogEntry struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	Action  string             `bson:"action" json:"action"`

	// ActorID is the user whose action produced the entry. System entries
	// (sweeper transitions) leave it nil.
	ActorID      *primitive.ObjectID `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	TargetUserID *primitive.ObjectID `bson:"target_user_id,omitempty" json:"target_user_id,omitempty"`

	// Linked ballot/poll, when the entry records a resolution.
	RequestID  *primitive.ObjectID `bson:"request_id,omitempty" json:"request_id,omitempty"`
	ProposalID *primitive.ObjectID `bson:"proposal_id,omitempty" json:"proposal_id,omitempty"`
	PollID     *primitive.ObjectID `bson:"poll_id,omitempty" json:"poll_id,omitempty"`

	Details   LogDetails `bson:"details" json:"details"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}

// LogDetails is a tagged union keyed by the owning action: exactly one
// variant is set per entry, so each action's fields are statically known.
type LogDetails struct {
	Resolution *ResolutionDetails `bson:"resolution,omitempty" json:"resolution,omitempty"`
	Membership *MembershipDetails `bson:"membership,omitempty" json:"membership,omitempty"`
	Settings   *SettingsDetails   `bson:"settings,omitempty" json:"settings,omitempty"`
	Sweep      *SweepDetails      `bson:"sweep,omitempty" json:"sweep,omitempty"`
	Poll       *PollDetails       `bson:"poll,omitempty" json:"poll,omitempty"`
}

// ResolutionDetails records how a ballot resolved.
type ResolutionDetails struct {
	Outcome       string `bson:"outcome" json:"outcome"`
	ApproveCount  int    `bson:"approve_count" json:"approve_count"`
	RejectCount   int    `bson:"reject_count" json:"reject_count"`
	RequiredVotes int    `bson:"required_votes" json:"required_votes"`
	// OverrideReason is set when an approved tally was forced to rejected
	// because applying it would have broken the leadership invariant.
	OverrideReason string `bson:"override_reason,omitempty" json:"override_reason,omitempty"`
}

// MembershipDetails records a direct membership mutation.
type MembershipDetails struct {
	Role     string `bson:"role,omitempty" json:"role,omitempty"`
	PrevRole string `bson:"prev_role,omitempty" json:"prev_role,omitempty"`
}

// SettingsDetails records a group settings change.
type SettingsDetails struct {
	TransparencyMode  string `bson:"transparency_mode,omitempty" json:"transparency_mode,omitempty"`
	FoundersOnlyRules *bool  `bson:"founders_only_rules,omitempty" json:"founders_only_rules,omitempty"`
	Open              *bool  `bson:"open,omitempty" json:"open,omitempty"`
}

// SweepDetails records a sweeper-forced transition.
type SweepDetails struct {
	RunID string `bson:"run_id" json:"run_id"`
	Age   string `bson:"age" json:"age"`
}

// PollDetails records a poll closing.
type PollDetails struct {
	WinningOption string `bson:"winning_option,omitempty" json:"winning_option,omitempty"`
	TotalVotes    int    `bson:"total_votes" json:"total_votes"`
}
