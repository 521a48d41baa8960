// internal/domain/models/proposal.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GovernanceProposal is a ballot to demote or remove an existing member.
//
// It shares the join-request tally mechanics: frozen RequiredVotes,
// transactionally maintained counters, and a compare-and-set status
// transition at resolution. At most one live proposal may exist per
// (group, target) pair.
type GovernanceProposal struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	GroupID      primitive.ObjectID `bson:"group_id" json:"group_id"`
	Action       string             `bson:"action" json:"action"` // demote | kick
	ProposerID   primitive.ObjectID `bson:"proposer_id" json:"proposer_id"`
	TargetUserID primitive.ObjectID `bson:"target_user_id" json:"target_user_id"`
	Reason       string             `bson:"reason,omitempty" json:"reason,omitempty"`

	// voting | approved | rejected | expired
	Status string `bson:"status" json:"status"`

	RequiredVotes int `bson:"required_votes" json:"required_votes"`
	ApproveCount  int `bson:"approve_count" json:"approve_count"`
	RejectCount   int `bson:"reject_count" json:"reject_count"`

	SchemaVersion int        `bson:"schema_version" json:"-"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// ProposalVote is one leader's vote on a governance proposal.
// Exactly one document per (proposal_id, voter_id); re-voting overwrites.
type ProposalVote struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ProposalID primitive.ObjectID `bson:"proposal_id" json:"proposal_id"`
	GroupID    primitive.ObjectID `bson:"group_id" json:"group_id"`
	VoterID    primitive.ObjectID `bson:"voter_id" json:"voter_id"`
	Choice     string             `bson:"choice" json:"choice"` // approve | reject
	CastAt     time.Time          `bson:"cast_at" json:"cast_at"`
}
