// internal/domain/models/joinrequest.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinRequest is a ballot asking the group's leaders to admit a new member.
//
// RequiredVotes is frozen at creation as a simple majority of the leaders
// eligible at that moment; later roster changes do not move the threshold.
// ApproveCount/RejectCount are maintained transactionally with each vote
// upsert so resolution never scans the votes collection.
type JoinRequest struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	GroupID primitive.ObjectID `bson:"group_id" json:"group_id"`
	UserID  primitive.ObjectID `bson:"user_id" json:"user_id"`

	// pending | voting | approved | rejected | expired
	Status  string `bson:"status" json:"status"`
	Message string `bson:"message,omitempty" json:"message,omitempty"`

	RequiredVotes int `bson:"required_votes" json:"required_votes"`
	ApproveCount  int `bson:"approve_count" json:"approve_count"`
	RejectCount   int `bson:"reject_count" json:"reject_count"`

	SchemaVersion int        `bson:"schema_version" json:"-"`
	CreatedAt     time.Time  `bson:"created_at" json:"created_at"`
	ResolvedAt    *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
}

// JoinRequestVote is one leader's vote on a join request.
// Exactly one document per (request_id, voter_id); re-voting overwrites.
type JoinRequestVote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RequestID primitive.ObjectID `bson:"request_id" json:"request_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	VoterID   primitive.ObjectID `bson:"voter_id" json:"voter_id"`
	Choice    string             `bson:"choice" json:"choice"` // approve | reject
	CastAt    time.Time          `bson:"cast_at" json:"cast_at"`
}
