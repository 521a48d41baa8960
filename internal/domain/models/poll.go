// internal/domain/models/poll.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Poll is a time-boxed, non-binding group poll. Unlike ballots, polls do not
// have a quorum: the sweeper closes them at ClosesAt and resolves by
// plurality of the votes actually cast.
type Poll struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	CreatorID primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Question  string             `bson:"question" json:"question"`
	Options   []PollOption       `bson:"options" json:"options"`

	// voting | closed
	Status string `bson:"status" json:"status"`

	// Counts holds cast votes per option key, maintained transactionally
	// with each vote upsert.
	Counts map[string]int `bson:"counts" json:"counts"`

	Result *PollResult `bson:"result,omitempty" json:"result,omitempty"`

	SchemaVersion int       `bson:"schema_version" json:"-"`
	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	ClosesAt      time.Time `bson:"closes_at" json:"closes_at"`
}

// PollOption is one selectable answer.
type PollOption struct {
	Key   string `bson:"key" json:"key"`
	Label string `bson:"label" json:"label"`
}

// PollResult is the outcome recorded when a poll closes.
// WinningOption is empty on a tie or when no votes were cast.
type PollResult struct {
	WinningOption string    `bson:"winning_option,omitempty" json:"winning_option,omitempty"`
	TotalVotes    int       `bson:"total_votes" json:"total_votes"`
	ClosedAt      time.Time `bson:"closed_at" json:"closed_at"`
}

// PollVote is one member's vote on a poll. One document per
// (poll_id, voter_id); re-voting overwrites.
type PollVote struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PollID    primitive.ObjectID `bson:"poll_id" json:"poll_id"`
	GroupID   primitive.ObjectID `bson:"group_id" json:"group_id"`
	VoterID   primitive.ObjectID `bson:"voter_id" json:"voter_id"`
	OptionKey string             `bson:"option_key" json:"option_key"`
	CastAt    time.Time          `bson:"cast_at" json:"cast_at"`
}
