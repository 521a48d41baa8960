// internal/app/system/notify/notify.go

// Package notify emits the logical governance events an external
// notification dispatcher fans out to affected users. Delivery mechanics
// are out of scope; the default dispatcher records events to the
// structured log so they are observable without a wired notifier.
package notify

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event types.
const (
	EventJoinResolved     = "join_request_resolved"
	EventProposalResolved = "proposal_resolved"
	EventBallotExpired    = "ballot_expired"
	EventPollClosed       = "poll_closed"
	EventInvariantBreach  = "invariant_breach_averted"
)

// Event is one logical governance occurrence.
type Event struct {
	Type     string
	GroupID  primitive.ObjectID
	BallotID *primitive.ObjectID
	TargetID *primitive.ObjectID
	Outcome  string
	Reason   string
	At       time.Time
}

// Dispatcher fans events out to affected users. Implementations must not
// block governance operations; failures are theirs to report.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev Event)
}

// LogDispatcher is the default Dispatcher: it records events to zap.
type LogDispatcher struct {
	Log *zap.Logger
}

// NewLogDispatcher returns a Dispatcher that only logs.
func NewLogDispatcher(logger *zap.Logger) *LogDispatcher {
	return &LogDispatcher{Log: logger}
}

// Dispatch implements Dispatcher.
func (d *LogDispatcher) Dispatch(ctx context.Context, ev Event) {
	fields := []zap.Field{
		zap.String("event", ev.Type),
		zap.String("group_id", ev.GroupID.Hex()),
		zap.String("outcome", ev.Outcome),
		zap.Time("at", ev.At),
	}
	if ev.BallotID != nil {
		fields = append(fields, zap.String("ballot_id", ev.BallotID.Hex()))
	}
	if ev.TargetID != nil {
		fields = append(fields, zap.String("target_id", ev.TargetID.Hex()))
	}
	if ev.Reason != "" {
		fields = append(fields, zap.String("reason", ev.Reason))
	}
	d.Log.Info("governance event", fields...)
}
