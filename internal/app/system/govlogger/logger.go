// internal/app/system/govlogger/logger.go

// Package govlogger is the write path for the governance log. It records
// each entry to MongoDB via the govlog store and mirrors it to zap. A
// failed store write is reported to zap and otherwise swallowed: governance
// operations never fail because the log could not be written.
package govlogger

import (
	"context"

	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Logger provides typed recording methods per governance action.
type Logger struct {
	store  *govlogstore.Store
	zapLog *zap.Logger
}

// New creates a governance Logger.
func New(store *govlogstore.Store, zapLog *zap.Logger) *Logger {
	return &Logger{store: store, zapLog: zapLog}
}

// Record writes one entry. If the logger is nil it is a no-op, which lets
// tests pass a nil logger.
func (l *Logger) Record(ctx context.Context, entry models.GovernanceLogEntry) {
	if l == nil {
		return
	}

	fields := []zap.Field{
		zap.String("group_id", entry.GroupID.Hex()),
		zap.String("action", entry.Action),
	}
	if entry.ActorID != nil {
		fields = append(fields, zap.String("actor_id", entry.ActorID.Hex()))
	}
	if entry.TargetUserID != nil {
		fields = append(fields, zap.String("target_user_id", entry.TargetUserID.Hex()))
	}
	if res := entry.Details.Resolution; res != nil {
		fields = append(fields,
			zap.String("outcome", res.Outcome),
			zap.Int("approve_count", res.ApproveCount),
			zap.Int("reject_count", res.RejectCount),
			zap.Int("required_votes", res.RequiredVotes),
		)
		if res.OverrideReason != "" {
			fields = append(fields, zap.String("override_reason", res.OverrideReason))
		}
	}
	if sweep := entry.Details.Sweep; sweep != nil {
		fields = append(fields,
			zap.String("sweep_run_id", sweep.RunID),
			zap.String("ballot_age", sweep.Age),
		)
	}
	l.zapLog.Info("governance log", fields...)

	if err := l.store.Append(ctx, entry); err != nil {
		l.zapLog.Error("failed to append governance log entry",
			zap.Error(err),
			zap.String("group_id", entry.GroupID.Hex()),
			zap.String("action", entry.Action),
		)
	}
}

// GroupCreated records a new group and its founding member.
func (l *Logger) GroupCreated(ctx context.Context, groupID, founderID primitive.ObjectID) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID: groupID,
		Action:  models.LogGroupCreated,
		ActorID: &founderID,
		Details: models.LogDetails{
			Membership: &models.MembershipDetails{Role: models.RoleFounder},
		},
	})
}

// SettingsChanged records a settings update and what it touched.
func (l *Logger) SettingsChanged(ctx context.Context, groupID, actorID primitive.ObjectID, patch models.GroupSettingsPatch) {
	details := &models.SettingsDetails{
		FoundersOnlyRules: patch.FoundersOnlyRules,
		Open:              patch.Open,
	}
	if patch.TransparencyMode != nil {
		details.TransparencyMode = *patch.TransparencyMode
	}
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID: groupID,
		Action:  models.LogSettingsChanged,
		ActorID: &actorID,
		Details: models.LogDetails{Settings: details},
	})
}

// MemberJoined records a member entering the group.
func (l *Logger) MemberJoined(ctx context.Context, groupID, userID primitive.ObjectID, role string) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      groupID,
		Action:       models.LogMemberJoined,
		TargetUserID: &userID,
		Details: models.LogDetails{
			Membership: &models.MembershipDetails{Role: role},
		},
	})
}

// MemberPromoted records a role elevation.
func (l *Logger) MemberPromoted(ctx context.Context, groupID, actorID, targetID primitive.ObjectID, prevRole, newRole string) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      groupID,
		Action:       models.LogMemberPromoted,
		ActorID:      &actorID,
		TargetUserID: &targetID,
		Details: models.LogDetails{
			Membership: &models.MembershipDetails{Role: newRole, PrevRole: prevRole},
		},
	})
}

// MemberLeft records a voluntary departure.
func (l *Logger) MemberLeft(ctx context.Context, groupID, userID primitive.ObjectID, role string) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      groupID,
		Action:       models.LogMemberLeft,
		ActorID:      &userID,
		TargetUserID: &userID,
		Details: models.LogDetails{
			Membership: &models.MembershipDetails{Role: role},
		},
	})
}

// JoinResolved records a join request reaching quorum.
func (l *Logger) JoinResolved(ctx context.Context, req models.JoinRequest, resolution models.ResolutionDetails) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      req.GroupID,
		Action:       models.LogJoinResolved,
		TargetUserID: &req.UserID,
		RequestID:    &req.ID,
		Details:      models.LogDetails{Resolution: &resolution},
	})
}

// JoinExpired records the sweeper expiring a join request.
func (l *Logger) JoinExpired(ctx context.Context, req models.JoinRequest, sweep models.SweepDetails) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      req.GroupID,
		Action:       models.LogJoinExpired,
		TargetUserID: &req.UserID,
		RequestID:    &req.ID,
		Details:      models.LogDetails{Sweep: &sweep},
	})
}

// ProposalResolved records a proposal reaching quorum, including an
// invariant override when the tally approved but the rule forced rejection.
func (l *Logger) ProposalResolved(ctx context.Context, p models.GovernanceProposal, resolution models.ResolutionDetails) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      p.GroupID,
		Action:       models.LogProposalResolved,
		TargetUserID: &p.TargetUserID,
		ProposalID:   &p.ID,
		Details:      models.LogDetails{Resolution: &resolution},
	})
}

// ProposalExpired records the sweeper expiring a proposal.
func (l *Logger) ProposalExpired(ctx context.Context, p models.GovernanceProposal, sweep models.SweepDetails) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID:      p.GroupID,
		Action:       models.LogProposalExpired,
		TargetUserID: &p.TargetUserID,
		ProposalID:   &p.ID,
		Details:      models.LogDetails{Sweep: &sweep},
	})
}

// PollClosed records a poll closing with its result.
func (l *Logger) PollClosed(ctx context.Context, poll models.Poll, result models.PollResult) {
	l.Record(ctx, models.GovernanceLogEntry{
		GroupID: poll.GroupID,
		Action:  models.LogPollClosed,
		PollID:  &poll.ID,
		Details: models.LogDetails{
			Poll: &models.PollDetails{
				WinningOption: result.WinningOption,
				TotalVotes:    result.TotalVotes,
			},
		},
	})
}
