// internal/app/governance/join.go
package governance

import (
	"context"
	"errors"
	"time"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/policy/leaderpolicy"
	joinrequeststore "github.com/civiclab/convene/internal/app/store/joinrequests"
	membershipstore "github.com/civiclab/convene/internal/app/store/memberships"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/app/system/sanitize"
	"github.com/civiclab/convene/internal/app/system/txn"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// JoinResult reports how a join attempt landed: either the caller was
// admitted directly (open group) or a ballot now awaits the leaders.
type JoinResult struct {
	Joined  bool
	Request *models.JoinRequest
}

// RequestJoin admits the caller directly when the group is open, otherwise
// opens a join-request ballot with the vote threshold frozen against the
// current leader roster.
func (e *Engine) RequestJoin(ctx context.Context, userID, groupID primitive.ObjectID, message string) (JoinResult, error) {
	group, err := e.loadGroup(ctx, groupID)
	if err != nil {
		return JoinResult{}, err
	}

	if exists, err := e.memberships.Exists(ctx, groupID, userID); err != nil {
		return JoinResult{}, err
	} else if exists {
		return JoinResult{}, apperr.New(apperr.InvalidState, "you are already a member of this group")
	}

	if group.Open {
		err := txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
			counts, err := e.memberships.RoleCounts(ctx, groupID)
			if err != nil {
				return err
			}
			if err := leaderpolicy.CheckAdmission(counts); err != nil {
				return err
			}
			err = e.memberships.Add(ctx, groupID, userID, models.RoleMember)
			if errors.Is(err, membershipstore.ErrDuplicateMembership) {
				return apperr.Wrap(apperr.InvalidState, "you are already a member of this group", err)
			}
			return err
		})
		if err != nil {
			return JoinResult{}, err
		}
		e.govLog.MemberJoined(ctx, groupID, userID, models.RoleMember)
		return JoinResult{Joined: true}, nil
	}

	counts, err := e.memberships.RoleCounts(ctx, groupID)
	if err != nil {
		return JoinResult{}, err
	}
	required := RequiredVotes(counts.Leaders())

	req, err := e.joins.Create(ctx, groupID, userID, sanitize.Text(message), required)
	if errors.Is(err, joinrequeststore.ErrLiveRequestExists) {
		return JoinResult{}, apperr.Wrap(apperr.InvalidState, "you already have a pending join request for this group", err)
	}
	if err != nil {
		return JoinResult{}, err
	}
	return JoinResult{Request: &req}, nil
}

// VoteJoin records a leader's vote on a join request. Re-voting overwrites
// the earlier choice. When the frozen threshold is met the request resolves
// in the same transaction; an approval that would violate the leadership
// rule aborts instead, leaving the ballot open until the group promotes.
func (e *Engine) VoteJoin(ctx context.Context, voterID, requestID primitive.ObjectID, choice string) (models.JoinRequest, error) {
	if choice != models.VoteApprove && choice != models.VoteReject {
		return models.JoinRequest{}, apperr.New(apperr.InvalidState, `vote must be "approve" or "reject"`)
	}

	req, err := e.joins.GetByID(ctx, requestID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if models.IsTerminalBallotStatus(req.Status) {
		return models.JoinRequest{}, apperr.New(apperr.InvalidState, "join request is already resolved")
	}

	role, err := e.memberRole(ctx, req.GroupID, voterID)
	if err != nil {
		return models.JoinRequest{}, err
	}
	if err := govpolicy.RequireLeader(role); err != nil {
		return models.JoinRequest{}, err
	}

	var (
		result     models.JoinRequest
		resolution *models.ResolutionDetails
	)
	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		resolution = nil

		prev, err := e.joins.UpsertVote(ctx, requestID, req.GroupID, voterID, choice)
		if err != nil {
			return err
		}
		approveDelta, rejectDelta := voteDeltas(prev, choice)

		updated, err := e.joins.ApplyVoteDelta(ctx, requestID, approveDelta, rejectDelta)
		if errors.Is(err, joinrequeststore.ErrAlreadyResolved) {
			return apperr.Wrap(apperr.InvalidState, "join request is already resolved", err)
		}
		if err != nil {
			return err
		}
		result = updated

		outcome := Outcome(updated.ApproveCount, updated.RejectCount, updated.RequiredVotes)
		if outcome == "" {
			return nil
		}

		if outcome == models.BallotApproved {
			counts, err := e.memberships.RoleCounts(ctx, req.GroupID)
			if err != nil {
				return err
			}
			// An under-led group may not grow. The abort keeps the ballot
			// open; the tally stands and resolution re-runs once the group
			// has promoted another leader.
			if err := leaderpolicy.CheckAdmission(counts); err != nil {
				return err
			}
			// A racing voter may have admitted the applicant already;
			// the resolution CAS below settles who records the outcome.
			err = e.memberships.Add(ctx, req.GroupID, req.UserID, models.RoleMember)
			if err != nil && !errors.Is(err, membershipstore.ErrDuplicateMembership) {
				return err
			}
		}

		resolved, err := e.joins.Resolve(ctx, requestID, outcome)
		if errors.Is(err, joinrequeststore.ErrAlreadyResolved) {
			return apperr.Wrap(apperr.InvalidState, "join request is already resolved", err)
		}
		if err != nil {
			return err
		}
		result = resolved
		resolution = &models.ResolutionDetails{
			Outcome:       outcome,
			ApproveCount:  resolved.ApproveCount,
			RejectCount:   resolved.RejectCount,
			RequiredVotes: resolved.RequiredVotes,
		}
		return nil
	})
	if err != nil {
		return models.JoinRequest{}, err
	}

	if resolution != nil {
		e.govLog.JoinResolved(ctx, result, *resolution)
		if resolution.Outcome == models.BallotApproved {
			e.govLog.MemberJoined(ctx, result.GroupID, result.UserID, models.RoleMember)
		}
		e.notifier.Dispatch(ctx, notify.Event{
			Type:     notify.EventJoinResolved,
			GroupID:  result.GroupID,
			BallotID: &result.ID,
			TargetID: &result.UserID,
			Outcome:  resolution.Outcome,
			At:       time.Now().UTC(),
		})
	}
	return result, nil
}
