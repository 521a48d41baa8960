// internal/app/governance/sweeper.go
package governance

import (
	"context"
	"errors"
	"time"

	joinrequeststore "github.com/civiclab/convene/internal/app/store/joinrequests"
	pollstore "github.com/civiclab/convene/internal/app/store/polls"
	proposalstore "github.com/civiclab/convene/internal/app/store/proposals"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpireJoinRequests force-expires live join requests older than ttl. Each
// transition is a compare-and-set, so a request that resolves mid-sweep is
// skipped, and re-running a sweep is harmless. Returns the number expired.
func (e *Engine) ExpireJoinRequests(ctx context.Context, ttl time.Duration) (int, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	stale, err := e.joins.ListLiveOlderThan(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, req := range stale {
		resolved, err := e.joins.Resolve(ctx, req.ID, models.BallotExpired)
		if errors.Is(err, joinrequeststore.ErrAlreadyResolved) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++

		e.govLog.JoinExpired(ctx, resolved, models.SweepDetails{
			RunID: runID,
			Age:   now.Sub(resolved.CreatedAt).Round(time.Second).String(),
		})
		e.notifier.Dispatch(ctx, notify.Event{
			Type:     notify.EventBallotExpired,
			GroupID:  resolved.GroupID,
			BallotID: &resolved.ID,
			TargetID: &resolved.UserID,
			Outcome:  models.BallotExpired,
			At:       now,
		})
	}

	if expired > 0 {
		e.log.Info("join request sweep complete",
			zap.String("run_id", runID),
			zap.Int("expired", expired),
		)
	}
	return expired, nil
}

// ExpireProposals force-expires voting proposals older than ttl, with the
// same compare-and-set idempotence as the join-request sweep.
func (e *Engine) ExpireProposals(ctx context.Context, ttl time.Duration) (int, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	stale, err := e.proposals.ListLiveOlderThan(ctx, now.Add(-ttl))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, p := range stale {
		resolved, err := e.proposals.Resolve(ctx, p.ID, models.BallotExpired)
		if errors.Is(err, proposalstore.ErrAlreadyResolved) {
			continue
		}
		if err != nil {
			return expired, err
		}
		expired++

		e.govLog.ProposalExpired(ctx, resolved, models.SweepDetails{
			RunID: runID,
			Age:   now.Sub(resolved.CreatedAt).Round(time.Second).String(),
		})
		e.notifier.Dispatch(ctx, notify.Event{
			Type:     notify.EventBallotExpired,
			GroupID:  resolved.GroupID,
			BallotID: &resolved.ID,
			TargetID: &resolved.TargetUserID,
			Outcome:  models.BallotExpired,
			At:       now,
		})
	}

	if expired > 0 {
		e.log.Info("proposal sweep complete",
			zap.String("run_id", runID),
			zap.Int("expired", expired),
		)
	}
	return expired, nil
}

// CloseDuePolls closes polls whose window has passed and records the
// plurality result. Returns the number closed.
func (e *Engine) CloseDuePolls(ctx context.Context) (int, error) {
	runID := uuid.NewString()
	now := time.Now().UTC()

	due, err := e.polls.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	closed := 0
	for _, poll := range due {
		result := pollResult(poll, now)
		closedPoll, err := e.polls.Close(ctx, poll.ID, result)
		if errors.Is(err, pollstore.ErrAlreadyClosed) {
			continue
		}
		if err != nil {
			return closed, err
		}
		closed++

		e.govLog.PollClosed(ctx, closedPoll, result)
		e.notifier.Dispatch(ctx, notify.Event{
			Type:     notify.EventPollClosed,
			GroupID:  closedPoll.GroupID,
			BallotID: &closedPoll.ID,
			Outcome:  result.WinningOption,
			At:       now,
		})
	}

	if closed > 0 {
		e.log.Info("poll sweep complete",
			zap.String("run_id", runID),
			zap.Int("closed", closed),
		)
	}
	return closed, nil
}
