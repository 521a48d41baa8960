// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/civiclab/convene/internal/app/governance"
	"go.uber.org/zap"
)

// ProposalExpiryJob sweeps voting proposals older than ttl into expired.
func ProposalExpiryJob(engine *governance.Engine, logger *zap.Logger, interval, ttl time.Duration) Job {
	return Job{
		Name:     "proposal-expiry",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := engine.ExpireProposals(ctx, ttl)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("expired stale proposals",
					zap.Int("count", n),
					zap.Duration("ttl", ttl))
			}
			return nil
		},
	}
}

// JoinRequestExpiryJob sweeps live join requests older than ttl into
// expired.
func JoinRequestExpiryJob(engine *governance.Engine, logger *zap.Logger, interval, ttl time.Duration) Job {
	return Job{
		Name:     "join-request-expiry",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := engine.ExpireJoinRequests(ctx, ttl)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("expired stale join requests",
					zap.Int("count", n),
					zap.Duration("ttl", ttl))
			}
			return nil
		},
	}
}

// PollCloseJob closes polls whose voting window has passed.
func PollCloseJob(engine *governance.Engine, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "poll-close",
		Interval: interval,
		Run: func(ctx context.Context) error {
			n, err := engine.CloseDuePolls(ctx)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("closed due polls", zap.Int("count", n))
			}
			return nil
		},
	}
}
