// internal/app/governance/polls.go
package governance

import (
	"context"
	"errors"
	"time"

	pollstore "github.com/civiclab/convene/internal/app/store/polls"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/sanitize"
	"github.com/civiclab/convene/internal/app/system/txn"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Poll duration bounds. Durations outside the window are clamped rather
// than rejected; a zero duration takes the default.
const (
	MinPollDuration     = 5 * time.Minute
	MaxPollDuration     = 7 * 24 * time.Hour
	DefaultPollDuration = 24 * time.Hour
)

// CreatePoll opens a time-boxed, non-binding poll for the group. Any member
// may create one.
func (e *Engine) CreatePoll(ctx context.Context, creatorID, groupID primitive.ObjectID, question string, options []models.PollOption, duration time.Duration) (models.Poll, error) {
	if _, err := e.loadGroup(ctx, groupID); err != nil {
		return models.Poll{}, err
	}
	if _, err := e.memberRole(ctx, groupID, creatorID); err != nil {
		return models.Poll{}, err
	}

	question = sanitize.Text(question)
	if question == "" {
		return models.Poll{}, apperr.New(apperr.InvalidState, "poll question is required")
	}
	if len(options) < 2 {
		return models.Poll{}, apperr.New(apperr.InvalidState, "a poll needs at least two options")
	}
	seen := make(map[string]bool, len(options))
	for i, opt := range options {
		key := sanitize.Text(opt.Key)
		if key == "" {
			return models.Poll{}, apperr.New(apperr.InvalidState, "poll options need non-empty keys")
		}
		if seen[key] {
			return models.Poll{}, apperr.New(apperr.InvalidState, "poll option keys must be unique")
		}
		seen[key] = true
		options[i].Key = key
		options[i].Label = sanitize.Text(opt.Label)
	}

	switch {
	case duration == 0:
		duration = DefaultPollDuration
	case duration < MinPollDuration:
		duration = MinPollDuration
	case duration > MaxPollDuration:
		duration = MaxPollDuration
	}

	return e.polls.Create(ctx, models.Poll{
		GroupID:   groupID,
		CreatorID: creatorID,
		Question:  question,
		Options:   options,
		ClosesAt:  time.Now().UTC().Add(duration),
	})
}

// VotePoll records a member's vote on an open poll. Re-voting moves the
// tally from the old option to the new one.
func (e *Engine) VotePoll(ctx context.Context, voterID, pollID primitive.ObjectID, optionKey string) (models.Poll, error) {
	poll, err := e.polls.GetByID(ctx, pollID)
	if err != nil {
		return models.Poll{}, err
	}
	if poll.Status != models.PollVoting || time.Now().UTC().After(poll.ClosesAt) {
		return models.Poll{}, apperr.New(apperr.InvalidState, "poll is closed")
	}
	valid := false
	for _, opt := range poll.Options {
		if opt.Key == optionKey {
			valid = true
			break
		}
	}
	if !valid {
		return models.Poll{}, apperr.New(apperr.InvalidState, "unknown poll option")
	}

	if _, err := e.memberRole(ctx, poll.GroupID, voterID); err != nil {
		return models.Poll{}, err
	}

	var result models.Poll
	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		prev, err := e.polls.UpsertVote(ctx, pollID, poll.GroupID, voterID, optionKey)
		if err != nil {
			return err
		}
		if prev == optionKey {
			result = poll
			return nil
		}
		updated, err := e.polls.ApplyVoteDelta(ctx, pollID, optionKey, prev)
		if errors.Is(err, pollstore.ErrAlreadyClosed) {
			return apperr.Wrap(apperr.InvalidState, "poll is closed", err)
		}
		if err != nil {
			return err
		}
		result = updated
		return nil
	})
	if err != nil {
		return models.Poll{}, err
	}
	return result, nil
}

// pollResult derives the plurality result from a poll's counters. Ties and
// empty polls leave WinningOption blank.
func pollResult(poll models.Poll, closedAt time.Time) models.PollResult {
	result := models.PollResult{ClosedAt: closedAt}
	best := 0
	for _, opt := range poll.Options {
		n := poll.Counts[opt.Key]
		result.TotalVotes += n
		switch {
		case n > best:
			best = n
			result.WinningOption = opt.Key
		case n == best && n > 0:
			result.WinningOption = ""
		}
	}
	return result
}
