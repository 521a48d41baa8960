// internal/app/governance/tally.go
package governance

import "github.com/civiclab/convene/internal/domain/models"

// RequiredVotes is the approval threshold frozen onto a ballot at creation:
// a simple majority of the voters eligible at that moment, never below one.
// Later roster changes do not move a frozen threshold.
func RequiredVotes(eligibleVoters int) int {
	if eligibleVoters <= 1 {
		return 1
	}
	return eligibleVoters/2 + 1
}

// Outcome returns the terminal status a tally has reached, or "" while the
// ballot stays open. Rejection uses the same threshold as approval.
func Outcome(approve, reject, required int) string {
	switch {
	case approve >= required:
		return models.BallotApproved
	case reject >= required:
		return models.BallotRejected
	}
	return ""
}

// voteDeltas converts a previous and new choice into counter increments.
// A repeated identical vote moves nothing.
func voteDeltas(prev, choice string) (approveDelta, rejectDelta int) {
	if prev == choice {
		return 0, 0
	}
	switch choice {
	case models.VoteApprove:
		approveDelta = 1
	case models.VoteReject:
		rejectDelta = 1
	}
	switch prev {
	case models.VoteApprove:
		approveDelta--
	case models.VoteReject:
		rejectDelta--
	}
	return approveDelta, rejectDelta
}
