// internal/app/governance/proposals.go
package governance

import (
	"context"
	"errors"
	"time"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	"github.com/civiclab/convene/internal/app/policy/leaderpolicy"
	membershipstore "github.com/civiclab/convene/internal/app/store/memberships"
	proposalstore "github.com/civiclab/convene/internal/app/store/proposals"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/app/system/sanitize"
	"github.com/civiclab/convene/internal/app/system/txn"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Propose opens a demote or kick ballot against a member. The proposer does
// not vote, so the frozen threshold is a majority of the other leaders.
func (e *Engine) Propose(ctx context.Context, proposerID, groupID, targetID primitive.ObjectID, action, reason string) (models.GovernanceProposal, error) {
	if action != models.ProposalDemote && action != models.ProposalKick {
		return models.GovernanceProposal{}, apperr.New(apperr.InvalidState, `action must be "demote" or "kick"`)
	}
	if proposerID == targetID {
		return models.GovernanceProposal{}, apperr.New(apperr.InvalidState, "you cannot open a proposal against yourself; leave the group instead")
	}

	if _, err := e.loadGroup(ctx, groupID); err != nil {
		return models.GovernanceProposal{}, err
	}
	proposerRole, err := e.memberRole(ctx, groupID, proposerID)
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	if err := govpolicy.RequireLeader(proposerRole); err != nil {
		return models.GovernanceProposal{}, err
	}

	targetRole, err := e.memberships.GetRole(ctx, groupID, targetID)
	if errors.Is(err, membershipstore.ErrNotMember) {
		return models.GovernanceProposal{}, apperr.New(apperr.NotFound, "target is not a member of this group")
	}
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	if action == models.ProposalDemote && !models.IsLeaderRole(targetRole) {
		return models.GovernanceProposal{}, apperr.New(apperr.InvalidState, "target already holds the member role")
	}

	counts, err := e.memberships.RoleCounts(ctx, groupID)
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	required := RequiredVotes(counts.Leaders() - 1)

	created, err := e.proposals.Create(ctx, models.GovernanceProposal{
		GroupID:       groupID,
		Action:        action,
		ProposerID:    proposerID,
		TargetUserID:  targetID,
		Reason:        sanitize.Text(reason),
		RequiredVotes: required,
	})
	if errors.Is(err, proposalstore.ErrLiveProposalExists) {
		return models.GovernanceProposal{}, apperr.Wrap(apperr.InvalidState, "a live proposal already targets this member", err)
	}
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	return created, nil
}

// VoteProposal records a leader's vote on a proposal. The proposer is
// barred from voting. When the threshold is met the proposal resolves in
// the same transaction: an approved demote or kick applies immediately,
// except that one which would leave the group under-led is recorded as
// rejected with the override reason instead of being applied.
func (e *Engine) VoteProposal(ctx context.Context, voterID, proposalID primitive.ObjectID, choice string) (models.GovernanceProposal, error) {
	if choice != models.VoteApprove && choice != models.VoteReject {
		return models.GovernanceProposal{}, apperr.New(apperr.InvalidState, `vote must be "approve" or "reject"`)
	}

	p, err := e.proposals.GetByID(ctx, proposalID)
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	if models.IsTerminalBallotStatus(p.Status) {
		return models.GovernanceProposal{}, apperr.New(apperr.InvalidState, "proposal is already resolved")
	}
	if err := govpolicy.RequireVoterNotProposer(voterID.Hex(), p.ProposerID.Hex()); err != nil {
		return models.GovernanceProposal{}, err
	}

	role, err := e.memberRole(ctx, p.GroupID, voterID)
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	if err := govpolicy.RequireLeader(role); err != nil {
		return models.GovernanceProposal{}, err
	}

	var (
		result     models.GovernanceProposal
		resolution *models.ResolutionDetails
	)
	err = txn.Run(ctx, e.db, e.log, func(ctx context.Context) error {
		resolution = nil

		prev, err := e.proposals.UpsertVote(ctx, proposalID, p.GroupID, voterID, choice)
		if err != nil {
			return err
		}
		approveDelta, rejectDelta := voteDeltas(prev, choice)

		updated, err := e.proposals.ApplyVoteDelta(ctx, proposalID, approveDelta, rejectDelta)
		if errors.Is(err, proposalstore.ErrAlreadyResolved) {
			return apperr.Wrap(apperr.InvalidState, "proposal is already resolved", err)
		}
		if err != nil {
			return err
		}
		result = updated

		outcome := Outcome(updated.ApproveCount, updated.RejectCount, updated.RequiredVotes)
		if outcome == "" {
			return nil
		}

		overrideReason := ""
		if outcome == models.BallotApproved {
			applied, reason, err := e.applyProposalAction(ctx, updated)
			if err != nil {
				return err
			}
			if !applied {
				outcome = models.BallotRejected
				overrideReason = reason
			}
		}

		resolved, err := e.proposals.Resolve(ctx, proposalID, outcome)
		if errors.Is(err, proposalstore.ErrAlreadyResolved) {
			return apperr.Wrap(apperr.InvalidState, "proposal is already resolved", err)
		}
		if err != nil {
			return err
		}
		result = resolved
		resolution = &models.ResolutionDetails{
			Outcome:        outcome,
			ApproveCount:   resolved.ApproveCount,
			RejectCount:    resolved.RejectCount,
			RequiredVotes:  resolved.RequiredVotes,
			OverrideReason: overrideReason,
		}
		return nil
	})
	if err != nil {
		return models.GovernanceProposal{}, err
	}

	if resolution != nil {
		e.govLog.ProposalResolved(ctx, result, *resolution)
		e.notifier.Dispatch(ctx, notify.Event{
			Type:     notify.EventProposalResolved,
			GroupID:  result.GroupID,
			BallotID: &result.ID,
			TargetID: &result.TargetUserID,
			Outcome:  resolution.Outcome,
			Reason:   resolution.OverrideReason,
			At:       time.Now().UTC(),
		})
		if resolution.OverrideReason != "" {
			e.notifier.Dispatch(ctx, notify.Event{
				Type:     notify.EventInvariantBreach,
				GroupID:  result.GroupID,
				BallotID: &result.ID,
				TargetID: &result.TargetUserID,
				Outcome:  resolution.Outcome,
				Reason:   resolution.OverrideReason,
				At:       time.Now().UTC(),
			})
		}
	}
	return result, nil
}

// applyProposalAction executes an approved demote or kick. It returns
// applied=false with the override reason when the leadership rule blocks
// the change; a target who already left counts as applied (nothing to do).
func (e *Engine) applyProposalAction(ctx context.Context, p models.GovernanceProposal) (applied bool, reason string, err error) {
	targetRole, err := e.memberships.GetRole(ctx, p.GroupID, p.TargetUserID)
	if errors.Is(err, membershipstore.ErrNotMember) {
		return true, "", nil
	}
	if err != nil {
		return false, "", err
	}

	counts, err := e.memberships.RoleCounts(ctx, p.GroupID)
	if err != nil {
		return false, "", err
	}

	var change leaderpolicy.Change
	switch p.Action {
	case models.ProposalDemote:
		change = leaderpolicy.Change{Kind: leaderpolicy.ChangeDemote, Role: targetRole}
	case models.ProposalKick:
		change = leaderpolicy.Change{Kind: leaderpolicy.ChangeKick, Role: targetRole}
	}
	if err := leaderpolicy.CheckChange(counts, change); err != nil {
		return false, apperr.ReasonOf(err), nil
	}

	switch p.Action {
	case models.ProposalDemote:
		err = e.memberships.SetRole(ctx, p.GroupID, p.TargetUserID, models.RoleMember)
	case models.ProposalKick:
		err = e.memberships.Remove(ctx, p.GroupID, p.TargetUserID)
	}
	if errors.Is(err, membershipstore.ErrNotMember) {
		return true, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return true, "", nil
}
