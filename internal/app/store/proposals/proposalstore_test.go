package proposalstore_test

import (
	"errors"
	"testing"

	proposalstore "github.com/civiclab/convene/internal/app/store/proposals"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/civiclab/convene/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newProposal(groupID primitive.ObjectID) models.GovernanceProposal {
	return models.GovernanceProposal{
		GroupID:       groupID,
		Action:        models.ProposalDemote,
		ProposerID:    primitive.NewObjectID(),
		TargetUserID:  primitive.NewObjectID(),
		Reason:        "inactive for months",
		RequiredVotes: 2,
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := proposalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newProposal(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.Status != models.BallotVoting {
		t.Errorf("status: got %q, want %q", created.Status, models.BallotVoting)
	}
	if created.ApproveCount != 0 || created.RejectCount != 0 {
		t.Errorf("counts should start at zero, got %d/%d", created.ApproveCount, created.RejectCount)
	}
	if created.RequiredVotes != 2 {
		t.Errorf("RequiredVotes: got %d, want 2", created.RequiredVotes)
	}
}

func TestStore_Create_DuplicateLiveTarget(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := proposalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := store.EnsureIndexes(ctx); err != nil {
		t.Fatalf("EnsureIndexes failed: %v", err)
	}

	p := newProposal(primitive.NewObjectID())
	first, err := store.Create(ctx, p)
	if err != nil {
		t.Fatalf("first Create failed: %v", err)
	}

	// Same target, different proposer and action: still blocked while live.
	dup := p
	dup.ProposerID = primitive.NewObjectID()
	dup.Action = models.ProposalKick
	_, err = store.Create(ctx, dup)
	if !errors.Is(err, proposalstore.ErrLiveProposalExists) {
		t.Errorf("expected ErrLiveProposalExists, got %v", err)
	}

	// After resolution the target can be proposed against again.
	if _, err := store.Resolve(ctx, first.ID, models.BallotRejected); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := store.Create(ctx, dup); err != nil {
		t.Errorf("Create after resolution failed: %v", err)
	}
}

func TestStore_UpsertVote_Overwrite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := proposalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	created, err := store.Create(ctx, newProposal(groupID))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	voterID := primitive.NewObjectID()

	prev, err := store.UpsertVote(ctx, created.ID, groupID, voterID, models.VoteReject)
	if err != nil {
		t.Fatalf("first UpsertVote failed: %v", err)
	}
	if prev != "" {
		t.Errorf("first vote should have no previous choice, got %q", prev)
	}

	prev, err = store.UpsertVote(ctx, created.ID, groupID, voterID, models.VoteApprove)
	if err != nil {
		t.Fatalf("second UpsertVote failed: %v", err)
	}
	if prev != models.VoteReject {
		t.Errorf("previous choice: got %q, want %q", prev, models.VoteReject)
	}
}

func TestStore_ApplyVoteDelta(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := proposalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newProposal(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	updated, err := store.ApplyVoteDelta(ctx, created.ID, 1, 0)
	if err != nil {
		t.Fatalf("ApplyVoteDelta failed: %v", err)
	}
	if updated.ApproveCount != 1 || updated.RejectCount != 0 {
		t.Errorf("counts: got %d/%d, want 1/0", updated.ApproveCount, updated.RejectCount)
	}
}

func TestStore_Resolve_ExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := proposalstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, newProposal(primitive.NewObjectID()))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	resolved, err := store.Resolve(ctx, created.ID, models.BallotExpired)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if resolved.Status != models.BallotExpired {
		t.Errorf("status: got %q, want %q", resolved.Status, models.BallotExpired)
	}
	if resolved.ResolvedAt == nil {
		t.Error("expected ResolvedAt to be set")
	}

	_, err = store.Resolve(ctx, created.ID, models.BallotApproved)
	if !errors.Is(err, proposalstore.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}

	_, err = store.ApplyVoteDelta(ctx, created.ID, 1, 0)
	if !errors.Is(err, proposalstore.ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved on late vote, got %v", err)
	}
}
