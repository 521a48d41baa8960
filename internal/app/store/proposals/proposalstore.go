// internal/app/store/proposals/proposalstore.go

// Package proposalstore persists demote/kick governance proposals and their
// votes. The tally and compare-and-set mechanics mirror the join-request
// store; the extra constraint here is at most one live proposal per
// (group, target) pair, enforced by a partial unique index.
package proposalstore

import (
	"context"
	"errors"
	"time"

	"github.com/civiclab/convene/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	proposals *mongo.Collection
	votes     *mongo.Collection
}

var (
	ErrLiveProposalExists = errors.New("a live proposal already targets this member")
	ErrAlreadyResolved    = errors.New("proposal is already resolved")
)

func New(db *mongo.Database) *Store {
	return &Store{
		proposals: db.Collection("governance_proposals"),
		votes:     db.Collection("proposal_votes"),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.proposals.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "target_user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"status": models.BallotVoting,
			}),
		},
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}},
		},
	})
	if err != nil {
		return err
	}
	_, err = s.votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "proposal_id", Value: 1}, {Key: "voter_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new proposal in voting status with a frozen threshold.
func (s *Store) Create(ctx context.Context, p models.GovernanceProposal) (models.GovernanceProposal, error) {
	p.ID = primitive.NewObjectID()
	p.Status = models.BallotVoting
	p.ApproveCount = 0
	p.RejectCount = 0
	p.SchemaVersion = models.CurrentSchemaVersion
	p.CreatedAt = time.Now().UTC()
	p.ResolvedAt = nil
	if _, err := s.proposals.InsertOne(ctx, p); err != nil {
		if wafflemongo.IsDup(err) {
			return models.GovernanceProposal{}, ErrLiveProposalExists
		}
		return models.GovernanceProposal{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.GovernanceProposal, error) {
	var p models.GovernanceProposal
	if err := s.proposals.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.GovernanceProposal{}, err
	}
	return p, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.GovernanceProposal, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.proposals.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var props []models.GovernanceProposal
	if err := cur.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// UpsertVote records a leader's vote, overwriting any earlier one, and
// returns the previous choice ("" on first vote).
func (s *Store) UpsertVote(ctx context.Context, proposalID, groupID, voterID primitive.ObjectID, choice string) (string, error) {
	res := s.votes.FindOneAndUpdate(ctx,
		bson.M{"proposal_id": proposalID, "voter_id": voterID},
		bson.M{
			"$set": bson.M{
				"choice":  choice,
				"cast_at": time.Now().UTC(),
			},
			"$setOnInsert": bson.M{
				"proposal_id": proposalID,
				"group_id":    groupID,
				"voter_id":    voterID,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.Before))

	var prev models.ProposalVote
	err := res.Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prev.Choice, nil
}

// ApplyVoteDelta moves the proposal's counters while it is still in voting
// status. A vote landing after resolution fails with ErrAlreadyResolved.
func (s *Store) ApplyVoteDelta(ctx context.Context, proposalID primitive.ObjectID, approveDelta, rejectDelta int) (models.GovernanceProposal, error) {
	res := s.proposals.FindOneAndUpdate(ctx,
		bson.M{"_id": proposalID, "status": models.BallotVoting},
		bson.M{"$inc": bson.M{
			"approve_count": approveDelta,
			"reject_count":  rejectDelta,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var p models.GovernanceProposal
	err := res.Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.GovernanceProposal{}, ErrAlreadyResolved
	}
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	return p, nil
}

// Resolve performs the compare-and-set transition from voting to the
// terminal outcome. Exactly one caller wins.
func (s *Store) Resolve(ctx context.Context, proposalID primitive.ObjectID, outcome string) (models.GovernanceProposal, error) {
	now := time.Now().UTC()
	res := s.proposals.FindOneAndUpdate(ctx,
		bson.M{"_id": proposalID, "status": models.BallotVoting},
		bson.M{"$set": bson.M{
			"status":      outcome,
			"resolved_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var p models.GovernanceProposal
	err := res.Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.GovernanceProposal{}, ErrAlreadyResolved
	}
	if err != nil {
		return models.GovernanceProposal{}, err
	}
	return p, nil
}

// ListLiveOlderThan returns voting proposals created before cutoff, for the
// expiry sweep.
func (s *Store) ListLiveOlderThan(ctx context.Context, cutoff time.Time) ([]models.GovernanceProposal, error) {
	cur, err := s.proposals.Find(ctx, bson.M{
		"status":     models.BallotVoting,
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var props []models.GovernanceProposal
	if err := cur.All(ctx, &props); err != nil {
		return nil, err
	}
	return props, nil
}

// Votes returns the votes cast on a proposal.
func (s *Store) Votes(ctx context.Context, proposalID primitive.ObjectID) ([]models.ProposalVote, error) {
	cur, err := s.votes.Find(ctx, bson.M{"proposal_id": proposalID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var votes []models.ProposalVote
	if err := cur.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}
