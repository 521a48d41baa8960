// internal/app/store/joinrequests/joinrequeststore.go

// Package joinrequeststore persists join-request ballots and their votes.
//
// Vote tallies live on the ballot document (approve_count/reject_count) and
// are moved by ApplyVoteDelta in the same transaction as the vote upsert, so
// resolution reads a single document. All status transitions out of a live
// state go through compare-and-set filters; a lost race surfaces as
// ErrAlreadyResolved rather than a double resolution.
package joinrequeststore

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
	requests *mongo.Collection
	votes    *mongo.Collection
}

var (
	ErrLiveRequestExists = errors.New("user already has a live join request for this group")
	ErrAlreadyResolved   = errors.New("join request is already resolved")
)

func New(db *mongo.Database) *Store {
	return &Store{
		requests: db.Collection("join_requests"),
		votes:    db.Collection("join_request_votes"),
	}
}

// EnsureIndexes creates the one-live-request-per-(group,user) partial unique
// index, the one-vote-per-voter unique index, and the sweep/list indexes.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.requests.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetPartialFilterExpression(bson.M{
				"status": bson.M{"$in": []string{models.BallotPending, models.BallotVoting}},
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
		Keys:    bson.D{{Key: "request_id", Value: 1}, {Key: "voter_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new pending request with a frozen vote threshold.
func (s *Store) Create(ctx context.Context, groupID, userID primitive.ObjectID, message string, requiredVotes int) (models.JoinRequest, error) {
	req := models.JoinRequest{
		ID:            primitive.NewObjectID(),
		GroupID:       groupID,
		UserID:        userID,
		Status:        models.BallotPending,
		Message:       message,
		RequiredVotes: requiredVotes,
		SchemaVersion: models.CurrentSchemaVersion,
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := s.requests.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return models.JoinRequest{}, ErrLiveRequestExists
		}
		return models.JoinRequest{}, err
	}
	return req, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.JoinRequest, error) {
	var req models.JoinRequest
	if err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req); err != nil {
		return models.JoinRequest{}, err
	}
	return req, nil
}

// ListByGroup returns a group's requests, newest first, optionally filtered
// by status.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.JoinRequest, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.requests.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reqs []models.JoinRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// UpsertVote records a leader's vote, overwriting any earlier one, and
// returns the previous choice ("" if this is the voter's first vote).
func (s *Store) UpsertVote(ctx context.Context, requestID, groupID, voterID primitive.ObjectID, choice string) (string, error) {
	res := s.votes.FindOneAndUpdate(ctx,
		bson.M{"request_id": requestID, "voter_id": voterID},
		bson.M{
			"$set": bson.M{
				"choice":  choice,
				"cast_at": time.Now().UTC(),
			},
			"$setOnInsert": bson.M{
				"request_id": requestID,
				"group_id":   groupID,
				"voter_id":   voterID,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.Before))

	var prev models.JoinRequestVote
	err := res.Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return prev.Choice, nil
}

// ApplyVoteDelta moves the ballot's counters and lifts it out of pending.
// The filter requires a live status, so a vote landing after resolution
// fails with ErrAlreadyResolved. Returns the updated request.
func (s *Store) ApplyVoteDelta(ctx context.Context, requestID primitive.ObjectID, approveDelta, rejectDelta int) (models.JoinRequest, error) {
	res := s.requests.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    requestID,
			"status": bson.M{"$in": []string{models.BallotPending, models.BallotVoting}},
		},
		bson.M{
			"$inc": bson.M{
				"approve_count": approveDelta,
				"reject_count":  rejectDelta,
			},
			"$set": bson.M{"status": models.BallotVoting},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var req models.JoinRequest
	err := res.Decode(&req)
	if err == mongo.ErrNoDocuments {
		return models.JoinRequest{}, ErrAlreadyResolved
	}
	if err != nil {
		return models.JoinRequest{}, err
	}
	return req, nil
}

// Resolve performs the compare-and-set transition from a live status to the
// terminal outcome. Exactly one caller wins; the rest get ErrAlreadyResolved.
func (s *Store) Resolve(ctx context.Context, requestID primitive.ObjectID, outcome string) (models.JoinRequest, error) {
	now := time.Now().UTC()
	res := s.requests.FindOneAndUpdate(ctx,
		bson.M{
			"_id":    requestID,
			"status": bson.M{"$in": []string{models.BallotPending, models.BallotVoting}},
		},
		bson.M{"$set": bson.M{
			"status":      outcome,
			"resolved_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var req models.JoinRequest
	err := res.Decode(&req)
	if err == mongo.ErrNoDocuments {
		return models.JoinRequest{}, ErrAlreadyResolved
	}
	if err != nil {
		return models.JoinRequest{}, err
	}
	return req, nil
}

// ListLiveOlderThan returns live requests created before cutoff, for the
// expiry sweep. The sweeper expires each through Resolve, so a concurrent
// resolution cannot be clobbered.
func (s *Store) ListLiveOlderThan(ctx context.Context, cutoff time.Time) ([]models.JoinRequest, error) {
	cur, err := s.requests.Find(ctx, bson.M{
		"status":     bson.M{"$in": []string{models.BallotPending, models.BallotVoting}},
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var reqs []models.JoinRequest
	if err := cur.All(ctx, &reqs); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Votes returns the votes cast on a request.
func (s *Store) Votes(ctx context.Context, requestID primitive.ObjectID) ([]models.JoinRequestVote, error) {
	cur, err := s.votes.Find(ctx, bson.M{"request_id": requestID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var votes []models.JoinRequestVote
	if err := cur.All(ctx, &votes); err != nil {
		return nil, err
	}
	return votes, nil
}
