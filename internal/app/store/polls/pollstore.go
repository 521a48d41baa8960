// internal/app/store/polls/pollstore.go

// Package pollstore persists time-boxed group polls and their votes. Votes
// are tallied on the poll document (counts.<option>) in the same transaction
// as the vote upsert; the sweeper closes due polls with a compare-and-set so
// each poll is resolved exactly once.
package pollstore

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
	polls *mongo.Collection
	votes *mongo.Collection
}

var ErrAlreadyClosed = errors.New("poll is already closed")

func New(db *mongo.Database) *Store {
	return &Store{
		polls: db.Collection("polls"),
		votes: db.Collection("poll_votes"),
	}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.polls.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "closes_at", Value: 1}},
		},
	})
	if err != nil {
		return err
	}
	_, err = s.votes.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "poll_id", Value: 1}, {Key: "voter_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create inserts a new poll in voting status with zeroed counts.
func (s *Store) Create(ctx context.Context, p models.Poll) (models.Poll, error) {
	p.ID = primitive.NewObjectID()
	p.Status = models.PollVoting
	p.Counts = make(map[string]int, len(p.Options))
	for _, opt := range p.Options {
		p.Counts[opt.Key] = 0
	}
	p.Result = nil
	p.SchemaVersion = models.CurrentSchemaVersion
	p.CreatedAt = time.Now().UTC()
	if _, err := s.polls.InsertOne(ctx, p); err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Poll, error) {
	var p models.Poll
	if err := s.polls.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, status string) ([]models.Poll, error) {
	filter := bson.M{"group_id": groupID}
	if status != "" {
		filter["status"] = status
	}
	cur, err := s.polls.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var polls []models.Poll
	if err := cur.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}

// UpsertVote records a member's vote, overwriting any earlier one, and
// returns the previously selected option key ("" on first vote).
func (s *Store) UpsertVote(ctx context.Context, pollID, groupID, voterID primitive.ObjectID, optionKey string) (string, error) {
	res := s.votes.FindOneAndUpdate(ctx,
		bson.M{"poll_id": pollID, "voter_id": voterID},
		bson.M{
			"$set": bson.M{
				"option_key": optionKey,
				"cast_at":    time.Now().UTC(),
			},
			"$setOnInsert": bson.M{
				"poll_id":  pollID,
				"group_id": groupID,
				"voter_id": voterID,
			},
		},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.Before))

	var prev models.PollVote
	err := res.Decode(&prev)
	if err == mongo.ErrNoDocuments {
		return "", nil
	}
	if err != nil {
		if wafflemongo.IsDup(err) {
			// Upsert raced with another first vote by the same voter;
			// the winner's document stands.
			return "", nil
		}
		return "", err
	}
	return prev.OptionKey, nil
}

// ApplyVoteDelta moves the poll's per-option counters while it is still
// voting. incKey gains a vote; decKey (if non-empty) loses one.
func (s *Store) ApplyVoteDelta(ctx context.Context, pollID primitive.ObjectID, incKey, decKey string) (models.Poll, error) {
	inc := bson.M{"counts." + incKey: 1}
	if decKey != "" {
		inc["counts."+decKey] = -1
	}
	res := s.polls.FindOneAndUpdate(ctx,
		bson.M{"_id": pollID, "status": models.PollVoting},
		bson.M{"$inc": inc},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var p models.Poll
	err := res.Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Poll{}, ErrAlreadyClosed
	}
	if err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

// Close performs the compare-and-set transition from voting to closed,
// recording the result. Exactly one caller wins.
func (s *Store) Close(ctx context.Context, pollID primitive.ObjectID, result models.PollResult) (models.Poll, error) {
	res := s.polls.FindOneAndUpdate(ctx,
		bson.M{"_id": pollID, "status": models.PollVoting},
		bson.M{"$set": bson.M{
			"status": models.PollClosed,
			"result": result,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After))

	var p models.Poll
	err := res.Decode(&p)
	if err == mongo.ErrNoDocuments {
		return models.Poll{}, ErrAlreadyClosed
	}
	if err != nil {
		return models.Poll{}, err
	}
	return p, nil
}

// ListDue returns voting polls whose close time has passed.
func (s *Store) ListDue(ctx context.Context, now time.Time) ([]models.Poll, error) {
	cur, err := s.polls.Find(ctx, bson.M{
		"status":    models.PollVoting,
		"closes_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var polls []models.Poll
	if err := cur.All(ctx, &polls); err != nil {
		return nil, err
	}
	return polls, nil
}
