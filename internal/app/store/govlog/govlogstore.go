// internal/app/store/govlog/govlogstore.go

// Package govlogstore persists the append-only governance log. Entries are
// inserted and queried, never updated or deleted. Callers that must not fail
// on a log write go through system/govlogger, which wraps this store.
package govlogstore

import (
	"context"
	"time"

	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("governance_log")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "action", Value: 1}, {Key: "created_at", Value: -1}},
		},
	})
	return err
}

// Append inserts one entry. CreatedAt is stamped here so entries sort by
// insertion time even when callers build them ahead of the write.
func (s *Store) Append(ctx context.Context, entry models.GovernanceLogEntry) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()
	_, err := s.c.InsertOne(ctx, entry)
	return err
}

// Query describes a log read. Zero values mean "no filter".
type Query struct {
	GroupID primitive.ObjectID
	Action  string
	Before  time.Time
	Limit   int64
}

const defaultQueryLimit = 100

// List returns matching entries, newest first.
func (s *Store) List(ctx context.Context, q Query) ([]models.GovernanceLogEntry, error) {
	filter := bson.M{"group_id": q.GroupID}
	if q.Action != "" {
		filter["action"] = q.Action
	}
	if !q.Before.IsZero() {
		filter["created_at"] = bson.M{"$lt": q.Before}
	}
	limit := q.Limit
	if limit <= 0 || limit > defaultQueryLimit {
		limit = defaultQueryLimit
	}

	cur, err := s.c.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var entries []models.GovernanceLogEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// CountByGroup returns the number of log entries for a group.
func (s *Store) CountByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"group_id": groupID})
}
