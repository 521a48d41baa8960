// internal/app/store/memberships/membershipstore.go
package membershipstore

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

// Store is the durable record of who belongs to a group and in what role.
// It is mechanism only: the anti-centralization check happens in the
// caller (governance resolution or the groups feature) before any mutation
// reaches this store.
type Store struct {
	c *mongo.Collection
}

var (
	ErrBadRole             = errors.New(`role must be "member", "manager", or "founder"`)
	ErrDuplicateMembership = errors.New("user is already a member of this group")
	ErrNotMember           = errors.New("user is not a member of this group")
)

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("group_memberships")}
}

// EnsureIndexes creates the unique (group_id, user_id) pair index and the
// lookup indexes implied by the read paths.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
	})
	return err
}

// Add creates a membership. Duplicates map to ErrDuplicateMembership.
func (s *Store) Add(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return ErrBadRole
	}
	doc := bson.M{
		"group_id":       groupID,
		"user_id":        userID,
		"role":           role,
		"schema_version": models.CurrentSchemaVersion,
		"joined_at":      time.Now().UTC(),
	}
	if _, err := s.c.InsertOne(ctx, doc); err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateMembership
		}
		return err
	}
	return nil
}

// GetRole returns the member's role, or ErrNotMember.
func (s *Store) GetRole(ctx context.Context, groupID, userID primitive.ObjectID) (string, error) {
	var m models.GroupMembership
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Decode(&m)
	if err == mongo.ErrNoDocuments {
		return "", ErrNotMember
	}
	if err != nil {
		return "", err
	}
	return m.Role, nil
}

// SetRole changes a member's role. Returns ErrNotMember if no membership
// exists.
func (s *Store) SetRole(ctx context.Context, groupID, userID primitive.ObjectID, role string) error {
	if !models.IsValidRole(role) {
		return ErrBadRole
	}
	res, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "user_id": userID},
		bson.M{"$set": bson.M{"role": role}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotMember
	}
	return nil
}

// Remove deletes the membership document for (groupID, userID).
func (s *Store) Remove(ctx context.Context, groupID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"group_id": groupID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotMember
	}
	return nil
}

// Exists checks if a membership exists for the given group and user.
func (s *Store) Exists(ctx context.Context, groupID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "user_id": userID}).Err()
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// RoleCounts aggregates the roster by role in one query.
func (s *Store) RoleCounts(ctx context.Context, groupID primitive.ObjectID) (models.RoleCounts, error) {
	cur, err := s.c.Aggregate(ctx, []bson.M{
		{"$match": bson.M{"group_id": groupID}},
		{"$group": bson.M{"_id": "$role", "n": bson.M{"$sum": 1}}},
	})
	if err != nil {
		return models.RoleCounts{}, err
	}
	defer cur.Close(ctx)

	var counts models.RoleCounts
	for cur.Next(ctx) {
		var row struct {
			Role string `bson:"_id"`
			N    int    `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return models.RoleCounts{}, err
		}
		switch row.Role {
		case models.RoleMember:
			counts.Members = row.N
		case models.RoleManager:
			counts.Managers = row.N
		case models.RoleFounder:
			counts.Founders = row.N
		}
		counts.Total += row.N
	}
	return counts, cur.Err()
}

// ListByGroup returns all memberships for a group, optionally filtered by
// role.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, role string) ([]models.GroupMembership, error) {
	filter := bson.M{"group_id": groupID}
	if role != "" {
		filter["role"] = role
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var memberships []models.GroupMembership
	if err := cur.All(ctx, &memberships); err != nil {
		return nil, err
	}
	return memberships, nil
}

// ListLeaders returns the group's managers and founders.
func (s *Store) ListLeaders(ctx context.Context, groupID primitive.ObjectID) ([]models.GroupMembership, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"group_id": groupID,
		"role":     bson.M{"$in": []string{models.RoleManager, models.RoleFounder}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var leaders []models.GroupMembership
	if err := cur.All(ctx, &leaders); err != nil {
		return nil, err
	}
	return leaders, nil
}

// DeleteByGroup removes all memberships for a group. Returns the number of
// documents deleted.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
