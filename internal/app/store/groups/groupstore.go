// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/civiclab/convene/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c *mongo.Collection
}

var ErrDuplicateGroupName = errors.New("a group with this name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("groups")}
}

// EnsureIndexes creates the unique case-folded name index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) Create(ctx context.Context, g models.Group) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	if g.TransparencyMode == "" {
		g.TransparencyMode = models.TransparencyPublicMembers
	}
	if g.Status == "" {
		g.Status = "active"
	}
	g.SchemaVersion = models.CurrentSchemaVersion
	g.CreatedAt = now
	g.UpdatedAt = now
	_, err := s.c.InsertOne(ctx, g)
	if err != nil {
		if wafflemongo.IsDup(err) {
			return models.Group{}, ErrDuplicateGroupName
		}
		return models.Group{}, err
	}
	return g, nil
}

// ApplySettings writes the non-nil fields of patch. Returns the updated
// group.
func (s *Store) ApplySettings(ctx context.Context, id primitive.ObjectID, patch models.GroupSettingsPatch) (models.Group, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.TransparencyMode != nil {
		set["transparency_mode"] = *patch.TransparencyMode
	}
	if patch.FoundersOnlyRules != nil {
		set["founders_only_rules"] = *patch.FoundersOnlyRules
	}
	if patch.Open != nil {
		set["open"] = *patch.Open
	}

	res := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After))
	var g models.Group
	if err := res.Decode(&g); err != nil {
		return models.Group{}, err
	}
	return g, nil
}

// Delete removes a group by ID. Returns the number of documents deleted.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
