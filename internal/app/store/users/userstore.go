// internal/app/store/users/userstore.go
package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/civiclab/convene/internal/app/system/auth"
	"github.com/civiclab/convene/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store reads the user mirror maintained by the identity provider sync. The
// governance core only needs lookups; account lifecycle is external.
type Store struct {
	c *mongo.Collection
}

var ErrDuplicateDisplayName = errors.New("a user with this display name already exists")

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.c.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "display_name_ci", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a mirrored user record.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.DisplayNameCI = text.Fold(u.DisplayName)
	if u.Status == "" {
		u.Status = "active"
	}
	u.CreatedAt = time.Now().UTC()
	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateDisplayName
		}
		return models.User{}, err
	}
	return u, nil
}

// Fetcher adapts the store to the session layer's user lookup.
type Fetcher struct {
	store *Store
}

// NewFetcher returns an auth.UserFetcher backed by the users collection.
func NewFetcher(db *mongo.Database) *Fetcher {
	return &Fetcher{store: New(db)}
}

// Fetch implements auth.UserFetcher. Disabled accounts resolve to nil so
// their sessions stop carrying a user.
func (f *Fetcher) Fetch(ctx context.Context, idHex string) (*auth.SessionUser, error) {
	id, err := primitive.ObjectIDFromHex(idHex)
	if err != nil {
		return nil, nil
	}
	u, err := f.store.GetByID(ctx, id)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Status != "active" {
		return nil, nil
	}
	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName,
		Email: u.Email,
	}, nil
}
