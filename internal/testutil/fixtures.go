package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/civiclab/convene/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates an active platform user.
func (f *Fixtures) CreateUser(ctx context.Context, displayName string) models.User {
	f.t.Helper()

	u := models.User{
		ID:            primitive.NewObjectID(),
		DisplayName:   displayName,
		DisplayNameCI: text.Fold(displayName),
		Email:         text.Fold(displayName) + "@test.example",
		Status:        "active",
		CreatedAt:     time.Now().UTC(),
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup creates an active group with the given name and defaults.
func (f *Fixtures) CreateGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		TransparencyMode: models.TransparencyPublicMembers,
		Status:           "active",
		SchemaVersion:    models.CurrentSchemaVersion,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateOpenGroup creates a group that admits joiners without a vote.
func (f *Fixtures) CreateOpenGroup(ctx context.Context, name string) models.Group {
	f.t.Helper()

	g := f.CreateGroup(ctx, name)
	if _, err := f.db.Collection("groups").UpdateOne(ctx,
		primitiveID(g.ID), mapSet("open", true)); err != nil {
		f.t.Fatalf("failed to mark group open: %v", err)
	}
	g.Open = true
	return g
}

// CreateMembership adds a user to a group with the given role.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID primitive.ObjectID, role string) models.GroupMembership {
	f.t.Helper()

	m := models.GroupMembership{
		ID:            primitive.NewObjectID(),
		GroupID:       groupID,
		UserID:        userID,
		Role:          role,
		SchemaVersion: models.CurrentSchemaVersion,
		JoinedAt:      time.Now().UTC(),
	}
	if _, err := f.db.Collection("group_memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// Roster is a ready-made group with a founder, managers, and members.
type Roster struct {
	Group    models.Group
	Founder  models.User
	Managers []models.User
	Members  []models.User
}

// CreateRoster builds a group with one founder plus the requested number of
// managers and plain members. Display names are derived from the group name.
func (f *Fixtures) CreateRoster(ctx context.Context, groupName string, managers, members int) Roster {
	f.t.Helper()

	g := f.CreateGroup(ctx, groupName)
	r := Roster{Group: g}

	r.Founder = f.CreateUser(ctx, groupName+" Founder")
	f.CreateMembership(ctx, g.ID, r.Founder.ID, models.RoleFounder)

	for i := 0; i < managers; i++ {
		u := f.CreateUser(ctx, groupName+" Manager "+string(rune('A'+i)))
		f.CreateMembership(ctx, g.ID, u.ID, models.RoleManager)
		r.Managers = append(r.Managers, u)
	}
	for i := 0; i < members; i++ {
		u := f.CreateUser(ctx, groupName+" Member "+string(rune('A'+i)))
		f.CreateMembership(ctx, g.ID, u.ID, models.RoleMember)
		r.Members = append(r.Members, u)
	}
	return r
}

func primitiveID(id primitive.ObjectID) map[string]any {
	return map[string]any{"_id": id}
}

func mapSet(key string, value any) map[string]any {
	return map[string]any{"$set": map[string]any{key: value}}
}
