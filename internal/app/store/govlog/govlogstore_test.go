package govlogstore_test

import (
	"testing"
	"time"

	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/civiclab/convene/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestStore_AppendAndList(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := govlogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	actorID := primitive.NewObjectID()

	err := store.Append(ctx, models.GovernanceLogEntry{
		GroupID: groupID,
		Action:  models.LogGroupCreated,
		ActorID: &actorID,
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	err = store.Append(ctx, models.GovernanceLogEntry{
		GroupID: groupID,
		Action:  models.LogJoinResolved,
		Details: models.LogDetails{
			Resolution: &models.ResolutionDetails{
				Outcome:       models.BallotApproved,
				ApproveCount:  2,
				RequiredVotes: 2,
			},
		},
	})
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := store.List(ctx, govlogstore.Query{GroupID: groupID})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	// Newest first.
	if entries[0].Action != models.LogJoinResolved {
		t.Errorf("first entry: got %q, want %q", entries[0].Action, models.LogJoinResolved)
	}
	if entries[0].Details.Resolution == nil || entries[0].Details.Resolution.ApproveCount != 2 {
		t.Errorf("resolution details not round-tripped: %+v", entries[0].Details)
	}
	if entries[1].ActorID == nil || *entries[1].ActorID != actorID {
		t.Error("actor not round-tripped")
	}
}

func TestStore_List_ActionFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := govlogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	for _, action := range []string{models.LogMemberJoined, models.LogMemberLeft, models.LogMemberJoined} {
		if err := store.Append(ctx, models.GovernanceLogEntry{GroupID: groupID, Action: action}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	entries, err := store.List(ctx, govlogstore.Query{GroupID: groupID, Action: models.LogMemberJoined})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("expected 2 joined entries, got %d", len(entries))
	}
}

func TestStore_List_BeforeCursorAndLimit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := govlogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	groupID := primitive.NewObjectID()
	for i := 0; i < 5; i++ {
		if err := store.Append(ctx, models.GovernanceLogEntry{GroupID: groupID, Action: models.LogMemberJoined}); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	page, err := store.List(ctx, govlogstore.Query{GroupID: groupID, Limit: 2})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}

	rest, err := store.List(ctx, govlogstore.Query{
		GroupID: groupID,
		Before:  page[len(page)-1].CreatedAt,
	})
	if err != nil {
		t.Fatalf("List with cursor failed: %v", err)
	}
	if len(rest) != 3 {
		t.Errorf("expected 3 remaining entries, got %d", len(rest))
	}
	for _, e := range rest {
		if !e.CreatedAt.Before(page[len(page)-1].CreatedAt) {
			t.Error("cursor page contains entries at or after the cursor")
		}
	}
}

func TestStore_ListIsolatedByGroup(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := govlogstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	if err := store.Append(ctx, models.GovernanceLogEntry{GroupID: a, Action: models.LogGroupCreated}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := store.Append(ctx, models.GovernanceLogEntry{GroupID: b, Action: models.LogGroupCreated}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	n, err := store.CountByGroup(ctx, a)
	if err != nil {
		t.Fatalf("CountByGroup failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 entry for group a, got %d", n)
	}
}
