package proposals_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/civiclab/convene/internal/app/features/proposals"
	"github.com/civiclab/convene/internal/app/governance"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/civiclab/convene/internal/testutil"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T) (*proposals.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	engine := governance.New(db, logger, notify.NewLogDispatcher(logger))
	return proposals.NewHandler(engine, logger), testutil.NewFixtures(t, db)
}

func jsonRequest(method, target, body string, user testutil.TestUser) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return testutil.WithUser(req, user)
}

func TestHandleCreate(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fixtures.CreateRoster(ctx, "Board", 2, 1)

	body := `{"target_user_id":"` + roster.Managers[0].ID.Hex() +
		`","action":"demote","reason":"inactive for months"}`
	req := jsonRequest("POST", "/groups/x/proposals", body, testutil.UserFor(roster.Founder))
	req = testutil.WithChiURLParam(req, "id", roster.Group.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.GovernanceProposal
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != models.BallotVoting {
		t.Errorf("status = %q, want voting", got.Status)
	}
	// Three leaders minus the proposer: majority of 2 is 2.
	if got.RequiredVotes != 2 {
		t.Errorf("required votes = %d, want 2", got.RequiredVotes)
	}

	// A plain member cannot open a proposal.
	req = jsonRequest("POST", "/groups/x/proposals", body, testutil.UserFor(roster.Members[0]))
	req = testutil.WithChiURLParam(req, "id", roster.Group.ID.Hex())
	rec = httptest.NewRecorder()
	handler.HandleCreate(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("member create: expected 403, got %d", rec.Code)
	}
}

func TestHandleVote_ProposerExcluded(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fixtures.CreateRoster(ctx, "Tribunal", 2, 0)

	body := `{"target_user_id":"` + roster.Managers[1].ID.Hex() +
		`","action":"kick","reason":"conduct"}`
	req := jsonRequest("POST", "/groups/x/proposals", body, testutil.UserFor(roster.Founder))
	req = testutil.WithChiURLParam(req, "id", roster.Group.ID.Hex())
	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var proposal models.GovernanceProposal
	if err := json.NewDecoder(rec.Body).Decode(&proposal); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req = jsonRequest("POST", "/proposals/x/vote", `{"choice":"approve"}`, testutil.UserFor(roster.Founder))
	req = testutil.WithChiURLParam(req, "id", proposal.ID.Hex())
	rec = httptest.NewRecorder()
	handler.HandleVote(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("proposer vote: expected 403, got %d", rec.Code)
	}
}

func TestHandleCreate_BadInput(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "Lone Voice")

	req := jsonRequest("POST", "/groups/x/proposals", `{"action":"demote"}`, testutil.UserFor(user))
	req = testutil.WithChiURLParam(req, "id", "nope")
	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad group id: expected 400, got %d", rec.Code)
	}
}
