package governance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/civiclab/convene/internal/app/governance"
	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/civiclab/convene/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// captureDispatcher records dispatched events for assertions.
type captureDispatcher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (d *captureDispatcher) Dispatch(_ context.Context, ev notify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.events = append(d.events, ev)
}

func (d *captureDispatcher) byType(t string) []notify.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []notify.Event
	for _, ev := range d.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func newTestEngine(t *testing.T) (*governance.Engine, *testutil.Fixtures, *captureDispatcher) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	dispatcher := &captureDispatcher{}
	return governance.New(db, zap.NewNop(), dispatcher), testutil.NewFixtures(t, db), dispatcher
}

func logActions(t *testing.T, fx *testutil.Fixtures, groupID primitive.ObjectID) []string {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	entries, err := govlogstore.New(fx.DB()).List(ctx, govlogstore.Query{GroupID: groupID})
	if err != nil {
		t.Fatalf("listing governance log failed: %v", err)
	}
	actions := make([]string, len(entries))
	for i, e := range entries {
		actions[i] = e.Action
	}
	return actions
}

func TestCreateGroup(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	founder := fx.CreateUser(ctx, "Founder")
	group, err := engine.CreateGroup(ctx, founder.ID, "Block Association", "keeping the block tidy")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}

	role, err := engine.Memberships().GetRole(ctx, group.ID, founder.ID)
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if role != models.RoleFounder {
		t.Errorf("founder role: got %q, want %q", role, models.RoleFounder)
	}

	actions := logActions(t, fx, group.ID)
	if len(actions) != 1 || actions[0] != models.LogGroupCreated {
		t.Errorf("log actions: %v", actions)
	}
}

func TestCreateGroup_EmptyName(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	founder := fx.CreateUser(ctx, "Founder")
	_, err := engine.CreateGroup(ctx, founder.ID, "   ", "")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestRequestJoin_OpenGroup(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	group := fx.CreateOpenGroup(ctx, "Open Group")
	founder := fx.CreateUser(ctx, "Open Founder")
	fx.CreateMembership(ctx, group.ID, founder.ID, models.RoleFounder)
	joiner := fx.CreateUser(ctx, "Joiner")

	result, err := engine.RequestJoin(ctx, joiner.ID, group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if !result.Joined {
		t.Fatal("expected direct admission into an open group")
	}

	exists, err := engine.Memberships().Exists(ctx, group.ID, joiner.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected membership after direct join")
	}
}

func TestRequestJoin_ClosedGroup_FreezesThreshold(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Founder plus two managers: three leaders, majority is two.
	roster := fx.CreateRoster(ctx, "Closed Group", 2, 0)
	joiner := fx.CreateUser(ctx, "Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "hello")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if result.Joined || result.Request == nil {
		t.Fatal("expected a ballot, not direct admission")
	}
	if result.Request.RequiredVotes != 2 {
		t.Errorf("RequiredVotes: got %d, want 2", result.Request.RequiredVotes)
	}
	if result.Request.Status != models.BallotPending {
		t.Errorf("status: got %q, want %q", result.Request.Status, models.BallotPending)
	}

	// A second attempt while the ballot is live is rejected.
	_, err = engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "again")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestRequestJoin_AlreadyMember(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Member Group", 1, 1)
	_, err := engine.RequestJoin(ctx, roster.Members[0].ID, roster.Group.ID, "")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestVoteJoin_QuorumResolvesOnce(t *testing.T) {
	engine, fx, dispatcher := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Quorum Group", 2, 0)
	joiner := fx.CreateUser(ctx, "Quorum Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	reqID := result.Request.ID

	// First vote lifts the ballot out of pending but does not resolve.
	req, err := engine.VoteJoin(ctx, roster.Founder.ID, reqID, models.VoteApprove)
	if err != nil {
		t.Fatalf("first VoteJoin failed: %v", err)
	}
	if req.Status != models.BallotVoting {
		t.Errorf("status after one vote: got %q, want %q", req.Status, models.BallotVoting)
	}

	// Second approval meets the frozen threshold of two.
	req, err = engine.VoteJoin(ctx, roster.Managers[0].ID, reqID, models.VoteApprove)
	if err != nil {
		t.Fatalf("second VoteJoin failed: %v", err)
	}
	if req.Status != models.BallotApproved {
		t.Errorf("status after quorum: got %q, want %q", req.Status, models.BallotApproved)
	}

	exists, err := engine.Memberships().Exists(ctx, roster.Group.ID, joiner.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("expected membership after approval")
	}

	// A vote after resolution is rejected, and the outcome stands.
	_, err = engine.VoteJoin(ctx, roster.Managers[1].ID, reqID, models.VoteReject)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState on late vote, got %v", err)
	}
	final, err := engine.JoinRequests().GetByID(ctx, reqID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != models.BallotApproved {
		t.Errorf("outcome changed after late vote: %q", final.Status)
	}

	if n := len(dispatcher.byType(notify.EventJoinResolved)); n != 1 {
		t.Errorf("expected exactly one resolution event, got %d", n)
	}
}

func TestVoteJoin_ConcurrentQuorumResolvesOnce(t *testing.T) {
	engine, fx, dispatcher := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Five leaders, threshold three. All five approve at once; the
	// resolution must happen exactly once no matter who crosses the line.
	roster := fx.CreateRoster(ctx, "Race Group", 4, 0)
	joiner := fx.CreateUser(ctx, "Race Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	reqID := result.Request.ID

	voters := append([]primitive.ObjectID{roster.Founder.ID},
		roster.Managers[0].ID, roster.Managers[1].ID,
		roster.Managers[2].ID, roster.Managers[3].ID)

	var wg sync.WaitGroup
	errs := make(chan error, len(voters))
	for _, voterID := range voters {
		wg.Add(1)
		go func(voterID primitive.ObjectID) {
			defer wg.Done()
			if _, err := engine.VoteJoin(ctx, voterID, reqID, models.VoteApprove); err != nil {
				errs <- err
			}
		}(voterID)
	}
	wg.Wait()
	close(errs)

	// Voters who lose the race see the resolved ballot (or a write
	// conflict); anything else is a real failure.
	for err := range errs {
		if !apperr.IsKind(err, apperr.InvalidState) && !apperr.IsKind(err, apperr.Conflict) {
			t.Errorf("unexpected vote error: %v", err)
		}
	}

	final, err := engine.JoinRequests().GetByID(ctx, reqID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if final.Status != models.BallotApproved {
		t.Fatalf("status after race: got %q, want %q", final.Status, models.BallotApproved)
	}

	n, err := fx.DB().Collection("group_memberships").CountDocuments(ctx, map[string]any{
		"group_id": roster.Group.ID,
		"user_id":  joiner.ID,
	})
	if err != nil {
		t.Fatalf("CountDocuments failed: %v", err)
	}
	if n != 1 {
		t.Errorf("membership documents for applicant: got %d, want 1", n)
	}

	var resolved, joined int
	for _, a := range logActions(t, fx, roster.Group.ID) {
		switch a {
		case models.LogJoinResolved:
			resolved++
		case models.LogMemberJoined:
			joined++
		}
	}
	if resolved != 1 {
		t.Errorf("join-resolved log entries: got %d, want 1", resolved)
	}
	if joined != 1 {
		t.Errorf("member-joined log entries: got %d, want 1", joined)
	}
	if n := len(dispatcher.byType(notify.EventJoinResolved)); n != 1 {
		t.Errorf("expected exactly one resolution event, got %d", n)
	}
}

func TestVoteJoin_RevoteMovesTally(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Revote Group", 2, 0)
	joiner := fx.CreateUser(ctx, "Revote Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}

	req, err := engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteApprove)
	if err != nil {
		t.Fatalf("VoteJoin failed: %v", err)
	}
	if req.ApproveCount != 1 || req.RejectCount != 0 {
		t.Fatalf("counts: got %d/%d, want 1/0", req.ApproveCount, req.RejectCount)
	}

	// Same voter switches; the tally moves instead of double-counting.
	req, err = engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteReject)
	if err != nil {
		t.Fatalf("revote failed: %v", err)
	}
	if req.ApproveCount != 0 || req.RejectCount != 1 {
		t.Errorf("counts after revote: got %d/%d, want 0/1", req.ApproveCount, req.RejectCount)
	}

	// Repeating the same choice changes nothing.
	req, err = engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteReject)
	if err != nil {
		t.Fatalf("repeat vote failed: %v", err)
	}
	if req.ApproveCount != 0 || req.RejectCount != 1 {
		t.Errorf("counts after repeat: got %d/%d, want 0/1", req.ApproveCount, req.RejectCount)
	}
}

func TestVoteJoin_ThresholdStaysFrozen(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Frozen Group", 2, 2)
	joiner := fx.CreateUser(ctx, "Frozen Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}
	if result.Request.RequiredVotes != 2 {
		t.Fatalf("RequiredVotes: got %d, want 2", result.Request.RequiredVotes)
	}

	// Promote two more leaders mid-ballot; the threshold must not move.
	if err := engine.Promote(ctx, roster.Founder.ID, roster.Group.ID, roster.Members[0].ID, models.RoleManager); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}
	if err := engine.Promote(ctx, roster.Founder.ID, roster.Group.ID, roster.Members[1].ID, models.RoleManager); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	if _, err := engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteApprove); err != nil {
		t.Fatalf("VoteJoin failed: %v", err)
	}
	req, err := engine.VoteJoin(ctx, roster.Managers[0].ID, result.Request.ID, models.VoteApprove)
	if err != nil {
		t.Fatalf("VoteJoin failed: %v", err)
	}
	if req.Status != models.BallotApproved {
		t.Errorf("two approvals should still resolve: status %q", req.Status)
	}
}

func TestVoteJoin_NonLeaderForbidden(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Forbidden Group", 1, 1)
	joiner := fx.CreateUser(ctx, "Forbidden Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}

	_, err = engine.VoteJoin(ctx, roster.Members[0].ID, result.Request.ID, models.VoteApprove)
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("member vote: expected Forbidden, got %v", err)
	}

	outsider := fx.CreateUser(ctx, "Outsider")
	_, err = engine.VoteJoin(ctx, outsider.ID, result.Request.ID, models.VoteApprove)
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("outsider vote: expected Forbidden, got %v", err)
	}
}

func TestVoteJoin_UnderLedGroupCannotGrow(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Three members, one leader. Admitting a fourth needs a second leader.
	roster := fx.CreateRoster(ctx, "Underled Group", 0, 2)
	joiner := fx.CreateUser(ctx, "Blocked Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}

	// Single leader, threshold one: this approval would resolve, but the
	// admission is blocked and the ballot stays open.
	_, err = engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteApprove)
	if !apperr.IsKind(err, apperr.InvariantViolation) {
		t.Fatalf("expected InvariantViolation, got %v", err)
	}

	req, err := engine.JoinRequests().GetByID(ctx, result.Request.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if models.IsTerminalBallotStatus(req.Status) {
		t.Errorf("ballot should stay open, got %q", req.Status)
	}
	exists, err := engine.Memberships().Exists(ctx, roster.Group.ID, joiner.ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if exists {
		t.Error("blocked admission must not create a membership")
	}
}

func TestProposal_DemoteLifecycle(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Founder plus three managers: four leaders. Excluding the proposer,
	// three are eligible, so the threshold is two.
	roster := fx.CreateRoster(ctx, "Demote Group", 3, 1)

	p, err := engine.Propose(ctx, roster.Founder.ID, roster.Group.ID, roster.Managers[0].ID, models.ProposalDemote, "stepped back")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	if p.RequiredVotes != 2 {
		t.Errorf("RequiredVotes: got %d, want 2", p.RequiredVotes)
	}

	// The proposer may not vote on their own proposal.
	_, err = engine.VoteProposal(ctx, roster.Founder.ID, p.ID, models.VoteApprove)
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("proposer vote: expected Forbidden, got %v", err)
	}

	if _, err := engine.VoteProposal(ctx, roster.Managers[1].ID, p.ID, models.VoteApprove); err != nil {
		t.Fatalf("VoteProposal failed: %v", err)
	}
	resolved, err := engine.VoteProposal(ctx, roster.Managers[2].ID, p.ID, models.VoteApprove)
	if err != nil {
		t.Fatalf("VoteProposal failed: %v", err)
	}
	if resolved.Status != models.BallotApproved {
		t.Errorf("status: got %q, want %q", resolved.Status, models.BallotApproved)
	}

	role, err := engine.Memberships().GetRole(ctx, roster.Group.ID, roster.Managers[0].ID)
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if role != models.RoleMember {
		t.Errorf("demoted role: got %q, want %q", role, models.RoleMember)
	}
}

func TestProposal_SelfTargetRejected(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Self Group", 1, 0)
	_, err := engine.Propose(ctx, roster.Founder.ID, roster.Group.ID, roster.Founder.ID, models.ProposalKick, "")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestProposal_DuplicateLiveTarget(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Duplicate Proposal Group", 2, 1)

	if _, err := engine.Propose(ctx, roster.Founder.ID, roster.Group.ID, roster.Members[0].ID, models.ProposalKick, ""); err != nil {
		t.Fatalf("Propose failed: %v", err)
	}
	_, err := engine.Propose(ctx, roster.Managers[0].ID, roster.Group.ID, roster.Members[0].ID, models.ProposalKick, "")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestProposal_InvariantOverrideAutoRejects(t *testing.T) {
	engine, fx, dispatcher := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Five members, two leaders. Kicking a leader would leave one leader
	// in a group of four, so an approved kick must flip to rejected.
	roster := fx.CreateRoster(ctx, "Override Group", 1, 3)

	p, err := engine.Propose(ctx, roster.Founder.ID, roster.Group.ID, roster.Managers[0].ID, models.ProposalKick, "conduct")
	if err != nil {
		t.Fatalf("Propose failed: %v", err)
	}

	// One eligible voter (the target is the other leader, but leaders vote;
	// eligible = 2 leaders - proposer = 1, threshold 1).
	resolved, err := engine.VoteProposal(ctx, roster.Managers[0].ID, p.ID, models.VoteApprove)
	if err != nil {
		t.Fatalf("VoteProposal failed: %v", err)
	}
	if resolved.Status != models.BallotRejected {
		t.Errorf("status: got %q, want %q", resolved.Status, models.BallotRejected)
	}

	// The target keeps their role.
	role, err := engine.Memberships().GetRole(ctx, roster.Group.ID, roster.Managers[0].ID)
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if role != models.RoleManager {
		t.Errorf("target role: got %q, want %q", role, models.RoleManager)
	}

	// The log records the override, and leaders are notified.
	entries, err := govlogstore.New(fx.DB()).List(ctx, govlogstore.Query{
		GroupID: roster.Group.ID,
		Action:  models.LogProposalResolved,
	})
	if err != nil {
		t.Fatalf("listing governance log failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 resolution entry, got %d", len(entries))
	}
	res := entries[0].Details.Resolution
	if res == nil || res.OverrideReason == "" {
		t.Errorf("expected override reason in log, got %+v", res)
	}
	if res != nil && res.ApproveCount < res.RequiredVotes {
		t.Errorf("log should show the approving tally: %+v", res)
	}
	if len(dispatcher.byType(notify.EventInvariantBreach)) != 1 {
		t.Error("expected an invariant-breach notification")
	}
}

func TestLeave(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Leave Group", 1, 3)

	// A plain member may always leave.
	if err := engine.Leave(ctx, roster.Members[0].ID, roster.Group.ID); err != nil {
		t.Fatalf("Leave failed: %v", err)
	}

	// Now four remain with two leaders; a leader leaving would leave a
	// group of three, which is fine.
	if err := engine.Leave(ctx, roster.Managers[0].ID, roster.Group.ID); err != nil {
		t.Fatalf("leader Leave failed: %v", err)
	}
}

func TestLeave_LastLeaderOfLargeGroupBlocked(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// Six members, two leaders: a leader leaving drops a five-person group
	// to one leader.
	roster := fx.CreateRoster(ctx, "Trapped Leader Group", 1, 4)

	err := engine.Leave(ctx, roster.Managers[0].ID, roster.Group.ID)
	if !apperr.IsKind(err, apperr.InvariantViolation) {
		t.Errorf("expected InvariantViolation, got %v", err)
	}

	exists, err := engine.Memberships().Exists(ctx, roster.Group.ID, roster.Managers[0].ID)
	if err != nil {
		t.Fatalf("Exists failed: %v", err)
	}
	if !exists {
		t.Error("blocked leave must not remove the membership")
	}
}

func TestPromote(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Promote Group", 1, 2)

	if err := engine.Promote(ctx, roster.Founder.ID, roster.Group.ID, roster.Members[0].ID, models.RoleManager); err != nil {
		t.Fatalf("Promote failed: %v", err)
	}

	// Managers cannot mint founders.
	err := engine.Promote(ctx, roster.Managers[0].ID, roster.Group.ID, roster.Members[1].ID, models.RoleFounder)
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}

	// Role changes downward are proposals, not promotions.
	err = engine.Promote(ctx, roster.Founder.ID, roster.Group.ID, roster.Founder.ID, models.RoleManager)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
}

func TestExpireSweeps_Idempotent(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Sweep Group", 2, 0)
	joiner := fx.CreateUser(ctx, "Sweep Applicant")

	result, err := engine.RequestJoin(ctx, joiner.ID, roster.Group.ID, "")
	if err != nil {
		t.Fatalf("RequestJoin failed: %v", err)
	}

	// Backdate the request past the TTL.
	backdate := time.Now().UTC().Add(-49 * time.Hour)
	if _, err := fx.DB().Collection("join_requests").UpdateOne(ctx,
		map[string]any{"_id": result.Request.ID},
		map[string]any{"$set": map[string]any{"created_at": backdate}}); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	n, err := engine.ExpireJoinRequests(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("ExpireJoinRequests failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 expiry, got %d", n)
	}

	// Re-running the sweep is a no-op.
	n, err = engine.ExpireJoinRequests(ctx, 48*time.Hour)
	if err != nil {
		t.Fatalf("second sweep failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep expired %d, want 0", n)
	}

	// A vote on the expired ballot is rejected.
	_, err = engine.VoteJoin(ctx, roster.Founder.ID, result.Request.ID, models.VoteApprove)
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState on expired ballot, got %v", err)
	}

	actions := logActions(t, fx, roster.Group.ID)
	expired := 0
	for _, a := range actions {
		if a == models.LogJoinExpired {
			expired++
		}
	}
	if expired != 1 {
		t.Errorf("join-expired log entries: got %d, want 1 (actions %v)", expired, actions)
	}
}

func TestPolls_Lifecycle(t *testing.T) {
	engine, fx, _ := newTestEngine(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	roster := fx.CreateRoster(ctx, "Poll Group", 1, 2)

	poll, err := engine.CreatePoll(ctx, roster.Members[0].ID, roster.Group.ID,
		"Meeting day?", []models.PollOption{
			{Key: "sat", Label: "Saturday"},
			{Key: "sun", Label: "Sunday"},
		}, time.Hour)
	if err != nil {
		t.Fatalf("CreatePoll failed: %v", err)
	}

	if _, err := engine.VotePoll(ctx, roster.Members[0].ID, poll.ID, "sat"); err != nil {
		t.Fatalf("VotePoll failed: %v", err)
	}
	if _, err := engine.VotePoll(ctx, roster.Members[1].ID, poll.ID, "sat"); err != nil {
		t.Fatalf("VotePoll failed: %v", err)
	}
	updated, err := engine.VotePoll(ctx, roster.Founder.ID, poll.ID, "sun")
	if err != nil {
		t.Fatalf("VotePoll failed: %v", err)
	}
	if updated.Counts["sat"] != 2 || updated.Counts["sun"] != 1 {
		t.Errorf("counts: %v", updated.Counts)
	}

	// Outsiders may not vote.
	outsider := fx.CreateUser(ctx, "Poll Outsider")
	_, err = engine.VotePoll(ctx, outsider.ID, poll.ID, "sat")
	if !apperr.IsKind(err, apperr.Forbidden) {
		t.Errorf("expected Forbidden, got %v", err)
	}

	// Force the poll due and sweep it closed.
	if _, err := fx.DB().Collection("polls").UpdateOne(ctx,
		map[string]any{"_id": poll.ID},
		map[string]any{"$set": map[string]any{"closes_at": time.Now().UTC().Add(-time.Minute)}}); err != nil {
		t.Fatalf("backdate failed: %v", err)
	}

	n, err := engine.CloseDuePolls(ctx)
	if err != nil {
		t.Fatalf("CloseDuePolls failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 closed poll, got %d", n)
	}

	closed, err := engine.Polls().GetByID(ctx, poll.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if closed.Status != models.PollClosed {
		t.Errorf("status: got %q, want %q", closed.Status, models.PollClosed)
	}
	if closed.Result == nil || closed.Result.WinningOption != "sat" || closed.Result.TotalVotes != 3 {
		t.Errorf("result: %+v", closed.Result)
	}

	// Voting on a closed poll fails, and the sweep does not repeat.
	_, err = engine.VotePoll(ctx, roster.Members[0].ID, poll.ID, "sun")
	if !apperr.IsKind(err, apperr.InvalidState) {
		t.Errorf("expected InvalidState, got %v", err)
	}
	n, err = engine.CloseDuePolls(ctx)
	if err != nil {
		t.Fatalf("second CloseDuePolls failed: %v", err)
	}
	if n != 0 {
		t.Errorf("second sweep closed %d, want 0", n)
	}
}
