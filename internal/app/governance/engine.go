// internal/app/governance/engine.go

// Package governance is the decision core: group lifecycle, membership
// ballots, demote/kick proposals, polls, and the sweeps that expire them.
//
// Every mutation follows the same shape: authorize from the authoritative
// membership record, run the read-decide-write sequence inside a
// transaction, and only after commit append to the governance log and
// dispatch notifications. Resolution transitions are compare-and-set, so a
// ballot resolves exactly once no matter how many voters or sweeper runs
// race for it.
package governance

import (
	"context"
	"errors"

	"github.com/civiclab/convene/internal/app/policy/govpolicy"
	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	groupstore "github.com/civiclab/convene/internal/app/store/groups"
	joinrequeststore "github.com/civiclab/convene/internal/app/store/joinrequests"
	membershipstore "github.com/civiclab/convene/internal/app/store/memberships"
	pollstore "github.com/civiclab/convene/internal/app/store/polls"
	proposalstore "github.com/civiclab/convene/internal/app/store/proposals"
	"github.com/civiclab/convene/internal/app/system/apperr"
	"github.com/civiclab/convene/internal/app/system/govlogger"
	"github.com/civiclab/convene/internal/app/system/notify"
	"github.com/civiclab/convene/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Engine coordinates the stores that make up the governance core.
type Engine struct {
	db  *mongo.Database
	log *zap.Logger

	groups      *groupstore.Store
	memberships *membershipstore.Store
	joins       *joinrequeststore.Store
	proposals   *proposalstore.Store
	polls       *pollstore.Store

	logEntries *govlogstore.Store
	govLog     *govlogger.Logger
	notifier   notify.Dispatcher
}

// New builds an Engine over db. A nil dispatcher falls back to the
// log-only dispatcher.
func New(db *mongo.Database, logger *zap.Logger, dispatcher notify.Dispatcher) *Engine {
	if dispatcher == nil {
		dispatcher = notify.NewLogDispatcher(logger)
	}
	logStore := govlogstore.New(db)
	return &Engine{
		db:          db,
		log:         logger,
		groups:      groupstore.New(db),
		memberships: membershipstore.New(db),
		joins:       joinrequeststore.New(db),
		proposals:   proposalstore.New(db),
		polls:       pollstore.New(db),
		logEntries:  logStore,
		govLog:      govlogger.New(logStore, logger),
		notifier:    dispatcher,
	}
}

// Groups exposes the group store for read paths.
func (e *Engine) Groups() *groupstore.Store { return e.groups }

// Memberships exposes the membership store for read paths.
func (e *Engine) Memberships() *membershipstore.Store { return e.memberships }

// JoinRequests exposes the join request store for read paths.
func (e *Engine) JoinRequests() *joinrequeststore.Store { return e.joins }

// Proposals exposes the proposal store for read paths.
func (e *Engine) Proposals() *proposalstore.Store { return e.proposals }

// Polls exposes the poll store for read paths.
func (e *Engine) Polls() *pollstore.Store { return e.polls }

// LogEntries exposes the governance log store for read paths.
func (e *Engine) LogEntries() *govlogstore.Store { return e.logEntries }

// ViewerOf resolves who the caller is relative to a group, for the
// transparency checks on read paths. signedIn=false means anonymous and
// userID is ignored.
func (e *Engine) ViewerOf(ctx context.Context, groupID, userID primitive.ObjectID, signedIn bool) (govpolicy.Viewer, error) {
	v := govpolicy.Viewer{SignedIn: signedIn}
	if !signedIn {
		return v, nil
	}
	role, err := e.memberships.GetRole(ctx, groupID, userID)
	switch {
	case err == nil:
		v.IsMember = true
		v.Role = role
	case errors.Is(err, membershipstore.ErrNotMember):
		// Signed in but not a member.
	default:
		return v, err
	}
	return v, nil
}

// memberRole loads the caller's role in a group, translating a missing
// membership into Forbidden.
func (e *Engine) memberRole(ctx context.Context, groupID, userID primitive.ObjectID) (string, error) {
	role, err := e.memberships.GetRole(ctx, groupID, userID)
	if errors.Is(err, membershipstore.ErrNotMember) {
		return "", apperr.New(apperr.Forbidden, "you are not a member of this group")
	}
	return role, err
}

// loadGroup translates a missing group into NotFound.
func (e *Engine) loadGroup(ctx context.Context, groupID primitive.ObjectID) (models.Group, error) {
	group, err := e.groups.GetByID(ctx, groupID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Group{}, apperr.New(apperr.NotFound, "group not found")
	}
	return group, err
}
