// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	groupsfeature "github.com/civiclab/convene/internal/app/features/groups"
	healthfeature "github.com/civiclab/convene/internal/app/features/health"
	joinrequestsfeature "github.com/civiclab/convene/internal/app/features/joinrequests"
	pollsfeature "github.com/civiclab/convene/internal/app/features/polls"
	proposalsfeature "github.com/civiclab/convene/internal/app/features/proposals"
	userstore "github.com/civiclab/convene/internal/app/store/users"
	"github.com/civiclab/convene/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Sessions are loaded globally so anonymous reads
// of public_all groups and authenticated mutations share the same routes.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fetch fresh user data on each request so disabled accounts take
	// effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	engine := deps.Engine

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	joinHandler := joinrequestsfeature.NewHandler(engine, logger)
	proposalsHandler := proposalsfeature.NewHandler(engine, logger)
	pollsHandler := pollsfeature.NewHandler(engine, logger)

	// Group lifecycle plus the group-scoped ballot and poll endpoints.
	groupsHandler := groupsfeature.NewHandler(engine, logger)
	groupsRouter := groupsfeature.Routes(groupsHandler, sessionMgr)
	groupsRouter.Mount("/{id}/join-requests", joinrequestsfeature.GroupRoutes(joinHandler))
	groupsRouter.Mount("/{id}/proposals", proposalsfeature.GroupRoutes(proposalsHandler, sessionMgr))
	groupsRouter.Mount("/{id}/polls", pollsfeature.GroupRoutes(pollsHandler, sessionMgr))
	r.Mount("/groups", groupsRouter)

	// Ballot-scoped voting endpoints.
	r.Mount("/join-requests", joinrequestsfeature.Routes(joinHandler, sessionMgr))
	r.Mount("/proposals", proposalsfeature.Routes(proposalsHandler, sessionMgr))
	r.Mount("/polls", pollsfeature.Routes(pollsHandler, sessionMgr))

	return r, nil
}
