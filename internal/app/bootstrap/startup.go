// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. The
// expiry sweeps and the poll closer start ticking here.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	deps.Runner.Start()
	logger.Info("governance sweeps running",
		zap.Duration("ballot_sweep_interval", appCfg.BallotSweepInterval),
		zap.Duration("poll_sweep_interval", appCfg.PollSweepInterval),
		zap.Duration("join_request_ttl", appCfg.JoinRequestTTL),
		zap.Duration("proposal_ttl", appCfg.ProposalTTL))
	return nil
}
