// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for Convene.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CONVENE_MONGO_URI, CONVENE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "convene", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "convene-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Governance lifecycle settings
	{Name: "join_request_ttl", Default: "48h", Desc: "Join requests older than this are expired by the sweeper"},
	{Name: "proposal_ttl", Default: "48h", Desc: "Proposals older than this are expired by the sweeper"},
	{Name: "ballot_sweep_interval", Default: "1h", Desc: "How often the ballot expiry sweep runs"},
	{Name: "poll_sweep_interval", Default: "15m", Desc: "How often due polls are closed"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, CONVENE_* for app), and
// command-line flags, merging with precedence flags > env > files >
// defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CONVENE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		JoinRequestTTL:      appValues.Duration("join_request_ttl", 48*time.Hour),
		ProposalTTL:         appValues.Duration("proposal_ttl", 48*time.Hour),
		BallotSweepInterval: appValues.Duration("ballot_sweep_interval", time.Hour),
		PollSweepInterval:   appValues.Duration("poll_sweep_interval", 15*time.Minute),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation before startup
// continues. The MongoDB URI is checked here so a typo fails fast instead
// of hanging on connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.JoinRequestTTL <= 0 || appCfg.ProposalTTL <= 0 {
		return fmt.Errorf("ballot TTLs must be positive")
	}
	if appCfg.BallotSweepInterval <= 0 || appCfg.PollSweepInterval <= 0 {
		return fmt.Errorf("sweep intervals must be positive")
	}

	return nil
}
