// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig handles framework-level settings (ports, TLS, logging,
// CORS, body limits); AppConfig is everything specific to this application.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session management configuration
	SessionKey    string // secret key for signing session cookies
	SessionName   string // cookie name
	SessionDomain string // cookie domain (blank means current host)

	// Governance lifecycle configuration. Ballots older than their TTL are
	// expired by the sweeper; polls close at their own deadline.
	JoinRequestTTL time.Duration
	ProposalTTL    time.Duration

	BallotSweepInterval time.Duration // cadence for ballot expiry sweeps
	PollSweepInterval   time.Duration // cadence for closing due polls
}
