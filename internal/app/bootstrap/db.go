// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/civiclab/convene/internal/app/governance"
	govlogstore "github.com/civiclab/convene/internal/app/store/govlog"
	groupstore "github.com/civiclab/convene/internal/app/store/groups"
	joinrequeststore "github.com/civiclab/convene/internal/app/store/joinrequests"
	membershipstore "github.com/civiclab/convene/internal/app/store/memberships"
	pollstore "github.com/civiclab/convene/internal/app/store/polls"
	proposalstore "github.com/civiclab/convene/internal/app/store/proposals"
	userstore "github.com/civiclab/convene/internal/app/store/users"
	"github.com/civiclab/convene/internal/app/system/tasks"
	"github.com/civiclab/convene/internal/app/system/timeouts"
	"github.com/civiclab/convene/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB establishes the MongoDB connection and builds the governance
// engine and its background runner over it. The runner is not started here;
// Startup does that once the schema is ensured.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, timeouts.Ping())
	defer cancelPing()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase))

	engine := governance.New(db, logger, nil)
	runner := tasks.NewRunner(logger,
		tasks.JoinRequestExpiryJob(engine, logger, appCfg.BallotSweepInterval, appCfg.JoinRequestTTL),
		tasks.ProposalExpiryJob(engine, logger, appCfg.BallotSweepInterval, appCfg.ProposalTTL),
		tasks.PollCloseJob(engine, logger, appCfg.PollSweepInterval),
	)

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Engine:        engine,
		Runner:        runner,
	}, nil
}

// EnsureSchema backfills schema_version on legacy documents and then
// creates the indexes every store relies on, the partial unique ones that
// enforce single live ballots included.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	if err := backfillSchemaVersion(ctx, db, logger); err != nil {
		return err
	}

	ensurers := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"users", userstore.New(db).EnsureIndexes},
		{"groups", groupstore.New(db).EnsureIndexes},
		{"memberships", membershipstore.New(db).EnsureIndexes},
		{"join_requests", joinrequeststore.New(db).EnsureIndexes},
		{"proposals", proposalstore.New(db).EnsureIndexes},
		{"polls", pollstore.New(db).EnsureIndexes},
		{"governance_log", govlogstore.New(db).EnsureIndexes},
	}
	for _, e := range ensurers {
		if err := e.fn(ctx); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", e.name, err)
		}
	}

	logger.Info("database schema ensured")
	return nil
}

// backfillSchemaVersion stamps the current version on documents written
// before the field existed. Runs before index creation so the partial
// unique indexes never see half-migrated documents.
func backfillSchemaVersion(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	collections := []string{
		"groups", "group_memberships", "join_requests",
		"governance_proposals", "polls",
	}
	filter := bson.M{"schema_version": bson.M{"$exists": false}}
	update := bson.M{"$set": bson.M{"schema_version": models.CurrentSchemaVersion}}

	for _, name := range collections {
		res, err := db.Collection(name).UpdateMany(ctx, filter, update)
		if err != nil {
			return fmt.Errorf("backfill schema_version on %s: %w", name, err)
		}
		if res.ModifiedCount > 0 {
			logger.Info("backfilled schema_version",
				zap.String("collection", name),
				zap.Int64("documents", res.ModifiedCount))
		}
	}
	return nil
}
