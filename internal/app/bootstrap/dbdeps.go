// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/civiclab/convene/internal/app/governance"
	"github.com/civiclab/convene/internal/app/system/tasks"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for the app.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Engine and Runner are built in ConnectDB, alongside the client;
	// Startup only starts the runner once the schema is ensured.
	Engine *governance.Engine
	Runner *tasks.Runner
}
