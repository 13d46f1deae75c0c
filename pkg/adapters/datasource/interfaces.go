package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// ConnectionTester tests database connectivity.
// Each implementation owns its connection and must be closed when done.
type ConnectionTester interface {
	// TestConnection verifies the database is reachable with valid credentials
	// and that the session is attached to the requested database.
	TestConnection(ctx context.Context) error

	// Close releases the adapter. Pooled connections stay with the manager.
	Close() error
}

// MigrationExecutor runs DDL statements against one database.
// Statements are executed verbatim, one round-trip each; no retries are made
// because DDL is not safe to replay.
type MigrationExecutor interface {
	// ExecuteStatement runs a single DDL statement. The returned error is the
	// driver's error; callers wrap it with the statement for reporting.
	ExecuteStatement(ctx context.Context, statement string) error

	// Engine returns the engine the executor is bound to.
	Engine() models.Engine

	// Close releases the executor. Pooled connections stay with the manager.
	Close() error
}

// MetadataProvider reads the live schema of the database named in the
// connection parameters it was created with.
type MetadataProvider interface {
	// ListDatabases returns the user databases on the server, sorted.
	ListDatabases(ctx context.Context) ([]string, error)

	// ListTables returns the user tables in the database, sorted. System
	// schemas are excluded (see IncludeTable).
	ListTables(ctx context.Context) ([]string, error)

	// ListColumns returns the columns of table in ordinal order. A table that
	// does not exist yields an empty slice.
	ListColumns(ctx context.Context, table string) ([]models.LiveColumnSnapshot, error)

	// Close releases the provider. Pooled connections stay with the manager.
	Close() error
}

// ConnectionProvider turns connection parameters into engine adapters.
// Implemented by the registry-backed factory.
type ConnectionProvider interface {
	// BuildConnectionString renders params in the engine's native format.
	BuildConnectionString(params models.ConnectionParams) (string, error)

	NewConnectionTester(ctx context.Context, params models.ConnectionParams) (ConnectionTester, error)
	NewMigrationExecutor(ctx context.Context, params models.ConnectionParams) (MigrationExecutor, error)
	NewMetadataProvider(ctx context.Context, params models.ConnectionParams) (MetadataProvider, error)

	// ListEngines returns info for every registered engine.
	ListEngines() []AdapterInfo
}
