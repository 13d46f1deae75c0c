package datasource

import (
	"context"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// PoolConnector abstracts connection pool operations across engines
// (pgxpool for PostgreSQL, database/sql for SQL Server and MySQL).
type PoolConnector interface {
	// Ping verifies the connection is alive
	Ping(ctx context.Context) error

	// Close closes all connections in the pool
	Close() error

	// Engine returns the engine the pool connects to
	Engine() models.Engine
}
