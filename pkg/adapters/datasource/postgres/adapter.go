package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Adapter provides PostgreSQL connectivity.
type Adapter struct {
	config    *Config
	pool      *pgxpool.Pool
	ownedPool bool // true if we created the pool (no connection manager)
	logger    *zap.Logger
}

// connect returns a pool for cfg, shared through connMgr when one is given.
func connect(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager) (*pgxpool.Pool, bool, error) {
	connector, owned, err := datasource.OpenPool(ctx, connMgr, params, buildConnectionString(cfg), datasource.CreatePostgresPool)
	if err != nil {
		return nil, false, fmt.Errorf("connect to postgres: %w", err)
	}

	pool, err := datasource.GetPostgresPool(connector)
	if err != nil {
		if owned {
			_ = connector.Close()
		}
		return nil, false, fmt.Errorf("failed to extract postgres pool: %w", err)
	}
	return pool, owned, nil
}

// NewAdapter creates a PostgreSQL adapter using the connection manager.
// If connMgr is nil, creates an unmanaged pool (for tests or one-shot CLI use).
func NewAdapter(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		config:    cfg,
		pool:      pool,
		ownedPool: owned,
		logger:    logger,
	}, nil
}

// TestConnection verifies the database is reachable with valid credentials.
// It checks:
// 1. Server connectivity (ping)
// 2. Database access (simple query)
// 3. Correct database name (to prevent connecting to wrong/default database)
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.pool.QueryRow(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	var currentDB string
	if err := a.pool.QueryRow(ctx, "SELECT current_database()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}

	// Case-insensitive to match SQL Server behavior and tolerate config casing.
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// Close releases the adapter (but NOT the pool if managed).
func (a *Adapter) Close() error {
	if a.ownedPool && a.pool != nil {
		a.pool.Close()
	}
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
