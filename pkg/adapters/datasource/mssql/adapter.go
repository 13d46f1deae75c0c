package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb" // SQL Server driver
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// driverName is the database/sql driver registered by go-mssqldb.
const driverName = "sqlserver"

// Adapter provides SQL Server connectivity.
type Adapter struct {
	config  *Config
	db      *sql.DB
	ownedDB bool // true if we created the DB (no connection manager)
	logger  *zap.Logger
}

// connect returns a *sql.DB for cfg, shared through connMgr when one is given.
func connect(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager) (*sql.DB, bool, error) {
	open := datasource.SQLPoolOpener(driverName, models.EngineSQLServer)
	connector, owned, err := datasource.OpenPool(ctx, connMgr, params, buildConnectionString(cfg), open)
	if err != nil {
		return nil, false, fmt.Errorf("connect to sql server: %w", err)
	}

	db, err := datasource.GetSQLDB(connector)
	if err != nil {
		if owned {
			_ = connector.Close()
		}
		return nil, false, fmt.Errorf("failed to extract mssql db: %w", err)
	}
	return db, owned, nil
}

// NewAdapter creates a SQL Server adapter using SQL authentication.
// If connMgr is nil, creates an unmanaged pool.
func NewAdapter(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Adapter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, err
	}

	return &Adapter{
		config:  cfg,
		db:      db,
		ownedDB: owned,
		logger:  logger,
	}, nil
}

// TestConnection verifies the database is reachable with valid credentials
// and that the session landed in the configured database.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}

	var result int
	if err := a.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("test query failed: %w", err)
	}

	var currentDB string
	if err := a.db.QueryRowContext(ctx, "SELECT DB_NAME()").Scan(&currentDB); err != nil {
		return fmt.Errorf("failed to get current database name: %w", err)
	}
	if !strings.EqualFold(currentDB, a.config.Database) {
		return fmt.Errorf("connected to wrong database: expected %q but connected to %q", a.config.Database, currentDB)
	}

	return nil
}

// Close releases the adapter (but NOT the DB if managed).
func (a *Adapter) Close() error {
	if a.ownedDB && a.db != nil {
		return a.db.Close()
	}
	return nil
}

// Ensure Adapter implements ConnectionTester at compile time.
var _ datasource.ConnectionTester = (*Adapter)(nil)
