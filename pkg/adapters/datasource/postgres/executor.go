package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Executor runs DDL against a PostgreSQL database.
type Executor struct {
	pool      *pgxpool.Pool
	ownedPool bool
	logger    *zap.Logger
}

// NewExecutor creates a PostgreSQL migration executor.
// If connMgr is nil, creates an unmanaged pool.
func NewExecutor(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, err
	}

	return &Executor{
		pool:      pool,
		ownedPool: owned,
		logger:    logger.Named("postgres-executor"),
	}, nil
}

// ExecuteStatement runs statement as a single round-trip. PostgreSQL DDL is
// transactional, but each statement commits on its own here so that all
// engines share the same step semantics.
func (e *Executor) ExecuteStatement(ctx context.Context, statement string) error {
	start := time.Now()
	_, err := e.pool.Exec(ctx, statement)
	if err != nil {
		e.logger.Error("statement failed",
			zap.String("statement", logging.SanitizeQuery(statement)),
			zap.String("error", logging.SanitizeError(err)),
		)
		return err
	}

	e.logger.Debug("statement executed",
		zap.String("statement", logging.SanitizeQuery(statement)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

func (e *Executor) Engine() models.Engine {
	return models.EnginePostgres
}

// Close releases the executor (but NOT the pool if managed).
func (e *Executor) Close() error {
	if e.ownedPool && e.pool != nil {
		e.pool.Close()
	}
	return nil
}

var _ datasource.MigrationExecutor = (*Executor)(nil)
