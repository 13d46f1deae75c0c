package mysql

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Executor runs DDL against a MySQL database.
type Executor struct {
	db      *sql.DB
	ownedDB bool
	logger  *zap.Logger
}

// NewExecutor creates a MySQL migration executor.
// If connMgr is nil, creates an unmanaged pool.
func NewExecutor(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*Executor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, err
	}

	return &Executor{
		db:      db,
		ownedDB: owned,
		logger:  logger.Named("mysql-executor"),
	}, nil
}

// ExecuteStatement runs one statement. MySQL commits DDL implicitly, so a
// failed statement never undoes the ones before it.
func (e *Executor) ExecuteStatement(ctx context.Context, statement string) error {
	start := time.Now()
	if _, err := e.db.ExecContext(ctx, statement); err != nil {
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
	return models.EngineMySQL
}

// Close releases the executor (but NOT the DB if managed).
func (e *Executor) Close() error {
	if e.ownedDB && e.db != nil {
		return e.db.Close()
	}
	return nil
}

var _ datasource.MigrationExecutor = (*Executor)(nil)
