package datasource

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// CreatePostgresPool opens a PostgreSQL pool. It satisfies Opener.
func CreatePostgresPool(ctx context.Context, connString string, config ConnectionManagerConfig) (PoolConnector, error) {
	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, err
	}

	if config.PoolMaxConns > 0 {
		poolConfig.MaxConns = config.PoolMaxConns
	}
	if config.PoolMinConns > 0 {
		poolConfig.MinConns = config.PoolMinConns
	}
	if config.TTLMinutes > 0 {
		poolConfig.MaxConnIdleTime = time.Duration(config.TTLMinutes) * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	return NewPostgresPoolWrapper(pool), nil
}

// SQLPoolOpener returns an Opener for a database/sql driver. The pool is
// pinged before it is returned so bad credentials fail here.
func SQLPoolOpener(driverName string, engine models.Engine) Opener {
	return func(ctx context.Context, connString string, config ConnectionManagerConfig) (PoolConnector, error) {
		db, err := sql.Open(driverName, connString)
		if err != nil {
			return nil, err
		}

		if config.PoolMaxConns > 0 {
			db.SetMaxOpenConns(int(config.PoolMaxConns))
		}
		if config.PoolMinConns > 0 {
			db.SetMaxIdleConns(int(config.PoolMinConns))
		}
		if config.TTLMinutes > 0 {
			db.SetConnMaxIdleTime(time.Duration(config.TTLMinutes) * time.Minute)
		}

		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, err
		}

		return NewSQLDBWrapper(db, engine), nil
	}
}

// GetPostgresPool extracts the underlying *pgxpool.Pool from a PoolConnector.
// Returns an error if the connector is not a PostgreSQL pool.
func GetPostgresPool(connector PoolConnector) (*pgxpool.Pool, error) {
	wrapper, ok := connector.(*PostgresPoolWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a PostgreSQL pool wrapper")
	}
	return wrapper.GetPool(), nil
}

// GetSQLDB extracts the underlying *sql.DB from a PoolConnector.
// Returns an error if the connector is not a database/sql pool.
func GetSQLDB(connector PoolConnector) (*sql.DB, error) {
	wrapper, ok := connector.(*SQLDBWrapper)
	if !ok {
		return nil, fmt.Errorf("connector is not a database/sql pool wrapper")
	}
	return wrapper.GetDB(), nil
}

// OpenPool returns a pool for params: from connMgr when one is given, or a
// freshly opened pool the caller owns otherwise.
func OpenPool(ctx context.Context, connMgr *ConnectionManager, params models.ConnectionParams, connString string, open Opener) (connector PoolConnector, owned bool, err error) {
	if connMgr == nil {
		connector, err = open(ctx, connString, ConnectionManagerConfig{})
		if err != nil {
			return nil, false, err
		}
		return connector, true, nil
	}

	connector, err = connMgr.GetOrCreateConnection(ctx, params, connString, open)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get pooled connection: %w", err)
	}
	return connector, false, nil
}
