package postgres

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// MetadataReader reads live PostgreSQL schema.
type MetadataReader struct {
	pool      *pgxpool.Pool
	database  string
	ownedPool bool
	logger    *zap.Logger
}

// NewMetadataReader creates a PostgreSQL metadata reader.
// If connMgr is nil, creates an unmanaged pool.
// If logger is nil, a no-op logger is used.
func NewMetadataReader(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*MetadataReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, &apperrors.MetadataUnavailableError{Operation: "connect", Err: err}
	}

	return &MetadataReader{
		pool:      pool,
		database:  cfg.Database,
		ownedPool: owned,
		logger:    logger,
	}, nil
}

// Close releases the reader (but NOT the pool if managed).
func (r *MetadataReader) Close() error {
	if r.ownedPool && r.pool != nil {
		r.pool.Close()
	}
	return nil
}

func (r *MetadataReader) unavailable(operation string, err error) error {
	r.logger.Error("metadata query failed",
		zap.String("operation", operation),
		zap.String("error", logging.SanitizeError(err)),
	)
	return &apperrors.MetadataUnavailableError{Operation: operation, Err: err}
}

// ListDatabases returns the databases that accept connections, without templates.
func (r *MetadataReader) ListDatabases(ctx context.Context) ([]string, error) {
	const query = `
		SELECT datname
		FROM pg_database
		WHERE datallowconn AND NOT datistemplate
		ORDER BY datname
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, r.unavailable("list databases", err)
	}
	defer rows.Close()

	databases := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, r.unavailable("list databases", fmt.Errorf("scan database: %w", err))
		}
		if !datasource.IsSystemDatabase(models.EnginePostgres, name) {
			databases = append(databases, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list databases", fmt.Errorf("iterate databases: %w", err))
	}

	return databases, nil
}

// ListTables returns base table names from every non-system schema.
func (r *MetadataReader) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_schema::text, table_name::text
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, r.unavailable("list tables", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	tables := []string{}
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, r.unavailable("list tables", fmt.Errorf("scan table: %w", err))
		}
		if !datasource.IncludeTable(models.EnginePostgres, r.database, schema) {
			continue
		}
		if _, dup := seen[table]; dup {
			continue
		}
		seen[table] = struct{}{}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list tables", fmt.Errorf("iterate tables: %w", err))
	}

	sort.Strings(tables)
	return tables, nil
}

// ListColumns returns the columns of table in the session's current schema.
// Uses pg_index for primary key detection, which also finds keys created as
// unique indexes.
func (r *MetadataReader) ListColumns(ctx context.Context, table string) ([]models.LiveColumnSnapshot, error) {
	const query = `
		SELECT
			c.column_name::text,
			c.data_type::text,
			c.character_maximum_length::int,
			c.numeric_precision::int,
			c.numeric_scale::int,
			c.is_nullable = 'YES' AS is_nullable,
			COALESCE(pk.is_pk, false) AS is_primary_key,
			(c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval(%') AS is_identity
		FROM information_schema.columns c
		LEFT JOIN (
			SELECT a.attname AS column_name, true AS is_pk
			FROM pg_index ix
			JOIN pg_class t ON t.oid = ix.indrelid
			JOIN pg_namespace n ON n.oid = t.relnamespace
			JOIN pg_attribute a ON a.attrelid = t.oid AND a.attnum = ANY(ix.indkey)
			WHERE ix.indisprimary = true
			  AND n.nspname = current_schema()
			  AND t.relname = $1
		) pk ON c.column_name = pk.column_name
		WHERE c.table_schema = current_schema() AND c.table_name = $1
		ORDER BY c.ordinal_position
	`

	rows, err := r.pool.Query(ctx, query, table)
	if err != nil {
		return nil, r.unavailable("list columns", err)
	}
	defer rows.Close()

	columns := []models.LiveColumnSnapshot{}
	for rows.Next() {
		var (
			col                       models.LiveColumnSnapshot
			dataType                  string
			charLen, precision, scale *int32
		)
		if err := rows.Scan(&col.Name, &dataType, &charLen, &precision, &scale,
			&col.IsNullable, &col.IsPrimaryKey, &col.IsIdentity); err != nil {
			return nil, r.unavailable("list columns", fmt.Errorf("scan column: %w", err))
		}
		col.Type, col.Length = logicalType(dataType, charLen, precision, scale)
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list columns", fmt.Errorf("iterate columns: %w", err))
	}

	return columns, nil
}

var _ datasource.MetadataProvider = (*MetadataReader)(nil)
