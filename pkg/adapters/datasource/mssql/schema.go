package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// MetadataReader reads live SQL Server schema from the sys catalog views.
type MetadataReader struct {
	db      *sql.DB
	ownedDB bool
	logger  *zap.Logger
}

// NewMetadataReader creates a SQL Server metadata reader.
// If connMgr is nil, creates an unmanaged pool.
// If logger is nil, a no-op logger is used.
func NewMetadataReader(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*MetadataReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, &apperrors.MetadataUnavailableError{Operation: "connect", Err: err}
	}

	return &MetadataReader{
		db:      db,
		ownedDB: owned,
		logger:  logger,
	}, nil
}

// Close releases the reader (but NOT the DB if managed).
func (r *MetadataReader) Close() error {
	if r.ownedDB && r.db != nil {
		return r.db.Close()
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

// ListDatabases returns the online user databases on the server.
func (r *MetadataReader) ListDatabases(ctx context.Context) ([]string, error) {
	query := `
	SET NOCOUNT ON;
	SELECT name
	FROM sys.databases
	WHERE state_desc = 'ONLINE'
	ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.unavailable("list databases", err)
	}
	defer rows.Close()

	databases := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, r.unavailable("list databases", fmt.Errorf("scan database row: %w", err))
		}
		if !datasource.IsSystemDatabase(models.EngineSQLServer, name) {
			databases = append(databases, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list databases", fmt.Errorf("iterate database rows: %w", err))
	}

	return databases, nil
}

// ListTables returns user table names from every non-system schema.
func (r *MetadataReader) ListTables(ctx context.Context) ([]string, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    SCHEMA_NAME(t.schema_id) AS table_schema,
	    t.name AS table_name
	FROM sys.tables t
	WHERE t.is_ms_shipped = 0  -- Exclude system tables
	ORDER BY table_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.unavailable("list tables", err)
	}
	defer rows.Close()

	seen := make(map[string]struct{})
	tables := []string{}
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, r.unavailable("list tables", fmt.Errorf("scan table row: %w", err))
		}
		if !datasource.IncludeTable(models.EngineSQLServer, "", schema) {
			continue
		}
		if _, dup := seen[table]; dup {
			continue
		}
		seen[table] = struct{}{}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list tables", fmt.Errorf("iterate table rows: %w", err))
	}

	sort.Strings(tables)
	return tables, nil
}

// ListColumns returns the columns of table in the session's default schema.
// A table that does not exist yields no rows.
func (r *MetadataReader) ListColumns(ctx context.Context, table string) ([]models.LiveColumnSnapshot, error) {
	query := `
	SET NOCOUNT ON;
	SELECT
	    c.name AS column_name,
	    tp.name AS data_type,
	    CAST(c.max_length AS INT) AS max_length,
	    CAST(c.precision AS INT) AS numeric_precision,
	    CAST(c.scale AS INT) AS numeric_scale,
	    CASE WHEN c.is_nullable = 1 THEN 1 ELSE 0 END AS is_nullable,
	    CASE WHEN pk.column_id IS NOT NULL THEN 1 ELSE 0 END AS is_primary_key,
	    CASE WHEN c.is_identity = 1 THEN 1 ELSE 0 END AS is_identity
	FROM sys.columns c
	INNER JOIN sys.types tp ON c.user_type_id = tp.user_type_id
	LEFT JOIN (
	    SELECT ic.object_id, ic.column_id
	    FROM sys.index_columns ic
	    INNER JOIN sys.indexes i ON ic.object_id = i.object_id AND ic.index_id = i.index_id
	    WHERE i.is_primary_key = 1
	) pk ON c.object_id = pk.object_id AND c.column_id = pk.column_id
	WHERE c.object_id = OBJECT_ID(QUOTENAME(SCHEMA_NAME()) + N'.' + QUOTENAME(@table))
	ORDER BY c.column_id
	`

	rows, err := r.db.QueryContext(ctx, query, sql.Named("table", table))
	if err != nil {
		return nil, r.unavailable("list columns", err)
	}
	defer rows.Close()

	columns := []models.LiveColumnSnapshot{}
	for rows.Next() {
		var (
			col                               models.LiveColumnSnapshot
			dataType                          string
			maxLength, precision, scale       int
			isNullable, isPrimary, isIdentity int
		)
		if err := rows.Scan(&col.Name, &dataType, &maxLength, &precision, &scale,
			&isNullable, &isPrimary, &isIdentity); err != nil {
			return nil, r.unavailable("list columns", fmt.Errorf("scan column row: %w", err))
		}

		col.IsNullable = isNullable == 1
		col.IsPrimaryKey = isPrimary == 1
		col.IsIdentity = isIdentity == 1
		col.Type, col.Length = logicalType(dataType, maxLength, precision, scale)

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list columns", fmt.Errorf("iterate column rows: %w", err))
	}

	return columns, nil
}

var _ datasource.MetadataProvider = (*MetadataReader)(nil)
