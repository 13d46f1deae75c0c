package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// MetadataReader reads live MySQL schema from information_schema.
type MetadataReader struct {
	db       *sql.DB
	database string
	ownedDB  bool
	logger   *zap.Logger
}

// NewMetadataReader creates a MySQL metadata reader.
// If connMgr is nil, creates an unmanaged pool.
func NewMetadataReader(ctx context.Context, cfg *Config, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (*MetadataReader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, owned, err := connect(ctx, cfg, params, connMgr)
	if err != nil {
		return nil, &apperrors.MetadataUnavailableError{Operation: "connect", Err: err}
	}

	return &MetadataReader{
		db:       db,
		database: cfg.Database,
		ownedDB:  owned,
		logger:   logger,
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

// ListDatabases returns the user databases (schemas) on the server.
func (r *MetadataReader) ListDatabases(ctx context.Context) ([]string, error) {
	const query = `
		SELECT schema_name
		FROM information_schema.schemata
		ORDER BY schema_name
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
			return nil, r.unavailable("list databases", fmt.Errorf("scan database: %w", err))
		}
		if !datasource.IsSystemDatabase(models.EngineMySQL, name) {
			databases = append(databases, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list databases", fmt.Errorf("iterate databases: %w", err))
	}

	return databases, nil
}

// ListTables returns the base tables of the connected database. MySQL
// reports every database as a schema, so other databases are filtered out.
func (r *MetadataReader) ListTables(ctx context.Context) ([]string, error) {
	const query = `
		SELECT table_schema, table_name
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		ORDER BY table_name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.unavailable("list tables", err)
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var schema, table string
		if err := rows.Scan(&schema, &table); err != nil {
			return nil, r.unavailable("list tables", fmt.Errorf("scan table: %w", err))
		}
		if datasource.IncludeTable(models.EngineMySQL, r.database, schema) {
			tables = append(tables, table)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list tables", fmt.Errorf("iterate tables: %w", err))
	}

	sort.Strings(tables)
	return tables, nil
}

// ListColumns returns the columns of table in the connected database.
func (r *MetadataReader) ListColumns(ctx context.Context, table string) ([]models.LiveColumnSnapshot, error) {
	const query = `
		SELECT
			column_name,
			data_type,
			column_type,
			character_maximum_length,
			numeric_precision,
			numeric_scale,
			is_nullable,
			column_key,
			extra
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`

	rows, err := r.db.QueryContext(ctx, query, table)
	if err != nil {
		return nil, r.unavailable("list columns", err)
	}
	defer rows.Close()

	columns := []models.LiveColumnSnapshot{}
	for rows.Next() {
		var (
			col                          models.LiveColumnSnapshot
			dataType, columnType         string
			charLen, precision, scale    sql.NullInt64
			isNullable, columnKey, extra string
		)
		if err := rows.Scan(&col.Name, &dataType, &columnType, &charLen, &precision, &scale,
			&isNullable, &columnKey, &extra); err != nil {
			return nil, r.unavailable("list columns", fmt.Errorf("scan column: %w", err))
		}

		col.IsNullable = isNullable == "YES"
		col.IsPrimaryKey = columnKey == "PRI"
		col.IsIdentity = strings.Contains(strings.ToLower(extra), "auto_increment")
		col.Type, col.Length = logicalType(dataType, columnType, charLen, precision, scale)

		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, r.unavailable("list columns", fmt.Errorf("iterate columns: %w", err))
	}

	return columns, nil
}

var _ datasource.MetadataProvider = (*MetadataReader)(nil)
