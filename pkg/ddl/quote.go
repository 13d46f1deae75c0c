package ddl

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// DefaultSQLServerSchema is the schema used when qualifying SQL Server names.
const DefaultSQLServerSchema = "dbo"

// Quote quotes a single identifier for engine. The identifier must be the raw
// name: quote characters inside it are escaped, so passing an already quoted
// name quotes it twice.
func Quote(identifier string, engine models.Engine) (string, error) {
	switch engine {
	case models.EngineSQLServer:
		return "[" + strings.ReplaceAll(identifier, "]", "]]") + "]", nil
	case models.EngineMySQL:
		return "`" + strings.ReplaceAll(identifier, "`", "``") + "`", nil
	case models.EnginePostgres:
		return pgx.Identifier{identifier}.Sanitize(), nil
	}
	return "", apperrors.NewUnsupportedEngine(engine)
}

// QuoteChars returns the opening and closing quote characters of engine.
func QuoteChars(engine models.Engine) (string, string, error) {
	switch engine {
	case models.EngineSQLServer:
		return "[", "]", nil
	case models.EngineMySQL:
		return "`", "`", nil
	case models.EnginePostgres:
		return `"`, `"`, nil
	}
	return "", "", apperrors.NewUnsupportedEngine(engine)
}

// QualifiedTableName quotes each component of a database-qualified table name.
// SQL Server names are three-part with the dbo schema; on PostgreSQL the
// qualifier is a schema, since a session cannot address another database.
// An empty database yields just the quoted table.
func QualifiedTableName(database, table string, engine models.Engine) (string, error) {
	quotedTable, err := Quote(table, engine)
	if err != nil {
		return "", err
	}
	if database == "" {
		return quotedTable, nil
	}
	quotedDB, err := Quote(database, engine)
	if err != nil {
		return "", err
	}
	if engine == models.EngineSQLServer {
		schema, _ := Quote(DefaultSQLServerSchema, engine)
		return quotedDB + "." + schema + "." + quotedTable, nil
	}
	return quotedDB + "." + quotedTable, nil
}
