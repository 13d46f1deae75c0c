package ddl

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// dialect holds the statement shapes that differ between engines. Shapes
// shared by all engines (CREATE TABLE, DROP COLUMN, DROP TABLE) live in the
// builder.
type dialect interface {
	engine() models.Engine
	quote(name string) string
	identityClause() string
	addColumn(table, columnSQL string) string
	alterColumn(table string, col models.ColumnDefinition, fragment string, identity bool) []string
	renameTable(from, to string) string
}

func dialectFor(engine models.Engine) (dialect, error) {
	switch engine {
	case models.EngineSQLServer:
		return sqlServerDialect{}, nil
	case models.EngineMySQL:
		return mySQLDialect{}, nil
	case models.EnginePostgres:
		return postgresDialect{}, nil
	}
	return nil, apperrors.NewUnsupportedEngine(engine)
}

func nullability(nullable bool) string {
	if nullable {
		return "NULL"
	}
	return "NOT NULL"
}

// escapeStringLiteral escapes a value for use inside a single-quoted literal.
func escapeStringLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

type sqlServerDialect struct{}

func (sqlServerDialect) engine() models.Engine { return models.EngineSQLServer }

func (sqlServerDialect) quote(name string) string {
	q, _ := Quote(name, models.EngineSQLServer)
	return q
}

func (sqlServerDialect) identityClause() string { return "IDENTITY(1,1)" }

func (d sqlServerDialect) addColumn(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD %s", d.quote(table), columnSQL)
}

// SQL Server cannot turn an existing column into an IDENTITY, so identity is
// never part of an alter; recreating the column is the only way to get one.
// ALTER COLUMN accepts no constraints, so the primary key needs a second
// statement.
func (d sqlServerDialect) alterColumn(table string, col models.ColumnDefinition, fragment string, _ bool) []string {
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s %s %s",
		d.quote(table), d.quote(col.Name), fragment, nullability(col.EffectiveNullable()))}
	if col.IsPrimaryKey {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD PRIMARY KEY (%s)", d.quote(table), d.quote(col.Name)))
	}
	return stmts
}

// sp_rename takes the new name verbatim; bracketing it would make the
// brackets part of the name.
func (d sqlServerDialect) renameTable(from, to string) string {
	return fmt.Sprintf("EXEC sp_rename N'%s', N'%s'", escapeStringLiteral(d.quote(from)), escapeStringLiteral(to))
}

type mySQLDialect struct{}

func (mySQLDialect) engine() models.Engine { return models.EngineMySQL }

func (mySQLDialect) quote(name string) string {
	q, _ := Quote(name, models.EngineMySQL)
	return q
}

func (mySQLDialect) identityClause() string { return "AUTO_INCREMENT" }

func (d mySQLDialect) addColumn(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(table), columnSQL)
}

func (d mySQLDialect) alterColumn(table string, col models.ColumnDefinition, fragment string, identity bool) []string {
	def := columnSQL(d, col, fragment, col.IsPrimaryKey, identity)
	return []string{fmt.Sprintf("ALTER TABLE %s MODIFY COLUMN %s", d.quote(table), def)}
}

func (d mySQLDialect) renameTable(from, to string) string {
	return fmt.Sprintf("RENAME TABLE %s TO %s", d.quote(from), d.quote(to))
}

type postgresDialect struct{}

func (postgresDialect) engine() models.Engine { return models.EnginePostgres }

func (postgresDialect) quote(name string) string {
	q, _ := Quote(name, models.EnginePostgres)
	return q
}

func (postgresDialect) identityClause() string { return "GENERATED BY DEFAULT AS IDENTITY" }

func (d postgresDialect) addColumn(table, columnSQL string) string {
	return fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", d.quote(table), columnSQL)
}

// PostgreSQL alters a column through separate actions; they are combined into
// one ALTER TABLE so the change is a single statement.
func (d postgresDialect) alterColumn(table string, col models.ColumnDefinition, fragment string, identity bool) []string {
	column := d.quote(col.Name)
	actions := []string{fmt.Sprintf("ALTER COLUMN %s TYPE %s", column, fragment)}
	if col.EffectiveNullable() {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s DROP NOT NULL", column))
	} else {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s SET NOT NULL", column))
	}
	if col.IsPrimaryKey {
		actions = append(actions, fmt.Sprintf("ADD PRIMARY KEY (%s)", column))
	}
	if identity {
		actions = append(actions, fmt.Sprintf("ALTER COLUMN %s ADD %s", column, d.identityClause()))
	}
	return []string{fmt.Sprintf("ALTER TABLE %s %s", d.quote(table), strings.Join(actions, ", "))}
}

func (d postgresDialect) renameTable(from, to string) string {
	return fmt.Sprintf("ALTER TABLE %s RENAME TO %s", d.quote(from), d.quote(to))
}
