package datasource

import (
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// systemSchemas are hidden from table listings on every engine.
var systemSchemas = map[string]struct{}{
	"sys":                {},
	"information_schema": {},
	"mysql":              {},
	"performance_schema": {},
}

// systemDatabases are hidden from database listings, per engine.
var systemDatabases = map[models.Engine]map[string]struct{}{
	models.EngineSQLServer: {"master": {}, "tempdb": {}, "model": {}, "msdb": {}},
	models.EngineMySQL:     {"information_schema": {}, "mysql": {}, "performance_schema": {}, "sys": {}},
	models.EnginePostgres:  {"template0": {}, "template1": {}},
}

// IsSystemSchema reports whether schema is a catalog schema: sys,
// information_schema, mysql, performance_schema, or anything prefixed pg_.
func IsSystemSchema(schema string) bool {
	lower := strings.ToLower(schema)
	if _, ok := systemSchemas[lower]; ok {
		return true
	}
	return strings.HasPrefix(lower, "pg_")
}

// IncludeTable decides whether a table in schema belongs in a listing for
// database. MySQL reports every database as a schema, so its tables are
// restricted to the requested one.
func IncludeTable(engine models.Engine, database, schema string) bool {
	if IsSystemSchema(schema) {
		return false
	}
	if engine == models.EngineMySQL && !strings.EqualFold(schema, database) {
		return false
	}
	return true
}

// IsSystemDatabase reports whether name is one of engine's built-in databases.
func IsSystemDatabase(engine models.Engine, name string) bool {
	_, ok := systemDatabases[engine][strings.ToLower(name)]
	return ok
}
