// Package all registers every supported engine adapter.
package all

import (
	_ "github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource/mssql"    // Register SQL Server adapter
	_ "github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource/mysql"    // Register MySQL adapter
	_ "github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource/postgres" // Register postgres adapter
)
