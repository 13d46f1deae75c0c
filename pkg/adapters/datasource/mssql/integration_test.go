package mssql

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-migrate/pkg/ddl"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/schemadiff"
)

// integrationParams reads SQL Server credentials from the environment and
// skips the test when they are not set.
func integrationParams(t *testing.T) models.ConnectionParams {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	host := os.Getenv("MSSQL_HOST")
	user := os.Getenv("MSSQL_USER")
	password := os.Getenv("MSSQL_PASSWORD")
	database := os.Getenv("MSSQL_DATABASE")

	if host == "" || user == "" || password == "" || database == "" {
		t.Skip("skipping integration test: MSSQL_HOST, MSSQL_USER, MSSQL_PASSWORD, or MSSQL_DATABASE not set")
	}

	params := models.ConnectionParams{
		Engine:                 models.EngineSQLServer,
		Host:                   host,
		Database:               database,
		Username:               user,
		Password:               password,
		SSLMode:                "disable",
		TrustServerCertificate: true,
	}
	if p := os.Getenv("MSSQL_PORT"); p != "" {
		port, err := strconv.Atoi(p)
		require.NoError(t, err, "invalid MSSQL_PORT")
		params.Port = port
	}
	return params
}

func TestIntegration_CreateListDiffDrop(t *testing.T) {
	params := integrationParams(t)
	logger := zaptest.NewLogger(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg, err := FromParams(params)
	require.NoError(t, err)

	adapter, err := NewAdapter(ctx, cfg, params, nil, logger)
	require.NoError(t, err)
	defer adapter.Close()
	require.NoError(t, adapter.TestConnection(ctx))

	exec, err := NewExecutor(ctx, cfg, params, nil, logger)
	require.NoError(t, err)
	defer exec.Close()

	reader, err := NewMetadataReader(ctx, cfg, params, nil, logger)
	require.NoError(t, err)
	defer reader.Close()

	def := models.TableDefinition{
		Name: "it_orders",
		Columns: []models.ColumnDefinition{
			{Name: "id", Type: models.Type(models.KindInt64), IsPrimaryKey: true},
			{Name: "reference", Type: models.Type(models.KindString), Length: models.IntPtr(40)},
			{Name: "note", Type: models.Type(models.KindString), IsNullable: true},
			{Name: "paid", Type: models.Type(models.KindBoolean)},
		},
	}

	_ = exec.ExecuteStatement(ctx, "DROP TABLE IF EXISTS [it_orders]")
	stmts, err := ddl.Build(models.CreateTableStep(def), models.EngineSQLServer)
	require.NoError(t, err)
	for _, stmt := range stmts {
		require.NoError(t, exec.ExecuteStatement(ctx, stmt))
	}
	t.Cleanup(func() {
		_ = exec.ExecuteStatement(context.Background(), "DROP TABLE IF EXISTS [it_orders]")
	})

	tables, err := reader.ListTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, "it_orders")

	live, err := reader.ListColumns(ctx, "it_orders")
	require.NoError(t, err)
	require.Len(t, live, 4)
	assert.True(t, live[0].IsPrimaryKey)
	assert.True(t, live[0].IsIdentity)
	assert.Equal(t, 40, *live[1].Length)
	assert.Nil(t, live[2].Length)

	diff, err := schemadiff.ComputeForEngine(models.EngineSQLServer, def, "it_orders", live)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty(), "freshly created table should not differ: %+v", diff)
}
