package handlers

import (
	"context"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/ddl"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// mockSchemaService is a configurable SchemaService for handler tests.
type mockSchemaService struct {
	engines   []datasource.AdapterInfo
	databases []string
	tables    []string
	columns   []models.LiveColumnSnapshot
	err       error
	testErr   error

	lastConn  models.ConnectionParams
	lastTable string
}

func (m *mockSchemaService) ListEngines() []datasource.AdapterInfo {
	return m.engines
}

func (m *mockSchemaService) TestConnection(ctx context.Context, conn models.ConnectionParams) error {
	m.lastConn = conn
	return m.testErr
}

func (m *mockSchemaService) ListDatabases(ctx context.Context, conn models.ConnectionParams) ([]string, error) {
	m.lastConn = conn
	return m.databases, m.err
}

func (m *mockSchemaService) ListTables(ctx context.Context, conn models.ConnectionParams) ([]string, error) {
	m.lastConn = conn
	return m.tables, m.err
}

func (m *mockSchemaService) ListColumns(ctx context.Context, conn models.ConnectionParams, table string) ([]models.LiveColumnSnapshot, error) {
	m.lastConn = conn
	m.lastTable = table
	return m.columns, m.err
}

// mockMigrationService records the last call and returns canned results.
type mockMigrationService struct {
	report *models.PlanReport
	diff   *models.SchemaDiff
	err    error

	calls       []string
	lastConn    models.ConnectionParams
	lastTable   string
	lastDiff    models.SchemaDiff
	lastApprove bool
}

func (m *mockMigrationService) result(call string, conn models.ConnectionParams, table string) (*models.PlanReport, error) {
	m.calls = append(m.calls, call)
	m.lastConn = conn
	m.lastTable = table
	if m.report == nil {
		m.report = models.NewPlanReport(table)
	}
	return m.report, m.err
}

func (m *mockMigrationService) CreateTable(ctx context.Context, conn models.ConnectionParams, def models.TableDefinition) (*models.PlanReport, error) {
	return m.result("create", conn, def.Name)
}

func (m *mockMigrationService) DropTable(ctx context.Context, conn models.ConnectionParams, table string) (*models.PlanReport, error) {
	return m.result("drop", conn, table)
}

func (m *mockMigrationService) RenameTable(ctx context.Context, conn models.ConnectionParams, from, to string) (*models.PlanReport, error) {
	return m.result("rename", conn, from)
}

func (m *mockMigrationService) AddColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error) {
	return m.result("add_column", conn, table)
}

func (m *mockMigrationService) DropColumn(ctx context.Context, conn models.ConnectionParams, table, column string) (*models.PlanReport, error) {
	return m.result("drop_column", conn, table)
}

func (m *mockMigrationService) AlterColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error) {
	return m.result("alter_column", conn, table)
}

func (m *mockMigrationService) ComputeDiff(ctx context.Context, conn models.ConnectionParams, desired models.TableDefinition, liveTable string) (*models.SchemaDiff, error) {
	m.calls = append(m.calls, "diff")
	m.lastConn = conn
	m.lastTable = liveTable
	if m.err != nil {
		return nil, m.err
	}
	if m.diff == nil {
		return &models.SchemaDiff{}, nil
	}
	return m.diff, nil
}

func (m *mockMigrationService) PlanModification(diff models.SchemaDiff, table string, engine models.Engine, approved bool) (*models.PlanReport, error) {
	m.lastDiff = diff
	m.lastApprove = approved
	return m.result("plan", models.ConnectionParams{Engine: engine}, table)
}

func (m *mockMigrationService) ApplyModificationPlan(ctx context.Context, conn models.ConnectionParams, diff models.SchemaDiff, table string, approved bool) (*models.PlanReport, error) {
	m.lastDiff = diff
	m.lastApprove = approved
	return m.result("apply", conn, table)
}

func (m *mockMigrationService) Preview(step models.MigrationPlanStep, engine models.Engine) ([]string, error) {
	m.calls = append(m.calls, "preview")
	return ddl.Build(step, engine)
}
