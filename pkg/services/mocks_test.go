package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// mockConnectionProvider hands out recording executors and canned metadata.
type mockConnectionProvider struct {
	mu sync.Mutex

	// executed collects every statement that reached an executor.
	executed []string
	// failOn fails the first statement containing this substring.
	failOn string

	executorErr error
	metadataErr error
	testerErr   error

	databases  []string
	tables     []string
	columns    map[string][]models.LiveColumnSnapshot
	listErr    error
	closeCount int
}

func (m *mockConnectionProvider) BuildConnectionString(params models.ConnectionParams) (string, error) {
	return "mock://" + params.Host, nil
}

func (m *mockConnectionProvider) NewConnectionTester(ctx context.Context, params models.ConnectionParams) (datasource.ConnectionTester, error) {
	return &mockTester{err: m.testerErr}, nil
}

func (m *mockConnectionProvider) NewMigrationExecutor(ctx context.Context, params models.ConnectionParams) (datasource.MigrationExecutor, error) {
	if m.executorErr != nil {
		return nil, m.executorErr
	}
	return &mockExecutor{provider: m, engine: params.Engine}, nil
}

func (m *mockConnectionProvider) NewMetadataProvider(ctx context.Context, params models.ConnectionParams) (datasource.MetadataProvider, error) {
	if m.metadataErr != nil {
		return nil, m.metadataErr
	}
	return &mockMetadata{provider: m}, nil
}

func (m *mockConnectionProvider) ListEngines() []datasource.AdapterInfo {
	return []datasource.AdapterInfo{{Engine: models.EnginePostgres, DisplayName: "PostgreSQL", DefaultPort: 5432}}
}

func (m *mockConnectionProvider) statements() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.executed...)
}

type mockExecutor struct {
	provider *mockConnectionProvider
	engine   models.Engine
}

func (e *mockExecutor) ExecuteStatement(ctx context.Context, statement string) error {
	e.provider.mu.Lock()
	defer e.provider.mu.Unlock()
	if e.provider.failOn != "" && strings.Contains(statement, e.provider.failOn) {
		return errors.New("engine rejected statement")
	}
	e.provider.executed = append(e.provider.executed, statement)
	return nil
}

func (e *mockExecutor) Engine() models.Engine { return e.engine }

func (e *mockExecutor) Close() error {
	e.provider.mu.Lock()
	e.provider.closeCount++
	e.provider.mu.Unlock()
	return nil
}

type mockMetadata struct {
	provider *mockConnectionProvider
}

func (r *mockMetadata) ListDatabases(ctx context.Context) ([]string, error) {
	return r.provider.databases, r.provider.listErr
}

func (r *mockMetadata) ListTables(ctx context.Context) ([]string, error) {
	return r.provider.tables, r.provider.listErr
}

func (r *mockMetadata) ListColumns(ctx context.Context, table string) ([]models.LiveColumnSnapshot, error) {
	if r.provider.listErr != nil {
		return nil, r.provider.listErr
	}
	return r.provider.columns[table], nil
}

func (r *mockMetadata) Close() error {
	r.provider.mu.Lock()
	r.provider.closeCount++
	r.provider.mu.Unlock()
	return nil
}

type mockTester struct {
	err error
}

func (t *mockTester) TestConnection(ctx context.Context) error { return t.err }
func (t *mockTester) Close() error                             { return nil }
