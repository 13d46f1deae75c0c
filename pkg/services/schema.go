package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// SchemaService reads live schema through the registered engine adapters.
type SchemaService interface {
	// ListEngines returns every registered engine.
	ListEngines() []datasource.AdapterInfo

	// TestConnection checks that conn reaches the requested database.
	TestConnection(ctx context.Context, conn models.ConnectionParams) error

	// ListDatabases returns the user databases on conn's server.
	ListDatabases(ctx context.Context, conn models.ConnectionParams) ([]string, error)

	// ListTables returns the user tables in conn's database.
	ListTables(ctx context.Context, conn models.ConnectionParams) ([]string, error)

	// ListColumns returns the live columns of table.
	ListColumns(ctx context.Context, conn models.ConnectionParams, table string) ([]models.LiveColumnSnapshot, error)
}

type schemaService struct {
	provider datasource.ConnectionProvider
	logger   *zap.Logger
}

// NewSchemaService creates a new schema service over provider.
func NewSchemaService(provider datasource.ConnectionProvider, logger *zap.Logger) SchemaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &schemaService{
		provider: provider,
		logger:   logger.Named("schema"),
	}
}

func (s *schemaService) ListEngines() []datasource.AdapterInfo {
	return s.provider.ListEngines()
}

func (s *schemaService) TestConnection(ctx context.Context, conn models.ConnectionParams) error {
	tester, err := s.provider.NewConnectionTester(ctx, conn)
	if err != nil {
		return err
	}
	defer tester.Close()

	if err := tester.TestConnection(ctx); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

func (s *schemaService) ListDatabases(ctx context.Context, conn models.ConnectionParams) ([]string, error) {
	reader, err := s.provider.NewMetadataProvider(ctx, conn)
	if err != nil {
		return nil, metadataError("connect", err)
	}
	defer reader.Close()

	databases, err := reader.ListDatabases(ctx)
	if err != nil {
		return nil, metadataError("list databases", err)
	}
	return databases, nil
}

func (s *schemaService) ListTables(ctx context.Context, conn models.ConnectionParams) ([]string, error) {
	reader, err := s.provider.NewMetadataProvider(ctx, conn)
	if err != nil {
		return nil, metadataError("connect", err)
	}
	defer reader.Close()

	tables, err := reader.ListTables(ctx)
	if err != nil {
		return nil, metadataError("list tables", err)
	}

	s.logger.Debug("Listed tables",
		zap.String("engine", string(conn.Engine)),
		zap.String("database", conn.Database),
		zap.Int("count", len(tables)),
	)
	return tables, nil
}

func (s *schemaService) ListColumns(ctx context.Context, conn models.ConnectionParams, table string) ([]models.LiveColumnSnapshot, error) {
	reader, err := s.provider.NewMetadataProvider(ctx, conn)
	if err != nil {
		return nil, metadataError("connect", err)
	}
	defer reader.Close()

	columns, err := reader.ListColumns(ctx, table)
	if err != nil {
		return nil, metadataError("list columns", err)
	}
	return columns, nil
}

var _ SchemaService = (*schemaService)(nil)
