package mssql

import (
	"context"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func init() {
	datasource.Register(datasource.AdapterRegistration{
		Info: datasource.AdapterInfo{
			Engine:      models.EngineSQLServer,
			DisplayName: models.EngineSQLServer.DisplayName(),
			Description: "SQL Server 2019+, Azure SQL Database",
			DefaultPort: DefaultPort(),
		},
		ConnectionStringBuilder: BuildConnectionString,
		Factory: func(ctx context.Context, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.ConnectionTester, error) {
			cfg, err := FromParams(params)
			if err != nil {
				return nil, err
			}
			return NewAdapter(ctx, cfg, params, connMgr, logger)
		},
		ExecutorFactory: func(ctx context.Context, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.MigrationExecutor, error) {
			cfg, err := FromParams(params)
			if err != nil {
				return nil, err
			}
			return NewExecutor(ctx, cfg, params, connMgr, logger)
		},
		MetadataProviderFactory: func(ctx context.Context, params models.ConnectionParams, connMgr *datasource.ConnectionManager, logger *zap.Logger) (datasource.MetadataProvider, error) {
			cfg, err := FromParams(params)
			if err != nil {
				return nil, err
			}
			return NewMetadataReader(ctx, cfg, params, connMgr, logger)
		},
	})
}
