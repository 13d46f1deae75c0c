package datasource

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

type registryFactory struct {
	connMgr *ConnectionManager
	logger  *zap.Logger
}

// NewConnectionProvider returns a ConnectionProvider backed by the global
// registry. connMgr may be nil to give every adapter its own pool.
func NewConnectionProvider(connMgr *ConnectionManager, logger *zap.Logger) ConnectionProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registryFactory{
		connMgr: connMgr,
		logger:  logger,
	}
}

func (f *registryFactory) registration(params models.ConnectionParams) (AdapterRegistration, error) {
	reg, ok := GetRegistration(params.Engine)
	if !ok {
		return AdapterRegistration{}, apperrors.NewUnsupportedEngine(params.Engine)
	}
	if err := params.Validate(); err != nil {
		return AdapterRegistration{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidConnection, err)
	}
	return reg, nil
}

func (f *registryFactory) BuildConnectionString(params models.ConnectionParams) (string, error) {
	reg, err := f.registration(params)
	if err != nil {
		return "", err
	}
	return reg.ConnectionStringBuilder(params)
}

func (f *registryFactory) NewConnectionTester(ctx context.Context, params models.ConnectionParams) (ConnectionTester, error) {
	reg, err := f.registration(params)
	if err != nil {
		return nil, err
	}
	return reg.Factory(ctx, params, f.connMgr, f.logger)
}

func (f *registryFactory) NewMigrationExecutor(ctx context.Context, params models.ConnectionParams) (MigrationExecutor, error) {
	reg, err := f.registration(params)
	if err != nil {
		return nil, err
	}
	return reg.ExecutorFactory(ctx, params, f.connMgr, f.logger)
}

func (f *registryFactory) NewMetadataProvider(ctx context.Context, params models.ConnectionParams) (MetadataProvider, error) {
	reg, err := f.registration(params)
	if err != nil {
		return nil, err
	}
	return reg.MetadataProviderFactory(ctx, params, f.connMgr, f.logger)
}

func (f *registryFactory) ListEngines() []AdapterInfo {
	return RegisteredAdapters()
}

// Ensure registryFactory implements ConnectionProvider at compile time.
var _ ConnectionProvider = (*registryFactory)(nil)
