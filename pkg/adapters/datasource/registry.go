package datasource

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// AdapterInfo describes a registered engine adapter.
type AdapterInfo struct {
	Engine      models.Engine `json:"engine"`       // "mssql", "mysql", "postgres"
	DisplayName string        `json:"display_name"` // "Microsoft SQL Server"
	Description string        `json:"description"`
	DefaultPort int           `json:"default_port"`
}

// AdapterFactoryFunc builds an adapter for params. connMgr may be nil, in
// which case the adapter opens and owns its own pool.
type AdapterFactoryFunc[T any] func(ctx context.Context, params models.ConnectionParams, connMgr *ConnectionManager, logger *zap.Logger) (T, error)

// AdapterRegistration contains info + factories for one engine.
type AdapterRegistration struct {
	Info                    AdapterInfo
	ConnectionStringBuilder func(params models.ConnectionParams) (string, error)
	Factory                 AdapterFactoryFunc[ConnectionTester]
	ExecutorFactory         AdapterFactoryFunc[MigrationExecutor]
	MetadataProviderFactory AdapterFactoryFunc[MetadataProvider]
}

var (
	registryMu sync.RWMutex
	registry   = make(map[models.Engine]AdapterRegistration)
)

// Register is called by each adapter's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg AdapterRegistration) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[reg.Info.Engine] = reg
}

// RegisteredAdapters returns info for all registered adapters, sorted by engine.
func RegisteredAdapters() []AdapterInfo {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]AdapterInfo, 0, len(registry))
	for _, reg := range registry {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Engine < result[j].Engine })
	return result
}

// GetRegistration returns the registration for engine.
func GetRegistration(engine models.Engine) (AdapterRegistration, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	reg, ok := registry[engine]
	return reg, ok
}

// IsRegistered checks if an adapter is available for engine.
func IsRegistered(engine models.Engine) bool {
	_, ok := GetRegistration(engine)
	return ok
}
