package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/retry"
)

type fakeConnector struct {
	engine  models.Engine
	pingErr error
	closed  atomic.Bool
}

func (c *fakeConnector) Ping(ctx context.Context) error { return c.pingErr }
func (c *fakeConnector) Close() error                   { c.closed.Store(true); return nil }
func (c *fakeConnector) Engine() models.Engine          { return c.engine }

type fakeOpener struct {
	mu        sync.Mutex
	calls     int
	failFirst int
	failErr   error
	opened    []*fakeConnector
}

func (o *fakeOpener) open(ctx context.Context, connString string, cfg ConnectionManagerConfig) (PoolConnector, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls++
	if o.calls <= o.failFirst {
		if o.failErr != nil {
			return nil, o.failErr
		}
		return nil, errors.New("connection refused")
	}
	c := &fakeConnector{engine: models.EnginePostgres}
	o.opened = append(o.opened, c)
	return c, nil
}

func (o *fakeOpener) callCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.calls
}

func fastRetry() *retry.Config {
	return &retry.Config{MaxRetries: 2, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, Multiplier: 2}
}

func newTestManager(t *testing.T, cfg ConnectionManagerConfig) *ConnectionManager {
	t.Helper()
	cm := NewConnectionManager(cfg, zaptest.NewLogger(t))
	cm.retryConfig = fastRetry()
	t.Cleanup(func() { _ = cm.Close() })
	return cm
}

func testParams(database string) models.ConnectionParams {
	return models.ConnectionParams{Engine: models.EnginePostgres, Host: "db.local", Database: database, Username: "app", Password: "secret"}
}

func TestConnectionManager_GetOrCreateConnection_Reuse(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{}
	ctx := context.Background()

	c1, err := cm.GetOrCreateConnection(ctx, testParams("app"), "conn", opener.open)
	require.NoError(t, err)
	c2, err := cm.GetOrCreateConnection(ctx, testParams("app"), "conn", opener.open)
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("%p", c1), fmt.Sprintf("%p", c2), "should reuse same pool instance")
	assert.Equal(t, 1, opener.callCount())

	stats := cm.GetStats()
	assert.Equal(t, 1, stats.TotalConnections)
	assert.Equal(t, 1, stats.ConnectionsByEngine["postgres"])
}

func TestConnectionManager_GetOrCreateConnection_DifferentDatabases(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{}
	ctx := context.Background()

	c1, err := cm.GetOrCreateConnection(ctx, testParams("a"), "conn-a", opener.open)
	require.NoError(t, err)
	c2, err := cm.GetOrCreateConnection(ctx, testParams("b"), "conn-b", opener.open)
	require.NoError(t, err)

	assert.NotEqual(t, fmt.Sprintf("%p", c1), fmt.Sprintf("%p", c2))
	assert.Equal(t, 2, cm.GetStats().TotalConnections)
}

func TestConnectionManager_MaxConnections(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{MaxConnections: 2})
	opener := &fakeOpener{}
	ctx := context.Background()

	for _, db := range []string{"a", "b"} {
		_, err := cm.GetOrCreateConnection(ctx, testParams(db), "conn", opener.open)
		require.NoError(t, err)
	}

	_, err := cm.GetOrCreateConnection(ctx, testParams("c"), "conn", opener.open)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum pooled connections")

	// Existing pools are still served.
	_, err = cm.GetOrCreateConnection(ctx, testParams("a"), "conn", opener.open)
	assert.NoError(t, err)
}

func TestConnectionManager_HealthCheckRecovery(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{}
	ctx := context.Background()

	first, err := cm.GetOrCreateConnection(ctx, testParams("app"), "conn", opener.open)
	require.NoError(t, err)
	first.(*fakeConnector).pingErr = errors.New("connection reset")

	second, err := cm.GetOrCreateConnection(ctx, testParams("app"), "conn", opener.open)
	require.NoError(t, err)

	assert.NotEqual(t, fmt.Sprintf("%p", first), fmt.Sprintf("%p", second))
	assert.True(t, first.(*fakeConnector).closed.Load(), "unhealthy pool should be closed")
	assert.Equal(t, 1, cm.GetStats().TotalConnections)
}

func TestConnectionManager_RetryOnTransientFailure(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{failFirst: 2}

	_, err := cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	require.NoError(t, err)
	assert.Equal(t, 3, opener.callCount())
}

func TestConnectionManager_OpenFailure(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{failFirst: 100}

	_, err := cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NotContains(t, err.Error(), "secret")
	assert.Equal(t, 0, cm.GetStats().TotalConnections)
}

func TestConnectionManager_PermanentFailureNotRetried(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{failFirst: 100, failErr: errors.New(`password authentication failed for user "app"`)}

	_, err := cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	require.Error(t, err)
	assert.Equal(t, 1, opener.callCount())
}

func TestConnectionManager_TTLExpiration(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{TTLMinutes: 1})
	opener := &fakeOpener{}

	c, err := cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	require.NoError(t, err)

	cm.mu.Lock()
	cm.connections[testParams("app").Key()].lastUsed = time.Now().Add(-2 * time.Minute)
	cm.mu.Unlock()

	cm.performCleanup()

	assert.Equal(t, 0, cm.GetStats().TotalConnections)
	assert.True(t, c.(*fakeConnector).closed.Load())
}

func TestConnectionManager_ConcurrentAccess(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})
	opener := &fakeOpener{}
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cm.GetOrCreateConnection(ctx, testParams("app"), "conn", opener.open)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, opener.callCount())
	assert.Equal(t, 1, cm.GetStats().TotalConnections)
}

func TestConnectionManager_Close(t *testing.T) {
	cm := NewConnectionManager(ConnectionManagerConfig{}, zaptest.NewLogger(t))
	cm.retryConfig = fastRetry()
	opener := &fakeOpener{}

	c, err := cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	require.NoError(t, err)

	require.NoError(t, cm.Close())
	require.NoError(t, cm.Close(), "close is idempotent")
	assert.True(t, c.(*fakeConnector).closed.Load())

	_, err = cm.GetOrCreateConnection(context.Background(), testParams("app"), "conn", opener.open)
	assert.Error(t, err)
}

func TestConnectionManager_DefaultConfig(t *testing.T) {
	cm := newTestManager(t, ConnectionManagerConfig{})

	cfg := cm.Config()
	assert.Equal(t, DefaultConnectionTTLMinutes, cfg.TTLMinutes)
	assert.Equal(t, DefaultMaxConnections, cfg.MaxConnections)
	assert.Equal(t, int32(DefaultPoolMaxConns), cfg.PoolMaxConns)
	assert.Equal(t, int32(DefaultPoolMinConns), cfg.PoolMinConns)
}

func TestOpenPool_WithoutManagerIsOwned(t *testing.T) {
	opener := &fakeOpener{}

	c, owned, err := OpenPool(context.Background(), nil, testParams("app"), "conn", opener.open)
	require.NoError(t, err)
	assert.True(t, owned)
	assert.NotNil(t, c)

	cm := newTestManager(t, ConnectionManagerConfig{})
	_, owned, err = OpenPool(context.Background(), cm, testParams("app"), "conn", opener.open)
	require.NoError(t, err)
	assert.False(t, owned)
}
