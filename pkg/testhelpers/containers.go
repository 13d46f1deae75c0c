package testhelpers

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

const (
	// PostgresTestImage is the PostgreSQL image used for integration tests.
	PostgresTestImage = "postgres:16-alpine"
	// MySQLTestImage is the MySQL image used for integration tests.
	MySQLTestImage = "mysql:8.0"

	testDatabase = "migrate_test"
	testUser     = "migrate"
	testPassword = "test_password"
)

// TestDB is a running database container and the parameters to reach it.
type TestDB struct {
	Container testcontainers.Container
	Params    models.ConnectionParams
}

type sharedContainer struct {
	once sync.Once
	db   *TestDB
	err  error
}

var (
	sharedPostgres sharedContainer
	sharedMySQL    sharedContainer
)

// GetTestDB returns a shared PostgreSQL container for integration tests.
// The container is created once and reused across all tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()
	return sharedPostgres.get(t, func(ctx context.Context) (*TestDB, error) {
		return startContainer(ctx, models.EnginePostgres, testcontainers.ContainerRequest{
			Image:        PostgresTestImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       testDatabase,
				"POSTGRES_USER":     testUser,
				"POSTGRES_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		}, "5432")
	})
}

// GetMySQLTestDB returns a shared MySQL container for integration tests.
func GetMySQLTestDB(t *testing.T) *TestDB {
	t.Helper()
	return sharedMySQL.get(t, func(ctx context.Context) (*TestDB, error) {
		return startContainer(ctx, models.EngineMySQL, testcontainers.ContainerRequest{
			Image:        MySQLTestImage,
			ExposedPorts: []string{"3306/tcp"},
			Env: map[string]string{
				"MYSQL_DATABASE":      testDatabase,
				"MYSQL_USER":          testUser,
				"MYSQL_PASSWORD":      testPassword,
				"MYSQL_ROOT_PASSWORD": testPassword,
			},
			WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").
				WithStartupTimeout(120 * time.Second),
		}, "3306")
	})
}

func (s *sharedContainer) get(t *testing.T, start func(ctx context.Context) (*TestDB, error)) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	s.once.Do(func() {
		s.db, s.err = start(context.Background())
	})

	if s.err != nil {
		t.Skipf("Skipping integration test, container unavailable: %v", s.err)
	}

	return s.db
}

func startContainer(ctx context.Context, engine models.Engine, req testcontainers.ContainerRequest, port string) (*TestDB, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s container: %w", engine, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}

	mapped, err := container.MappedPort(ctx, nat.Port(port))
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}

	portNum, err := strconv.Atoi(mapped.Port())
	if err != nil {
		return nil, fmt.Errorf("invalid mapped port %q: %w", mapped.Port(), err)
	}

	return &TestDB{
		Container: container,
		Params: models.ConnectionParams{
			Engine:   engine,
			Host:     host,
			Port:     portNum,
			Database: testDatabase,
			Username: testUser,
			Password: testPassword,
			SSLMode:  "disable",
		},
	}, nil
}
