package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// DefaultPath is the file Load reads when no path is given.
const DefaultPath = "config.yaml"

// Config holds all configuration for ekaya-migrate.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3480"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Datasource connection management configuration
	Datasource DatasourceConfig `yaml:"datasource"`

	// Target is the default database the CLI and server operate on when a
	// request carries no connection of its own.
	Target TargetConfig `yaml:"target"`

	// Migration tuning
	Migration MigrationConfig `yaml:"migration"`
}

// DatasourceConfig holds datasource connection management settings.
type DatasourceConfig struct {
	// ConnectionTTLMinutes is how long idle datasource connections are kept alive.
	ConnectionTTLMinutes int `yaml:"connection_ttl_minutes" env:"DATASOURCE_CONNECTION_TTL_MINUTES" env-default:"5"`
	// MaxConnections limits how many distinct datasource pools stay open.
	MaxConnections int `yaml:"max_connections" env:"DATASOURCE_MAX_CONNECTIONS" env-default:"50"`
	// PoolMaxConns is the maximum number of connections per datasource pool.
	PoolMaxConns int32 `yaml:"pool_max_conns" env:"DATASOURCE_POOL_MAX_CONNS" env-default:"10"`
	// PoolMinConns is the minimum number of connections per datasource pool.
	PoolMinConns int32 `yaml:"pool_min_conns" env:"DATASOURCE_POOL_MIN_CONNS" env-default:"1"`
}

// TargetConfig is the default connection.
type TargetConfig struct {
	Engine                 string `yaml:"engine" env:"TARGET_ENGINE" env-default:""`
	Host                   string `yaml:"host" env:"TARGET_HOST" env-default:"localhost"`
	Port                   int    `yaml:"port" env:"TARGET_PORT" env-default:"0"`
	Database               string `yaml:"database" env:"TARGET_DATABASE" env-default:""`
	User                   string `yaml:"user" env:"TARGET_USER" env-default:""`
	Password               string `yaml:"-" env:"TARGET_PASSWORD"` // Secret - not in YAML
	SSLMode                string `yaml:"ssl_mode" env:"TARGET_SSL_MODE" env-default:""`
	TrustServerCertificate bool   `yaml:"trust_server_certificate" env:"TARGET_TRUST_SERVER_CERTIFICATE" env-default:"false"`
}

// MigrationConfig holds orchestrator settings.
type MigrationConfig struct {
	// StatementLogMaxLength caps each logged DDL statement.
	StatementLogMaxLength int `yaml:"statement_log_max_length" env:"MIGRATION_STATEMENT_LOG_MAX_LENGTH" env-default:"2000"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// A missing config.yaml is not an error: defaults and environment apply.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultPath, version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, statErr := os.Stat(path); statErr == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Target.Engine != "" {
		engine, err := models.ParseEngine(c.Target.Engine)
		if err != nil {
			return fmt.Errorf("target.engine: %w", err)
		}
		c.Target.Engine = string(engine)
	}
	if c.Datasource.PoolMinConns > c.Datasource.PoolMaxConns {
		return fmt.Errorf("datasource.pool_min_conns (%d) exceeds pool_max_conns (%d)",
			c.Datasource.PoolMinConns, c.Datasource.PoolMaxConns)
	}
	return nil
}

// IsProduction reports whether the server runs with production logging.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// ConnectionParams converts the target section into connection parameters.
// Fields left empty stay empty; callers overlay request or flag values.
func (t TargetConfig) ConnectionParams() models.ConnectionParams {
	return models.ConnectionParams{
		Engine:                 models.Engine(t.Engine),
		Host:                   t.Host,
		Port:                   t.Port,
		Database:               t.Database,
		Username:               t.User,
		Password:               t.Password,
		SSLMode:                t.SSLMode,
		TrustServerCertificate: t.TrustServerCertificate,
	}
}
