package mssql

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Config contains SQL Server-specific connection options.
type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string

	// Connection options
	Encrypt                bool
	TrustServerCertificate bool
	ConnectionTimeout      int
}

// DefaultPort returns the default SQL Server port.
func DefaultPort() int {
	return models.EngineSQLServer.DefaultPort()
}

// DefaultConnectionTimeout returns the default connection timeout in seconds.
func DefaultConnectionTimeout() int {
	return 30
}

// FromParams creates a Config from engine-neutral connection parameters.
// Encryption is on unless SSLMode is "disable" or "false".
func FromParams(params models.ConnectionParams) (*Config, error) {
	if params.Engine != "" && params.Engine != models.EngineSQLServer {
		return nil, fmt.Errorf("connection parameters are for %s, not mssql", params.Engine)
	}

	cfg := &Config{
		Host:                   params.Host,
		Port:                   params.EffectivePort(),
		Database:               params.Database,
		Username:               params.Username,
		Password:               params.Password,
		Encrypt:                true,
		TrustServerCertificate: params.TrustServerCertificate,
		ConnectionTimeout:      DefaultConnectionTimeout(),
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort()
	}
	switch params.SSLMode {
	case "disable", "false":
		cfg.Encrypt = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields required for SQL authentication.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Username == "" {
		return fmt.Errorf("username is required for SQL authentication")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// buildConnectionString builds a sqlserver:// URL for the go-mssqldb driver.
func buildConnectionString(cfg *Config) string {
	query := url.Values{}
	query.Add("database", cfg.Database)

	if cfg.Encrypt {
		query.Add("encrypt", "true")
	} else {
		query.Add("encrypt", "false")
	}

	if cfg.TrustServerCertificate {
		query.Add("TrustServerCertificate", "true")
	}

	if cfg.ConnectionTimeout > 0 {
		query.Add("connection timeout", strconv.Itoa(cfg.ConnectionTimeout))
	}

	u := url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(cfg.Username, cfg.Password),
		Host:     fmt.Sprintf("%s:%d", config.ResolveHostForDocker(cfg.Host), cfg.Port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// BuildConnectionString renders params as a SQL Server connection URL.
func BuildConnectionString(params models.ConnectionParams) (string, error) {
	cfg, err := FromParams(params)
	if err != nil {
		return "", err
	}
	return buildConnectionString(cfg), nil
}
