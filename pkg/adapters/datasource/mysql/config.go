package mysql

import (
	"fmt"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"

	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Config contains MySQL-specific connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	// TLS is the driver tls parameter: "true", "false", "skip-verify" or "preferred".
	TLS               string
	ConnectionTimeout time.Duration
}

// DefaultPort returns the default MySQL port.
func DefaultPort() int {
	return models.EngineMySQL.DefaultPort()
}

// DefaultTLS returns the default tls mode.
func DefaultTLS() string {
	return "preferred"
}

// tlsModes maps accepted ssl_mode spellings to driver tls values. PostgreSQL
// style names are accepted so one ssl_mode works across engines.
var tlsModes = map[string]string{
	"true":        "true",
	"false":       "false",
	"skip-verify": "skip-verify",
	"preferred":   "preferred",
	"disable":     "false",
	"prefer":      "preferred",
	"require":     "skip-verify",
	"verify-full": "true",
}

// FromParams creates a Config from engine-neutral connection parameters.
func FromParams(params models.ConnectionParams) (*Config, error) {
	if params.Engine != "" && params.Engine != models.EngineMySQL {
		return nil, fmt.Errorf("connection parameters are for %s, not mysql", params.Engine)
	}

	cfg := &Config{
		Host:              params.Host,
		Port:              params.EffectivePort(),
		User:              params.Username,
		Password:          params.Password,
		Database:          params.Database,
		TLS:               DefaultTLS(),
		ConnectionTimeout: 30 * time.Second,
	}
	if cfg.Port <= 0 {
		cfg.Port = DefaultPort()
	}
	if params.SSLMode != "" {
		tls, ok := tlsModes[params.SSLMode]
		if !ok {
			return nil, fmt.Errorf("invalid ssl_mode: %s", params.SSLMode)
		}
		cfg.TLS = tls
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields required to connect.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.User == "" {
		return fmt.Errorf("user is required")
	}
	if c.Database == "" {
		return fmt.Errorf("database is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	return nil
}

// driverConfig builds the go-sql-driver configuration. The driver formats the
// DSN itself, so credentials need no manual escaping.
func driverConfig(cfg *Config) *mysqldriver.Config {
	dc := mysqldriver.NewConfig()
	dc.User = cfg.User
	dc.Passwd = cfg.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(config.ResolveHostForDocker(cfg.Host), strconv.Itoa(cfg.Port))
	dc.DBName = cfg.Database
	dc.TLSConfig = cfg.TLS
	dc.Timeout = cfg.ConnectionTimeout
	dc.ParseTime = true
	return dc
}

func buildConnectionString(cfg *Config) string {
	return driverConfig(cfg).FormatDSN()
}

// BuildConnectionString renders params as a go-sql-driver DSN.
func BuildConnectionString(params models.ConnectionParams) (string, error) {
	cfg, err := FromParams(params)
	if err != nil {
		return "", err
	}
	return buildConnectionString(cfg), nil
}
