package models

import (
	"fmt"
	"strings"
)

// ConnectionParams carries everything needed to reach one database on one
// server. It is passed explicitly into every operation; nothing in this module
// keeps a "current connection".
type ConnectionParams struct {
	Engine   Engine `json:"engine" yaml:"engine"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port,omitempty" yaml:"port,omitempty"`
	Database string `json:"database" yaml:"database"`
	Username string `json:"username" yaml:"username"`
	Password string `json:"password,omitempty" yaml:"-"`

	// TrustServerCertificate applies to SQL Server.
	TrustServerCertificate bool `json:"trust_server_certificate,omitempty" yaml:"trust_server_certificate,omitempty"`
	// SSLMode applies to PostgreSQL ("disable", "require", ...) and MySQL
	// ("true", "false", "skip-verify", "preferred").
	SSLMode string `json:"ssl_mode,omitempty" yaml:"ssl_mode,omitempty"`
}

// DefaultPort returns the well-known port for the engine.
func (e Engine) DefaultPort() int {
	switch e {
	case EngineSQLServer:
		return 1433
	case EngineMySQL:
		return 3306
	case EnginePostgres:
		return 5432
	}
	return 0
}

// EffectivePort returns Port, or the engine default when Port is unset.
func (p ConnectionParams) EffectivePort() int {
	if p.Port > 0 {
		return p.Port
	}
	return p.Engine.DefaultPort()
}

// WithDatabase returns a copy of p scoped to another database on the same server.
func (p ConnectionParams) WithDatabase(database string) ConnectionParams {
	p.Database = database
	return p
}

// Key identifies the connection for pooling. The password is deliberately
// excluded so keys can be logged.
func (p ConnectionParams) Key() string {
	return fmt.Sprintf("%s:%s@%s:%d/%s", p.Engine, p.Username, strings.ToLower(p.Host), p.EffectivePort(), p.Database)
}

// Validate checks the fields every engine needs.
func (p ConnectionParams) Validate() error {
	if p.Host == "" {
		return fmt.Errorf("host is required")
	}
	if p.Database == "" {
		return fmt.Errorf("database is required")
	}
	if p.Username == "" {
		return fmt.Errorf("username is required")
	}
	if port := p.EffectivePort(); port <= 0 || port > 65535 {
		return fmt.Errorf("invalid port: %d", port)
	}
	return nil
}
