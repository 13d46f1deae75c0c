package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/config"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// providerFactory opens a connection provider. The returned func releases it.
type providerFactory func(cfg *config.Config, logger *zap.Logger) (datasource.ConnectionProvider, func() error)

func defaultProvider(cfg *config.Config, logger *zap.Logger) (datasource.ConnectionProvider, func() error) {
	connManager := datasource.NewConnectionManager(datasource.ConnectionManagerConfig{
		TTLMinutes:     cfg.Datasource.ConnectionTTLMinutes,
		MaxConnections: cfg.Datasource.MaxConnections,
		PoolMaxConns:   cfg.Datasource.PoolMaxConns,
		PoolMinConns:   cfg.Datasource.PoolMinConns,
	}, logger)
	return datasource.NewConnectionProvider(connManager, logger), connManager.Close
}

// cli holds flag values and lazily built services for one invocation.
type cli struct {
	out         io.Writer
	newProvider providerFactory

	configPath string
	logLevel   string
	output     string

	engine                 string
	host                   string
	port                   int
	database               string
	user                   string
	sslMode                string
	trustServerCertificate bool

	cfg       *config.Config
	logger    *zap.Logger
	release   func() error
	schema    services.SchemaService
	migration services.MigrationService
}

func newRootCmd(out io.Writer, newProvider providerFactory) *cobra.Command {
	c := &cli{out: out, newProvider: newProvider}

	root := &cobra.Command{
		Use:   "ekaya-migrate",
		Short: "Create and evolve tables on SQL Server, MySQL and PostgreSQL",
		Long: `ekaya-migrate renders portable table definitions into engine-specific DDL,
compares them with live tables and applies the difference step by step.

Connection flags default to the target section of config.yaml and the
TARGET_* environment variables. The password is read from TARGET_PASSWORD.`,
		SilenceUsage: true,
	}
	root.SetOut(out)

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", config.DefaultPath, "Config file path")
	pf.StringVar(&c.logLevel, "log-level", "warn", "Log level: debug, info, warn or error")
	pf.StringVarP(&c.output, "output", "o", "text", "Output format: text, json or yaml")
	pf.StringVarP(&c.engine, "engine", "e", "", "Target engine: mssql, mysql or postgres")
	pf.StringVar(&c.host, "host", "", "Target host")
	pf.IntVar(&c.port, "port", 0, "Target port (default: engine default)")
	pf.StringVarP(&c.database, "database", "d", "", "Target database")
	pf.StringVarP(&c.user, "user", "u", "", "Target user")
	pf.StringVar(&c.sslMode, "ssl-mode", "", "TLS mode (postgres: disable, require, ...; mysql: true, false, preferred, skip-verify)")
	pf.BoolVar(&c.trustServerCertificate, "trust-server-certificate", false, "Skip SQL Server certificate validation")

	root.AddCommand(
		newEnginesCmd(c),
		newDDLCmd(c),
		newTestCmd(c),
		newDatabasesCmd(c),
		newTablesCmd(c),
		newColumnsCmd(c),
		newCreateCmd(c),
		newDropCmd(c),
		newRenameCmd(c),
		newAddColumnCmd(c),
		newDropColumnCmd(c),
		newAlterColumnCmd(c),
		newDiffCmd(c),
		newApplyCmd(c),
	)
	return root
}

// setup loads configuration and the logger. It does not connect.
func (c *cli) setup() error {
	if c.cfg != nil {
		return nil
	}
	cfg, err := config.LoadFile(c.configPath, Version)
	if err != nil {
		return err
	}

	level, err := zapcore.ParseLevel(c.logLevel)
	if err != nil {
		return fmt.Errorf("invalid --log-level: %w", err)
	}
	zapCfg := zap.NewDevelopmentConfig()
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	logger, err := zapCfg.Build()
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	c.cfg = cfg
	c.logger = logger
	return nil
}

// services builds the schema and migration services on first use.
func (c *cli) services() error {
	if err := c.setup(); err != nil {
		return err
	}
	if c.migration != nil {
		return nil
	}

	provider, release := c.newProvider(c.cfg, c.logger)
	c.release = release
	c.schema = services.NewSchemaService(provider, c.logger)
	c.migration = services.NewMigrationService(provider, services.MigrationServiceConfig{
		StatementLogMaxLength: c.cfg.Migration.StatementLogMaxLength,
	}, c.logger)
	return nil
}

// withServices builds the services before fn and releases them after.
func (c *cli) withServices(fn func(cmd *cobra.Command, args []string) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := c.services(); err != nil {
			return err
		}
		defer func() {
			if err := c.close(); err != nil {
				c.logger.Warn("Failed to release connections", zap.Error(err))
			}
		}()
		return fn(cmd, args)
	}
}

func (c *cli) close() error {
	var err error
	if c.release != nil {
		err = c.release()
		c.release = nil
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
	return err
}

// connection overlays explicitly set flags on the configured target.
func (c *cli) connection(cmd *cobra.Command) (models.ConnectionParams, error) {
	if err := c.setup(); err != nil {
		return models.ConnectionParams{}, err
	}
	conn := c.cfg.Target.ConnectionParams()

	flags := cmd.Flags()
	if flags.Changed("engine") {
		conn.Engine = models.Engine(c.engine)
	}
	if flags.Changed("host") {
		conn.Host = c.host
	}
	if flags.Changed("port") {
		conn.Port = c.port
	}
	if flags.Changed("database") {
		conn.Database = c.database
	}
	if flags.Changed("user") {
		conn.Username = c.user
	}
	if flags.Changed("ssl-mode") {
		conn.SSLMode = c.sslMode
	}
	if flags.Changed("trust-server-certificate") {
		conn.TrustServerCertificate = c.trustServerCertificate
	}

	if conn.Engine == "" {
		return conn, fmt.Errorf("an engine is required (--engine or target.engine)")
	}
	engine, err := models.ParseEngine(string(conn.Engine))
	if err != nil {
		return conn, err
	}
	conn.Engine = engine
	return conn, nil
}

// engineFlag resolves --engine, falling back to the configured target.
func (c *cli) engineFlag(cmd *cobra.Command) (models.Engine, error) {
	if cmd.Flags().Changed("engine") {
		return models.ParseEngine(c.engine)
	}
	if err := c.setup(); err != nil {
		return "", err
	}
	if c.cfg.Target.Engine == "" {
		return "", fmt.Errorf("an engine is required (--engine or target.engine)")
	}
	return models.ParseEngine(c.cfg.Target.Engine)
}
