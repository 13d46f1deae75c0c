package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/audit"
	"github.com/ekaya-inc/ekaya-migrate/pkg/ddl"
	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/metrics"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/schemadiff"
)

// MigrationService applies schema changes to a live database. Every call
// takes the connection parameters explicitly; nothing is remembered between
// calls.
type MigrationService interface {
	// CreateTable creates a table from def.
	CreateTable(ctx context.Context, conn models.ConnectionParams, def models.TableDefinition) (*models.PlanReport, error)

	// DropTable drops a table and all of its data.
	DropTable(ctx context.Context, conn models.ConnectionParams, table string) (*models.PlanReport, error)

	// RenameTable renames a table in place.
	RenameTable(ctx context.Context, conn models.ConnectionParams, from, to string) (*models.PlanReport, error)

	// AddColumn adds col to table.
	AddColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error)

	// DropColumn drops a column and its data.
	DropColumn(ctx context.Context, conn models.ConnectionParams, table, column string) (*models.PlanReport, error)

	// AlterColumn changes a column in place using the engine's ALTER syntax.
	AlterColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error)

	// ComputeDiff reads the live columns of liveTable and compares them with
	// desired. An empty liveTable means desired.Name.
	ComputeDiff(ctx context.Context, conn models.ConnectionParams, desired models.TableDefinition, liveTable string) (*models.SchemaDiff, error)

	// PlanModification renders the statements ApplyModificationPlan would run,
	// without connecting. Every step is reported as not_attempted.
	PlanModification(diff models.SchemaDiff, table string, engine models.Engine, destructiveApproved bool) (*models.PlanReport, error)

	// ApplyModificationPlan applies diff to table: rename, adds, drops, then
	// destructive drop-and-add pairs when approved. It halts at the first
	// failing statement and does not roll back earlier steps.
	ApplyModificationPlan(ctx context.Context, conn models.ConnectionParams, diff models.SchemaDiff, table string, destructiveApproved bool) (*models.PlanReport, error)

	// Preview renders the statements for a single step without executing them.
	Preview(step models.MigrationPlanStep, engine models.Engine) ([]string, error)
}

// MigrationServiceConfig tunes the migration service.
type MigrationServiceConfig struct {
	// StatementLogMaxLength caps how much of each statement is logged.
	StatementLogMaxLength int
	// Metrics receives statement and step counts. Nil disables recording.
	Metrics *metrics.Collector
}

type migrationService struct {
	provider datasource.ConnectionProvider
	config   MigrationServiceConfig
	auditor  *audit.SchemaAuditor
	logger   *zap.Logger
}

// NewMigrationService creates a migration service over provider.
func NewMigrationService(provider datasource.ConnectionProvider, cfg MigrationServiceConfig, logger *zap.Logger) MigrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.StatementLogMaxLength <= 0 {
		cfg.StatementLogMaxLength = logging.MaxQueryLogLength
	}
	return &migrationService{
		provider: provider,
		config:   cfg,
		auditor:  audit.NewSchemaAuditor(logger),
		logger:   logger.Named("migration"),
	}
}

func (s *migrationService) CreateTable(ctx context.Context, conn models.ConnectionParams, def models.TableDefinition) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, def.Name, models.CreateTableStep(def))
}

func (s *migrationService) DropTable(ctx context.Context, conn models.ConnectionParams, table string) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, table, models.DropTableStep(table))
}

func (s *migrationService) RenameTable(ctx context.Context, conn models.ConnectionParams, from, to string) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, from, models.RenameTableStep(from, to))
}

func (s *migrationService) AddColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, table, models.AddColumnStep(table, col))
}

func (s *migrationService) DropColumn(ctx context.Context, conn models.ConnectionParams, table, column string) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, table, models.DropColumnStep(table, column))
}

func (s *migrationService) AlterColumn(ctx context.Context, conn models.ConnectionParams, table string, col models.ColumnDefinition) (*models.PlanReport, error) {
	return s.runSteps(ctx, conn, table, models.AlterColumnStep(table, col))
}

func (s *migrationService) ComputeDiff(ctx context.Context, conn models.ConnectionParams, desired models.TableDefinition, liveTable string) (*models.SchemaDiff, error) {
	if !conn.Engine.IsValid() {
		return nil, apperrors.NewUnsupportedEngine(conn.Engine)
	}
	if err := desired.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDefinition, err)
	}
	if liveTable == "" {
		liveTable = desired.Name
	}

	reader, err := s.provider.NewMetadataProvider(ctx, conn)
	if err != nil {
		return nil, metadataError("connect", err)
	}
	defer reader.Close()

	live, err := reader.ListColumns(ctx, liveTable)
	if err != nil {
		return nil, metadataError("list columns", err)
	}
	if len(live) == 0 {
		return nil, fmt.Errorf("table %q: %w", liveTable, apperrors.ErrNotFound)
	}

	diff, err := schemadiff.ComputeForEngine(conn.Engine, desired, liveTable, live)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Computed schema diff",
		zap.String("engine", string(conn.Engine)),
		zap.String("table", liveTable),
		zap.String("renamed_to", diff.RenamedTo),
		zap.Int("added", len(diff.Added)),
		zap.Int("dropped", len(diff.Dropped)),
		zap.Int("destructive", len(diff.DestructivelyModified)),
	)
	return diff, nil
}

func (s *migrationService) PlanModification(diff models.SchemaDiff, table string, engine models.Engine, destructiveApproved bool) (*models.PlanReport, error) {
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("%w: table name is required", apperrors.ErrInvalidDefinition)
	}

	steps, skipped := schemadiff.Steps(diff, table, destructiveApproved)
	report, err := s.plan(table, engine, steps...)
	if err != nil {
		return nil, err
	}

	if len(skipped) > 0 {
		target := table
		if diff.RenamedTo != "" {
			target = diff.RenamedTo
		}
		for _, col := range diff.DestructivelyModified {
			report.Steps = append(report.Steps, models.StepOutcome{
				Step:       models.AlterColumnStep(target, col),
				Statements: []string{},
				Status:     models.StepSkipped,
			})
		}
		report.Skipped = skipped
	}
	return report, nil
}

func (s *migrationService) ApplyModificationPlan(ctx context.Context, conn models.ConnectionParams, diff models.SchemaDiff, table string, destructiveApproved bool) (*models.PlanReport, error) {
	report, err := s.PlanModification(diff, table, conn.Engine, destructiveApproved)
	if err != nil {
		return nil, err
	}

	if len(report.Skipped) > 0 {
		s.logger.Warn("Destructive changes not approved; skipping",
			zap.String("table", table),
			zap.Strings("columns", report.Skipped),
		)
		s.auditor.LogDestructiveSkipped(ctx, conn, report)
	}

	if err := s.execute(ctx, conn, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *migrationService) Preview(step models.MigrationPlanStep, engine models.Engine) ([]string, error) {
	return ddl.Build(step, engine)
}

// runSteps plans and executes steps as one report.
func (s *migrationService) runSteps(ctx context.Context, conn models.ConnectionParams, table string, steps ...models.MigrationPlanStep) (*models.PlanReport, error) {
	report, err := s.plan(table, conn.Engine, steps...)
	if err != nil {
		return nil, err
	}
	if err := s.execute(ctx, conn, report); err != nil {
		return report, err
	}
	return report, nil
}

// plan builds every statement up front so a mapping error never leaves a
// half-applied change behind.
func (s *migrationService) plan(table string, engine models.Engine, steps ...models.MigrationPlanStep) (*models.PlanReport, error) {
	if !engine.IsValid() {
		return nil, apperrors.NewUnsupportedEngine(engine)
	}
	statements, err := ddl.BuildAll(steps, engine)
	if err != nil {
		return nil, err
	}

	report := models.NewPlanReport(table)
	for i, step := range steps {
		report.Steps = append(report.Steps, models.StepOutcome{
			Step:       step,
			Statements: statements[i],
			Status:     models.StepNotAttempted,
		})
	}
	return report, nil
}

// execute runs the not_attempted steps of report in order. It stops at the
// first failing statement; later steps keep their not_attempted status.
func (s *migrationService) execute(ctx context.Context, conn models.ConnectionParams, report *models.PlanReport) error {
	defer s.config.Metrics.RecordReport(conn.Engine, report)

	if len(report.NotAttempted()) == 0 {
		return nil
	}

	steps := make([]models.MigrationPlanStep, len(report.Steps))
	for i, outcome := range report.Steps {
		steps[i] = outcome.Step
	}
	s.auditor.LogSuspiciousIdentifiers(ctx, conn, report, audit.ScreenIdentifiers(steps))

	executor, err := s.provider.NewMigrationExecutor(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to open migration executor: %w", err)
	}
	defer executor.Close()

	for i := range report.Steps {
		outcome := &report.Steps[i]
		if outcome.Status != models.StepNotAttempted {
			continue
		}

		for _, stmt := range outcome.Statements {
			start := time.Now()
			err := executor.ExecuteStatement(ctx, stmt)
			s.config.Metrics.RecordStatement(conn.Engine, outcome.Step.Kind, err, time.Since(start))
			if err != nil {
				outcome.Status = models.StepFailed
				outcome.FailedStatement = stmt
				outcome.Error = logging.SanitizeError(err)

				s.logger.Error("Migration step failed",
					zap.String("plan_id", report.ID.String()),
					zap.String("engine", string(conn.Engine)),
					zap.String("step", string(outcome.Step.Kind)),
					zap.String("target", outcome.Step.Target()),
					zap.String("statement", s.loggable(stmt)),
					zap.String("error", outcome.Error),
					zap.Int("not_attempted", len(report.NotAttempted())),
				)
				s.auditor.LogPlanFailed(ctx, conn, report, *outcome)
				return &apperrors.ExecutionError{Statement: stmt, Err: err}
			}

			s.logger.Info("Executed statement",
				zap.String("plan_id", report.ID.String()),
				zap.String("engine", string(conn.Engine)),
				zap.String("step", string(outcome.Step.Kind)),
				zap.String("statement", s.loggable(stmt)),
			)
		}
		outcome.Status = models.StepSucceeded
		if audit.IsDestructive(outcome.Step.Kind) {
			s.auditor.LogDestructiveChange(ctx, conn, report, *outcome)
		}
	}

	return nil
}

func (s *migrationService) loggable(stmt string) string {
	return logging.SanitizeQueryWithLimit(stmt, s.config.StatementLogMaxLength)
}

// metadataError wraps a reader failure in MetadataUnavailableError. Errors
// that already carry a class the caller branches on pass through.
func metadataError(operation string, err error) error {
	if errors.Is(err, apperrors.ErrMetadataUnavailable) ||
		errors.Is(err, apperrors.ErrUnsupportedEngine) ||
		errors.Is(err, apperrors.ErrInvalidConnection) {
		return err
	}
	return &apperrors.MetadataUnavailableError{Operation: operation, Err: err}
}

var _ MigrationService = (*migrationService)(nil)
