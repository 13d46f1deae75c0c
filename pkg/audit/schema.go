// Package audit records schema changes that lose data, for later review.
// Events are logged as structured JSON under a dedicated logger name so they
// can be shipped to a SIEM or audit store without parsing ordinary logs.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/logging"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// EventType categorizes audited schema events.
type EventType string

const (
	// EventDestructiveChange is logged after a statement that drops data ran.
	EventDestructiveChange EventType = "destructive_change"
	// EventDestructiveSkipped is logged when destructive steps were withheld
	// because the caller did not approve data loss.
	EventDestructiveSkipped EventType = "destructive_change_skipped"
	// EventPlanFailed is logged when a statement failed mid-plan, leaving the
	// table partially migrated.
	EventPlanFailed EventType = "plan_failed"
)

// Event is one audited schema change.
type Event struct {
	Timestamp time.Time     `json:"timestamp"`
	EventType EventType     `json:"event_type"`
	PlanID    uuid.UUID     `json:"plan_id"`
	RequestID string        `json:"request_id,omitempty"`
	Engine    models.Engine `json:"engine"`
	// Target identifies the database without credentials.
	Target   string `json:"target"`
	Table    string `json:"table"`
	Details  any    `json:"details"`
	Severity string `json:"severity"` // info, warning, critical
}

// StepDetails describes the step an event is about.
type StepDetails struct {
	Step       models.StepKind `json:"step"`
	Object     string          `json:"object"`
	Statements []string        `json:"statements,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// SchemaAuditor logs audited schema events.
type SchemaAuditor struct {
	logger *zap.Logger
}

// NewSchemaAuditor creates an auditor logging under the "schema_audit" name.
func NewSchemaAuditor(logger *zap.Logger) *SchemaAuditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaAuditor{logger: logger.Named("schema_audit")}
}

// IsDestructive reports whether running step loses data.
func IsDestructive(kind models.StepKind) bool {
	return kind == models.StepDropTable || kind == models.StepDropColumn
}

// LogDestructiveChange records a data-losing step that was applied.
func (a *SchemaAuditor) LogDestructiveChange(ctx context.Context, conn models.ConnectionParams, report *models.PlanReport, outcome models.StepOutcome) {
	event := a.event(ctx, EventDestructiveChange, "warning", conn, report)
	event.Details = StepDetails{
		Step:       outcome.Step.Kind,
		Object:     outcome.Step.Target(),
		Statements: outcome.Statements,
	}

	a.logger.Warn("Destructive schema change applied",
		zap.String("event_json", marshal(event)),
		zap.String("plan_id", report.ID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("target", event.Target),
		zap.String("step", string(outcome.Step.Kind)),
		zap.String("object", outcome.Step.Target()),
		zap.String("severity", event.Severity),
	)
}

// LogDestructiveSkipped records destructive column changes that were withheld.
func (a *SchemaAuditor) LogDestructiveSkipped(ctx context.Context, conn models.ConnectionParams, report *models.PlanReport) {
	event := a.event(ctx, EventDestructiveSkipped, "info", conn, report)
	event.Details = map[string][]string{"columns": report.Skipped}

	a.logger.Info("Destructive schema change skipped",
		zap.String("event_json", marshal(event)),
		zap.String("plan_id", report.ID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("target", event.Target),
		zap.Strings("columns", report.Skipped),
		zap.String("severity", event.Severity),
	)
}

// LogPlanFailed records a failed step. Earlier steps of the plan stay applied.
func (a *SchemaAuditor) LogPlanFailed(ctx context.Context, conn models.ConnectionParams, report *models.PlanReport, outcome models.StepOutcome) {
	event := a.event(ctx, EventPlanFailed, "critical", conn, report)
	event.Details = StepDetails{
		Step:       outcome.Step.Kind,
		Object:     outcome.Step.Target(),
		Statements: []string{logging.SanitizeQuery(outcome.FailedStatement)},
		Error:      outcome.Error,
	}

	a.logger.Error("Schema change plan failed",
		zap.String("event_json", marshal(event)),
		zap.String("plan_id", report.ID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("target", event.Target),
		zap.Int("succeeded", len(report.Succeeded())),
		zap.Int("not_attempted", len(report.NotAttempted())),
		zap.String("severity", event.Severity),
	)
}

func (a *SchemaAuditor) event(ctx context.Context, eventType EventType, severity string, conn models.ConnectionParams, report *models.PlanReport) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		PlanID:    report.ID,
		RequestID: logging.RequestIDFromContext(ctx),
		Engine:    conn.Engine,
		Target:    conn.Key(),
		Table:     report.Table,
		Severity:  severity,
	}
}

// marshal ignores errors: Event holds only JSON-safe types.
func marshal(event Event) string {
	b, _ := json.Marshal(event)
	return string(b)
}
