package audit

import (
	"context"

	libinjection "github.com/corazawaf/libinjection-go"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// EventSuspiciousIdentifier is logged when a table or column name parses as
// SQL. Quoting keeps such names inert, so the plan still runs.
const EventSuspiciousIdentifier EventType = "suspicious_identifier"

// SuspiciousIdentifier is one flagged name.
type SuspiciousIdentifier struct {
	Role        string `json:"role"` // table, new_table or column
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

// ScreenIdentifiers runs every identifier the steps would emit through
// libinjection and returns the ones it flags.
func ScreenIdentifiers(steps []models.MigrationPlanStep) []SuspiciousIdentifier {
	var found []SuspiciousIdentifier
	check := func(role, name string) {
		if name == "" {
			return
		}
		if isSQLi, fingerprint := libinjection.IsSQLi(name); isSQLi {
			found = append(found, SuspiciousIdentifier{Role: role, Name: name, Fingerprint: string(fingerprint)})
		}
	}

	for _, step := range steps {
		check("table", step.Table)
		check("new_table", step.NewName)
		check("column", step.ColumnName)
		if step.Column != nil {
			check("column", step.Column.Name)
		}
		if step.Definition != nil {
			for _, col := range step.Definition.Columns {
				check("column", col.Name)
			}
		}
	}
	return found
}

// LogSuspiciousIdentifiers records names flagged by ScreenIdentifiers.
func (a *SchemaAuditor) LogSuspiciousIdentifiers(ctx context.Context, conn models.ConnectionParams, report *models.PlanReport, found []SuspiciousIdentifier) {
	if len(found) == 0 {
		return
	}
	event := a.event(ctx, EventSuspiciousIdentifier, "warning", conn, report)
	event.Details = found

	names := make([]string, len(found))
	for i, f := range found {
		names[i] = f.Name
	}

	a.logger.Warn("Identifier looks like SQL injection",
		zap.String("event_json", marshal(event)),
		zap.String("plan_id", report.ID.String()),
		zap.String("request_id", event.RequestID),
		zap.String("target", event.Target),
		zap.Strings("identifiers", names),
		zap.String("severity", event.Severity),
	)
}
