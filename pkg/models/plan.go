package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// StepKind tags a MigrationPlanStep.
type StepKind string

const (
	StepCreateTable StepKind = "create_table"
	StepDropTable   StepKind = "drop_table"
	StepRenameTable StepKind = "rename_table"
	StepAddColumn   StepKind = "add_column"
	StepDropColumn  StepKind = "drop_column"
	StepAlterColumn StepKind = "alter_column"
)

// MigrationPlanStep is one unit of schema change. Which fields are populated
// depends on Kind; use the constructors below rather than building it by hand.
type MigrationPlanStep struct {
	Kind StepKind `json:"kind"`
	// Table is the table the step addresses. For a rename it is the old name.
	Table string `json:"table"`
	// NewName is the rename target.
	NewName string `json:"new_name,omitempty"`
	// Definition is set for CreateTable.
	Definition *TableDefinition `json:"definition,omitempty"`
	// Column is set for AddColumn and AlterColumn.
	Column *ColumnDefinition `json:"column,omitempty"`
	// ColumnName is set for DropColumn.
	ColumnName string `json:"column_name,omitempty"`
}

func CreateTableStep(def TableDefinition) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepCreateTable, Table: def.Name, Definition: &def}
}

func DropTableStep(table string) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepDropTable, Table: table}
}

func RenameTableStep(from, to string) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepRenameTable, Table: from, NewName: to}
}

func AddColumnStep(table string, col ColumnDefinition) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepAddColumn, Table: table, Column: &col}
}

func DropColumnStep(table, column string) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepDropColumn, Table: table, ColumnName: column}
}

func AlterColumnStep(table string, col ColumnDefinition) MigrationPlanStep {
	return MigrationPlanStep{Kind: StepAlterColumn, Table: table, Column: &col}
}

// Target names the object the step changes, for reports and logs.
func (s MigrationPlanStep) Target() string {
	switch s.Kind {
	case StepRenameTable:
		return fmt.Sprintf("%s -> %s", s.Table, s.NewName)
	case StepAddColumn, StepAlterColumn:
		if s.Column != nil {
			return s.Table + "." + s.Column.Name
		}
	case StepDropColumn:
		return s.Table + "." + s.ColumnName
	}
	return s.Table
}

// StepStatus is the outcome of one step in a plan run.
type StepStatus string

const (
	StepSucceeded    StepStatus = "succeeded"
	StepFailed       StepStatus = "failed"
	StepNotAttempted StepStatus = "not_attempted"
	StepSkipped      StepStatus = "skipped"
)

// StepOutcome records what happened to one step.
type StepOutcome struct {
	Step       MigrationPlanStep `json:"step"`
	Statements []string          `json:"statements"`
	Status     StepStatus        `json:"status"`
	// FailedStatement is the statement the engine rejected.
	FailedStatement string `json:"failed_statement,omitempty"`
	Error           string `json:"error,omitempty"`
}

// PlanReport is the per-step result of applying a modification plan. Steps
// appear in execution order; steps after a failure are not_attempted and are
// never rolled back.
type PlanReport struct {
	ID    uuid.UUID     `json:"id"`
	Table string        `json:"table"`
	Steps []StepOutcome `json:"steps"`
	// Skipped lists destructively modified columns that were not applied
	// because the caller did not approve data loss.
	Skipped []string `json:"skipped,omitempty"`
}

// NewPlanReport creates an empty report for table.
func NewPlanReport(table string) *PlanReport {
	return &PlanReport{ID: uuid.New(), Table: table, Steps: []StepOutcome{}}
}

// ErrDestructiveSkipped is returned by PlanReport.Err when destructive steps
// were withheld. It is aliased by apperrors.ErrDestructiveChangeNotApproved.
var ErrDestructiveSkipped = errors.New("destructive changes were not approved and were skipped")

func (r *PlanReport) filter(status StepStatus) []StepOutcome {
	var out []StepOutcome
	for _, s := range r.Steps {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out
}

// Succeeded returns the steps that were applied.
func (r *PlanReport) Succeeded() []StepOutcome { return r.filter(StepSucceeded) }

// NotAttempted returns the steps that never ran because an earlier step failed.
func (r *PlanReport) NotAttempted() []StepOutcome { return r.filter(StepNotAttempted) }

// Failed returns the failing step, or nil.
func (r *PlanReport) Failed() *StepOutcome {
	for i := range r.Steps {
		if r.Steps[i].Status == StepFailed {
			return &r.Steps[i]
		}
	}
	return nil
}

// Complete reports whether every step succeeded and nothing was skipped.
func (r *PlanReport) Complete() bool {
	return r.Failed() == nil && len(r.NotAttempted()) == 0 && len(r.Skipped) == 0
}

// Err returns the soft "not approved" signal when destructive columns were
// skipped. Hard failures are returned by the orchestrator, not here.
func (r *PlanReport) Err() error {
	if len(r.Skipped) > 0 {
		return ErrDestructiveSkipped
	}
	return nil
}
