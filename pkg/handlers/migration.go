package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// --- Request Types ---

// CreateTableRequest for POST /api/tables/create.
type CreateTableRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      models.TableDefinition  `json:"table"`
}

// DropTableRequest for POST /api/tables/drop. Confirm must be true.
type DropTableRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      string                  `json:"table"`
	Confirm    bool                    `json:"confirm"`
}

// RenameTableRequest for POST /api/tables/rename.
type RenameTableRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	From       string                  `json:"from"`
	To         string                  `json:"to"`
}

// ColumnRequest for POST /api/columns/add and /api/columns/alter.
type ColumnRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      string                  `json:"table"`
	Column     models.ColumnDefinition `json:"column"`
}

// DropColumnRequest for POST /api/columns/drop.
type DropColumnRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      string                  `json:"table"`
	Column     string                  `json:"column"`
}

// DiffRequest for POST /api/tables/diff. Table is the live table name and
// defaults to desired.name.
type DiffRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      string                  `json:"table"`
	Desired    models.TableDefinition  `json:"desired"`
}

// ApplyRequest for POST /api/tables/apply. Either Diff or Desired must be
// set; when only Desired is given the diff is computed first.
type ApplyRequest struct {
	Connection         models.ConnectionParams `json:"connection"`
	Table              string                  `json:"table"`
	Desired            *models.TableDefinition `json:"desired,omitempty"`
	Diff               *models.SchemaDiff      `json:"diff,omitempty"`
	ApproveDestructive bool                    `json:"approve_destructive"`
	DryRun             bool                    `json:"dry_run"`
}

// PreviewRequest for POST /api/ddl/preview.
type PreviewRequest struct {
	Engine models.Engine            `json:"engine"`
	Step   models.MigrationPlanStep `json:"step"`
}

// --- Response Types ---

// DiffResponse carries a computed diff.
type DiffResponse struct {
	Table          string             `json:"table"`
	Diff           *models.SchemaDiff `json:"diff"`
	Empty          bool               `json:"empty"`
	HasDestructive bool               `json:"has_destructive"`
}

// PreviewResponse carries rendered statements.
type PreviewResponse struct {
	Engine     models.Engine `json:"engine"`
	Statements []string      `json:"statements"`
}

// MigrationHandler serves the schema-changing endpoints.
type MigrationHandler struct {
	migrationService services.MigrationService
	logger           *zap.Logger
}

// NewMigrationHandler creates a new migration handler.
func NewMigrationHandler(migrationService services.MigrationService, logger *zap.Logger) *MigrationHandler {
	return &MigrationHandler{migrationService: migrationService, logger: logger}
}

// RegisterRoutes registers the migration handler's routes on the given mux.
func (h *MigrationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/tables/create", h.CreateTable)
	mux.HandleFunc("POST /api/tables/drop", h.DropTable)
	mux.HandleFunc("POST /api/tables/rename", h.RenameTable)
	mux.HandleFunc("POST /api/tables/diff", h.Diff)
	mux.HandleFunc("POST /api/tables/apply", h.Apply)
	mux.HandleFunc("POST /api/columns/add", h.AddColumn)
	mux.HandleFunc("POST /api/columns/drop", h.DropColumn)
	mux.HandleFunc("POST /api/columns/alter", h.AlterColumn)
	mux.HandleFunc("POST /api/ddl/preview", h.Preview)
}

// CreateTable handles POST /api/tables/create
func (h *MigrationHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	report, err := h.migrationService.CreateTable(r.Context(), req.Connection, req.Table)
	h.writeReport(w, report, err)
}

// DropTable handles POST /api/tables/drop
func (h *MigrationHandler) DropTable(w http.ResponseWriter, r *http.Request) {
	var req DropTableRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if !requireName(w, h.logger, "table", req.Table) {
		return
	}
	if !req.Confirm {
		badRequest(w, h.logger, "confirmation_required", "Dropping a table deletes its data; set confirm to true")
		return
	}

	report, err := h.migrationService.DropTable(r.Context(), req.Connection, req.Table)
	h.writeReport(w, report, err)
}

// RenameTable handles POST /api/tables/rename
func (h *MigrationHandler) RenameTable(w http.ResponseWriter, r *http.Request) {
	var req RenameTableRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if !requireName(w, h.logger, "from", req.From) || !requireName(w, h.logger, "to", req.To) {
		return
	}

	report, err := h.migrationService.RenameTable(r.Context(), req.Connection, req.From, req.To)
	h.writeReport(w, report, err)
}

// AddColumn handles POST /api/columns/add
func (h *MigrationHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req ColumnRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if !requireName(w, h.logger, "table", req.Table) {
		return
	}

	report, err := h.migrationService.AddColumn(r.Context(), req.Connection, req.Table, req.Column)
	h.writeReport(w, report, err)
}

// DropColumn handles POST /api/columns/drop
func (h *MigrationHandler) DropColumn(w http.ResponseWriter, r *http.Request) {
	var req DropColumnRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if !requireName(w, h.logger, "table", req.Table) || !requireName(w, h.logger, "column", req.Column) {
		return
	}

	report, err := h.migrationService.DropColumn(r.Context(), req.Connection, req.Table, req.Column)
	h.writeReport(w, report, err)
}

// AlterColumn handles POST /api/columns/alter
func (h *MigrationHandler) AlterColumn(w http.ResponseWriter, r *http.Request) {
	var req ColumnRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if !requireName(w, h.logger, "table", req.Table) {
		return
	}

	report, err := h.migrationService.AlterColumn(r.Context(), req.Connection, req.Table, req.Column)
	h.writeReport(w, report, err)
}

// Diff handles POST /api/tables/diff
func (h *MigrationHandler) Diff(w http.ResponseWriter, r *http.Request) {
	var req DiffRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	table := req.Table
	if table == "" {
		table = req.Desired.Name
	}

	diff, err := h.migrationService.ComputeDiff(r.Context(), req.Connection, req.Desired, table)
	if err != nil {
		writeServiceError(w, h.logger, err, nil)
		return
	}

	writeSuccess(w, h.logger, DiffResponse{
		Table:          table,
		Diff:           diff,
		Empty:          diff.IsEmpty(),
		HasDestructive: diff.HasDestructive(),
	}, "")
}

// Apply handles POST /api/tables/apply
func (h *MigrationHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	if req.Diff == nil && req.Desired == nil {
		badRequest(w, h.logger, "missing_diff", "either diff or desired is required")
		return
	}

	table := req.Table
	if table == "" && req.Desired != nil {
		table = req.Desired.Name
	}
	if !requireName(w, h.logger, "table", table) {
		return
	}

	diff := req.Diff
	if diff == nil {
		computed, err := h.migrationService.ComputeDiff(r.Context(), req.Connection, *req.Desired, table)
		if err != nil {
			writeServiceError(w, h.logger, err, nil)
			return
		}
		diff = computed
	}

	if req.DryRun {
		report, err := h.migrationService.PlanModification(*diff, table, req.Connection.Engine, req.ApproveDestructive)
		h.writeReport(w, report, err)
		return
	}

	report, err := h.migrationService.ApplyModificationPlan(r.Context(), req.Connection, *diff, table, req.ApproveDestructive)
	h.writeReport(w, report, err)
}

// Preview handles POST /api/ddl/preview
func (h *MigrationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	if engine, err := models.ParseEngine(string(req.Engine)); err == nil {
		req.Engine = engine
	}

	statements, err := h.migrationService.Preview(req.Step, req.Engine)
	if err != nil {
		writeServiceError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, h.logger, PreviewResponse{Engine: req.Engine, Statements: statements}, "")
}

// writeReport writes a plan report. A failed run still returns the report so
// the caller can see which steps were applied.
func (h *MigrationHandler) writeReport(w http.ResponseWriter, report *models.PlanReport, err error) {
	if err != nil {
		var data any
		if report != nil {
			data = report
		}
		writeServiceError(w, h.logger, err, data)
		return
	}

	message := ""
	if errors.Is(report.Err(), apperrors.ErrDestructiveChangeNotApproved) {
		message = report.Err().Error() + ": " + strings.Join(report.Skipped, ", ")
	}
	writeSuccess(w, h.logger, report, message)
}

func requireName(w http.ResponseWriter, logger *zap.Logger, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		badRequest(w, logger, "missing_"+field, field+" is required")
		return false
	}
	return true
}
