package handlers

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
	"github.com/ekaya-inc/ekaya-migrate/pkg/services"
)

// --- Request Types ---

// ConnectionRequest is the body of every endpoint that only needs a target.
type ConnectionRequest struct {
	Connection models.ConnectionParams `json:"connection"`
}

// ListColumnsRequest names the table whose live columns are read.
type ListColumnsRequest struct {
	Connection models.ConnectionParams `json:"connection"`
	Table      string                  `json:"table"`
}

// --- Response Types ---

// EnginesResponse lists the registered engines.
type EnginesResponse struct {
	Engines any `json:"engines"`
}

// DatabasesResponse lists databases on a server.
type DatabasesResponse struct {
	Databases []string `json:"databases"`
}

// TablesResponse lists tables in a database.
type TablesResponse struct {
	Tables []string `json:"tables"`
}

// ColumnsResponse lists the live columns of a table.
type ColumnsResponse struct {
	Table   string                      `json:"table"`
	Columns []models.LiveColumnSnapshot `json:"columns"`
}

// SchemaHandler serves read-only introspection of a target database.
type SchemaHandler struct {
	schemaService services.SchemaService
	logger        *zap.Logger
}

// NewSchemaHandler creates a new schema handler.
func NewSchemaHandler(schemaService services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/engines", h.ListEngines)
	mux.HandleFunc("POST /api/connection/test", h.TestConnection)
	mux.HandleFunc("POST /api/schema/databases", h.ListDatabases)
	mux.HandleFunc("POST /api/schema/tables", h.ListTables)
	mux.HandleFunc("POST /api/schema/columns", h.ListColumns)
}

// ListEngines handles GET /api/engines
func (h *SchemaHandler) ListEngines(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, h.logger, EnginesResponse{Engines: h.schemaService.ListEngines()}, "")
}

// TestConnection handles POST /api/connection/test
// A reachable-but-failing target is reported with success=false and a 200.
func (h *SchemaHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	if err := h.schemaService.TestConnection(r.Context(), req.Connection); err != nil {
		if status, _ := errorStatus(err); status == http.StatusBadRequest {
			writeServiceError(w, h.logger, err, nil)
			return
		}
		response := ApiResponse{Success: false, Error: "connection_failed", Message: err.Error()}
		if err := WriteJSON(w, http.StatusOK, response); err != nil {
			h.logger.Error("Failed to encode response", zap.Error(err))
		}
		return
	}

	writeSuccess(w, h.logger, nil, "Connection successful")
}

// ListDatabases handles POST /api/schema/databases
func (h *SchemaHandler) ListDatabases(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	databases, err := h.schemaService.ListDatabases(r.Context(), req.Connection)
	if err != nil {
		writeServiceError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, h.logger, DatabasesResponse{Databases: nonNil(databases)}, "")
}

// ListTables handles POST /api/schema/tables
func (h *SchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	var req ConnectionRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)

	tables, err := h.schemaService.ListTables(r.Context(), req.Connection)
	if err != nil {
		writeServiceError(w, h.logger, err, nil)
		return
	}
	writeSuccess(w, h.logger, TablesResponse{Tables: nonNil(tables)}, "")
}

// ListColumns handles POST /api/schema/columns
func (h *SchemaHandler) ListColumns(w http.ResponseWriter, r *http.Request) {
	var req ListColumnsRequest
	if !decodeJSON(w, r, h.logger, &req) {
		return
	}
	normalizeConnection(&req.Connection)
	if strings.TrimSpace(req.Table) == "" {
		badRequest(w, h.logger, "missing_table", "table is required")
		return
	}

	columns, err := h.schemaService.ListColumns(r.Context(), req.Connection, req.Table)
	if err != nil {
		writeServiceError(w, h.logger, err, nil)
		return
	}
	if columns == nil {
		columns = []models.LiveColumnSnapshot{}
	}
	writeSuccess(w, h.logger, ColumnsResponse{Table: req.Table, Columns: columns}, "")
}

// normalizeConnection accepts engine aliases such as "postgresql" or
// "sqlserver". Unknown names are left for the service to reject.
func normalizeConnection(conn *models.ConnectionParams) {
	if engine, err := models.ParseEngine(string(conn.Engine)); err == nil {
		conn.Engine = engine
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
