package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func serveSchema(t *testing.T, svc *mockSchemaService, method, path, body string) (*httptest.ResponseRecorder, ApiResponse) {
	t.Helper()
	mux := http.NewServeMux()
	NewSchemaHandler(svc, zap.NewNop()).RegisterRoutes(mux)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var resp ApiResponse
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
	}
	return rec, resp
}

func TestSchemaHandler_ListEngines(t *testing.T) {
	svc := &mockSchemaService{engines: []datasource.AdapterInfo{
		{Engine: models.EnginePostgres, DisplayName: "PostgreSQL", DefaultPort: 5432},
	}}

	rec, resp := serveSchema(t, svc, http.MethodGet, "/api/engines", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	data := resp.Data.(map[string]any)
	engines, ok := data["engines"].([]any)
	if !ok || len(engines) != 1 {
		t.Fatalf("expected 1 engine, got %v", data["engines"])
	}
	if engines[0].(map[string]any)["engine"] != "postgres" {
		t.Errorf("expected engine 'postgres', got %v", engines[0])
	}
}

func TestSchemaHandler_ListTables(t *testing.T) {
	svc := &mockSchemaService{tables: []string{"orders", "users"}}
	body := `{"connection":{"engine":"mysql","host":"db","database":"app","username":"u"}}`

	rec, resp := serveSchema(t, svc, http.MethodPost, "/api/schema/tables", body)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !resp.Success {
		t.Error("expected success to be true")
	}
	tables := resp.Data.(map[string]any)["tables"].([]any)
	if len(tables) != 2 || tables[0] != "orders" {
		t.Errorf("unexpected tables %v", tables)
	}
	if svc.lastConn.Database != "app" {
		t.Errorf("expected database 'app' passed through, got %q", svc.lastConn.Database)
	}
}

func TestSchemaHandler_ListDatabases_EmptyIsArray(t *testing.T) {
	svc := &mockSchemaService{}
	rec, _ := serveSchema(t, svc, http.MethodPost, "/api/schema/databases", `{"connection":{"engine":"mssql"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"databases":[]`) {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}

func TestSchemaHandler_ListColumns(t *testing.T) {
	svc := &mockSchemaService{columns: []models.LiveColumnSnapshot{
		{ColumnDefinition: models.ColumnDefinition{Name: "id", Type: models.Type(models.KindInt32), IsPrimaryKey: true}, IsIdentity: true},
	}}

	rec, _ := serveSchema(t, svc, http.MethodPost, "/api/schema/columns", `{"connection":{"engine":"pg"}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without table, got %d", rec.Code)
	}

	rec, resp := serveSchema(t, svc, http.MethodPost, "/api/schema/columns", `{"connection":{"engine":"pg"},"table":"users"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if svc.lastTable != "users" {
		t.Errorf("expected table 'users', got %q", svc.lastTable)
	}
	if svc.lastConn.Engine != models.EnginePostgres {
		t.Errorf("expected normalized engine, got %q", svc.lastConn.Engine)
	}
	columns := resp.Data.(map[string]any)["columns"].([]any)
	col := columns[0].(map[string]any)
	if col["type"] != "int32" || col["is_identity"] != true {
		t.Errorf("unexpected column %v", col)
	}
}

func TestSchemaHandler_MetadataUnavailable(t *testing.T) {
	svc := &mockSchemaService{err: &apperrors.MetadataUnavailableError{Operation: "list tables", Err: errors.New("refused")}}

	rec, resp := serveSchema(t, svc, http.MethodPost, "/api/schema/tables", `{"connection":{"engine":"postgres"}}`)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected status 502, got %d", rec.Code)
	}
	if resp.Error != "metadata_unavailable" {
		t.Errorf("expected error 'metadata_unavailable', got %q", resp.Error)
	}
}

func TestSchemaHandler_TestConnection(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		success bool
	}{
		{"ok", nil, http.StatusOK, true},
		{"unreachable", errors.New("connection test failed: dial tcp: refused"), http.StatusOK, false},
		{"invalid params", apperrors.ErrInvalidConnection, http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSchemaService{testErr: tt.err}
			rec, resp := serveSchema(t, svc, http.MethodPost, "/api/connection/test", `{"connection":{"engine":"postgres"}}`)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if resp.Success != tt.success {
				t.Errorf("expected success=%v, got %v", tt.success, resp.Success)
			}
		})
	}
}
