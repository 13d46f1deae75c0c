package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-migrate/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

type fixedStats datasource.ConnectionStats

func (s fixedStats) GetStats() datasource.ConnectionStats { return datasource.ConnectionStats(s) }

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector
	c.RecordStatement(models.EnginePostgres, models.StepAddColumn, nil, time.Millisecond)
	c.RecordReport(models.EnginePostgres, models.NewPlanReport("t"))
	c.RecordHTTPRequest("GET", "GET /health", 200, time.Millisecond)
}

func TestRecordStatement(t *testing.T) {
	c := NewCollector("test", nil)

	c.RecordStatement(models.EngineMySQL, models.StepDropTable, nil, time.Millisecond)
	c.RecordStatement(models.EngineMySQL, models.StepDropTable, errors.New("boom"), time.Millisecond)
	c.RecordStatement(models.EngineMySQL, models.StepDropTable, nil, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.StatementsTotal.WithLabelValues("mysql", "drop_table", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.StatementsTotal.WithLabelValues("mysql", "drop_table", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StatementDuration))
}

func TestRecordReport(t *testing.T) {
	c := NewCollector("test", nil)
	report := models.NewPlanReport("orders")
	report.Steps = []models.StepOutcome{
		{Step: models.AddColumnStep("orders", models.ColumnDefinition{Name: "a"}), Status: models.StepSucceeded},
		{Step: models.AddColumnStep("orders", models.ColumnDefinition{Name: "b"}), Status: models.StepSucceeded},
		{Step: models.AlterColumnStep("orders", models.ColumnDefinition{Name: "c"}), Status: models.StepSkipped},
	}

	c.RecordReport(models.EngineSQLServer, report)
	c.RecordReport(models.EngineSQLServer, nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.PlanStepsTotal.WithLabelValues("mssql", "add_column", "succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.PlanStepsTotal.WithLabelValues("mssql", "alter_column", "skipped")))
}

func TestPoolCollector(t *testing.T) {
	c := NewCollector("", fixedStats{
		TotalConnections:    3,
		MaxConnections:      50,
		ConnectionsByEngine: map[string]int{"postgres": 2, "mysql": 1},
		OldestIdleSeconds:   42,
	})

	expected := `
# HELP ekaya_migrate_pool_open_by_engine Open connection pools per engine
# TYPE ekaya_migrate_pool_open_by_engine gauge
ekaya_migrate_pool_open_by_engine{engine="mysql"} 1
ekaya_migrate_pool_open_by_engine{engine="postgres"} 2
`
	require.NoError(t, testutil.GatherAndCompare(c.Registry(), strings.NewReader(expected), "ekaya_migrate_pool_open_by_engine"))

	n, err := testutil.GatherAndCount(c.Registry(), "ekaya_migrate_pool_open", "ekaya_migrate_pool_max", "ekaya_migrate_pool_oldest_idle_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}
