package schemadiff

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func col(name string, kind models.TypeKind) models.ColumnDefinition {
	return models.ColumnDefinition{Name: name, Type: models.Type(kind)}
}

func liveCol(c models.ColumnDefinition) models.LiveColumnSnapshot {
	return models.LiveColumnSnapshot{ColumnDefinition: c}
}

func names(cols []models.ColumnDefinition) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestCompute_AddedAndDropped(t *testing.T) {
	live := []models.LiveColumnSnapshot{
		liveCol(col("a", models.KindInt32)),
		liveCol(col("b", models.KindString)),
	}
	desired := models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{
		col("a", models.KindInt32),
		col("c", models.KindString),
	}}

	diff, err := Compute(desired, "t", live)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, names(diff.Added))
	assert.Equal(t, []string{"b"}, diff.Dropped)
	assert.Empty(t, diff.DestructivelyModified)
	assert.Empty(t, diff.RenamedTo)
}

func TestCompute_NullabilityChangeIsDestructive(t *testing.T) {
	nullable := col("a", models.KindInt32)
	nullable.IsNullable = true

	diff, err := Compute(
		models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{col("a", models.KindInt32)}},
		"t",
		[]models.LiveColumnSnapshot{liveCol(nullable)},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, names(diff.DestructivelyModified))
	assert.Empty(t, diff.Added)
	assert.Empty(t, diff.Dropped)
	assert.True(t, diff.HasDestructive())
}

func TestCompute_NoOp(t *testing.T) {
	columns := []models.ColumnDefinition{
		{Name: "id", Type: models.Type(models.KindInt64), IsPrimaryKey: true},
		{Name: "name", Type: models.Type(models.KindString), Length: models.IntPtr(50)},
		{Name: "bio", Type: models.Type(models.KindString), IsNullable: true},
	}
	live := make([]models.LiveColumnSnapshot, len(columns))
	for i, c := range columns {
		live[i] = liveCol(c)
	}
	live[0].IsIdentity = true

	diff, err := Compute(models.TableDefinition{Name: "people", Columns: columns}, "people", live)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestCompute_DetectsEachDifference(t *testing.T) {
	base := models.ColumnDefinition{Name: "x", Type: models.Type(models.KindString), Length: models.IntPtr(20)}

	tests := []struct {
		name   string
		mutate func(c *models.ColumnDefinition)
	}{
		{"type", func(c *models.ColumnDefinition) { c.Type = models.Type(models.KindBinary) }},
		{"length", func(c *models.ColumnDefinition) { c.Length = models.IntPtr(40) }},
		{"length to max", func(c *models.ColumnDefinition) { c.Length = nil }},
		{"nullability", func(c *models.ColumnDefinition) { c.IsNullable = true }},
		{"primary key", func(c *models.ColumnDefinition) { c.IsPrimaryKey = true }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desired := base
			tt.mutate(&desired)

			diff, err := Compute(models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{desired}}, "t",
				[]models.LiveColumnSnapshot{liveCol(base)})
			require.NoError(t, err)
			assert.Equal(t, []string{"x"}, names(diff.DestructivelyModified))
		})
	}
}

func TestCompute_IgnoresLengthForFixedTypes(t *testing.T) {
	desired := models.ColumnDefinition{Name: "n", Type: models.Type(models.KindInt32), Length: models.IntPtr(10)}

	diff, err := Compute(models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{desired}}, "t",
		[]models.LiveColumnSnapshot{liveCol(col("n", models.KindInt32))})
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestCompute_NullablePrimaryKeyIsNotAChange(t *testing.T) {
	desired := models.ColumnDefinition{Name: "id", Type: models.Type(models.KindInt32), IsPrimaryKey: true, IsNullable: true}
	live := models.ColumnDefinition{Name: "id", Type: models.Type(models.KindInt32), IsPrimaryKey: true}

	diff, err := Compute(models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{desired}}, "t",
		[]models.LiveColumnSnapshot{liveCol(live)})
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestCompute_CaseInsensitiveNames(t *testing.T) {
	diff, err := Compute(
		models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{col("Email", models.KindString)}},
		"t",
		[]models.LiveColumnSnapshot{liveCol(col("email", models.KindString))},
	)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())
}

func TestCompute_LiveNamesDifferingOnlyByCase(t *testing.T) {
	desired := models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{col("name", models.KindInt32)}}
	upper := liveCol(col("Name", models.KindString))
	lower := liveCol(col("name", models.KindInt32))

	for _, live := range [][]models.LiveColumnSnapshot{{upper, lower}, {lower, upper}} {
		diff, err := Compute(desired, "t", live)
		require.Error(t, err)
		assert.Nil(t, diff)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidDefinition))
		assert.Contains(t, err.Error(), "differ only by case")
	}
}

func TestCompute_OrderIndependentClassification(t *testing.T) {
	desired := []models.ColumnDefinition{
		col("a", models.KindInt32),
		col("b", models.KindInt64),
		col("d", models.KindString),
		col("e", models.KindBoolean),
	}
	live := []models.LiveColumnSnapshot{
		liveCol(col("a", models.KindInt32)),
		liveCol(col("b", models.KindInt32)),
		liveCol(col("c", models.KindDate)),
		liveCol(col("f", models.KindUUID)),
	}

	forward, err := Compute(models.TableDefinition{Name: "t", Columns: desired}, "t", live)
	require.NoError(t, err)

	reversedDesired := make([]models.ColumnDefinition, len(desired))
	for i, c := range desired {
		reversedDesired[len(desired)-1-i] = c
	}
	reversedLive := make([]models.LiveColumnSnapshot, len(live))
	for i, c := range live {
		reversedLive[len(live)-1-i] = c
	}
	backward, err := Compute(models.TableDefinition{Name: "t", Columns: reversedDesired}, "t", reversedLive)
	require.NoError(t, err)

	assert.Equal(t, []string{"d", "e"}, names(forward.Added))
	assert.Equal(t, []string{"e", "d"}, names(backward.Added))
	assert.ElementsMatch(t, names(forward.Added), names(backward.Added))

	assert.Equal(t, []string{"c", "f"}, forward.Dropped)
	assert.Equal(t, []string{"f", "c"}, backward.Dropped)

	assert.Equal(t, []string{"b"}, names(forward.DestructivelyModified))
	assert.Equal(t, []string{"b"}, names(backward.DestructivelyModified))
}

func TestCompute_Rename(t *testing.T) {
	columns := []models.ColumnDefinition{col("a", models.KindInt32)}
	live := []models.LiveColumnSnapshot{liveCol(col("a", models.KindInt32))}

	diff, err := Compute(models.TableDefinition{Name: "customers", Columns: columns}, "users", live)
	require.NoError(t, err)
	assert.Equal(t, "customers", diff.RenamedTo)
	assert.False(t, diff.IsEmpty())

	diff, err = Compute(models.TableDefinition{Name: "users", Columns: columns}, "users", live)
	require.NoError(t, err)
	assert.Empty(t, diff.RenamedTo)
}

func TestCompute_InvalidDefinition(t *testing.T) {
	_, err := Compute(models.TableDefinition{Name: "t"}, "t", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidDefinition))
}

func TestComputeForEngine_ComparesPhysicalTypes(t *testing.T) {
	desired := models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{
		col("counter", models.KindUint32),
		{Name: "blob", Type: models.Type(models.KindBinary), Length: models.IntPtr(16)},
	}}
	live := []models.LiveColumnSnapshot{
		liveCol(col("counter", models.KindInt64)),
		liveCol(col("blob", models.KindBinary)),
	}

	diff, err := ComputeForEngine(models.EnginePostgres, desired, "t", live)
	require.NoError(t, err)
	assert.True(t, diff.IsEmpty())

	diff, err = ComputeForEngine(models.EngineMySQL, desired, "t", live)
	require.NoError(t, err)
	assert.Equal(t, []string{"counter", "blob"}, names(diff.DestructivelyModified))
}

func TestComputeForEngine_UnsupportedEngine(t *testing.T) {
	_, err := ComputeForEngine("oracle", models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{col("a", models.KindInt32)}}, "t", nil)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedEngine))
}

func TestSteps_Ordering(t *testing.T) {
	diff := models.SchemaDiff{
		RenamedTo:             "customers",
		DestructivelyModified: []models.ColumnDefinition{col("age", models.KindInt16)},
		Dropped:               []string{"legacy"},
		Added:                 []models.ColumnDefinition{col("email", models.KindString), col("phone", models.KindString)},
	}

	steps, skipped := Steps(diff, "users", true)
	assert.Empty(t, skipped)

	kinds := make([]models.StepKind, len(steps))
	for i, s := range steps {
		kinds[i] = s.Kind
	}
	assert.Equal(t, []models.StepKind{
		models.StepRenameTable,
		models.StepAddColumn,
		models.StepAddColumn,
		models.StepDropColumn,
		models.StepDropColumn,
		models.StepAddColumn,
	}, kinds)

	assert.Equal(t, "users", steps[0].Table)
	assert.Equal(t, "customers", steps[0].NewName)
	for _, s := range steps[1:] {
		assert.Equal(t, "customers", s.Table)
	}
	assert.Equal(t, "email", steps[1].Column.Name)
	assert.Equal(t, "phone", steps[2].Column.Name)
	assert.Equal(t, "legacy", steps[3].ColumnName)
	assert.Equal(t, "age", steps[4].ColumnName)
	assert.Equal(t, "age", steps[5].Column.Name)
}

func TestSteps_DestructiveNotApproved(t *testing.T) {
	diff := models.SchemaDiff{
		Added:                 []models.ColumnDefinition{col("email", models.KindString)},
		DestructivelyModified: []models.ColumnDefinition{col("age", models.KindInt16), col("score", models.KindFloat64)},
	}

	steps, skipped := Steps(diff, "users", false)
	require.Len(t, steps, 1)
	assert.Equal(t, models.StepAddColumn, steps[0].Kind)
	assert.Equal(t, []string{"age", "score"}, skipped)
}

func TestSteps_WidenedPrimaryKeyIsDroppedAndReadded(t *testing.T) {
	id := models.ColumnDefinition{Name: "id", Type: models.Type(models.KindInt32), IsPrimaryKey: true}
	wider := models.ColumnDefinition{Name: "id", Type: models.Type(models.KindInt64), IsPrimaryKey: true}

	diff, err := Compute(models.TableDefinition{Name: "t", Columns: []models.ColumnDefinition{wider}}, "t", []models.LiveColumnSnapshot{liveCol(id)})
	require.NoError(t, err)

	steps, skipped := Steps(*diff, "t", true)
	assert.Empty(t, skipped)
	require.Len(t, steps, 2)
	assert.Equal(t, models.StepDropColumn, steps[0].Kind)
	assert.Equal(t, models.StepAddColumn, steps[1].Kind)
	for _, step := range steps {
		assert.NotEqual(t, models.StepAlterColumn, step.Kind)
	}
}
