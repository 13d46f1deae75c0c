package ddl

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Build renders one plan step as the ordered statements that implement it on
// engine. Nothing is executed; an error means no statement should be run.
//
// AlterColumn on a primary key column always declares the key (and identity
// where the engine can add one). It suits promoting a column to the key; a
// column that is already the key is rejected by the engine as a duplicate,
// so schema diffs change such columns by drop and re-add instead.
func Build(step models.MigrationPlanStep, engine models.Engine) ([]string, error) {
	d, err := dialectFor(engine)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(step.Table) == "" {
		return nil, fmt.Errorf("%s: %w: table name is required", step.Kind, apperrors.ErrInvalidDefinition)
	}

	switch step.Kind {
	case models.StepCreateTable:
		if step.Definition == nil {
			return nil, fmt.Errorf("%s: %w: definition is required", step.Kind, apperrors.ErrInvalidDefinition)
		}
		stmt, err := createTable(d, *step.Definition)
		if err != nil {
			return nil, err
		}
		return []string{stmt}, nil

	case models.StepDropTable:
		return []string{"DROP TABLE " + d.quote(step.Table)}, nil

	case models.StepRenameTable:
		if strings.TrimSpace(step.NewName) == "" {
			return nil, fmt.Errorf("%s: %w: new name is required", step.Kind, apperrors.ErrInvalidDefinition)
		}
		return []string{d.renameTable(step.Table, step.NewName)}, nil

	case models.StepAddColumn:
		col, err := stepColumn(step)
		if err != nil {
			return nil, err
		}
		res, err := Resolve(engine, col.Type, col.Length)
		if err != nil {
			return nil, err
		}
		def := columnSQL(d, col, res.Fragment, col.IsPrimaryKey, col.IsPrimaryKey && res.SupportsIdentity)
		return []string{d.addColumn(step.Table, def)}, nil

	case models.StepDropColumn:
		if strings.TrimSpace(step.ColumnName) == "" {
			return nil, fmt.Errorf("%s: %w: column name is required", step.Kind, apperrors.ErrInvalidDefinition)
		}
		return []string{fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s", d.quote(step.Table), d.quote(step.ColumnName))}, nil

	case models.StepAlterColumn:
		col, err := stepColumn(step)
		if err != nil {
			return nil, err
		}
		res, err := Resolve(engine, col.Type, col.Length)
		if err != nil {
			return nil, err
		}
		return d.alterColumn(step.Table, col, res.Fragment, col.IsPrimaryKey && res.SupportsIdentity), nil
	}

	return nil, fmt.Errorf("%w: unknown step kind %q", apperrors.ErrInvalidDefinition, step.Kind)
}

// BuildAll renders every step, failing on the first step that cannot be built.
// The returned slice has one entry per step.
func BuildAll(steps []models.MigrationPlanStep, engine models.Engine) ([][]string, error) {
	out := make([][]string, 0, len(steps))
	for _, step := range steps {
		stmts, err := Build(step, engine)
		if err != nil {
			return nil, fmt.Errorf("build %s %s: %w", step.Kind, step.Target(), err)
		}
		out = append(out, stmts)
	}
	return out, nil
}

func stepColumn(step models.MigrationPlanStep) (models.ColumnDefinition, error) {
	if step.Column == nil {
		return models.ColumnDefinition{}, fmt.Errorf("%s: %w: column is required", step.Kind, apperrors.ErrInvalidDefinition)
	}
	if err := step.Column.Validate(); err != nil {
		return models.ColumnDefinition{}, fmt.Errorf("%s: %w: %v", step.Kind, apperrors.ErrInvalidDefinition, err)
	}
	return *step.Column, nil
}

// createTable renders CREATE TABLE. A single primary key column carries its
// PRIMARY KEY and identity inline; a composite key becomes a table-level
// constraint and no column is made an identity.
func createTable(d dialect, def models.TableDefinition) (string, error) {
	if err := def.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrInvalidDefinition, err)
	}

	pks := def.PrimaryKeyColumns()
	inlineKey := len(pks) == 1

	parts := make([]string, 0, len(def.Columns)+1)
	for _, col := range def.Columns {
		res, err := Resolve(d.engine(), col.Type, col.Length)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", col.Name, err)
		}
		inline := inlineKey && col.IsPrimaryKey
		parts = append(parts, columnSQL(d, col, res.Fragment, inline, inline && res.SupportsIdentity))
	}

	if len(pks) > 1 {
		names := make([]string, len(pks))
		for i, pk := range pks {
			names[i] = d.quote(pk.Name)
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(names, ", ")))
	}

	return fmt.Sprintf("CREATE TABLE %s (%s)", d.quote(def.Name), strings.Join(parts, ", ")), nil
}

// columnSQL renders a column definition as: name, type, NULL-ability, then
// PRIMARY KEY and identity when requested.
func columnSQL(d dialect, col models.ColumnDefinition, fragment string, primaryKey, identity bool) string {
	var b strings.Builder
	b.WriteString(d.quote(col.Name))
	b.WriteByte(' ')
	b.WriteString(fragment)
	b.WriteByte(' ')
	b.WriteString(nullability(col.EffectiveNullable()))
	if primaryKey {
		b.WriteString(" PRIMARY KEY")
	}
	if identity {
		b.WriteByte(' ')
		b.WriteString(d.identityClause())
	}
	return b.String()
}
