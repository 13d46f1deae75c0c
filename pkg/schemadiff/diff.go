// Package schemadiff compares a desired table definition against the columns
// read from a live table.
package schemadiff

import (
	"fmt"
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/ddl"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// Compute returns the changes that turn the live table into desired.
//
// Column names match without regard to case. A column present on both sides
// whose type, length, nullability or primary key flag differs is classified
// as destructively modified: applying it drops and re-adds the column, losing
// its data. Identity is derived from the primary key and is not compared.
//
// When desired.Name differs from liveTable the diff carries a rename to
// desired.Name. Live columns whose names differ only by case cannot be
// matched and return ErrInvalidDefinition.
func Compute(desired models.TableDefinition, liveTable string, live []models.LiveColumnSnapshot) (*models.SchemaDiff, error) {
	return compute(desired, liveTable, live, Equivalent)
}

// ComputeForEngine is Compute with columns compared by the DDL they resolve
// to on engine. Logical types that share a physical type there (uint32 and
// int64 on PostgreSQL, any binary length on BYTEA) do not register as changes.
func ComputeForEngine(engine models.Engine, desired models.TableDefinition, liveTable string, live []models.LiveColumnSnapshot) (*models.SchemaDiff, error) {
	if !engine.IsValid() {
		return nil, apperrors.NewUnsupportedEngine(engine)
	}
	return compute(desired, liveTable, live, func(d, l models.ColumnDefinition) bool {
		return PhysicallyEquivalent(engine, d, l)
	})
}

func compute(desired models.TableDefinition, liveTable string, live []models.LiveColumnSnapshot, equal func(desired, live models.ColumnDefinition) bool) (*models.SchemaDiff, error) {
	if err := desired.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrInvalidDefinition, err)
	}

	diff := &models.SchemaDiff{
		Added:                 []models.ColumnDefinition{},
		Dropped:               []string{},
		DestructivelyModified: []models.ColumnDefinition{},
	}
	if liveTable != "" && desired.Name != liveTable {
		diff.RenamedTo = desired.Name
	}

	liveByName := make(map[string]models.ColumnDefinition, len(live))
	for _, col := range live {
		key := strings.ToLower(col.Name)
		if prev, ok := liveByName[key]; ok {
			return nil, fmt.Errorf("%w: live columns %q and %q differ only by case", apperrors.ErrInvalidDefinition, prev.Name, col.Name)
		}
		liveByName[key] = col.ColumnDefinition
	}
	desiredNames := make(map[string]struct{}, len(desired.Columns))

	for _, col := range desired.Columns {
		key := strings.ToLower(col.Name)
		desiredNames[key] = struct{}{}

		current, ok := liveByName[key]
		if !ok {
			diff.Added = append(diff.Added, col)
			continue
		}
		if !equal(col, current) {
			diff.DestructivelyModified = append(diff.DestructivelyModified, col)
		}
	}

	for _, col := range live {
		if _, ok := desiredNames[strings.ToLower(col.Name)]; !ok {
			diff.Dropped = append(diff.Dropped, col.Name)
		}
	}

	return diff, nil
}

// Equivalent reports whether two definitions of the same column describe the
// same physical column. Nullability is compared as emitted, so a primary key
// declared nullable matches a live NOT NULL key.
func Equivalent(desired, live models.ColumnDefinition) bool {
	if desired.Type.Kind != live.Type.Kind {
		return false
	}
	if desired.IsPrimaryKey != live.IsPrimaryKey {
		return false
	}
	if desired.EffectiveNullable() != live.EffectiveNullable() {
		return false
	}
	if desired.Type.Kind.HasLength() && lengthOf(desired) != lengthOf(live) {
		return false
	}
	return true
}

// PhysicallyEquivalent compares two column definitions by the type fragment
// they resolve to on engine. Columns whose types cannot be resolved fall back
// to Equivalent.
func PhysicallyEquivalent(engine models.Engine, desired, live models.ColumnDefinition) bool {
	if desired.IsPrimaryKey != live.IsPrimaryKey || desired.EffectiveNullable() != live.EffectiveNullable() {
		return false
	}
	want, err := ddl.Resolve(engine, desired.Type, desired.Length)
	if err != nil {
		return Equivalent(desired, live)
	}
	have, err := ddl.Resolve(engine, live.Type, live.Length)
	if err != nil {
		return Equivalent(desired, live)
	}
	return want.Fragment == have.Fragment
}

// lengthOf treats an unset length as the engine maximum, matching what the
// type catalog emits.
func lengthOf(col models.ColumnDefinition) int {
	if col.Length == nil {
		return ddl.MaxLength
	}
	return *col.Length
}

// Steps expands a diff into plan steps in application order: rename, adds,
// drops, then a drop and add per destructively modified column. Destructive
// pairs are included only when approved; otherwise their column names are
// returned as skipped.
func Steps(diff models.SchemaDiff, table string, destructiveApproved bool) (steps []models.MigrationPlanStep, skipped []string) {
	target := table
	if diff.RenamedTo != "" {
		steps = append(steps, models.RenameTableStep(table, diff.RenamedTo))
		target = diff.RenamedTo
	}
	for _, col := range diff.Added {
		steps = append(steps, models.AddColumnStep(target, col))
	}
	for _, name := range diff.Dropped {
		steps = append(steps, models.DropColumnStep(target, name))
	}
	for _, col := range diff.DestructivelyModified {
		if !destructiveApproved {
			skipped = append(skipped, col.Name)
			continue
		}
		steps = append(steps, models.DropColumnStep(target, col.Name), models.AddColumnStep(target, col))
	}
	return steps, skipped
}
