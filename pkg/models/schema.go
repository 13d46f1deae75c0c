package models

import (
	"fmt"
	"strings"
)

// Engine identifies a relational engine family. Every engine-specific decision
// (type mapping, quoting, identity syntax, system schema filtering) keys off it.
type Engine string

const (
	EngineSQLServer Engine = "mssql"
	EngineMySQL     Engine = "mysql"
	EnginePostgres  Engine = "postgres"
)

// AllEngines lists the supported engines in a stable order.
var AllEngines = []Engine{EngineSQLServer, EngineMySQL, EnginePostgres}

// IsValid reports whether e is one of the supported engines.
func (e Engine) IsValid() bool {
	switch e {
	case EngineSQLServer, EngineMySQL, EnginePostgres:
		return true
	}
	return false
}

// DisplayName returns a human readable engine name.
func (e Engine) DisplayName() string {
	switch e {
	case EngineSQLServer:
		return "Microsoft SQL Server"
	case EngineMySQL:
		return "MySQL"
	case EnginePostgres:
		return "PostgreSQL"
	default:
		return string(e)
	}
}

// ParseEngine accepts the canonical engine names plus common aliases.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mssql", "sqlserver", "sql_server":
		return EngineSQLServer, nil
	case "mysql", "mariadb":
		return EngineMySQL, nil
	case "postgres", "postgresql", "pg":
		return EnginePostgres, nil
	}
	return "", fmt.Errorf("unknown engine %q", s)
}

// TypeKind is the engine-agnostic semantic type of a column.
type TypeKind string

const (
	KindInt8           TypeKind = "int8"
	KindInt16          TypeKind = "int16"
	KindInt32          TypeKind = "int32"
	KindInt64          TypeKind = "int64"
	KindUint8          TypeKind = "uint8"
	KindUint16         TypeKind = "uint16"
	KindUint32         TypeKind = "uint32"
	KindUint64         TypeKind = "uint64"
	KindBoolean        TypeKind = "boolean"
	KindDecimal        TypeKind = "decimal"
	KindFloat32        TypeKind = "float32"
	KindFloat64        TypeKind = "float64"
	KindChar           TypeKind = "char"
	KindString         TypeKind = "string"
	KindBinary         TypeKind = "binary"
	KindDate           TypeKind = "date"
	KindTime           TypeKind = "time"
	KindDateTime       TypeKind = "datetime"
	KindDateTimeOffset TypeKind = "datetimeoffset"
	KindUUID           TypeKind = "uuid"
)

// AllKinds lists every logical type kind.
var AllKinds = []TypeKind{
	KindInt8, KindInt16, KindInt32, KindInt64,
	KindUint8, KindUint16, KindUint32, KindUint64,
	KindBoolean, KindDecimal, KindFloat32, KindFloat64,
	KindChar, KindString, KindBinary,
	KindDate, KindTime, KindDateTime, KindDateTimeOffset,
	KindUUID,
}

// IsValid reports whether k is a known kind.
func (k TypeKind) IsValid() bool {
	for _, known := range AllKinds {
		if k == known {
			return true
		}
	}
	return false
}

// IsInteger reports whether k is a signed or unsigned integer kind.
func (k TypeKind) IsInteger() bool {
	switch k {
	case KindInt8, KindInt16, KindInt32, KindInt64,
		KindUint8, KindUint16, KindUint32, KindUint64:
		return true
	}
	return false
}

// IsNumeric reports whether k is an integer or decimal kind. Only these kinds
// can back an identity column.
func (k TypeKind) IsNumeric() bool {
	return k.IsInteger() || k == KindDecimal
}

// HasLength reports whether a column length is meaningful for k.
func (k TypeKind) HasLength() bool {
	return k == KindString || k == KindBinary
}

// LogicalType is a column's semantic type. NullableSource records that the
// type was declared as a nullable variant (e.g. "int32?"); it resolves to the
// same underlying kind and the column's own IsNullable flag decides NULL-ability.
type LogicalType struct {
	Kind           TypeKind
	NullableSource bool
}

// Type returns a LogicalType for kind k.
func Type(k TypeKind) LogicalType {
	return LogicalType{Kind: k}
}

// ParseLogicalType parses "int32", "int32?", "String" and similar spellings.
func ParseLogicalType(s string) (LogicalType, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	var lt LogicalType
	if strings.HasSuffix(raw, "?") {
		lt.NullableSource = true
		raw = strings.TrimSuffix(raw, "?")
	}
	if alias, ok := kindAliases[raw]; ok {
		raw = string(alias)
	}
	lt.Kind = TypeKind(raw)
	if !lt.Kind.IsValid() {
		return LogicalType{}, fmt.Errorf("unknown logical type %q", s)
	}
	return lt, nil
}

var kindAliases = map[string]TypeKind{
	"sbyte":    KindInt8,
	"short":    KindInt16,
	"int":      KindInt32,
	"integer":  KindInt32,
	"long":     KindInt64,
	"byte":     KindUint8,
	"ushort":   KindUint16,
	"uint":     KindUint32,
	"ulong":    KindUint64,
	"bool":     KindBoolean,
	"float":    KindFloat32,
	"double":   KindFloat64,
	"varchar":  KindString,
	"text":     KindString,
	"bytes":    KindBinary,
	"blob":     KindBinary,
	"guid":     KindUUID,
	"timespan": KindTime,
}

// String renders the type in the form accepted by ParseLogicalType.
func (t LogicalType) String() string {
	if t.NullableSource {
		return string(t.Kind) + "?"
	}
	return string(t.Kind)
}

// MarshalText implements encoding.TextMarshaler so the type travels as a plain
// string in JSON and YAML.
func (t LogicalType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *LogicalType) UnmarshalText(text []byte) error {
	parsed, err := ParseLogicalType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ColumnDefinition describes one desired column.
type ColumnDefinition struct {
	Name         string      `json:"name" yaml:"name"`
	Type         LogicalType `json:"type" yaml:"type"`
	IsNullable   bool        `json:"is_nullable" yaml:"nullable"`
	IsPrimaryKey bool        `json:"is_primary_key" yaml:"primary_key"`
	Length       *int        `json:"length,omitempty" yaml:"length,omitempty"`
}

// EffectiveNullable is the NULL-ability actually emitted: primary key columns
// are always NOT NULL.
func (c ColumnDefinition) EffectiveNullable() bool {
	return c.IsNullable && !c.IsPrimaryKey
}

// TableDefinition describes a desired table.
type TableDefinition struct {
	Name    string             `json:"name" yaml:"name"`
	Columns []ColumnDefinition `json:"columns" yaml:"columns"`
}

// PrimaryKeyColumns returns the primary key columns in declaration order.
func (t TableDefinition) PrimaryKeyColumns() []ColumnDefinition {
	var pks []ColumnDefinition
	for _, c := range t.Columns {
		if c.IsPrimaryKey {
			pks = append(pks, c)
		}
	}
	return pks
}

// Validate checks the definition invariants: a non-empty table name, at least
// one column, non-empty column names unique without regard to case, known types
// and positive lengths.
func (t TableDefinition) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("table name is required")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("table %s: at least one column is required", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for i, c := range t.Columns {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("table %s: column %d: %w", t.Name, i+1, err)
		}
		key := strings.ToLower(c.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("table %s: duplicate column name %q", t.Name, c.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Validate checks a single column definition.
func (c ColumnDefinition) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("column name is required")
	}
	if !c.Type.Kind.IsValid() {
		return fmt.Errorf("column %s: unknown type %q", c.Name, c.Type.Kind)
	}
	if c.Length != nil && *c.Length <= 0 {
		return fmt.Errorf("column %s: length must be positive, got %d", c.Name, *c.Length)
	}
	return nil
}

// LiveColumnSnapshot is a column as introspected from a live database.
type LiveColumnSnapshot struct {
	ColumnDefinition
	IsIdentity bool `json:"is_identity"`
}

// SchemaDiff is the delta between a desired table and its live counterpart.
// RenamedTo is empty when the table keeps its name.
type SchemaDiff struct {
	RenamedTo             string             `json:"renamed_to,omitempty"`
	Added                 []ColumnDefinition `json:"added"`
	Dropped               []string           `json:"dropped"`
	DestructivelyModified []ColumnDefinition `json:"destructively_modified"`
}

// IsEmpty reports whether applying the diff would change nothing.
func (d SchemaDiff) IsEmpty() bool {
	return d.RenamedTo == "" && len(d.Added) == 0 && len(d.Dropped) == 0 && len(d.DestructivelyModified) == 0
}

// HasDestructive reports whether the diff contains changes that lose data.
func (d SchemaDiff) HasDestructive() bool {
	return len(d.DestructivelyModified) > 0
}

// IntPtr is a helper for optional lengths.
func IntPtr(v int) *int {
	return &v
}
