// Package ddl turns logical table and column definitions into engine-specific
// DDL. Everything here is pure: no I/O, no shared mutable state, safe for
// concurrent use.
package ddl

import (
	"fmt"
	"math"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// MaxLength is the sentinel length of a variable-length column declared
// without an explicit length. It resolves to the engine's unbounded form
// (NVARCHAR(MAX), LONGTEXT, TEXT, ...).
const MaxLength = math.MaxInt32

// Resolution is the physical form of a logical type on one engine.
type Resolution struct {
	Fragment         string
	SupportsIdentity bool
	// EffectiveLength is the declared length, MaxLength for unbounded
	// variable-length columns, 1 for char, and 0 for types without a length.
	EffectiveLength int
}

type typeRule struct {
	fragment string
	identity bool

	// Variable-length types render sizedFormat up to sizedLimit and
	// maxFragment beyond it or when no length was given.
	sizedFormat string
	sizedLimit  int
	maxFragment string
}

func (r typeRule) render(length int) string {
	if r.sizedFormat == "" {
		return r.fragment
	}
	if length == MaxLength || length > r.sizedLimit {
		return r.maxFragment
	}
	return fmt.Sprintf(r.sizedFormat, length)
}

// SQL Server has an unsigned TINYINT but no other unsigned widths, so
// uint16/uint32 widen to the next signed width and uint64 to DECIMAL(20,0).
// It has no signed 8-bit type; int8 widens to SMALLINT.
var sqlServerTypes = map[models.TypeKind]typeRule{
	models.KindInt8:           {fragment: "SMALLINT", identity: true},
	models.KindUint8:          {fragment: "TINYINT", identity: true},
	models.KindInt16:          {fragment: "SMALLINT", identity: true},
	models.KindUint16:         {fragment: "INT", identity: true},
	models.KindInt32:          {fragment: "INT", identity: true},
	models.KindUint32:         {fragment: "BIGINT", identity: true},
	models.KindInt64:          {fragment: "BIGINT", identity: true},
	models.KindUint64:         {fragment: "DECIMAL(20,0)", identity: true},
	models.KindBoolean:        {fragment: "BIT"},
	models.KindDecimal:        {fragment: "DECIMAL(19,5)", identity: true},
	models.KindFloat32:        {fragment: "REAL"},
	models.KindFloat64:        {fragment: "FLOAT"},
	models.KindChar:           {fragment: "NCHAR(1)"},
	models.KindString:         {sizedFormat: "NVARCHAR(%d)", sizedLimit: 4000, maxFragment: "NVARCHAR(MAX)"},
	models.KindBinary:         {sizedFormat: "VARBINARY(%d)", sizedLimit: 8000, maxFragment: "VARBINARY(MAX)"},
	models.KindDate:           {fragment: "DATE"},
	models.KindTime:           {fragment: "TIME"},
	models.KindDateTime:       {fragment: "DATETIME2"},
	models.KindDateTimeOffset: {fragment: "DATETIMEOFFSET"},
	models.KindUUID:           {fragment: "UNIQUEIDENTIFIER"},
}

// MySQL has native unsigned integers of every width. AUTO_INCREMENT is not
// allowed on DECIMAL. There is no offset-aware timestamp, so
// datetimeoffset is stored as DATETIME (offset is lost), and UUIDs as CHAR(36).
var mySQLTypes = map[models.TypeKind]typeRule{
	models.KindInt8:           {fragment: "TINYINT", identity: true},
	models.KindUint8:          {fragment: "TINYINT UNSIGNED", identity: true},
	models.KindInt16:          {fragment: "SMALLINT", identity: true},
	models.KindUint16:         {fragment: "SMALLINT UNSIGNED", identity: true},
	models.KindInt32:          {fragment: "INT", identity: true},
	models.KindUint32:         {fragment: "INT UNSIGNED", identity: true},
	models.KindInt64:          {fragment: "BIGINT", identity: true},
	models.KindUint64:         {fragment: "BIGINT UNSIGNED", identity: true},
	models.KindBoolean:        {fragment: "TINYINT(1)"},
	models.KindDecimal:        {fragment: "DECIMAL(19,5)"},
	models.KindFloat32:        {fragment: "FLOAT"},
	models.KindFloat64:        {fragment: "DOUBLE"},
	models.KindChar:           {fragment: "CHAR(1)"},
	models.KindString:         {sizedFormat: "VARCHAR(%d)", sizedLimit: 16383, maxFragment: "LONGTEXT"},
	models.KindBinary:         {sizedFormat: "VARBINARY(%d)", sizedLimit: 65535, maxFragment: "LONGBLOB"},
	models.KindDate:           {fragment: "DATE"},
	models.KindTime:           {fragment: "TIME"},
	models.KindDateTime:       {fragment: "DATETIME"},
	models.KindDateTimeOffset: {fragment: "DATETIME"},
	models.KindUUID:           {fragment: "CHAR(36)"},
}

// PostgreSQL has no unsigned or single-byte integers: int8/uint8 map to
// SMALLINT and the other unsigned widths widen. Identity columns must be
// SMALLINT, INTEGER or BIGINT, so uint64 (NUMERIC(20,0)) and decimal cannot be
// identities. BYTEA carries no length.
var postgresTypes = map[models.TypeKind]typeRule{
	models.KindInt8:           {fragment: "SMALLINT", identity: true},
	models.KindUint8:          {fragment: "SMALLINT", identity: true},
	models.KindInt16:          {fragment: "SMALLINT", identity: true},
	models.KindUint16:         {fragment: "INTEGER", identity: true},
	models.KindInt32:          {fragment: "INTEGER", identity: true},
	models.KindUint32:         {fragment: "BIGINT", identity: true},
	models.KindInt64:          {fragment: "BIGINT", identity: true},
	models.KindUint64:         {fragment: "NUMERIC(20,0)"},
	models.KindBoolean:        {fragment: "BOOLEAN"},
	models.KindDecimal:        {fragment: "NUMERIC(19,5)"},
	models.KindFloat32:        {fragment: "REAL"},
	models.KindFloat64:        {fragment: "DOUBLE PRECISION"},
	models.KindChar:           {fragment: "CHAR(1)"},
	models.KindString:         {sizedFormat: "VARCHAR(%d)", sizedLimit: 10485760, maxFragment: "TEXT"},
	models.KindBinary:         {fragment: "BYTEA"},
	models.KindDate:           {fragment: "DATE"},
	models.KindTime:           {fragment: "TIME"},
	models.KindDateTime:       {fragment: "TIMESTAMP"},
	models.KindDateTimeOffset: {fragment: "TIMESTAMPTZ"},
	models.KindUUID:           {fragment: "UUID"},
}

func typesFor(engine models.Engine) (map[models.TypeKind]typeRule, error) {
	switch engine {
	case models.EngineSQLServer:
		return sqlServerTypes, nil
	case models.EngineMySQL:
		return mySQLTypes, nil
	case models.EnginePostgres:
		return postgresTypes, nil
	}
	return nil, apperrors.NewUnsupportedEngine(engine)
}

// Resolve maps a logical type and optional length to its DDL fragment on engine.
// A variable-length type without a length resolves to the engine maximum.
func Resolve(engine models.Engine, t models.LogicalType, length *int) (Resolution, error) {
	rules, err := typesFor(engine)
	if err != nil {
		return Resolution{}, err
	}
	rule, ok := rules[t.Kind]
	if !ok {
		return Resolution{}, &apperrors.TypeMappingError{Type: t, Engine: engine, Reason: "no mapping for type"}
	}
	if length != nil && *length <= 0 {
		return Resolution{}, &apperrors.TypeMappingError{Type: t, Engine: engine, Reason: fmt.Sprintf("invalid length %d", *length)}
	}

	res := Resolution{SupportsIdentity: rule.identity}
	switch {
	case t.Kind == models.KindChar:
		res.EffectiveLength = 1
	case t.Kind.HasLength():
		res.EffectiveLength = MaxLength
		if length != nil {
			res.EffectiveLength = *length
		}
	}
	res.Fragment = rule.render(res.EffectiveLength)
	return res, nil
}

// ResolveIdentity is Resolve for a column that must be an identity. It fails
// with a TypeMappingError when the type cannot back an identity on engine.
func ResolveIdentity(engine models.Engine, t models.LogicalType, length *int) (Resolution, error) {
	res, err := Resolve(engine, t, length)
	if err != nil {
		return Resolution{}, err
	}
	if !res.SupportsIdentity {
		return Resolution{}, &apperrors.TypeMappingError{Type: t, Engine: engine, Reason: "type cannot be an identity column"}
	}
	return res, nil
}
