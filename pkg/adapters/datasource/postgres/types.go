package postgres

import (
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// logicalType maps an information_schema data_type back to a logical type
// and length. Types with no logical counterpart read back as unbounded
// strings so a diff still sees them.
func logicalType(dataType string, charLen, precision, scale *int32) (models.LogicalType, *int) {
	switch strings.ToLower(dataType) {
	case "smallint":
		return models.Type(models.KindInt16), nil
	case "integer":
		return models.Type(models.KindInt32), nil
	case "bigint":
		return models.Type(models.KindInt64), nil
	case "numeric", "decimal":
		if precision != nil && *precision == 20 && scale != nil && *scale == 0 {
			return models.Type(models.KindUint64), nil
		}
		return models.Type(models.KindDecimal), nil
	case "boolean":
		return models.Type(models.KindBoolean), nil
	case "real":
		return models.Type(models.KindFloat32), nil
	case "double precision":
		return models.Type(models.KindFloat64), nil
	case "character", "bpchar":
		if charLen == nil || *charLen == 1 {
			return models.Type(models.KindChar), nil
		}
		return models.Type(models.KindString), length(charLen)
	case "character varying", "varchar":
		return models.Type(models.KindString), length(charLen)
	case "text":
		return models.Type(models.KindString), nil
	case "bytea":
		return models.Type(models.KindBinary), nil
	case "date":
		return models.Type(models.KindDate), nil
	case "time without time zone", "time":
		return models.Type(models.KindTime), nil
	case "timestamp without time zone", "timestamp":
		return models.Type(models.KindDateTime), nil
	case "timestamp with time zone", "timestamptz":
		return models.Type(models.KindDateTimeOffset), nil
	case "uuid":
		return models.Type(models.KindUUID), nil
	}
	return models.Type(models.KindString), nil
}

func length(v *int32) *int {
	if v == nil || *v <= 0 {
		return nil
	}
	return models.IntPtr(int(*v))
}
