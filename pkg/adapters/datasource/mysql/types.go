package mysql

import (
	"database/sql"
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// logicalType maps an information_schema data_type and column_type back to
// a logical type and length. column_type carries what data_type drops: the
// UNSIGNED flag and display widths such as tinyint(1).
func logicalType(dataType, columnType string, charLen, precision, scale sql.NullInt64) (models.LogicalType, *int) {
	columnType = strings.ToLower(columnType)
	unsigned := strings.Contains(columnType, "unsigned")

	switch strings.ToLower(dataType) {
	case "tinyint":
		switch {
		case strings.HasPrefix(columnType, "tinyint(1)") && !unsigned:
			return models.Type(models.KindBoolean), nil
		case unsigned:
			return models.Type(models.KindUint8), nil
		}
		return models.Type(models.KindInt8), nil
	case "smallint":
		if unsigned {
			return models.Type(models.KindUint16), nil
		}
		return models.Type(models.KindInt16), nil
	case "mediumint", "int", "integer":
		if unsigned {
			return models.Type(models.KindUint32), nil
		}
		return models.Type(models.KindInt32), nil
	case "bigint":
		if unsigned {
			return models.Type(models.KindUint64), nil
		}
		return models.Type(models.KindInt64), nil
	case "bit", "bool", "boolean":
		return models.Type(models.KindBoolean), nil
	case "decimal", "numeric":
		if precision.Valid && precision.Int64 == 20 && scale.Valid && scale.Int64 == 0 {
			return models.Type(models.KindUint64), nil
		}
		return models.Type(models.KindDecimal), nil
	case "float":
		return models.Type(models.KindFloat32), nil
	case "double", "real":
		return models.Type(models.KindFloat64), nil
	case "char":
		switch {
		case !charLen.Valid || charLen.Int64 == 1:
			return models.Type(models.KindChar), nil
		case charLen.Int64 == 36:
			return models.Type(models.KindUUID), nil
		}
		return models.Type(models.KindString), length(charLen)
	case "varchar":
		return models.Type(models.KindString), length(charLen)
	case "tinytext", "text", "mediumtext", "longtext", "json", "enum", "set":
		return models.Type(models.KindString), nil
	case "binary", "varbinary":
		return models.Type(models.KindBinary), length(charLen)
	case "tinyblob", "blob", "mediumblob", "longblob":
		return models.Type(models.KindBinary), nil
	case "date":
		return models.Type(models.KindDate), nil
	case "time":
		return models.Type(models.KindTime), nil
	case "datetime", "timestamp":
		return models.Type(models.KindDateTime), nil
	}
	return models.Type(models.KindString), nil
}

func length(v sql.NullInt64) *int {
	if !v.Valid || v.Int64 <= 0 {
		return nil
	}
	return models.IntPtr(int(v.Int64))
}
