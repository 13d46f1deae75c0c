package mssql

import (
	"strings"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

// logicalType maps a sys.types name and the sys.columns size fields back to
// a logical type and length. maxLength is in bytes, and -1 for (MAX).
func logicalType(typeName string, maxLength, precision, scale int) (models.LogicalType, *int) {
	switch strings.ToLower(typeName) {
	// Integer types
	case "tinyint":
		return models.Type(models.KindUint8), nil
	case "smallint":
		return models.Type(models.KindInt16), nil
	case "int":
		return models.Type(models.KindInt32), nil
	case "bigint":
		return models.Type(models.KindInt64), nil

	// Decimal types
	case "decimal", "numeric":
		if precision == 20 && scale == 0 {
			return models.Type(models.KindUint64), nil
		}
		return models.Type(models.KindDecimal), nil
	case "money", "smallmoney":
		return models.Type(models.KindDecimal), nil
	case "real":
		return models.Type(models.KindFloat32), nil
	case "float":
		return models.Type(models.KindFloat64), nil

	// Boolean
	case "bit":
		return models.Type(models.KindBoolean), nil

	// String types; N-types store two bytes per character
	case "nchar":
		if maxLength == 2 {
			return models.Type(models.KindChar), nil
		}
		return models.Type(models.KindString), sized(maxLength, 2)
	case "nvarchar":
		return models.Type(models.KindString), sized(maxLength, 2)
	case "char":
		if maxLength == 1 {
			return models.Type(models.KindChar), nil
		}
		return models.Type(models.KindString), sized(maxLength, 1)
	case "varchar":
		return models.Type(models.KindString), sized(maxLength, 1)
	case "text", "ntext", "xml":
		return models.Type(models.KindString), nil

	// Binary types
	case "binary", "varbinary":
		return models.Type(models.KindBinary), sized(maxLength, 1)
	case "image":
		return models.Type(models.KindBinary), nil

	// Date/Time types
	case "date":
		return models.Type(models.KindDate), nil
	case "time":
		return models.Type(models.KindTime), nil
	case "datetime", "datetime2", "smalldatetime":
		return models.Type(models.KindDateTime), nil
	case "datetimeoffset":
		return models.Type(models.KindDateTimeOffset), nil

	// UUID/GUID
	case "uniqueidentifier":
		return models.Type(models.KindUUID), nil
	}
	return models.Type(models.KindString), nil
}

// sized converts a byte length to a character length. (MAX) has no length.
func sized(maxLength, bytesPerChar int) *int {
	if maxLength <= 0 {
		return nil
	}
	return models.IntPtr(maxLength / bytesPerChar)
}
