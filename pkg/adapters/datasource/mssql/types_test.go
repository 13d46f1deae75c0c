package mssql

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func TestLogicalType(t *testing.T) {
	tests := []struct {
		typeName  string
		maxLength int
		precision int
		scale     int
		kind      models.TypeKind
		length    *int
	}{
		{"tinyint", 1, 3, 0, models.KindUint8, nil},
		{"smallint", 2, 5, 0, models.KindInt16, nil},
		{"int", 4, 10, 0, models.KindInt32, nil},
		{"bigint", 8, 19, 0, models.KindInt64, nil},
		{"decimal", 9, 20, 0, models.KindUint64, nil},
		{"decimal", 9, 19, 5, models.KindDecimal, nil},
		{"bit", 1, 1, 0, models.KindBoolean, nil},
		{"real", 4, 24, 0, models.KindFloat32, nil},
		{"float", 8, 53, 0, models.KindFloat64, nil},
		{"nchar", 2, 0, 0, models.KindChar, nil},
		{"nchar", 20, 0, 0, models.KindString, models.IntPtr(10)},
		{"nvarchar", 100, 0, 0, models.KindString, models.IntPtr(50)},
		{"nvarchar", -1, 0, 0, models.KindString, nil},
		{"varchar", 30, 0, 0, models.KindString, models.IntPtr(30)},
		{"varbinary", 16, 0, 0, models.KindBinary, models.IntPtr(16)},
		{"varbinary", -1, 0, 0, models.KindBinary, nil},
		{"date", 3, 10, 0, models.KindDate, nil},
		{"time", 5, 16, 7, models.KindTime, nil},
		{"datetime2", 8, 27, 7, models.KindDateTime, nil},
		{"datetimeoffset", 10, 34, 7, models.KindDateTimeOffset, nil},
		{"uniqueidentifier", 16, 0, 0, models.KindUUID, nil},
		{"sql_variant", 8016, 0, 0, models.KindString, nil},
	}

	for _, tt := range tests {
		lt, length := logicalType(tt.typeName, tt.maxLength, tt.precision, tt.scale)
		assert.Equal(t, tt.kind, lt.Kind, tt.typeName)
		assert.Equal(t, tt.length, length, "%s(%d)", tt.typeName, tt.maxLength)
	}
}
