package ddl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-migrate/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-migrate/pkg/models"
)

func TestResolve_TotalOverSupportedMatrix(t *testing.T) {
	for _, engine := range models.AllEngines {
		for _, kind := range models.AllKinds {
			res, err := Resolve(engine, models.Type(kind), nil)
			require.NoError(t, err, "%s on %s", kind, engine)
			assert.NotEmpty(t, res.Fragment, "%s on %s", kind, engine)
		}
	}
}

func TestResolve_IsDeterministic(t *testing.T) {
	for _, engine := range models.AllEngines {
		for _, kind := range models.AllKinds {
			first, err := Resolve(engine, models.Type(kind), models.IntPtr(20))
			require.NoError(t, err)
			second, err := Resolve(engine, models.Type(kind), models.IntPtr(20))
			require.NoError(t, err)
			assert.Equal(t, first, second)
		}
	}
}

func TestResolve_UnknownKind(t *testing.T) {
	_, err := Resolve(models.EnginePostgres, models.Type("interval"), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrTypeMapping))

	var mappingErr *apperrors.TypeMappingError
	require.True(t, errors.As(err, &mappingErr))
	assert.Equal(t, models.EnginePostgres, mappingErr.Engine)
	assert.Equal(t, models.TypeKind("interval"), mappingErr.Type.Kind)
	assert.Contains(t, err.Error(), "interval")
	assert.Contains(t, err.Error(), "postgres")
}

func TestResolve_UnsupportedEngine(t *testing.T) {
	_, err := Resolve(models.Engine("oracle"), models.Type(models.KindInt32), nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnsupportedEngine))
}

func TestResolve_NonPositiveLength(t *testing.T) {
	for _, length := range []int{0, -1} {
		_, err := Resolve(models.EngineMySQL, models.Type(models.KindString), models.IntPtr(length))
		assert.True(t, errors.Is(err, apperrors.ErrTypeMapping), "length %d", length)
	}
}

func TestResolve_IdentityGating(t *testing.T) {
	for _, engine := range models.AllEngines {
		for _, kind := range []models.TypeKind{models.KindBoolean, models.KindString, models.KindUUID, models.KindDateTime} {
			_, err := ResolveIdentity(engine, models.Type(kind), nil)
			assert.True(t, errors.Is(err, apperrors.ErrTypeMapping), "%s on %s should not be an identity", kind, engine)
		}

		res, err := ResolveIdentity(engine, models.Type(models.KindInt32), nil)
		require.NoError(t, err, "int32 on %s", engine)
		assert.True(t, res.SupportsIdentity)
	}
}

func TestResolve_IdentityOnlyForNumericKinds(t *testing.T) {
	for _, engine := range models.AllEngines {
		for _, kind := range models.AllKinds {
			res, err := Resolve(engine, models.Type(kind), nil)
			require.NoError(t, err)
			if res.SupportsIdentity {
				assert.True(t, kind.IsNumeric(), "%s on %s claims identity support", kind, engine)
			}
			switch kind {
			case models.KindInt16, models.KindInt32, models.KindInt64:
				assert.True(t, res.SupportsIdentity, "%s on %s should support identity", kind, engine)
			}
		}
	}
}

func TestResolve_VariableLengthDefaultsToMax(t *testing.T) {
	tests := []struct {
		engine   models.Engine
		kind     models.TypeKind
		expected string
	}{
		{models.EngineSQLServer, models.KindString, "NVARCHAR(MAX)"},
		{models.EngineSQLServer, models.KindBinary, "VARBINARY(MAX)"},
		{models.EngineMySQL, models.KindString, "LONGTEXT"},
		{models.EngineMySQL, models.KindBinary, "LONGBLOB"},
		{models.EnginePostgres, models.KindString, "TEXT"},
		{models.EnginePostgres, models.KindBinary, "BYTEA"},
	}

	for _, tt := range tests {
		t.Run(string(tt.engine)+"/"+string(tt.kind), func(t *testing.T) {
			res, err := Resolve(tt.engine, models.Type(tt.kind), nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, res.Fragment)
			assert.Equal(t, MaxLength, res.EffectiveLength)
		})
	}
}

func TestResolve_ExplicitLength(t *testing.T) {
	tests := []struct {
		engine   models.Engine
		length   int
		expected string
	}{
		{models.EngineSQLServer, 50, "NVARCHAR(50)"},
		{models.EngineSQLServer, 4000, "NVARCHAR(4000)"},
		{models.EngineSQLServer, 4001, "NVARCHAR(MAX)"},
		{models.EngineMySQL, 255, "VARCHAR(255)"},
		{models.EngineMySQL, 20000, "LONGTEXT"},
		{models.EnginePostgres, 50, "VARCHAR(50)"},
	}

	for _, tt := range tests {
		res, err := Resolve(tt.engine, models.Type(models.KindString), models.IntPtr(tt.length))
		require.NoError(t, err)
		assert.Equal(t, tt.expected, res.Fragment, "%s length %d", tt.engine, tt.length)
		assert.Equal(t, tt.length, res.EffectiveLength)
	}
}

func TestResolve_CharIsFixedLengthOne(t *testing.T) {
	for _, engine := range models.AllEngines {
		res, err := Resolve(engine, models.Type(models.KindChar), models.IntPtr(10))
		require.NoError(t, err)
		assert.Contains(t, res.Fragment, "(1)")
		assert.Equal(t, 1, res.EffectiveLength)
	}
}

func TestResolve_UnsignedWidening(t *testing.T) {
	tests := []struct {
		engine   models.Engine
		kind     models.TypeKind
		expected string
	}{
		{models.EngineSQLServer, models.KindUint8, "TINYINT"},
		{models.EngineSQLServer, models.KindUint16, "INT"},
		{models.EngineSQLServer, models.KindUint32, "BIGINT"},
		{models.EngineSQLServer, models.KindUint64, "DECIMAL(20,0)"},
		{models.EngineMySQL, models.KindUint32, "INT UNSIGNED"},
		{models.EngineMySQL, models.KindUint64, "BIGINT UNSIGNED"},
		{models.EnginePostgres, models.KindUint8, "SMALLINT"},
		{models.EnginePostgres, models.KindUint16, "INTEGER"},
		{models.EnginePostgres, models.KindUint32, "BIGINT"},
		{models.EnginePostgres, models.KindUint64, "NUMERIC(20,0)"},
	}

	for _, tt := range tests {
		res, err := Resolve(tt.engine, models.Type(tt.kind), nil)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, res.Fragment, "%s on %s", tt.kind, tt.engine)
	}
}

func TestResolve_NullableSourceMapsToUnderlyingWidth(t *testing.T) {
	nullable, err := models.ParseLogicalType("int64?")
	require.NoError(t, err)

	for _, engine := range models.AllEngines {
		plain, err := Resolve(engine, models.Type(models.KindInt64), nil)
		require.NoError(t, err)
		res, err := Resolve(engine, nullable, nil)
		require.NoError(t, err)
		assert.Equal(t, plain, res)
	}
}
