package unifiedmodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

func TestMapTypePostgres(t *testing.T) {
	tests := []struct {
		native   string
		expected DataTypeKind
	}{
		{"integer", KindInteger},
		{"bigint", KindInteger},
		{"character varying", KindString},
		{"text", KindString},
		{"numeric", KindDecimal},
		{"timestamp with time zone", KindDateTime},
		{"bytea", KindBinary},
		{"jsonb", KindJSON},
		{"boolean", KindBoolean},
		{"uuid", KindString},
	}

	for _, test := range tests {
		dt := MapType(dbcapabilities.PostgreSQL, NativeType{Name: test.native})
		if dt.Kind != test.expected {
			t.Errorf("MapType(postgres, %q).Kind = %q, expected %q", test.native, dt.Kind, test.expected)
		}
	}
}

func TestMapTypeAttachesCatalogMetadata(t *testing.T) {
	t.Run("string length", func(t *testing.T) {
		length := 255
		dt := MapType(dbcapabilities.PostgreSQL, NativeType{Name: "varchar", Length: &length})
		require.Equal(t, KindString, dt.Kind)
		require.NotNil(t, dt.MaxLength)
		assert.Equal(t, 255, *dt.MaxLength)
	})

	t.Run("decimal precision and scale", func(t *testing.T) {
		precision, scale := 10, 2
		dt := MapType(dbcapabilities.MySQL, NativeType{Name: "decimal", Precision: &precision, Scale: &scale})
		require.Equal(t, KindDecimal, dt.Kind)
		require.NotNil(t, dt.Precision)
		require.NotNil(t, dt.Scale)
		assert.Equal(t, 10, *dt.Precision)
		assert.Equal(t, 2, *dt.Scale)
	})

	t.Run("array element", func(t *testing.T) {
		dt := MapType(dbcapabilities.PostgreSQL, NativeType{
			Name:    "array",
			Element: &NativeType{Name: "integer"},
		})
		require.Equal(t, KindArray, dt.Kind)
		require.NotNil(t, dt.Element)
		assert.Equal(t, KindInteger, dt.Element.Kind)
	})
}

func TestMapTypeStripsLengthSuffix(t *testing.T) {
	dt := MapType(dbcapabilities.MySQL, NativeType{Name: "varchar(255)"})
	assert.Equal(t, KindString, dt.Kind)

	dt = MapType(dbcapabilities.MySQL, NativeType{Name: "bigint(20)"})
	assert.Equal(t, KindInteger, dt.Kind)
	assert.Equal(t, 64, dt.Bits)
}

func TestMapTypeUnknownIsLossless(t *testing.T) {
	dt := MapType(dbcapabilities.PostgreSQL, NativeType{Name: "tsvector"})
	assert.Equal(t, KindCustom, dt.Kind)
	assert.Equal(t, "tsvector", dt.TypeName)
	assert.Equal(t, dbcapabilities.PostgreSQL, dt.Engine)
}

func TestMapTypeUnsignedIntegers(t *testing.T) {
	dt := MapType(dbcapabilities.MySQL, NativeType{Name: "int unsigned"})
	require.Equal(t, KindInteger, dt.Kind)
	assert.Equal(t, 32, dt.Bits)
	assert.False(t, dt.Signed)

	dt = MapType(dbcapabilities.SQLServer, NativeType{Name: "tinyint"})
	require.Equal(t, KindInteger, dt.Kind)
	assert.Equal(t, 8, dt.Bits)
	assert.False(t, dt.Signed)
}

func TestMapTypeMongoBSONNames(t *testing.T) {
	dt := MapType(dbcapabilities.MongoDB, NativeType{Name: "objectId"})
	assert.Equal(t, KindString, dt.Kind)

	dt = MapType(dbcapabilities.MongoDB, NativeType{Name: "date"})
	assert.Equal(t, KindDateTime, dt.Kind)
	assert.True(t, dt.TZAware)
}

func TestIsTemporal(t *testing.T) {
	assert.True(t, DataType{Kind: KindDateTime}.IsTemporal())
	assert.True(t, DataType{Kind: KindDate}.IsTemporal())
	assert.True(t, DataType{Kind: KindTime}.IsTemporal())
	assert.False(t, DataType{Kind: KindString}.IsTemporal())
	assert.False(t, DataType{Kind: KindInteger}.IsTemporal())
}
