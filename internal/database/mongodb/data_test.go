package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
)

func TestSortSpec(t *testing.T) {
	d := &DataOps{}

	t.Run("primary key ascending", func(t *testing.T) {
		spec, err := d.sortSpec(sampling.Strategy{
			Kind:    sampling.StrategyPrimaryKey,
			Columns: []string{"_id"},
		})
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "_id", Value: 1}}, spec)
	})

	t.Run("timestamp descending", func(t *testing.T) {
		spec, err := d.sortSpec(sampling.Strategy{
			Kind:       sampling.StrategyTimestamp,
			Columns:    []string{"created_at"},
			Descending: true,
		})
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "created_at", Value: -1}}, spec)
	})

	t.Run("unordered has no sort", func(t *testing.T) {
		spec, err := d.sortSpec(sampling.Strategy{Kind: sampling.StrategyUnordered})
		require.NoError(t, err)
		assert.Nil(t, spec)
	})

	t.Run("system row id is rejected", func(t *testing.T) {
		_, err := d.sortSpec(sampling.Strategy{Kind: sampling.StrategySystemRowID})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not available on MongoDB")
	})
}

func TestNormalizeBSONValue(t *testing.T) {
	oid := bson.NewObjectID()
	assert.Equal(t, oid.Hex(), normalizeBSONValue(oid))

	dt := bson.NewDateTimeFromTime(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	normalized, ok := normalizeBSONValue(dt).(time.Time)
	require.True(t, ok)
	assert.Equal(t, 2025, normalized.Year())

	assert.Equal(t, "plain", normalizeBSONValue("plain"))
	assert.Equal(t, int64(7), normalizeBSONValue(int64(7)))
}

func TestNormalizeDocumentNested(t *testing.T) {
	oid := bson.NewObjectID()
	doc := bson.M{
		"_id": oid,
		"meta": bson.M{
			"tags": bson.A{"a", "b"},
		},
		"ordered": bson.D{{Key: "k", Value: int32(1)}},
	}

	out := normalizeDocument(doc)

	assert.Equal(t, oid.Hex(), out["_id"])

	meta, ok := out["meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"a", "b"}, meta["tags"])

	ordered, ok := out["ordered"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, int32(1), ordered["k"])
}

func TestBSONTypeName(t *testing.T) {
	tests := []struct {
		value    interface{}
		expected string
	}{
		{int32(1), "int"},
		{int64(1), "long"},
		{1.5, "double"},
		{"x", "string"},
		{true, "bool"},
		{time.Now(), "date"},
		{bson.NewObjectID(), "objectid"},
		{bson.A{}, "array"},
		{bson.M{}, "object"},
		{bson.D{}, "object"},
		{nil, "null"},
	}

	for _, test := range tests {
		if got := bsonTypeName(test.value); got != test.expected {
			t.Errorf("bsonTypeName(%T) = %q, expected %q", test.value, got, test.expected)
		}
	}
}

func TestSamplePipelineUsesSampleStage(t *testing.T) {
	pipeline := samplePipeline(5)

	require.Len(t, pipeline, 1)
	require.Len(t, pipeline[0], 1)
	assert.Equal(t, "$sample", pipeline[0][0].Key)
	assert.Equal(t, bson.D{{Key: "size", Value: 5}}, pipeline[0][0].Value)
}
