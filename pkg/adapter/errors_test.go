package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

func TestDatabaseErrorWrapping(t *testing.T) {
	cause := errors.New("catalog query returned no rows")
	err := NewDatabaseError(dbcapabilities.PostgreSQL, "discover_schema", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "discover_schema")
	assert.Contains(t, err.Error(), "postgres")
}

func TestDatabaseErrorWithContext(t *testing.T) {
	err := NewDatabaseError(dbcapabilities.MySQL, "sample_table", errors.New("boom")).
		WithContext("table", "orders")
	assert.Contains(t, err.Error(), "orders")
}

func TestWrapErrorDoesNotDoubleWrap(t *testing.T) {
	inner := NewDatabaseError(dbcapabilities.MySQL, "list_tables", errors.New("boom"))

	wrapped := WrapError(dbcapabilities.MySQL, "outer_op", inner)
	assert.Same(t, error(inner), wrapped)

	// fmt-wrapped DatabaseErrors are still recognized through errors.As.
	fmtWrapped := fmt.Errorf("while collecting: %w", inner)
	assert.Same(t, error(fmtWrapped), WrapError(dbcapabilities.MySQL, "outer_op", fmtWrapped))
}

func TestWrapErrorNil(t *testing.T) {
	assert.Nil(t, WrapError(dbcapabilities.PostgreSQL, "op", nil))
}

func TestUnsupportedOperationError(t *testing.T) {
	err := NewUnsupportedOperationError(dbcapabilities.MongoDB, "sequences", "no sequence objects")

	assert.True(t, errors.Is(err, ErrOperationNotSupported))
	assert.True(t, IsUnsupported(err))
	assert.Contains(t, err.Error(), "sequences")
	assert.Contains(t, err.Error(), "no sequence objects")
}

func TestConnectionErrorSanitized(t *testing.T) {
	err := NewConnectionError(dbcapabilities.PostgreSQL, "db.internal", 5432, ErrConnectionFailed)

	assert.True(t, errors.Is(err, ErrConnectionFailed))
	assert.True(t, IsConnectionError(err))

	// The endpoint may appear in the message; credentials never do because
	// connection errors are built from static causes only.
	assert.Contains(t, err.Error(), "db.internal:5432")
}

func TestConfigurationError(t *testing.T) {
	err := NewConfigurationError(dbcapabilities.SQLServer, "port", "must be positive")
	assert.True(t, errors.Is(err, ErrInvalidConfiguration))
	assert.Contains(t, err.Error(), "port")
}

func TestNotFoundError(t *testing.T) {
	tableErr := NewNotFoundError(dbcapabilities.PostgreSQL, "table", "missing")
	require.True(t, errors.Is(tableErr, ErrTableNotFound))
	assert.False(t, errors.Is(tableErr, ErrDatabaseNotFound))

	dbErr := NewNotFoundError(dbcapabilities.PostgreSQL, "database", "nope")
	require.True(t, errors.Is(dbErr, ErrDatabaseNotFound))
	assert.False(t, errors.Is(dbErr, ErrTableNotFound))

	collErr := NewNotFoundError(dbcapabilities.MongoDB, "collection", "events")
	assert.True(t, errors.Is(collErr, ErrTableNotFound))
}
