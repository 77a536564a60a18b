package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatabaseFilterExact(t *testing.T) {
	f := newDatabaseFilter([]string{"staging", "Scratch"})

	assert.True(t, f.Excluded("staging"))
	assert.True(t, f.Excluded("STAGING"))
	assert.True(t, f.Excluded("scratch"))
	assert.False(t, f.Excluded("production"))
}

func TestDatabaseFilterGlob(t *testing.T) {
	f := newDatabaseFilter([]string{"test_*", "*_backup"})

	assert.True(t, f.Excluded("test_users"))
	assert.True(t, f.Excluded("TEST_ORDERS"))
	assert.True(t, f.Excluded("prod_backup"))
	assert.False(t, f.Excluded("testdata"))
	assert.False(t, f.Excluded("prod"))
}

func TestDatabaseFilterRegex(t *testing.T) {
	f := newDatabaseFilter([]string{"re:^tmp_[0-9]+$"})

	assert.True(t, f.Excluded("tmp_123"))
	assert.False(t, f.Excluded("tmp_abc"))
	assert.False(t, f.Excluded("xtmp_123"))
	assert.Empty(t, f.InvalidPatterns())
}

func TestDatabaseFilterInvalidPatterns(t *testing.T) {
	f := newDatabaseFilter([]string{"re:[unclosed", "ok_db", "bad[glob"})

	assert.ElementsMatch(t, []string{"re:[unclosed", "bad[glob"}, f.InvalidPatterns())
	// Valid patterns still work alongside invalid ones.
	assert.True(t, f.Excluded("ok_db"))
}

func TestDatabaseFilterEmpty(t *testing.T) {
	f := newDatabaseFilter(nil)
	assert.False(t, f.Excluded("anything"))
	assert.Empty(t, f.InvalidPatterns())
}
