package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/logger"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// fakeEngine simulates a server with a fixed set of databases. It tracks how
// many per-database connections are open at once so concurrency bounds can be
// asserted.
type fakeEngine struct {
	databases     []adapter.DatabaseInfo
	connectErrs   map[string]error
	schemaErrs    map[string]error
	discoverDelay time.Duration

	// failFirstConnects makes the first N connection attempts to a database
	// fail with a transient error before succeeding.
	failFirstConnects map[string]int

	mu        sync.Mutex
	active    int
	maxActive int
	attempts  map[string]int
}

func newFakeEngine(names ...string) *fakeEngine {
	e := &fakeEngine{
		connectErrs:       make(map[string]error),
		schemaErrs:        make(map[string]error),
		failFirstConnects: make(map[string]int),
		attempts:          make(map[string]int),
	}
	for _, n := range names {
		e.databases = append(e.databases, adapter.DatabaseInfo{Name: n})
	}
	return e
}

func (e *fakeEngine) acquire() {
	e.mu.Lock()
	e.active++
	if e.active > e.maxActive {
		e.maxActive = e.active
	}
	e.mu.Unlock()
}

func (e *fakeEngine) release() {
	e.mu.Lock()
	e.active--
	e.mu.Unlock()
}

func (e *fakeEngine) Type() dbcapabilities.DatabaseType { return dbcapabilities.PostgreSQL }

func (e *fakeEngine) Capabilities() dbcapabilities.Capability {
	return dbcapabilities.MustGet(dbcapabilities.PostgreSQL)
}

func (e *fakeEngine) Connect(ctx context.Context, config adapter.ConnectionConfig) (adapter.Connection, error) {
	if err := e.connectErrs[config.DatabaseName]; err != nil {
		return nil, err
	}
	return &fakeConn{engine: e, name: config.DatabaseName}, nil
}

func (e *fakeEngine) ConnectInstance(ctx context.Context, config adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	return &fakeInstanceConn{engine: e}, nil
}

type fakeInstanceConn struct {
	engine *fakeEngine
}

func (c *fakeInstanceConn) ID() string                          { return "fake-instance" }
func (c *fakeInstanceConn) Type() dbcapabilities.DatabaseType   { return dbcapabilities.PostgreSQL }
func (c *fakeInstanceConn) IsConnected() bool                   { return true }
func (c *fakeInstanceConn) Ping(ctx context.Context) error      { return nil }
func (c *fakeInstanceConn) Close() error                        { return nil }
func (c *fakeInstanceConn) Raw() interface{}                    { return nil }
func (c *fakeInstanceConn) Config() adapter.InstanceConfig      { return adapter.InstanceConfig{} }
func (c *fakeInstanceConn) Adapter() adapter.DatabaseAdapter    { return c.engine }

func (c *fakeInstanceConn) ListDatabases(ctx context.Context) ([]adapter.DatabaseInfo, error) {
	return c.engine.databases, nil
}

func (c *fakeInstanceConn) ConnectToDatabase(ctx context.Context, name string) (adapter.Connection, error) {
	c.engine.mu.Lock()
	c.engine.attempts[name]++
	attempt := c.engine.attempts[name]
	c.engine.mu.Unlock()

	if attempt <= c.engine.failFirstConnects[name] {
		return nil, adapter.NewConnectionError(
			dbcapabilities.PostgreSQL, "localhost", 5432, adapter.ErrConnectionFailed)
	}
	if err := c.engine.connectErrs[name]; err != nil {
		return nil, err
	}
	c.engine.acquire()
	return &fakeConn{engine: c.engine, name: name, counted: true}, nil
}

func (c *fakeInstanceConn) MetadataOperations() adapter.MetadataOperator {
	return &fakeMeta{}
}

type fakeConn struct {
	engine  *fakeEngine
	name    string
	counted bool
	closed  bool
}

func (c *fakeConn) ID() string                        { return "fake-" + c.name }
func (c *fakeConn) Type() dbcapabilities.DatabaseType { return dbcapabilities.PostgreSQL }
func (c *fakeConn) IsConnected() bool                 { return !c.closed }
func (c *fakeConn) Ping(ctx context.Context) error    { return nil }
func (c *fakeConn) Raw() interface{}                  { return nil }
func (c *fakeConn) Config() adapter.ConnectionConfig  { return adapter.ConnectionConfig{} }
func (c *fakeConn) Adapter() adapter.DatabaseAdapter  { return c.engine }

func (c *fakeConn) Close() error {
	if c.counted && !c.closed {
		c.engine.release()
	}
	c.closed = true
	return nil
}

func (c *fakeConn) SchemaOperations() adapter.SchemaOperator { return &fakeSchemaOps{conn: c} }
func (c *fakeConn) DataOperations() adapter.DataOperator     { return &fakeDataOps{} }
func (c *fakeConn) MetadataOperations() adapter.MetadataOperator {
	return &fakeMeta{}
}

type fakeSchemaOps struct {
	conn *fakeConn
}

func (s *fakeSchemaOps) DiscoverSchema(ctx context.Context) (*unifiedmodel.DatabaseSchema, error) {
	if d := s.conn.engine.discoverDelay; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := s.conn.engine.schemaErrs[s.conn.name]; err != nil {
		return nil, err
	}
	return &unifiedmodel.DatabaseSchema{
		Name:         s.conn.name,
		DatabaseType: dbcapabilities.PostgreSQL,
		Tables: []unifiedmodel.Table{
			{
				Schema:     "public",
				Name:       "items",
				PrimaryKey: []string{"id"},
				Columns:    []unifiedmodel.Column{{Name: "id"}, {Name: "label"}},
			},
		},
	}, nil
}

func (s *fakeSchemaOps) ListTables(ctx context.Context) ([]string, error) {
	return []string{"items"}, nil
}

func (s *fakeSchemaOps) GetTableSchema(ctx context.Context, tableName string) (*unifiedmodel.Table, error) {
	return nil, adapter.NewNotFoundError(dbcapabilities.PostgreSQL, "table", tableName)
}

type fakeDataOps struct{}

func (d *fakeDataOps) SampleTable(ctx context.Context, table *unifiedmodel.Table, strategy sampling.Strategy, limit int) ([]map[string]interface{}, error) {
	return []map[string]interface{}{{"id": int64(1), "label": "a"}}, nil
}

func (d *fakeDataOps) CountRows(ctx context.Context, table *unifiedmodel.Table) (int64, error) {
	return 1, nil
}

func (d *fakeDataOps) Fetch(ctx context.Context, table *unifiedmodel.Table, limit int) ([]map[string]interface{}, error) {
	return []map[string]interface{}{{"id": int64(1), "label": "a"}}, nil
}

type fakeMeta struct{}

func (m *fakeMeta) Version(ctx context.Context) (string, error) { return "FakeSQL 1.0", nil }
func (m *fakeMeta) UniqueIdentifier(ctx context.Context) (string, error) {
	return "fake-cluster-1", nil
}
func (m *fakeMeta) DatabaseSize(ctx context.Context) (int64, error) { return 4096, nil }
func (m *fakeMeta) TableCount(ctx context.Context) (int, error)     { return 1, nil }
func (m *fakeMeta) ConnectedUser(ctx context.Context) (string, bool, error) {
	return "fake_admin", true, nil
}

func testRegistry(engine *fakeEngine) *adapter.Registry {
	registry := adapter.NewRegistry()
	registry.Register(engine)
	return registry
}

func testCollectorConfig() Config {
	cfg := DefaultConfig()
	cfg.Sampling.ThrottleDelay = 0
	cfg.Retry = RetryPolicy{MaxAttempts: 1}
	return cfg
}

func quietLogger() *logger.Logger {
	log := logger.New("collector-test", "dev")
	log.SetLevel(logger.LevelError)
	return log
}

func pgInstanceConfig() adapter.InstanceConfig {
	return adapter.InstanceConfig{
		ConnectionType: "postgres",
		Host:           "localhost",
		Port:           5432,
	}
}

func TestRunCollectsAllDatabases(t *testing.T) {
	engine := newFakeEngine("beta", "alpha", "postgres", "template0")
	c := New(testCollectorConfig(), quietLogger(), testRegistry(engine))

	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, FormatVersion, result.FormatVersion)
	assert.Equal(t, ModeMultiDatabase, result.Metadata.Mode)
	assert.NotEmpty(t, result.Metadata.RunID)
	assert.Equal(t, "dbsurveyor", result.Metadata.Collector)
	assert.Equal(t, "FakeSQL 1.0", result.Server.Version)
	assert.Equal(t, "fake-cluster-1", result.Server.Identifier)
	assert.Equal(t, "fake_admin", result.Server.User)
	assert.True(t, result.Server.Superuser)
	assert.Equal(t, 4, result.Server.DatabaseCount)
	assert.Equal(t, 2, result.Server.CollectedCount)
	assert.Equal(t, 0, result.Server.FailedCount)

	// Sorted by name regardless of completion order.
	require.Len(t, result.Databases, 4)
	assert.Equal(t, "alpha", result.Databases[0].Name)
	assert.Equal(t, "beta", result.Databases[1].Name)
	assert.Equal(t, "postgres", result.Databases[2].Name)
	assert.Equal(t, "template0", result.Databases[3].Name)

	// System databases are skipped by default.
	assert.Equal(t, StatusSkipped, result.Databases[2].Status)
	assert.Equal(t, "system database", result.Databases[2].SkipReason)
	assert.Equal(t, StatusSkipped, result.Databases[3].Status)

	for _, name := range []string{"alpha", "beta"} {
		db := findDatabase(t, result, name)
		assert.Equal(t, StatusSuccess, db.Status)
		assert.Equal(t, adapter.AccessFull, db.AccessLevel)
		require.NotNil(t, db.Schema)
		require.Len(t, db.Samples, 1)
		assert.Equal(t, "items", db.Samples[0].Table)
		assert.Len(t, db.Samples[0].Rows, 1)
	}
}

func TestRunIncludesSystemDatabasesWhenAsked(t *testing.T) {
	engine := newFakeEngine("app", "postgres")
	cfg := testCollectorConfig()
	cfg.IncludeSystemDatabases = true

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	db := findDatabase(t, result, "postgres")
	assert.Equal(t, StatusSuccess, db.Status)
	assert.True(t, db.IsSystem)
}

func TestRunAppliesExclusions(t *testing.T) {
	engine := newFakeEngine("app", "test_scratch")
	cfg := testCollectorConfig()
	cfg.ExcludeDatabases = []string{"test_*"}

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	// Excluded databases are dropped, not reported as skipped.
	require.Len(t, result.Databases, 1)
	assert.Equal(t, "app", result.Databases[0].Name)
	assert.Equal(t, StatusSuccess, result.Databases[0].Status)
}

func TestRunExcludedDatabasesNeverAppear(t *testing.T) {
	engine := newFakeEngine("app", "template0", "template1")
	cfg := testCollectorConfig()
	cfg.ExcludeDatabases = []string{"template0", "template1"}
	cfg.IncludeSystemDatabases = true

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	for _, db := range result.Databases {
		assert.NotEqual(t, "template0", db.Name)
		assert.NotEqual(t, "template1", db.Name)
	}
	require.Len(t, result.Databases, 1)
	assert.Equal(t, "app", result.Databases[0].Name)
}

func TestRunRecordsInvalidExclusionPatterns(t *testing.T) {
	engine := newFakeEngine("app")
	cfg := testCollectorConfig()
	cfg.ExcludeDatabases = []string{"re:["}

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	require.Len(t, result.Metadata.Warnings, 1)
	assert.Contains(t, result.Metadata.Warnings[0], "invalid exclusion pattern")
	assert.Contains(t, result.Metadata.Warnings[0], "re:[")
	assert.Equal(t, StatusSuccess, findDatabase(t, result, "app").Status)
}

func TestRunIsolatesFailures(t *testing.T) {
	engine := newFakeEngine("good", "bad", "ugly")
	engine.schemaErrs["bad"] = errors.New("catalog unreadable")
	engine.connectErrs["ugly"] = adapter.NewConnectionError(
		dbcapabilities.PostgreSQL, "localhost", 5432, adapter.ErrConnectionFailed)

	c := New(testCollectorConfig(), quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, findDatabase(t, result, "good").Status)

	bad := findDatabase(t, result, "bad")
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Equal(t, adapter.AccessNone, bad.AccessLevel)
	assert.Contains(t, bad.Error, "catalog unreadable")

	ugly := findDatabase(t, result, "ugly")
	assert.Equal(t, StatusFailed, ugly.Status)

	assert.Equal(t, 1, result.CountByStatus(StatusSuccess))
	assert.Equal(t, 2, result.CountByStatus(StatusFailed))
}

func TestRunStopsOnFirstFailure(t *testing.T) {
	engine := newFakeEngine("bad")
	engine.schemaErrs["bad"] = errors.New("boom")

	cfg := testCollectorConfig()
	cfg.ContinueOnError = false

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "bad")
}

func TestRunReportsTriggeringFailure(t *testing.T) {
	// "zeta" sorts last but fails first; "alpha" and "beta" are still inside
	// their slow discovery when the run is cancelled. The returned error must
	// name the database that caused the abort, not a cancellation victim.
	engine := newFakeEngine("alpha", "beta", "zeta")
	engine.discoverDelay = 50 * time.Millisecond
	engine.connectErrs["zeta"] = adapter.NewConnectionError(
		dbcapabilities.PostgreSQL, "localhost", 5432, adapter.ErrConnectionFailed)

	cfg := testCollectorConfig()
	cfg.ContinueOnError = false

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())

	require.Error(t, err)
	require.NotNil(t, result)
	assert.Contains(t, err.Error(), "zeta")
	assert.NotContains(t, err.Error(), "cancelled")
}

func TestRunBoundsConcurrency(t *testing.T) {
	engine := newFakeEngine("db1", "db2", "db3", "db4", "db5", "db6")
	engine.discoverDelay = 20 * time.Millisecond

	cfg := testCollectorConfig()
	cfg.Concurrency = 2

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	assert.Equal(t, 6, result.CountByStatus(StatusSuccess))
	assert.LessOrEqual(t, engine.maxActive, 2)
	assert.GreaterOrEqual(t, engine.maxActive, 1)
}

func TestRunRetriesTransientConnections(t *testing.T) {
	engine := newFakeEngine("flaky")
	engine.failFirstConnects["flaky"] = 1

	cfg := testCollectorConfig()
	cfg.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, TotalBudget: time.Second}

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, findDatabase(t, result, "flaky").Status)
	assert.Equal(t, 2, engine.attempts["flaky"])
}

func TestRunDoesNotRetryAuthFailures(t *testing.T) {
	engine := newFakeEngine("locked")
	engine.connectErrs["locked"] = adapter.ErrAuthenticationFailed

	cfg := testCollectorConfig()
	cfg.Retry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, TotalBudget: time.Second}

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, findDatabase(t, result, "locked").Status)
	assert.Equal(t, 1, engine.attempts["locked"])
}

func TestRunSkipSampling(t *testing.T) {
	engine := newFakeEngine("app")
	cfg := testCollectorConfig()
	cfg.SkipSampling = true

	c := New(cfg, quietLogger(), testRegistry(engine))
	result, err := c.Run(context.Background(), pgInstanceConfig())
	require.NoError(t, err)

	db := findDatabase(t, result, "app")
	assert.Equal(t, StatusSuccess, db.Status)
	require.NotNil(t, db.Schema)
	assert.Empty(t, db.Samples)
}

func TestRunSingle(t *testing.T) {
	engine := newFakeEngine("app")
	c := New(testCollectorConfig(), quietLogger(), testRegistry(engine))

	result, err := c.RunSingle(context.Background(), adapter.ConnectionConfig{
		ConnectionType: "postgres",
		Host:           "localhost",
		Port:           5432,
		DatabaseName:   "app",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeSingleDatabase, result.Metadata.Mode)
	assert.Equal(t, 1, result.Server.DatabaseCount)
	require.Len(t, result.Databases, 1)
	assert.Equal(t, "app", result.Databases[0].Name)
	assert.Equal(t, StatusSuccess, result.Databases[0].Status)
	require.Len(t, result.Databases[0].Samples, 1)
}

func TestRunSingleMarksSystemDatabase(t *testing.T) {
	engine := newFakeEngine("postgres")
	c := New(testCollectorConfig(), quietLogger(), testRegistry(engine))

	result, err := c.RunSingle(context.Background(), adapter.ConnectionConfig{
		ConnectionType: "postgres",
		Host:           "localhost",
		Port:           5432,
		DatabaseName:   "postgres",
	})
	require.NoError(t, err)
	assert.True(t, result.Databases[0].IsSystem)
}

func TestStatusFromErrors(t *testing.T) {
	assert.Equal(t, StatusSuccess, statusFromErrors(nil))
	assert.Equal(t, StatusPartial, statusFromErrors([]string{"one table failed"}))
}

func TestAccessLevelDerivation(t *testing.T) {
	okSample := sampling.TableSample{Rows: []map[string]interface{}{{"id": 1}}}
	deniedSample := sampling.TableSample{Warnings: []string{"permission denied"}}

	assert.Equal(t, adapter.AccessFull, accessLevel(0, nil, false))
	assert.Equal(t, adapter.AccessLimited, accessLevel(1, []sampling.TableSample{deniedSample}, false))
	assert.Equal(t, adapter.AccessFull, accessLevel(1, []sampling.TableSample{okSample}, true))
	assert.Equal(t, adapter.AccessLimited, accessLevel(2, []sampling.TableSample{okSample, deniedSample}, true))
}

func findDatabase(t *testing.T, result *CollectionResult, name string) DatabaseResult {
	t.Helper()
	for _, db := range result.Databases {
		if db.Name == name {
			return db
		}
	}
	t.Fatalf("database %q not found in result", name)
	return DatabaseResult{}
}
