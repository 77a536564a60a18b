// Package collector orchestrates schema discovery and data sampling across
// the databases of a server instance.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/logger"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// Collector runs collection against one server instance or one database.
type Collector struct {
	cfg      Config
	log      *logger.Logger
	registry *adapter.Registry
}

// New creates a collector. A nil registry means the global adapter registry.
func New(cfg Config, log *logger.Logger, registry *adapter.Registry) *Collector {
	if registry == nil {
		registry = adapter.GlobalRegistry()
	}
	return &Collector{
		cfg:      cfg.normalized(),
		log:      log,
		registry: registry,
	}
}

// Run enumerates the instance's databases and collects each one, bounded by
// the configured concurrency. It returns a usable result whenever at least
// the enumeration succeeded; per-database failures are recorded in the
// result, not returned, unless ContinueOnError is false.
func (c *Collector) Run(ctx context.Context, instCfg adapter.InstanceConfig) (*CollectionResult, error) {
	result := NewCollectionResult(ModeMultiDatabase)
	result.Metadata.Collector = c.cfg.Identity
	result.Metadata.Concurrency = c.cfg.Concurrency
	result.Metadata.SampleSize = c.cfg.Sampling.EffectiveSampleSize()

	instConn, err := c.connectInstance(ctx, instCfg)
	if err != nil {
		return nil, err
	}
	defer instConn.Close()

	caps := instConn.Adapter().Capabilities()
	result.Server = c.serverInfo(ctx, instConn, instCfg)

	databases, err := instConn.ListDatabases(ctx)
	if err != nil {
		return nil, adapter.WrapError(instConn.Type(), "list_databases", err)
	}
	result.Server.DatabaseCount = len(databases)

	filter := newDatabaseFilter(c.cfg.ExcludeDatabases)
	for _, p := range filter.InvalidPatterns() {
		c.log.Warnf("ignoring invalid exclusion pattern %q", p)
		result.Metadata.Warnings = append(result.Metadata.Warnings,
			fmt.Sprintf("invalid exclusion pattern %q ignored", p))
	}

	// Excluded databases are dropped here entirely; their names never reach
	// the output. StatusSkipped is reserved for databases the run saw but
	// chose not to open, such as system databases.
	var targets []adapter.DatabaseInfo
	for _, db := range databases {
		if filter.Excluded(db.Name) {
			continue
		}
		isSystem := db.IsSystem || caps.IsSystemDatabase(db.Name)
		if isSystem && !c.cfg.IncludeSystemDatabases {
			result.AddDatabases(skippedResult(db.Name, true, "system database"))
			continue
		}
		db.IsSystem = isSystem
		targets = append(targets, db)
	}

	c.log.Infof("collecting %d of %d databases from %s:%d",
		len(targets), len(databases), instCfg.Host, instCfg.Port)

	collected, firstErr := c.collectConcurrently(ctx, instConn, targets)
	result.AddDatabases(collected...)
	result.Finalize()

	if !c.cfg.ContinueOnError && firstErr != nil {
		return result, firstErr
	}

	return result, nil
}

// RunSingle collects exactly one database using a direct connection.
func (c *Collector) RunSingle(ctx context.Context, connCfg adapter.ConnectionConfig) (*CollectionResult, error) {
	result := NewCollectionResult(ModeSingleDatabase)
	result.Metadata.Collector = c.cfg.Identity
	result.Metadata.Concurrency = 1
	result.Metadata.SampleSize = c.cfg.Sampling.EffectiveSampleSize()

	var conn adapter.Connection
	err := c.cfg.Retry.withRetry(ctx, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()

		var cerr error
		conn, cerr = c.registry.Connect(cctx, connCfg)
		return cerr
	})
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	caps := conn.Adapter().Capabilities()
	result.Server = ServerInfo{
		DatabaseType:  conn.Type(),
		Host:          connCfg.Host,
		Port:          connCfg.Port,
		DatabaseCount: 1,
	}
	if version, verr := conn.MetadataOperations().Version(ctx); verr == nil {
		result.Server.Version = version
	}
	if id, ierr := conn.MetadataOperations().UniqueIdentifier(ctx); ierr == nil {
		result.Server.Identifier = id
	}
	if user, superuser, uerr := conn.MetadataOperations().ConnectedUser(ctx); uerr == nil {
		result.Server.User = user
		result.Server.Superuser = superuser
	}

	dbResult := c.collectOpenDatabase(ctx, conn, adapter.DatabaseInfo{
		Name:     connCfg.DatabaseName,
		IsSystem: caps.IsSystemDatabase(connCfg.DatabaseName),
	})
	result.AddDatabases(dbResult)
	result.Finalize()

	if !c.cfg.ContinueOnError && dbResult.Status == StatusFailed {
		return result, fmt.Errorf("collection of %s failed: %s", dbResult.Name, dbResult.Error)
	}

	return result, nil
}

// collectConcurrently fans work out over a channel semaphore and gathers
// results on a channel. When ContinueOnError is false, the first failure
// cancels the remaining databases, which report as failed with a cancelled
// cause; the returned error is the failure that triggered cancellation, not a
// cancellation victim's.
func (c *Collector) collectConcurrently(ctx context.Context, instConn adapter.InstanceConnection, targets []adapter.DatabaseInfo) ([]DatabaseResult, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, c.cfg.Concurrency)
	resultCh := make(chan DatabaseResult, len(targets))

	var failOnce sync.Once
	var firstErr error

	var wg sync.WaitGroup
	for _, db := range targets {
		wg.Add(1)
		go func(db adapter.DatabaseInfo) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-runCtx.Done():
				resultCh <- failedResult(db.Name, db.IsSystem, fmt.Errorf("cancelled: %w", runCtx.Err()))
				return
			}

			res := c.collectDatabase(runCtx, instConn, db)
			if res.Status == StatusFailed && !c.cfg.ContinueOnError {
				failOnce.Do(func() {
					firstErr = fmt.Errorf("collection of %s failed: %s", res.Name, res.Error)
					cancel()
				})
			}
			resultCh <- res
		}(db)
	}

	wg.Wait()
	close(resultCh)

	results := make([]DatabaseResult, 0, len(targets))
	for res := range resultCh {
		results = append(results, res)
	}
	return results, firstErr
}

// collectDatabase opens a per-database connection off the instance and
// collects it under the per-database time budget.
func (c *Collector) collectDatabase(ctx context.Context, instConn adapter.InstanceConnection, db adapter.DatabaseInfo) DatabaseResult {
	if err := ctx.Err(); err != nil {
		return failedResult(db.Name, db.IsSystem, fmt.Errorf("cancelled: %w", err))
	}

	dbCtx, cancel := context.WithTimeout(ctx, c.cfg.DatabaseTimeout)
	defer cancel()

	started := time.Now()

	var conn adapter.Connection
	err := c.cfg.Retry.withRetry(dbCtx, func(ctx context.Context) error {
		cctx, ccancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer ccancel()

		var cerr error
		conn, cerr = instConn.ConnectToDatabase(cctx, db.Name)
		return cerr
	})
	if err != nil {
		c.log.WithFields(map[string]string{"database": db.Name}).Error(
			fmt.Sprintf("connection failed: %v", err))
		res := failedResult(db.Name, db.IsSystem, err)
		res.Duration = time.Since(started)
		return res
	}
	defer conn.Close()

	res := c.collectOpenDatabase(dbCtx, conn, db)
	res.Duration = time.Since(started)
	return res
}

// collectOpenDatabase runs schema discovery and sampling over an established
// connection and derives the terminal status.
func (c *Collector) collectOpenDatabase(ctx context.Context, conn adapter.Connection, db adapter.DatabaseInfo) DatabaseResult {
	res := DatabaseResult{
		Name:      db.Name,
		IsSystem:  db.IsSystem,
		SizeBytes: db.SizeBytes,
	}

	schema, err := conn.SchemaOperations().DiscoverSchema(ctx)
	if err != nil {
		c.log.WithFields(map[string]string{"database": db.Name}).Error(
			fmt.Sprintf("schema discovery failed: %v", err))
		res.Status = StatusFailed
		res.AccessLevel = adapter.AccessNone
		res.Error = err.Error()
		return res
	}
	res.Schema = schema
	res.Errors = append(res.Errors, schema.Warnings...)

	if res.SizeBytes == nil {
		if size, serr := conn.MetadataOperations().DatabaseSize(ctx); serr == nil {
			res.SizeBytes = &size
		}
	}

	if c.cfg.SkipSampling {
		res.AccessLevel = adapter.AccessFull
		res.Status = statusFromErrors(res.Errors)
		return res
	}

	caps := conn.Adapter().Capabilities()
	exec := sampling.NewExecutor(c.cfg.Sampling, sampling.Capabilities{
		SystemRowID:  caps.Supports(dbcapabilities.FeatureSystemRowID),
		RandomSample: caps.Supports(dbcapabilities.FeatureRandomSample),
		RowCount:     caps.Supports(dbcapabilities.FeatureRowCount),
	})

	tables := make([]*unifiedmodel.Table, len(schema.Tables))
	for i := range schema.Tables {
		tables[i] = &schema.Tables[i]
	}

	samples, err := exec.CollectAll(ctx, conn.DataOperations(), tables)
	res.Samples = samples
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("sampling interrupted: %v", err))
	}

	sampledAny := false
	for _, s := range samples {
		if len(s.Rows) > 0 {
			sampledAny = true
		}
		res.Errors = append(res.Errors, s.Warnings...)
	}

	res.AccessLevel = accessLevel(len(tables), samples, sampledAny)
	res.Status = statusFromErrors(res.Errors)
	return res
}

func statusFromErrors(errs []string) CollectionStatus {
	if len(errs) > 0 {
		return StatusPartial
	}
	return StatusSuccess
}

// accessLevel derives how much of the database the run could actually read.
func accessLevel(tableCount int, samples []sampling.TableSample, sampledAny bool) adapter.AccessLevel {
	if tableCount == 0 {
		// Schema was readable; there was simply nothing to sample.
		return adapter.AccessFull
	}
	if !sampledAny {
		return adapter.AccessLimited
	}
	for _, s := range samples {
		if len(s.Rows) == 0 && len(s.Warnings) > 0 {
			return adapter.AccessLimited
		}
	}
	return adapter.AccessFull
}

func (c *Collector) connectInstance(ctx context.Context, instCfg adapter.InstanceConfig) (adapter.InstanceConnection, error) {
	var instConn adapter.InstanceConnection
	err := c.cfg.Retry.withRetry(ctx, func(ctx context.Context) error {
		cctx, cancel := context.WithTimeout(ctx, c.cfg.ConnectTimeout)
		defer cancel()

		var cerr error
		instConn, cerr = c.registry.ConnectInstance(cctx, instCfg)
		return cerr
	})
	if err != nil {
		return nil, err
	}
	return instConn, nil
}

func (c *Collector) serverInfo(ctx context.Context, instConn adapter.InstanceConnection, instCfg adapter.InstanceConfig) ServerInfo {
	info := ServerInfo{
		DatabaseType: instConn.Type(),
		Host:         instCfg.Host,
		Port:         instCfg.Port,
	}

	meta := instConn.MetadataOperations()
	if version, err := meta.Version(ctx); err == nil {
		info.Version = version
	} else if !adapter.IsUnsupported(err) {
		c.log.Warnf("server version unavailable: %v", err)
	}
	if id, err := meta.UniqueIdentifier(ctx); err == nil {
		info.Identifier = id
	} else if !errors.Is(err, adapter.ErrOperationNotSupported) {
		c.log.Debugf("server identifier unavailable: %v", err)
	}
	if user, superuser, err := meta.ConnectedUser(ctx); err == nil {
		info.User = user
		info.Superuser = superuser
	} else if !adapter.IsUnsupported(err) {
		c.log.Debugf("connected user unavailable: %v", err)
	}

	return info
}
