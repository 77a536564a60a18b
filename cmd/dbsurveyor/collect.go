package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/internal/collector"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/logger"

	// Engine adapters register themselves with the global registry.
	_ "github.com/EvilBit-Labs/dbsurveyor-sub000/internal/database/mongodb"
	_ "github.com/EvilBit-Labs/dbsurveyor-sub000/internal/database/mssql"
	_ "github.com/EvilBit-Labs/dbsurveyor-sub000/internal/database/mysql"
	_ "github.com/EvilBit-Labs/dbsurveyor-sub000/internal/database/postgres"
)

// passwordEnvVar is the only channel for supplying credentials. Passwords are
// never accepted as command-line flags so they cannot leak through shell
// history or process listings.
const passwordEnvVar = "DBSURVEYOR_PASSWORD"

// defaultPorts maps each engine to its conventional listener port.
var defaultPorts = map[dbcapabilities.DatabaseType]int{
	dbcapabilities.PostgreSQL: 5432,
	dbcapabilities.MySQL:      3306,
	dbcapabilities.SQLServer:  1433,
	dbcapabilities.MongoDB:    27017,
}

type collectFlags struct {
	dbType          string
	host            string
	port            int
	username        string
	database        string
	sslMode         string
	excludes        []string
	includeSystem   bool
	concurrency     int
	sampleSize      int
	skipSampling    bool
	continueOnError bool
	countRows       bool
	output          string
	connectTimeout  time.Duration
	queryTimeout    time.Duration
	databaseTimeout time.Duration
	logLevel        string
}

func newCollectCommand() *cobra.Command {
	var flags collectFlags

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect schema and samples from a database server",
		Long: "Connects to the target server and collects schema structure and row samples. " +
			"By default every accessible non-system database is collected; pass --database to " +
			"collect a single database instead. The connection password is read from the " +
			passwordEnvVar + " environment variable.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.dbType, "type", "", "Database engine (postgres/mysql/mssql/mongodb)")
	cmd.Flags().StringVar(&flags.host, "host", "localhost", "Server hostname or IP address")
	cmd.Flags().IntVar(&flags.port, "port", 0, "Server port (defaults to the engine's standard port)")
	cmd.Flags().StringVar(&flags.username, "username", "", "Username for authentication")
	cmd.Flags().StringVar(&flags.database, "database", "", "Collect only this database instead of the whole server")
	cmd.Flags().StringVar(&flags.sslMode, "ssl-mode", "", "TLS mode (disable/require/verify-full)")
	cmd.Flags().StringArrayVar(&flags.excludes, "exclude", nil,
		"Exclude databases by exact name, glob, or regex with the \"re:\" prefix (repeatable)")
	cmd.Flags().BoolVar(&flags.includeSystem, "include-system", false, "Collect system databases as well")
	cmd.Flags().IntVar(&flags.concurrency, "concurrency", collector.DefaultConcurrency,
		"Number of databases collected in parallel")
	cmd.Flags().IntVar(&flags.sampleSize, "sample-size", 0, "Maximum rows sampled per table")
	cmd.Flags().BoolVar(&flags.skipSampling, "skip-sampling", false, "Collect schema only, no row data")
	cmd.Flags().BoolVar(&flags.continueOnError, "continue-on-error", true,
		"Keep collecting remaining databases when one fails")
	cmd.Flags().BoolVar(&flags.countRows, "count-rows", true, "Count exact rows per table")
	cmd.Flags().StringVar(&flags.output, "output", "", "Write the JSON artifact to this file instead of stdout")
	cmd.Flags().DurationVar(&flags.connectTimeout, "connect-timeout", collector.DefaultConnectTimeout,
		"Timeout for each connection attempt")
	cmd.Flags().DurationVar(&flags.queryTimeout, "query-timeout", 0, "Timeout for each sampling query")
	cmd.Flags().DurationVar(&flags.databaseTimeout, "database-timeout", collector.DefaultDatabaseBudget,
		"Total time budget per database")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", logger.LevelInfo, "Log level (DEBUG/INFO/WARN/ERROR)")

	if err := cmd.MarkFlagRequired("type"); err != nil {
		panic(err)
	}

	return cmd
}

func runCollect(cmd *cobra.Command, flags collectFlags) error {
	cmd.SilenceUsage = true

	dbType, ok := dbcapabilities.ParseID(flags.dbType)
	if !ok {
		return fmt.Errorf("unknown database type %q (supported: postgres, mysql, mssql, mongodb)", flags.dbType)
	}

	password := os.Getenv(passwordEnvVar)
	if flags.username != "" && password == "" {
		fmt.Fprintf(os.Stderr, "warning: %s is not set; connecting without a password\n", passwordEnvVar)
	}

	port := flags.port
	if port == 0 {
		port = defaultPorts[dbType]
	}

	// Log output goes to stderr, so the artifact can be piped from stdout.
	log := logger.New("dbsurveyor", Version)
	log.SetLevel(flags.logLevel)

	cfg := collector.DefaultConfig()
	cfg.Identity = "dbsurveyor/" + Version
	cfg.Concurrency = flags.concurrency
	cfg.ConnectTimeout = flags.connectTimeout
	cfg.DatabaseTimeout = flags.databaseTimeout
	cfg.IncludeSystemDatabases = flags.includeSystem
	cfg.ExcludeDatabases = flags.excludes
	cfg.ContinueOnError = flags.continueOnError
	cfg.SkipSampling = flags.skipSampling
	cfg.Sampling.CountRows = flags.countRows
	if flags.sampleSize > 0 {
		cfg.Sampling.SampleSize = flags.sampleSize
	}
	if flags.queryTimeout > 0 {
		cfg.Sampling.QueryTimeout = flags.queryTimeout
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := collector.New(cfg, log, nil)

	var (
		result *collector.CollectionResult
		err    error
	)
	if flags.database != "" {
		result, err = c.RunSingle(ctx, adapter.ConnectionConfig{
			ConnectionType: string(dbType),
			Host:           flags.host,
			Port:           port,
			Username:       flags.username,
			Password:       password,
			DatabaseName:   flags.database,
			SSLMode:        flags.sslMode,
		})
	} else {
		result, err = c.Run(ctx, adapter.InstanceConfig{
			ConnectionType: string(dbType),
			Host:           flags.host,
			Port:           port,
			Username:       flags.username,
			Password:       password,
			SSLMode:        flags.sslMode,
		})
	}
	if result == nil && err != nil {
		return err
	}

	if werr := writeResult(result, flags.output); werr != nil {
		return werr
	}
	return err
}

// writeResult serializes the collection artifact as indented JSON to the
// given file, or to stdout when path is empty.
func writeResult(result *collector.CollectionResult, path string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("error encoding result: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("error writing output file: %w", err)
	}
	return nil
}
