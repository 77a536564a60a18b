package collector

import (
	"time"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
)

// Default orchestration parameters.
const (
	DefaultConcurrency    = 4
	DefaultConnectTimeout = 10 * time.Second
	DefaultDatabaseBudget = 5 * time.Minute
)

// Config controls a collection run.
type Config struct {
	// Identity names the collecting tool in the output artifact, typically
	// name plus version.
	Identity string `json:"identity,omitempty"`

	// Concurrency bounds how many databases are collected at once.
	Concurrency int `json:"concurrency"`

	// ConnectTimeout bounds each per-database connection attempt.
	ConnectTimeout time.Duration `json:"connect_timeout"`

	// DatabaseTimeout bounds the total time spent on one database,
	// including schema discovery and sampling.
	DatabaseTimeout time.Duration `json:"database_timeout"`

	// IncludeSystemDatabases collects system databases instead of skipping
	// them.
	IncludeSystemDatabases bool `json:"include_system_databases"`

	// ExcludeDatabases removes databases from the run by exact name, glob
	// pattern, or regex (prefix "re:").
	ExcludeDatabases []string `json:"exclude_databases,omitempty"`

	// ContinueOnError keeps the run going when one database fails. When
	// false, the first failure cancels the remaining work.
	ContinueOnError bool `json:"continue_on_error"`

	// SkipSampling collects schema only.
	SkipSampling bool `json:"skip_sampling"`

	// Sampling configures the per-table sample loop.
	Sampling sampling.Config `json:"sampling"`

	// Retry configures connection retry behavior.
	Retry RetryPolicy `json:"retry"`
}

// DefaultConfig returns safe defaults for an unattended run.
func DefaultConfig() Config {
	return Config{
		Identity:        "dbsurveyor",
		Concurrency:     DefaultConcurrency,
		ConnectTimeout:  DefaultConnectTimeout,
		DatabaseTimeout: DefaultDatabaseBudget,
		ContinueOnError: true,
		Sampling:        sampling.DefaultConfig(),
		Retry:           DefaultRetryPolicy(),
	}
}

func (c Config) normalized() Config {
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.DatabaseTimeout <= 0 {
		c.DatabaseTimeout = DefaultDatabaseBudget
	}
	return c
}
