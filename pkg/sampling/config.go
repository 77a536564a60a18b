package sampling

import "time"

// Config controls sample collection for one database.
type Config struct {
	// SampleSize is the maximum number of rows fetched per table.
	SampleSize int `json:"sample_size"`

	// QueryTimeout bounds each individual sampling or counting query.
	QueryTimeout time.Duration `json:"query_timeout"`

	// ThrottleDelay is inserted between consecutive table queries so a
	// collection run stays gentle on production servers.
	ThrottleDelay time.Duration `json:"throttle_delay"`

	// CountRows enables exact row counting per table. When disabled or when
	// counting fails, the catalog estimate from schema discovery stands.
	CountRows bool `json:"count_rows"`

	// SensitiveFieldPatterns overrides the built-in column name patterns
	// used for sensitive field detection. Invalid patterns are skipped.
	SensitiveFieldPatterns []string `json:"sensitive_field_patterns,omitempty"`

	// TimestampCandidates overrides the column names considered for
	// timestamp ordering.
	TimestampCandidates []string `json:"timestamp_candidates,omitempty"`
}

// Defaults chosen to keep a run safe against a live server without tuning.
const (
	DefaultSampleSize    = 100
	DefaultQueryTimeout  = 30 * time.Second
	DefaultThrottleDelay = 100 * time.Millisecond
)

// DefaultConfig returns the sampling defaults.
func DefaultConfig() Config {
	return Config{
		SampleSize:    DefaultSampleSize,
		QueryTimeout:  DefaultQueryTimeout,
		ThrottleDelay: DefaultThrottleDelay,
		CountRows:     true,
	}
}

// EffectiveSampleSize returns the sample size after defaulting.
func (c Config) EffectiveSampleSize() int {
	if c.SampleSize <= 0 {
		return DefaultSampleSize
	}
	return c.SampleSize
}

// normalized fills zero values with defaults so a partially specified Config
// still behaves sensibly.
func (c Config) normalized() Config {
	if c.SampleSize <= 0 {
		c.SampleSize = DefaultSampleSize
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = DefaultQueryTimeout
	}
	if c.ThrottleDelay < 0 {
		c.ThrottleDelay = DefaultThrottleDelay
	}
	return c
}
