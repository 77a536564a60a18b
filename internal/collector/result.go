package collector

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/sampling"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/unifiedmodel"
)

// FormatVersion identifies the shape of a serialized CollectionResult.
// Bump only on breaking changes to the output structure.
const FormatVersion = "1.0"

// CollectionMode records how a run was scoped.
type CollectionMode string

const (
	// ModeSingleDatabase collects from exactly one named database.
	ModeSingleDatabase CollectionMode = "single_database"

	// ModeMultiDatabase enumerates the server and collects from each
	// non-excluded database.
	ModeMultiDatabase CollectionMode = "multi_database"
)

// CollectionStatus is the terminal state of one database's collection.
type CollectionStatus string

const (
	// StatusSuccess means schema and samples were collected without errors.
	StatusSuccess CollectionStatus = "success"

	// StatusPartial means some tables or operations failed but usable
	// results were produced.
	StatusPartial CollectionStatus = "partial"

	// StatusFailed means no usable results were produced.
	StatusFailed CollectionStatus = "failed"

	// StatusSkipped means the database was excluded before any connection
	// was attempted.
	StatusSkipped CollectionStatus = "skipped"
)

// ServerInfo captures instance-level metadata gathered once per run.
// DatabaseCount is the number of databases discovered on the server;
// CollectedCount and FailedCount summarize how the run went and are stamped
// by Finalize.
type ServerInfo struct {
	DatabaseType   dbcapabilities.DatabaseType `json:"database_type"`
	Host           string                      `json:"host"`
	Port           int                         `json:"port"`
	Version        string                      `json:"version,omitempty"`
	Identifier     string                      `json:"identifier,omitempty"`
	User           string                      `json:"user,omitempty"`
	Superuser      bool                        `json:"superuser"`
	DatabaseCount  int                         `json:"database_count"`
	CollectedCount int                         `json:"collected_count"`
	FailedCount    int                         `json:"failed_count"`
}

// DatabaseResult holds everything collected from one database.
type DatabaseResult struct {
	Name        string                 `json:"name"`
	Status      CollectionStatus       `json:"status"`
	AccessLevel adapter.AccessLevel    `json:"access_level"`
	IsSystem    bool                   `json:"is_system"`
	SizeBytes   *int64                 `json:"size_bytes,omitempty"`

	Schema  *unifiedmodel.DatabaseSchema `json:"schema,omitempty"`
	Samples []sampling.TableSample       `json:"samples,omitempty"`

	// Errors holds per-table or per-operation failures for partial results.
	// Error holds the terminal failure for failed results. SkipReason
	// explains a skipped database.
	Errors     []string `json:"errors,omitempty"`
	Error      string   `json:"error,omitempty"`
	SkipReason string   `json:"skip_reason,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// CollectionMetadata describes the run itself. Warnings holds run-level
// notices that belong to no single database, such as ignored exclusion
// patterns.
type CollectionMetadata struct {
	RunID       string         `json:"run_id"`
	Mode        CollectionMode `json:"mode"`
	Collector   string         `json:"collector,omitempty"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Concurrency int            `json:"concurrency"`
	SampleSize  int            `json:"sample_size"`
	Warnings    []string       `json:"warnings,omitempty"`
}

// CollectionResult is the aggregate output of one run. Databases are sorted
// by name so output is deterministic regardless of completion order.
type CollectionResult struct {
	FormatVersion string             `json:"format_version"`
	Metadata      CollectionMetadata `json:"metadata"`
	Server        ServerInfo         `json:"server"`
	Databases     []DatabaseResult   `json:"databases"`
}

// NewCollectionResult is the only constructor; it stamps the format version
// and a fresh run identifier.
func NewCollectionResult(mode CollectionMode) *CollectionResult {
	return &CollectionResult{
		FormatVersion: FormatVersion,
		Metadata: CollectionMetadata{
			RunID:     uuid.New().String(),
			Mode:      mode,
			StartedAt: time.Now().UTC(),
		},
	}
}

// AddDatabases appends results and re-sorts by database name.
func (r *CollectionResult) AddDatabases(results ...DatabaseResult) {
	r.Databases = append(r.Databases, results...)
	sort.Slice(r.Databases, func(i, j int) bool {
		return r.Databases[i].Name < r.Databases[j].Name
	})
}

// Finalize stamps the completion time and the server-level outcome counts.
func (r *CollectionResult) Finalize() {
	r.Metadata.CompletedAt = time.Now().UTC()
	r.Server.CollectedCount = r.CountByStatus(StatusSuccess) + r.CountByStatus(StatusPartial)
	r.Server.FailedCount = r.CountByStatus(StatusFailed)
}

// CountByStatus returns how many databases ended in the given status.
func (r *CollectionResult) CountByStatus(status CollectionStatus) int {
	n := 0
	for _, db := range r.Databases {
		if db.Status == status {
			n++
		}
	}
	return n
}

// skippedResult builds a result for a database excluded before connection.
func skippedResult(name string, isSystem bool, reason string) DatabaseResult {
	return DatabaseResult{
		Name:        name,
		Status:      StatusSkipped,
		AccessLevel: adapter.AccessNone,
		IsSystem:    isSystem,
		SkipReason:  reason,
	}
}

// failedResult builds a result for a database that produced nothing usable.
// The error text passed in must already be free of credentials; adapter
// errors are constructed that way.
func failedResult(name string, isSystem bool, err error) DatabaseResult {
	return DatabaseResult{
		Name:        name,
		Status:      StatusFailed,
		AccessLevel: adapter.AccessNone,
		IsSystem:    isSystem,
		Error:       err.Error(),
	}
}
