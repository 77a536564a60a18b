package dbcapabilities

import "strings"

// DatabaseType is the canonical identifier for a database technology supported
// by dbsurveyor. Use these constants to look up capability information.
type DatabaseType string

const (
	// Relational SQL
	PostgreSQL DatabaseType = "postgres"
	MySQL      DatabaseType = "mysql"
	SQLServer  DatabaseType = "mssql"

	// Document stores
	MongoDB DatabaseType = "mongodb"
)

// DataParadigm enumerates the primary data storage paradigms a database supports.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational"
	ParadigmDocument   DataParadigm = "document"
)

// Feature identifies an optional capability an engine may or may not expose.
// Adapters answer SupportsFeature queries from these flags.
type Feature string

const (
	FeatureSchemas      Feature = "schemas"       // named schemas/namespaces within a database
	FeatureViews        Feature = "views"         // view definitions readable from the catalog
	FeatureRoutines     Feature = "routines"      // stored functions/procedures
	FeatureTriggers     Feature = "triggers"      // trigger definitions
	FeatureSequences    Feature = "sequences"     // sequence objects
	FeatureSystemRowID  Feature = "system_row_id" // physical row identifier usable in ORDER BY
	FeatureRandomSample Feature = "random_sample" // engine-native random row sampling
	FeatureRowCount     Feature = "row_count"     // exact row counting is practical
)

// Capability describes what a database engine supports in a way the collector
// can consume uniformly.
type Capability struct {
	// Human-friendly vendor or product name, e.g. "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase (see DatabaseType constants).
	ID DatabaseType `json:"id"`

	// Whether the engine ships built-in/system databases, and their names.
	// Used alongside the engine's own template/system flag to classify
	// discovered databases.
	HasSystemDatabase bool     `json:"hasSystemDatabase"`
	SystemDatabases   []string `json:"systemDatabases,omitempty"`

	// Name of the physical row identifier column, when one exists and can be
	// used for deterministic ordering (e.g. "ctid"). Empty when unsupported.
	SystemRowIDColumn string `json:"systemRowIdColumn,omitempty"`

	// Primary data storage paradigms supported.
	Paradigms []DataParadigm `json:"paradigms"`

	// Optional features exposed by the engine.
	Features map[Feature]bool `json:"features,omitempty"`

	// Common aliases (directory names, drivers, env labels) that map to this
	// engine.
	Aliases []string `json:"aliases,omitempty"`
}

// Supports reports whether the engine exposes the given feature.
func (c Capability) Supports(f Feature) bool {
	return c.Features[f]
}

// IsSystemDatabase reports whether name matches one of the engine's known
// system database names. Matching is case-insensitive.
func (c Capability) IsSystemDatabase(name string) bool {
	for _, s := range c.SystemDatabases {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// All is a registry of capabilities keyed by the canonical database type.
var All = map[DatabaseType]Capability{
	PostgreSQL: {
		Name:              "PostgreSQL",
		ID:                PostgreSQL,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"postgres", "template0", "template1"},
		SystemRowIDColumn: "ctid",
		Paradigms:         []DataParadigm{ParadigmRelational},
		Features: map[Feature]bool{
			FeatureSchemas:      true,
			FeatureViews:        true,
			FeatureRoutines:     true,
			FeatureTriggers:     true,
			FeatureSequences:    true,
			FeatureSystemRowID:  true,
			FeatureRandomSample: true,
			FeatureRowCount:     true,
		},
		Aliases: []string{"postgresql", "pgsql"},
	},
	MySQL: {
		Name:              "MySQL",
		ID:                MySQL,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"mysql", "information_schema", "performance_schema", "sys"},
		Paradigms:         []DataParadigm{ParadigmRelational},
		Features: map[Feature]bool{
			FeatureViews:        true,
			FeatureRoutines:     true,
			FeatureTriggers:     true,
			FeatureRandomSample: true,
			FeatureRowCount:     true,
		},
		Aliases: []string{"mariadb", "aurora-mysql"},
	},
	SQLServer: {
		Name:              "Microsoft SQL Server",
		ID:                SQLServer,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"master", "tempdb", "model", "msdb"},
		Paradigms:         []DataParadigm{ParadigmRelational},
		Features: map[Feature]bool{
			FeatureSchemas:      true,
			FeatureViews:        true,
			FeatureRoutines:     true,
			FeatureTriggers:     true,
			FeatureSequences:    true,
			FeatureRandomSample: true,
			FeatureRowCount:     true,
		},
		Aliases: []string{"sqlserver", "azure-sql"},
	},
	MongoDB: {
		Name:              "MongoDB",
		ID:                MongoDB,
		HasSystemDatabase: true,
		SystemDatabases:   []string{"admin", "local", "config"},
		Paradigms:         []DataParadigm{ParadigmDocument},
		Features: map[Feature]bool{
			FeatureRandomSample: true,
			FeatureRowCount:     true,
		},
		Aliases: []string{"mongo", "documentdb"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the
// canonical DatabaseType.
var nameToID map[string]DatabaseType

func init() {
	nameToID = make(map[string]DatabaseType, len(All)*2)
	for id, cap := range All {
		nameToID[strings.ToLower(string(id))] = id
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
		for _, a := range cap.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary database name (canonical id, alias,
// or product name) to a canonical DatabaseType. Returns false if unknown.
func ParseID(name string) (DatabaseType, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseType) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseType) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// GetByName returns the Capability by looking up a free-form name (id or alias).
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// IDs returns the list of all known database types.
func IDs() []DatabaseType {
	out := make([]DatabaseType, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	return out
}

// SupportsParadigm reports whether the engine supports a given data paradigm.
func SupportsParadigm(id DatabaseType, p DataParadigm) bool {
	c, ok := Get(id)
	if !ok {
		return false
	}
	for _, dp := range c.Paradigms {
		if dp == p {
			return true
		}
	}
	return false
}

// HasSystemDB is a convenience accessor for HasSystemDatabase.
func HasSystemDB(id DatabaseType) bool {
	c, ok := Get(id)
	return ok && c.HasSystemDatabase
}
