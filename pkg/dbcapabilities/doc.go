// Package dbcapabilities is the static registry of database engine metadata
// used across dbsurveyor. It answers questions like "is template1 a system
// database?", "does this engine expose a physical row id?", and "which engine
// does the alias 'postgresql' refer to?" without requiring a live connection.
//
// The registry is built at package init and is immutable afterwards. Adapters
// report their own Capability from here so the collector and the adapters can
// never disagree about what an engine supports.
package dbcapabilities
