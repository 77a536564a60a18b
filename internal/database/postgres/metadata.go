package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for PostgreSQL. The same
// operator serves database and instance connections; pg_control_system and
// version are cluster-wide.
type MetadataOps struct {
	pool *pgxpool.Pool
}

// Version returns the server version string.
func (m *MetadataOps) Version(ctx context.Context) (string, error) {
	var version string
	if err := m.pool.QueryRow(ctx, "SELECT version()").Scan(&version); err != nil {
		return "", adapter.WrapError(dbcapabilities.PostgreSQL, "version", err)
	}
	return version, nil
}

// UniqueIdentifier returns the cluster's system identifier.
func (m *MetadataOps) UniqueIdentifier(ctx context.Context) (string, error) {
	var identifier int64
	query := "SELECT system_identifier FROM pg_control_system()"
	if err := m.pool.QueryRow(ctx, query).Scan(&identifier); err != nil {
		return "", adapter.WrapError(dbcapabilities.PostgreSQL, "unique_identifier", err)
	}
	return fmt.Sprintf("%d", identifier), nil
}

// DatabaseSize returns the size of the connected database in bytes.
func (m *MetadataOps) DatabaseSize(ctx context.Context) (int64, error) {
	var size int64
	query := "SELECT pg_database_size(current_database())"
	if err := m.pool.QueryRow(ctx, query).Scan(&size); err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "database_size", err)
	}
	return size, nil
}

// ConnectedUser returns the session user and its superuser flag from
// pg_roles.
func (m *MetadataOps) ConnectedUser(ctx context.Context) (string, bool, error) {
	var user string
	var superuser bool
	query := `
		SELECT current_user,
		       COALESCE((SELECT rolsuper FROM pg_roles WHERE rolname = current_user), false)
	`
	if err := m.pool.QueryRow(ctx, query).Scan(&user, &superuser); err != nil {
		return "", false, adapter.WrapError(dbcapabilities.PostgreSQL, "connected_user", err)
	}
	return user, superuser, nil
}

// TableCount returns the number of base tables in user schemas.
func (m *MetadataOps) TableCount(ctx context.Context) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_type = 'BASE TABLE'
		  AND table_schema NOT IN ('pg_catalog', 'information_schema')
	`
	if err := m.pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, adapter.WrapError(dbcapabilities.PostgreSQL, "table_count", err)
	}
	return count, nil
}
