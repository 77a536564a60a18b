package mssql

import (
	"context"
	"database/sql"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for SQL Server.
type MetadataOps struct {
	db *sql.DB
}

// Version returns the server version string.
func (m *MetadataOps) Version(ctx context.Context) (string, error) {
	var version string
	if err := m.db.QueryRowContext(ctx, "SELECT @@VERSION").Scan(&version); err != nil {
		return "", adapter.WrapError(dbcapabilities.SQLServer, "version", err)
	}
	return version, nil
}

// UniqueIdentifier returns the server name and instance.
func (m *MetadataOps) UniqueIdentifier(ctx context.Context) (string, error) {
	var name string
	query := "SELECT CONVERT(nvarchar(128), SERVERPROPERTY('ServerName'))"
	if err := m.db.QueryRowContext(ctx, query).Scan(&name); err != nil {
		return "", adapter.WrapError(dbcapabilities.SQLServer, "unique_identifier", err)
	}
	return name, nil
}

// DatabaseSize returns the total size of the connected database's files.
func (m *MetadataOps) DatabaseSize(ctx context.Context) (int64, error) {
	query := "SELECT CAST(SUM(CAST(size AS bigint)) * 8 * 1024 AS bigint) FROM sys.database_files"

	var size int64
	if err := m.db.QueryRowContext(ctx, query).Scan(&size); err != nil {
		return 0, adapter.WrapError(dbcapabilities.SQLServer, "database_size", err)
	}
	return size, nil
}

// ConnectedUser returns the login name and its sysadmin role membership.
func (m *MetadataOps) ConnectedUser(ctx context.Context) (string, bool, error) {
	var user string
	var sysadmin bool
	query := "SELECT SUSER_SNAME(), CAST(COALESCE(IS_SRVROLEMEMBER('sysadmin'), 0) AS bit)"
	if err := m.db.QueryRowContext(ctx, query).Scan(&user, &sysadmin); err != nil {
		return "", false, adapter.WrapError(dbcapabilities.SQLServer, "connected_user", err)
	}
	return user, sysadmin, nil
}

// TableCount returns the number of user tables in the connected database.
func (m *MetadataOps) TableCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM INFORMATION_SCHEMA.TABLES
		WHERE TABLE_TYPE = 'BASE TABLE'
	`

	var count int
	if err := m.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, adapter.WrapError(dbcapabilities.SQLServer, "table_count", err)
	}
	return count, nil
}
