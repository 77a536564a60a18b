package mysql

import (
	"context"
	"database/sql"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for MySQL. database is
// empty for instance-level connections.
type MetadataOps struct {
	db       *sql.DB
	database string
}

// Version returns the server version string.
func (m *MetadataOps) Version(ctx context.Context) (string, error) {
	var version string
	if err := m.db.QueryRowContext(ctx, "SELECT VERSION()").Scan(&version); err != nil {
		return "", adapter.WrapError(dbcapabilities.MySQL, "version", err)
	}
	return version, nil
}

// UniqueIdentifier returns the server UUID.
func (m *MetadataOps) UniqueIdentifier(ctx context.Context) (string, error) {
	var uuid string
	if err := m.db.QueryRowContext(ctx, "SELECT @@server_uuid").Scan(&uuid); err != nil {
		return "", adapter.WrapError(dbcapabilities.MySQL, "unique_identifier", err)
	}
	return uuid, nil
}

// DatabaseSize returns the data plus index size of the connected schema.
func (m *MetadataOps) DatabaseSize(ctx context.Context) (int64, error) {
	query := `
		SELECT COALESCE(SUM(data_length + index_length), 0)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
	`

	var size int64
	if err := m.db.QueryRowContext(ctx, query).Scan(&size); err != nil {
		return 0, adapter.WrapError(dbcapabilities.MySQL, "database_size", err)
	}
	return size, nil
}

// ConnectedUser returns the authenticated account and whether it holds the
// global SUPER privilege. user_privileges stores grantees quoted, so the
// CURRENT_USER() value is re-quoted before the lookup.
func (m *MetadataOps) ConnectedUser(ctx context.Context) (string, bool, error) {
	var user string
	if err := m.db.QueryRowContext(ctx, "SELECT CURRENT_USER()").Scan(&user); err != nil {
		return "", false, adapter.WrapError(dbcapabilities.MySQL, "connected_user", err)
	}

	query := `
		SELECT COUNT(*)
		FROM information_schema.user_privileges
		WHERE grantee = CONCAT('''', REPLACE(CURRENT_USER(), '@', '''@'''), '''')
		  AND privilege_type = 'SUPER'
	`
	var grants int
	if err := m.db.QueryRowContext(ctx, query).Scan(&grants); err != nil {
		return user, false, nil
	}
	return user, grants > 0, nil
}

// TableCount returns the number of base tables in the connected schema.
func (m *MetadataOps) TableCount(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
	`

	var count int
	if err := m.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, adapter.WrapError(dbcapabilities.MySQL, "table_count", err)
	}
	return count, nil
}
