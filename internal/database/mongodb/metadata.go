package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/adapter"
	"github.com/EvilBit-Labs/dbsurveyor-sub000/pkg/dbcapabilities"
)

// MetadataOps implements adapter.MetadataOperator for MongoDB. database is
// empty for instance-level connections.
type MetadataOps struct {
	client   *mongo.Client
	database string
}

// Version returns the server version from buildInfo.
func (m *MetadataOps) Version(ctx context.Context) (string, error) {
	var info struct {
		Version string `bson:"version"`
	}
	result := m.client.Database("admin").RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}})
	if err := result.Decode(&info); err != nil {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "version", err)
	}
	return info.Version, nil
}

// UniqueIdentifier returns the host string from serverStatus.
func (m *MetadataOps) UniqueIdentifier(ctx context.Context) (string, error) {
	var status struct {
		Host string `bson:"host"`
	}
	result := m.client.Database("admin").RunCommand(ctx, bson.D{{Key: "serverStatus", Value: 1}})
	if err := result.Decode(&status); err != nil {
		return "", adapter.WrapError(dbcapabilities.MongoDB, "unique_identifier", err)
	}
	return status.Host, nil
}

// ConnectedUser returns the authenticated user from connectionStatus and
// whether any of its roles is root. Both are empty on unauthenticated
// deployments.
func (m *MetadataOps) ConnectedUser(ctx context.Context) (string, bool, error) {
	var status struct {
		AuthInfo struct {
			Users []struct {
				User string `bson:"user"`
			} `bson:"authenticatedUsers"`
			Roles []struct {
				Role string `bson:"role"`
			} `bson:"authenticatedUserRoles"`
		} `bson:"authInfo"`
	}
	result := m.client.Database("admin").RunCommand(ctx, bson.D{{Key: "connectionStatus", Value: 1}})
	if err := result.Decode(&status); err != nil {
		return "", false, adapter.WrapError(dbcapabilities.MongoDB, "connected_user", err)
	}

	user := ""
	if len(status.AuthInfo.Users) > 0 {
		user = status.AuthInfo.Users[0].User
	}
	root := false
	for _, r := range status.AuthInfo.Roles {
		if r.Role == "root" {
			root = true
			break
		}
	}
	return user, root, nil
}

// DatabaseSize returns the storage size of the connected database.
func (m *MetadataOps) DatabaseSize(ctx context.Context) (int64, error) {
	if m.database == "" {
		return 0, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "database size",
			"no database selected on an instance connection")
	}

	var stats struct {
		StorageSize int64 `bson:"storageSize"`
	}
	result := m.client.Database(m.database).RunCommand(ctx, bson.D{{Key: "dbStats", Value: 1}})
	if err := result.Decode(&stats); err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "database_size", err)
	}
	return stats.StorageSize, nil
}

// TableCount returns the number of collections in the connected database.
func (m *MetadataOps) TableCount(ctx context.Context) (int, error) {
	if m.database == "" {
		return 0, adapter.NewUnsupportedOperationError(dbcapabilities.MongoDB, "table count",
			"no database selected on an instance connection")
	}

	names, err := m.client.Database(m.database).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return 0, adapter.WrapError(dbcapabilities.MongoDB, "table_count", err)
	}
	return len(names), nil
}
