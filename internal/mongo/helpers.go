package mongo

import (
	"fmt"

	"go.mongodb.org/mongo-driver/mongo/options"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// keyOf derives the ClusterKey for a MongoCluster.
func keyOf(c *mdbv1.MongoCluster) cluster.Key {
	return cluster.Key{Name: c.Name, Namespace: c.Namespace}
}

// newOptionsURI builds client options targeting a single host directly,
// used by initiate to bypass the cached, multi-host client.
func newOptionsURI(host string, c *mdbv1.MongoCluster) *options.ClientOptions {
	uri := fmt.Sprintf("mongodb://%s/?connectTimeoutMS=%d&serverSelectionTimeoutMS=%d",
		host, clientTimeout.Milliseconds(), clientTimeout.Milliseconds())
	return options.Client().
		ApplyURI(uri).
		SetConnectTimeout(clientTimeout).
		SetServerSelectionTimeout(clientTimeout).
		SetAuth(adminCredential(c.Spec.Users.AdminPassword))
}
