package mongo

import (
	"testing"

	"github.com/stretchr/testify/assert"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// TestRecordHeartbeatDedupsByConnectionID guards against a single member's
// repeated heartbeats tripping AllHostsReady on its own. Replicas is kept
// well above the number of distinct connection IDs exercised here so the
// test never actually crosses the AllHostsReady threshold (which would
// require a real mongo client).
func TestRecordHeartbeatDedupsByConnectionID(t *testing.T) {
	o := &Orchestrator{heartbeatsSeen: make(map[cluster.Key]map[string]struct{})}
	c := &mdbv1.MongoCluster{}
	c.Name = "rs0"
	c.Spec.Replicas = 10
	key := keyOf(c)

	for i := 0; i < 3; i++ {
		o.recordHeartbeat(key, c, "conn-1")
	}
	assert.Len(t, o.heartbeatsSeen[key], 1, "repeated heartbeats from one connection must not count as distinct members")

	o.recordHeartbeat(key, c, "conn-2")
	o.recordHeartbeat(key, c, "conn-3")
	assert.Len(t, o.heartbeatsSeen[key], 3, "each distinct connection ID should count once")
}
