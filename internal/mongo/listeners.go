package mongo

import (
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/x/mongo/driver/description"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// topologyAndHeartbeatMonitor builds the server-event logger, the topology
// listener (fires ReplicaSetReady when the driver reports a replica-set
// topology), and the heartbeat listener (fires AllHostsReady when every
// declared member responds) as a single *event.ServerMonitor, since the
// driver only accepts one per client.
func (o *Orchestrator) topologyAndHeartbeatMonitor(key cluster.Key, c *mdbv1.MongoCluster) *event.ServerMonitor {
	log := o.log
	return &event.ServerMonitor{
		TopologyDescriptionChanged: func(evt *event.TopologyDescriptionChangedEvent) {
			log.Debugw("topology description changed", "cluster", key.String())
			if topologyIsReplicaSet(evt) {
				o.onReplicaSetReady(key, c)
			}
		},
		ServerHeartbeatSucceeded: func(evt *event.ServerHeartbeatSucceededEvent) {
			log.Debugw("heartbeat succeeded", "cluster", key.String(), "connectionId", evt.ConnectionID)
			o.recordHeartbeat(key, c, evt.ConnectionID)
		},
		ServerHeartbeatFailed: func(evt *event.ServerHeartbeatFailedEvent) {
			log.Warnw("heartbeat failed", "cluster", key.String(), "error", evt.Failure)
		},
	}
}

// topologyIsReplicaSet reports whether the new topology description
// reflects a replica-set kind, as opposed to Single/Sharded/Unknown.
func topologyIsReplicaSet(evt *event.TopologyDescriptionChangedEvent) bool {
	if evt == nil {
		return false
	}
	return evt.NewDescription.Kind&description.ReplicaSet != 0
}

// recordHeartbeat tracks how many distinct members (keyed by ConnectionID,
// not raw event count) have responded at least once and fires AllHostsReady
// once every declared member has.
func (o *Orchestrator) recordHeartbeat(key cluster.Key, c *mdbv1.MongoCluster, connectionID string) {
	o.heartbeatsMu.Lock()
	members := o.heartbeatsSeen[key]
	if members == nil {
		members = make(map[string]struct{})
		o.heartbeatsSeen[key] = members
	}
	members[connectionID] = struct{}{}
	allReady := len(members) >= c.Spec.Replicas
	o.heartbeatsMu.Unlock()

	if allReady {
		o.AllHostsReady(key, c)
	}
}
