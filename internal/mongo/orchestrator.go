package mongo

import (
	"context"
	"sync"

	"go.uber.org/zap"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// RestoreFunc invokes the Restore Helper for a cluster. It's a function
// value rather than a concrete dependency so internal/restore can depend on
// internal/mongo's types without an import cycle back the other way.
type RestoreFunc func(ctx context.Context, c *mdbv1.MongoCluster) error

// Orchestrator drives MongoDB-internal state for every managed cluster: the
// replica-set state machine, admin-user bootstrap, and the restore-on-
// first-ready signal. It owns the ClientCache and RestoreLedger.
type Orchestrator struct {
	log     *zap.SugaredLogger
	clients *ClientCache
	restore RestoreLedger
	keyMu   *cluster.KeyedMutex

	restoreFunc RestoreFunc

	heartbeatsMu sync.Mutex
	// heartbeatsSeen maps a cluster to the set of distinct ConnectionIDs that
	// have produced at least one successful heartbeat.
	heartbeatsSeen map[cluster.Key]map[string]struct{}
}

// New builds an Orchestrator. restoreFn is invoked at most once per cluster
// per process lifetime, under the same per-key serialization reconcile uses.
func New(log *zap.SugaredLogger, clients *ClientCache, keyMu *cluster.KeyedMutex, restoreFn RestoreFunc) *Orchestrator {
	return &Orchestrator{
		log:            log,
		clients:        clients,
		restore:        *NewRestoreLedger(),
		keyMu:          keyMu,
		restoreFunc:    restoreFn,
		heartbeatsSeen: make(map[cluster.Key]map[string]struct{}),
	}
}

// AllHostsReady is the heartbeat listener's entry point: it calls
// CheckOrCreateReplicaSet for the cluster once every declared member has
// responded to at least one heartbeat.
func (o *Orchestrator) AllHostsReady(key cluster.Key, c *mdbv1.MongoCluster) {
	o.keyMu.WithLock(key, func() {
		if err := o.CheckOrCreateReplicaSet(context.Background(), c); err != nil {
			o.log.Warnw("checkOrCreateReplicaSet failed", "cluster", key.String(), "error", err)
		}
	})
}

// onReplicaSetReady is the topology listener's entry point. It may fire more
// than once for the same cluster (the driver reports a replica-set topology
// on every reconnect, not just the first), so restore-at-most-once is
// enforced by the RestoreLedger, not by gating this function itself. The
// restore invocation and its ledger check happen under the cluster's keyed
// lock so the backup scheduler can't observe this cluster mid-restore.
func (o *Orchestrator) onReplicaSetReady(key cluster.Key, c *mdbv1.MongoCluster) {
	o.keyMu.WithLock(key, func() {
		// MarkIfUnrestored claims the slot before restoreFunc runs, not after
		// it succeeds, so a failed restore is never retried on a later
		// ReplicaSetReady. At-most-once still holds either way; this just
		// trades "retry on failure" for a simpler ledger.
		if o.restoreFunc != nil && o.restore.MarkIfUnrestored(key) {
			if err := o.restoreFunc(context.Background(), c); err != nil {
				o.log.Warnw("restoreIfNeeded failed", "cluster", key.String(), "error", err)
			}
		}
		if err := o.CreateUsersIfMissing(context.Background(), c); err != nil {
			o.log.Warnw("createUsersIfMissing failed", "cluster", key.String(), "error", err)
		}
	})
}

// RestoreLedger exposes the orchestrator's restore-at-most-once ledger so
// the manager can inspect it (e.g. in tests) without reaching into
// unexported state.
func (o *Orchestrator) RestoreLedger() *RestoreLedger {
	return &o.restore
}

// InvalidateClient drops and closes the cached client for key, used when a
// cluster is deleted or a connection fails repeatedly.
func (o *Orchestrator) InvalidateClient(key cluster.Key) {
	o.clients.Invalidate(key)
}
