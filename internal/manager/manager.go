// Package manager implements the Cluster Manager: the top-level reconcile
// loop. Two concurrent watch consumers (cluster objects, stateful workloads)
// drive reconciliation; a periodic timer drives backup checks.
package manager

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/backup"
	"github.com/keiailab/mongo-replicaset-operator/internal/checkers"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
	"github.com/keiailab/mongo-replicaset-operator/internal/mongo"
)

// defaultBackupTickInterval is used when ClusterManager.Run is called
// with a zero interval.
const defaultBackupTickInterval = 10 * time.Second

// shutdownBudget bounds how long in-flight reconciles are given to finish
// before the manager stops waiting on them during graceful shutdown.
const shutdownBudget = 120 * time.Second

// ClusterManager owns the watch consumers, the backup ticker, and the
// process-wide ledgers/caches every component shares.
type ClusterManager struct {
	log       *zap.SugaredLogger
	clientset kubernetes.Interface
	dynamic   dynamic.Interface

	orchestrator *mongo.Orchestrator
	backupLedger *backup.Ledger
	keyMu        *cluster.KeyedMutex

	checkerList []checkers.Checker

	mu       sync.RWMutex
	clusters map[cluster.Key]*mdbv1.MongoCluster

	wg sync.WaitGroup
}

// New builds a ClusterManager with the standard four checkers wired in.
func New(
	log *zap.SugaredLogger,
	clientset kubernetes.Interface,
	dyn dynamic.Interface,
	orchestrator *mongo.Orchestrator,
	backupLedger *backup.Ledger,
	keyMu *cluster.KeyedMutex,
) *ClusterManager {
	return &ClusterManager{
		log:          log,
		clientset:    clientset,
		dynamic:      dyn,
		orchestrator: orchestrator,
		backupLedger: backupLedger,
		keyMu:        keyMu,
		clusters:     make(map[cluster.Key]*mdbv1.MongoCluster),
		checkerList: []checkers.Checker{
			&checkers.AdminSecretChecker{Clientset: clientset},
			&checkers.ClientServiceChecker{Clientset: clientset},
			&checkers.InternalHeadlessServiceChecker{Clientset: clientset},
			&checkers.StatefulWorkloadChecker{Clientset: clientset},
		},
	}
}

// Clusters returns the currently-known clusters, satisfying
// internal/backup.ClusterLister. Safe for concurrent use.
func (m *ClusterManager) Clusters() []*mdbv1.MongoCluster {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*mdbv1.MongoCluster, 0, len(m.clusters))
	for _, c := range m.clusters {
		out = append(out, c)
	}
	return out
}

// Run starts the three long-lived tasks and blocks until ctx is canceled,
// then drains in-flight work within shutdownBudget before returning.
// backupTickInterval controls how often the backup scheduler is polled; a
// zero value falls back to defaultBackupTickInterval.
func (m *ClusterManager) Run(ctx context.Context, scheduler *backup.Scheduler, backupTickInterval time.Duration) error {
	if backupTickInterval <= 0 {
		backupTickInterval = defaultBackupTickInterval
	}
	m.wg.Add(3)
	go func() { defer m.wg.Done(); m.watchClusters(ctx) }()
	go func() { defer m.wg.Done(); m.watchStatefulSets(ctx) }()
	go func() { defer m.wg.Done(); m.runBackupTicker(ctx, scheduler, backupTickInterval) }()

	<-ctx.Done()
	m.log.Info("shutting down, draining in-flight reconciles")

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownBudget):
		m.log.Warn("shutdown budget exceeded, proceeding with pending work in flight")
	}

	m.closeAllClients()
	return nil
}

func (m *ClusterManager) closeAllClients() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for key := range m.clusters {
		m.orchestrator.InvalidateClient(key)
	}
}

func (m *ClusterManager) runBackupTicker(ctx context.Context, scheduler *backup.Scheduler, tickInterval time.Duration) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			scheduler.Tick(ctx, now)
		}
	}
}

// reconcileCluster runs every checker's Reconcile for c, then triggers the
// orchestrator's bootstrap path. Serialized per-key so no two reconciles for
// the same cluster run concurrently.
func (m *ClusterManager) reconcileCluster(ctx context.Context, c *mdbv1.MongoCluster) {
	key := cluster.Key{Name: c.Name, Namespace: c.Namespace}
	if err := cluster.Validate(c.Spec); err != nil {
		m.log.Warnw("cluster spec failed validation, skipping", "cluster", key.String(), "error", err)
		return
	}

	m.keyMu.WithLock(key, func() {
		m.mu.Lock()
		m.clusters[key] = c
		m.mu.Unlock()

		for _, chk := range m.checkerList {
			if err := checkers.Reconcile(ctx, chk, c); err != nil {
				m.log.Warnw("reconcile failed for child resource", "cluster", key.String(), "error", err)
			}
		}
	})

	m.sweepOrphans(ctx)

	// Instantiating the orchestrator's client for this cluster is what lets
	// topology/heartbeat listeners start firing; the state machine itself
	// only advances once the driver actually reports events.
	m.keyMu.WithLock(key, func() {
		if err := m.orchestrator.CheckOrCreateReplicaSet(ctx, c); err != nil {
			m.log.Debugw("initial checkOrCreateReplicaSet did not complete yet", "cluster", key.String(), "error", err)
		}
	})
}

func (m *ClusterManager) sweepOrphans(ctx context.Context) {
	m.mu.RLock()
	known := make(map[string]bool, len(m.clusters))
	for key := range m.clusters {
		known[key.Name] = true
	}
	m.mu.RUnlock()

	for _, chk := range m.checkerList {
		if err := checkers.OrphanSweep(ctx, chk, known); err != nil {
			m.log.Warnw("orphan sweep failed", "error", err)
		}
	}
}

func (m *ClusterManager) deleteCluster(ctx context.Context, key cluster.Key) {
	m.keyMu.WithLock(key, func() {
		m.mu.Lock()
		delete(m.clusters, key)
		m.mu.Unlock()

		for _, chk := range m.checkerList {
			name := resourceNameForKey(chk, key)
			if err := chk.Delete(ctx, name, key.Namespace); err != nil {
				m.log.Debugw("delete during cluster removal failed, may already be gone", "cluster", key.String(), "error", err)
			}
		}
		m.orchestrator.InvalidateClient(key)
		m.backupLedger.Forget(key)
	})
}

// resourceNameForKey derives a checker's child resource name from a
// ClusterKey without requiring a full MongoCluster object, for use on delete.
func resourceNameForKey(chk checkers.Checker, key cluster.Key) string {
	switch chk.(type) {
	case *checkers.AdminSecretChecker:
		return key.Name + "-admin-credentials"
	case *checkers.InternalHeadlessServiceChecker:
		return "svc-" + key.Name + "-internal"
	default:
		return key.Name
	}
}
