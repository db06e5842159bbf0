// Command operator is the MongoDB replica-set operator's process
// entrypoint: it wires the Cluster Manager, Mongo Orchestrator, and Backup
// Scheduler together and runs until an interrupt signal arrives.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"k8s.io/client-go/dynamic"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/backup"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
	"github.com/keiailab/mongo-replicaset-operator/internal/manager"
	"github.com/keiailab/mongo-replicaset-operator/internal/mongo"
	"github.com/keiailab/mongo-replicaset-operator/internal/restore"
)

const defaultSleepSeconds = 5

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	sleepSeconds := defaultSleepSeconds
	if v := os.Getenv("OPERATOR_SLEEP_SECONDS"); v != "" {
		sleepSeconds = cast.ToInt(v)
	}
	backupTickInterval := time.Duration(sleepSeconds) * time.Second
	log.Infow("starting operator", "backupTickInterval", backupTickInterval)

	config, err := rest.InClusterConfig()
	if err != nil {
		log.Errorw("failed to build in-cluster config", "error", err)
		os.Exit(1)
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		log.Errorw("failed to build clientset", "error", err)
		os.Exit(1)
	}

	dynClient, err := dynamic.NewForConfig(config)
	if err != nil {
		log.Errorw("failed to build dynamic client", "error", err)
		os.Exit(1)
	}

	// Process-wide caches, reified as explicit state rather than ambient
	// globals, constructed once here and passed by pointer into every
	// component that needs them.
	clientCache := mongo.NewClientCache()
	backupLedger := backup.NewLedger()
	keyMu := cluster.NewKeyedMutex()

	restoreHelper := restore.New(log, nil)
	restoreFn := func(ctx context.Context, c *mdbv1.MongoCluster) error {
		_, err := restoreHelper.RestoreIfNeeded(ctx, c)
		return err
	}
	orchestrator := mongo.New(log, clientCache, keyMu, restoreFn)

	mgr := manager.New(log, clientset, dynClient, orchestrator, backupLedger, keyMu)
	scheduler := backup.NewScheduler(log, backupLedger, mgr, keyMu, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := mgr.Run(ctx, scheduler, backupTickInterval); err != nil {
		log.Errorw("manager exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("operator stopped cleanly")
}
