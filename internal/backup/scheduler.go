package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
	"github.com/keiailab/mongo-replicaset-operator/internal/execx"
)

const backupRootDir = "/data"

// timestampLayout matches the backup file layout's "YYYY-MM-DD_HHMMSS", UTC.
const timestampLayout = "2006-01-02_150405"

// ClusterLister is the minimal surface the Scheduler needs from the Cluster
// Manager: the currently-known clusters, read fresh on every tick.
type ClusterLister interface {
	Clusters() []*mdbv1.MongoCluster
}

// Scheduler evaluates every known cluster's cron schedule on each tick and
// performs a synchronous backup for any cluster whose schedule says it's due.
type Scheduler struct {
	log     *zap.SugaredLogger
	ledger  *Ledger
	lister  ClusterLister
	keyMu   *cluster.KeyedMutex
	runner  execx.Runner
}

// NewScheduler builds a Scheduler. runner defaults to execx.OSRunner{} when nil.
func NewScheduler(log *zap.SugaredLogger, ledger *Ledger, lister ClusterLister, keyMu *cluster.KeyedMutex, runner execx.Runner) *Scheduler {
	if runner == nil {
		runner = execx.OSRunner{}
	}
	return &Scheduler{log: log, ledger: ledger, lister: lister, keyMu: keyMu, runner: runner}
}

// Tick evaluates every current cluster's schedule against now and backs up
// any that are due. Exported so tests can drive it with a fixed "now"
// instead of waiting on a real ticker.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	for _, c := range s.lister.Clusters() {
		if c.Spec.Backups.Cron == "" {
			continue
		}
		key := cluster.Key{Name: c.Name, Namespace: c.Namespace}
		if s.due(key, c.Spec.Backups.Cron, now) {
			s.keyMu.WithLock(key, func() {
				if err := s.backup(ctx, c, now); err != nil {
					s.log.Warnw("backup failed", "cluster", key.String(), "error", err)
					return
				}
				s.ledger.Record(key, now)
			})
		}
	}
}

func (s *Scheduler) due(key cluster.Key, cronExpr string, now time.Time) bool {
	schedule, err := cron.ParseStandard(cronExpr)
	if err != nil {
		s.log.Warnw("invalid cron expression", "cluster", key.String(), "cron", cronExpr, "error", err)
		return false
	}
	last, ok := s.ledger.Last(key)
	if !ok {
		return true
	}
	return !schedule.Next(last).After(now)
}

// backup writes an archive for the last member of the replica set
// (replicas-1), creating the output directory if missing. A non-zero exit
// is a failure and the ledger is not advanced, so the next tick retries.
func (s *Scheduler) backup(ctx context.Context, c *mdbv1.MongoCluster, now time.Time) error {
	dir := filepath.Join(backupRootDir, c.Name)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrap(err, "creating backup directory")
	}

	file := filepath.Join(dir, archiveName(c.Namespace, c.Name, now))
	lastMember := c.MemberHostname(c.Spec.Replicas - 1)

	args := []string{
		"--authenticationDatabase=admin",
		"-u", "admin",
		"-p", c.Spec.Users.AdminPassword,
		fmt.Sprintf("--host=%s", lastMember),
		"--gzip",
		fmt.Sprintf("--archive=%s", file),
	}
	if err := s.runner.Run(ctx, "mongodump", args...); err != nil {
		return errors.Wrap(err, "mongodump")
	}
	return nil
}

// archiveName builds "mongodb-backup-{namespace}-{cluster}-{timestamp}.archive.gz".
func archiveName(namespace, name string, when time.Time) string {
	return fmt.Sprintf("mongodb-backup-%s-%s-%s.archive.gz", namespace, name, when.UTC().Format(timestampLayout))
}
