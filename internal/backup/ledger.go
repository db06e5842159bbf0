// Package backup implements the per-cluster cron evaluator that decides
// when to dump a cluster and invokes the external dump process.
package backup

import (
	"sync"
	"time"

	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// Ledger maps a ClusterKey to its last-successful-backup timestamp.
// Process-local, in-memory; loss on restart causes at most one extra
// backup, which is harmless.
type Ledger struct {
	mu   sync.Mutex
	last map[cluster.Key]time.Time
}

// NewLedger returns a ready-to-use, empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{last: make(map[cluster.Key]time.Time)}
}

// Last returns the last-successful-backup time for key and whether one has
// ever been recorded.
func (l *Ledger) Last(key cluster.Key) (time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.last[key]
	return t, ok
}

// Record sets the last-successful-backup time for key. Only called after a
// backup actually succeeds; a failed tick must not advance this.
func (l *Ledger) Record(key cluster.Key, when time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last[key] = when
}

// Forget removes a key's bookkeeping, used when its cluster is deleted.
func (l *Ledger) Forget(key cluster.Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.last, key)
}
