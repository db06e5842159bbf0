// Package cluster holds the ClusterKey identity type and the primitives that
// key per-cluster state and serialize per-cluster work: the keyed mutex and
// spec validation.
package cluster

import "fmt"

// Key identifies a cluster uniquely by name and namespace. It is the map key
// for every process-wide ledger (MongoClientCache, BackupLedger, RestoreLedger).
type Key struct {
	Name      string
	Namespace string
}

// String renders the key as "namespace/name", the same convention client-go
// uses for cache.ObjectName.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s", k.Namespace, k.Name)
}
