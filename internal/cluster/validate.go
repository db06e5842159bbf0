package cluster

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/api/resource"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

// validReplicaCounts lists the replica-set sizes that tolerate a majority
// after losing one member without a tie: odd, >= 3, <= 7.
var validReplicaCounts = map[int]bool{3: true, 5: true, 7: true}

// Validate checks a MongoClusterSpec; the manager calls it at the start of
// every reconcile of the cluster. A validation failure is fatal for that
// cluster: no children are created or modified until the MongoClusterSpec
// is corrected.
func Validate(spec mdbv1.MongoClusterSpec) error {
	if !validReplicaCounts[spec.Replicas] {
		return errors.Errorf("replicas must be one of 3, 5, 7, got %d", spec.Replicas)
	}
	if err := validateQuantity("cpu_limit", spec.CPULimit); err != nil {
		return err
	}
	if err := validateQuantity("memory_limit", spec.MemoryLimit); err != nil {
		return err
	}
	if err := validateQuantity("wired_tiger_cache_size", spec.WiredTigerCacheSize); err != nil {
		return err
	}
	return nil
}

func validateQuantity(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := resource.ParseQuantity(value); err != nil {
		return errors.Wrapf(err, "invalid %s %q", field, value)
	}
	return nil
}
