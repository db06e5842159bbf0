// Package checkers implements one idempotent reconciler per child resource
// kind (AdminSecret, ClientService, InternalHeadlessService,
// StatefulWorkload): list, get, create, update, delete, and the inverse
// naming rule that maps a child's resource name back to its owning cluster.
package checkers

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/kubeclient"
)

// operatorLabelSelector scopes List calls to resources this operator owns.
const operatorLabelSelector = "operated-by=mongo-replicaset-operator"

// Checker is the contract every child-resource reconciler satisfies.
type Checker interface {
	// List returns every child of this kind bearing the operator's labels,
	// across all namespaces.
	List(ctx context.Context) ([]kubeclient.Object, error)
	// Get fetches the child belonging to c, or a NotFound error.
	Get(ctx context.Context, c *mdbv1.MongoCluster) (kubeclient.Object, error)
	// Create builds and persists the canonical child for c.
	Create(ctx context.Context, c *mdbv1.MongoCluster) error
	// Update patches the existing child toward the canonical form. The
	// patch must be idempotent: applying it to an already-canonical child
	// is a no-op.
	Update(ctx context.Context, existing kubeclient.Object, c *mdbv1.MongoCluster) error
	// Delete removes the named child.
	Delete(ctx context.Context, name, namespace string) error
	// ClusterNameFromResource inverts the naming rule for this kind,
	// returning ok=false if resourceName doesn't match the pattern.
	ClusterNameFromResource(resourceName string) (string, bool)
}

// Reconcile runs the standard per-cluster, per-kind algorithm: get, then
// create if missing or update unconditionally otherwise. Errors other than
// NotFound are returned so the caller can fail this cluster's reconcile
// attempt and retry on the next watch tick.
func Reconcile(ctx context.Context, chk Checker, c *mdbv1.MongoCluster) error {
	existing, err := chk.Get(ctx, c)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return errors.Wrap(chk.Create(ctx, c), "creating child resource")
		}
		return errors.Wrap(err, "getting child resource")
	}
	return errors.Wrap(chk.Update(ctx, existing, c), "updating child resource")
}

// OrphanSweep deletes every child of this kind whose name doesn't map back
// to one of the currently-known cluster names. It runs after every known
// cluster has been reconciled for this kind. One failed delete doesn't stop
// the sweep from attempting the rest; all failures are aggregated and
// returned together.
func OrphanSweep(ctx context.Context, chk Checker, knownClusters map[string]bool) error {
	children, err := chk.List(ctx)
	if err != nil {
		return errors.Wrap(err, "listing children for orphan sweep")
	}

	var result *multierror.Error
	for _, child := range children {
		clusterName, ok := chk.ClusterNameFromResource(child.GetName())
		if !ok || knownClusters[clusterName] {
			continue
		}
		if err := chk.Delete(ctx, child.GetName(), child.GetNamespace()); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "deleting orphaned %s/%s", child.GetNamespace(), child.GetName()))
		}
	}
	return result.ErrorOrNil()
}
