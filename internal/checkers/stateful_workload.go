package checkers

import (
	"context"

	"github.com/pkg/errors"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/kubeclient"
	"github.com/keiailab/mongo-replicaset-operator/internal/resources"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/podtemplatespec"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/statefulset"
)

// StatefulWorkloadChecker reconciles the per-cluster mongod StatefulSet.
type StatefulWorkloadChecker struct {
	Clientset kubernetes.Interface
}

var _ Checker = &StatefulWorkloadChecker{}

func (w *StatefulWorkloadChecker) List(ctx context.Context) ([]kubeclient.Object, error) {
	list, err := w.Clientset.AppsV1().StatefulSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: operatorLabelSelector,
	})
	if err != nil {
		return nil, err
	}
	out := make([]kubeclient.Object, 0, len(list.Items))
	for i := range list.Items {
		out = append(out, &list.Items[i])
	}
	return out, nil
}

func (w *StatefulWorkloadChecker) Get(ctx context.Context, c *mdbv1.MongoCluster) (kubeclient.Object, error) {
	return w.Clientset.AppsV1().StatefulSets(c.Namespace).Get(ctx, resources.StatefulWorkloadName(c.Name), metav1.GetOptions{})
}

func (w *StatefulWorkloadChecker) Create(ctx context.Context, c *mdbv1.MongoCluster) error {
	sts, err := resources.BuildStatefulWorkload(c)
	if err != nil {
		return err
	}
	_, err = w.Clientset.AppsV1().StatefulSets(c.Namespace).Create(ctx, &sts, metav1.CreateOptions{})
	return err
}

// Update patches the existing StatefulSet toward the canonical form only
// when it actually drifted (HaveEqualSpec), keeping the patch idempotent.
// The pod template is folded in with MergePodTemplateSpecs rather than
// overwritten outright, so fields the checkers don't manage (sidecar
// containers or volume mounts added out of band) survive the patch.
func (w *StatefulWorkloadChecker) Update(ctx context.Context, existing kubeclient.Object, c *mdbv1.MongoCluster) error {
	built, err := resources.BuildStatefulWorkload(c)
	if err != nil {
		return err
	}
	current := existing.(*appsv1.StatefulSet)
	equal, err := statefulset.HaveEqualSpec(built, *current)
	if err != nil {
		return err
	}
	if equal {
		return nil
	}

	mergedTemplate, err := podtemplatespec.MergePodTemplateSpecs(current.Spec.Template, built.Spec.Template)
	if err != nil {
		return errors.Wrap(err, "merging pod template spec")
	}

	merged := current.DeepCopy()
	merged.Spec.Replicas = built.Spec.Replicas
	merged.Spec.Template = mergedTemplate
	merged.Spec.UpdateStrategy = built.Spec.UpdateStrategy
	_, err = w.Clientset.AppsV1().StatefulSets(c.Namespace).Update(ctx, merged, metav1.UpdateOptions{})
	return err
}

func (w *StatefulWorkloadChecker) Delete(ctx context.Context, name, namespace string) error {
	return w.Clientset.AppsV1().StatefulSets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

// ClusterNameFromResource: the StatefulWorkload name IS the cluster name.
func (w *StatefulWorkloadChecker) ClusterNameFromResource(resourceName string) (string, bool) {
	return resourceName, true
}

// IsReady reports whether the owning cluster's StatefulSet has the desired
// number of ready, updated replicas.
func IsReady(sts *appsv1.StatefulSet, expectedReplicas int) bool {
	return statefulset.IsReady(*sts, expectedReplicas)
}
