package checkers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	fakeclientset "k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

func testCluster(name string) *mdbv1.MongoCluster {
	c := &mdbv1.MongoCluster{
		Spec: mdbv1.MongoClusterSpec{
			Replicas: 3,
			HostPath: "/var/lib/mongo",
			Users:    mdbv1.MongoUsers{AdminPassword: "adminpw"},
		},
	}
	c.Name = name
	c.Namespace = "prod"
	return c
}

func TestAdminSecretCheckerCreatesThenConverges(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	chk := &AdminSecretChecker{Clientset: clientset}
	c := testCluster("mdb")

	require.NoError(t, Reconcile(context.Background(), chk, c))
	secret, err := chk.Get(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, "mdb-admin-credentials", secret.GetName())

	// A second reconcile against the same desired state must not error and
	// must not need another Create.
	require.NoError(t, Reconcile(context.Background(), chk, c))
}

func TestClientServiceCheckerClusterNameFromResourceExcludesHeadless(t *testing.T) {
	chk := &ClientServiceChecker{}
	name, ok := chk.ClusterNameFromResource("mdb")
	assert.True(t, ok)
	assert.Equal(t, "mdb", name)

	_, ok = chk.ClusterNameFromResource("svc-mdb-internal")
	assert.False(t, ok, "the headless service's name must not be mistaken for a ClientService")
}

func TestInternalHeadlessServiceCheckerClusterNameFromResource(t *testing.T) {
	chk := &InternalHeadlessServiceChecker{}
	name, ok := chk.ClusterNameFromResource("svc-mdb-internal")
	assert.True(t, ok)
	assert.Equal(t, "mdb", name)

	_, ok = chk.ClusterNameFromResource("mdb")
	assert.False(t, ok)

	_, ok = chk.ClusterNameFromResource("svc--internal")
	assert.False(t, ok, "an empty cluster name is not a valid match")
}

func TestOrphanSweepDeletesUnknownClustersOnly(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	chk := &AdminSecretChecker{Clientset: clientset}

	kept := testCluster("kept")
	orphan := testCluster("orphan")
	require.NoError(t, chk.Create(context.Background(), kept))
	require.NoError(t, chk.Create(context.Background(), orphan))

	known := map[string]bool{"kept": true}
	require.NoError(t, OrphanSweep(context.Background(), chk, known))

	_, err := chk.Get(context.Background(), kept)
	assert.NoError(t, err, "a known cluster's child must survive the sweep")

	_, err = chk.Get(context.Background(), orphan)
	assert.Error(t, err, "an orphaned child must be deleted by the sweep")
}

func TestOrphanSweepAggregatesFailuresAcrossOrphans(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	chk := &AdminSecretChecker{Clientset: clientset}

	first := testCluster("first-orphan")
	second := testCluster("second-orphan")
	require.NoError(t, chk.Create(context.Background(), first))
	require.NoError(t, chk.Create(context.Background(), second))

	// Failing the delete of "first-orphan"'s secret with NotFound simulates
	// one delete failing while the sweep is still in progress.
	firstName := "first-orphan-admin-credentials"
	clientset.PrependReactor("delete", "secrets", func(action k8stesting.Action) (bool, runtime.Object, error) {
		if action.(k8stesting.DeleteAction).GetName() == firstName {
			return true, nil, apierrors.NewNotFound(corev1.Resource("secrets"), firstName)
		}
		return false, nil, nil
	})

	err := OrphanSweep(context.Background(), chk, map[string]bool{})
	require.Error(t, err, "a failed delete for one orphan must still surface")
	assert.Contains(t, err.Error(), firstName)

	_, getErr := chk.Get(context.Background(), second)
	assert.Error(t, getErr, "the sweep must still attempt and delete the remaining orphan despite the earlier failure")
}

func TestStatefulWorkloadUpdatePreservesOutOfBandSidecar(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	chk := &StatefulWorkloadChecker{Clientset: clientset}
	c := testCluster("mdb")

	require.NoError(t, chk.Create(context.Background(), c))
	existing, err := chk.Get(context.Background(), c)
	require.NoError(t, err)
	sts := existing.(*appsv1.StatefulSet)

	// Simulate a sidecar added out of band, by something other than this
	// checker, directly against the live object.
	sts.Spec.Template.Spec.Containers = append(sts.Spec.Template.Spec.Containers, corev1.Container{
		Name:  "log-shipper",
		Image: "log-shipper:latest",
	})
	_, err = clientset.AppsV1().StatefulSets(c.Namespace).Update(context.Background(), sts, metav1.UpdateOptions{})
	require.NoError(t, err)

	// Force HaveEqualSpec to see drift so Update actually runs its merge path.
	c.Spec.Replicas = 5
	existing, err = chk.Get(context.Background(), c)
	require.NoError(t, err)
	require.NoError(t, chk.Update(context.Background(), existing, c))

	updated, err := chk.Get(context.Background(), c)
	require.NoError(t, err)
	updatedSts := updated.(*appsv1.StatefulSet)

	assert.Equal(t, int32(5), *updatedSts.Spec.Replicas)
	assert.Len(t, updatedSts.Spec.Template.Spec.Containers, 2, "the out-of-band sidecar must survive the merge-based patch")
	assert.Equal(t, "log-shipper", updatedSts.Spec.Template.Spec.Containers[1].Name)
}

func TestReconcileUpdatesExistingChildWithoutDuplicating(t *testing.T) {
	clientset := fakeclientset.NewSimpleClientset()
	chk := &ClientServiceChecker{Clientset: clientset}
	c := testCluster("mdb")

	// Pre-create the Service through the checker so Reconcile's Get succeeds
	// and Update runs against it, exercising the non-create branch end to end.
	require.NoError(t, chk.Create(context.Background(), c))
	require.NoError(t, Reconcile(context.Background(), chk, c))

	list, err := clientset.CoreV1().Services(metav1.NamespaceAll).List(context.Background(), metav1.ListOptions{})
	require.NoError(t, err)
	assert.Len(t, list.Items, 1)
}
