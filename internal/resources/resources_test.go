package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

func testCluster() *mdbv1.MongoCluster {
	return &mdbv1.MongoCluster{
		ObjectMeta: metav1.ObjectMeta{Name: "mdb", Namespace: "prod"},
		Spec: mdbv1.MongoClusterSpec{
			Replicas:         3,
			HostPath:         "/var/lib/mongo",
			StorageMountPath: "/data/db",
			Users: mdbv1.MongoUsers{
				AdminPassword: "adminpw",
				UserName:      "app",
				UserPassword:  "apppw",
				DatabaseName:  "appdb",
			},
		},
	}
}

func TestNaming(t *testing.T) {
	assert.Equal(t, "mdb-admin-credentials", AdminSecretName("mdb"))
	assert.Equal(t, "mdb", ClientServiceName("mdb"))
	assert.Equal(t, "svc-mdb-internal", InternalHeadlessServiceName("mdb"))
	assert.Equal(t, "mdb", StatefulWorkloadName("mdb"))
}

func TestLabelsRoundTrip(t *testing.T) {
	labels := Labels("mdb")
	name, ok := ClusterNameFromLabels(labels)
	require.True(t, ok)
	assert.Equal(t, "mdb", name)

	_, ok = ClusterNameFromLabels(map[string]string{"name": "mdb"})
	assert.False(t, ok, "labels missing the operated-by marker are not ours")
}

func TestWithDefaults(t *testing.T) {
	spec := mdbv1.MongoClusterSpec{Replicas: 3}
	out := WithDefaults(spec)
	assert.Equal(t, "1", out.CPULimit)
	assert.Equal(t, "2Gi", out.MemoryLimit)
	assert.Equal(t, "256M", out.WiredTigerCacheSize)

	spec.CPULimit = "2"
	out = WithDefaults(spec)
	assert.Equal(t, "2", out.CPULimit, "explicit values are not overwritten")
}

func TestBuildAdminSecret(t *testing.T) {
	c := testCluster()
	secret := BuildAdminSecret(c)
	assert.Equal(t, "mdb-admin-credentials", secret.Name)
	assert.Equal(t, "adminpw", secret.StringData[AdminPasswordKey])
	assert.Equal(t, "app", secret.StringData[UserKey])
	assert.Equal(t, "appdb", secret.StringData[DatabaseNameKey])
}

func TestBuildServices(t *testing.T) {
	c := testCluster()

	client := BuildClientService(c)
	assert.Equal(t, "mdb", client.Name)
	assert.Equal(t, "ClusterIP", string(client.Spec.Type))
	require.Len(t, client.Spec.Ports, 1)
	assert.EqualValues(t, 27017, client.Spec.Ports[0].Port)

	headless := BuildInternalHeadlessService(c)
	assert.Equal(t, "svc-mdb-internal", headless.Name)
	assert.Equal(t, "None", headless.Spec.ClusterIP)
	assert.Equal(t, "true", headless.Annotations[tolerateUnreadyEndpointsAnnotation])
}

func TestBuildStatefulWorkload(t *testing.T) {
	c := testCluster()
	sts, err := BuildStatefulWorkload(c)
	require.NoError(t, err)

	assert.Equal(t, "mdb", sts.Name)
	assert.Equal(t, "svc-mdb-internal", sts.Spec.ServiceName)
	require.NotNil(t, sts.Spec.Replicas)
	assert.EqualValues(t, 3, *sts.Spec.Replicas)

	require.Len(t, sts.Spec.Template.Spec.Containers, 1)
	container := sts.Spec.Template.Spec.Containers[0]
	assert.Equal(t, mongodContainerName, container.Name)
	assert.NotNil(t, container.LivenessProbe.TCPSocket)
	assert.NotNil(t, container.ReadinessProbe.Exec)

	var replicaName string
	for _, e := range container.Env {
		if e.Name == "MONGODB_REPLICA_NAME" {
			replicaName = e.Value
		}
	}
	assert.Equal(t, "mdb", replicaName)
}

func TestBuildStatefulWorkloadIsIdempotent(t *testing.T) {
	c := testCluster()
	first, err := BuildStatefulWorkload(c)
	require.NoError(t, err)
	second, err := BuildStatefulWorkload(c)
	require.NoError(t, err)

	assert.Equal(t, first.Spec.Template.Spec.Containers, second.Spec.Template.Spec.Containers)
}
