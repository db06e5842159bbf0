package resources

import (
	corev1 "k8s.io/api/core/v1"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/service"
)

const mongodPortName = "mongod"
const mongodPort int32 = 27017

// tolerateUnreadyEndpointsAnnotation lets the headless service publish DNS
// records for members that haven't passed their readiness probe yet - the
// replica set needs to address a member before mongod considers it healthy.
const tolerateUnreadyEndpointsAnnotation = "service.alpha.kubernetes.io/tolerate-unready-endpoints"

// BuildClientService builds the canonical ClusterIP service clients connect
// through: "{cluster}", port 27017/tcp named "mongod".
func BuildClientService(c *mdbv1.MongoCluster) corev1.Service {
	return service.New(
		service.WithName(ClientServiceName(c.Name)),
		service.WithNamespace(c.Namespace),
		service.WithLabels(Labels(c.Name)),
		service.WithSelector(Labels(c.Name)),
		service.WithServiceType(corev1.ServiceTypeClusterIP),
		service.WithPort(mongodPortName, mongodPort),
	)
}

// BuildInternalHeadlessService builds the canonical headless service members
// use to address each other: "svc-{cluster}-internal", clusterIP "None".
func BuildInternalHeadlessService(c *mdbv1.MongoCluster) corev1.Service {
	return service.New(
		service.WithName(InternalHeadlessServiceName(c.Name)),
		service.WithNamespace(c.Namespace),
		service.WithLabels(Labels(c.Name)),
		service.WithAnnotations(map[string]string{tolerateUnreadyEndpointsAnnotation: "true"}),
		service.WithSelector(Labels(c.Name)),
		service.WithClusterIP(corev1.ClusterIPNone),
		service.WithPort(mongodPortName, mongodPort),
	)
}

// MergeService patches an existing Service toward the canonical built form.
func MergeService(existing corev1.Service, built corev1.Service) corev1.Service {
	return service.Merge(existing, built)
}
