package checkers

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/kubeclient"
	"github.com/keiailab/mongo-replicaset-operator/internal/resources"
)

// ClientServiceChecker reconciles the ClusterIP service clients connect through.
type ClientServiceChecker struct {
	Clientset kubernetes.Interface
}

var _ Checker = &ClientServiceChecker{}

func (s *ClientServiceChecker) List(ctx context.Context) ([]kubeclient.Object, error) {
	list, err := s.Clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: operatorLabelSelector,
	})
	if err != nil {
		return nil, err
	}
	out := make([]kubeclient.Object, 0, len(list.Items))
	for i := range list.Items {
		// the headless service carries the same labels; distinguish by name.
		if _, ok := s.ClusterNameFromResource(list.Items[i].Name); ok {
			out = append(out, &list.Items[i])
		}
	}
	return out, nil
}

func (s *ClientServiceChecker) Get(ctx context.Context, c *mdbv1.MongoCluster) (kubeclient.Object, error) {
	return s.Clientset.CoreV1().Services(c.Namespace).Get(ctx, resources.ClientServiceName(c.Name), metav1.GetOptions{})
}

func (s *ClientServiceChecker) Create(ctx context.Context, c *mdbv1.MongoCluster) error {
	svc := resources.BuildClientService(c)
	_, err := s.Clientset.CoreV1().Services(c.Namespace).Create(ctx, &svc, metav1.CreateOptions{})
	return err
}

func (s *ClientServiceChecker) Update(ctx context.Context, existing kubeclient.Object, c *mdbv1.MongoCluster) error {
	svc := existing.(*corev1.Service)
	merged := resources.MergeService(*svc, resources.BuildClientService(c))
	_, err := s.Clientset.CoreV1().Services(c.Namespace).Update(ctx, &merged, metav1.UpdateOptions{})
	return err
}

func (s *ClientServiceChecker) Delete(ctx context.Context, name, namespace string) error {
	return s.Clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

// ClusterNameFromResource recognizes the ClientService naming rule: the
// resource name IS the cluster name, so it must reject names that belong to
// the InternalHeadlessService ("svc-{cluster}-internal") instead.
func (s *ClientServiceChecker) ClusterNameFromResource(resourceName string) (string, bool) {
	if _, ok := (&InternalHeadlessServiceChecker{}).ClusterNameFromResource(resourceName); ok {
		return "", false
	}
	return resourceName, true
}
