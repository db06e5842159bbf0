package checkers

import (
	"context"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/kubeclient"
	"github.com/keiailab/mongo-replicaset-operator/internal/resources"
)

const (
	internalServicePrefix = "svc-"
	internalServiceSuffix = "-internal"
)

// InternalHeadlessServiceChecker reconciles the headless service members
// address each other through.
type InternalHeadlessServiceChecker struct {
	Clientset kubernetes.Interface
}

var _ Checker = &InternalHeadlessServiceChecker{}

func (s *InternalHeadlessServiceChecker) List(ctx context.Context) ([]kubeclient.Object, error) {
	list, err := s.Clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: operatorLabelSelector,
	})
	if err != nil {
		return nil, err
	}
	out := make([]kubeclient.Object, 0, len(list.Items))
	for i := range list.Items {
		if _, ok := s.ClusterNameFromResource(list.Items[i].Name); ok {
			out = append(out, &list.Items[i])
		}
	}
	return out, nil
}

func (s *InternalHeadlessServiceChecker) Get(ctx context.Context, c *mdbv1.MongoCluster) (kubeclient.Object, error) {
	return s.Clientset.CoreV1().Services(c.Namespace).Get(ctx, resources.InternalHeadlessServiceName(c.Name), metav1.GetOptions{})
}

func (s *InternalHeadlessServiceChecker) Create(ctx context.Context, c *mdbv1.MongoCluster) error {
	svc := resources.BuildInternalHeadlessService(c)
	_, err := s.Clientset.CoreV1().Services(c.Namespace).Create(ctx, &svc, metav1.CreateOptions{})
	return err
}

func (s *InternalHeadlessServiceChecker) Update(ctx context.Context, existing kubeclient.Object, c *mdbv1.MongoCluster) error {
	svc := existing.(*corev1.Service)
	merged := resources.MergeService(*svc, resources.BuildInternalHeadlessService(c))
	_, err := s.Clientset.CoreV1().Services(c.Namespace).Update(ctx, &merged, metav1.UpdateOptions{})
	return err
}

func (s *InternalHeadlessServiceChecker) Delete(ctx context.Context, name, namespace string) error {
	return s.Clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

func (s *InternalHeadlessServiceChecker) ClusterNameFromResource(resourceName string) (string, bool) {
	if !strings.HasPrefix(resourceName, internalServicePrefix) || !strings.HasSuffix(resourceName, internalServiceSuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(resourceName, internalServicePrefix), internalServiceSuffix)
	if name == "" {
		return "", false
	}
	return name, true
}
