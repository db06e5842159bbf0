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

const adminSecretNameSuffix = "-admin-credentials"

// AdminSecretChecker reconciles the per-cluster admin credentials Secret.
type AdminSecretChecker struct {
	Clientset kubernetes.Interface
}

var _ Checker = &AdminSecretChecker{}

func (a *AdminSecretChecker) List(ctx context.Context) ([]kubeclient.Object, error) {
	list, err := a.Clientset.CoreV1().Secrets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
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

func (a *AdminSecretChecker) Get(ctx context.Context, c *mdbv1.MongoCluster) (kubeclient.Object, error) {
	return a.Clientset.CoreV1().Secrets(c.Namespace).Get(ctx, resources.AdminSecretName(c.Name), metav1.GetOptions{})
}

func (a *AdminSecretChecker) Create(ctx context.Context, c *mdbv1.MongoCluster) error {
	secret := resources.BuildAdminSecret(c)
	_, err := a.Clientset.CoreV1().Secrets(c.Namespace).Create(ctx, &secret, metav1.CreateOptions{})
	return err
}

func (a *AdminSecretChecker) Update(ctx context.Context, existing kubeclient.Object, c *mdbv1.MongoCluster) error {
	secret := existing.(*corev1.Secret)
	merged := resources.MergeAdminSecret(*secret, c)
	_, err := a.Clientset.CoreV1().Secrets(c.Namespace).Update(ctx, &merged, metav1.UpdateOptions{})
	return err
}

func (a *AdminSecretChecker) Delete(ctx context.Context, name, namespace string) error {
	return a.Clientset.CoreV1().Secrets(namespace).Delete(ctx, name, metav1.DeleteOptions{})
}

func (a *AdminSecretChecker) ClusterNameFromResource(resourceName string) (string, bool) {
	if !strings.HasSuffix(resourceName, adminSecretNameSuffix) {
		return "", false
	}
	return strings.TrimSuffix(resourceName, adminSecretNameSuffix), true
}
