// Package kubeclient is a thin wrapper over client-go's typed clientset,
// plus the Object interface checkers use for corev1 Secrets/Services and
// apps/v1 StatefulSets. The dynamic client for the MongoCluster custom
// resource is not part of it. It stands in for the split
// cache/apiserver client controller-runtime's manager would otherwise hand
// out, since reconnect-with-fresh-resource-version semantics here are
// written directly against client-go's watch.Interface.
package kubeclient

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
)

// Object is the minimal surface checkers need from a Kubernetes API object:
// enough to read/alter metadata and pass it back through the typed clientset.
type Object interface {
	runtime.Object
	metav1.Object
}

// Client holds the typed clientset; it carries no default namespace.
type Client struct {
	Clientset kubernetes.Interface
}

// New wraps an existing client-go Interface (typically built from
// rest.InClusterConfig or a kubeconfig in cmd/operator/main.go).
func New(clientset kubernetes.Interface) *Client {
	return &Client{Clientset: clientset}
}
