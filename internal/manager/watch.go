package manager

import (
	"context"
	"encoding/json"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"k8s.io/apimachinery/pkg/watch"
	"sigs.k8s.io/yaml"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

var mongoClusterGVR = schema.GroupVersionResource{
	Group:    "mongodb.com",
	Version:  "v1",
	Resource: "mongoclusters",
}

// reconnectBackoff is the pause before re-listing after a watch stream's
// result channel closes or the watch fails to start. A watch.Error event on
// its own does not end the stream: it is logged (cluster watch) or skipped
// (stateful-workload watch).
const reconnectBackoff = 5 * time.Second

// watchClusters lists MongoCluster objects across all namespaces, then
// watches from the list's resource version, reconnecting with a fresh
// resource version whenever the stream terminates.
func (m *ClusterManager) watchClusters(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		resourceVersion, err := m.listClustersOnce(ctx)
		if err != nil {
			m.log.Warnw("listing clusters failed, retrying", "error", err)
			sleepOrDone(ctx, reconnectBackoff)
			continue
		}
		m.consumeClusterWatch(ctx, resourceVersion)
		sleepOrDone(ctx, reconnectBackoff)
	}
}

func (m *ClusterManager) listClustersOnce(ctx context.Context) (string, error) {
	list, err := m.dynamic.Resource(mongoClusterGVR).Namespace(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return "", err
	}
	for i := range list.Items {
		c, err := decodeCluster(&list.Items[i])
		if err != nil {
			m.log.Warnw("skipping cluster with undecodable spec", "error", err)
			continue
		}
		m.reconcileCluster(ctx, c)
	}
	return list.GetResourceVersion(), nil
}

func (m *ClusterManager) consumeClusterWatch(ctx context.Context, resourceVersion string) {
	w, err := m.dynamic.Resource(mongoClusterGVR).Namespace(metav1.NamespaceAll).Watch(ctx, metav1.ListOptions{
		ResourceVersion: resourceVersion,
	})
	if err != nil {
		m.log.Warnw("starting cluster watch failed", "error", err)
		return
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.ResultChan():
			if !ok {
				return
			}
			m.handleClusterEvent(ctx, evt)
		}
	}
}

func (m *ClusterManager) handleClusterEvent(ctx context.Context, evt watch.Event) {
	if evt.Type == watch.Error {
		m.log.Warnw("cluster watch stream reported an error event")
		return
	}
	u, ok := evt.Object.(*unstructured.Unstructured)
	if !ok {
		return
	}
	switch evt.Type {
	case watch.Added, watch.Modified:
		c, err := decodeCluster(u)
		if err != nil {
			m.log.Warnw("skipping cluster with undecodable spec", "error", err)
			return
		}
		m.reconcileCluster(ctx, c)
	case watch.Deleted:
		m.deleteCluster(ctx, cluster.Key{Name: u.GetName(), Namespace: u.GetNamespace()})
	}
}

// decodeCluster turns an unstructured MongoCluster into a typed object.
// Unknown fields are ignored (UnmarshalStrict is deliberately not used),
// matching the "strongly typed decode, unknown fields ignored" design.
func decodeCluster(u *unstructured.Unstructured) (*mdbv1.MongoCluster, error) {
	raw, err := json.Marshal(u.Object)
	if err != nil {
		return nil, err
	}
	c := &mdbv1.MongoCluster{}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return nil, err
	}
	return c, nil
}

var statefulSetGVR = schema.GroupVersionResource{Group: "apps", Version: "v1", Resource: "statefulsets"}

// watchStatefulSets watches StatefulSet status transitions and re-reconciles
// the owning cluster, so replica-count changes applied to the workload
// out-of-band get picked back up.
func (m *ClusterManager) watchStatefulSets(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		resourceVersion, err := m.listStatefulSetsOnce(ctx)
		if err != nil {
			m.log.Warnw("listing stateful workloads failed, retrying", "error", err)
			sleepOrDone(ctx, reconnectBackoff)
			continue
		}
		m.consumeStatefulSetWatch(ctx, resourceVersion)
		sleepOrDone(ctx, reconnectBackoff)
	}
}

func (m *ClusterManager) listStatefulSetsOnce(ctx context.Context) (string, error) {
	list, err := m.clientset.AppsV1().StatefulSets(metav1.NamespaceAll).List(ctx, metav1.ListOptions{
		LabelSelector: "operated-by=mongo-replicaset-operator",
	})
	if err != nil {
		return "", err
	}
	return list.GetResourceVersion(), nil
}

func (m *ClusterManager) consumeStatefulSetWatch(ctx context.Context, resourceVersion string) {
	w, err := m.clientset.AppsV1().StatefulSets(metav1.NamespaceAll).Watch(ctx, metav1.ListOptions{
		LabelSelector:   "operated-by=mongo-replicaset-operator",
		ResourceVersion: resourceVersion,
	})
	if err != nil {
		m.log.Warnw("starting stateful workload watch failed", "error", err)
		return
	}
	defer w.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-w.ResultChan():
			if !ok {
				return
			}
			if evt.Type == watch.Error {
				continue
			}
			m.handleStatefulSetEvent(ctx, evt)
		}
	}
}

func (m *ClusterManager) handleStatefulSetEvent(ctx context.Context, evt watch.Event) {
	if evt.Type != watch.Modified {
		return
	}
	name, namespace := eventObjectName(evt)
	if name == "" {
		return
	}
	m.mu.RLock()
	c, ok := m.clusters[cluster.Key{Name: name, Namespace: namespace}]
	m.mu.RUnlock()
	if !ok {
		return
	}
	m.reconcileCluster(ctx, c)
}

func eventObjectName(evt watch.Event) (name, namespace string) {
	type metaObject interface {
		GetName() string
		GetNamespace() string
	}
	if obj, ok := evt.Object.(metaObject); ok {
		return obj.GetName(), obj.GetNamespace()
	}
	return "", ""
}

func sleepOrDone(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}
