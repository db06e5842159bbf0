// Package resources builds the canonical form of every child resource kind
// (AdminSecret, ClientService, InternalHeadlessService, StatefulWorkload)
// from a MongoClusterSpec, using the pkg/kube functional-builder packages.
package resources

const (
	operatedByLabel = "operated-by"
	heritageLabel   = "heritage"
	nameLabel       = "name"
	appLabel        = "app"

	operatedByValue = "mongo-replicaset-operator"
	heritageValue   = "mongo-replicaset-operator"
)

// Labels returns the default labels every child resource carries, so
// checkers can list children of a kind and map them back to a ClusterKey.
func Labels(clusterName string) map[string]string {
	return map[string]string{
		operatedByLabel: operatedByValue,
		heritageLabel:   heritageValue,
		nameLabel:       clusterName,
		appLabel:        clusterName,
	}
}

// ClusterNameFromLabels extracts the owning cluster's name from a child
// resource's labels, returning ok=false if the labels aren't ones this
// operator manages.
func ClusterNameFromLabels(labels map[string]string) (string, bool) {
	if labels[operatedByLabel] != operatedByValue {
		return "", false
	}
	name, ok := labels[nameLabel]
	return name, ok
}

// AdminSecretName returns the AdminSecret's resource name for a cluster.
func AdminSecretName(clusterName string) string {
	return clusterName + "-admin-credentials"
}

// ClientServiceName returns the ClientService's resource name for a cluster.
func ClientServiceName(clusterName string) string {
	return clusterName
}

// InternalHeadlessServiceName returns the InternalHeadlessService's resource name.
func InternalHeadlessServiceName(clusterName string) string {
	return "svc-" + clusterName + "-internal"
}

// StatefulWorkloadName returns the StatefulWorkload's resource name.
func StatefulWorkloadName(clusterName string) string {
	return clusterName
}
