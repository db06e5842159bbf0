package v1

import (
	"fmt"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// MongoClusterSpec defines the desired state of a MongoCluster: replica
// count, resource shape, workload placement, credentials, and the optional
// backup schedule.
type MongoClusterSpec struct {
	// Replicas is the number of members in the replica set. Must be odd,
	// between 3 and 7 inclusive.
	// +optional
	Replicas int `json:"replicas"`

	// CPULimit, MemoryLimit and WiredTigerCacheSize are resource strings
	// (e.g. "1", "2Gi", "256M") parsed with resource.ParseQuantity.
	// +optional
	CPULimit string `json:"cpu_limit,omitempty"`
	// +optional
	MemoryLimit string `json:"memory_limit,omitempty"`
	// +optional
	WiredTigerCacheSize string `json:"wired_tiger_cache_size,omitempty"`

	// RunAsUser, ServiceAccount, HostPath and StorageMountPath control pod
	// placement and the host-path volume backing each member's data directory.
	// +optional
	RunAsUser int64 `json:"run_as_user,omitempty"`
	// +optional
	ServiceAccount string `json:"service_account,omitempty"`
	// +optional
	HostPath string `json:"host_path,omitempty"`
	// +optional
	StorageMountPath string `json:"storage_mount_path,omitempty"`

	Users    MongoUsers   `json:"users,omitempty"`
	Backups  MongoBackups `json:"backups,omitempty"`
}

// MongoUsers carries the admin and application-user credentials the
// orchestrator provisions inside the replica set.
type MongoUsers struct {
	AdminPassword string `json:"admin_password,omitempty"`
	UserName      string `json:"user_name,omitempty"`
	UserPassword  string `json:"user_password,omitempty"`
	DatabaseName  string `json:"database_name,omitempty"`
}

// MongoBackups carries the optional cron schedule and restore source.
type MongoBackups struct {
	// Cron is a standard 5-field cron expression. Empty means "never back up".
	// +optional
	Cron string `json:"cron,omitempty"`
	// RestoreFrom is either a path to a backup archive, the literal "latest",
	// or empty (no restore).
	// +optional
	RestoreFrom string `json:"restore_from,omitempty"`
}

// MongoClusterStatus defines the observed state of a MongoCluster. The
// operator never writes it; the orchestrator keeps its runtime view of each
// replica set in memory only.
type MongoClusterStatus struct {
	// +optional
	Phase string `json:"phase,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// MongoCluster is the Schema for the mongoclusters API.
// +kubebuilder:subresource:status
// +kubebuilder:resource:path=mongoclusters,scope=Namespaced,shortName=mdbc
type MongoCluster struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   MongoClusterSpec   `json:"spec,omitempty"`
	Status MongoClusterStatus `json:"status,omitempty"`
}

// NamespacedName returns the (name, namespace) pair other packages use as a
// ClusterKey without importing internal/cluster (which itself wraps this type).
func (m *MongoCluster) NamespacedName() (name, namespace string) {
	return m.Name, m.Namespace
}

// InternalServiceName is the headless service name every member advertises
// itself under: "svc-{cluster}-internal".
func (m *MongoCluster) InternalServiceName() string {
	return fmt.Sprintf("svc-%s-internal", m.Name)
}

// MemberHostname returns the MongoDB-visible DNS name for replica index i.
func (m *MongoCluster) MemberHostname(i int) string {
	return fmt.Sprintf("%s-%d.%s.%s.svc.cluster.local:27017", m.Name, i, m.InternalServiceName(), m.Namespace)
}

// DeepCopyObject implements runtime.Object.
func (m *MongoCluster) DeepCopyObject() runtime.Object {
	return m.DeepCopy()
}

// DeepCopy returns a deep copy of the MongoCluster.
func (m *MongoCluster) DeepCopy() *MongoCluster {
	if m == nil {
		return nil
	}
	out := new(MongoCluster)
	out.TypeMeta = m.TypeMeta
	m.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	out.Spec = m.Spec
	out.Status = m.Status
	return out
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object

// MongoClusterList contains a list of MongoCluster.
type MongoClusterList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []MongoCluster `json:"items"`
}

// DeepCopyObject implements runtime.Object.
func (l *MongoClusterList) DeepCopyObject() runtime.Object {
	return l.DeepCopy()
}

// DeepCopy returns a deep copy of the MongoClusterList.
func (l *MongoClusterList) DeepCopy() *MongoClusterList {
	if l == nil {
		return nil
	}
	out := new(MongoClusterList)
	out.TypeMeta = l.TypeMeta
	l.ListMeta.DeepCopyInto(&out.ListMeta)
	if l.Items != nil {
		out.Items = make([]MongoCluster, len(l.Items))
		for i := range l.Items {
			out.Items[i] = *l.Items[i].DeepCopy()
		}
	}
	return out
}
