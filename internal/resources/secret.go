package resources

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
)

const (
	// Secret data keys, pinned by the external interface contract.
	AdminPasswordKey = "database-admin-password"
	UserKey          = "database-user"
	PasswordKey      = "database-password"
	DatabaseNameKey  = "database-name"
)

// BuildAdminSecret builds the canonical AdminSecret for a cluster.
func BuildAdminSecret(c *mdbv1.MongoCluster) corev1.Secret {
	return corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      AdminSecretName(c.Name),
			Namespace: c.Namespace,
			Labels:    Labels(c.Name),
		},
		Type: corev1.SecretTypeOpaque,
		StringData: map[string]string{
			AdminPasswordKey: c.Spec.Users.AdminPassword,
			UserKey:          c.Spec.Users.UserName,
			PasswordKey:      c.Spec.Users.UserPassword,
			DatabaseNameKey:  c.Spec.Users.DatabaseName,
		},
	}
}

// MergeAdminSecret patches an existing Secret's StringData toward the
// canonical values, leaving any fields it doesn't manage untouched.
func MergeAdminSecret(existing corev1.Secret, c *mdbv1.MongoCluster) corev1.Secret {
	out := *existing.DeepCopy()
	if out.StringData == nil {
		out.StringData = map[string]string{}
	}
	out.StringData[AdminPasswordKey] = c.Spec.Users.AdminPassword
	out.StringData[UserKey] = c.Spec.Users.UserName
	out.StringData[PasswordKey] = c.Spec.Users.UserPassword
	out.StringData[DatabaseNameKey] = c.Spec.Users.DatabaseName
	if out.Labels == nil {
		out.Labels = map[string]string{}
	}
	for k, v := range Labels(c.Name) {
		out.Labels[k] = v
	}
	return out
}
