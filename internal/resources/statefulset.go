package resources

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"

	mdbv1 "github.com/keiailab/mongo-replicaset-operator/pkg/apis/mongodb/v1"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/container"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/podtemplatespec"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/probes"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/resourcerequirements"
	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/statefulset"
)

const (
	mongodContainerName = "mongod"
	mongodImage         = "mongo:4.2"
	dataVolumeName      = "mongod-data"

	// mongoKeyfileValue is a literal constant shared by every member's
	// keyfile so the replica set can authenticate internally. Whether this
	// should instead be a per-cluster generated secret is an open question
	// carried over unresolved (see DESIGN.md).
	mongoKeyfileValue = "CHANGE-ME-REPLICA-SET-KEYFILE"

	antiAffinityTopologyKey = "kubernetes.io/hostname"
)

// BuildStatefulWorkload builds the canonical StatefulSet for a cluster: one
// mongod container per pod, host-path data volume, anti-affinity across
// hostnames, and the liveness/readiness probes.
func BuildStatefulWorkload(c *mdbv1.MongoCluster) (appsv1.StatefulSet, error) {
	spec := WithDefaults(c.Spec)

	limits, err := resourcerequirements.BuildLimits(spec.CPULimit, spec.MemoryLimit)
	if err != nil {
		return appsv1.StatefulSet{}, err
	}

	envs := []corev1.EnvVar{
		{Name: "MONGODB_REPLICA_NAME", Value: c.Name},
		{Name: "MONGODB_SERVICE_NAME", Value: c.InternalServiceName()},
		{Name: "MONGODB_KEYFILE_VALUE", Value: mongoKeyfileValue},
		{Name: "WIRED_TIGER_CACHE_SIZE", Value: spec.WiredTigerCacheSize},
		{
			Name: "POD_IP",
			ValueFrom: &corev1.EnvVarSource{
				FieldRef: &corev1.ObjectFieldSelector{FieldPath: "status.podIP"},
			},
		},
		envFromSecret("MONGODB_ADMIN_PASSWORD", AdminSecretName(c.Name), AdminPasswordKey),
		envFromSecret("MONGODB_USER", AdminSecretName(c.Name), UserKey),
		envFromSecret("MONGODB_PASSWORD", AdminSecretName(c.Name), PasswordKey),
		envFromSecret("MONGODB_DATABASE", AdminSecretName(c.Name), DatabaseNameKey),
	}

	mongodContainer := container.Apply(
		container.WithName(mongodContainerName),
		container.WithImage(mongodImage),
		container.WithCommand([]string{"run-mongod-replication"}),
		container.WithPorts([]corev1.ContainerPort{{ContainerPort: mongodPort, Name: mongodPortName}}),
		container.WithEnvs(envs...),
		container.WithResourceRequirements(limits),
		container.WithVolumeMounts([]corev1.VolumeMount{
			{Name: dataVolumeName, MountPath: spec.StorageMountPath},
		}),
		container.WithLivenessProbe(probes.Apply(
			probes.WithTCPSocket(mongodPort),
			probes.WithInitialDelaySeconds(30),
		)),
		container.WithReadinessProbe(probes.Apply(
			probes.WithExecCommand([]string{
				"/bin/sh",
				"-c",
				`mongo 127.0.0.1:27017/$MONGODB_DATABASE -u $MONGODB_USER -p $MONGODB_PASSWORD --eval="quit()"`,
			}),
			probes.WithInitialDelaySeconds(10),
		)),
	)

	podSpecMods := []podtemplatespec.Modification{
		podtemplatespec.WithPodLabels(Labels(c.Name)),
		podtemplatespec.WithContainerByIndex(0, mongodContainer),
		podtemplatespec.WithVolume(statefulset.CreateVolumeFromHostPath(dataVolumeName, spec.HostPath)),
		podtemplatespec.WithAffinity(c.Name, appLabelKey(), 100),
	}
	if spec.ServiceAccount != "" {
		podSpecMods = append(podSpecMods, podtemplatespec.WithServiceAccount(spec.ServiceAccount))
	}
	if spec.RunAsUser != 0 {
		podSpecMods = append(podSpecMods, podtemplatespec.WithFsGroup(int(spec.RunAsUser)))
	}
	podSpecMods = append(podSpecMods, podtemplatespec.WithTopologyKey(antiAffinityTopologyKey, 0))

	podTemplateSpec := podtemplatespec.New(podSpecMods...)

	builder := statefulset.NewBuilder().
		SetName(StatefulWorkloadName(c.Name)).
		SetNamespace(c.Namespace).
		SetServiceName(InternalHeadlessServiceName(c.Name)).
		SetLabels(Labels(c.Name)).
		SetMatchLabels(Labels(c.Name)).
		SetReplicas(spec.Replicas).
		SetUpdateStrategy(appsv1.RollingUpdateStatefulSetStrategyType).
		SetPodTemplateSpec(podTemplateSpec)

	return builder.Build()
}

func envFromSecret(name, secretName, key string) corev1.EnvVar {
	return corev1.EnvVar{
		Name: name,
		ValueFrom: &corev1.EnvVarSource{
			SecretKeyRef: &corev1.SecretKeySelector{
				LocalObjectReference: corev1.LocalObjectReference{Name: secretName},
				Key:                  key,
			},
		},
	}
}

// appLabelKey exists so the anti-affinity wiring reads "app" from the same
// place Labels does, without hardcoding the label string twice.
func appLabelKey() string {
	return appLabel
}
