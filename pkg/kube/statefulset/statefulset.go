// Package statefulset provides a functional-option Builder for appsv1.StatefulSet,
// mirroring the Modification idiom used in pkg/kube/podtemplatespec.
package statefulset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Modification is a function which mutates an appsv1.StatefulSet in place.
type Modification func(*appsv1.StatefulSet)

func Apply(mods ...Modification) Modification {
	return func(sts *appsv1.StatefulSet) {
		for _, mod := range mods {
			mod(sts)
		}
	}
}

// Builder accumulates StatefulSet fields through its setters and produces an
// appsv1.StatefulSet on Build.
type Builder struct {
	name             string
	namespace        string
	serviceName      string
	labels           map[string]string
	matchLabels      map[string]string
	replicas         int32
	updateStrategy   appsv1.StatefulSetUpdateStrategyType
	podTemplateSpec  corev1.PodTemplateSpec
	ownerReferences  []metav1.OwnerReference
	volumeClaims     []corev1.PersistentVolumeClaim
	podManagePolicy  appsv1.PodManagementPolicyType
}

func NewBuilder() *Builder {
	return &Builder{podManagePolicy: appsv1.ParallelPodManagement}
}

func (b *Builder) SetName(name string) *Builder {
	b.name = name
	return b
}

func (b *Builder) SetNamespace(namespace string) *Builder {
	b.namespace = namespace
	return b
}

func (b *Builder) SetServiceName(serviceName string) *Builder {
	b.serviceName = serviceName
	return b
}

func (b *Builder) SetLabels(labels map[string]string) *Builder {
	b.labels = labels
	return b
}

func (b *Builder) SetMatchLabels(labels map[string]string) *Builder {
	b.matchLabels = labels
	return b
}

func (b *Builder) SetReplicas(replicas int) *Builder {
	b.replicas = int32(replicas)
	return b
}

func (b *Builder) SetUpdateStrategy(strategy appsv1.StatefulSetUpdateStrategyType) *Builder {
	b.updateStrategy = strategy
	return b
}

func (b *Builder) SetOwnerReferences(refs []metav1.OwnerReference) *Builder {
	b.ownerReferences = refs
	return b
}

func (b *Builder) SetPodTemplateSpec(spec corev1.PodTemplateSpec) *Builder {
	b.podTemplateSpec = spec
	return b
}

func (b *Builder) AddVolumeClaimTemplates(claims []corev1.PersistentVolumeClaim) *Builder {
	b.volumeClaims = append(b.volumeClaims, claims...)
	return b
}

func (b *Builder) AddVolumeMounts(containerName string, mounts []corev1.VolumeMount) *Builder {
	idx, err := b.getContainerIndexByName(containerName)
	if err != nil {
		return b
	}
	b.podTemplateSpec.Spec.Containers[idx].VolumeMounts = append(b.podTemplateSpec.Spec.Containers[idx].VolumeMounts, mounts...)
	return b
}

// VolumeMountData bundles a volume with the mount that exposes it inside one named container.
type VolumeMountData struct {
	Name      string
	MountPath string
	ReadOnly  bool
	Volume    corev1.Volume
}

// AddVolumeAndMount adds the volume to the pod spec and mounts it into the named container.
func (b *Builder) AddVolumeAndMount(containerName string, data VolumeMountData) *Builder {
	idx, err := b.getContainerIndexByName(containerName)
	if err != nil {
		return b
	}
	b.podTemplateSpec.Spec.Volumes = append(b.podTemplateSpec.Spec.Volumes, data.Volume)
	b.podTemplateSpec.Spec.Containers[idx].VolumeMounts = append(
		b.podTemplateSpec.Spec.Containers[idx].VolumeMounts,
		CreateVolumeMount(data.Name, data.MountPath, WithReadOnly(data.ReadOnly)),
	)
	return b
}

func (b *Builder) getContainerIndexByName(name string) (int, error) {
	for i, c := range b.podTemplateSpec.Spec.Containers {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no container with name %s exists", name)
}

// Build produces the final, independent appsv1.StatefulSet. Maps are copied so
// later mutation of the builder's inputs cannot affect a previously-built value.
func (b *Builder) Build() (appsv1.StatefulSet, error) {
	labels := copyMap(b.labels)
	matchLabels := b.matchLabels
	if matchLabels == nil {
		matchLabels = copyMap(b.labels)
	} else {
		matchLabels = copyMap(matchLabels)
	}

	podTemplateSpec := *b.podTemplateSpec.DeepCopy()
	for i := range podTemplateSpec.Spec.Containers {
		sortEnvVars(podTemplateSpec.Spec.Containers[i].Env)
	}

	sts := appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:            b.name,
			Namespace:       b.namespace,
			Labels:          labels,
			OwnerReferences: b.ownerReferences,
		},
		Spec: appsv1.StatefulSetSpec{
			ServiceName: b.serviceName,
			Replicas:    int32Ptr(b.replicas),
			Selector:    &metav1.LabelSelector{MatchLabels: matchLabels},
			Template:    podTemplateSpec,
			UpdateStrategy: appsv1.StatefulSetUpdateStrategy{
				Type: b.updateStrategy,
			},
			VolumeClaimTemplates: b.volumeClaims,
			PodManagementPolicy:  b.podManagePolicy,
		},
	}
	return sts, nil
}

func sortEnvVars(env []corev1.EnvVar) {
	sort.Slice(env, func(i, j int) bool { return env[i].Name < env[j].Name })
}

func copyMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func int32Ptr(i int32) *int32 { return &i }

// CreateVolumeFromConfigMap creates a named Volume backed by a ConfigMap.
func CreateVolumeFromConfigMap(name, configMapName string) corev1.Volume {
	return corev1.Volume{
		Name: name,
		VolumeSource: corev1.VolumeSource{
			ConfigMap: &corev1.ConfigMapVolumeSource{
				LocalObjectReference: corev1.LocalObjectReference{Name: configMapName},
			},
		},
	}
}

// CreateVolumeFromSecret creates a named Volume backed by a Secret.
func CreateVolumeFromSecret(name, secretName string) corev1.Volume {
	return corev1.Volume{
		Name: name,
		VolumeSource: corev1.VolumeSource{
			Secret: &corev1.SecretVolumeSource{SecretName: secretName},
		},
	}
}

// CreateVolumeFromEmptyDir creates a named Volume backed by an EmptyDir.
func CreateVolumeFromEmptyDir(name string) corev1.Volume {
	return corev1.Volume{
		Name:         name,
		VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
	}
}

// CreateVolumeFromHostPath creates a named Volume backed by a host path.
func CreateVolumeFromHostPath(name, path string) corev1.Volume {
	return corev1.Volume{
		Name: name,
		VolumeSource: corev1.VolumeSource{
			HostPath: &corev1.HostPathVolumeSource{Path: path},
		},
	}
}

type volumeMountOptions struct {
	readOnly bool
	subPath  string
}

type VolumeMountOption func(*volumeMountOptions)

func WithReadOnly(readOnly bool) VolumeMountOption {
	return func(o *volumeMountOptions) { o.readOnly = readOnly }
}

func WithSubPath(subPath string) VolumeMountOption {
	return func(o *volumeMountOptions) { o.subPath = subPath }
}

// CreateVolumeMount builds a VolumeMount for the named volume at the given path.
func CreateVolumeMount(name, path string, opts ...VolumeMountOption) corev1.VolumeMount {
	options := volumeMountOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	return corev1.VolumeMount{
		Name:      name,
		MountPath: path,
		ReadOnly:  options.readOnly,
		SubPath:   options.subPath,
	}
}

// comparableSpec is the subset of StatefulSetSpec that Update actually manages.
// Fields outside this subset (metadata, RevisionHistoryLimit, init containers, ...)
// are left alone by checkers, so they must not cause spurious diffs here - that's
// what keeps Update idempotent.
type comparableSpec struct {
	Replicas       *int32
	ServiceName    string
	UpdateStrategy appsv1.StatefulSetUpdateStrategyType
	Containers     []corev1.Container
}

func comparable(sts appsv1.StatefulSet) comparableSpec {
	return comparableSpec{
		Replicas:       sts.Spec.Replicas,
		ServiceName:    sts.Spec.ServiceName,
		UpdateStrategy: sts.Spec.UpdateStrategy.Type,
		Containers:     sts.Spec.Template.Spec.Containers,
	}
}

// HaveEqualSpec compares the subset of Spec fields the builder manages,
// ignoring metadata and fields the builder never sets (e.g. init containers
// added by another controller, RevisionHistoryLimit defaults).
func HaveEqualSpec(built, existing appsv1.StatefulSet) (bool, error) {
	builtBytes, err := json.Marshal(comparable(built))
	if err != nil {
		return false, err
	}
	existingBytes, err := json.Marshal(comparable(existing))
	if err != nil {
		return false, err
	}
	return bytes.Equal(builtBytes, existingBytes), nil
}

// IsReady reports whether the StatefulSet has the desired number of ready replicas.
func IsReady(sts appsv1.StatefulSet, expectedReplicas int) bool {
	return int(sts.Status.ReadyReplicas) == expectedReplicas &&
		int(sts.Status.UpdatedReplicas) == expectedReplicas &&
		sts.Status.CurrentRevision == sts.Status.UpdateRevision
}
