// Package container provides functional-option helpers for building
// corev1.Container values, the same way pkg/kube/podtemplatespec composes
// whole pod templates.
package container

import (
	corev1 "k8s.io/api/core/v1"

	"github.com/keiailab/mongo-replicaset-operator/pkg/kube/probes"
)

// Modification is a function which mutates a corev1.Container in place.
type Modification func(*corev1.Container)

// New builds a new container by applying every Modification in order.
func New(mods ...Modification) corev1.Container {
	c := corev1.Container{}
	for _, mod := range mods {
		mod(&c)
	}
	return c
}

// Apply returns a single Modification which applies every given Modification in order.
func Apply(mods ...Modification) Modification {
	return func(c *corev1.Container) {
		for _, mod := range mods {
			mod(c)
		}
	}
}

// NOOP is a valid Modification which applies no changes.
func NOOP() Modification {
	return func(*corev1.Container) {}
}

func WithName(name string) Modification {
	return func(c *corev1.Container) { c.Name = name }
}

func WithImage(image string) Modification {
	return func(c *corev1.Container) { c.Image = image }
}

func WithImagePullPolicy(policy corev1.PullPolicy) Modification {
	return func(c *corev1.Container) { c.ImagePullPolicy = policy }
}

func WithCommand(command []string) Modification {
	return func(c *corev1.Container) { c.Command = command }
}

func WithArgs(args []string) Modification {
	return func(c *corev1.Container) { c.Args = args }
}

func WithResourceRequirements(req corev1.ResourceRequirements) Modification {
	return func(c *corev1.Container) { c.Resources = req }
}

func WithPorts(ports []corev1.ContainerPort) Modification {
	return func(c *corev1.Container) { c.Ports = ports }
}

func WithEnvs(envs ...corev1.EnvVar) Modification {
	return func(c *corev1.Container) {
		for _, e := range envs {
			c.Env = appendOrReplaceEnv(c.Env, e)
		}
	}
}

func appendOrReplaceEnv(envs []corev1.EnvVar, env corev1.EnvVar) []corev1.EnvVar {
	for i, existing := range envs {
		if existing.Name == env.Name {
			envs[i] = env
			return envs
		}
	}
	return append(envs, env)
}

func WithVolumeMounts(mounts []corev1.VolumeMount) Modification {
	return func(c *corev1.Container) {
		c.VolumeMounts = mergeVolumeMountsByName(c.VolumeMounts, mounts)
	}
}

func mergeVolumeMountsByName(existing, additional []corev1.VolumeMount) []corev1.VolumeMount {
	seen := make(map[string]bool)
	for _, m := range existing {
		seen[m.Name] = true
	}
	result := existing
	for _, m := range additional {
		if !seen[m.Name] {
			result = append(result, m)
			seen[m.Name] = true
		}
	}
	return result
}

func WithLivenessProbe(mod probes.Modification) Modification {
	return func(c *corev1.Container) {
		p := probes.New(mod)
		c.LivenessProbe = &p
	}
}

func WithReadinessProbe(mod probes.Modification) Modification {
	return func(c *corev1.Container) {
		p := probes.New(mod)
		c.ReadinessProbe = &p
	}
}

func WithSecurityContext(sc corev1.SecurityContext) Modification {
	return func(c *corev1.Container) { c.SecurityContext = &sc }
}
