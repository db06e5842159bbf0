// Package service provides a functional-option Builder for corev1.Service,
// mirroring the Modification idiom used across pkg/kube.
package service

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Modification is a function which mutates a corev1.Service in place.
type Modification func(*corev1.Service)

func New(mods ...Modification) corev1.Service {
	svc := corev1.Service{}
	for _, mod := range mods {
		mod(&svc)
	}
	return svc
}

func Apply(mods ...Modification) Modification {
	return func(svc *corev1.Service) {
		for _, mod := range mods {
			mod(svc)
		}
	}
}

func NOOP() Modification {
	return func(svc *corev1.Service) {}
}

func WithName(name string) Modification {
	return func(svc *corev1.Service) { svc.Name = name }
}

func WithNamespace(namespace string) Modification {
	return func(svc *corev1.Service) { svc.Namespace = namespace }
}

func WithLabels(labels map[string]string) Modification {
	return func(svc *corev1.Service) {
		svc.Labels = labels
	}
}

func WithAnnotations(annotations map[string]string) Modification {
	return func(svc *corev1.Service) {
		svc.Annotations = annotations
	}
}

func WithOwnerReferences(refs []metav1.OwnerReference) Modification {
	return func(svc *corev1.Service) { svc.OwnerReferences = refs }
}

func WithSelector(selector map[string]string) Modification {
	return func(svc *corev1.Service) { svc.Spec.Selector = selector }
}

func WithClusterIP(clusterIP string) Modification {
	return func(svc *corev1.Service) { svc.Spec.ClusterIP = clusterIP }
}

func WithServiceType(t corev1.ServiceType) Modification {
	return func(svc *corev1.Service) { svc.Spec.Type = t }
}

// WithPort appends or replaces (by name) a single ServicePort.
func WithPort(name string, port int32) Modification {
	return func(svc *corev1.Service) {
		for i, p := range svc.Spec.Ports {
			if p.Name == name {
				svc.Spec.Ports[i].Port = port
				svc.Spec.Ports[i].TargetPort.IntVal = port
				return
			}
		}
		svc.Spec.Ports = append(svc.Spec.Ports, corev1.ServicePort{
			Name:     name,
			Port:     port,
			Protocol: corev1.ProtocolTCP,
		})
	}
}

// Merge merges `source` into `dest`. Both arguments remain unchanged; the
// merged result is returned. Used by checkers to patch an existing Service
// toward the canonical form without discarding fields Kubernetes itself owns
// (e.g. ClusterIP once allocated).
func Merge(dest corev1.Service, source corev1.Service) corev1.Service {
	annotations := map[string]string{}
	for k, v := range dest.ObjectMeta.Annotations {
		annotations[k] = v
	}
	for k, v := range source.ObjectMeta.Annotations {
		annotations[k] = v
	}
	dest.ObjectMeta.Annotations = annotations

	labels := map[string]string{}
	for k, v := range dest.ObjectMeta.Labels {
		labels[k] = v
	}
	for k, v := range source.ObjectMeta.Labels {
		labels[k] = v
	}
	dest.ObjectMeta.Labels = labels

	var nodePort int32
	if len(dest.Spec.Ports) > 0 {
		// Save the NodePort for later, in case this ServicePort is changed.
		nodePort = dest.Spec.Ports[0].NodePort
	}

	if len(source.Spec.Ports) > 0 {
		dest.Spec.Ports = append([]corev1.ServicePort(nil), source.Spec.Ports...)
		if nodePort > 0 && source.Spec.Ports[0].NodePort == 0 {
			dest.Spec.Ports[0].NodePort = nodePort
		}
	}

	dest.Spec.Selector = source.Spec.Selector
	if source.Spec.ClusterIP != "" {
		dest.Spec.ClusterIP = source.Spec.ClusterIP
	}
	dest.Spec.Type = source.Spec.Type
	return dest
}
