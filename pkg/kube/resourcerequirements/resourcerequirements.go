// Package resourcerequirements builds corev1.ResourceRequirements from the
// resource strings a MongoCluster spec carries (cpuLimit, memoryLimit, storage).
package resourcerequirements

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
)

// BuildLimits builds a ResourceRequirements with only Limits set to the given
// cpu/memory quantities, requests are left to the scheduler's defaults.
func BuildLimits(cpu, memory string) (corev1.ResourceRequirements, error) {
	cpuQty, err := resource.ParseQuantity(cpu)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	memQty, err := resource.ParseQuantity(memory)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	return corev1.ResourceRequirements{
		Limits: corev1.ResourceList{
			corev1.ResourceCPU:    cpuQty,
			corev1.ResourceMemory: memQty,
		},
	}, nil
}

// BuildStorageRequirements builds the PVC-style storage request for the given size.
func BuildStorageRequirements(storage string) (corev1.ResourceRequirements, error) {
	qty, err := resource.ParseQuantity(storage)
	if err != nil {
		return corev1.ResourceRequirements{}, err
	}
	return corev1.ResourceRequirements{
		Requests: corev1.ResourceList{
			corev1.ResourceStorage: qty,
		},
	}, nil
}
