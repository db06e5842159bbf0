// Package probes provides functional-option helpers for building corev1.Probe values.
package probes

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
)

// Modification is a function which mutates a corev1.Probe in place.
type Modification func(*corev1.Probe)

// New builds a new Probe by applying every Modification in order.
func New(mods ...Modification) corev1.Probe {
	p := corev1.Probe{}
	for _, mod := range mods {
		mod(&p)
	}
	return p
}

func Apply(mods ...Modification) Modification {
	return func(p *corev1.Probe) {
		for _, mod := range mods {
			mod(p)
		}
	}
}

func WithExecCommand(command []string) Modification {
	return func(p *corev1.Probe) {
		p.Handler.Exec = &corev1.ExecAction{Command: command}
	}
}

// WithTCPSocket configures the probe to attempt a TCP connection to the given port.
func WithTCPSocket(port int32) Modification {
	return func(p *corev1.Probe) {
		p.Handler.TCPSocket = &corev1.TCPSocketAction{Port: intstr.FromInt(int(port))}
	}
}

func WithInitialDelaySeconds(seconds int) Modification {
	return func(p *corev1.Probe) { p.InitialDelaySeconds = int32(seconds) }
}

func WithTimeoutSeconds(seconds int) Modification {
	return func(p *corev1.Probe) { p.TimeoutSeconds = int32(seconds) }
}

func WithPeriodSeconds(seconds int) Modification {
	return func(p *corev1.Probe) { p.PeriodSeconds = int32(seconds) }
}

func WithFailureThreshold(threshold int) Modification {
	return func(p *corev1.Probe) { p.FailureThreshold = int32(threshold) }
}

func WithSuccessThreshold(threshold int) Modification {
	return func(p *corev1.Probe) { p.SuccessThreshold = int32(threshold) }
}
