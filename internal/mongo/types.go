// Package mongo drives MongoDB-internal state for every managed cluster:
// replica-set initiation and reconfiguration, admin-user creation, and the
// restore-on-first-ready signal, all issued directly through
// go.mongodb.org/mongo-driver/mongo rather than through an in-pod agent.
package mongo

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/keiailab/mongo-replicaset-operator/internal/cluster"
)

// ReplicaSetState is the small sum type the orchestrator's state machine
// moves through for a given cluster.
type ReplicaSetState struct {
	kind     stateKind
	members  int
	desired  int
}

type stateKind int

const (
	stateUninitialized stateKind = iota
	stateHealthy
	stateDrifted
	stateUnreachable
)

func Uninitialized() ReplicaSetState { return ReplicaSetState{kind: stateUninitialized} }
func Unreachable() ReplicaSetState   { return ReplicaSetState{kind: stateUnreachable} }
func Healthy(n int) ReplicaSetState  { return ReplicaSetState{kind: stateHealthy, members: n} }
func Drifted(n, desired int) ReplicaSetState {
	return ReplicaSetState{kind: stateDrifted, members: n, desired: desired}
}

func (s ReplicaSetState) IsUninitialized() bool { return s.kind == stateUninitialized }
func (s ReplicaSetState) IsHealthy() bool       { return s.kind == stateHealthy }
func (s ReplicaSetState) IsDrifted() bool       { return s.kind == stateDrifted }
func (s ReplicaSetState) IsUnreachable() bool   { return s.kind == stateUnreachable }
func (s ReplicaSetState) Members() int          { return s.members }
func (s ReplicaSetState) Desired() int          { return s.desired }

// Status renders a short human-readable description, the Go analogue of the
// informal dict shape the original state representation used.
func (s ReplicaSetState) Status() string {
	switch s.kind {
	case stateUninitialized:
		return "uninitialized"
	case stateHealthy:
		return "healthy"
	case stateDrifted:
		return "drifted"
	case stateUnreachable:
		return "unreachable"
	default:
		return "unknown"
	}
}

// ClientCache maps a ClusterKey to its live *mongo.Client. Clients are
// created lazily on first need and reused; they are the sole owners of the
// driver's connection pool and topology listeners.
type ClientCache struct {
	mu      sync.Mutex
	clients map[cluster.Key]*mongo.Client
}

// NewClientCache returns a ready-to-use, empty ClientCache.
func NewClientCache() *ClientCache {
	return &ClientCache{clients: make(map[cluster.Key]*mongo.Client)}
}

func (c *ClientCache) get(key cluster.Key) (*mongo.Client, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	client, ok := c.clients[key]
	return client, ok
}

func (c *ClientCache) set(key cluster.Key, client *mongo.Client) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clients[key] = client
}

// Invalidate removes and, if present, disconnects the cached client for key.
// Called on repeated connection failure or when the cluster is deleted.
func (c *ClientCache) Invalidate(key cluster.Key) {
	c.mu.Lock()
	client, ok := c.clients[key]
	delete(c.clients, key)
	c.mu.Unlock()
	if ok {
		_ = client.Disconnect(context.Background())
	}
}

// RestoreLedger tracks which clusters have already been restored in this
// process's lifetime, ensuring restore is at-most-once per run.
type RestoreLedger struct {
	mu      sync.Mutex
	restored map[cluster.Key]bool
}

// NewRestoreLedger returns a ready-to-use, empty RestoreLedger.
func NewRestoreLedger() *RestoreLedger {
	return &RestoreLedger{restored: make(map[cluster.Key]bool)}
}

// MarkIfUnrestored atomically checks whether key has already been restored
// and, if not, marks it as restored. Returns true only for the caller that
// should actually perform the restore.
func (r *RestoreLedger) MarkIfUnrestored(key cluster.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.restored[key] {
		return false
	}
	r.restored[key] = true
	return true
}
