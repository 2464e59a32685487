// Package cluster provides the Kubernetes-facing operations needed to take
// a node out of service, reboot it, and bring it back.
package cluster

import (
	"context"
	"time"
)

// Role classifies a node by its cluster function.
type Role string

const (
	RoleMaster Role = "master"
	RoleInfra  Role = "infra"
	RoleWorker Role = "worker"
	RoleCustom Role = "custom"
)

// NodeInfo is a point-in-time view of a node.
type NodeInfo struct {
	Name        string
	Role        Role
	Ready       bool
	Schedulable bool
}

// Client defines the cluster operations consumed by the resolver and the
// lifecycle driver. No other component issues cluster-mutating calls.
type Client interface {
	// ListNodesByRole returns all nodes carrying the given role, in the
	// order the API server returns them. An empty role matches every node.
	ListNodesByRole(ctx context.Context, role Role) ([]NodeInfo, error)

	// GetNode returns the current view of a single node.
	// Returns a *NotFoundError if the node does not exist.
	GetNode(ctx context.Context, name string) (NodeInfo, error)

	// EvictWorkloads evicts every evictable pod from the node and waits,
	// up to timeout, until none remain. It returns the number of pods that
	// were evictable when the call started, so callers can tell an empty
	// node apart from a completed drain.
	EvictWorkloads(ctx context.Context, node string, timeout time.Duration) (int, error)

	// ExecPrivileged runs a command in the node's host namespace through a
	// privileged debug pod and waits, up to timeout, for it to finish.
	ExecPrivileged(ctx context.Context, node, command string, timeout time.Duration) error

	// Cordon marks the node unschedulable.
	Cordon(ctx context.Context, node string) error

	// Uncordon marks the node schedulable again and waits, up to timeout,
	// until the API server reflects it.
	Uncordon(ctx context.Context, node string, timeout time.Duration) error
}
