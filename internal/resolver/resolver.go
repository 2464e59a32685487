// Package resolver turns a role or an explicit node name into the
// ordered target list a run operates on.
package resolver

import (
	"context"
	"fmt"

	"k8s.io/klog/v2"

	"github.com/imamik/noderoll/internal/cluster"
	"github.com/imamik/noderoll/internal/lifecycle"
)

// Resolution is the outcome of target selection: the ordered node list
// and the parallelism the scheduler should use.
type Resolution struct {
	Targets     []*lifecycle.Target
	Parallelism int
}

// Resolver enumerates target nodes through the cluster client.
type Resolver struct {
	client      cluster.Client
	parallelism func(role string) int
}

// New creates a Resolver. parallelismFor supplies the per-role default
// batch size used when the operator does not override it.
func New(client cluster.Client, parallelismFor func(role string) int) *Resolver {
	return &Resolver{
		client:      client,
		parallelism: parallelismFor,
	}
}

// ByRole resolves every node carrying the role, in API list order.
// parallelOverride of 0 means "use the role default". Returns a
// *cluster.NotFoundError when the role matches nothing.
func (r *Resolver) ByRole(ctx context.Context, role cluster.Role, parallelOverride int) (*Resolution, error) {
	infos, err := r.client.ListNodesByRole(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve role %s: %w", role, err)
	}
	if len(infos) == 0 {
		return nil, &cluster.NotFoundError{Kind: "role", Name: string(role)}
	}

	parallel := parallelOverride
	if parallel == 0 {
		parallel = r.parallelism(string(role))
	}

	targets := make([]*lifecycle.Target, 0, len(infos))
	for _, info := range infos {
		targets = append(targets, lifecycle.NewTarget(info.Name, info.Role))
	}

	klog.FromContext(ctx).Info("Resolved targets by role",
		"role", role, "nodes", len(targets), "parallel", parallel)
	return &Resolution{Targets: targets, Parallelism: parallel}, nil
}

// ByName resolves a single node. Parallelism is always 1 for explicit
// node selection, regardless of any operator-supplied value.
func (r *Resolver) ByName(ctx context.Context, name string) (*Resolution, error) {
	info, err := r.client.GetNode(ctx, name)
	if err != nil {
		if cluster.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to resolve node %s: %w", name, err)
	}

	klog.FromContext(ctx).Info("Resolved single target", "node", name, "role", info.Role)
	return &Resolution{
		Targets:     []*lifecycle.Target{lifecycle.NewTarget(info.Name, info.Role)},
		Parallelism: 1,
	}, nil
}
