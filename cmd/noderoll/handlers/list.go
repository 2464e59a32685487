package handlers

import (
	"context"
	"fmt"

	"github.com/imamik/noderoll/internal/cluster"
)

// ListOptions carries the list command's flag values.
type ListOptions struct {
	Role       string
	Kubeconfig string
	ConfigPath string
	NoColor    bool
}

// List prints the nodes a reboot run would operate on, with their role,
// readiness, and schedulability. It never mutates the cluster.
func List(ctx context.Context, opts ListOptions) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}

	client, err := newClusterClient(opts.Kubeconfig, cfg.DebugNamespace)
	if err != nil {
		return err
	}

	nodes, err := client.ListNodesByRole(ctx, cluster.Role(opts.Role))
	if err != nil {
		return err
	}

	if len(nodes) == 0 {
		if opts.Role != "" {
			fmt.Fprintf(stdout, "No nodes found for role %s.\n", opts.Role)
		} else {
			fmt.Fprintln(stdout, "No nodes found.")
		}
		return nil
	}

	fmt.Fprint(stdout, renderNodeList(nodes, opts.NoColor))
	return nil
}
