package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/noderoll/cmd/noderoll/handlers"
)

// List returns the command that prints nodes and their reboot-relevant state.
func List() *cobra.Command {
	var opts handlers.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes with their role, readiness, and schedulability",
		Long: `List the nodes a reboot run would operate on.

Shows each node's role, Ready condition, and whether it is schedulable,
so cordoned leftovers from an aborted run are easy to spot.

Examples:
  # All worker nodes
  noderoll list --role worker

  # Every node
  noderoll list`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.List(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "Only list nodes carrying this role")
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a noderoll YAML config file")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	return cmd
}
