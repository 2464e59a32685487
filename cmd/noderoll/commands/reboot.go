package commands

import (
	"github.com/spf13/cobra"

	"github.com/imamik/noderoll/cmd/noderoll/handlers"
)

// Reboot returns the command that drives a rolling reboot run.
//
// Target selection (exactly one of):
//
//	--role: reboot every node carrying this role (master, infra, worker, or a custom role)
//	--node: reboot a single node; parallelism is forced to 1
//
// Optional flags:
//
//	--parallel, -p: nodes rebooted concurrently per batch (default: role-based)
//	--yes, -y: skip all operator prompts; failures never abort the run
//	--dry-run: log the full sequence without touching the cluster
//	--kubeconfig: path to the kubeconfig file
//	--config, -c: path to a noderoll YAML config file
//	--report-dir: where the run report is written (default: current directory)
//	--no-color: disable colored output
func Reboot() *cobra.Command {
	var opts handlers.RebootOptions

	cmd := &cobra.Command{
		Use:   "reboot",
		Short: "Drain, reboot, and restore a set of nodes",
		Long: `Reboot cluster nodes in batches without losing workload availability.

Each node goes through the same sequence: evict its workloads, reboot it
through a privileged debug pod, wait for the node to report Ready, verify
host access, and return it to the schedulable pool. Nodes are processed in
batches; a batch must fully settle before the next one starts.

Examples:
  # Reboot all workers, two at a time, confirming each node
  noderoll reboot --role worker

  # Reboot a single node
  noderoll reboot --node worker-3

  # Unattended reboot of the infra nodes
  noderoll reboot --role infra --yes

  # See what would happen without touching the cluster
  noderoll reboot --role worker --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Reboot(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Role, "role", "", "Reboot every node carrying this role")
	cmd.Flags().StringVar(&opts.Node, "node", "", "Reboot a single node by name")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 0, "Nodes rebooted concurrently per batch (default: role-based)")
	cmd.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "Skip all operator prompts")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Log the sequence without touching the cluster")
	cmd.Flags().StringVar(&opts.Kubeconfig, "kubeconfig", "", "Path to the kubeconfig file")
	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Path to a noderoll YAML config file")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Namespace for privileged debug pods (default: noderoll-debug)")
	cmd.Flags().StringVar(&opts.ReportDir, "report-dir", "", "Directory for the run report (default: current directory)")
	cmd.Flags().BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")

	return cmd
}
