// Package commands defines the CLI command structure and flag bindings.
//
// This package contains cobra command definitions that handle argument parsing,
// flag binding, and validation. Command execution is delegated to handler
// functions in the handlers package.
package commands

import (
	goflag "flag"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// Root returns the root command for the noderoll CLI.
func Root() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "noderoll",
		Short: "Rolling reboots of Kubernetes cluster nodes",
	}

	// Expose klog's verbosity and log file flags on every command.
	fs := goflag.NewFlagSet("klog", goflag.ContinueOnError)
	klog.InitFlags(fs)
	cmd.PersistentFlags().AddGoFlag(fs.Lookup("v"))
	cmd.PersistentFlags().AddGoFlag(fs.Lookup("log_file"))

	cmd.AddCommand(Reboot())
	cmd.AddCommand(List())
	cmd.AddCommand(Version())
	cmd.AddCommand(Completion())

	return cmd
}
