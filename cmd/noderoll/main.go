// Package main is the entry point for the noderoll CLI.
//
// noderoll performs controlled, auditable rolling reboots of Kubernetes
// cluster nodes: it drains a node, reboots it through a privileged debug
// pod, waits for it to rejoin the cluster healthy, and restores it to
// the schedulable pool, batch by batch.
//
// Commands: reboot, list, version, completion.
//
// For detailed usage information, run:
//
//	noderoll --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/noderoll/cmd/noderoll/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
