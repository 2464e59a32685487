// Package handlers implements the business logic for CLI commands.
//
// This package contains handler functions that are called by command
// definitions in the commands package. Handlers are framework-agnostic and
// can be tested independently of the CLI framework; collaborators are
// created through package-level factory variables so tests can inject
// fakes.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/imamik/noderoll/internal/cluster"
	"github.com/imamik/noderoll/internal/config"
	"github.com/imamik/noderoll/internal/gate"
	"github.com/imamik/noderoll/internal/lifecycle"
	"github.com/imamik/noderoll/internal/report"
	"github.com/imamik/noderoll/internal/resolver"
	"github.com/imamik/noderoll/internal/scheduler"
)

// RebootOptions carries the reboot command's flag values.
type RebootOptions struct {
	Role       string
	Node       string
	Parallel   int
	Yes        bool
	DryRun     bool
	Kubeconfig string
	ConfigPath string
	Namespace  string
	ReportDir  string
	NoColor    bool
}

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// newClusterClient creates the Kubernetes-backed cluster client.
	newClusterClient = func(kubeconfigPath, debugNamespace string) (cluster.Client, error) {
		return cluster.NewKubeClient(kubeconfigPath, debugNamespace)
	}

	// loadConfig loads the run configuration (for testing injection).
	loadConfig = config.Load

	// newGate picks the operator gate. Prompts only make sense on a
	// terminal; unattended runs get automatic approval.
	newGate = func(autoApprove bool) gate.Gate {
		if autoApprove || !isatty.IsTerminal(os.Stdin.Fd()) {
			return gate.AutoApprove{}
		}
		return gate.NewPrompt()
	}

	// writeReport persists the run report (for testing injection).
	writeReport = report.Write

	// timeNow returns the current time (for testing injection).
	timeNow = time.Now

	// stdout is where handlers print their output (for testing injection).
	stdout io.Writer = os.Stdout
)

// Reboot drains, reboots, and restores the selected nodes batch by batch.
//
// The workflow:
//  1. Validates the target selection (exactly one of role or node name)
//  2. Loads configuration and connects to the cluster
//  3. Resolves the target nodes and the effective batch size
//  4. Runs each batch through the node lifecycle, gated by the operator
//  5. Writes a run report and prints the summary
//
// A report is written even when the run is aborted or interrupted, so a
// partially completed run always leaves an audit trail. Validation and
// resolution failures abort before anything happens and leave no report.
func Reboot(ctx context.Context, opts RebootOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.Namespace != "" {
		cfg.DebugNamespace = opts.Namespace
	}

	client, err := newClusterClient(opts.Kubeconfig, cfg.DebugNamespace)
	if err != nil {
		return err
	}

	res, err := resolveTargets(ctx, client, cfg, opts)
	if err != nil {
		return err
	}

	driver := lifecycle.NewDriver(client, lifecycle.Policy{
		DrainRetries:   cfg.DrainRetryCount,
		DrainTimeout:   cfg.DrainTimeout,
		RetryInterval:  cfg.RetryInterval,
		CommandTimeout: cfg.CommandTimeout,
		ReadyAttempts:  cfg.ReadyAttempts,
		AccessAttempts: cfg.AccessAttempts,
	}, lifecycle.WithDryRun(opts.DryRun))

	sched := scheduler.New(driver, newGate(opts.Yes), res.Parallelism)

	started := timeNow()
	sum, runErr := sched.Run(ctx, res.Targets)
	finished := timeNow()

	meta := report.Metadata{
		Target:     opts.targetLabel(),
		Parallel:   res.Parallelism,
		DryRun:     opts.DryRun,
		Aborted:    runErr != nil,
		StartedAt:  started,
		FinishedAt: finished,
	}

	reportDir := cfg.ReportDir
	if opts.ReportDir != "" {
		reportDir = opts.ReportDir
	}
	reportPath, werr := writeReport(reportDir, meta, sum)
	if werr != nil {
		fmt.Fprintf(stdout, "Warning: failed to write report: %v\n", werr)
	}

	fmt.Fprint(stdout, renderRunSummary(meta, sum, reportPath, opts.NoColor))

	if errors.Is(runErr, scheduler.ErrAborted) {
		return scheduler.ErrAborted
	}
	return runErr
}

// validate rejects flag combinations before any cluster call is made.
func (o RebootOptions) validate() error {
	if o.Role == "" && o.Node == "" {
		return &ValidationError{Msg: "one of --role or --node is required"}
	}
	if o.Role != "" && o.Node != "" {
		return &ValidationError{Msg: "--role and --node are mutually exclusive"}
	}
	if o.Parallel < 0 {
		return &ValidationError{Msg: "--parallel must not be negative"}
	}
	return nil
}

// targetLabel names the run's target for reports and summaries.
func (o RebootOptions) targetLabel() string {
	if o.Node != "" {
		return "node " + o.Node
	}
	return "role " + o.Role
}

// resolveTargets turns the target selection into concrete nodes and an
// effective batch size. A single named node always runs serially.
func resolveTargets(ctx context.Context, client cluster.Client, cfg *config.Config, opts RebootOptions) (*resolver.Resolution, error) {
	r := resolver.New(client, cfg.ParallelismFor)
	if opts.Node != "" {
		return r.ByName(ctx, opts.Node)
	}
	return r.ByRole(ctx, cluster.Role(opts.Role), opts.Parallel)
}
