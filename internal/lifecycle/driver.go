package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"k8s.io/klog/v2"
	"k8s.io/utils/clock"

	"github.com/imamik/noderoll/internal/cluster"
)

// Phase names one step of the reboot sequence, used in failure reporting.
type Phase string

const (
	PhaseDrain        Phase = "Drain"
	PhaseReboot       Phase = "Reboot"
	PhaseWaitReady    Phase = "WaitReady"
	PhaseVerifyAccess Phase = "VerifyAccess"
	PhaseUncordon     Phase = "Uncordon"
)

const (
	// Delayed by a minute so the debug pod exits cleanly before the
	// host goes down.
	rebootCommand = "shutdown -r +1"
	probeCommand  = "uptime"
)

// Policy holds the retry and timeout budgets for each phase.
type Policy struct {
	DrainRetries   int
	DrainTimeout   time.Duration
	RetryInterval  time.Duration
	CommandTimeout time.Duration
	ReadyAttempts  int
	AccessAttempts int
}

// Result is the terminal outcome of one node's reboot sequence.
type Result struct {
	Node        string
	Role        cluster.Role
	State       State // Succeeded or Failed
	FailedPhase Phase
	Err         error
	// CompensationFailed is set when the uncordon issued after a failed
	// reboot also failed.
	CompensationFailed bool
	// Cordoned is set when the node was left unschedulable and needs
	// manual follow-up.
	Cordoned bool
}

// Driver executes the reboot sequence for one node at a time. It is the
// only component that issues cluster-mutating calls.
type Driver struct {
	client cluster.Client
	policy Policy
	clock  clock.Clock
	dryRun bool
}

// Option configures a Driver.
type Option func(*Driver)

// WithClock replaces the wall clock, for deterministic tests.
func WithClock(c clock.Clock) Option {
	return func(d *Driver) { d.clock = c }
}

// WithDryRun makes every phase a logged no-op. The phase sequence and
// logging shape match a live run; no cluster calls are made.
func WithDryRun(dryRun bool) Option {
	return func(d *Driver) { d.dryRun = dryRun }
}

// NewDriver creates a Driver.
func NewDriver(client cluster.Client, policy Policy, opts ...Option) *Driver {
	d := &Driver{
		client: client,
		policy: policy,
		clock:  clock.RealClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run walks the target through drain, reboot, wait-ready, verify-access,
// and uncordon, and returns its terminal outcome. Phase failures are
// handled here; they never propagate to the caller as errors.
func (d *Driver) Run(ctx context.Context, t *Target) Result {
	logger := klog.FromContext(ctx).WithValues("node", t.Name, "role", t.Role)
	res := Result{Node: t.Name, Role: t.Role}

	d.move(logger, t, StateDraining)
	short, err := d.drain(ctx, logger, t.Name, &res)
	if err != nil {
		return d.fail(logger, t, res, PhaseDrain, err)
	}
	if short {
		logger.Info("No evictable workloads, proceeding straight to reboot")
	} else {
		d.move(logger, t, StateDrained)
	}

	d.move(logger, t, StateRebooting)
	if err := d.reboot(ctx, logger, t.Name); err != nil {
		if cerr := d.compensate(ctx, logger, t.Name); cerr != nil {
			res.CompensationFailed = true
		} else {
			res.Cordoned = false
		}
		return d.fail(logger, t, res, PhaseReboot, err)
	}

	d.move(logger, t, StateAwaitingReady)
	if err := d.waitReady(ctx, logger, t.Name); err != nil {
		return d.fail(logger, t, res, PhaseWaitReady, err)
	}

	d.move(logger, t, StateAwaitingAccess)
	if err := d.verifyAccess(ctx, logger, t.Name); err != nil {
		return d.fail(logger, t, res, PhaseVerifyAccess, err)
	}

	d.move(logger, t, StateUncordoning)
	if err := d.uncordon(ctx, logger, t.Name); err != nil {
		return d.fail(logger, t, res, PhaseUncordon, err)
	}
	res.Cordoned = false

	d.move(logger, t, StateSucceeded)
	res.State = StateSucceeded
	logger.Info("Node rebooted and back in service")
	return res
}

// drain cordons the node and evicts its workloads, retrying transient
// eviction failures. Returns true when the node hosted no evictable
// workloads at all.
func (d *Driver) drain(ctx context.Context, logger logr.Logger, name string, res *Result) (bool, error) {
	if d.dryRun {
		logger.Info("(dry-run) would cordon and drain node")
		return false, nil
	}

	if err := d.client.Cordon(ctx, name); err != nil {
		return false, fmt.Errorf("cordon: %w", err)
	}
	res.Cordoned = true
	logger.Info("Node cordoned")

	var lastErr error
	for attempt := 1; attempt <= d.policy.DrainRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, d.policy.DrainTimeout)
		evicted, err := d.client.EvictWorkloads(attemptCtx, name, d.policy.DrainTimeout)
		cancel()

		if err == nil {
			if evicted == 0 && attempt == 1 {
				return true, nil
			}
			logger.Info("Node drained", "evicted", evicted, "attempt", attempt)
			return false, nil
		}

		lastErr = err
		logger.Info("Drain attempt failed", "attempt", attempt, "err", err.Error())
		if attempt < d.policy.DrainRetries {
			if perr := d.pause(ctx); perr != nil {
				return false, perr
			}
		}
	}
	return false, fmt.Errorf("drain failed after %d attempts: %w", d.policy.DrainRetries, lastErr)
}

// reboot issues the reboot command once. Re-issuing a reboot against a
// node already going down is ambiguous, so there is no retry.
func (d *Driver) reboot(ctx context.Context, logger logr.Logger, name string) error {
	if d.dryRun {
		logger.Info("(dry-run) would reboot node")
		return nil
	}

	if err := d.client.ExecPrivileged(ctx, name, rebootCommand, d.policy.CommandTimeout); err != nil {
		return fmt.Errorf("reboot command: %w", err)
	}
	logger.Info("Reboot issued")
	return nil
}

// compensate uncordons a node whose reboot never happened, so it is not
// stranded out of the schedulable pool.
func (d *Driver) compensate(ctx context.Context, logger logr.Logger, name string) error {
	logger.Info("Reboot failed, uncordoning node to restore it")
	if err := d.uncordon(ctx, logger, name); err != nil {
		cerr := &CompensationError{Node: name, Err: err}
		logger.Error(cerr, "Node left cordoned, manual follow-up required")
		return cerr
	}
	return nil
}

// waitReady polls the node's readiness condition after the reboot.
func (d *Driver) waitReady(ctx context.Context, logger logr.Logger, name string) error {
	if d.dryRun {
		logger.Info("(dry-run) would wait for node readiness")
		return nil
	}

	for attempt := 1; attempt <= d.policy.ReadyAttempts; attempt++ {
		info, err := d.client.GetNode(ctx, name)
		if err == nil && info.Ready {
			logger.Info("Node is ready", "attempts", attempt)
			return nil
		}
		if err != nil {
			logger.V(3).Info("Readiness check failed", "attempt", attempt, "err", err.Error())
		}
		if attempt < d.policy.ReadyAttempts {
			if perr := d.pause(ctx); perr != nil {
				return perr
			}
		}
	}
	return &PhaseTimeoutError{Phase: PhaseWaitReady, Node: name, Attempts: d.policy.ReadyAttempts}
}

// verifyAccess probes the node's host namespace until it answers.
func (d *Driver) verifyAccess(ctx context.Context, logger logr.Logger, name string) error {
	if d.dryRun {
		logger.Info("(dry-run) would verify host access")
		return nil
	}

	for attempt := 1; attempt <= d.policy.AccessAttempts; attempt++ {
		err := d.client.ExecPrivileged(ctx, name, probeCommand, d.policy.CommandTimeout)
		if err == nil {
			logger.Info("Host access verified", "attempts", attempt)
			return nil
		}
		logger.V(3).Info("Access probe failed", "attempt", attempt, "err", err.Error())
		if attempt < d.policy.AccessAttempts {
			if perr := d.pause(ctx); perr != nil {
				return perr
			}
		}
	}
	return &PhaseTimeoutError{Phase: PhaseVerifyAccess, Node: name, Attempts: d.policy.AccessAttempts}
}

// uncordon restores the node to the schedulable pool, with the same
// retry budget as drain.
func (d *Driver) uncordon(ctx context.Context, logger logr.Logger, name string) error {
	if d.dryRun {
		logger.Info("(dry-run) would uncordon node")
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= d.policy.DrainRetries; attempt++ {
		err := d.client.Uncordon(ctx, name, d.policy.CommandTimeout)
		if err == nil {
			logger.Info("Node uncordoned", "attempt", attempt)
			return nil
		}
		lastErr = err
		logger.Info("Uncordon attempt failed", "attempt", attempt, "err", err.Error())
		if attempt < d.policy.DrainRetries {
			if perr := d.pause(ctx); perr != nil {
				return perr
			}
		}
	}
	return fmt.Errorf("uncordon failed after %d attempts: %w", d.policy.DrainRetries, lastErr)
}

// pause sleeps for the retry interval, honoring cancellation. This is
// the only blocking point in the driver outside the client calls.
func (d *Driver) pause(ctx context.Context) error {
	if d.policy.RetryInterval <= 0 {
		return ctx.Err()
	}
	t := d.clock.NewTimer(d.policy.RetryInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C():
		return nil
	}
}

// move applies a transition the driver knows to be legal.
func (d *Driver) move(logger logr.Logger, t *Target, next State) {
	if err := t.Transition(next); err != nil {
		logger.Error(err, "Unexpected lifecycle transition")
		return
	}
	logger.V(2).Info("Lifecycle transition", "state", next)
}

// fail marks the target failed and fills in the failure detail.
func (d *Driver) fail(logger logr.Logger, t *Target, res Result, phase Phase, err error) Result {
	d.move(logger, t, StateFailed)
	res.State = StateFailed
	res.FailedPhase = phase
	res.Err = err
	logger.Info("Node lifecycle failed", "phase", phase, "err", err.Error())
	return res
}
