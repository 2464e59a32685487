// Package scheduler runs node lifecycles in fixed-size batches and keeps
// the running account of outcomes.
package scheduler

import (
	"context"
	"errors"

	"k8s.io/klog/v2"

	"github.com/imamik/noderoll/internal/gate"
	"github.com/imamik/noderoll/internal/lifecycle"
)

// ErrAborted is returned when the operator declines to continue after
// post-reboot check failures.
var ErrAborted = errors.New("run aborted by operator")

// Runner executes one node's lifecycle to a terminal state.
type Runner interface {
	Run(ctx context.Context, t *lifecycle.Target) lifecycle.Result
}

// Scheduler partitions the node list into windows of parallel size and
// fully settles each window before starting the next. All control flow
// outside the lifecycles themselves is single-threaded: window
// sequencing, operator prompts, and continuation decisions happen here,
// never inside a concurrent lifecycle.
type Scheduler struct {
	runner   Runner
	gate     gate.Gate
	parallel int
}

// New creates a Scheduler. parallel must be at least 1; callers validate
// operator input before getting here.
func New(runner Runner, g gate.Gate, parallel int) *Scheduler {
	return &Scheduler{
		runner:   runner,
		gate:     g,
		parallel: parallel,
	}
}

// Run processes targets window by window and returns the final account.
// A non-nil error means the run stopped early: ErrAborted when the
// operator declined to continue, or the context error on interruption.
// Nodes never attempted are excluded from the totals either way.
func (s *Scheduler) Run(ctx context.Context, targets []*lifecycle.Target) (Summary, error) {
	logger := klog.FromContext(ctx)
	out := NewOutcome()

	batch := 0
	for start := 0; start < len(targets); start += s.parallel {
		if err := ctx.Err(); err != nil {
			logger.Info("Run interrupted, skipping remaining batches", "remaining", len(targets)-start)
			return out.Summarize(), err
		}

		end := min(start+s.parallel, len(targets))
		window := targets[start:end]
		batch++
		logger.Info("Starting batch", "batch", batch, "nodes", len(window))

		// Confirmations are sequential; declining skips just that node.
		var confirmed []*lifecycle.Target
		for _, t := range window {
			ok, err := s.gate.ConfirmNode(t.Name)
			if err != nil {
				return out.Summarize(), err
			}
			if !ok {
				_ = t.Transition(lifecycle.StateSkipped)
				out.RecordSkip(t.Name)
				logger.Info("Node skipped by operator", "node", t.Name)
				continue
			}
			confirmed = append(confirmed, t)
		}

		results := s.runWindow(ctx, confirmed, out)

		// A failed post-reboot check gates the rest of the run, not the
		// window it happened in.
		var failedChecks []string
		for _, res := range results {
			if res.State != lifecycle.StateFailed {
				continue
			}
			if res.FailedPhase == lifecycle.PhaseWaitReady || res.FailedPhase == lifecycle.PhaseVerifyAccess {
				failedChecks = append(failedChecks, res.Node)
			}
		}
		if len(failedChecks) > 0 && end < len(targets) {
			ok, err := s.gate.ConfirmContinue(failedChecks)
			if err != nil {
				return out.Summarize(), err
			}
			if !ok {
				logger.Info("Operator declined to continue", "failed", failedChecks)
				return out.Summarize(), ErrAborted
			}
		}
	}

	return out.Summarize(), ctx.Err()
}

// runWindow launches every confirmed node in the window concurrently and
// blocks until each reaches a terminal state.
func (s *Scheduler) runWindow(ctx context.Context, window []*lifecycle.Target, out *Outcome) []lifecycle.Result {
	if len(window) == 0 {
		return nil
	}

	resultChan := make(chan lifecycle.Result, len(window))
	for _, t := range window {
		go func() {
			res := s.runner.Run(ctx, t)
			out.Record(res)
			resultChan <- res
		}()
	}

	results := make([]lifecycle.Result, 0, len(window))
	for range len(window) {
		results = append(results, <-resultChan)
	}
	return results
}
