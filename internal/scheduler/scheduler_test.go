package scheduler

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/noderoll/internal/cluster"
	"github.com/imamik/noderoll/internal/gate"
	"github.com/imamik/noderoll/internal/lifecycle"
)

// fakeRunner records start/end events per node and returns canned results.
type fakeRunner struct {
	mu      sync.Mutex
	events  []string
	results map[string]lifecycle.Result

	// block, when non-nil, holds every Run call until it is closed.
	block   chan struct{}
	started chan string
}

func (r *fakeRunner) Run(_ context.Context, t *lifecycle.Target) lifecycle.Result {
	r.mu.Lock()
	r.events = append(r.events, "start:"+t.Name)
	r.mu.Unlock()

	if r.started != nil {
		r.started <- t.Name
	}
	if r.block != nil {
		<-r.block
	}

	res, ok := r.results[t.Name]
	if !ok {
		res = lifecycle.Result{Node: t.Name, State: lifecycle.StateSucceeded}
	}

	r.mu.Lock()
	r.events = append(r.events, "end:"+t.Name)
	r.mu.Unlock()
	return res
}

// Events returns the recorded start/end markers in order.
func (r *fakeRunner) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

// fakeGate scripts operator answers.
type fakeGate struct {
	declineNodes    map[string]bool
	continueAnswer  bool
	continuePrompts [][]string
}

func newFakeGate() *fakeGate {
	return &fakeGate{continueAnswer: true}
}

func (g *fakeGate) ConfirmNode(node string) (bool, error) {
	return !g.declineNodes[node], nil
}

func (g *fakeGate) ConfirmContinue(failed []string) (bool, error) {
	g.continuePrompts = append(g.continuePrompts, failed)
	return g.continueAnswer, nil
}

func targets(names ...string) []*lifecycle.Target {
	ts := make([]*lifecycle.Target, 0, len(names))
	for _, name := range names {
		ts = append(ts, lifecycle.NewTarget(name, cluster.RoleWorker))
	}
	return ts
}

// verifyWindows checks that for every window boundary, all nodes of the
// earlier window finished before any node of the later window started.
func verifyWindows(t *testing.T, events []string, names []string, parallel int) {
	t.Helper()
	endIndex := map[string]int{}
	startIndex := map[string]int{}
	for i, ev := range events {
		node := ev[strings.Index(ev, ":")+1:]
		if strings.HasPrefix(ev, "start:") {
			startIndex[node] = i
		} else {
			endIndex[node] = i
		}
	}
	for boundary := parallel; boundary < len(names); boundary += parallel {
		for _, earlier := range names[boundary-parallel : boundary] {
			for _, later := range names[boundary:min(boundary+parallel, len(names))] {
				assert.Less(t, endIndex[earlier], startIndex[later],
					"%s must settle before %s starts", earlier, later)
			}
		}
	}
}

func TestRun_WindowsSettleBeforeAdvancing(t *testing.T) {
	names := []string{"w0", "w1", "w2", "w3"}
	runner := &fakeRunner{}
	sched := New(runner, gate.AutoApprove{}, 2)

	sum, err := sched.Run(context.Background(), targets(names...))
	require.NoError(t, err)

	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 4, sum.Succeeded)
	verifyWindows(t, runner.Events(), names, 2)
}

func TestRun_OddFinalWindow(t *testing.T) {
	names := []string{"w0", "w1", "w2", "w3", "w4"}
	runner := &fakeRunner{}
	sched := New(runner, gate.AutoApprove{}, 2)

	sum, err := sched.Run(context.Background(), targets(names...))
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Total)
	verifyWindows(t, runner.Events(), names, 2)
}

func TestRun_ParallelismExceedsNodeCount(t *testing.T) {
	// One window holding everything; nothing special happens.
	runner := &fakeRunner{}
	sched := New(runner, gate.AutoApprove{}, 5)

	sum, err := sched.Run(context.Background(), targets("w0", "w1"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Succeeded)
}

func TestRun_WindowRunsConcurrently(t *testing.T) {
	runner := &fakeRunner{
		block:   make(chan struct{}),
		started: make(chan string, 2),
	}
	sched := New(runner, gate.AutoApprove{}, 2)

	done := make(chan Summary, 1)
	go func() {
		sum, _ := sched.Run(context.Background(), targets("w0", "w1"))
		done <- sum
	}()

	// Both lifecycles of the window must be in flight at the same time.
	for i := 0; i < 2; i++ {
		select {
		case <-runner.started:
		case <-time.After(5 * time.Second):
			t.Fatal("window did not launch both lifecycles concurrently")
		}
	}
	close(runner.block)

	sum := <-done
	assert.Equal(t, 2, sum.Succeeded)
}

func TestRun_SkippedNodeExcludedFromWindow(t *testing.T) {
	runner := &fakeRunner{}
	g := newFakeGate()
	g.declineNodes = map[string]bool{"w1": true}
	sched := New(runner, g, 2)

	ts := targets("w0", "w1", "w2")
	sum, err := sched.Run(context.Background(), ts)
	require.NoError(t, err)

	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 2, sum.Succeeded)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, []string{"w1"}, sum.SkippedNodes)
	assert.Equal(t, lifecycle.StateSkipped, ts[1].State())
	assert.NotContains(t, runner.Events(), "start:w1")
}

func TestRun_ReadyFailurePromptsBeforeNextWindow(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w0": {Node: "w0", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseWaitReady},
		},
	}
	g := newFakeGate()
	sched := New(runner, g, 1)

	sum, err := sched.Run(context.Background(), targets("w0", "w1"))
	require.NoError(t, err)

	require.Len(t, g.continuePrompts, 1)
	assert.Equal(t, []string{"w0"}, g.continuePrompts[0])
	// Approved, so the run finished.
	assert.Equal(t, 2, sum.Total)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Succeeded)
}

func TestRun_OperatorDeclinesContinuation(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w0": {Node: "w0", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseVerifyAccess},
		},
	}
	g := newFakeGate()
	g.continueAnswer = false
	sched := New(runner, g, 1)

	sum, err := sched.Run(context.Background(), targets("w0", "w1", "w2"))
	require.ErrorIs(t, err, ErrAborted)

	// Unattempted nodes are excluded from the totals.
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.Failed)
	assert.NotContains(t, runner.Events(), "start:w1")
	assert.NotContains(t, runner.Events(), "start:w2")
}

func TestRun_AutoApproveNeverPrompts(t *testing.T) {
	// Scenario: ready-check failure in skip-prompts mode; the next window
	// proceeds automatically.
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w0": {Node: "w0", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseWaitReady},
		},
	}
	sched := New(runner, gate.AutoApprove{}, 1)

	sum, err := sched.Run(context.Background(), targets("w0", "w1"))
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Total)
	assert.Contains(t, runner.Events(), "start:w1")
}

func TestRun_DrainFailureDoesNotPrompt(t *testing.T) {
	// Only WaitReady and VerifyAccess failures escalate to the operator.
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w0": {Node: "w0", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseDrain},
		},
	}
	g := newFakeGate()
	sched := New(runner, g, 1)

	_, err := sched.Run(context.Background(), targets("w0", "w1"))
	require.NoError(t, err)
	assert.Empty(t, g.continuePrompts)
}

func TestRun_NoPromptAfterFinalWindow(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w1": {Node: "w1", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseWaitReady},
		},
	}
	g := newFakeGate()
	sched := New(runner, g, 2)

	_, err := sched.Run(context.Background(), targets("w0", "w1"))
	require.NoError(t, err)
	assert.Empty(t, g.continuePrompts)
}

func TestRun_InterruptSkipsRemainingWindows(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w0": {Node: "w0", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseDrain,
				Err: context.Canceled},
		},
	}
	g := newFakeGate()
	sched := New(&cancellingRunner{inner: runner, cancel: cancel}, g, 1)

	sum, err := sched.Run(ctx, targets("w0", "w1", "w2"))
	require.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 1, sum.Failed)
	assert.NotContains(t, runner.Events(), "start:w1")
}

// cancellingRunner cancels the run context during its first lifecycle,
// simulating an operator interrupt landing mid-window.
type cancellingRunner struct {
	inner  *fakeRunner
	cancel context.CancelFunc
	once   sync.Once
}

func (r *cancellingRunner) Run(ctx context.Context, t *lifecycle.Target) lifecycle.Result {
	r.once.Do(r.cancel)
	return r.inner.Run(ctx, t)
}

func TestRun_EmptyTargetList(t *testing.T) {
	sched := New(&fakeRunner{}, gate.AutoApprove{}, 2)

	sum, err := sched.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Total)
}

func TestRun_TotalsBalanceUnderMixedOutcomes(t *testing.T) {
	runner := &fakeRunner{
		results: map[string]lifecycle.Result{
			"w1": {Node: "w1", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseUncordon},
			"w3": {Node: "w3", State: lifecycle.StateFailed, FailedPhase: lifecycle.PhaseDrain},
		},
	}
	g := newFakeGate()
	g.declineNodes = map[string]bool{"w4": true}
	sched := New(runner, g, 3)

	sum, err := sched.Run(context.Background(), targets("w0", "w1", "w2", "w3", "w4", "w5"))
	require.NoError(t, err)

	assert.Equal(t, 6, sum.Total)
	assert.Equal(t, sum.Total, sum.Succeeded+sum.Failed+sum.Skipped)
	assert.Equal(t, 2, sum.Failed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 3, sum.Succeeded)
	assert.ElementsMatch(t, []string{"w1", "w3"}, sum.FailedNodes)
}
