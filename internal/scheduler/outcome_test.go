package scheduler

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/imamik/noderoll/internal/lifecycle"
)

func TestOutcome_Record(t *testing.T) {
	out := NewOutcome()

	out.Record(lifecycle.Result{Node: "a", State: lifecycle.StateSucceeded})
	out.Record(lifecycle.Result{
		Node:        "b",
		State:       lifecycle.StateFailed,
		FailedPhase: lifecycle.PhaseUncordon,
		Err:         errors.New("api down"),
		Cordoned:    true,
	})
	out.RecordSkip("c")

	sum := out.Summarize()
	assert.Equal(t, 3, sum.Total)
	assert.Equal(t, 1, sum.Succeeded)
	assert.Equal(t, 1, sum.Failed)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, []string{"b"}, sum.FailedNodes)
	assert.Equal(t, []string{"c"}, sum.SkippedNodes)
	assert.Equal(t, []string{"b"}, sum.CordonedNodes)
}

func TestOutcome_CountsAlwaysBalance(t *testing.T) {
	out := NewOutcome()

	out.Record(lifecycle.Result{Node: "a", State: lifecycle.StateSucceeded})
	out.RecordSkip("b")
	out.Record(lifecycle.Result{Node: "c", State: lifecycle.StateFailed})

	sum := out.Summarize()
	assert.Equal(t, sum.Total, sum.Succeeded+sum.Failed+sum.Skipped)
}

func TestOutcome_ConcurrentRecording(t *testing.T) {
	out := NewOutcome()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				out.Record(lifecycle.Result{Node: "n", State: lifecycle.StateSucceeded})
			} else {
				out.Record(lifecycle.Result{Node: "n", State: lifecycle.StateFailed})
			}
		}(i)
	}
	wg.Wait()

	sum := out.Summarize()
	assert.Equal(t, 100, sum.Total)
	assert.Equal(t, 50, sum.Succeeded)
	assert.Equal(t, 50, sum.Failed)
}

func TestSummary_SuccessRate(t *testing.T) {
	tests := []struct {
		name    string
		summary Summary
		want    int
	}{
		{"all succeeded", Summary{Total: 4, Succeeded: 4}, 100},
		{"half succeeded", Summary{Total: 4, Succeeded: 2, Failed: 2}, 50},
		{"skipped excluded from denominator", Summary{Total: 4, Succeeded: 2, Skipped: 2}, 100},
		{"two thirds", Summary{Total: 3, Succeeded: 2, Failed: 1}, 66},
		{"everything skipped", Summary{Total: 3, Skipped: 3}, 0},
		{"empty run", Summary{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.summary.SuccessRate())
		})
	}
}
