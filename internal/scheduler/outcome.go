package scheduler

import (
	"sync"

	"github.com/imamik/noderoll/internal/lifecycle"
)

// Outcome tallies terminal lifecycle states as they arrive. It is the
// only state shared between concurrently running lifecycles, so all
// writes go through its mutex.
type Outcome struct {
	mu            sync.Mutex
	total         int
	succeeded     int
	failed        int
	skipped       int
	failedNodes   []string
	skippedNodes  []string
	cordonedNodes []string
}

// NewOutcome creates an empty accumulator.
func NewOutcome() *Outcome {
	return &Outcome{}
}

// Record tallies one node's terminal result.
func (o *Outcome) Record(res lifecycle.Result) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.total++
	switch res.State {
	case lifecycle.StateSucceeded:
		o.succeeded++
	default:
		o.failed++
		o.failedNodes = append(o.failedNodes, res.Node)
		if res.Cordoned {
			o.cordonedNodes = append(o.cordonedNodes, res.Node)
		}
	}
}

// RecordSkip tallies a node the operator declined.
func (o *Outcome) RecordSkip(node string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.total++
	o.skipped++
	o.skippedNodes = append(o.skippedNodes, node)
}

// Summary is a read-only snapshot of the accumulated counts.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Skipped   int
	// FailedNodes and SkippedNodes identify the nodes behind the counts.
	FailedNodes  []string
	SkippedNodes []string
	// CordonedNodes were left unschedulable and need manual follow-up.
	CordonedNodes []string
}

// Summarize returns a snapshot of the counts so far.
func (o *Outcome) Summarize() Summary {
	o.mu.Lock()
	defer o.mu.Unlock()

	return Summary{
		Total:         o.total,
		Succeeded:     o.succeeded,
		Failed:        o.failed,
		Skipped:       o.skipped,
		FailedNodes:   append([]string(nil), o.failedNodes...),
		SkippedNodes:  append([]string(nil), o.skippedNodes...),
		CordonedNodes: append([]string(nil), o.cordonedNodes...),
	}
}

// SuccessRate is succeeded as a percentage of attempted nodes. Skipped
// nodes do not count toward the denominator; a run where everything was
// skipped rates 0, not an error.
func (s Summary) SuccessRate() int {
	attempted := s.Total - s.Skipped
	if attempted == 0 {
		return 0
	}
	return s.Succeeded * 100 / attempted
}
