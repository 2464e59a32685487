// Package lifecycle runs the per-node reboot sequence: drain, reboot,
// wait for readiness, verify host access, uncordon.
package lifecycle

import (
	"fmt"
	"sync"

	"github.com/imamik/noderoll/internal/cluster"
)

// State is a node's position in the reboot sequence.
type State string

const (
	StatePending        State = "Pending"
	StateDraining       State = "Draining"
	StateDrained        State = "Drained"
	StateRebooting      State = "Rebooting"
	StateAwaitingReady  State = "AwaitingReady"
	StateAwaitingAccess State = "AwaitingAccess"
	StateUncordoning    State = "Uncordoning"
	StateSucceeded      State = "Succeeded"
	StateFailed         State = "Failed"
	StateSkipped        State = "Skipped"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// transitions lists the legal forward moves. Draining → Rebooting covers
// the short-circuit for nodes hosting no evictable workloads; every
// non-terminal state may move to Failed.
var transitions = map[State][]State{
	StatePending:        {StateDraining, StateSkipped, StateFailed},
	StateDraining:       {StateDrained, StateRebooting, StateFailed},
	StateDrained:        {StateRebooting, StateFailed},
	StateRebooting:      {StateAwaitingReady, StateFailed},
	StateAwaitingReady:  {StateAwaitingAccess, StateFailed},
	StateAwaitingAccess: {StateUncordoning, StateFailed},
	StateUncordoning:    {StateSucceeded, StateFailed},
}

// CanTransition reports whether moving from s to next is legal.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Target is one node moving through the reboot sequence. Identity is
// immutable; the state field is owned by the driver running the node,
// with reads allowed from other goroutines.
type Target struct {
	Name string
	Role cluster.Role

	mu    sync.Mutex
	state State
}

// NewTarget creates a pending target.
func NewTarget(name string, role cluster.Role) *Target {
	return &Target{Name: name, Role: role, state: StatePending}
}

// State returns the target's current lifecycle state.
func (t *Target) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Transition moves the target to next, rejecting illegal moves.
func (t *Target) Transition(next State) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.state.CanTransition(next) {
		return fmt.Errorf("illegal transition %s -> %s for node %s", t.state, next, t.Name)
	}
	t.state = next
	return nil
}
