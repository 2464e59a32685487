package lifecycle

import "fmt"

// PhaseTimeoutError reports that a bounded polling phase exhausted its
// attempt budget without the node reaching the expected condition.
type PhaseTimeoutError struct {
	Phase    Phase
	Node     string
	Attempts int
}

func (e *PhaseTimeoutError) Error() string {
	return fmt.Sprintf("%s on node %s timed out after %d attempts", e.Phase, e.Node, e.Attempts)
}

// CompensationError reports that the uncordon issued after a failed
// reboot itself failed. The node is left cordoned and needs manual
// remediation.
type CompensationError struct {
	Node string
	Err  error
}

func (e *CompensationError) Error() string {
	return fmt.Sprintf("compensating uncordon of node %s failed: %v", e.Node, e.Err)
}

func (e *CompensationError) Unwrap() error {
	return e.Err
}
