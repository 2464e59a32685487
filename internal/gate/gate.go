// Package gate abstracts the operator decisions taken during a run, so
// batch logic can be tested without simulating terminal input.
package gate

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// Gate answers the two questions a run asks its operator: whether to
// process a given node, and whether to carry on after failures.
type Gate interface {
	// ConfirmNode asks whether the named node should be processed.
	// Declining skips the node, not the run.
	ConfirmNode(node string) (bool, error)

	// ConfirmContinue asks, after the listed nodes failed their
	// post-reboot checks, whether the remaining batches should proceed.
	ConfirmContinue(failed []string) (bool, error)
}

// AutoApprove is the non-interactive policy: process every node and keep
// going after recoverable failures.
type AutoApprove struct{}

func (AutoApprove) ConfirmNode(string) (bool, error)       { return true, nil }
func (AutoApprove) ConfirmContinue([]string) (bool, error) { return true, nil }

// Prompt asks the operator on the terminal.
type Prompt struct{}

// NewPrompt creates an interactive gate.
func NewPrompt() *Prompt {
	return &Prompt{}
}

func (p *Prompt) ConfirmNode(node string) (bool, error) {
	return p.confirm(
		fmt.Sprintf("Reboot node %s?", node),
		"Declining skips this node and moves on.",
	)
}

func (p *Prompt) ConfirmContinue(failed []string) (bool, error) {
	return p.confirm(
		fmt.Sprintf("Nodes failed post-reboot checks: %s. Continue with the remaining batches?", strings.Join(failed, ", ")),
		"Declining aborts the run and finalizes the report.",
	)
}

func (p *Prompt) confirm(title, description string) (bool, error) {
	confirmed := true
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(title).
				Description(description).
				Affirmative("Yes").
				Negative("No").
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	return confirmed, nil
}
