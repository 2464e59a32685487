package handlers

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/imamik/noderoll/internal/cluster"
	"github.com/imamik/noderoll/internal/report"
	"github.com/imamik/noderoll/internal/scheduler"
)

var (
	rollColorGreen = lipgloss.Color("#22c55e")
	rollColorRed   = lipgloss.Color("#ef4444")
	rollColorBlue  = lipgloss.Color("#3b82f6")
	rollColorDim   = lipgloss.Color("#6b7280")
	rollColorWhite = lipgloss.Color("#f9fafb")
)

// rollStyles groups the lipgloss styles for handler output. The zero
// value renders plain text, which is what --no-color wants.
type rollStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	dim     lipgloss.Style
	good    lipgloss.Style
	bad     lipgloss.Style
}

func newRollStyles(noColor bool) rollStyles {
	if noColor {
		plain := lipgloss.NewStyle()
		return rollStyles{title: plain, section: plain, dim: plain, good: plain, bad: plain}
	}
	return rollStyles{
		title:   lipgloss.NewStyle().Bold(true).Foreground(rollColorWhite),
		section: lipgloss.NewStyle().Bold(true).Foreground(rollColorBlue),
		dim:     lipgloss.NewStyle().Foreground(rollColorDim),
		good:    lipgloss.NewStyle().Foreground(rollColorGreen),
		bad:     lipgloss.NewStyle().Foreground(rollColorRed),
	}
}

// renderRunSummary produces a lipgloss-styled summary of a finished run.
func renderRunSummary(meta report.Metadata, sum scheduler.Summary, reportPath string, noColor bool) string {
	st := newRollStyles(noColor)
	var b strings.Builder

	b.WriteString("\n")
	title := fmt.Sprintf("  noderoll reboot: %s", meta.Target)
	if meta.DryRun {
		title += " (dry-run)"
	}
	b.WriteString(st.title.Render(title))
	b.WriteString("\n")
	b.WriteString(st.dim.Render("  " + strings.Repeat("═", 30)))
	b.WriteString("\n\n")

	b.WriteString(st.section.Render("  Nodes"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "    Total:     %d\n", sum.Total)
	fmt.Fprintf(&b, "    Succeeded: %d\n", sum.Succeeded)
	fmt.Fprintf(&b, "    Failed:    %d\n", sum.Failed)
	fmt.Fprintf(&b, "    Skipped:   %d\n", sum.Skipped)

	rate := fmt.Sprintf("    Rate:      %d%%", sum.SuccessRate())
	if sum.Failed == 0 {
		b.WriteString(st.good.Render(rate))
	} else {
		b.WriteString(st.bad.Render(rate))
	}
	b.WriteString("\n")

	if len(sum.FailedNodes) > 0 {
		b.WriteString("\n")
		b.WriteString(st.bad.Render("  Failed: " + strings.Join(sum.FailedNodes, ", ")))
		b.WriteString("\n")
	}
	if len(sum.SkippedNodes) > 0 {
		b.WriteString(st.dim.Render("  Skipped: " + strings.Join(sum.SkippedNodes, ", ")))
		b.WriteString("\n")
	}
	if len(sum.CordonedNodes) > 0 {
		b.WriteString(st.bad.Render("  Left cordoned: " + strings.Join(sum.CordonedNodes, ", ")))
		b.WriteString("\n")
	}

	if meta.Aborted {
		b.WriteString("\n")
		b.WriteString(st.bad.Render("  Run did not complete."))
		b.WriteString("\n")
	}

	if reportPath != "" {
		b.WriteString("\n")
		b.WriteString(st.dim.Render("  Report: " + reportPath))
		b.WriteString("\n")
	}

	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func boolStyle(st rollStyles, v bool) lipgloss.Style {
	if v {
		return st.good
	}
	return st.bad
}

// renderNodeList produces a table of nodes with reboot-relevant state.
func renderNodeList(nodes []cluster.NodeInfo, noColor bool) string {
	st := newRollStyles(noColor)
	var b strings.Builder

	b.WriteString(st.dim.Render(fmt.Sprintf("  %-28s %-8s %-8s %s", "Node", "Role", "Ready", "Schedulable")))
	b.WriteString("\n")

	for _, n := range nodes {
		// Pad before styling: ANSI escape codes would break %-8s widths.
		ready := fmt.Sprintf("%-8s", yesNo(n.Ready))
		schedulable := yesNo(n.Schedulable)
		fmt.Fprintf(&b, "  %-28s %-8s %s %s\n",
			n.Name, n.Role,
			boolStyle(st, n.Ready).Render(ready),
			boolStyle(st, n.Schedulable).Render(schedulable))
	}

	return b.String()
}
