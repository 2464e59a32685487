// Package report writes the plain-text audit artifact produced at the
// end of a run. The file is for humans; nothing reads it back.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/imamik/noderoll/internal/scheduler"
)

// Metadata describes the invocation a report accounts for.
type Metadata struct {
	Target     string // "role worker" or "node worker-3"
	Parallel   int
	DryRun     bool
	Aborted    bool
	StartedAt  time.Time
	FinishedAt time.Time
}

// Write renders the summary into a timestamped file under dir and
// returns the file's path.
func Write(dir string, meta Metadata, sum scheduler.Summary) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}

	name := fmt.Sprintf("noderoll-report-%s.txt", meta.FinishedAt.Format("20060102-150405"))
	path := filepath.Join(dir, name)

	var b strings.Builder
	fmt.Fprintf(&b, "noderoll run report\n")
	fmt.Fprintf(&b, "===================\n\n")
	fmt.Fprintf(&b, "Target:      %s\n", meta.Target)
	fmt.Fprintf(&b, "Parallelism: %d\n", meta.Parallel)
	fmt.Fprintf(&b, "Dry run:     %t\n", meta.DryRun)
	fmt.Fprintf(&b, "Started:     %s\n", meta.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "Finished:    %s\n", meta.FinishedAt.Format(time.RFC3339))
	if meta.Aborted {
		fmt.Fprintf(&b, "Result:      ABORTED before all nodes were attempted\n")
	}
	fmt.Fprintf(&b, "\n")
	fmt.Fprintf(&b, "Total:     %d\n", sum.Total)
	fmt.Fprintf(&b, "Succeeded: %d\n", sum.Succeeded)
	fmt.Fprintf(&b, "Failed:    %d\n", sum.Failed)
	fmt.Fprintf(&b, "Skipped:   %d\n", sum.Skipped)
	fmt.Fprintf(&b, "Success rate: %d%%\n", sum.SuccessRate())

	if len(sum.FailedNodes) > 0 {
		fmt.Fprintf(&b, "\nFailed nodes:\n")
		for _, node := range sum.FailedNodes {
			fmt.Fprintf(&b, "  - %s\n", node)
		}
	}
	if len(sum.SkippedNodes) > 0 {
		fmt.Fprintf(&b, "\nSkipped nodes:\n")
		for _, node := range sum.SkippedNodes {
			fmt.Fprintf(&b, "  - %s\n", node)
		}
	}
	if len(sum.CordonedNodes) > 0 {
		fmt.Fprintf(&b, "\nLeft cordoned, manual follow-up required:\n")
		for _, node := range sum.CordonedNodes {
			fmt.Fprintf(&b, "  - %s\n", node)
		}
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o640); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
