package loop

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// writef writes formatted output, ignoring errors.
// Use for non-critical output where write failures are acceptable.
func writef(w io.Writer, format string, args ...interface{}) {
	_, _ = fmt.Fprintf(w, format, args...)
}

// displayTask renders a task ID for logs, with a placeholder for the empty
// pre-start state.
func displayTask(taskID string) string {
	if taskID == "" {
		return "(bootstrap)"
	}
	return taskID
}

// formatIterationLog formats a per-iteration log line.
func formatIterationLog(iter, maxIter int, taskID, repo string, kind FailureKind, detail string, duration time.Duration) string {
	status := kind.String()
	if kind != FailNone && detail != "" {
		status = fmt.Sprintf("%s: %s", status, detail)
	}
	return fmt.Sprintf("[%d/%d] %s @%s → %s (%s)",
		iter, maxIter, displayTask(taskID), repo, status, formatDuration(duration))
}

// formatSummary formats the end-of-loop summary.
func formatSummary(s Styles, summary *Summary) string {
	lines := make([]string, 0, 7)
	lines = append(lines, s.Title.Render("Ralph loop complete:"))

	lines = append(lines, fmt.Sprintf("  %s %d iteration(s)", IconSuccess, summary.Iterations))
	if summary.Commits > 0 {
		lines = append(lines, fmt.Sprintf("  %s %d commit(s)", IconCommit, summary.Commits))
	}
	if summary.Retries > 0 {
		lines = append(lines, s.Warning.Render(fmt.Sprintf("  %s %d retry(ies)", IconRetry, summary.Retries)))
	}

	switch summary.StopReason {
	case StopCompleted:
		lines = append(lines, s.Success.Render("  all tasks complete"))
	case StopMaxIterations:
		lines = append(lines, s.Warning.Render("  stopped: iteration safety limit reached"))
	case StopFailure:
		lines = append(lines, s.Error.Render(fmt.Sprintf("  %s stopped: %s failure: %s",
			IconFailed, summary.Failure, summary.FailureDetail)))
	case StopInterrupted:
		lines = append(lines, s.Warning.Render("  stopped: interrupted"))
	}

	lines = append(lines, s.Duration.Render(fmt.Sprintf("  Duration: %s", formatDuration(summary.Duration))))

	return strings.Join(lines, "\n")
}
