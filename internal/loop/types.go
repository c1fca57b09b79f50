// Package loop implements the iteration engine: the per-iteration protocol
// around the external agent (route, invoke, check, verify, hooks, commit
// boundary) and the overall run loop with its retry policy and termination
// states.
package loop

import (
	"encoding/json"
	"fmt"
	"time"
)

// StopReason indicates why the loop terminated. Terminal states are mutually
// exclusive and distinguishable in the final report.
type StopReason int

const (
	StopCompleted     StopReason = iota // Ledger reached RALPH_COMPLETE.
	StopMaxIterations                   // Hit the configured iteration cap.
	StopFailure                         // Unretryable failure (retries exhausted).
	StopInterrupted                     // Context cancelled (e.g. SIGINT).
)

// String returns a human-readable label for the stop reason.
func (r StopReason) String() string {
	switch r {
	case StopCompleted:
		return "completed"
	case StopMaxIterations:
		return "max-iterations"
	case StopFailure:
		return "failure"
	case StopInterrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ExitCode returns a distinct process exit code for each stop reason.
func (r StopReason) ExitCode() int {
	switch r {
	case StopCompleted:
		return 0
	case StopMaxIterations:
		return 2
	case StopFailure:
		return 3
	case StopInterrupted:
		return 5
	default:
		return 1
	}
}

// MarshalJSON implements json.Marshaler.
func (r StopReason) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *StopReason) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "completed":
		*r = StopCompleted
	case "max-iterations":
		*r = StopMaxIterations
	case "failure":
		*r = StopFailure
	case "interrupted":
		*r = StopInterrupted
	default:
		return fmt.Errorf("unknown StopReason: %s", s)
	}
	return nil
}

// FailureKind classifies the three retryable failure classes, checked in
// fixed order within one iteration. FailNone means the iteration succeeded.
type FailureKind int

const (
	FailNone        FailureKind = iota
	FailAgent                   // Agent process exited non-zero (or failed to launch).
	FailLedgerError             // Ledger contains an ERROR line after the agent ran.
	FailVerify                  // Verification command failed.
)

// String returns a human-readable label for the failure kind.
func (k FailureKind) String() string {
	switch k {
	case FailNone:
		return "ok"
	case FailAgent:
		return "agent-exit"
	case FailLedgerError:
		return "ledger-error"
	case FailVerify:
		return "verification"
	default:
		return "unknown"
	}
}

// Summary holds aggregate results across all iterations.
type Summary struct {
	Iterations    int
	Retries       int
	Commits       int
	StopReason    StopReason
	Failure       FailureKind // set when StopReason is StopFailure
	FailureDetail string
	Duration      time.Duration
}

// formatDuration formats a duration in a human-readable way (e.g. "2m34s").
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm%ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
