// Package ledger reads the append-only progress file that the external agent
// maintains. The file is the single source of truth for what happens next:
// every accessor re-reads it from disk, and resolution for DONE/Next records
// is "most recent line of that kind wins".
//
// Recognized line shapes:
//
//	DONE: <task-id> - <description>
//	Next: <task-id>
//	ERROR: <description>
//	RALPH_COMPLETE
//
// The engine never writes to the ledger except via ClearError, which is only
// invoked as a precondition for a retry it has already decided to take.
package ledger

import (
	"fmt"
	"os"
	"strings"

	"ralphloop/internal/task"
)

// Line prefixes recognized in the progress file.
const (
	donePrefix    = "DONE:"
	nextPrefix    = "Next:"
	errorPrefix   = "ERROR:"
	completeToken = "RALPH_COMPLETE"
)

// Ledger reads and (minimally) rewrites a progress file. It holds no state
// beyond the path; all reads scan the file fresh.
type Ledger struct {
	Path string
}

// New returns a Ledger for the given progress file path.
func New(path string) *Ledger {
	return &Ledger{Path: path}
}

// lines reads the file and splits it into lines. A missing file reads as
// empty: config validation guarantees existence at startup, and a ledger the
// agent has not yet bootstrapped is equivalent to one with no records.
func (l *Ledger) lines() ([]string, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading progress file: %w", err)
	}
	return strings.Split(string(data), "\n"), nil
}

// LastCompleted returns the task ID of the most recent DONE line, or empty if
// none. The ID is the first whitespace-delimited token after the prefix.
func (l *Ledger) LastCompleted() (string, error) {
	lines, err := l.lines()
	if err != nil {
		return "", err
	}
	last := ""
	for _, line := range lines {
		if strings.HasPrefix(line, donePrefix) {
			last = firstToken(line[len(donePrefix):])
		}
	}
	return last, nil
}

// Next returns the task ID of the most recent Next line, or empty if none.
// An empty result is a legitimate pre-start state, not an error.
func (l *Ledger) Next() (string, error) {
	lines, err := l.lines()
	if err != nil {
		return "", err
	}
	next := ""
	for _, line := range lines {
		if strings.HasPrefix(line, nextPrefix) {
			next = firstToken(line[len(nextPrefix):])
		}
	}
	return next, nil
}

// HasError reports whether any ERROR line is present.
func (l *Ledger) HasError() (bool, error) {
	lines, err := l.lines()
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if strings.HasPrefix(line, errorPrefix) {
			return true, nil
		}
	}
	return false, nil
}

// ErrorText returns the description of the most recent ERROR line, or empty.
func (l *Ledger) ErrorText() (string, error) {
	lines, err := l.lines()
	if err != nil {
		return "", err
	}
	text := ""
	for _, line := range lines {
		if strings.HasPrefix(line, errorPrefix) {
			text = strings.TrimSpace(line[len(errorPrefix):])
		}
	}
	return text, nil
}

// IsComplete reports whether the terminal RALPH_COMPLETE marker is present.
func (l *Ledger) IsComplete() (bool, error) {
	lines, err := l.lines()
	if err != nil {
		return false, err
	}
	for _, line := range lines {
		if strings.TrimSpace(line) == completeToken {
			return true, nil
		}
	}
	return false, nil
}

// Description returns the free-text tail of the first DONE line whose task
// belongs to the given group. Commit messages use this so that a group's
// commit is labeled by the work that opened it.
func (l *Ledger) Description(group string) (string, error) {
	lines, err := l.lines()
	if err != nil {
		return "", err
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, donePrefix) {
			continue
		}
		rest := strings.TrimSpace(line[len(donePrefix):])
		id := firstToken(rest)
		if task.Group(id) != group {
			continue
		}
		if _, desc, ok := strings.Cut(rest, " - "); ok {
			return strings.TrimSpace(desc), nil
		}
		return "", nil
	}
	return "", nil
}

// ClearError rewrites the file with all ERROR lines removed, preserving every
// other line and its order. Destructive; only called immediately before a
// retry attempt.
func (l *Ledger) ClearError() error {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading progress file: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	kept := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(line, errorPrefix) {
			continue
		}
		kept = append(kept, line)
	}

	if err := os.WriteFile(l.Path, []byte(strings.Join(kept, "\n")), 0o644); err != nil {
		return fmt.Errorf("rewriting progress file: %w", err)
	}
	return nil
}

// firstToken returns the first whitespace-delimited token of s.
func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
