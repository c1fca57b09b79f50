// Package task parses task identifiers and routes them to repositories.
//
// A task identifier has the form <prefix><group>[.<subtask>], e.g. "B3",
// "F12.2", or "API-USER-7.1". The prefix is the longest leading run of
// non-digit characters, the group is the run of digits that follows, and the
// subtask is everything after an optional dot. Two identifiers belong to the
// same task group iff their (prefix, group) pair is equal.
package task

import "strings"

// ID is a decomposed task identifier.
type ID struct {
	Prefix  string // leading non-digit run, e.g. "B" or "API-USER-"
	Group   string // digit run following the prefix, e.g. "3"
	Subtask string // everything after the dot, empty if none
}

// Parse decomposes a task identifier. It is tolerant: an empty or malformed
// string yields a zero-value ID rather than an error, since an empty next-task
// is a legitimate pre-start state.
func Parse(s string) ID {
	s = strings.TrimSpace(s)
	var id ID

	i := 0
	for i < len(s) && !isDigit(s[i]) {
		i++
	}
	id.Prefix = s[:i]

	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	id.Group = s[i:j]

	if j < len(s) && s[j] == '.' {
		id.Subtask = s[j+1:]
	}

	return id
}

// GroupKey returns the task-group key: prefix plus group, ignoring subtask.
// GroupKey of an already-stripped identifier is the identifier itself.
func (id ID) GroupKey() string {
	return id.Prefix + id.Group
}

// Group returns the task-group key for a raw identifier string.
func Group(s string) string {
	return Parse(s).GroupKey()
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

// Table routes task identifiers to repository names by longest-prefix match.
// Entries map a configured prefix (e.g. "B", "API-") to a repo name; a task
// routes to the entry whose prefix is the longest one matching the task's own
// prefix. Tasks matching no entry route to the fallback repo.
type Table struct {
	entries  []entry
	fallback string
}

type entry struct {
	prefix string
	repo   string
}

// NewTable creates an empty routing table with the given fallback repo.
func NewTable(fallback string) *Table {
	return &Table{fallback: fallback}
}

// Add registers a prefix for a repo. Empty prefixes are ignored.
func (t *Table) Add(prefix, repo string) {
	if prefix == "" {
		return
	}
	t.entries = append(t.entries, entry{prefix: prefix, repo: repo})
}

// Fallback returns the designated default repo name.
func (t *Table) Fallback() string {
	return t.fallback
}

// Route maps a task identifier to a repository name. Routing is total: every
// identifier, including the empty string, maps to exactly one repo. The match
// is against the parsed prefix of the identifier; when several configured
// prefixes match, the longest wins. Earlier entries win ties.
func (t *Table) Route(taskID string) string {
	prefix := Parse(taskID).Prefix
	best := ""
	repo := t.fallback
	for _, e := range t.entries {
		if !strings.HasPrefix(prefix, e.prefix) {
			continue
		}
		if len(e.prefix) > len(best) {
			best = e.prefix
			repo = e.repo
		}
	}
	return repo
}
