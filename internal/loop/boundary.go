package loop

import (
	"fmt"
	"io"
	"strings"

	"ralphloop/internal/config"
	"ralphloop/internal/gitrepo"
	"ralphloop/internal/ledger"
	"ralphloop/internal/task"
)

// BoundaryResult is the outcome of a commit-boundary evaluation.
type BoundaryResult int

const (
	BoundaryNoOp BoundaryResult = iota
	BoundaryCommitted
	BoundaryFailed
)

// String returns a human-readable label for the boundary result.
func (r BoundaryResult) String() string {
	switch r {
	case BoundaryNoOp:
		return "no-op"
	case BoundaryCommitted:
		return "committed"
	case BoundaryFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// maxCommitDescription bounds the free-text tail carried into commit messages
// so history stays scannable.
const maxCommitDescription = 60

// Boundary detects task-group transitions in the ledger and commits the
// affected repository's working tree when one occurs. The boundary is never
// persisted; it is recomputed from a fresh ledger read every evaluation.
type Boundary struct {
	Ledger       *ledger.Ledger
	Table        *task.Table
	LookupRepo   func(name string) (config.Repo, bool)
	Git          *gitrepo.Git
	CommitPrefix string
	Output       io.Writer
}

// MaybeCommit evaluates the commit boundary after an iteration. It commits
// only when the completed task's group differs from the next task's group:
// one commit per logical feature increment, with subtasks accumulating
// uncommitted intermediate edits. A clean working tree is a NoOp, so repeated
// evaluation is idempotent.
func (b *Boundary) MaybeCommit() BoundaryResult {
	last, err := b.Ledger.LastCompleted()
	if err != nil {
		return b.warn("reading ledger: %v", err)
	}
	next, err := b.Ledger.Next()
	if err != nil {
		return b.warn("reading ledger: %v", err)
	}
	if last == "" || next == "" {
		return BoundaryNoOp
	}

	completedGroup := task.Group(last)
	if completedGroup == task.Group(next) {
		return BoundaryNoOp // still inside the same task group
	}

	return b.commitGroup(last, completedGroup)
}

// CommitTrailing commits any pending changes for the last completed task's
// group. Used once at termination so work trailing the final group transition
// is not left uncommitted.
func (b *Boundary) CommitTrailing() BoundaryResult {
	last, err := b.Ledger.LastCompleted()
	if err != nil {
		return b.warn("reading ledger: %v", err)
	}
	if last == "" {
		return BoundaryNoOp
	}
	return b.commitGroup(last, task.Group(last))
}

func (b *Boundary) commitGroup(taskID, group string) BoundaryResult {
	repo, ok := b.LookupRepo(b.Table.Route(taskID))
	if !ok {
		return b.warn("no repo configured for task %s", taskID)
	}

	dirty, err := b.Git.HasChanges(repo.Path)
	if err != nil {
		return b.warn("checking %s: %v", repo.Name, err)
	}
	if !dirty {
		return BoundaryNoOp // agent made no edits; nothing to commit
	}

	desc, err := b.Ledger.Description(group)
	if err != nil {
		return b.warn("reading ledger: %v", err)
	}
	message := b.commitMessage(group, desc)

	if err := b.Git.StageAll(repo.Path); err != nil {
		return b.warn("staging %s: %v", repo.Name, err)
	}
	if err := b.Git.Commit(repo.Path, message); err != nil {
		return b.warn("committing %s: %v", repo.Name, err)
	}

	if b.Output != nil {
		fmt.Fprintf(b.Output, "committed %s: %s\n", repo.Name, message)
	}
	return BoundaryCommitted
}

// commitMessage builds "<commitPrefix> <group> - <description>" with the
// description truncated to a bounded length.
func (b *Boundary) commitMessage(group, desc string) string {
	if runes := []rune(desc); len(runes) > maxCommitDescription {
		desc = string(runes[:maxCommitDescription])
	}
	msg := strings.TrimSpace(b.CommitPrefix + " " + group)
	if desc != "" {
		msg += " - " + desc
	}
	return msg
}

// warn reports a boundary problem without gating the loop: commit failures
// are warning-level, distinct from the retryable failure classes.
func (b *Boundary) warn(format string, args ...any) BoundaryResult {
	if b.Output != nil {
		fmt.Fprintf(b.Output, "warning: commit boundary: "+format+"\n", args...)
	}
	return BoundaryFailed
}
