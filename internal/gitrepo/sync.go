package gitrepo

import (
	"fmt"
	"io"
	"os"
)

// SyncManager brings each tracked working tree up to date with its upstream
// mainline before the loop starts: ensure the feature branch is checked out
// (creating it from the current HEAD if absent), fetch, and merge mainline in.
type SyncManager struct {
	Git    *Git
	Output io.Writer

	// Stat reports whether a repo directory exists. Nil means os.Stat.
	Stat func(path string) bool
}

// SyncRepo synchronizes a single repository. A merge conflict (or any other
// git failure) aborts only this repo's synchronization with a reported error;
// a missing repo directory is a silent skip, since repos are optional per
// configuration.
func (s *SyncManager) SyncRepo(name, path, featureBranch string) error {
	if !s.stat()(path) {
		return nil
	}

	g := s.Git
	if featureBranch != "" {
		current, err := g.CurrentBranch(path)
		if err != nil {
			return fmt.Errorf("sync %s: %w", name, err)
		}
		if current != featureBranch {
			create := !g.BranchExists(path, featureBranch)
			if err := g.Checkout(path, featureBranch, create); err != nil {
				return fmt.Errorf("sync %s: checkout %s: %w", name, featureBranch, err)
			}
		}
	}

	if err := g.Fetch(path); err != nil {
		return fmt.Errorf("sync %s: %w", name, err)
	}

	mainline, err := g.DefaultBranch(path)
	if err != nil {
		return fmt.Errorf("sync %s: %w", name, err)
	}

	if err := g.Merge(path, mainline); err != nil {
		// Likely a conflict; the operator resolves it before the first
		// agent invocation meaningfully proceeds.
		return fmt.Errorf("sync %s: merge %s: %w", name, mainline, err)
	}

	fmt.Fprintf(s.output(), "synced %s with %s\n", name, mainline)
	return nil
}

func (s *SyncManager) stat() func(string) bool {
	if s.Stat != nil {
		return s.Stat
	}
	return func(path string) bool {
		info, err := os.Stat(path)
		return err == nil && info.IsDir()
	}
}

func (s *SyncManager) output() io.Writer {
	if s.Output != nil {
		return s.Output
	}
	return io.Discard
}
