// Package gitrepo provides the git operations the iteration engine needs:
// change detection, staging, commits, and pre-loop branch synchronization.
// All operations shell out to git; a Runner function is injectable for tests.
package gitrepo

import (
	"bytes"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes git commands in a repository directory. The default
// implementation uses exec.Command.
type Runner func(dir string, args ...string) ([]byte, error)

// Run executes a git command in the given directory with the provided
// arguments, returning combined stderr in the error on failure.
func Run(dir string, args ...string) ([]byte, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return out, fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
		}
		return out, fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}
	return out, nil
}

// Git wraps a Runner with the repository operations used by the engine.
type Git struct {
	// Run executes git commands; nil means the real git binary.
	Run Runner
}

func (g *Git) run(dir string, args ...string) ([]byte, error) {
	r := g.Run
	if r == nil {
		r = Run
	}
	return r(dir, args...)
}

// HasChanges reports whether the working tree has any staged or unstaged
// changes, including untracked files.
func (g *Git) HasChanges(repo string) (bool, error) {
	out, err := g.run(repo, "status", "--porcelain")
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(string(out)) != "", nil
}

// StageAll stages every change in the working tree.
func (g *Git) StageAll(repo string) error {
	_, err := g.run(repo, "add", "-A")
	return err
}

// Commit records the staged changes with the given message.
func (g *Git) Commit(repo, message string) error {
	_, err := g.run(repo, "commit", "-m", message)
	return err
}

// CurrentBranch returns the checked-out branch name.
func (g *Git) CurrentBranch(repo string) (string, error) {
	out, err := g.run(repo, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// BranchExists reports whether a local branch exists.
func (g *Git) BranchExists(repo, branch string) bool {
	_, err := g.run(repo, "rev-parse", "--verify", "refs/heads/"+branch)
	return err == nil
}

// Checkout switches to an existing branch. With create, the branch is created
// from the current HEAD first.
func (g *Git) Checkout(repo, branch string, create bool) error {
	args := []string{"checkout", branch}
	if create {
		args = []string{"checkout", "-b", branch}
	}
	_, err := g.run(repo, args...)
	return err
}

// Fetch updates remote-tracking refs from origin.
func (g *Git) Fetch(repo string) error {
	_, err := g.run(repo, "fetch", "origin")
	return err
}

// Merge merges the given ref into the current branch without opening an
// editor.
func (g *Git) Merge(repo, ref string) error {
	_, err := g.run(repo, "merge", ref, "--no-edit")
	return err
}

// DefaultBranch finds the mainline branch for a repository. It first asks git
// for the remote HEAD, then falls back to common branch names.
func (g *Git) DefaultBranch(repo string) (string, error) {
	out, err := g.run(repo, "symbolic-ref", "refs/remotes/origin/HEAD")
	if err == nil {
		ref := strings.TrimSpace(string(out))
		if strings.HasPrefix(ref, "refs/remotes/") {
			return strings.TrimPrefix(ref, "refs/remotes/"), nil
		}
	}

	for _, candidate := range []string{"origin/main", "main", "origin/master", "master"} {
		if _, err := g.run(repo, "rev-parse", "--verify", candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("cannot find default branch (tried origin/HEAD, main, master)")
}
