package gitrepo

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
)

// scriptRunner returns a Runner that replies from a map of "arg arg ..." to
// output, recording invocations. Unmapped commands succeed with empty output
// unless failAll is set.
func scriptRunner(replies map[string]string, fails map[string]bool, calls *[]string) Runner {
	return func(dir string, args ...string) ([]byte, error) {
		key := strings.Join(args, " ")
		if calls != nil {
			*calls = append(*calls, dir+": git "+key)
		}
		if fails[key] {
			return nil, errors.New("git " + key + ": failed")
		}
		return []byte(replies[key]), nil
	}
}

func TestHasChanges(t *testing.T) {
	g := &Git{Run: scriptRunner(map[string]string{
		"status --porcelain": " M main.go\n?? new.go\n",
	}, nil, nil)}
	dirty, err := g.HasChanges("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dirty {
		t.Error("expected dirty tree")
	}

	g = &Git{Run: scriptRunner(map[string]string{"status --porcelain": "\n"}, nil, nil)}
	dirty, err = g.HasChanges("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dirty {
		t.Error("expected clean tree")
	}
}

func TestDefaultBranchFromRemoteHead(t *testing.T) {
	g := &Git{Run: scriptRunner(map[string]string{
		"symbolic-ref refs/remotes/origin/HEAD": "refs/remotes/origin/main\n",
	}, nil, nil)}
	branch, err := g.DefaultBranch("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "origin/main" {
		t.Errorf("branch = %q, want origin/main", branch)
	}
}

func TestDefaultBranchFallback(t *testing.T) {
	fails := map[string]bool{
		"symbolic-ref refs/remotes/origin/HEAD": true,
		"rev-parse --verify origin/main":        true,
		"rev-parse --verify main":               true,
	}
	g := &Git{Run: scriptRunner(nil, fails, nil)}
	branch, err := g.DefaultBranch("/repo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if branch != "origin/master" {
		t.Errorf("branch = %q, want origin/master", branch)
	}
}

func TestSyncRepoMissingDirIsSilentSkip(t *testing.T) {
	var calls []string
	s := &SyncManager{
		Git:  &Git{Run: scriptRunner(nil, nil, &calls)},
		Stat: func(string) bool { return false },
	}
	if err := s.SyncRepo("backend", "/missing", "ralph-work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("expected no git calls, got %v", calls)
	}
}

func TestSyncRepoCreatesFeatureBranch(t *testing.T) {
	var calls []string
	replies := map[string]string{
		"rev-parse --abbrev-ref HEAD":           "main\n",
		"symbolic-ref refs/remotes/origin/HEAD": "refs/remotes/origin/main\n",
	}
	fails := map[string]bool{
		"rev-parse --verify refs/heads/ralph-work": true, // branch absent
	}
	s := &SyncManager{
		Git:  &Git{Run: scriptRunner(replies, fails, &calls)},
		Stat: func(string) bool { return true },
	}
	if err := s.SyncRepo("backend", "/repo", "ralph-work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	joined := strings.Join(calls, "\n")
	for _, want := range []string{
		"checkout -b ralph-work",
		"fetch origin",
		"merge origin/main --no-edit",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("missing git call %q in:\n%s", want, joined)
		}
	}
}

func TestSyncRepoAlreadyOnBranch(t *testing.T) {
	var calls []string
	replies := map[string]string{
		"rev-parse --abbrev-ref HEAD":           "ralph-work\n",
		"symbolic-ref refs/remotes/origin/HEAD": "refs/remotes/origin/main\n",
	}
	s := &SyncManager{
		Git:  &Git{Run: scriptRunner(replies, nil, &calls)},
		Stat: func(string) bool { return true },
	}
	if err := s.SyncRepo("backend", "/repo", "ralph-work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	joined := strings.Join(calls, "\n")
	if strings.Contains(joined, "checkout") {
		t.Errorf("unexpected checkout in:\n%s", joined)
	}
}

func TestSyncRepoMergeConflictReported(t *testing.T) {
	replies := map[string]string{
		"rev-parse --abbrev-ref HEAD":           "ralph-work\n",
		"symbolic-ref refs/remotes/origin/HEAD": "refs/remotes/origin/main\n",
	}
	fails := map[string]bool{
		"merge origin/main --no-edit": true,
	}
	var out bytes.Buffer
	s := &SyncManager{
		Git:    &Git{Run: scriptRunner(replies, fails, nil)},
		Output: &out,
		Stat:   func(string) bool { return true },
	}
	err := s.SyncRepo("backend", "/repo", "ralph-work")
	if err == nil {
		t.Fatal("expected merge error")
	}
	if !strings.Contains(err.Error(), "merge") {
		t.Errorf("error %q should mention merge", err)
	}
}

func ExampleGit_Commit() {
	g := &Git{Run: func(dir string, args ...string) ([]byte, error) {
		fmt.Printf("git %s\n", strings.Join(args, " "))
		return nil, nil
	}}
	_ = g.StageAll("/repo")
	_ = g.Commit("/repo", "feat: B3 - add endpoint")
	// Output:
	// git add -A
	// git commit -m feat: B3 - add endpoint
}
