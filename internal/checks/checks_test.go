package checks

import (
	"bytes"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fakeFactory returns a CommandFactory that runs "true" or "false" regardless
// of the requested command, recording what was asked for.
func fakeFactory(succeed bool, calls *[]string) CommandFactory {
	return func(dir, command string) *exec.Cmd {
		if calls != nil {
			*calls = append(*calls, dir+"|"+command)
		}
		if succeed {
			return exec.Command("true")
		}
		return exec.Command("false")
	}
}

func TestVerifyBlankCommandIsPass(t *testing.T) {
	r := &Runner{Factory: fakeFactory(false, nil)}
	assert.Equal(t, Pass, r.Verify("/some/repo", ""))
}

func TestVerifyPassAndFail(t *testing.T) {
	var calls []string
	r := &Runner{Factory: fakeFactory(true, &calls)}
	assert.Equal(t, Pass, r.Verify("/repo", "go build ./..."))
	assert.Equal(t, []string{"/repo|go build ./..."}, calls)

	r = &Runner{Factory: fakeFactory(false, nil)}
	assert.Equal(t, Fail, r.Verify("/repo", "go build ./..."))
}

func TestHookEmptyPathIsSkipped(t *testing.T) {
	r := &Runner{Root: "/root"}
	assert.Equal(t, Skipped, r.Hook("postTask", ""))
}

func TestHookMissingScriptIsPass(t *testing.T) {
	var out bytes.Buffer
	r := &Runner{
		Root:    "/root",
		Output:  &out,
		Exists:  func(string) bool { return false },
		Factory: fakeFactory(false, nil), // would fail if it ran
	}
	assert.Equal(t, Pass, r.Hook("postTask", "hooks/post-task.sh"))
	assert.Contains(t, out.String(), "not found")
}

func TestHookRunsInRoot(t *testing.T) {
	var calls []string
	r := &Runner{
		Root:    "/orchestration",
		Exists:  func(string) bool { return true },
		Factory: fakeFactory(true, &calls),
	}
	assert.Equal(t, Pass, r.Hook("postGroup", "hooks/post-group.sh"))
	assert.Len(t, calls, 1)
	assert.Contains(t, calls[0], "/orchestration|")
	assert.Contains(t, calls[0], "hooks/post-group.sh")
}

func TestHookNonZeroExitIsFail(t *testing.T) {
	r := &Runner{
		Root:    "/root",
		Exists:  func(string) bool { return true },
		Factory: fakeFactory(false, nil),
	}
	assert.Equal(t, Fail, r.Hook("onComplete", "hooks/done.sh"))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "pass", Pass.String())
	assert.Equal(t, "fail", Fail.String())
	assert.Equal(t, "skipped", Skipped.String())
}
