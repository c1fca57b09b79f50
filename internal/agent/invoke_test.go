package agent

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"testing"
)

func TestArgsOrder(t *testing.T) {
	inv := Invocation{
		Root:           "/orchestration",
		RepoDirs:       []string{"/r1", "/r2"},
		PermissionMode: "acceptEdits",
		AllowedTools:   []string{"Edit", "Bash(*)"},
		ContextFiles:   []string{"/docs/arch.md", "/docs/style.md"},
		TaskFile:       "/orchestration/RALPH.md",
	}

	got := strings.Join(inv.Args(), " ")
	want := "--permission-mode acceptEdits " +
		"--allowedTools Edit --allowedTools Bash(*) " +
		"--add-dir /orchestration --add-dir /r1 --add-dir /r2 " +
		"/docs/arch.md /docs/style.md /orchestration/RALPH.md"
	if got != want {
		t.Errorf("args = %q, want %q", got, want)
	}
}

func TestArgsSkipPermissions(t *testing.T) {
	inv := Invocation{
		PermissionMode:  "acceptEdits",
		SkipPermissions: true,
		TaskFile:        "RALPH.md",
	}
	args := inv.Args()
	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "--dangerously-skip-permissions") {
		t.Errorf("missing skip flag in %q", joined)
	}
	if strings.Contains(joined, "--permission-mode") {
		t.Errorf("permission mode should be suppressed in %q", joined)
	}
}

func TestArgsTaskFileLast(t *testing.T) {
	inv := Invocation{
		ContextFiles: []string{"a.md", "b.md"},
		TaskFile:     "RALPH.md",
	}
	args := inv.Args()
	if args[len(args)-1] != "RALPH.md" {
		t.Errorf("task file must be last, got %v", args)
	}
}

// echoFactory ignores the requested binary and runs a shell snippet instead.
func echoFactory(script string) CommandFactory {
	return func(ctx context.Context, workDir string, args ...string) *exec.Cmd {
		cmd := exec.CommandContext(ctx, "sh", "-c", script)
		cmd.Dir = workDir
		return cmd
	}
}

func TestRunCapturesOutputAndExitCode(t *testing.T) {
	var live bytes.Buffer
	res, err := Run(context.Background(), t.TempDir(), Invocation{},
		WithCommandFactory(echoFactory("echo out; echo err >&2; exit 3")),
		WithStdoutWriter(&live),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", res.ExitCode)
	}
	if !strings.Contains(res.Stdout, "out") {
		t.Errorf("stdout = %q, want to contain 'out'", res.Stdout)
	}
	if !strings.Contains(res.Stderr, "err") {
		t.Errorf("stderr = %q, want to contain 'err'", res.Stderr)
	}
	// Live writer sees stdout in real time.
	if !strings.Contains(live.String(), "out") {
		t.Errorf("live output = %q, want to contain 'out'", live.String())
	}
}

func TestRunSuccess(t *testing.T) {
	res, err := Run(context.Background(), t.TempDir(), Invocation{},
		WithCommandFactory(echoFactory("true")),
		WithStdoutWriter(&bytes.Buffer{}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Failed() {
		t.Errorf("exit code = %d, want 0", res.ExitCode)
	}
	if res.Duration <= 0 {
		t.Error("duration should be positive")
	}
}

func TestRunLaunchFailure(t *testing.T) {
	factory := func(ctx context.Context, workDir string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "/nonexistent/agent/binary")
	}
	_, err := Run(context.Background(), t.TempDir(), Invocation{},
		WithCommandFactory(factory),
		WithStdoutWriter(&bytes.Buffer{}),
	)
	if err == nil {
		t.Fatal("expected launch error")
	}
}
