// Package agent invokes the external autonomous coding agent. The agent is a
// black box: it reads the task and context files, mutates the working tree
// and the progress ledger, and exits. The engine observes only the exit code;
// stdout/stderr are tee'd to a live writer for humans and captured for
// transcripts.
package agent

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"
)

// DefaultBinary is the agent executable invoked by the default factory.
const DefaultBinary = "claude"

// Result holds the outcome of a single agent invocation.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Duration time.Duration
}

// Failed reports whether the agent signaled failure via its exit code.
func (r *Result) Failed() bool { return r.ExitCode != 0 }

// Invocation describes one agent run. The argument list it produces follows
// the fixed shape: permission flags, tool allow-list, directory grants, then
// the ordered input files with the task file last.
type Invocation struct {
	// Root is the orchestration root, always granted to the agent.
	Root string

	// RepoDirs are the tracked working trees, each granted to the agent.
	RepoDirs []string

	// PermissionMode is the agent's permission mode (e.g. acceptEdits).
	// Ignored when SkipPermissions is set.
	PermissionMode string

	// SkipPermissions passes the allow-everything flag instead of a mode.
	SkipPermissions bool

	// AllowedTools is the tool-pattern allow-list, passed through opaquely.
	AllowedTools []string

	// ContextFiles are supplementary inputs, in order, before the task file.
	ContextFiles []string

	// TaskFile is the task list the agent advances; always the last input.
	TaskFile string
}

// Args builds the full agent argument list.
func (inv Invocation) Args() []string {
	var args []string

	if inv.SkipPermissions {
		args = append(args, "--dangerously-skip-permissions")
	} else if inv.PermissionMode != "" {
		args = append(args, "--permission-mode", inv.PermissionMode)
	}

	for _, tool := range inv.AllowedTools {
		args = append(args, "--allowedTools", tool)
	}

	if inv.Root != "" {
		args = append(args, "--add-dir", inv.Root)
	}
	for _, dir := range inv.RepoDirs {
		args = append(args, "--add-dir", dir)
	}

	args = append(args, inv.ContextFiles...)
	if inv.TaskFile != "" {
		args = append(args, inv.TaskFile)
	}

	return args
}

// CommandFactory builds an *exec.Cmd for the given context, working
// directory, and arguments. The default factory invokes DefaultBinary. Tests
// inject a factory that runs a helper process instead.
type CommandFactory func(ctx context.Context, workDir string, args ...string) *exec.Cmd

func defaultCommandFactory(ctx context.Context, workDir string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, DefaultBinary, args...)
	cmd.Dir = workDir
	return cmd
}

// options holds optional configuration for Run.
type options struct {
	commandFactory CommandFactory
	stdoutWriter   io.Writer
	usePTY         bool
}

// Option configures Run behaviour.
type Option func(*options)

// WithCommandFactory injects a custom command factory (used in tests).
func WithCommandFactory(f CommandFactory) Option {
	return func(o *options) { o.commandFactory = f }
}

// WithStdoutWriter overrides the live stdout writer (default os.Stdout).
func WithStdoutWriter(w io.Writer) Option {
	return func(o *options) { o.stdoutWriter = w }
}

// WithPTY runs the agent under a pseudo-terminal so agents that detect TTYs
// stream progress output.
func WithPTY(enabled bool) Option {
	return func(o *options) { o.usePTY = enabled }
}

// Run invokes the agent synchronously with the working directory set to the
// routed repo. This is a blocking call with no engine-level timeout: the
// agent process is responsible for terminating, and cancellation happens only
// via ctx (operator interrupt), which kills the process and leaves the ledger
// and working tree as-is.
func Run(ctx context.Context, workDir string, inv Invocation, opts ...Option) (*Result, error) {
	cfg := options{
		commandFactory: defaultCommandFactory,
		stdoutWriter:   os.Stdout,
	}
	for _, o := range opts {
		o(&cfg)
	}

	cmd := cfg.commandFactory(ctx, workDir, inv.Args()...)

	if cfg.usePTY {
		return runPTY(cmd, cfg.stdoutWriter)
	}

	// Capture stdout: tee to live writer + buffer.
	var stdoutBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(&stdoutBuf, cfg.stdoutWriter)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("failed to run agent: %w", err)
		}
	}

	return &Result{
		ExitCode: exitCode,
		Stdout:   stdoutBuf.String(),
		Stderr:   stderrBuf.String(),
		Duration: duration,
	}, nil
}
