// Package checks executes the per-iteration verification command and the
// lifecycle hook scripts. Both are shell-evaluable strings run to completion
// with a specified working directory; only the exit code is observed, and
// stdout/stderr are forwarded for human consumption.
package checks

import (
	"io"
	"os/exec"
)

// Result is the outcome of a verification or hook run.
type Result int

const (
	Pass Result = iota
	Fail
	Skipped
)

// String returns a human-readable label for the result.
func (r Result) String() string {
	switch r {
	case Pass:
		return "pass"
	case Fail:
		return "fail"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// CommandFactory builds an *exec.Cmd that evaluates command in dir via the
// shell. Tests inject a factory that invokes a helper process instead.
type CommandFactory func(dir, command string) *exec.Cmd

// defaultCommandFactory evaluates the command with sh -c.
func defaultCommandFactory(dir, command string) *exec.Cmd {
	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	return cmd
}

// Runner runs verification commands and hook scripts.
type Runner struct {
	// Root is the orchestration root; hooks execute with it as their
	// working directory and resolve their script paths against it.
	Root string

	// Output receives command stdout/stderr. Defaults to io.Discard.
	Output io.Writer

	// Factory builds commands; nil means sh -c.
	Factory CommandFactory

	// Exists reports whether a hook script is present. Nil means os.Stat.
	Exists func(path string) bool
}
