package checks

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Verify runs the configured check command with the working directory set to
// the target repo. A blank command is vacuously a pass: verification is
// optional per repo. The runner reports only pass/fail; output is forwarded
// to r.Output, never interpreted.
func (r *Runner) Verify(workDir, command string) Result {
	if command == "" {
		return Pass
	}

	cmd := r.factory()(workDir, command)
	out := r.output()
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return Fail
	}
	return Pass
}

// Hook runs a named lifecycle script with the orchestration root as the
// working directory. An empty script path is Skipped. A configured script
// that does not exist is logged and treated as a pass: hooks are
// opportunistic conveniences, not gates.
func (r *Runner) Hook(name, script string) Result {
	if script == "" {
		return Skipped
	}

	path := script
	if !filepath.IsAbs(path) {
		path = filepath.Join(r.Root, script)
	}

	if !r.exists()(path) {
		fmt.Fprintf(r.output(), "hook %s: script %s not found, skipping\n", name, script)
		return Pass
	}

	cmd := r.factory()(r.Root, shellQuote(path))
	out := r.output()
	cmd.Stdout = out
	cmd.Stderr = out

	if err := cmd.Run(); err != nil {
		return Fail
	}
	return Pass
}

func (r *Runner) factory() CommandFactory {
	if r.Factory != nil {
		return r.Factory
	}
	return defaultCommandFactory
}

func (r *Runner) output() io.Writer {
	if r.Output != nil {
		return r.Output
	}
	return io.Discard
}

func (r *Runner) exists() func(string) bool {
	if r.Exists != nil {
		return r.Exists
	}
	return func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
}

// shellQuote single-quotes a path for sh -c evaluation.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
