package agent

import (
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/creack/pty"
)

// ptySize is the fixed terminal geometry for PTY agent runs. Agents only use
// it for line wrapping; no resize handling is needed for a non-interactive run.
var ptySize = &pty.Winsize{Rows: 40, Cols: 120}

// runPTY executes cmd under a pseudo-terminal. The PTY merges the agent's
// stdout and stderr into one stream, which is tee'd to the live writer and
// captured as the result's Stdout.
func runPTY(cmd *exec.Cmd, liveWriter io.Writer) (*Result, error) {
	start := time.Now()

	f, err := pty.StartWithSize(cmd, ptySize)
	if err != nil {
		return nil, fmt.Errorf("failed to start agent in pty: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	// The PTY read side returns EIO when the child exits; that is normal
	// termination, not a copy failure.
	_, _ = io.Copy(io.MultiWriter(&buf, liveWriter), f)

	err = cmd.Wait()
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
		Stdout:   buf.String(),
		Duration: duration,
	}, nil
}
