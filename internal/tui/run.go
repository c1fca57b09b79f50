package tui

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"ralphloop/internal/loop"
)

// Watch runs the engine under the live terminal view. The engine's plain
// console output is suppressed; the view renders iteration state instead.
// Quitting the view cancels the run, and the engine's summary is returned
// once it has stopped.
func Watch(ctx context.Context, e *loop.Engine) (*loop.Summary, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewModel()
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	e.Observer = &observer{program: program}
	e.Output = io.Discard

	var (
		summary *loop.Summary
		runErr  error
	)
	done := make(chan struct{})
	go func() {
		defer close(done)
		summary, runErr = e.Run(ctx)
		if runErr != nil {
			program.Send(runErrorMsg{err: runErr})
		}
	}()

	_, uiErr := program.Run()

	// The view is gone; stop the engine if it is still mid-run and wait for
	// its summary before returning.
	cancel()
	<-done

	if runErr != nil {
		return summary, runErr
	}
	return summary, uiErr
}
