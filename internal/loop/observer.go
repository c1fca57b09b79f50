package loop

import "time"

// Observer receives loop lifecycle events. Implemented by the watch TUI;
// a nil observer on the engine is replaced by nopObserver.
type Observer interface {
	// IterationStarted fires when an iteration begins routing.
	IterationStarted(iter, maxIter int, taskID, repo string)

	// IterationFinished fires after verification, hooks, and the commit
	// boundary have run. kind is FailNone on success; willRetry reports
	// whether a failed iteration will be retried.
	IterationFinished(iter int, taskID string, kind FailureKind, willRetry bool, duration time.Duration)

	// RunFinished fires once with the final summary.
	RunFinished(summary *Summary)
}

type nopObserver struct{}

func (nopObserver) IterationStarted(int, int, string, string)                       {}
func (nopObserver) IterationFinished(int, string, FailureKind, bool, time.Duration) {}
func (nopObserver) RunFinished(*Summary)                                            {}
