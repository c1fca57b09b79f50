package loop

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"ralphloop/internal/agent"
	"ralphloop/internal/checks"
	"ralphloop/internal/config"
	"ralphloop/internal/gitrepo"
	"ralphloop/internal/ledger"
	"ralphloop/internal/task"
	"ralphloop/internal/trace"
	"ralphloop/internal/transcript"
)

// Engine drives the per-iteration protocol: route the next task to a repo,
// invoke the agent there, check the failure classes, run hooks, evaluate the
// commit boundary, and decide termination. Execution is strictly sequential:
// exactly one external process is in flight at a time, and iteration N fully
// completes before N+1 begins routing.
type Engine struct {
	Config *config.Config

	// Output is where console output goes. Defaults to os.Stdout.
	Output io.Writer

	// DryRun prints the next iteration's routing decision without
	// invoking the agent.
	DryRun bool

	// Verbose streams agent output to Output in addition to transcripts.
	Verbose bool

	// Transcripts, when set, receives one agent transcript per iteration.
	Transcripts *transcript.Store

	// Tracer, when non-nil, exports run/iteration spans.
	Tracer *trace.Tracer

	// Observer receives lifecycle events (e.g. the watch TUI).
	Observer Observer

	// Git executes version-control operations; nil means the real git.
	Git *gitrepo.Git

	// Test hooks. Nil means use the real implementation.
	Invoke   func(ctx context.Context, workDir string, iteration int) (*agent.Result, error)
	VerifyFn func(workDir, command string) checks.Result
	HookFn   func(name, script string) checks.Result
	SyncFn   func()
	PauseFn  func(d time.Duration)
	Ledger   *ledger.Ledger
}

// resolved holds the engine's collaborators after defaulting.
type resolved struct {
	out      io.Writer
	styles   Styles
	ledger   *ledger.Ledger
	table    *task.Table
	boundary *Boundary
	invoke   func(ctx context.Context, workDir string, iteration int) (*agent.Result, error)
	verify   func(workDir, command string) checks.Result
	hook     func(name, script string) checks.Result
	pause    func(d time.Duration)
	sync     func()
	observer Observer
}

func (e *Engine) resolve() *resolved {
	cfg := e.Config

	out := e.Output
	if out == nil {
		out = os.Stdout
	}

	led := e.Ledger
	if led == nil {
		led = ledger.New(cfg.ProgressFile)
	}

	git := e.Git
	if git == nil {
		git = &gitrepo.Git{}
	}

	table := cfg.Routing()

	runner := &checks.Runner{Root: cfg.Root, Output: out}
	verify := e.VerifyFn
	if verify == nil {
		verify = runner.Verify
	}
	hook := e.HookFn
	if hook == nil {
		hook = runner.Hook
	}

	invoke := e.Invoke
	if invoke == nil {
		invoke = e.defaultInvoke(out)
	}

	pause := e.PauseFn
	if pause == nil {
		pause = time.Sleep
	}

	sync := e.SyncFn
	if sync == nil {
		sync = func() { e.syncRepos(git, out) }
	}

	observer := e.Observer
	if observer == nil {
		observer = nopObserver{}
	}

	return &resolved{
		out:    out,
		styles: DefaultStyles(),
		ledger: led,
		table:  table,
		boundary: &Boundary{
			Ledger:       led,
			Table:        table,
			LookupRepo:   cfg.Repo,
			Git:          git,
			CommitPrefix: cfg.Git.CommitPrefix,
			Output:       out,
		},
		invoke:   invoke,
		verify:   verify,
		hook:     hook,
		pause:    pause,
		sync:     sync,
		observer: observer,
	}
}

// defaultInvoke builds the real agent invocation from the configuration:
// permission flags, tool allow-list, a directory grant for the orchestration
// root and each repo, then context files with the task file last. Agent
// stdout is tee'd to the iteration transcript, and to the console when
// verbose.
func (e *Engine) defaultInvoke(out io.Writer) func(context.Context, string, int) (*agent.Result, error) {
	cfg := e.Config

	inv := agent.Invocation{
		Root:            cfg.Root,
		PermissionMode:  cfg.Permissions.Mode,
		SkipPermissions: cfg.Permissions.DangerouslySkip,
		AllowedTools:    cfg.Permissions.AllowedTools,
		ContextFiles:    cfg.ContextFiles,
		TaskFile:        cfg.RalphFile,
	}
	for _, r := range cfg.Repos {
		inv.RepoDirs = append(inv.RepoDirs, r.Path)
	}

	return func(ctx context.Context, workDir string, iteration int) (*agent.Result, error) {
		var live io.Writer = io.Discard
		if e.Verbose {
			live = out
		}

		writers := []io.Writer{live}
		if e.Transcripts != nil {
			f, err := e.Transcripts.Create(iteration)
			if err != nil {
				writef(out, "warning: %v\n", err)
			} else {
				defer f.Close()
				writers = append(writers, f)
			}
		}

		opts := []agent.Option{
			agent.WithStdoutWriter(io.MultiWriter(writers...)),
			agent.WithPTY(cfg.Agent.PTY),
		}
		return agent.Run(ctx, workDir, inv, opts...)
	}
}

// syncRepos brings every tracked working tree up to date with its mainline.
// Failures (merge conflicts, missing branches) are reported and skipped; the
// operator resolves them before agent work meaningfully proceeds.
func (e *Engine) syncRepos(git *gitrepo.Git, out io.Writer) {
	mgr := &gitrepo.SyncManager{Git: git, Output: out}
	for _, r := range e.Config.Repos {
		if err := mgr.SyncRepo(r.Name, r.Path, e.Config.Git.FeatureBranch); err != nil {
			writef(out, "warning: %v\n", err)
		}
	}
}

// Run executes the loop until the ledger reaches RALPH_COMPLETE, the
// iteration cap is hit, retries are exhausted, or ctx is cancelled. The
// returned Summary is valid in all cases, including early error returns.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	r := e.resolve()
	cfg := e.Config
	start := time.Now()
	// StopMaxIterations is the default; every other exit path overrides it.
	summary := &Summary{StopReason: StopMaxIterations}

	if cfg.Git.SyncWithMain {
		r.sync()
	}

	ctx, endRun := traceStart(e.Tracer, ctx, "loop.run")
	defer func() {
		endRun(trace.Attr{Key: "stop_reason", Value: summary.StopReason.String()})
	}()

	retries := 0
	for i := 0; i < cfg.Loop.MaxIterations; i++ {
		if ctx.Err() != nil {
			summary.StopReason = StopInterrupted
			break
		}

		// Routing: an empty next task still proceeds; the agent is
		// expected to bootstrap the ledger.
		next, err := r.ledger.Next()
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		repoName := r.table.Route(next)
		repo, ok := cfg.Repo(repoName)
		if !ok {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("iteration %d: routed to unknown repo %q", i+1, repoName)
		}

		r.observer.IterationStarted(i+1, cfg.Loop.MaxIterations, next, repoName)

		if e.DryRun {
			writef(r.out, "dry-run: would invoke agent for %s in %s\n", displayTask(next), repo.Path)
			summary.Iterations++
			summary.StopReason = StopCompleted
			break
		}

		// Invoking: synchronous, no engine-level timeout.
		iterCtx, endIter := traceStart(e.Tracer, ctx, "loop.iteration")
		res, invokeErr := r.invoke(iterCtx, repo.Path, i+1)
		summary.Iterations++

		var dur time.Duration
		if res != nil {
			dur = res.Duration
		}

		// Checking and Verifying: the three failure classes in fixed order.
		_, endCheck := traceStart(e.Tracer, iterCtx, "loop.check")
		kind, detail := checkIteration(r, repo, res, invokeErr)
		endCheck(trace.Attr{Key: "outcome", Value: kind.String()})

		endIter(
			trace.Attr{Key: "task.id", Value: next},
			trace.Attr{Key: "repo", Value: repoName},
			trace.Attr{Key: "outcome", Value: kind.String()},
		)

		if kind != FailNone {
			willRetry := retries < cfg.Loop.RetryOnError
			writef(r.out, "%s\n", formatIterationLog(i+1, cfg.Loop.MaxIterations, next, repoName, kind, detail, dur))
			r.observer.IterationFinished(i+1, next, kind, willRetry, dur)

			if !willRetry {
				summary.StopReason = StopFailure
				summary.Failure = kind
				summary.FailureDetail = detail
				break
			}

			retries++
			summary.Retries++
			if kind == FailLedgerError {
				// Clear the marker so the retried attempt starts clean.
				if err := r.ledger.ClearError(); err != nil {
					writef(r.out, "warning: %v\n", err)
				}
			}
			writef(r.out, "retrying (%d/%d)\n", retries, cfg.Loop.RetryOnError)
			r.pause(time.Duration(cfg.Loop.PauseSeconds) * time.Second)
			continue
		}

		// Any fully successful iteration resets the retry counter.
		retries = 0

		// PostTask: non-gating.
		e.runHook(r, iterCtx, "postTask", cfg.Hooks.PostTask)

		// CommitCheck: a commit also triggers the postGroup hook.
		if cfg.Git.AutoCommit {
			_, endCommit := traceStart(e.Tracer, iterCtx, "loop.commit")
			committed := r.boundary.MaybeCommit() == BoundaryCommitted
			endCommit(trace.Attr{Key: "committed", Value: fmt.Sprintf("%t", committed)})
			if committed {
				summary.Commits++
				e.runHook(r, iterCtx, "postGroup", cfg.Hooks.PostGroup)
			}
		}

		writef(r.out, "%s\n", formatIterationLog(i+1, cfg.Loop.MaxIterations, next, repoName, FailNone, "", dur))
		r.observer.IterationFinished(i+1, next, FailNone, false, dur)

		// TerminationCheck.
		complete, err := r.ledger.IsComplete()
		if err != nil {
			summary.Duration = time.Since(start)
			return summary, fmt.Errorf("iteration %d: %w", i+1, err)
		}
		if complete {
			// Final boundary pass for any trailing uncommitted group.
			if cfg.Git.AutoCommit && r.boundary.CommitTrailing() == BoundaryCommitted {
				summary.Commits++
			}
			e.runHook(r, ctx, "onComplete", cfg.Hooks.OnComplete)
			summary.StopReason = StopCompleted
			break
		}

		if i+1 < cfg.Loop.MaxIterations {
			r.pause(time.Duration(cfg.Loop.PauseSeconds) * time.Second)
		}
	}

	summary.Duration = time.Since(start)
	writef(r.out, "\n%s\n", formatSummary(r.styles, summary))
	r.observer.RunFinished(summary)
	return summary, nil
}

// runHook runs one lifecycle hook under a span, reporting failures as
// warnings only.
func (e *Engine) runHook(r *resolved, ctx context.Context, name, script string) {
	_, end := traceStart(e.Tracer, ctx, "loop.hook."+name)
	hr := r.hook(name, script)
	end(trace.Attr{Key: "result", Value: hr.String()})
	if hr == checks.Fail {
		writef(r.out, "warning: %s hook failed\n", name)
	}
}

// checkIteration evaluates the three failure classes in their fixed order:
// agent exit, ledger error marker, verification.
func checkIteration(r *resolved, repo config.Repo, res *agent.Result, invokeErr error) (FailureKind, string) {
	if invokeErr != nil {
		return FailAgent, invokeErr.Error()
	}
	if res.Failed() {
		return FailAgent, fmt.Sprintf("agent exited %d", res.ExitCode)
	}

	hasErr, err := r.ledger.HasError()
	if err != nil {
		return FailLedgerError, err.Error()
	}
	if hasErr {
		text, _ := r.ledger.ErrorText()
		if text == "" {
			text = "ledger ERROR marker present"
		}
		return FailLedgerError, text
	}

	if r.verify(repo.Path, repo.VerifyCommand) == checks.Fail {
		return FailVerify, fmt.Sprintf("verify command failed: %s", repo.VerifyCommand)
	}

	return FailNone, ""
}

// traceStart wraps Tracer.Start so a nil tracer costs nothing.
func traceStart(t *trace.Tracer, ctx context.Context, name string) (context.Context, func(...trace.Attr)) {
	return t.Start(ctx, name)
}
