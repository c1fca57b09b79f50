package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"ralphloop/internal/config"
	"ralphloop/internal/loop"
	"ralphloop/internal/trace"
	"ralphloop/internal/transcript"
	"ralphloop/internal/tui"
)

// cliConfig holds the parsed CLI configuration for a ralph run.
type cliConfig struct {
	configPath    string
	maxIterations int
	dryRun        bool
	verbose       bool
	watch         bool
}

func parseFlags() cliConfig {
	var cfg cliConfig

	flag.StringVar(&cfg.configPath, "config", "", "path to ralph.yml (default: ralph.yml next to the executable, then ./ralph.yml)")
	flag.IntVar(&cfg.maxIterations, "max-iterations", 0, "override the configured iteration cap")
	flag.BoolVar(&cfg.dryRun, "dry-run", false, "print the next routing decision without invoking the agent")
	flag.BoolVar(&cfg.verbose, "verbose", false, "stream agent output to the console")
	flag.BoolVar(&cfg.watch, "watch", false, "run with a live terminal view of the loop")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ralph [flags]\n\n")
		fmt.Fprintf(os.Stderr, "Ralph repeatedly invokes an autonomous coding agent against a task\n")
		fmt.Fprintf(os.Stderr, "list, routing each task to its repository and committing completed\n")
		fmt.Fprintf(os.Stderr, "task groups, until the progress ledger reports completion.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}

	flag.Parse()
	return cfg
}

// findConfig resolves the config path: explicit flag, then ralph.yml next to
// the executable, then ralph.yml in the current directory.
func findConfig(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "ralph.yml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "ralph.yml"
}

func run(cli cliConfig) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Resolve(findConfig(cli.configPath), os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ralph: %v\n", err)
		if errors.Is(err, config.ErrConfigMissing) {
			fmt.Fprintln(os.Stderr, "ralph: create ralph.yml or pass -config")
		}
		return 1
	}

	if cli.maxIterations > 0 {
		cfg.Loop.MaxIterations = cli.maxIterations
	}

	transcripts, err := transcript.New(cfg.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ralph: %v\n", err)
		return 1
	}

	tracer, err := trace.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ralph: tracing disabled: %v\n", err)
	}
	defer tracer.Shutdown(context.Background())

	engine := &loop.Engine{
		Config:      cfg,
		DryRun:      cli.dryRun,
		Verbose:     cli.verbose,
		Transcripts: transcripts,
		Tracer:      tracer,
	}

	var summary *loop.Summary
	if cli.watch && !cli.dryRun {
		summary, err = tui.Watch(ctx, engine)
	} else {
		summary, err = engine.Run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "ralph: %v\n", err)
		return 1
	}

	return summary.StopReason.ExitCode()
}

func main() {
	os.Exit(run(parseFlags()))
}
