// Package config loads the ralph configuration file into an immutable Config
// value. The file is YAML: scalars at up to three levels of nesting, lists
// under one- and two-level keys. Resolution happens once at startup; every
// component receives the resolved value, and nothing mutates it afterwards.
package config

import (
	"errors"

	"ralphloop/internal/task"
)

// Sentinel errors for the two fatal-at-start conditions.
var (
	// ErrConfigMissing indicates the configuration file itself was not found.
	ErrConfigMissing = errors.New("config file not found")
	// ErrConfigInvalid indicates the configuration references required files
	// or directories that do not exist, or resolves no repositories at all.
	ErrConfigInvalid = errors.New("config invalid")
)

// Defaults applied for unresolved optional keys.
const (
	DefaultRalphFile      = "RALPH.md"
	DefaultProgressFile   = "progress.txt"
	DefaultPermissionMode = "acceptEdits"
	DefaultMaxIterations  = 100
	DefaultPauseSeconds   = 2
	DefaultRetryOnError   = 0
	DefaultBackendPrefix  = "B"
	DefaultFrontendPrefix = "F"
)

// Repo is one tracked working tree and its routing prefixes.
type Repo struct {
	Name          string
	Path          string
	TaskPrefixes  []string
	VerifyCommand string // empty means verification is vacuously a pass
}

// Git holds version-control behaviour for the run.
type Git struct {
	FeatureBranch string
	SyncWithMain  bool
	AutoCommit    bool
	CommitPrefix  string
}

// Loop bounds the iteration engine.
type Loop struct {
	MaxIterations int // > 0
	PauseSeconds  int // >= 0
	RetryOnError  int // >= 0
}

// Hooks names the optional lifecycle scripts, relative to the orchestration
// root. Existence is checked at call time, not load time.
type Hooks struct {
	PostTask   string
	PostGroup  string
	OnComplete string
}

// Permissions is passed through to the agent invocation opaquely; the core
// interprets nothing here beyond presence.
type Permissions struct {
	Mode            string
	DangerouslySkip bool
	AllowedTools    []string
}

// Agent holds agent process options.
type Agent struct {
	// PTY runs the agent under a pseudo-terminal so agents that detect
	// TTYs stream progress output.
	PTY bool
}

// Config is the fully-defaulted, validated runtime configuration.
type Config struct {
	// Root is the orchestration root: the directory containing the config
	// file. Hook scripts and relative paths resolve against it.
	Root string

	RalphFile    string
	ProgressFile string
	ContextFiles []string

	// Repos in routing order. The last repo is the routing fallback for
	// task prefixes that match no configured prefix.
	Repos []Repo

	Git         Git
	Loop        Loop
	Hooks       Hooks
	Permissions Permissions
	Agent       Agent
}

// Repo looks up a configured repo by name.
func (c *Config) Repo(name string) (Repo, bool) {
	for _, r := range c.Repos {
		if r.Name == name {
			return r, true
		}
	}
	return Repo{}, false
}

// DefaultRepo returns the designated fallback repo: the last configured one.
func (c *Config) DefaultRepo() Repo {
	return c.Repos[len(c.Repos)-1]
}

// Routing builds the prefix routing table from the configured repos.
func (c *Config) Routing() *task.Table {
	tbl := task.NewTable(c.DefaultRepo().Name)
	for _, r := range c.Repos {
		for _, p := range r.TaskPrefixes {
			tbl.Add(p, r.Name)
		}
	}
	return tbl
}
