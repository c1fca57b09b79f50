package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// rawConfig mirrors the YAML file shape. All keys are optional; defaults are
// applied during resolution.
type rawConfig struct {
	RalphFile    string   `yaml:"ralph_file"`
	ProgressFile string   `yaml:"progress_file"`
	ContextFiles []string `yaml:"context_files"`

	Repos rawRepos `yaml:"repos"`

	Git struct {
		FeatureBranch string `yaml:"feature_branch"`
		SyncWithMain  bool   `yaml:"sync_with_main"`
		AutoCommit    bool   `yaml:"auto_commit"`
		CommitPrefix  string `yaml:"commit_prefix"`
	} `yaml:"git"`

	Loop struct {
		MaxIterations *int `yaml:"max_iterations"`
		PauseSeconds  *int `yaml:"pause_seconds"`
		RetryOnError  *int `yaml:"retry_on_error"`
	} `yaml:"loop"`

	Hooks struct {
		PostTask   string `yaml:"post_task"`
		PostGroup  string `yaml:"post_group"`
		OnComplete string `yaml:"on_complete"`
	} `yaml:"hooks"`

	Permissions struct {
		Mode            string   `yaml:"mode"`
		DangerouslySkip bool     `yaml:"dangerously_skip"`
		AllowedTools    []string `yaml:"allowed_tools"`
	} `yaml:"permissions"`

	Agent struct {
		PTY bool `yaml:"pty"`
	} `yaml:"agent"`
}

// rawRepos accepts either of the two repo naming conventions: the primary
// backend/frontend pair, or the positional repo1/repo2 alias pair. Within a
// convention, backend (repo1) routes first and frontend (repo2) is the
// routing fallback.
type rawRepos struct {
	Backend  *rawRepo `yaml:"backend"`
	Frontend *rawRepo `yaml:"frontend"`
	Repo1    *rawRepo `yaml:"repo1"`
	Repo2    *rawRepo `yaml:"repo2"`
}

type rawRepo struct {
	Path          string   `yaml:"path"`
	TaskPrefixes  []string `yaml:"task_prefixes"`
	VerifyCommand string   `yaml:"verify_command"`
}

// Resolve loads, defaults, and validates the configuration at path. Warnings
// for non-fatal conditions (dropped context files) go to warn. The returned
// Config is fully resolved: all paths absolute, all defaults applied.
func Resolve(path string, warn io.Writer) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigMissing, path)
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrConfigInvalid, path, err)
	}

	root, err := filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	cfg := &Config{Root: root}
	if err := applyDefaults(cfg, &raw); err != nil {
		return nil, err
	}
	if err := validate(cfg, warn); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills cfg from raw, normalizing scalars and applying the
// documented defaults for unresolved optional keys.
func applyDefaults(cfg *Config, raw *rawConfig) error {
	cfg.RalphFile = absPath(cfg.Root, defaultStr(raw.RalphFile, DefaultRalphFile))
	cfg.ProgressFile = absPath(cfg.Root, defaultStr(raw.ProgressFile, DefaultProgressFile))

	for _, f := range raw.ContextFiles {
		if f = normalize(f); f != "" {
			cfg.ContextFiles = append(cfg.ContextFiles, absPath(cfg.Root, f))
		}
	}

	cfg.Repos = resolveRepos(cfg.Root, raw.Repos)

	cfg.Git = Git{
		FeatureBranch: normalize(raw.Git.FeatureBranch),
		SyncWithMain:  raw.Git.SyncWithMain,
		AutoCommit:    raw.Git.AutoCommit,
		CommitPrefix:  normalize(raw.Git.CommitPrefix),
	}

	cfg.Loop = Loop{
		MaxIterations: defaultInt(raw.Loop.MaxIterations, DefaultMaxIterations),
		PauseSeconds:  defaultInt(raw.Loop.PauseSeconds, DefaultPauseSeconds),
		RetryOnError:  defaultInt(raw.Loop.RetryOnError, DefaultRetryOnError),
	}

	cfg.Hooks = Hooks{
		PostTask:   normalize(raw.Hooks.PostTask),
		PostGroup:  normalize(raw.Hooks.PostGroup),
		OnComplete: normalize(raw.Hooks.OnComplete),
	}

	cfg.Permissions = Permissions{
		Mode:            defaultStr(raw.Permissions.Mode, DefaultPermissionMode),
		DangerouslySkip: raw.Permissions.DangerouslySkip,
	}
	for _, tool := range raw.Permissions.AllowedTools {
		if tool = normalize(tool); tool != "" {
			cfg.Permissions.AllowedTools = append(cfg.Permissions.AllowedTools, tool)
		}
	}

	cfg.Agent = Agent{PTY: raw.Agent.PTY}

	return nil
}

// resolveRepos canonicalizes the two accepted naming conventions into an
// ordered repo list. Default prefixes: B for the first repo, F for the second.
func resolveRepos(root string, raw rawRepos) []Repo {
	type named struct {
		name string
		raw  *rawRepo
	}
	pairs := []named{
		{"backend", raw.Backend},
		{"frontend", raw.Frontend},
	}
	if raw.Backend == nil && raw.Frontend == nil {
		pairs = []named{
			{"repo1", raw.Repo1},
			{"repo2", raw.Repo2},
		}
	}

	defaults := []string{DefaultBackendPrefix, DefaultFrontendPrefix}
	var repos []Repo
	for i, p := range pairs {
		if p.raw == nil || normalize(p.raw.Path) == "" {
			continue
		}
		r := Repo{
			Name:          p.name,
			Path:          absPath(root, normalize(p.raw.Path)),
			VerifyCommand: normalize(p.raw.VerifyCommand),
		}
		for _, pre := range p.raw.TaskPrefixes {
			if pre = normalize(pre); pre != "" {
				r.TaskPrefixes = append(r.TaskPrefixes, pre)
			}
		}
		if len(r.TaskPrefixes) == 0 && i < len(defaults) {
			r.TaskPrefixes = []string{defaults[i]}
		}
		repos = append(repos, r)
	}
	return repos
}

// validate enforces the fatal-at-start conditions: required files must exist,
// and at least one repo must be configured. Missing context files are dropped
// with a warning; hook scripts and repo directories are checked later.
func validate(cfg *Config, warn io.Writer) error {
	if _, err := os.Stat(cfg.RalphFile); err != nil {
		return fmt.Errorf("%w: task file %s: %v", ErrConfigInvalid, cfg.RalphFile, err)
	}
	if _, err := os.Stat(cfg.ProgressFile); err != nil {
		return fmt.Errorf("%w: progress file %s: %v", ErrConfigInvalid, cfg.ProgressFile, err)
	}

	kept := cfg.ContextFiles[:0]
	for _, f := range cfg.ContextFiles {
		if _, err := os.Stat(f); err != nil {
			if warn != nil {
				fmt.Fprintf(warn, "warning: context file %s not found, skipping\n", f)
			}
			continue
		}
		kept = append(kept, f)
	}
	cfg.ContextFiles = kept

	if len(cfg.Repos) == 0 {
		return fmt.Errorf("%w: no repository paths resolved", ErrConfigInvalid)
	}

	if cfg.Loop.MaxIterations <= 0 {
		return fmt.Errorf("%w: loop.max_iterations must be > 0", ErrConfigInvalid)
	}
	if cfg.Loop.PauseSeconds < 0 || cfg.Loop.RetryOnError < 0 {
		return fmt.Errorf("%w: loop.pause_seconds and loop.retry_on_error must be >= 0", ErrConfigInvalid)
	}

	return nil
}

// normalize trims whitespace and strips one layer of surrounding single or
// double quotes, so hand-edited values like '"RALPH.md"' resolve cleanly.
func normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			s = s[1 : len(s)-1]
		}
	}
	return strings.TrimSpace(s)
}

func defaultStr(s, def string) string {
	if s = normalize(s); s == "" {
		return def
	}
	return s
}

func defaultInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func absPath(root, p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
