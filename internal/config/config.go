// Package config loads the repository list and runtime settings of the
// notebook host.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/mike-a-ellis/notebook-host/internal/notebook"
)

// Defaults for optional settings.
const (
	DefaultPath         = "repositories.toml"
	DefaultReposDir     = "/data/repos"
	DefaultIndexDir     = "/data/notebooks"
	DefaultStateDir     = "/data/state"
	DefaultConcurrency  = 4
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 1234
	DefaultRemoteURL    = "https://github.com/{owner}/{repo}.git"
	DefaultReadyTimeout = 2 * time.Minute

	// TokenEnv is the environment variable holding the access token.
	TokenEnv = "GITHUB_TOKEN"
)

// DefaultBranches are tried in order when pulling: primary, then legacy.
var DefaultBranches = []string{"main", "master"}

// Publish modes for the index directory.
const (
	PublishSymlink = "symlink"
	PublishCopy    = "copy"
)

// ServerConfig describes the notebook server process.
type ServerConfig struct {
	Command      string   `toml:"command"`
	Args         []string `toml:"args"`
	Host         string   `toml:"host"`
	Port         int      `toml:"port"`
	ReadyTimeout Duration `toml:"ready_timeout"`
}

// Config holds all notebook host configuration.
type Config struct {
	Secrets      []string                 `toml:"secrets"`
	Repositories []notebook.RepositoryRef `toml:"repository"`
	ReposDir     string                   `toml:"repos_dir"`
	IndexDir     string                   `toml:"index_dir"`
	StateDir     string                   `toml:"state_dir"`
	Branches     []string                 `toml:"branches"`
	Concurrency  int                      `toml:"concurrency"`
	SyncRate     float64                  `toml:"sync_rate"`
	PublishMode  string                   `toml:"publish_mode"`
	RemoteURL    string                   `toml:"remote_url"`
	Server       ServerConfig             `toml:"server"`

	// ResolveDefaultBranch asks the GitHub API for each repository's
	// default branch and tries it before Branches.
	ResolveDefaultBranch bool `toml:"resolve_default_branch"`

	// Token is read from TokenEnv, never from the file.
	Token string `toml:"-"`
}

// Duration lets TOML carry Go duration strings such as "90s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Load reads configuration from the given TOML file path, applies defaults
// and environment overrides. A missing or malformed file is a *ConfigError.
// Environment variables always take precedence over file values:
//   - HOST, PORT override server.host, server.port
//   - NOTEBOOK_REPOS_DIR, NOTEBOOK_INDEX_DIR, NOTEBOOK_STATE_DIR override the directories
//   - SYNC_CONCURRENCY overrides concurrency
func Load(path string) (*Config, error) {
	var cfg Config
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &ConfigError{Field: "file", Err: fmt.Errorf("%w: %s", ErrNoConfigFile, path)}
		}
		return nil, &ConfigError{Field: "file", Err: fmt.Errorf("parse %s: %w", path, err)}
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, &ConfigError{Field: undecoded[0].String(), Err: ErrUnknownKey}
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ReposDir == "" {
		c.ReposDir = DefaultReposDir
	}
	if c.IndexDir == "" {
		c.IndexDir = DefaultIndexDir
	}
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir
	}
	if len(c.Branches) == 0 {
		c.Branches = append([]string(nil), DefaultBranches...)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.PublishMode == "" {
		c.PublishMode = PublishSymlink
	}
	if c.RemoteURL == "" {
		c.RemoteURL = DefaultRemoteURL
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadyTimeout.Duration <= 0 {
		c.Server.ReadyTimeout.Duration = DefaultReadyTimeout
	}
	if c.Server.Command == "" {
		c.Server.Command = "julia"
		// Explicit args are kept even when only the command is defaulted.
		if len(c.Server.Args) == 0 {
			c.Server.Args = []string{
				"--project=@.",
				"-e",
				`using PlutoSliderServer; PlutoSliderServer.run_directory("{notebook_dir}"; SliderServer_host="{host}", SliderServer_port={port})`,
			}
		}
	}
}

func applyEnvOverrides(cfg *Config) error {
	cfg.Token = os.Getenv(TokenEnv)
	if v := os.Getenv("HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "PORT", Err: fmt.Errorf("%w: %q", ErrInvalidValue, v)}
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("NOTEBOOK_REPOS_DIR"); v != "" {
		cfg.ReposDir = v
	}
	if v := os.Getenv("NOTEBOOK_INDEX_DIR"); v != "" {
		cfg.IndexDir = v
	}
	if v := os.Getenv("NOTEBOOK_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("SYNC_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: "SYNC_CONCURRENCY", Err: fmt.Errorf("%w: %q", ErrInvalidValue, v)}
		}
		cfg.Concurrency = n
	}
	return nil
}

// Validate checks the repository list, required secrets and tunables.
// Every failure is a *ConfigError.
func (c *Config) Validate() error {
	if len(c.Repositories) == 0 {
		return &ConfigError{Field: "repository", Err: ErrNoRepositories}
	}
	seen := make(map[string]bool, len(c.Repositories))
	for i, ref := range c.Repositories {
		if err := ref.Validate(); err != nil {
			return &ConfigError{Field: fmt.Sprintf("repository[%d]", i), Err: err}
		}
		if seen[ref.Key()] {
			return &ConfigError{Field: fmt.Sprintf("repository[%d]", i), Err: fmt.Errorf("%w: %s", ErrDuplicateRepository, ref)}
		}
		seen[ref.Key()] = true
	}
	for _, name := range c.Secrets {
		if os.Getenv(name) == "" {
			return &ConfigError{Field: "secrets", Err: fmt.Errorf("%w: %s", ErrMissingSecret, name)}
		}
	}
	if c.PublishMode != PublishSymlink && c.PublishMode != PublishCopy {
		return &ConfigError{Field: "publish_mode", Err: fmt.Errorf("%w: %q", ErrInvalidValue, c.PublishMode)}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return &ConfigError{Field: "server.port", Err: fmt.Errorf("%w: %d", ErrInvalidValue, c.Server.Port)}
	}
	for _, b := range c.Branches {
		if b == "" {
			return &ConfigError{Field: "branches", Err: fmt.Errorf("%w: empty branch name", ErrInvalidValue)}
		}
	}
	if c.SyncRate < 0 {
		return &ConfigError{Field: "sync_rate", Err: fmt.Errorf("%w: %v", ErrInvalidValue, c.SyncRate)}
	}
	return nil
}

// ManifestPath is where the indexer records provenance of the last index.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.StateDir, "index.json")
}
