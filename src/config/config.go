// Package config provides configuration management for travis-log-fetch.
//
// Values are layered: defaults, then each TOML file in order, then the
// environment. Command line flags are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"travis-log-fetch/src/logtemplate"
)

// FileName is the name of the per-user and per-directory config file.
const FileName = ".travisrc"

// Config holds the application configuration.
type Config struct {
	// Dir is the root of the stored log tree.
	Dir string `toml:"dir"`
	// API is the Travis API base URL, or "org" / "pro".
	API string `toml:"api"`
	// TravisToken authenticates against the Travis API.
	TravisToken string `toml:"travis_token"`
	// AccessToken is a GitHub token, used to list forks.
	AccessToken string `toml:"access_token"`
	// Format is the stored log filename template.
	Format string `toml:"format"`
	// Sleep is the number of seconds between polls of pending jobs.
	Sleep int `toml:"sleep"`
	// Count is the number of builds per repository taken by --old.
	Count int `toml:"count"`

	// LedgerDSN selects the Postgres fetch ledger; empty keeps it in memory.
	LedgerDSN string `toml:"ledger_dsn"`
	// Brokers are Redpanda seed brokers; empty keeps events in process.
	Brokers []string `toml:"brokers"`
	// Topic receives one event per fetched log.
	Topic string `toml:"topic"`
}

// Default returns the configuration used when nothing is configured.
func Default() Config {
	return Config{
		Dir:    "~/.travis",
		API:    "org",
		Format: logtemplate.DefaultTemplate,
		Sleep:  30,
		Count:  10,
	}
}

// DefaultPaths returns the config files read when none is given explicitly:
// the user's home file, then the one in the working directory.
func DefaultPaths() []string {
	var paths []string
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	return append(paths, FileName)
}

// Load reads the given TOML files over the defaults, in order, and then
// applies the environment. Missing files are ignored; unknown keys are an
// error.
func Load(paths ...string) (*Config, error) {
	cfg := Default()
	for _, path := range paths {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return &cfg, nil
}

func (c *Config) mergeFile(path string) error {
	path, err := expandPath(path)
	if err != nil {
		return err
	}

	md, err := toml.DecodeFile(path, c)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// ApplyEnv overrides values from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GITHUB_ACCESS_TOKEN"); v != "" {
		c.AccessToken = v
	}
	if v := getenv("TRAVIS_TOKEN"); v != "" {
		c.TravisToken = v
	}
	if v := getenv("TRAVIS_API"); v != "" {
		c.API = v
	}
	if v := getenv("TRAVIS_LOG_DIR"); v != "" {
		c.Dir = v
	}
	if v := getenv("LEDGER_DSN"); v != "" {
		c.LedgerDSN = v
	}
	if v := getenv("REDPANDA_BROKERS"); v != "" {
		c.Brokers = strings.Split(v, ",")
	}
}

// Validate checks the values and compiles the filename template.
func (c *Config) Validate() (*logtemplate.Template, error) {
	if c.Dir == "" {
		return nil, fmt.Errorf("dir must not be empty")
	}
	if c.Sleep < 0 {
		return nil, fmt.Errorf("sleep must not be negative, got %d", c.Sleep)
	}
	if c.Count < 0 {
		return nil, fmt.Errorf("count must not be negative, got %d", c.Count)
	}

	tmpl, err := logtemplate.Compile(c.Format)
	if err != nil {
		return nil, fmt.Errorf("invalid format %q: %w", c.Format, err)
	}
	return tmpl, nil
}

// LogDir returns Dir with a leading ~ expanded.
func (c *Config) LogDir() (string, error) {
	return expandPath(c.Dir)
}

// SleepDuration returns Sleep as a duration.
func (c *Config) SleepDuration() time.Duration {
	return time.Duration(c.Sleep) * time.Second
}

// expandPath expands ~ to the user's home directory
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path[1:], "/")), nil
	}
	return path, nil
}
