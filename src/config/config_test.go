package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"travis-log-fetch/src/logtemplate"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GITHUB_ACCESS_TOKEN", "TRAVIS_TOKEN", "TRAVIS_API", "TRAVIS_LOG_DIR", "LEDGER_DSN", "REDPANDA_BROKERS"} {
		t.Setenv(key, "")
	}
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	home := writeFile(t, dir, "home.toml", `
dir = "/var/travis"
api = "pro"
count = 3
brokers = ["a:9092", "b:9092"]
`)
	local := writeFile(t, dir, "local.toml", `
count = 5
format = "{slug}/{state}/{number}.log"
`)

	cfg, err := Load(home, local, filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := Default()
	want.Dir = "/var/travis"
	want.API = "pro"
	want.Count = 5
	want.Format = "{slug}/{state}/{number}.log"
	want.Brokers = []string{"a:9092", "b:9092"}
	if !reflect.DeepEqual(*cfg, want) {
		t.Errorf("Load() = %+v, want %+v", *cfg, want)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "syntax", content: "dir = ", wantErr: "failed to parse"},
		{name: "unknown key", content: "color = true\n", wantErr: "unknown keys color"},
		{name: "wrong type", content: "count = \"ten\"\n", wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "rc.toml", tt.content)
			_, err := Load(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"GITHUB_ACCESS_TOKEN": "gh",
		"TRAVIS_TOKEN":        "tr",
		"TRAVIS_API":          "https://travis.example.com",
		"TRAVIS_LOG_DIR":      "/logs",
		"LEDGER_DSN":          "postgres://localhost/ledger",
		"REDPANDA_BROKERS":    "r1:9092,r2:9092",
	}

	cfg := Default()
	cfg.ApplyEnv(func(key string) string { return env[key] })

	if cfg.AccessToken != "gh" || cfg.TravisToken != "tr" {
		t.Errorf("tokens = %q, %q", cfg.AccessToken, cfg.TravisToken)
	}
	if cfg.API != "https://travis.example.com" || cfg.Dir != "/logs" {
		t.Errorf("API = %q, Dir = %q", cfg.API, cfg.Dir)
	}
	if cfg.LedgerDSN != "postgres://localhost/ledger" {
		t.Errorf("LedgerDSN = %q", cfg.LedgerDSN)
	}
	if !reflect.DeepEqual(cfg.Brokers, []string{"r1:9092", "r2:9092"}) {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}

	unchanged := Default()
	unchanged.ApplyEnv(func(string) string { return "" })
	if !reflect.DeepEqual(unchanged, Default()) {
		t.Errorf("empty environment changed config: %+v", unchanged)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr bool
	}{
		{name: "default", modify: func(c *Config) {}},
		{name: "empty dir", modify: func(c *Config) { c.Dir = "" }, wantErr: true},
		{name: "negative sleep", modify: func(c *Config) { c.Sleep = -1 }, wantErr: true},
		{name: "negative count", modify: func(c *Config) { c.Count = -1 }, wantErr: true},
		{name: "bad format", modify: func(c *Config) { c.Format = "{slug}/{nope}" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)

			tmpl, err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && tmpl.String() != logtemplate.DefaultTemplate {
				t.Errorf("template = %q", tmpl.String())
			}
		})
	}
}

func TestPaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	cfg := Default()
	dir, err := cfg.LogDir()
	if err != nil {
		t.Fatal(err)
	}
	if dir != filepath.Join(home, ".travis") {
		t.Errorf("LogDir() = %q", dir)
	}

	paths := DefaultPaths()
	if paths[len(paths)-1] != FileName {
		t.Errorf("DefaultPaths() = %v, last should be %s", paths, FileName)
	}
	if cfg.SleepDuration() != 30*time.Second {
		t.Errorf("SleepDuration() = %v", cfg.SleepDuration())
	}
}
