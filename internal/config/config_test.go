package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripple.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ProjectKey != "default" {
		t.Errorf("expected default project key, got %q", cfg.ProjectKey)
	}
	if len(cfg.Paths) != 1 || cfg.Paths[0] != "." {
		t.Errorf("expected default path, got %v", cfg.Paths)
	}
	if cfg.Analysis.MaxHops != 10 {
		t.Errorf("expected default max hops 10, got %d", cfg.Analysis.MaxHops)
	}
	if cfg.Analysis.Workers <= 0 {
		t.Error("expected positive default worker count")
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("expected default debounce, got %v", cfg.Watch.Debounce)
	}
}

func TestLoad_Values(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ripple.toml")
	content := `
project_key = "backend"
paths = ["./src"]
store_path = "/tmp/graph.json"

[analysis]
max_hops = 4
workers = 2

[exclude]
dirs = ["gen"]
files = ["*.min.js"]

[metrics]
addr = ":9109"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.ProjectKey != "backend" {
		t.Errorf("project_key = %q", cfg.ProjectKey)
	}
	if cfg.Analysis.MaxHops != 4 {
		t.Errorf("max_hops = %d", cfg.Analysis.MaxHops)
	}
	if cfg.Analysis.Workers != 2 {
		t.Errorf("workers = %d", cfg.Analysis.Workers)
	}
	if len(cfg.Exclude.Dirs) != 1 || cfg.Exclude.Dirs[0] != "gen" {
		t.Errorf("exclude dirs = %v", cfg.Exclude.Dirs)
	}
	if cfg.Metrics.Addr != ":9109" {
		t.Errorf("metrics addr = %q", cfg.Metrics.Addr)
	}
}

func TestLoad_Missing(t *testing.T) {
	if _, err := Load("/nonexistent/ripple.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}
