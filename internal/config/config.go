package config

import (
	"os"
	"runtime"
	"time"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ProjectKey string   `toml:"project_key"`
	Paths      []string `toml:"paths"`
	StorePath  string   `toml:"store_path"`
	History    History  `toml:"history"`
	Exclude    Exclude  `toml:"exclude"`
	Analysis   Analysis `toml:"analysis"`
	Watch      Watch    `toml:"watch"`
	Metrics    Metrics  `toml:"metrics"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Analysis struct {
	MaxHops int `toml:"max_hops"`
	Workers int `toml:"workers"`
}

type Watch struct {
	Debounce         time.Duration `toml:"debounce"`
	RebuildPerSecond float64       `toml:"rebuild_per_second"`
	RebuildBurst     int           `toml:"rebuild_burst"`
}

type History struct {
	Path string `toml:"path"`
}

type Metrics struct {
	Addr string `toml:"addr"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a config usable without a config file.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.ProjectKey == "" {
		c.ProjectKey = "default"
	}
	if len(c.Paths) == 0 {
		c.Paths = []string{"."}
	}
	if c.StorePath == "" {
		c.StorePath = ".ripple/graph.json"
	}
	if c.History.Path == "" {
		c.History.Path = ".ripple/history.db"
	}
	if c.Analysis.MaxHops <= 0 {
		c.Analysis.MaxHops = 10
	}
	if c.Analysis.Workers <= 0 {
		c.Analysis.Workers = runtime.NumCPU()
	}
	if c.Watch.Debounce == 0 {
		c.Watch.Debounce = 500 * time.Millisecond
	}
	if c.Watch.RebuildPerSecond <= 0 {
		c.Watch.RebuildPerSecond = 2
	}
	if c.Watch.RebuildBurst <= 0 {
		c.Watch.RebuildBurst = 1
	}
	if len(c.Exclude.Dirs) == 0 {
		c.Exclude.Dirs = []string{".git", "node_modules", "vendor", "__pycache__", "dist", "build"}
	}
}
