package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// DefaultDatabase is the SQLite path used when none is configured, relative
// to the project root.
const DefaultDatabase = ".nexus/nexus.db"

// LogConfig selects the log level and format.
type LogConfig struct {
	Level string `yaml:"level,omitempty"`
	JSON  bool   `yaml:"json,omitempty"`
}

// ProjectConfig holds project-level settings loaded from nexus.yml.
type ProjectConfig struct {
	Workers       int       `yaml:"workers,omitempty"`
	Exclude       []string  `yaml:"exclude,omitempty"`
	Database      string    `yaml:"database,omitempty"`
	GraphDatabase string    `yaml:"graph_database,omitempty"`
	Log           LogConfig `yaml:"log,omitempty"`

	// Swift is accepted for forward compatibility; Swift files stay
	// discovery-only regardless.
	Swift bool `yaml:"swift,omitempty"`
}

// Load attempts to read nexus.yml or nexus.yaml from the given directory.
// Returns a config with defaults applied (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"nexus.yml", "nexus.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		if cfg.Workers < 0 {
			return nil, fmt.Errorf("%s: workers must not be negative, got %d", name, cfg.Workers)
		}
		cfg.applyDefaults()
		return &cfg, nil
	}
	cfg := &ProjectConfig{}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *ProjectConfig) applyDefaults() {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Database == "" {
		c.Database = DefaultDatabase
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// DatabasePath returns the SQLite path, resolved against root when relative.
func (c *ProjectConfig) DatabasePath(root string) string {
	return resolve(root, c.Database)
}

// GraphDatabasePath returns the Kuzu directory resolved against root, or ""
// when no graph mirror is configured.
func (c *ProjectConfig) GraphDatabasePath(root string) string {
	if c.GraphDatabase == "" {
		return ""
	}
	return resolve(root, c.GraphDatabase)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}
