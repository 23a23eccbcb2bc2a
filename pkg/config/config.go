// Package config loads GuardKit configuration from a YAML file with
// environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a field.
const (
	DefaultStorePath  = ".guardkit/knowledge.db"
	DefaultCoachModel = "claude-sonnet-4-20250514"
	DefaultTasksDir   = "tasks"
	DefaultDocsDir    = "docs"
)

// Config is the root configuration for a GuardKit project.
type Config struct {
	// Project is the namespace prefix applied to every knowledge group.
	Project string      `yaml:"project"`
	Store   StoreConfig `yaml:"store"`
	Coach   CoachConfig `yaml:"coach"`
	// TasksDir holds the task state directories (backlog, in_progress, ...).
	TasksDir string `yaml:"tasks_dir"`
	// DocsDir receives generated architecture artefacts.
	DocsDir string `yaml:"docs_dir"`
}

// StoreConfig configures the local knowledge store.
type StoreConfig struct {
	Path    string `yaml:"path"`
	Enabled bool   `yaml:"enabled"`
}

// CoachConfig configures the optional coach agent.
type CoachConfig struct {
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// Default returns a config with all defaults applied and the store enabled.
func Default() *Config {
	return &Config{
		Project: "default",
		Store: StoreConfig{
			Path:    DefaultStorePath,
			Enabled: true,
		},
		Coach: CoachConfig{
			Model:     DefaultCoachModel,
			MaxTokens: 4096,
		},
		TasksDir: DefaultTasksDir,
		DocsDir:  DefaultDocsDir,
	}
}

// Load reads the YAML config at path, applies defaults for missing fields,
// then applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Project == "" {
		cfg.Project = "default"
	}
	if cfg.Store.Path == "" {
		cfg.Store.Path = DefaultStorePath
	}
	if cfg.Coach.Model == "" {
		cfg.Coach.Model = DefaultCoachModel
	}
	if cfg.Coach.MaxTokens <= 0 {
		cfg.Coach.MaxTokens = 4096
	}
	if cfg.TasksDir == "" {
		cfg.TasksDir = DefaultTasksDir
	}
	if cfg.DocsDir == "" {
		cfg.DocsDir = DefaultDocsDir
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GUARDKIT_PROJECT"); v != "" {
		cfg.Project = v
	}
	if v := os.Getenv("GUARDKIT_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("GUARDKIT_COACH_MODEL"); v != "" {
		cfg.Coach.Model = v
	}
}

// TaskDirs returns the task state directories searched when resolving a task
// ID, in lookup order.
func (c *Config) TaskDirs() []string {
	return []string{
		filepath.Join(c.TasksDir, "in_progress"),
		filepath.Join(c.TasksDir, "backlog"),
		filepath.Join(c.TasksDir, "design_approved"),
	}
}

// ArtefactsDir returns the directory architecture artefacts are written to.
func (c *Config) ArtefactsDir() string {
	return filepath.Join(c.DocsDir, "architecture")
}
