package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Audit store backends.
const (
	AuditMemory = "memory"
	AuditKuzu   = "kuzu"
)

// ProjectConfig holds settings loaded from ted2ocds.yml.
type ProjectConfig struct {
	Workers            int      `yaml:"workers,omitempty"`
	IdentifierKeys     []string `yaml:"identifierKeys,omitempty"`
	DisabledConverters []string `yaml:"disabledConverters,omitempty"`
	OCIDPrefix         string   `yaml:"ocidPrefix,omitempty"`
	Indent             bool     `yaml:"indent,omitempty"`
	AuditStore         string   `yaml:"auditStore,omitempty"`
	AuditPath          string   `yaml:"auditPath,omitempty"`
	Debug              bool     `yaml:"debug,omitempty"`
	LogFile            string   `yaml:"logFile,omitempty"`
}

// Load attempts to read ted2ocds.yml or ted2ocds.yaml from the given
// directory. Returns a zero-value config (not an error) if no config file
// exists.
func Load(dir string) (*ProjectConfig, error) {
	for _, name := range []string{"ted2ocds.yml", "ted2ocds.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg ProjectConfig
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("config: %s: %w", path, err)
		}
		return &cfg, nil
	}
	return &ProjectConfig{}, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *ProjectConfig) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	for _, k := range c.IdentifierKeys {
		if k == "" {
			return errors.New("identifierKeys must not contain an empty key")
		}
	}
	switch c.AuditStore {
	case "", AuditMemory:
	case AuditKuzu:
		if c.AuditPath == "" {
			return errors.New("auditPath is required for the kuzu audit store")
		}
	default:
		return fmt.Errorf("unknown auditStore %q", c.AuditStore)
	}
	return nil
}
