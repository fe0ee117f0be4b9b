// Package config provides loading and parsing of graphgate.yaml
// configuration files covering the Redis connection, permission cache,
// audit trail, and leak detection settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a graphgate.yaml configuration file.
type Config struct {
	// RedisURL is the connection string for the access control store.
	// Empty disables Redis-backed access control; the gateway then runs
	// without permission checks.
	RedisURL string `yaml:"redis_url,omitempty"`

	// CacheTTLSeconds is the permission cache lifetime.
	// Default: 300 (5 minutes)
	CacheTTLSeconds int `yaml:"cache_ttl_seconds,omitempty"`

	// AuditLog toggles the access control audit trail.
	// nil means enabled.
	AuditLog *bool `yaml:"audit_log,omitempty"`

	// ContextWindow is how many characters around a detected leak the
	// isolation guard captures for its report.
	// Default: 50
	ContextWindow int `yaml:"context_window,omitempty"`

	// BaseTemplate is the partition new projects clone when no
	// explicit template is named. Empty means projects start empty.
	BaseTemplate string `yaml:"base_template,omitempty"`

	// ReservedNames adds deployment-specific project IDs to the
	// built-in reserved set.
	ReservedNames []string `yaml:"reserved_names,omitempty"`
}

// CacheTTL returns the configured cache TTL or the default value.
func (c *Config) CacheTTL() time.Duration {
	if c == nil || c.CacheTTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// AuditEnabled reports whether the audit trail is on. Defaults to on.
func (c *Config) AuditEnabled() bool {
	if c == nil || c.AuditLog == nil {
		return true
	}
	return *c.AuditLog
}

// GetContextWindow returns the leak context window or the default.
func (c *Config) GetContextWindow() int {
	if c == nil || c.ContextWindow <= 0 {
		return 50
	}
	return c.ContextWindow
}

// Default returns a Config carrying only defaults.
func Default() *Config {
	return &Config{}
}

// Load reads and parses a graphgate.yaml file from the given path.
// If the path is a directory, it looks for graphgate.yaml or
// graphgate.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	configPath := path
	if info.IsDir() {
		yamlPath := filepath.Join(path, "graphgate.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "graphgate.yml")
			if _, err := os.Stat(ymlPath); err != nil {
				return nil, fmt.Errorf("no graphgate.yaml or graphgate.yml found in %s", path)
			}
			configPath = ymlPath
		}
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}
