// Package config defines the relay daemon configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level daemon configuration.
type Config struct {
	Server   ServerConfig `yaml:"server"`
	Store    StoreConfig  `yaml:"store"`
	Agent    AgentConfig  `yaml:"agent"`
	Auth     AuthConfig   `yaml:"auth"`
	Notify   NotifyConfig `yaml:"notify"`
	LogLevel string       `yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string `yaml:"addr"`
}

// StoreConfig selects and configures the task state store backend.
type StoreConfig struct {
	// Kind is one of "memory", "sqlite" or "github".
	Kind string `yaml:"kind"`
	// DBPath is the SQLite database path (sqlite backend).
	DBPath string `yaml:"db_path"`
	// Repo is the GitHub state repository (github backend).
	Repo string `yaml:"repo"`
	// Branch is the state branch (github backend).
	Branch string `yaml:"branch"`
	// Token is the GitHub API token (github backend). The GITHUB_TOKEN
	// environment variable takes precedence.
	Token string `yaml:"token"`
}

// AgentConfig configures the agent runner.
type AgentConfig struct {
	// Provider is one of "anthropic" or "fake".
	Provider string `yaml:"provider"`
	// APIKey is the provider API key. The ANTHROPIC_API_KEY environment
	// variable takes precedence.
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
	// SystemPromptSuffix is appended to every system prompt.
	SystemPromptSuffix string `yaml:"system_prompt_suffix"`
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	// JWTSecret is the HS256 secret used to validate bearer tokens.
	JWTSecret string `yaml:"jwt_secret"`
}

// NotifyConfig configures the issue-tracker notifier.
type NotifyConfig struct {
	// Token is the GitHub API token used for issue comments.
	Token string `yaml:"token"`
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server:   ServerConfig{Addr: ":8080"},
		Store:    StoreConfig{Kind: "sqlite", DBPath: "./relay.db"},
		Agent:    AgentConfig{Provider: "anthropic"},
		LogLevel: "info",
	}
}

// Load reads a YAML config file on top of the defaults. Environment
// credentials override file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	cfg.applyEnv()

	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Agent.APIKey = v
	}
	if v := os.Getenv("GITHUB_TOKEN"); v != "" {
		c.Store.Token = v
		if c.Notify.Token == "" {
			c.Notify.Token = v
		}
	}
	if v := os.Getenv("RELAY_JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
}
