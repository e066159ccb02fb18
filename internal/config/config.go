// Package config handles Steward configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./steward.yaml, ~/.config/steward/config.yaml, /etc/steward/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"steward.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "steward", "config.yaml"))
	}

	paths = append(paths, "/etc/steward/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Steward configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Models    ModelsConfig    `yaml:"models"`
	Anthropic AnthropicConfig `yaml:"anthropic"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Engine    EngineConfig    `yaml:"engine"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	DataDir   string          `yaml:"data_dir"`
	Persona   string          `yaml:"persona"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// AnthropicConfig defines Anthropic API settings.
type AnthropicConfig struct {
	APIKey string `yaml:"api_key"`
}

// OpenAIConfig defines settings for an OpenAI-compatible provider.
type OpenAIConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// ModelsConfig defines model selection settings.
type ModelsConfig struct {
	Default   string        `yaml:"default"`
	Available []ModelConfig `yaml:"available"`
}

// ModelConfig binds a model name to the provider that serves it.
type ModelConfig struct {
	Name     string `yaml:"name"`
	Provider string `yaml:"provider"` // anthropic, openai
}

// EngineConfig holds the turn engine tunables.
type EngineConfig struct {
	ToolRounds      int `yaml:"tool_rounds"`       // max tool-dispatch rounds per turn
	HistoryLimit    int `yaml:"history_limit"`     // most-recent-N messages replayed
	RoundTimeoutSec int `yaml:"round_timeout_sec"` // wall-clock budget per round, in seconds
	MaxTokens       int `yaml:"max_tokens"`        // hard cap on the per-turn token budget
}

// RoundTimeout returns the per-round wall-clock budget as a duration.
func (e EngineConfig) RoundTimeout() time.Duration {
	return time.Duration(e.RoundTimeoutSec) * time.Second
}

// RateLimitConfig defines per-identity admission control.
type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"` // sustained turns per minute per user
	Burst     int `yaml:"burst"`
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration.
func Default() *Config {
	return &Config{
		Listen:  ListenConfig{Port: 8080},
		DataDir: "data",
		Models: ModelsConfig{
			Default: "claude-sonnet-4-20250514",
			Available: []ModelConfig{
				{Name: "claude-sonnet-4-20250514", Provider: "anthropic"},
				{Name: "gpt-4o-mini", Provider: "openai"},
			},
		},
		Engine: EngineConfig{
			ToolRounds:      5,
			HistoryLimit:    20,
			RoundTimeoutSec: 60,
			MaxTokens:       4096,
		},
		RateLimit: RateLimitConfig{
			PerMinute: 20,
			Burst:     5,
		},
	}
}

// ProviderFor returns the configured provider for a model name.
// Unknown models fall back to the anthropic provider.
func (c *Config) ProviderFor(model string) string {
	for _, m := range c.Models.Available {
		if m.Name == model {
			return m.Provider
		}
	}
	return "anthropic"
}
