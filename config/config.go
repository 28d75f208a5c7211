// Package config loads process configuration for the agentrelay server from
// a YAML file, environment variables and built-in defaults, in ascending
// precedence of defaults < file < environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full process configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `mapstructure:"addr"`

	// Provider selects the model backend: "openai", "anthropic" or "mock".
	Provider string `mapstructure:"provider"`
	// Model is the provider-specific model identifier.
	Model string `mapstructure:"model"`

	// SQLitePath is the persistence database file. Empty selects the
	// in-memory store.
	SQLitePath string `mapstructure:"sqlite_path"`

	// SystemsDir holds system spec files loaded at startup.
	SystemsDir string `mapstructure:"systems_dir"`
	// ToolsDir holds the file-based UI tool registry. Empty selects the
	// in-memory registry.
	ToolsDir string `mapstructure:"tools_dir"`

	// SessionCacheSize bounds the number of live in-memory sessions.
	SessionCacheSize int `mapstructure:"session_cache_size"`
	// SessionTTL expires idle in-memory sessions.
	SessionTTL time.Duration `mapstructure:"session_ttl"`

	// MaxIterations caps agent invocations per chat turn.
	MaxIterations int `mapstructure:"max_iterations"`
	// RecencyWindow bounds eventless resume relevance.
	RecencyWindow time.Duration `mapstructure:"recency_window"`

	// CORSOrigins lists allowed browser origins. "*" allows all.
	CORSOrigins []string `mapstructure:"cors_origins"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// LogFormat is "json" or "text".
	LogFormat string `mapstructure:"log_format"`
}

// Load reads configuration from the given file path (optional; empty skips
// the file) plus AGENTRELAY_* environment variables.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("addr", ":8080")
	v.SetDefault("provider", "mock")
	v.SetDefault("model", "")
	v.SetDefault("sqlite_path", "")
	v.SetDefault("systems_dir", "")
	v.SetDefault("tools_dir", "")
	v.SetDefault("session_cache_size", 1024)
	v.SetDefault("session_ttl", 24*time.Hour)
	v.SetDefault("max_iterations", 10)
	v.SetDefault("recency_window", 60*time.Second)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetEnvPrefix("AGENTRELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks configuration invariants not expressible as defaults.
func (c *Config) Validate() error {
	switch c.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.SessionCacheSize <= 0 {
		return fmt.Errorf("session_cache_size must be positive, got %d", c.SessionCacheSize)
	}
	if c.MaxIterations <= 0 {
		return fmt.Errorf("max_iterations must be positive, got %d", c.MaxIterations)
	}
	if c.RecencyWindow <= 0 {
		return fmt.Errorf("recency_window must be positive, got %s", c.RecencyWindow)
	}
	return nil
}
