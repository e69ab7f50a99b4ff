// Package config loads deskagent configuration from a TOML file, merging
// it over built-in defaults.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/deskos/deskagent/provider"
)

// Duration is a time.Duration that decodes from TOML strings like "90s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Config is the complete deskagent configuration.
type Config struct {
	Providers ProvidersConfig `toml:"providers"`
	Claude    ClaudeConfig    `toml:"claude"`
	Codex     CodexConfig     `toml:"codex"`
	Log       LogConfig       `toml:"log"`
}

// ProvidersConfig selects and orders backends.
type ProvidersConfig struct {
	// Priority lists provider identities in fallback order.
	Priority []string `toml:"priority"`
}

// ClaudeConfig configures the Claude CLI backend.
type ClaudeConfig struct {
	Model          string   `toml:"model"`
	Binary         string   `toml:"binary"`
	ReceiveTimeout Duration `toml:"receive_timeout"`
}

// CodexConfig configures the Codex app-server backend.
type CodexConfig struct {
	Model          string   `toml:"model"`
	Binary         string   `toml:"binary"`
	ApprovalPolicy string   `toml:"approval_policy"`
	Sandbox        string   `toml:"sandbox"`
	ReceiveTimeout Duration `toml:"receive_timeout"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Providers: ProvidersConfig{
			Priority: []string{"claude", "codex"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML file over the defaults. An empty path returns the
// defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Priority returns the configured fallback order as provider types,
// silently dropping unknown identities.
func (c Config) Priority() []provider.Type {
	var order []provider.Type
	for _, name := range c.Providers.Priority {
		t, err := provider.ParseType(name)
		if err != nil {
			continue
		}
		order = append(order, t)
	}
	if len(order) == 0 {
		order = provider.Types()
	}
	return order
}
