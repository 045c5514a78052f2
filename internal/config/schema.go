// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for tgecho.
package config

import (
	"log/slog"
	"strings"
	"time"

	"github.com/flemzord/tgecho/internal/errtrack"
	"github.com/flemzord/tgecho/internal/gateway"
	"github.com/flemzord/tgecho/internal/probe"
	"github.com/flemzord/tgecho/internal/telegram"
	"github.com/flemzord/tgecho/internal/tracing"
)

// CurrentVersion is the only supported config format version.
const CurrentVersion = "1"

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	Log      LogConfig       `yaml:"log"`
	Gateway  gateway.Config  `yaml:"gateway"`
	Telegram TelegramConfig  `yaml:"telegram"`
	Probe    probe.Config    `yaml:"probe"`
	Tracing  tracing.Config  `yaml:"tracing"`
	Errors   errtrack.Config `yaml:"errors"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is "text" (default) or "json".
	Format string `yaml:"format"`
}

// SlogLevel converts Level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// TelegramConfig configures the outbound Bot API client.
type TelegramConfig struct {
	APIURL  string        `yaml:"api_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns a configuration that needs no file: the webhook takes
// its token from the request path.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero values in every section.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	c.Log.Format = strings.ToLower(c.Log.Format)
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = telegram.DefaultAPIURL
	}
	if c.Telegram.Timeout <= 0 {
		c.Telegram.Timeout = 60 * time.Second
	}
	c.Gateway.Defaults()
	c.Probe.Defaults()
	c.Tracing.Defaults()
}
