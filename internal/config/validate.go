package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
)

// Validate checks the structural validity of a Config and joins every
// problem it finds.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Version == "" {
		errs = append(errs, errors.New("config: version field is required"))
	} else if cfg.Version != CurrentVersion {
		errs = append(errs, fmt.Errorf("config: unsupported version %q (supported: %q)", cfg.Version, CurrentVersion))
	}

	errs = append(errs, validateLog(cfg.Log)...)
	errs = append(errs, validateTelegram(cfg.Telegram)...)

	if err := cfg.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := cfg.Probe.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if err := cfg.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("config: %w", err))
	}
	if cfg.Errors.SampleRate < 0 || cfg.Errors.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("config: errors.sample_rate must be in [0, 1], got %v", cfg.Errors.SampleRate))
	}

	return errors.Join(errs...)
}

func validateLog(c LogConfig) []error {
	var errs []error
	if c.Level != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
			errs = append(errs, fmt.Errorf("config: log.level: unknown level %q", c.Level))
		}
	}
	switch c.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("config: log.format: unknown format %q (want text or json)", c.Format))
	}
	return errs
}

func validateTelegram(c TelegramConfig) []error {
	if c.APIURL == "" {
		return nil
	}
	u, err := url.Parse(c.APIURL)
	if err != nil {
		return []error{fmt.Errorf("config: telegram.api_url: %w", err)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return []error{fmt.Errorf("config: telegram.api_url: scheme must be http or https, got %q", u.Scheme)}
	}
	if u.Host == "" {
		return []error{errors.New("config: telegram.api_url: host is required")}
	}
	return nil
}
