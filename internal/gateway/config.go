package gateway

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"
)

// Config holds HTTP gateway configuration.
type Config struct {
	// Bind is the public listener serving the webhook.
	Bind string `yaml:"bind"`

	// AdminBind serves /health, /status and /metrics.
	AdminBind string `yaml:"admin_bind"`

	// Prefix is the path the webhook is mounted under ("/telegram").
	// The bot token is the path segment that follows it.
	Prefix string `yaml:"prefix"`

	// Auth protects /status and /metrics when set.
	Auth AuthConfig `yaml:"auth"`

	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxBodyBytes caps the webhook request body.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// Defaults fills zero values with sensible defaults.
func (c *Config) Defaults() {
	if c.Bind == "" {
		c.Bind = ":8080"
	}
	if c.AdminBind == "" {
		c.AdminBind = "127.0.0.1:9090"
	}
	c.Prefix = strings.TrimSuffix(c.Prefix, "/")
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 30 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

// Validate reports every configuration problem.
func (c *Config) Validate() error {
	var errs []error
	for _, addr := range []struct{ name, value string }{
		{"gateway.bind", c.Bind},
		{"gateway.admin_bind", c.AdminBind},
	} {
		if addr.value == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(addr.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid address %q: %w", addr.name, addr.value, err))
		}
	}
	if c.Bind != "" && c.Bind == c.AdminBind && !strings.HasSuffix(c.Bind, ":0") {
		errs = append(errs, errors.New("gateway: bind and admin_bind must differ"))
	}
	if c.Prefix != "" && !strings.HasPrefix(c.Prefix, "/") {
		errs = append(errs, fmt.Errorf("gateway.prefix: must start with /, got %q", c.Prefix))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("gateway.max_body_bytes: must not be negative, got %d", c.MaxBodyBytes))
	}
	if c.Auth.BasicUser != "" && c.Auth.BasicPass == "" {
		errs = append(errs, errors.New("gateway.auth: basic_pass is required with basic_user"))
	}
	return errors.Join(errs...)
}

// AuthConfig configures authentication for admin endpoints.
type AuthConfig struct {
	BearerToken string `yaml:"bearer_token"`
	BasicUser   string `yaml:"basic_user"`
	BasicPass   string `yaml:"basic_pass"`
}

// IsConfigured returns true if any auth method is configured.
func (a AuthConfig) IsConfigured() bool {
	return a.BearerToken != "" || (a.BasicUser != "" && a.BasicPass != "")
}
