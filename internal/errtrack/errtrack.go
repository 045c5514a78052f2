// Package errtrack reports server-side failures to an external error
// tracking service.
package errtrack

import (
	"context"
	"time"

	"github.com/getsentry/sentry-go"
)

// Tracker captures errors worth a human look.
type Tracker interface {
	CaptureError(ctx context.Context, err error, tags map[string]string)
	Flush(ctx context.Context) error
}

// Config configures error tracking. An empty DSN disables it.
type Config struct {
	SentryDSN   string  `yaml:"sentry_dsn"`
	Environment string  `yaml:"environment"`
	Release     string  `yaml:"release"`
	SampleRate  float64 `yaml:"sample_rate"`
}

func (c *Config) defaults() {
	if c.Environment == "" {
		c.Environment = "production"
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 1.0
	}
}

// New returns a Sentry tracker when a DSN is configured and a no-op
// tracker otherwise.
func New(cfg Config) (Tracker, error) {
	if cfg.SentryDSN == "" {
		return Nop{}, nil
	}
	cfg.defaults()

	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:         cfg.SentryDSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  cfg.SampleRate,
	})
	if err != nil {
		return nil, err
	}
	return &SentryTracker{hub: sentry.NewHub(client, sentry.NewScope())}, nil
}

// SentryTracker sends errors to Sentry.
type SentryTracker struct {
	hub *sentry.Hub
}

// NewSentryTracker wraps an existing hub.
func NewSentryTracker(hub *sentry.Hub) *SentryTracker {
	return &SentryTracker{hub: hub}
}

// CaptureError implements Tracker.
func (t *SentryTracker) CaptureError(_ context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}
	hub := t.hub.Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
	})
	hub.CaptureException(err)
}

// Flush implements Tracker. It waits for pending events until ctx is done
// or two seconds pass, whichever comes first.
func (t *SentryTracker) Flush(ctx context.Context) error {
	timeout := 2 * time.Second
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if !t.hub.Flush(timeout) {
		return context.DeadlineExceeded
	}
	return nil
}

// Nop discards everything.
type Nop struct{}

func (Nop) CaptureError(context.Context, error, map[string]string) {}
func (Nop) Flush(context.Context) error                            { return nil }
