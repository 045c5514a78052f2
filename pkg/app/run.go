// Package app wires the tgecho components together and runs them until the
// context is cancelled.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/flemzord/tgecho/internal/config"
	"github.com/flemzord/tgecho/internal/core"
	"github.com/flemzord/tgecho/internal/cron"
	"github.com/flemzord/tgecho/internal/errtrack"
	"github.com/flemzord/tgecho/internal/gateway"
	"github.com/flemzord/tgecho/internal/metrics"
	"github.com/flemzord/tgecho/internal/probe"
	"github.com/flemzord/tgecho/internal/security"
	"github.com/flemzord/tgecho/internal/telegram"
	"github.com/flemzord/tgecho/internal/tracing"
	"github.com/flemzord/tgecho/internal/webhook"
)

// flushTimeout bounds the final tracer and error tracker flush.
const flushTimeout = 5 * time.Second

// RunParams configures the main application loop.
type RunParams struct {
	// ConfigPath is an explicit path to the YAML configuration file.
	// If empty, the default locations are searched and defaults are used
	// when none exists.
	ConfigPath string

	// EnvFiles are loaded into the environment before the config is read.
	// Missing files are skipped.
	EnvFiles []string

	// Version, Commit, and Date are injected at build time via ldflags.
	Version string
	Commit  string
	Date    string

	// LogOutput receives the process logs. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Run loads configuration, starts the gateway (and the probe scheduler when
// bots are configured) and blocks until ctx is cancelled.
func Run(ctx context.Context, params RunParams) error {
	if err := config.LoadDotEnv(params.EnvFiles...); err != nil {
		return err
	}
	cfg, cfgPath, err := config.Resolve(params.ConfigPath)
	if err != nil {
		return err
	}

	out := params.LogOutput
	if out == nil {
		out = os.Stderr
	}
	logger := NewLogger(cfg, out)

	if cfgPath == "" {
		logger.Info("no configuration file found, using defaults")
	} else {
		logger.Info("configuration loaded", "path", cfgPath)
	}

	tp, shutdownTracing, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	if cfg.Errors.Release == "" {
		cfg.Errors.Release = params.Version
	}
	tracker, err := errtrack.New(cfg.Errors)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if err := tracker.Flush(flushCtx); err != nil {
			logger.Warn("error tracker flush failed", "error", err)
		}
	}()

	m := metrics.New()
	client := telegram.NewClient(cfg.Telegram.APIURL,
		telegram.WithHTTPClient(&http.Client{Timeout: cfg.Telegram.Timeout}),
		telegram.WithLogger(logger.With("component", "telegram")),
		telegram.WithObserver(m),
		telegram.WithTracerProvider(tp),
	)
	handler := webhook.NewHandler(client, logger.With("component", "webhook"),
		webhook.WithRecorder(m),
		webhook.WithTracker(tracker),
		webhook.WithTracerProvider(tp),
		webhook.WithPrefix(cfg.Gateway.Prefix),
	)

	application := core.NewApp(logger)
	gwOpts := []gateway.Option{gateway.WithMetrics(m)}

	var scheduler *cron.Scheduler
	if len(cfg.Probe.Bots) > 0 {
		prober := probe.New(cfg.Probe, client, m, logger.With("component", "probe"))
		scheduler = cron.NewScheduler(logger.With("component", "cron"),
			cron.WithImmediateRun(),
			cron.WithJobTimeout(cfg.Probe.Timeout),
		)
		if err := scheduler.RegisterJob(prober); err != nil {
			return fmt.Errorf("registering probe: %w", err)
		}
		gwOpts = append(gwOpts, gateway.WithHealth(prober))
	}

	application.Add(gateway.New(cfg.Gateway, handler, logger.With("component", "gateway"), gwOpts...))
	if scheduler != nil {
		application.Add(scheduler)
	}

	logger.Info("tgecho starting",
		"version", params.Version,
		"commit", params.Commit,
		"bind", cfg.Gateway.Bind,
		"admin_bind", cfg.Gateway.AdminBind,
		"prefix", cfg.Gateway.Prefix,
		"probed_bots", len(cfg.Probe.Bots),
	)
	return application.Run(ctx)
}

// NewLogger builds the process logger from cfg.Log. Every record goes
// through a redacting handler that knows the configured secrets, so bot
// tokens never reach the output.
func NewLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}

	var inner slog.Handler
	if cfg.Log.Format == "json" {
		inner = slog.NewJSONHandler(w, opts)
	} else {
		inner = slog.NewTextHandler(w, opts)
	}

	redactor := security.NewRedactor()
	for _, bot := range cfg.Probe.Bots {
		redactor.AddLiteral(bot.Token)
	}
	redactor.AddLiteral(cfg.Gateway.Auth.BearerToken)
	redactor.AddLiteral(cfg.Gateway.Auth.BasicPass)
	redactor.AddLiteral(cfg.Errors.SentryDSN)

	return slog.New(security.NewRedactingHandler(inner, redactor))
}
