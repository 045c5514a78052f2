// Package gateway runs the HTTP listeners: the public one serving the
// Telegram webhook and the admin one serving health, status and metrics.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/flemzord/tgecho/internal/metrics"
	"github.com/flemzord/tgecho/internal/probe"
)

// HealthSource reports the latest bot probe results.
type HealthSource interface {
	Results() []probe.Status
	Healthy() bool
}

// Gateway owns both HTTP servers.
type Gateway struct {
	config  Config
	logger  *slog.Logger
	webhook http.Handler
	metrics *metrics.Metrics
	health  HealthSource

	mu        sync.Mutex
	servers   []*http.Server
	addrs     map[string]net.Addr
	startedAt time.Time
}

// Option customizes a Gateway.
type Option func(*Gateway)

// WithMetrics exposes m on /metrics and in /status.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithHealth reports h on /health and /status.
func WithHealth(h HealthSource) Option {
	return func(g *Gateway) { g.health = h }
}

// New creates a gateway serving webhook on the public listener.
func New(cfg Config, webhook http.Handler, logger *slog.Logger, opts ...Option) *Gateway {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		config:  cfg,
		logger:  logger,
		webhook: webhook,
		addrs:   make(map[string]net.Addr),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Name implements core.Component.
func (g *Gateway) Name() string { return "gateway" }

// Validate implements core.Validator.
func (g *Gateway) Validate() error {
	return g.config.Validate()
}

// Start implements core.Starter. Both listeners are bound before Start
// returns; serving happens in the background.
func (g *Gateway) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.startedAt = time.Now()

	listeners := []struct {
		name    string
		addr    string
		handler http.Handler
	}{
		{"public", g.config.Bind, g.PublicHandler()},
		{"admin", g.config.AdminBind, g.AdminHandler()},
	}

	var lc net.ListenConfig
	for _, l := range listeners {
		ln, err := lc.Listen(context.Background(), "tcp", l.addr)
		if err != nil {
			g.shutdownLocked(context.Background())
			return fmt.Errorf("gateway: %s listen on %s: %w", l.name, l.addr, err)
		}

		srv := &http.Server{
			Handler:      l.handler,
			ReadTimeout:  g.config.ReadTimeout,
			WriteTimeout: g.config.WriteTimeout,
			ErrorLog:     slog.NewLogLogger(g.logger.Handler(), slog.LevelWarn),
		}
		g.servers = append(g.servers, srv)
		g.addrs[l.name] = ln.Addr()

		go func(name string) {
			g.logger.Info("gateway listening", "listener", name, "addr", ln.Addr().String())
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				g.logger.Error("gateway serve error", "listener", name, "error", err)
			}
		}(l.name)
	}
	return nil
}

// Addr returns the bound address of the "public" or "admin" listener, nil
// before Start.
func (g *Gateway) Addr(listener string) net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.addrs[listener]
}

// Stop implements core.Stopper. Graceful shutdown with configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.servers) == 0 {
		return nil
	}
	g.logger.Info("gateway shutting down")
	return g.shutdownLocked(ctx)
}

func (g *Gateway) shutdownLocked(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.config.ShutdownTimeout)
	defer cancel()

	var errs []error
	for _, srv := range g.servers {
		if err := srv.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	g.servers = nil
	return errors.Join(errs...)
}
