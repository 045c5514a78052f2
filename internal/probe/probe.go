// Package probe periodically checks that the configured bot tokens are
// accepted by the Bot API, and keeps the latest outcome for the health
// endpoint.
package probe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/flemzord/tgecho/internal/cron"
	"github.com/flemzord/tgecho/internal/telegram"
)

// JobName is the cron job name of the getMe probe.
const JobName = "telegram.getme"

// Bot is one token to probe.
type Bot struct {
	Name  string `yaml:"name"`
	Token string `yaml:"token"`
}

// Config configures the probe. No bots means no probe.
type Config struct {
	Schedule string        `yaml:"schedule"`
	Timeout  time.Duration `yaml:"timeout"`
	Bots     []Bot         `yaml:"bots"`
}

// Defaults fills zero values.
func (c *Config) Defaults() {
	if c.Schedule == "" {
		c.Schedule = "*/5 * * * *"
	}
	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}
	for i := range c.Bots {
		if c.Bots[i].Name == "" {
			c.Bots[i].Name = fmt.Sprintf("bot%d", i+1)
		}
	}
}

// Validate reports every configuration problem.
func (c *Config) Validate() error {
	var errs []error
	if c.Schedule != "" {
		if err := cron.ValidateSchedule(c.Schedule); err != nil {
			errs = append(errs, fmt.Errorf("probe.schedule: %w", err))
		}
	}
	seen := make(map[string]bool, len(c.Bots))
	for i, b := range c.Bots {
		if strings.TrimSpace(b.Token) == "" {
			errs = append(errs, fmt.Errorf("probe.bots[%d]: token is required", i))
		}
		if b.Name != "" {
			if seen[b.Name] {
				errs = append(errs, fmt.Errorf("probe.bots[%d]: duplicate name %q", i, b.Name))
			}
			seen[b.Name] = true
		}
	}
	return errors.Join(errs...)
}

// Checker is the Bot API call the probe makes. *telegram.Client satisfies it.
type Checker interface {
	GetMe(ctx context.Context, token string) (*telegram.User, error)
}

// Recorder receives each probe outcome.
type Recorder interface {
	SetProbe(bot string, up bool)
}

// Status is the latest outcome for one bot.
type Status struct {
	Name      string        `json:"name"`
	Up        bool          `json:"up"`
	Username  string        `json:"username,omitempty"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
	Latency   time.Duration `json:"latency_ns"`
}

// Prober is the cron job that calls getMe for every configured bot.
type Prober struct {
	cfg      Config
	checker  Checker
	recorder Recorder
	logger   *slog.Logger

	mu      sync.RWMutex
	results map[string]Status
}

var _ cron.Job = (*Prober)(nil)

// New creates a prober. recorder may be nil.
func New(cfg Config, checker Checker, recorder Recorder, logger *slog.Logger) *Prober {
	cfg.Bots = slices.Clone(cfg.Bots)
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Prober{
		cfg:      cfg,
		checker:  checker,
		recorder: recorder,
		logger:   logger,
		results:  make(map[string]Status, len(cfg.Bots)),
	}
}

// Name implements cron.Job.
func (p *Prober) Name() string { return JobName }

// Schedule implements cron.Job.
func (p *Prober) Schedule() string { return p.cfg.Schedule }

// Run implements cron.Job. Bots are probed one after another; the returned
// error joins every failure.
func (p *Prober) Run(ctx context.Context) error {
	var errs []error
	for _, bot := range p.cfg.Bots {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("probe: %w", err)
		}
		st := p.check(ctx, bot)
		if !st.Up {
			errs = append(errs, fmt.Errorf("probe %s: %s", bot.Name, st.Error))
		}
	}
	return errors.Join(errs...)
}

func (p *Prober) check(ctx context.Context, bot Bot) Status {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	start := time.Now()
	user, err := p.checker.GetMe(ctx, bot.Token)
	st := Status{
		Name:      bot.Name,
		CheckedAt: start,
		Latency:   time.Since(start),
	}
	switch {
	case err != nil:
		st.Error = err.Error()
	case user != nil && !user.IsBot:
		st.Error = "token does not belong to a bot"
	default:
		st.Up = true
		if user != nil {
			st.Username = user.Username
		}
	}

	if st.Up {
		p.logger.Debug("probe ok", "bot", bot.Name, "username", st.Username, "latency", st.Latency)
	} else {
		p.logger.Warn("probe failed", "bot", bot.Name, "error", st.Error)
	}

	p.mu.Lock()
	p.results[bot.Name] = st
	p.mu.Unlock()
	if p.recorder != nil {
		p.recorder.SetProbe(bot.Name, st.Up)
	}
	return st
}

// Results returns the latest status of every probed bot, sorted by name.
// Bots not probed yet are absent.
func (p *Prober) Results() []Status {
	p.mu.RLock()
	out := make([]Status, 0, len(p.results))
	for _, st := range p.results {
		out = append(out, st)
	}
	p.mu.RUnlock()

	slices.SortFunc(out, func(a, b Status) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Healthy reports whether no probed bot is down.
func (p *Prober) Healthy() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, st := range p.results {
		if !st.Up {
			return false
		}
	}
	return true
}
