// Package core runs the process components: validate all, start in order,
// stop in reverse order.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultShutdownTimeout bounds the whole stop sequence.
const DefaultShutdownTimeout = 30 * time.Second

// App manages the lifecycle of a set of components.
type App struct {
	components      []componentInstance
	logger          *slog.Logger
	shutdownTimeout time.Duration
}

type componentInstance struct {
	component Component
	started   bool
}

// NewApp creates an empty App.
func NewApp(logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	return &App{
		logger:          logger.With("component", "core"),
		shutdownTimeout: DefaultShutdownTimeout,
	}
}

// SetShutdownTimeout overrides DefaultShutdownTimeout.
func (a *App) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		a.shutdownTimeout = d
	}
}

// Add appends components. They start in the order they were added.
func (a *App) Add(components ...Component) {
	for _, c := range components {
		a.components = append(a.components, componentInstance{component: c})
	}
}

// Validate runs every Validator and joins their errors.
func (a *App) Validate() error {
	var errs []error
	for _, ci := range a.components {
		if v, ok := ci.component.(Validator); ok {
			if err := v.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", ci.component.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Start starts all components that implement Starter, in order.
// If one fails, the ones already started are stopped in reverse order.
func (a *App) Start() error {
	for i := range a.components {
		ci := &a.components[i]
		s, ok := ci.component.(Starter)
		if !ok {
			continue
		}
		name := ci.component.Name()
		a.logger.Info("starting component", "name", name)
		if err := s.Start(); err != nil {
			a.logger.Error("component start failed", "name", name, "error", err)
			a.stopFrom(i - 1)
			return fmt.Errorf("starting %s: %w", name, err)
		}
		ci.started = true
	}
	a.logger.Info("all components started")
	return nil
}

// Stop stops all started components in reverse order.
func (a *App) Stop() {
	a.stopFrom(len(a.components) - 1)
}

func (a *App) stopFrom(index int) {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	for i := index; i >= 0; i-- {
		ci := &a.components[i]
		if !ci.started {
			continue
		}
		if s, ok := ci.component.(Stopper); ok {
			name := ci.component.Name()
			a.logger.Info("stopping component", "name", name)
			if err := s.Stop(ctx); err != nil {
				a.logger.Error("component stop error", "name", name, "error", err)
			}
		}
		ci.started = false
	}
}

// Run validates and starts every component, blocks until ctx is done,
// then stops them.
func (a *App) Run(ctx context.Context) error {
	if err := a.Validate(); err != nil {
		return err
	}
	if err := a.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	a.logger.Info("shutdown requested", "cause", context.Cause(ctx))

	a.Stop()
	a.logger.Info("shutdown complete")
	return nil
}
