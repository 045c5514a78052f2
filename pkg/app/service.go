package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kardianos/service"
)

// ServiceName is the name tgecho registers with the system service manager.
const ServiceName = "tgecho"

// program adapts Run to the service.Interface start/stop callbacks.
type program struct {
	params RunParams

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan error
}

var _ service.Interface = (*program)(nil)

// Start launches Run in the background; the service manager expects Start
// to return immediately.
func (p *program) Start(_ service.Service) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cancel != nil {
		return errors.New("service: already running")
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan error, 1)
	go func(done chan<- error) {
		done <- Run(ctx, p.params)
	}(p.done)
	return nil
}

// Stop cancels Run and waits for it to return.
func (p *program) Stop(_ service.Service) error {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	return <-done
}

// NewService builds the system service running "tgecho service run" with
// the given config file.
func NewService(params RunParams) (service.Service, error) {
	args := []string{"service", "run"}
	if params.ConfigPath != "" {
		args = append(args, "--config", params.ConfigPath)
	}
	cfg := &service.Config{
		Name:        ServiceName,
		DisplayName: "tgecho",
		Description: "Telegram webhook echo service",
		Arguments:   args,
		Option: service.KeyValue{
			"Restart":   "on-failure",
			"OnFailure": "restart",
		},
	}
	s, err := service.New(&program{params: params}, cfg)
	if err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	return s, nil
}

// ControlActions lists the actions accepted by Control.
var ControlActions = service.ControlAction[:]

// Control runs one service manager action (install, uninstall, start,
// stop, restart).
func Control(s service.Service, action string) error {
	if err := service.Control(s, action); err != nil {
		return fmt.Errorf("service %s: %w", action, err)
	}
	return nil
}

// StatusText describes a service status for humans.
func StatusText(st service.Status, err error) string {
	if errors.Is(err, service.ErrNotInstalled) {
		return "not installed"
	}
	if err != nil {
		return "unknown: " + err.Error()
	}
	switch st {
	case service.StatusRunning:
		return "running"
	case service.StatusStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
