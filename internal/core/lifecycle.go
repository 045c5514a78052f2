package core

import "context"

// Component is a named unit of the running process (the HTTP gateway, the
// cron scheduler, ...).
type Component interface {
	Name() string
}

// Validator is implemented by components that can verify their
// configuration before anything starts. Validate should be read-only.
type Validator interface {
	Validate() error
}

// Starter is implemented by components that start background work
// (goroutines, listeners). Start must not block.
type Starter interface {
	Start() error
}

// Stopper is implemented by components that need to release resources.
// Called during shutdown in reverse order of Start().
type Stopper interface {
	Stop(ctx context.Context) error
}
