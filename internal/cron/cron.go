// Package cron runs periodic background checks, such as probing the
// configured bots with getMe.
package cron

import "context"

// Job defines a periodic background task.
type Job interface {
	// Name returns a unique identifier for this job (used for logging and dedup).
	Name() string

	// Schedule returns a 5-field cron expression ("*/5 * * * *") or a
	// descriptor ("@every 1m", "@hourly").
	Schedule() string

	// Run executes the job. Implementations should honour ctx cancellation.
	Run(ctx context.Context) error
}
