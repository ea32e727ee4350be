// Package upload provides functional options for configuring managers and tasks.
// These options follow the functional options pattern for clean, composable configuration.
package upload

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

const (
	// DefaultConcurrency is the number of tasks a manager runs at once.
	DefaultConcurrency = 3

	// DefaultMaxRetries is the number of retries after the first failed attempt.
	DefaultMaxRetries = 2

	// DefaultBaseDelay is the wait before the first retry; it doubles on every further retry.
	DefaultBaseDelay = 500 * time.Millisecond
)

// WithConcurrency sets the maximum number of tasks uploading at once.
// Default is 3. New rejects values below 1.
func WithConcurrency(concurrency int) uploadtypes.Option {
	return func(c *uploadtypes.ManagerConfig) {
		c.Concurrency = concurrency
	}
}

// WithLogger configures structured logging for the manager and its tasks.
// If logger is nil, logging is disabled.
func WithLogger(logger *slog.Logger) uploadtypes.Option {
	return func(c *uploadtypes.ManagerConfig) {
		c.Logger = logger
	}
}

// WithMetrics registers the manager's Prometheus collectors with reg under namespace.
// An empty namespace defaults to "upload".
func WithMetrics(reg prometheus.Registerer, namespace string) uploadtypes.Option {
	return func(c *uploadtypes.ManagerConfig) {
		c.Registerer = reg
		c.Namespace = namespace
	}
}

// WithDefaultMaxRetries sets the retry budget for tasks created by the manager.
// Individual tasks can override it with WithMaxRetries.
func WithDefaultMaxRetries(maxRetries int) uploadtypes.Option {
	return func(c *uploadtypes.ManagerConfig) {
		if maxRetries >= 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithDefaultBaseDelay sets the base backoff delay for tasks created by the manager.
// Individual tasks can override it with WithBaseDelay.
func WithDefaultBaseDelay(delay time.Duration) uploadtypes.Option {
	return func(c *uploadtypes.ManagerConfig) {
		if delay >= 0 {
			c.BaseDelay = delay
		}
	}
}

// WithMaxRetries sets how many times a task retries after a failed attempt.
// Set to 0 to disable retries. Negative values are ignored.
func WithMaxRetries(maxRetries int) uploadtypes.TaskOption {
	return func(c *uploadtypes.TaskConfig) {
		if maxRetries >= 0 {
			c.MaxRetries = maxRetries
		}
	}
}

// WithBaseDelay sets the wait before a task's first retry.
// Retry k waits baseDelay * 2^(k-1). Negative values are ignored.
func WithBaseDelay(delay time.Duration) uploadtypes.TaskOption {
	return func(c *uploadtypes.TaskConfig) {
		if delay >= 0 {
			c.BaseDelay = delay
		}
	}
}

// WithTaskLogger sets the logger used by a single task.
func WithTaskLogger(logger *slog.Logger) uploadtypes.TaskOption {
	return func(c *uploadtypes.TaskConfig) {
		c.Logger = logger
	}
}
