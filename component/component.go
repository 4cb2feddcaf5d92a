// Package component defines the lifecycle contract shared by the video
// platform's long-running parts and the manager that runs them.
package component

import (
	"context"
	"time"
)

// Component is implemented by every long-running part of the platform:
// the capture source, the distribution hub, the stats aggregator, and
// the upload queue. The manager drives all of them through the same
// create, initialize, start, stop sequence.
type Component interface {
	// Name identifies the component in logs, metrics, and health reports.
	Name() string

	// Initialize prepares resources without starting any work. It is
	// idempotent; a second call is a no-op.
	Initialize() error

	// Start begins the component's work. The context is owned by the
	// manager and is cancelled before Stop is called. Starting an
	// already started component returns an error.
	Start(ctx context.Context) error

	// Stop halts the component, waiting up to timeout for in-flight
	// work to finish. Stopping a component that is not running is a
	// no-op. A stopped component may be started again.
	Stop(timeout time.Duration) error

	// Health reports the component's current condition.
	Health() HealthStatus
}

// HealthStatus describes the current health state of a component.
type HealthStatus struct {
	Healthy    bool          `json:"healthy"`
	LastCheck  time.Time     `json:"last_check"`
	ErrorCount int           `json:"error_count"`
	LastError  string        `json:"last_error,omitempty"`
	Uptime     time.Duration `json:"uptime"`
}
