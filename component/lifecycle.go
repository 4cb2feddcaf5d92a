package component

import (
	"context"
	"time"
)

// State represents the current lifecycle state of a component
type State int

const (
	// StateCreated indicates component was created but not initialized
	StateCreated State = iota
	// StateInitialized indicates component was initialized but not started
	StateInitialized
	// StateStarted indicates component is running
	StateStarted
	// StateStopped indicates component was stopped
	StateStopped
	// StateFailed indicates component failed during lifecycle operation
	StateFailed
)

// String returns a string representation of the component state
func (cs State) String() string {
	switch cs {
	case StateCreated:
		return "created"
	case StateInitialized:
		return "initialized"
	case StateStarted:
		return "started"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ManagedComponent tracks a component and its lifecycle state. The
// manager creates a child context per component and stores it here;
// the component itself only ever receives the context as a Start
// parameter and never holds it. Keeping the cancel func beside the
// component lets the manager cancel one component without touching
// the others.
type ManagedComponent struct {
	Component Component

	// State tracks the current lifecycle state
	State State

	Context context.Context
	Cancel  context.CancelFunc

	// StartOrder tracks the order components were started for reverse shutdown
	StartOrder int

	// StartedAt is the time of the most recent successful Start
	StartedAt time.Time

	// LastError tracks the last error that occurred during lifecycle operations
	LastError error
}
