package component

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

// healthCheckTimeout bounds how long a single Health() call may take
// before the manager reports the component unhealthy.
const healthCheckTimeout = 100 * time.Millisecond

// rollbackStopTimeout bounds the stop of already-started components
// when a later component fails to start.
const rollbackStopTimeout = 5 * time.Second

// Manager owns the lifecycle of a fixed set of components. Components
// are registered once, started in registration order, and stopped in
// reverse. Each started component gets its own child context so the
// manager can cancel one without touching the others; cancellation of
// the parent context reaches all of them.
type Manager struct {
	mu         sync.RWMutex
	components map[string]*ManagedComponent
	order      []string
	deps       *Dependencies
	logger     *slog.Logger
	started    bool
}

// NewManager creates a manager wired to the shared dependencies.
func NewManager(deps *Dependencies) *Manager {
	if deps == nil {
		deps = &Dependencies{}
	}
	return &Manager{
		components: make(map[string]*ManagedComponent),
		deps:       deps,
		logger:     deps.GetLoggerWithComponent("manager"),
	}
}

// Register adds a component to the managed set. Registration is
// rejected after StartAll and for duplicate names.
func (m *Manager) Register(c Component) error {
	if c == nil {
		return errors.WrapInvalid(
			fmt.Errorf("nil component"),
			"Manager", "Register", "validate component")
	}
	name := c.Name()
	if name == "" {
		return errors.WrapInvalid(
			fmt.Errorf("component has empty name"),
			"Manager", "Register", "validate component")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"Manager", "Register", "register component "+name)
	}
	if _, exists := m.components[name]; exists {
		return errors.WrapInvalid(
			fmt.Errorf("component %s already registered", name),
			"Manager", "Register", "register component")
	}

	m.components[name] = &ManagedComponent{Component: c, State: StateCreated}
	m.order = append(m.order, name)
	return nil
}

// Get returns a registered component by name.
func (m *Manager) Get(name string) (Component, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.components[name]
	if !ok {
		return nil, false
	}
	return mc.Component, true
}

// InitializeAll initializes components in registration order. The
// first failure marks that component failed and aborts the rest.
func (m *Manager) InitializeAll() error {
	for _, name := range m.registrationOrder() {
		mc := m.managed(name)
		if mc == nil || mc.State != StateCreated {
			continue
		}
		if err := mc.Component.Initialize(); err != nil {
			m.updateState(name, StateFailed, err)
			return errors.WrapFatal(err, "Manager", "InitializeAll",
				"initialize component "+name)
		}
		m.updateState(name, StateInitialized, nil)
	}
	return nil
}

// StartAll starts components in registration order. Each component
// receives a child context of ctx, created and retained by the
// manager. If any component fails to start, the ones already started
// are stopped again in reverse order and the failure is returned.
func (m *Manager) StartAll(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"Manager", "StartAll", "start components")
	}
	m.started = true
	m.mu.Unlock()

	var startedNames []string
	for i, name := range m.registrationOrder() {
		mc := m.managed(name)
		if mc == nil {
			continue
		}
		if mc.State == StateCreated {
			if err := mc.Component.Initialize(); err != nil {
				m.updateState(name, StateFailed, err)
				m.rollback(startedNames)
				return errors.WrapFatal(err, "Manager", "StartAll",
					"initialize component "+name)
			}
			m.updateState(name, StateInitialized, nil)
		}

		childCtx, cancel := context.WithCancel(ctx)
		if err := mc.Component.Start(childCtx); err != nil {
			cancel()
			m.updateState(name, StateFailed, err)
			m.rollback(startedNames)
			return errors.WrapFatal(err, "Manager", "StartAll",
				"start component "+name)
		}

		m.mu.Lock()
		mc.Context = childCtx
		mc.Cancel = cancel
		mc.StartOrder = i
		mc.StartedAt = time.Now()
		m.mu.Unlock()

		m.updateState(name, StateStarted, nil)
		startedNames = append(startedNames, name)
	}

	m.logger.Info("all components started", "count", len(startedNames))
	return nil
}

// StopAll stops started components in reverse start order. All child
// contexts are cancelled first so every component sees the shutdown
// signal at once, then Stop runs concurrently with the remaining
// share of the timeout. Calling StopAll when nothing is started is a
// no-op.
func (m *Manager) StopAll(timeout time.Duration) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false

	var toStop []*ManagedComponent
	var names []string
	for i := len(m.order) - 1; i >= 0; i-- {
		mc := m.components[m.order[i]]
		if mc == nil || mc.State != StateStarted {
			continue
		}
		if mc.Cancel != nil {
			mc.Cancel()
		}
		toStop = append(toStop, mc)
		names = append(names, m.order[i])
	}
	m.mu.Unlock()

	if len(toStop) == 0 {
		return nil
	}

	deadline := time.Now().Add(timeout)

	type stopResult struct {
		name string
		err  error
	}
	results := make(chan stopResult, len(toStop))
	for i, mc := range toStop {
		go func(name string, c Component) {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				remaining = time.Millisecond
			}
			results <- stopResult{name: name, err: c.Stop(remaining)}
		}(names[i], mc.Component)
	}

	var stopErrs []error
	for range toStop {
		res := <-results
		if res.err != nil {
			stopErrs = append(stopErrs, fmt.Errorf("%s: %w", res.name, res.err))
			m.updateState(res.name, StateFailed, res.err)
			continue
		}
		m.updateState(res.name, StateStopped, nil)
	}

	m.mu.Lock()
	for _, mc := range toStop {
		mc.Context = nil
		mc.Cancel = nil
	}
	m.mu.Unlock()

	if len(stopErrs) > 0 {
		return errors.WrapFatal(
			fmt.Errorf("%d of %d components failed to stop: %v",
				len(stopErrs), len(toStop), stopErrs),
			"Manager", "StopAll", "stop components")
	}

	m.logger.Info("all components stopped", "count", len(toStop))
	return nil
}

// rollback stops the named components in reverse order after a start
// failure. Errors are logged, not returned; the start error is the
// one the caller cares about.
func (m *Manager) rollback(started []string) {
	m.mu.Lock()
	m.started = false
	m.mu.Unlock()

	for i := len(started) - 1; i >= 0; i-- {
		name := started[i]
		mc := m.managed(name)
		if mc == nil {
			continue
		}
		m.mu.Lock()
		cancel := mc.Cancel
		mc.Context = nil
		mc.Cancel = nil
		m.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		if err := mc.Component.Stop(rollbackStopTimeout); err != nil {
			m.logger.Error("rollback stop failed", "component", name, "error", err)
			m.updateState(name, StateFailed, err)
			continue
		}
		m.updateState(name, StateStopped, nil)
	}
}

// Health checks every registered component. A component that does not
// answer within healthCheckTimeout is reported unhealthy rather than
// allowed to block the whole report.
func (m *Manager) Health() map[string]HealthStatus {
	m.mu.RLock()
	snapshot := make(map[string]Component, len(m.components))
	for name, mc := range m.components {
		snapshot[name] = mc.Component
	}
	m.mu.RUnlock()

	report := make(map[string]HealthStatus, len(snapshot))
	for name, c := range snapshot {
		report[name] = m.checkHealth(name, c)
	}
	return report
}

// Healthy reports whether every registered component is healthy.
func (m *Manager) Healthy() bool {
	for _, h := range m.Health() {
		if !h.Healthy {
			return false
		}
	}
	return true
}

func (m *Manager) checkHealth(name string, c Component) HealthStatus {
	done := make(chan HealthStatus, 1)
	go func() {
		done <- c.Health()
	}()

	var status HealthStatus
	select {
	case status = <-done:
	case <-time.After(healthCheckTimeout):
		status = HealthStatus{
			Healthy:   false,
			LastCheck: time.Now(),
			LastError: "health check timed out",
		}
	}

	if reg := m.deps.MetricsRegistry; reg != nil {
		reg.CoreMetrics().RecordHealthStatus(name, status.Healthy)
	}
	return status
}

// States returns the lifecycle state of every registered component.
func (m *Manager) States() map[string]State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	states := make(map[string]State, len(m.components))
	for name, mc := range m.components {
		states[name] = mc.State
	}
	return states
}

// LastError returns the most recent lifecycle error for a component.
func (m *Manager) LastError(name string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mc, ok := m.components[name]
	if !ok {
		return nil
	}
	return mc.LastError
}

func (m *Manager) registrationOrder() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	order := make([]string, len(m.order))
	copy(order, m.order)
	return order
}

func (m *Manager) managed(name string) *ManagedComponent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.components[name]
}

// updateState records a lifecycle transition, logs it, and mirrors it
// into the component status gauge.
func (m *Manager) updateState(name string, state State, err error) {
	m.mu.Lock()
	mc, ok := m.components[name]
	if ok {
		mc.State = state
		if err != nil {
			mc.LastError = err
		}
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	switch {
	case state == StateFailed:
		m.logger.Error("component state change",
			"component", name, "state", state.String(), "error", err)
		if reg := m.deps.MetricsRegistry; reg != nil {
			reg.CoreMetrics().RecordError(name, errors.Classify(err).String())
		}
	case state == StateStarted || state == StateStopped:
		m.logger.Info("component state change",
			"component", name, "state", state.String())
	default:
		m.logger.Debug("component state change",
			"component", name, "state", state.String())
	}

	if reg := m.deps.MetricsRegistry; reg != nil {
		reg.CoreMetrics().RecordComponentStatus(name, int(state))
	}
}
