package capture

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// State is the capture session lifecycle.
type State int32

// Session states. A session moves Stopped → Starting → Running and
// ends in Stopped (clean) or Error (recorded cause).
const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateError
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// defaultOpenTimeout bounds device opens when deps carry no timeout.
const defaultOpenTimeout = 5 * time.Second

// Metrics holds Prometheus metrics for the capture source
type Metrics struct {
	framesRead    prometheus.Counter
	framesSkipped prometheus.Counter
	readErrors    prometheus.Counter
	state         prometheus.Gauge
	lastFrame     prometheus.Gauge
}

// newMetrics creates and registers capture metrics. Returns nil when
// no registry is provided; every observation site guards for that.
func newMetrics(registry *metric.MetricsRegistry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		framesRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "capture",
			Name:      "frames_total",
			Help:      "Frames read from the device",
		}),
		framesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "capture",
			Name:      "frames_skipped_total",
			Help:      "Frames skipped after transient read failures",
		}),
		readErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metric.Namespace,
			Subsystem: "capture",
			Name:      "read_errors_total",
			Help:      "Device read errors of any class",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "capture",
			Name:      "state",
			Help:      "Capture session state (0=stopped, 1=starting, 2=running, 3=error)",
		}),
		lastFrame: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metric.Namespace,
			Subsystem: "capture",
			Name:      "last_frame_timestamp",
			Help:      "Unix timestamp of the last frame read",
		}),
	}

	registry.RegisterCounter("capture", "frames", m.framesRead)
	registry.RegisterCounter("capture", "frames_skipped", m.framesSkipped)
	registry.RegisterCounter("capture", "read_errors", m.readErrors)
	registry.RegisterGauge("capture", "state", m.state)
	registry.RegisterGauge("capture", "last_frame", m.lastFrame)

	return m
}

// Deps holds runtime dependencies for the capture source.
type Deps struct {
	// Opener resolves descriptors. Nil means DefaultOpener().
	Opener Opener

	// OpenTimeout bounds Start's device open.
	OpenTimeout time.Duration

	// OnFrame runs on the capture goroutine for every frame, in
	// sequence order. It owns the hot path: pipeline, stats, fan-out.
	OnFrame func(*vision.Frame)

	// OnTerminal runs once per session when capture ends. A nil
	// cause is a clean stop, ErrEndOfStream a finished file source,
	// anything else a device fault.
	OnTerminal func(cause error)

	// OnSkip runs on the capture goroutine for every transient read
	// error that was skipped.
	OnSkip func()

	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
}

// Source owns the capture session state machine and the goroutine
// that drives the frame path while a session runs.
type Source struct {
	opener      Opener
	openTimeout time.Duration
	onFrame     func(*vision.Frame)
	onTerminal  func(cause error)
	onSkip      func()
	logger      *slog.Logger
	metrics     *Metrics

	mu     sync.Mutex
	state  State
	cause  error
	desc   Descriptor
	device Device
	cancel context.CancelFunc
	done   chan struct{}

	seq           atomic.Uint64
	framesRead    atomic.Int64
	framesSkipped atomic.Int64
}

// NewSource creates a stopped source.
func NewSource(deps Deps) *Source {
	opener := deps.Opener
	if opener == nil {
		opener = DefaultOpener()
	}

	timeout := deps.OpenTimeout
	if timeout <= 0 {
		timeout = defaultOpenTimeout
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "capture")
	}

	return &Source{
		opener:      opener,
		openTimeout: timeout,
		onFrame:     deps.OnFrame,
		onTerminal:  deps.OnTerminal,
		onSkip:      deps.OnSkip,
		logger:      logger,
		metrics:     newMetrics(deps.MetricsRegistry),
	}
}

// Start opens the device and launches the capture loop. A source that
// is already starting or running ignores the request. Open failures
// land the source in the error state with the cause recorded; there
// is no auto-retry.
func (s *Source) Start(ctx context.Context, desc Descriptor) error {
	s.mu.Lock()
	if s.state == StateStarting || s.state == StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateStarting, nil)
	s.desc = desc
	s.mu.Unlock()

	openCtx, cancel := context.WithTimeout(ctx, s.openTimeout)
	defer cancel()

	device, err := s.opener.Open(openCtx, desc)
	if err != nil {
		if openCtx.Err() != nil {
			err = errors.WrapFatal(
				fmt.Errorf("%w: %v", errors.ErrOpenTimeout, err),
				"capture", "Start", "device open")
		}
		s.mu.Lock()
		s.setStateLocked(StateError, err)
		s.mu.Unlock()
		return err
	}

	sessCtx, sessCancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.device = device
	s.cancel = sessCancel
	s.done = done
	s.seq.Store(0)
	s.setStateLocked(StateRunning, nil)
	s.mu.Unlock()

	s.logger.Info("Capture session started", "descriptor", desc.String())

	go s.captureLoop(sessCtx, device, done)
	return nil
}

// Stop ends a running session. Stopping a source that is not running
// is a no-op. The capture loop observes the signal within one frame
// interval and the device is released before Stop returns.
func (s *Source) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
	return nil
}

// State returns the current session state.
func (s *Source) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the recorded cause while the source is in the error
// state, nil otherwise.
func (s *Source) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateError {
		return nil
	}
	return s.cause
}

// Descriptor returns the descriptor of the current or most recent
// session.
func (s *Source) Descriptor() Descriptor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.desc
}

// FramesRead returns the number of frames delivered across all
// sessions of this source.
func (s *Source) FramesRead() int64 {
	return s.framesRead.Load()
}

// FramesSkipped returns the number of frames dropped after transient
// read failures across all sessions.
func (s *Source) FramesSkipped() int64 {
	return s.framesSkipped.Load()
}

// captureLoop reads frames until the session context ends, the
// stream finishes, or the device fails. It runs the OnFrame hook
// inline, so the read pace self-throttles to processing speed.
func (s *Source) captureLoop(ctx context.Context, device Device, done chan struct{}) {
	defer close(done)

	var cause error

	for {
		if ctx.Err() != nil {
			break
		}

		frame, err := device.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}

			if s.metrics != nil {
				s.metrics.readErrors.Inc()
			}

			if errors.IsTransient(err) {
				s.framesSkipped.Add(1)
				if s.metrics != nil {
					s.metrics.framesSkipped.Inc()
				}
				if s.onSkip != nil {
					s.onSkip()
				}
				s.logger.Warn("Skipping frame after read error", "error", err)
				continue
			}

			cause = err
			break
		}

		frame.Seq = s.seq.Add(1)
		s.framesRead.Add(1)
		if s.metrics != nil {
			s.metrics.framesRead.Inc()
			s.metrics.lastFrame.Set(float64(frame.Timestamp.Unix()))
		}

		if s.onFrame != nil {
			s.onFrame(frame)
		}
	}

	if err := device.Close(); err != nil {
		s.logger.Warn("Device close failed", "error", err)
	}

	var terminal error
	s.mu.Lock()
	switch {
	case cause == nil:
		s.setStateLocked(StateStopped, nil)
	case stderrors.Is(cause, errors.ErrEndOfStream):
		terminal = cause
		s.setStateLocked(StateStopped, nil)
		s.logger.Info("Capture source reached end of stream")
	default:
		terminal = cause
		s.setStateLocked(StateError, cause)
	}
	s.device = nil
	s.cancel = nil
	s.mu.Unlock()

	if s.onTerminal != nil {
		s.onTerminal(terminal)
	}
}

// setStateLocked updates the state, the recorded cause, and the state
// gauge. Callers hold s.mu.
func (s *Source) setStateLocked(state State, cause error) {
	s.state = state
	s.cause = cause
	if s.metrics != nil {
		s.metrics.state.Set(float64(state))
	}
	if state == StateError {
		s.logger.Error("Capture session failed",
			"descriptor", s.desc.String(),
			"error", cause)
	}
}
