// Package service assembles capture, processing, distribution, and
// archival into one runnable video processor. The Processor owns the
// component lifecycle and exposes the control surface callers use to
// drive sessions, tune options, and read results.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/capture"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/config"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/export"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/health"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/hub"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pipeline"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/retry"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/stats"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage/filestore"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/upload"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

const serviceName = "videoproc"

// Deps holds the processor's injected collaborators. Every field is
// optional; zero values select working defaults for local operation.
type Deps struct {
	// Opener resolves capture descriptors. Nil means
	// capture.DefaultOpener().
	Opener capture.Opener

	// Faces, Tracker, and Analyzer plug optional detection stages
	// into the pipeline. Nil capabilities leave their stage inert.
	Faces    pipeline.Capability
	Tracker  pipeline.Capability
	Analyzer pipeline.Capability

	// Sink receives archived frames. Nil selects a sink from the
	// storage config; the nats-object backend needs an established
	// JetStream context and must be injected by the caller.
	Sink storage.ObjectSink

	Logger          *slog.Logger
	MetricsRegistry *metric.MetricsRegistry
}

// Processor wires the frame path: capture feeds the pipeline, results
// fan out through the hub, and the latest processed frame stays
// available for archival. Control operations are safe for concurrent
// use.
type Processor struct {
	cfg    *config.Config
	logger *slog.Logger

	store   *options.Store
	agg     *stats.Aggregator
	pipe    *pipeline.Pipeline
	hub     *hub.Hub
	queue   *upload.Queue
	feed    *export.EventFeed
	source  *capture.Source
	manager *component.Manager

	lastFrame atomic.Pointer[vision.Frame]

	// ctrlMu serializes session control so a StartCapture cannot
	// interleave with a concurrent StopCapture mid-transition.
	ctrlMu sync.Mutex

	mu            sync.Mutex
	started       bool
	runCtx        context.Context
	cancel        context.CancelFunc
	archiveCancel context.CancelFunc
	archiveDone   chan struct{}
}

// New builds a processor from validated configuration. Construction
// wires every component but starts nothing.
func New(cfg *config.Config, deps Deps) (*Processor, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, serviceName, "New", "validate configuration")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var core *metric.Metrics
	if deps.MetricsRegistry != nil {
		core = deps.MetricsRegistry.CoreMetrics()
	}

	store := options.NewStore()

	agg, err := stats.NewAggregator(stats.Config{
		WindowSpan: cfg.Stats.WindowSpan,
		MaxSamples: cfg.Stats.MaxSamples,
	})
	if err != nil {
		return nil, err
	}

	sink, err := selectSink(cfg.Storage, deps.Sink)
	if err != nil {
		return nil, err
	}

	p := &Processor{
		cfg:    cfg,
		logger: logger.With("component", serviceName),
		store:  store,
		agg:    agg,
	}

	p.pipe = pipeline.New(pipeline.Deps{
		Options:  store,
		Faces:    deps.Faces,
		Tracker:  deps.Tracker,
		Analyzer: deps.Analyzer,
		Logger:   logger,
		Metrics:  core,
	})

	p.hub = hub.New(hub.Config{
		SubscriberBuffer: cfg.Hub.SubscriberBuffer,
		StatsInterval:    cfg.Hub.StatsInterval,
	}, hub.Deps{
		Snapshot:        agg.Snapshot,
		Logger:          logger,
		MetricsRegistry: deps.MetricsRegistry,
	})

	rc := retry.Uploads()
	if cfg.Upload.MaxAttempts > 0 {
		rc.MaxAttempts = cfg.Upload.MaxAttempts
	}
	p.queue = upload.NewQueue(upload.Config{
		Workers:    cfg.Upload.Workers,
		QueueSize:  cfg.Upload.QueueSize,
		RecentSize: cfg.Upload.RecentJobs,
		Retry:      rc,
	}, upload.Deps{
		Sink:            sink,
		Options:         store,
		Logger:          logger,
		Metrics:         core,
		MetricsRegistry: deps.MetricsRegistry,
	})

	p.feed = export.NewEventFeed(export.Config{}, export.Deps{
		Source:          p.hub.Subscribe,
		Logger:          logger,
		MetricsRegistry: deps.MetricsRegistry,
	})

	p.source = capture.NewSource(capture.Deps{
		Opener:          deps.Opener,
		OpenTimeout:     cfg.Capture.OpenTimeout,
		OnFrame:         p.handleFrame,
		OnTerminal:      p.hub.Terminate,
		OnSkip:          agg.RecordSkip,
		Logger:          logger,
		MetricsRegistry: deps.MetricsRegistry,
	})

	p.manager = component.NewManager(&component.Dependencies{
		Logger:          logger,
		MetricsRegistry: deps.MetricsRegistry,
	})
	for _, c := range []component.Component{p.hub, p.queue, p.feed} {
		if err := p.manager.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// selectSink builds the archival sink for the configured backend. The
// nats-object backend cannot be built here because it requires a live
// JetStream context, so its sink arrives through Deps.
func selectSink(cfg config.StorageConfig, injected storage.ObjectSink) (storage.ObjectSink, error) {
	if injected != nil {
		return injected, nil
	}
	switch cfg.Backend {
	case config.StorageBackendFile:
		return filestore.New(cfg.Dir)
	case config.StorageBackendMemory:
		return storage.NewMemorySink(), nil
	case config.StorageBackendNATS:
		return nil, errors.WrapInvalid(
			fmt.Errorf("backend %q requires an injected sink", cfg.Backend),
			serviceName, "New", "select storage backend")
	default:
		return nil, errors.WrapInvalid(
			fmt.Errorf("unknown storage backend %q", cfg.Backend),
			serviceName, "New", "select storage backend")
	}
}

// Start brings up the hub, upload queue, and event feed, and begins
// auto-archival when configured. Capture stays idle until
// StartCapture.
func (p *Processor) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, serviceName, "Start", "processor is running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := p.manager.StartAll(runCtx); err != nil {
		cancel()
		return err
	}

	p.runCtx = runCtx
	p.cancel = cancel
	if p.cfg.Upload.AutoArchiveInterval > 0 {
		// The loop gets its own cancel so shutdown can stop new
		// enqueues before the queue drains.
		archiveCtx, archiveCancel := context.WithCancel(runCtx)
		p.archiveCancel = archiveCancel
		p.archiveDone = make(chan struct{})
		go p.archiveLoop(archiveCtx, p.cfg.Upload.AutoArchiveInterval, p.archiveDone)
	}
	p.started = true

	p.logger.Info("Processor started",
		"storage_backend", p.cfg.Storage.Backend,
		"auto_archive_interval", p.cfg.Upload.AutoArchiveInterval)
	return nil
}

// Stop ends any live capture session, then shuts components down in
// reverse start order. Stopping an idle processor is a no-op.
func (p *Processor) Stop(timeout time.Duration) error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = false
	cancel := p.cancel
	archiveCancel := p.archiveCancel
	archiveDone := p.archiveDone
	p.runCtx = nil
	p.cancel = nil
	p.archiveCancel = nil
	p.archiveDone = nil
	p.mu.Unlock()

	// The session stops first so its terminal item reaches
	// subscribers while the hub is still running.
	if err := p.source.Stop(); err != nil {
		p.logger.Warn("Capture stop failed during shutdown", "error", err)
	}

	if archiveCancel != nil {
		archiveCancel()
		select {
		case <-archiveDone:
		case <-time.After(timeout):
			p.logger.Warn("Auto-archive loop did not stop in time")
		}
	}

	err := p.manager.StopAll(timeout)
	cancel()
	p.logger.Info("Processor stopped")
	return err
}

// StartCapture opens the described source and begins a processing
// session. An empty descriptor falls back to the configured default.
// The session runs under the processor's lifetime; ctx only gates
// this call. A session that is already starting or running ignores
// the request.
func (p *Processor) StartCapture(ctx context.Context, descriptor string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if descriptor == "" {
		descriptor = p.cfg.Capture.Source
	}
	desc, err := capture.ParseDescriptor(descriptor)
	if err != nil {
		return err
	}

	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()

	p.mu.Lock()
	runCtx := p.runCtx
	p.mu.Unlock()
	if runCtx == nil {
		return errors.WrapInvalid(errors.ErrNotStarted, serviceName, "StartCapture", "check processor state")
	}

	switch p.source.State() {
	case capture.StateStarting, capture.StateRunning:
		return nil
	}

	// Stage state from the previous session must not leak into this
	// one; motion detection in particular keeps the prior frame.
	p.pipe.Reset()
	return p.source.Start(runCtx, desc)
}

// StopCapture ends the current session and waits for the capture
// loop to release the device. Stopping an idle session is a no-op.
func (p *Processor) StopCapture() error {
	p.ctrlMu.Lock()
	defer p.ctrlMu.Unlock()
	return p.source.Stop()
}

// CaptureState reports the session state machine's current position.
func (p *Processor) CaptureState() capture.State {
	return p.source.State()
}

// SetOptions applies a partial tuning update. Valid keys apply even
// when others are rejected; the returned error lists every rejection.
func (p *Processor) SetOptions(partial map[string]any) error {
	return p.store.Set(partial)
}

// Options returns the current tuning snapshot.
func (p *Processor) Options() options.Options {
	return p.store.Snapshot()
}

// Stats returns the aggregated processing statistics.
func (p *Processor) Stats() stats.Snapshot {
	return p.agg.Snapshot()
}

// Reset clears accumulated statistics and restarts the session clock.
// Capture state is untouched.
func (p *Processor) Reset() {
	p.agg.Reset()
}

// EnqueueUpload archives the most recently processed frame with the
// caller's metadata. It fails invalid when no frame has been
// processed yet.
func (p *Processor) EnqueueUpload(meta storage.Metadata) (upload.Job, error) {
	frame := p.lastFrame.Load()
	if frame == nil {
		return upload.Job{}, errors.WrapInvalid(
			fmt.Errorf("no frame available"),
			serviceName, "EnqueueUpload", "load latest frame")
	}
	return p.queue.Enqueue(frame, meta)
}

// RecentUploads returns the n most recent archival jobs, newest
// first.
func (p *Processor) RecentUploads(n int) []upload.Job {
	return p.queue.Recent(n)
}

// UploadStats reports queue depth and outcome counters.
func (p *Processor) UploadStats() upload.Stats {
	return p.queue.Stats()
}

// Subscribe registers a consumer with the distribution hub. The
// subscription is live immediately; slow consumers lose their oldest
// buffered items, never the processor's pace.
func (p *Processor) Subscribe() *hub.Subscription {
	return p.hub.Subscribe()
}

// SubscriberStats lists delivery counters for every attached
// consumer.
func (p *Processor) SubscriberStats() []hub.SubscriberStats {
	return p.hub.SubscriberStats()
}

// NewFrameStream subscribes and wraps the subscription for MJPEG
// delivery at the currently configured JPEG quality.
func (p *Processor) NewFrameStream() *export.FrameStream {
	return export.NewFrameStream(p.hub.Subscribe(), p.store)
}

// Feed exposes the WebSocket event feed so transport code can attach
// upgraded connections.
func (p *Processor) Feed() *export.EventFeed {
	return p.feed
}

// Health reports the aggregated system view. Managed components
// answer for themselves; the capture source is a session rather than
// a component, so its state is folded in here.
func (p *Processor) Health() health.Status {
	checks := p.manager.Health()
	checks["capture"] = p.captureHealth()
	return health.Report(serviceName, checks)
}

func (p *Processor) captureHealth() component.HealthStatus {
	hs := component.HealthStatus{
		Healthy:   p.source.State() != capture.StateError,
		LastCheck: time.Now(),
	}
	if err := p.source.Err(); err != nil {
		hs.LastError = err.Error()
		hs.ErrorCount = 1
	}
	return hs
}

// handleFrame runs on the capture goroutine for every decoded frame.
func (p *Processor) handleFrame(frame *vision.Frame) {
	res := p.pipe.Process(frame)
	faces, objects, motion := pipeline.CountEvents(res.Detections)
	p.agg.Record(stats.Sample{
		Timestamp: frame.Timestamp,
		Total:     res.Total,
		Stages:    res.Timings,
		Faces:     faces,
		Objects:   objects,
		Motion:    motion,
	})
	p.lastFrame.Store(res.Frame)
	p.hub.Publish(hub.NewFrameItem(res.Frame, res.Detections))
}

// archiveLoop periodically snapshots the live session into the
// archival queue. Failures are logged and skipped; archival never
// back-pressures the frame path.
func (p *Processor) archiveLoop(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.source.State() != capture.StateRunning {
				continue
			}
			if _, err := p.EnqueueUpload(storage.Metadata{"trigger": "auto"}); err != nil {
				p.logger.Debug("Auto-archive skipped", "error", err)
			}
		}
	}
}
