// Package upload archives frames to an object sink without touching
// the capture path.
//
// Enqueue snapshots what the job needs (frame reference, JPEG quality,
// metadata) and submits it to a bounded worker pool; a full queue
// rejects the newest request immediately. Workers encode off the hot
// path and push with exponential backoff. Completed jobs, succeeded
// and failed alike, land in a bounded recent ring for query; failures
// never propagate anywhere else.
package upload

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/metric"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/buffer"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/retry"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/worker"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

const (
	defaultWorkers    = 2
	defaultQueueSize  = 16
	defaultRecentSize = 32
	defaultPutTimeout = 10 * time.Second
)

// Config sizes the queue. Zero values take the defaults above; a zero
// Retry takes the upload schedule from pkg/retry.
type Config struct {
	Workers    int
	QueueSize  int
	RecentSize int
	PutTimeout time.Duration
	Retry      retry.Config
}

// Deps holds the queue's collaborators. Sink is required; Options
// supplies the JPEG quality snapshot at enqueue.
type Deps struct {
	Sink            storage.ObjectSink
	Options         *options.Store
	Logger          *slog.Logger
	Metrics         *metric.Metrics
	MetricsRegistry *metric.MetricsRegistry
}

// Queue is the managed archival component. The worker pool is created
// per Start so the queue restarts cleanly; the recent ring survives
// restarts.
type Queue struct {
	cfg      Config
	sink     storage.ObjectSink
	store    *options.Store
	logger   *slog.Logger
	metrics  *metric.Metrics
	registry *metric.MetricsRegistry

	recent buffer.Buffer[Job]

	mu          sync.Mutex
	pool        *worker.Pool[*Job]
	cancel      context.CancelFunc
	initialized bool
	started     bool
	startedAt   time.Time

	errorCount atomic.Int64
	lastErr    atomic.Value
}

var _ component.Component = (*Queue)(nil)

// NewQueue builds a queue. The sink requirement is checked at
// Initialize so construction never fails on wiring order.
func NewQueue(cfg Config, deps Deps) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.RecentSize <= 0 {
		cfg.RecentSize = defaultRecentSize
	}
	if cfg.PutTimeout <= 0 {
		cfg.PutTimeout = defaultPutTimeout
	}
	if cfg.Retry == (retry.Config{}) {
		cfg.Retry = retry.Uploads()
	}

	store := deps.Options
	if store == nil {
		store = options.NewStore()
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "upload")
	}

	// Capacity is normalized above, so construction cannot fail.
	recent, _ := buffer.NewCircularBuffer[Job](cfg.RecentSize,
		buffer.WithOverflowPolicy[Job](buffer.DropOldest))

	return &Queue{
		cfg:      cfg,
		sink:     deps.Sink,
		store:    store,
		logger:   logger,
		metrics:  deps.Metrics,
		registry: deps.MetricsRegistry,
		recent:   recent,
	}
}

// Name identifies the queue in logs, metrics, and health reports.
func (q *Queue) Name() string { return "upload" }

// Initialize verifies the queue can run. Idempotent.
func (q *Queue) Initialize() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.initLocked()
}

func (q *Queue) initLocked() error {
	if q.sink == nil {
		return errors.WrapInvalid(
			fmt.Errorf("no object sink configured"),
			"upload", "Initialize", "check dependencies")
	}
	q.initialized = true
	return nil
}

// Start spins up a fresh worker pool.
func (q *Queue) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "upload", "Start", "queue is running")
	}
	if err := q.initLocked(); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	pool := worker.NewPool[*Job](q.cfg.Workers, q.cfg.QueueSize, q.process,
		worker.WithMetricsRegistry[*Job](q.registry, "upload"))
	if err := pool.Start(runCtx); err != nil {
		cancel()
		return errors.Wrap(err, "upload", "Start", "start worker pool")
	}

	q.pool = pool
	q.cancel = cancel
	q.started = true
	q.startedAt = time.Now()
	q.logger.Info("Upload queue started",
		"workers", q.cfg.Workers,
		"queue_size", q.cfg.QueueSize,
		"max_attempts", q.cfg.Retry.MaxAttempts)
	return nil
}

// Stop drains queued jobs within the timeout, then cuts in-flight
// retries. A queue that is not running is left alone.
func (q *Queue) Stop(timeout time.Duration) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return nil
	}
	q.started = false
	pool, cancel := q.pool, q.cancel
	q.pool, q.cancel = nil, nil
	q.mu.Unlock()

	err := pool.Stop(timeout)
	cancel()
	if err != nil {
		q.logger.Warn("Upload queue drain cut short", "timeout", timeout)
		return errors.Wrap(err, "upload", "Stop", "drain workers")
	}
	q.logger.Info("Upload queue stopped")
	return nil
}

// Health reports queue condition. Failed uploads are data, not a
// health fault, so the queue stays healthy and surfaces them through
// the error counters.
func (q *Queue) Health() component.HealthStatus {
	q.mu.Lock()
	started, startedAt := q.started, q.startedAt
	q.mu.Unlock()

	status := component.HealthStatus{
		Healthy:    true,
		LastCheck:  time.Now(),
		ErrorCount: int(q.errorCount.Load()),
	}
	if v := q.lastErr.Load(); v != nil {
		status.LastError = v.(string)
	}
	if started {
		status.Uptime = time.Since(startedAt)
	}
	return status
}

// Enqueue submits a frame for archival and returns the accepted job
// snapshot immediately. A full queue rejects the request with
// worker.ErrQueueFull in the chain. The queue stamps the frame's
// sequence and capture time into the object metadata.
func (q *Queue) Enqueue(frame *vision.Frame, meta storage.Metadata) (Job, error) {
	if frame == nil {
		return Job{}, errors.WrapInvalid(
			fmt.Errorf("nil frame"),
			"upload", "Enqueue", "build job")
	}

	q.mu.Lock()
	pool, started := q.pool, q.started
	q.mu.Unlock()
	if !started {
		return Job{}, errors.WrapInvalid(worker.ErrPoolNotStarted, "upload", "Enqueue", "queue not running")
	}

	jobMeta := maps.Clone(meta)
	if jobMeta == nil {
		jobMeta = storage.Metadata{}
	}
	jobMeta["seq"] = fmt.Sprintf("%d", frame.Seq)
	jobMeta["captured_at"] = frame.Timestamp.UTC().Format(time.RFC3339Nano)

	job := &Job{
		ID:         uuid.NewString(),
		Key:        KeyFor(frame),
		Status:     StatusPending,
		EnqueuedAt: time.Now(),
		frame:      frame,
		quality:    q.store.Snapshot().JPEGQuality,
		meta:       jobMeta,
	}

	// Snapshot before Submit: a worker may pick the job up instantly.
	accepted := *job
	accepted.frame = nil

	if err := pool.Submit(job); err != nil {
		if stderrors.Is(err, worker.ErrQueueFull) && q.metrics != nil {
			q.metrics.RecordFrameDropped("upload_queue_full")
		}
		q.logger.Warn("Upload rejected", "key", job.Key, "error", err)
		return Job{}, errors.WrapTransient(err, "upload", "Enqueue", "submit job")
	}
	return accepted, nil
}

// Recent returns the newest completed jobs, newest first. n <= 0 or
// beyond the ring returns everything retained.
func (q *Queue) Recent(n int) []Job {
	all := q.recent.Snapshot()
	if n <= 0 || n > len(all) {
		n = len(all)
	}
	out := make([]Job, 0, n)
	for i := len(all) - 1; i >= len(all)-n; i-- {
		out = append(out, all[i])
	}
	return out
}

// Stats reports queue counters.
type Stats struct {
	Workers    int   `json:"workers"`
	QueueDepth int   `json:"queue_depth"`
	Submitted  int64 `json:"submitted"`
	Processed  int64 `json:"processed"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Retained   int   `json:"retained"`
}

// Stats returns a point-in-time view of the queue. Zero when the
// queue has never started.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	pool := q.pool
	q.mu.Unlock()

	s := Stats{Retained: q.recent.Size()}
	if pool == nil {
		return s
	}
	ps := pool.Stats()
	s.Workers = ps.Workers
	s.QueueDepth = ps.QueueDepth
	s.Submitted = ps.Submitted
	s.Processed = ps.Processed
	s.Failed = ps.Failed
	s.Dropped = ps.Dropped
	return s
}

// process runs on a pool worker: encode once, then push with backoff.
func (q *Queue) process(ctx context.Context, job *Job) error {
	job.Status = StatusInFlight

	data, err := job.frame.EncodeJPEG(job.quality)
	if err != nil {
		err = errors.Wrap(err, "upload", "process", "encode frame")
		q.complete(job, "", err)
		return err
	}
	job.frame = nil

	uri, err := q.put(ctx, job, data)
	if err == nil && q.metrics != nil {
		q.metrics.RecordUploadedBytes(len(data))
	}
	q.complete(job, uri, err)
	return err
}

func (q *Queue) put(ctx context.Context, job *Job, data []byte) (string, error) {
	var uri string
	err := retry.Do(ctx, q.cfg.Retry, func() error {
		job.Attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, q.cfg.PutTimeout)
		defer cancel()

		u, putErr := q.sink.Put(attemptCtx, job.Key, data, job.meta)
		if putErr != nil {
			if errors.IsInvalid(putErr) {
				return retry.NonRetryable(putErr)
			}
			return putErr
		}
		uri = u
		return nil
	})
	return uri, err
}

// complete finalizes the job and records it in the recent ring. The
// stored copy drops the frame reference so the ring never pins pixels.
func (q *Queue) complete(job *Job, uri string, err error) {
	job.CompletedAt = time.Now()
	job.frame = nil

	if err != nil {
		job.Status = StatusFailed
		job.Error = err.Error()
		q.errorCount.Add(1)
		q.lastErr.Store(err.Error())
		if q.metrics != nil {
			q.metrics.RecordUpload("failed")
		}
		q.logger.Error("Upload failed",
			"job_id", job.ID, "key", job.Key, "attempts", job.Attempts, "error", err)
	} else {
		job.Status = StatusSucceeded
		job.URI = uri
		if q.metrics != nil {
			q.metrics.RecordUpload("succeeded")
		}
		q.logger.Debug("Upload archived",
			"job_id", job.ID, "key", job.Key, "attempts", job.Attempts, "uri", uri)
	}

	_ = q.recent.Write(*job)
}
