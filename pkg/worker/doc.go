// Package worker provides a generic, thread-safe worker pool for concurrent
// task processing.
//
// # Overview
//
// The pool manages a fixed number of goroutines that process work items from
// a bounded channel:
//   - Generic type support for type-safe work processing
//   - Bounded queue with non-blocking submit (backpressure via ErrQueueFull)
//   - Context-aware cancellation and graceful shutdown
//   - Always-on statistics plus optional Prometheus metrics
//
// The upload queue is the primary consumer: each archival job is submitted to
// a pool whose processor pushes the frame to the object sink with retries.
// Because Submit never blocks, a saturated archive can never stall the
// capture loop; excess jobs are simply dropped and counted.
//
// # Usage
//
//	pool := worker.NewPool[*upload.Job](
//	    2,   // workers
//	    64,  // queue size
//	    func(ctx context.Context, job *upload.Job) error {
//	        return pushToSink(ctx, job)
//	    },
//	)
//
//	if err := pool.Start(ctx); err != nil {
//	    return err
//	}
//	defer pool.Stop(5 * time.Second)
//
//	if err := pool.Submit(job); err != nil {
//	    if errors.Is(err, worker.ErrQueueFull) {
//	        // Archive can't keep up; the job is dropped.
//	    }
//	}
//
// # Shutdown
//
// Stop(timeout) closes the queue, lets workers drain remaining items, and
// waits up to timeout for them to finish. A timed-out stop returns
// ErrStopTimeout but still marks the pool stopped, so later submissions fail
// with ErrPoolStopped rather than panicking on the closed queue. Workers also
// exit promptly when the context passed to Start is cancelled; in that case
// queued items are abandoned.
//
// # Metrics
//
// With a registry attached the pool exposes queue depth, utilization,
// submitted/processed/failed/dropped counters, and a per-item processing
// duration histogram:
//
//	pool := worker.NewPool[*upload.Job](
//	    2, 64, process,
//	    worker.WithMetricsRegistry[*upload.Job](registry, "upload-queue"),
//	)
//
// # Error Handling
//
// The pool returns plain sentinel errors because its failures are either
// programming errors or backpressure signals:
//
//   - ErrPoolNotStarted: Submit before Start
//   - ErrPoolAlreadyStarted: Start called twice
//   - ErrPoolStopped: Submit after Stop
//   - ErrQueueFull: queue at capacity, item dropped
//   - ErrNilProcessor: NewPool called without a processor (panics)
//   - ErrStopTimeout: workers still busy when the stop deadline passed
//
// Errors returned by the processor function are counted in the failed
// statistic but not interpreted; classify and handle them inside the
// processor.
//
// # Limitations
//
// Worker count is fixed at construction; there are no priorities and queued
// items cannot be cancelled individually. Per-item timeouts belong in the
// processor function via the context.
package worker
