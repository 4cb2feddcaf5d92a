// Package buffer provides thread-safe circular buffers with configurable overflow policies,
// built-in statistics tracking, and optional Prometheus metrics integration.
//
// # Overview
//
// The buffer package implements bounded rings for managing data flow between
// producers and consumers that run at different paces. In this system the
// rings back the recent-uploads record (oldest completed job evicted first)
// and the statistics sliding window. Buffers are generic, thread-safe, and
// observable through always-on statistics and optional metrics.
//
// # Quick Start
//
// Basic buffer creation:
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Write data
//	err = buf.Write(42)
//
//	// Read data
//	value, ok := buf.Read()
//
//	// Inspect without consuming (FIFO order)
//	items := buf.Snapshot()
//
// With overflow policy and metrics:
//
//	ring, err := buffer.NewCircularBuffer[upload.Record](20,
//		buffer.WithOverflowPolicy[upload.Record](buffer.DropOldest),
//		buffer.WithMetrics[upload.Record](registry, "recent_uploads"),
//	)
//
// # Overflow Policies
//
// The buffer supports three overflow behaviors when capacity is reached:
//
//   - DropOldest: Remove oldest item to make room (default)
//   - DropNewest: Reject new items when full
//   - Block: Write operations wait for available space
//
// Example with blocking policy:
//
//	buf, _ := buffer.NewCircularBuffer[*Event](100,
//		buffer.WithOverflowPolicy[*Event](buffer.Block),
//	)
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	err := buf.WriteWithContext(ctx, event)
//
// # Observability
//
// Statistics are always on: atomic counters for writes, reads, peeks,
// overflows, and drops, plus derived throughput, drop rate, and utilization,
// available via buf.Stats() with no external dependencies. Prometheus export
// is opt-in via WithMetrics(), which registers the same counters and gauges
// under the buffer subsystem with a component label.
package buffer
