// Package storage defines the archival sink contract and its in-memory
// reference implementation.
//
// # Overview
//
// The upload queue archives encoded frames through the ObjectSink
// interface: one Put per object, keyed hierarchically, returning a
// stable URI. Backends live in subpackages:
//   - storage/objectstore: NATS JetStream object store bucket
//     (URIs of the form nats-obj://<bucket>/<key>)
//   - storage/filestore: local directory tree (file:// URIs)
//   - MemorySink (this package): map-backed, for tests and ephemeral
//     deployments
//
// # Key Convention
//
// Keys use "/" separators, e.g. "frames/frame_20250601_120000_42.jpg".
// ValidateKey enforces the shared rules: non-empty, relative, and no
// parent traversal. Backends map the hierarchy to whatever their store
// offers (directories, flat object names).
//
// # Division of Labor
//
// Sinks perform exactly one store attempt per Put. Retry, backoff, and
// drop policy live in the upload queue, so a sink failure is reported
// once and classified (errors.WrapTransient for network faults,
// errors.WrapInvalid for bad keys) rather than hidden behind internal
// retries.
//
// # Thread Safety
//
// All ObjectSink implementations must be safe for concurrent use from
// multiple goroutines; the upload workers share one sink.
package storage
