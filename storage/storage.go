package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

// Metadata travels with an archived object as string headers, e.g.
// frame sequence and capture timestamp.
type Metadata map[string]string

// ObjectSink persists encoded frames.
//
// Put stores data under key and returns a stable URI for the stored
// object. Keys are hierarchical, "/"-separated. Implementations must
// be safe for concurrent use: upload workers call Put in parallel.
// Sinks do not retry; backoff policy belongs to the upload queue.
type ObjectSink interface {
	Put(ctx context.Context, key string, data []byte, meta Metadata) (string, error)
}

// ValidateKey rejects keys that are empty, absolute, or escape the
// sink's namespace through parent traversal. Backends call it before
// touching their store.
func ValidateKey(key string) error {
	if key == "" {
		return errors.WrapInvalid(
			fmt.Errorf("empty key"),
			"storage", "ValidateKey", "check object key")
	}
	if strings.HasPrefix(key, "/") {
		return errors.WrapInvalid(
			fmt.Errorf("absolute key %q", key),
			"storage", "ValidateKey", "check object key")
	}
	clean := path.Clean(key)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.WrapInvalid(
			fmt.Errorf("key %q escapes the sink root", key),
			"storage", "ValidateKey", "check object key")
	}
	return nil
}
