// Package objectstore archives frames into a NATS JetStream object
// store bucket. Objects keep their key as the object name and carry
// frame metadata as object store metadata, so operators can inspect
// the archive with the nats CLI.
package objectstore

import (
	"bytes"
	"context"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
)

// Config selects and sizes the bucket.
type Config struct {
	// Bucket is the object store bucket name. Required.
	Bucket string `json:"bucket"`

	// Description is attached to the bucket on creation.
	Description string `json:"description,omitempty"`

	// MaxBytes bounds the bucket size; 0 means unlimited. The server
	// evicts nothing on its own, so production deployments should set
	// a bound or a TTL.
	MaxBytes int64 `json:"max_bytes,omitempty"`

	// Replicas is the JetStream replica count; 0 uses the server
	// default of 1.
	Replicas int `json:"replicas,omitempty"`
}

// Sink implements storage.ObjectSink on a JetStream object store.
type Sink struct {
	bucket string
	store  jetstream.ObjectStore
}

var _ storage.ObjectSink = (*Sink)(nil)

// New creates or binds the configured bucket.
func New(ctx context.Context, js jetstream.JetStream, cfg Config) (*Sink, error) {
	if cfg.Bucket == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("empty bucket name"),
			"objectstore", "New", "bind bucket")
	}
	if js == nil {
		return nil, errors.WrapInvalid(
			fmt.Errorf("nil JetStream context"),
			"objectstore", "New", "bind bucket")
	}

	store, err := js.CreateOrUpdateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:      cfg.Bucket,
		Description: cfg.Description,
		MaxBytes:    cfg.MaxBytes,
		Replicas:    cfg.Replicas,
	})
	if err != nil {
		return nil, errors.WrapTransient(err, "objectstore", "New", "create bucket")
	}
	return &Sink{bucket: cfg.Bucket, store: store}, nil
}

// NewWithStore wraps an existing bucket handle.
func NewWithStore(bucket string, store jetstream.ObjectStore) *Sink {
	return &Sink{bucket: bucket, store: store}
}

// URI renders the stable address of an object in a bucket.
func URI(bucket, key string) string {
	return "nats-obj://" + bucket + "/" + key
}

// Put stores data under key. JetStream object puts replace earlier
// versions of the same name, which matches overwrite semantics here.
func (s *Sink) Put(ctx context.Context, key string, data []byte, meta storage.Metadata) (string, error) {
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}

	objMeta := jetstream.ObjectMeta{Name: key, Metadata: meta}
	if _, err := s.store.Put(ctx, objMeta, bytes.NewReader(data)); err != nil {
		return "", errors.WrapTransient(err, "objectstore", "Put", "store object")
	}
	return URI(s.bucket, key), nil
}
