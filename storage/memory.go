package storage

import (
	"bytes"
	"context"
	"maps"
	"sort"
	"sync"
)

type memObject struct {
	data []byte
	meta Metadata
}

// MemorySink keeps archived objects in a map. It backs tests and
// deployments where archival only needs to be observable, not durable.
type MemorySink struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

// NewMemorySink creates an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{objects: make(map[string]memObject)}
}

var _ ObjectSink = (*MemorySink)(nil)

// Put stores a copy of data, so the caller may reuse its buffer.
// Existing keys are overwritten. URIs use the mem scheme.
func (s *MemorySink) Put(ctx context.Context, key string, data []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := ValidateKey(key); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.objects[key] = memObject{data: bytes.Clone(data), meta: maps.Clone(meta)}
	s.mu.Unlock()
	return "mem://" + key, nil
}

// Get returns the stored bytes for key.
func (s *MemorySink) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Meta returns the metadata stored with key.
func (s *MemorySink) Meta(key string) (Metadata, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, false
	}
	return maps.Clone(obj.meta), true
}

// Keys lists the stored keys in lexicographic order.
func (s *MemorySink) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len reports the number of stored objects.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
