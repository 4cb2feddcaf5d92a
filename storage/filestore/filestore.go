// Package filestore archives frames beneath a local directory. It is
// the default sink for serverless deployments: no broker required,
// objects inspectable with ls.
package filestore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
)

// Sink writes each object to <root>/<key>, creating intermediate
// directories on demand. Metadata is not persisted; this backend is
// for development and single-host setups, not durable archival.
type Sink struct {
	root string
}

var _ storage.ObjectSink = (*Sink)(nil)

// New resolves root to an absolute path and creates it.
func New(root string) (*Sink, error) {
	if root == "" {
		return nil, errors.WrapInvalid(
			fmt.Errorf("empty root directory"),
			"filestore", "New", "resolve sink root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.WrapInvalid(err, "filestore", "New", "resolve sink root")
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, errors.Wrap(err, "filestore", "New", "create sink root")
	}
	return &Sink{root: abs}, nil
}

// Root returns the absolute directory objects are written under.
func (s *Sink) Root() string { return s.root }

// Put writes data to the key's path via a temp file and rename, so a
// concurrent reader never observes a partial object.
func (s *Sink) Put(ctx context.Context, key string, data []byte, _ storage.Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := storage.ValidateKey(key); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(path.Clean(key)))
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", errors.Wrap(err, "filestore", "Put", "create object directory")
	}

	tmp, err := os.CreateTemp(dir, ".put-*")
	if err != nil {
		return "", errors.Wrap(err, "filestore", "Put", "create temp file")
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", errors.Wrap(err, "filestore", "Put", "write object")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, "filestore", "Put", "close temp file")
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", errors.Wrap(err, "filestore", "Put", "publish object")
	}
	return "file://" + dst, nil
}
