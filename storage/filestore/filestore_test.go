package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
)

func TestNew_CreatesRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "archive")

	sink, err := New(root)
	require.NoError(t, err)

	info, err := os.Stat(sink.Root())
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.True(t, filepath.IsAbs(sink.Root()))
}

func TestNew_EmptyRootRejected(t *testing.T) {
	_, err := New("")
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestPut_WritesNestedKey(t *testing.T) {
	sink, err := New(t.TempDir())
	require.NoError(t, err)

	data := []byte("jpeg-bytes")
	uri, err := sink.Put(context.Background(), "frames/frame_20250601_120000_7.jpg", data, nil)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(uri, "file://"), "uri %q", uri)
	path := strings.TrimPrefix(uri, "file://")

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, filepath.Join(sink.Root(), "frames", "frame_20250601_120000_7.jpg"), path)
}

func TestPut_OverwritesExisting(t *testing.T) {
	sink, err := New(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = sink.Put(ctx, "frames/a.jpg", []byte("v1"), nil)
	require.NoError(t, err)
	uri, err := sink.Put(ctx, "frames/a.jpg", []byte("v2"), nil)
	require.NoError(t, err)

	got, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}

func TestPut_RejectsTraversal(t *testing.T) {
	base := t.TempDir()
	sink, err := New(filepath.Join(base, "root"))
	require.NoError(t, err)

	_, err = sink.Put(context.Background(), "../escape.jpg", []byte("x"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))

	_, statErr := os.Stat(filepath.Join(base, "escape.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestPut_CanceledContext(t *testing.T) {
	sink, err := New(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = sink.Put(ctx, "frames/a.jpg", []byte("x"), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPut_LeavesNoTempFiles(t *testing.T) {
	sink, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = sink.Put(context.Background(), "frames/a.jpg", []byte("x"), nil)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(sink.Root(), "frames"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.jpg", entries[0].Name())
}
