//go:build integration

package objectstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage/objectstore"
)

// natsURL points the suite at a JetStream-enabled server, e.g.
// `nats-server -js`. Unset skips.
func natsURL(t *testing.T) string {
	t.Helper()
	url := os.Getenv("NATS_URL")
	if url == "" {
		t.Skip("Skipping integration test. Set NATS_URL to run.")
	}
	return url
}

func TestSink_PutRoundTrip(t *testing.T) {
	nc, err := nats.Connect(natsURL(t))
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bucket := "it-frames"
	sink, err := objectstore.New(ctx, js, objectstore.Config{
		Bucket:      bucket,
		Description: "integration test archive",
	})
	require.NoError(t, err)
	defer js.DeleteObjectStore(ctx, bucket)

	data := []byte("jpeg-bytes")
	uri, err := sink.Put(ctx, "frames/frame_20250601_120000_1.jpg", data,
		storage.Metadata{"seq": "1"})
	require.NoError(t, err)
	assert.Equal(t, "nats-obj://it-frames/frames/frame_20250601_120000_1.jpg", uri)

	store, err := js.ObjectStore(ctx, bucket)
	require.NoError(t, err)

	got, err := store.GetBytes(ctx, "frames/frame_20250601_120000_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	info, err := store.GetInfo(ctx, "frames/frame_20250601_120000_1.jpg")
	require.NoError(t, err)
	assert.Equal(t, "1", info.Metadata["seq"])
}

func TestSink_OverwriteKeepsLatest(t *testing.T) {
	nc, err := nats.Connect(natsURL(t))
	require.NoError(t, err)
	defer nc.Close()

	js, err := jetstream.New(nc)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bucket := "it-frames-overwrite"
	sink, err := objectstore.New(ctx, js, objectstore.Config{Bucket: bucket})
	require.NoError(t, err)
	defer js.DeleteObjectStore(ctx, bucket)

	_, err = sink.Put(ctx, "frames/a.jpg", []byte("v1"), nil)
	require.NoError(t, err)
	_, err = sink.Put(ctx, "frames/a.jpg", []byte("v2"), nil)
	require.NoError(t, err)

	store, err := js.ObjectStore(ctx, bucket)
	require.NoError(t, err)
	got, err := store.GetBytes(ctx, "frames/a.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}
