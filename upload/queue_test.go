package upload

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/component"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/options"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/retry"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/pkg/worker"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/storage"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

func fastRetry(attempts int) retry.Config {
	return retry.Config{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func testFrame(t *testing.T, seq uint64) *vision.Frame {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return vision.FromImage(img, seq, time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
}

// scriptedSink fails Put according to script, then succeeds; calls
// past the script succeed.
type scriptedSink struct {
	mu     sync.Mutex
	script []error
	calls  int
	keys   []string
	metas  []storage.Metadata
}

func (s *scriptedSink) Put(_ context.Context, key string, _ []byte, meta storage.Metadata) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.calls
	s.calls++
	s.keys = append(s.keys, key)
	s.metas = append(s.metas, meta)
	if idx < len(s.script) && s.script[idx] != nil {
		return "", s.script[idx]
	}
	return "fake://" + key, nil
}

func (s *scriptedSink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// gatedSink blocks every Put until release is closed, signalling
// entered once per call.
type gatedSink struct {
	inner   *storage.MemorySink
	entered chan struct{}
	release chan struct{}
}

func newGatedSink() *gatedSink {
	return &gatedSink{
		inner:   storage.NewMemorySink(),
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func (s *gatedSink) Put(ctx context.Context, key string, data []byte, meta storage.Metadata) (string, error) {
	s.entered <- struct{}{}
	select {
	case <-s.release:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return s.inner.Put(ctx, key, data, meta)
}

func startQueue(t *testing.T, cfg Config, deps Deps) *Queue {
	t.Helper()
	q := NewQueue(cfg, deps)
	require.NoError(t, q.Start(context.Background()))
	t.Cleanup(func() { _ = q.Stop(2 * time.Second) })
	return q
}

func waitCompleted(t *testing.T, q *Queue, n int) []Job {
	t.Helper()
	require.Eventually(t, func() bool {
		return len(q.Recent(0)) >= n
	}, 2*time.Second, 5*time.Millisecond)
	return q.Recent(0)
}

func TestQueue_Lifecycle(t *testing.T) {
	component.StandardLifecycleTests(t, func() component.Component {
		return NewQueue(Config{Retry: fastRetry(1)}, Deps{Sink: storage.NewMemorySink()})
	})
}

func TestKeyFor(t *testing.T) {
	frame := testFrame(t, 42)
	assert.Equal(t, "frames/frame_20250601_120000_42.jpg", KeyFor(frame))
}

func TestQueue_ArchivesFrame(t *testing.T) {
	sink := storage.NewMemorySink()
	q := startQueue(t, Config{Retry: fastRetry(1)}, Deps{Sink: sink})

	frame := testFrame(t, 7)
	job, err := q.Enqueue(frame, storage.Metadata{"camera": "lab"})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, StatusPending, job.Status)
	assert.Equal(t, "frames/frame_20250601_120000_7.jpg", job.Key)

	recent := waitCompleted(t, q, 1)
	require.Len(t, recent, 1)
	done := recent[0]
	assert.Equal(t, job.ID, done.ID)
	assert.Equal(t, StatusSucceeded, done.Status)
	assert.Equal(t, 1, done.Attempts)
	assert.Equal(t, "mem://"+job.Key, done.URI)
	assert.False(t, done.CompletedAt.IsZero())

	data, ok := sink.Get(job.Key)
	require.True(t, ok)
	assert.True(t, bytes.HasPrefix(data, []byte{0xFF, 0xD8}), "stored object is a JPEG")

	meta, ok := sink.Meta(job.Key)
	require.True(t, ok)
	assert.Equal(t, "lab", meta["camera"])
	assert.Equal(t, "7", meta["seq"])
	assert.NotEmpty(t, meta["captured_at"])
}

func TestQueue_FailFailSucceed(t *testing.T) {
	sink := &scriptedSink{script: []error{
		fmt.Errorf("connection reset"),
		fmt.Errorf("connection reset"),
		nil,
	}}
	q := startQueue(t, Config{Retry: fastRetry(5)}, Deps{Sink: sink})

	_, err := q.Enqueue(testFrame(t, 1), nil)
	require.NoError(t, err)

	recent := waitCompleted(t, q, 1)
	require.Len(t, recent, 1, "job completes exactly once")
	assert.Equal(t, StatusSucceeded, recent[0].Status)
	assert.Equal(t, 3, recent[0].Attempts)
	assert.Equal(t, 3, sink.callCount())
	assert.Empty(t, recent[0].Error)
}

func TestQueue_RetriesExhausted(t *testing.T) {
	boom := fmt.Errorf("endpoint down")
	sink := &scriptedSink{script: []error{boom, boom, boom, boom, boom}}
	q := startQueue(t, Config{Retry: fastRetry(3)}, Deps{Sink: sink})

	_, err := q.Enqueue(testFrame(t, 2), nil)
	require.NoError(t, err)

	recent := waitCompleted(t, q, 1)
	require.Len(t, recent, 1)
	assert.Equal(t, StatusFailed, recent[0].Status)
	assert.Equal(t, 3, recent[0].Attempts, "stops at the retry ceiling")
	assert.Contains(t, recent[0].Error, "endpoint down")
	assert.Empty(t, recent[0].URI)

	// No further attempts after the job fails.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 3, sink.callCount())

	health := q.Health()
	assert.True(t, health.Healthy, "failed uploads are data, not a fault")
	assert.Equal(t, 1, health.ErrorCount)
	assert.Contains(t, health.LastError, "endpoint down")
}

func TestQueue_InvalidSinkErrorNotRetried(t *testing.T) {
	sink := &scriptedSink{script: []error{
		errors.WrapInvalid(fmt.Errorf("bad key"), "sink", "Put", "validate"),
	}}
	q := startQueue(t, Config{Retry: fastRetry(5)}, Deps{Sink: sink})

	_, err := q.Enqueue(testFrame(t, 3), nil)
	require.NoError(t, err)

	recent := waitCompleted(t, q, 1)
	assert.Equal(t, StatusFailed, recent[0].Status)
	assert.Equal(t, 1, recent[0].Attempts)
	assert.Equal(t, 1, sink.callCount())
}

func TestQueue_FullQueueRejectsNewest(t *testing.T) {
	sink := newGatedSink()
	q := startQueue(t, Config{
		Workers:    1,
		QueueSize:  1,
		PutTimeout: 5 * time.Second,
		Retry:      fastRetry(1),
	}, Deps{Sink: sink})

	_, err := q.Enqueue(testFrame(t, 1), nil)
	require.NoError(t, err)
	<-sink.entered // worker holds job 1

	_, err = q.Enqueue(testFrame(t, 2), nil)
	require.NoError(t, err, "one slot in the queue")

	_, err = q.Enqueue(testFrame(t, 3), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, worker.ErrQueueFull)

	close(sink.release)
	recent := waitCompleted(t, q, 2)
	assert.Len(t, recent, 2, "accepted jobs complete, rejected one never ran")
	assert.Equal(t, int64(1), q.Stats().Dropped)
}

func TestQueue_EnqueueBeforeStart(t *testing.T) {
	q := NewQueue(Config{}, Deps{Sink: storage.NewMemorySink()})

	_, err := q.Enqueue(testFrame(t, 1), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, worker.ErrPoolNotStarted)
}

func TestQueue_NilFrameRejected(t *testing.T) {
	q := startQueue(t, Config{Retry: fastRetry(1)}, Deps{Sink: storage.NewMemorySink()})

	_, err := q.Enqueue(nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}

func TestQueue_RecentNewestFirstAndBounded(t *testing.T) {
	q := startQueue(t, Config{
		Workers:    1,
		RecentSize: 3,
		Retry:      fastRetry(1),
	}, Deps{Sink: storage.NewMemorySink()})

	for seq := uint64(1); seq <= 5; seq++ {
		_, err := q.Enqueue(testFrame(t, seq), nil)
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		return q.Stats().Processed == 5
	}, 2*time.Second, 5*time.Millisecond)

	all := q.Recent(0)
	require.Len(t, all, 3, "ring keeps the newest completions")
	assert.Contains(t, all[0].Key, "_5.jpg")
	assert.Contains(t, all[1].Key, "_4.jpg")
	assert.Contains(t, all[2].Key, "_3.jpg")

	two := q.Recent(2)
	require.Len(t, two, 2)
	assert.Contains(t, two[0].Key, "_5.jpg")
}

func TestQueue_QualitySnapshotAtEnqueue(t *testing.T) {
	store := options.NewStore()
	require.NoError(t, store.Set(map[string]any{"jpeg_quality": 30}))

	sink := storage.NewMemorySink()
	q := startQueue(t, Config{Retry: fastRetry(1)}, Deps{Sink: sink, Options: store})

	frame := testFrame(t, 1)
	job, err := q.Enqueue(frame, nil)
	require.NoError(t, err)

	// A later quality change must not affect the already-enqueued job.
	require.NoError(t, store.Set(map[string]any{"jpeg_quality": 95}))

	waitCompleted(t, q, 1)

	want, err := frame.EncodeJPEG(30)
	require.NoError(t, err)
	got, ok := sink.Get(job.Key)
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestQueue_StopDrainsQueuedJobs(t *testing.T) {
	sink := storage.NewMemorySink()
	q := NewQueue(Config{Workers: 1, Retry: fastRetry(1)}, Deps{Sink: sink})
	require.NoError(t, q.Start(context.Background()))

	for seq := uint64(1); seq <= 3; seq++ {
		_, err := q.Enqueue(testFrame(t, seq), nil)
		require.NoError(t, err)
	}

	require.NoError(t, q.Stop(2*time.Second))
	assert.Equal(t, 3, sink.Len(), "queued jobs drain before shutdown")

	_, err := q.Enqueue(testFrame(t, 4), nil)
	assert.Error(t, err)
}

func TestQueue_RestartKeepsRecentRing(t *testing.T) {
	sink := storage.NewMemorySink()
	q := NewQueue(Config{Retry: fastRetry(1)}, Deps{Sink: sink})

	require.NoError(t, q.Start(context.Background()))
	_, err := q.Enqueue(testFrame(t, 1), nil)
	require.NoError(t, err)
	waitCompleted(t, q, 1)
	require.NoError(t, q.Stop(2*time.Second))

	require.NoError(t, q.Start(context.Background()))
	defer q.Stop(2 * time.Second)
	_, err = q.Enqueue(testFrame(t, 2), nil)
	require.NoError(t, err)

	recent := waitCompleted(t, q, 2)
	assert.Len(t, recent, 2, "completions from both runs retained")
}
