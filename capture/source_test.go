package capture

import (
	"context"
	stderrors "errors"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AtharvaMohite07/Real-Time-Video-Processing/errors"
	"github.com/AtharvaMohite07/Real-Time-Video-Processing/vision"
)

// fakeDevice plays a script of read outcomes: a nil entry yields a
// frame, a non-nil entry yields that error. With loop set it keeps
// producing frames after the script; otherwise the script's end is
// the end of the stream.
type fakeDevice struct {
	mu     sync.Mutex
	script []error
	loop   bool
	reads  int
	closed bool
}

func (d *fakeDevice) ReadFrame(ctx context.Context) (*vision.Frame, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(time.Millisecond):
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	i := d.reads
	d.reads++

	if i < len(d.script) {
		if err := d.script[i]; err != nil {
			return nil, err
		}
		return fakeFrame(), nil
	}
	if d.loop {
		return fakeFrame(), nil
	}
	return nil, errors.WrapFatal(errors.ErrEndOfStream, "capture", "ReadFrame", "script exhausted")
}

func (d *fakeDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

func (d *fakeDevice) wasClosed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func fakeFrame() *vision.Frame {
	return vision.FromImage(image.NewNRGBA(image.Rect(0, 0, 8, 8)), 0, time.Now())
}

type fakeOpener struct {
	mu     sync.Mutex
	device *fakeDevice
	err    error
	block  bool
	opens  int
}

func (o *fakeOpener) Open(ctx context.Context, _ Descriptor) (Device, error) {
	o.mu.Lock()
	o.opens++
	o.mu.Unlock()

	if o.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if o.err != nil {
		return nil, o.err
	}
	return o.device, nil
}

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.opens
}

// recorder collects the frames, skips, and terminals a source delivers.
type recorder struct {
	mu         sync.Mutex
	seqs       []uint64
	skips      int
	terminalCh chan error
}

func newRecorder() *recorder {
	return &recorder{terminalCh: make(chan error, 4)}
}

func (r *recorder) onFrame(f *vision.Frame) {
	r.mu.Lock()
	r.seqs = append(r.seqs, f.Seq)
	r.mu.Unlock()
}

func (r *recorder) onTerminal(cause error) {
	r.terminalCh <- cause
}

func (r *recorder) onSkip() {
	r.mu.Lock()
	r.skips++
	r.mu.Unlock()
}

func (r *recorder) skipCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.skips
}

func (r *recorder) seqSnapshot() []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint64(nil), r.seqs...)
}

func (r *recorder) waitTerminal(t *testing.T) error {
	t.Helper()
	select {
	case cause := <-r.terminalCh:
		return cause
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for terminal")
		return nil
	}
}

func anyDescriptor(t *testing.T) Descriptor {
	t.Helper()
	desc, err := ParseDescriptor("testpattern:64x64@30")
	require.NoError(t, err)
	return desc
}

func TestSource_StartStop(t *testing.T) {
	device := &fakeDevice{loop: true}
	rec := newRecorder()
	src := NewSource(Deps{
		Opener:     &fakeOpener{device: device},
		OnFrame:    rec.onFrame,
		OnTerminal: rec.onTerminal,
	})

	require.Equal(t, StateStopped, src.State())
	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	assert.Equal(t, StateRunning, src.State())

	require.Eventually(t, func() bool {
		return len(rec.seqSnapshot()) >= 3
	}, 2*time.Second, time.Millisecond)

	require.NoError(t, src.Stop())
	assert.Equal(t, StateStopped, src.State())
	assert.True(t, device.wasClosed())
	assert.NoError(t, rec.waitTerminal(t))

	// Sequence numbers start at 1 and increase without gaps.
	for i, seq := range rec.seqSnapshot() {
		assert.Equal(t, uint64(i+1), seq)
	}
}

func TestSource_StopIdempotent(t *testing.T) {
	device := &fakeDevice{loop: true}
	rec := newRecorder()
	src := NewSource(Deps{
		Opener:     &fakeOpener{device: device},
		OnFrame:    rec.onFrame,
		OnTerminal: rec.onTerminal,
	})

	// Stopping a stopped source does nothing.
	require.NoError(t, src.Stop())

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	require.NoError(t, src.Stop())
	require.NoError(t, src.Stop())
	assert.Equal(t, StateStopped, src.State())
}

func TestSource_DoubleStart(t *testing.T) {
	opener := &fakeOpener{device: &fakeDevice{loop: true}}
	rec := newRecorder()
	src := NewSource(Deps{Opener: opener, OnFrame: rec.onFrame, OnTerminal: rec.onTerminal})

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	assert.Equal(t, 1, opener.openCount())

	require.NoError(t, src.Stop())
	rec.waitTerminal(t)
}

func TestSource_UnknownScheme(t *testing.T) {
	rec := newRecorder()
	src := NewSource(Deps{OnFrame: rec.onFrame, OnTerminal: rec.onTerminal})

	desc, err := ParseDescriptor("device:0@15")
	require.NoError(t, err)

	err = src.Start(context.Background(), desc)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrUnsupportedSource))
	assert.Equal(t, StateError, src.State())
	assert.Error(t, src.Err())

	// No session ran, so no terminal fires.
	select {
	case cause := <-rec.terminalCh:
		t.Fatalf("unexpected terminal: %v", cause)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSource_OpenTimeout(t *testing.T) {
	src := NewSource(Deps{
		Opener:      &fakeOpener{block: true},
		OpenTimeout: 50 * time.Millisecond,
	})

	start := time.Now()
	err := src.Start(context.Background(), anyDescriptor(t))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrOpenTimeout))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, StateError, src.State())
}

func TestSource_TransientReadSkips(t *testing.T) {
	transient := errors.WrapTransient(errors.ErrDecodeFailed, "capture", "ReadFrame", "test decode")
	device := &fakeDevice{script: []error{nil, transient, nil}}
	rec := newRecorder()
	src := NewSource(Deps{
		Opener:     &fakeOpener{device: device},
		OnFrame:    rec.onFrame,
		OnTerminal: rec.onTerminal,
		OnSkip:     rec.onSkip,
	})

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))

	cause := rec.waitTerminal(t)
	assert.True(t, stderrors.Is(cause, errors.ErrEndOfStream))

	// End of stream is a clean terminal, not a fault.
	assert.Equal(t, StateStopped, src.State())
	assert.NoError(t, src.Err())

	assert.Equal(t, []uint64{1, 2}, rec.seqSnapshot())
	assert.Equal(t, int64(2), src.FramesRead())
	assert.Equal(t, int64(1), src.FramesSkipped())
	assert.Equal(t, 1, rec.skipCount())
	assert.True(t, device.wasClosed())
}

func TestSource_DeviceFaultEntersError(t *testing.T) {
	fault := errors.WrapFatal(errors.ErrSourceLost, "capture", "ReadFrame", "test fault")
	device := &fakeDevice{script: []error{nil, fault}}
	rec := newRecorder()
	src := NewSource(Deps{
		Opener:     &fakeOpener{device: device},
		OnFrame:    rec.onFrame,
		OnTerminal: rec.onTerminal,
	})

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))

	cause := rec.waitTerminal(t)
	assert.True(t, stderrors.Is(cause, errors.ErrSourceLost))
	assert.Equal(t, StateError, src.State())
	assert.Error(t, src.Err())
	assert.True(t, device.wasClosed())
}

func TestSource_RestartResetsSequence(t *testing.T) {
	opener := &fakeOpener{device: &fakeDevice{loop: true}}
	rec := newRecorder()
	src := NewSource(Deps{Opener: opener, OnFrame: rec.onFrame, OnTerminal: rec.onTerminal})

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	require.Eventually(t, func() bool {
		return len(rec.seqSnapshot()) >= 2
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, src.Stop())
	rec.waitTerminal(t)

	firstSession := len(rec.seqSnapshot())

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	require.Eventually(t, func() bool {
		return len(rec.seqSnapshot()) > firstSession
	}, 2*time.Second, time.Millisecond)
	require.NoError(t, src.Stop())
	rec.waitTerminal(t)

	seqs := rec.seqSnapshot()
	assert.Equal(t, uint64(1), seqs[firstSession])
	assert.Equal(t, 2, opener.openCount())

	// Lifetime counters keep accumulating across sessions.
	assert.Equal(t, int64(len(seqs)), src.FramesRead())
}

func TestSource_RestartAfterError(t *testing.T) {
	fault := errors.WrapFatal(errors.ErrSourceLost, "capture", "ReadFrame", "test fault")
	opener := &fakeOpener{device: &fakeDevice{script: []error{fault}}}
	rec := newRecorder()
	src := NewSource(Deps{Opener: opener, OnFrame: rec.onFrame, OnTerminal: rec.onTerminal})

	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	rec.waitTerminal(t)
	require.Equal(t, StateError, src.State())

	opener.device = &fakeDevice{loop: true}
	require.NoError(t, src.Start(context.Background(), anyDescriptor(t)))
	assert.Equal(t, StateRunning, src.State())
	assert.NoError(t, src.Err())

	require.NoError(t, src.Stop())
	rec.waitTerminal(t)
}
